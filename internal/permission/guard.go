package permission

// Guard authorizes mutations of a specific finance entity by composing
// ownership checks with the family permission evaluator.
type Guard struct {
	evaluator Evaluator
}

// NewGuard creates a finance entity access guard
func NewGuard(evaluator Evaluator) *Guard {
	return &Guard{evaluator: evaluator}
}

// CanAccessEntity reports whether the caller may perform the given action on
// a finance entity. Checks short-circuit in order: system admin, entity
// owner, entity creator, then the family permission for family-scoped
// entities. Ownership is checked before family permissions so an owner keeps
// control of their own record regardless of flag state. Note the creator
// branch also bypasses family flags: whoever recorded a loan or card retains
// access even without edit permission.
func (g *Guard) CanAccessEntity(userID int64, isSystemAdmin bool, ownerID, creatorID, familyID *int64, perm Permission) (bool, error) {
	if isSystemAdmin {
		return true, nil
	}
	if ownerID != nil && *ownerID == userID {
		return true, nil
	}
	if creatorID != nil && *creatorID == userID {
		return true, nil
	}
	if familyID != nil {
		return g.evaluator.Evaluate(userID, *familyID, perm)
	}
	return false, nil
}
