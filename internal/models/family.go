package models

import "time"

// Family represents a group of users sharing finance entities
type Family struct {
	ID        int64
	Name      string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FamilyMember links a user to a family with a family-local role and
// capability flags. A user belongs to at most one family at a time.
type FamilyMember struct {
	ID       int64
	FamilyID int64
	UserID   int64
	Role     string // 'admin' or 'member' (family-local, distinct from User.Role)

	// Capability flags. Only meaningful when Role is 'member': an admin
	// implies all of them regardless of the stored values.
	CanViewFinance       bool
	CanCreateFinance     bool
	CanEditFinance       bool
	CanDeleteFinance     bool
	CanManageMembers     bool
	CanManageInvitations bool
	CanAssignPermissions bool

	JoinedAt time.Time
}

// IsAdmin reports whether the member holds the family-local admin role
func (m *FamilyMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// GrantAll sets every capability flag. Used when promoting a member to
// admin so the stored flags stay consistent with the implied capability.
func (m *FamilyMember) GrantAll() {
	m.CanViewFinance = true
	m.CanCreateFinance = true
	m.CanEditFinance = true
	m.CanDeleteFinance = true
	m.CanManageMembers = true
	m.CanManageInvitations = true
	m.CanAssignPermissions = true
}

// MemberPermissions is the assignable subset of a membership: the seven
// capability flags without the role.
type MemberPermissions struct {
	CanViewFinance       bool
	CanCreateFinance     bool
	CanEditFinance       bool
	CanDeleteFinance     bool
	CanManageMembers     bool
	CanManageInvitations bool
	CanAssignPermissions bool
}

// FamilyWithMembers combines a family with its member information
type FamilyWithMembers struct {
	Family  Family
	Members []FamilyMember
	Users   []User // Associated user details
}
