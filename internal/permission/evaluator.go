package permission

import (
	"fmt"
	"log"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// Evaluator decides whether a user holds a permission within a family
type Evaluator interface {
	Evaluate(userID, familyID int64, perm Permission) (bool, error)
}

// PermissionRPC is the remote authoritative permission check, backed by a
// server-side database function. It is treated as ground truth when it
// answers: it may encode rules not duplicated locally.
type PermissionRPC interface {
	HasFamilyPermission(userID, familyID int64, perm string) (bool, error)
}

// RPCEvaluator delegates to the remote authoritative evaluator
type RPCEvaluator struct {
	rpc PermissionRPC
}

// NewRPCEvaluator creates an evaluator backed by the remote permission check
func NewRPCEvaluator(rpc PermissionRPC) *RPCEvaluator {
	return &RPCEvaluator{rpc: rpc}
}

func (e *RPCEvaluator) Evaluate(userID, familyID int64, perm Permission) (bool, error) {
	allowed, err := e.rpc.HasFamilyPermission(userID, familyID, string(perm))
	if err != nil {
		return false, fmt.Errorf("remote permission check failed: %w", err)
	}
	return allowed, nil
}

// MembershipSource looks up a user's own membership row. A user belongs to
// at most one family, so the lookup is by user alone.
type MembershipSource interface {
	GetMembershipByUserID(userID int64) (*models.FamilyMember, error)
}

// FlagEvaluator recomputes the permission decision from the cached
// membership record: no membership or a family mismatch denies, the admin
// role allows everything, and members fall through to their capability flags.
type FlagEvaluator struct {
	memberships MembershipSource
}

// NewFlagEvaluator creates an evaluator over locally stored membership flags
func NewFlagEvaluator(memberships MembershipSource) *FlagEvaluator {
	return &FlagEvaluator{memberships: memberships}
}

func (e *FlagEvaluator) Evaluate(userID, familyID int64, perm Permission) (bool, error) {
	member, err := e.memberships.GetMembershipByUserID(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load membership: %w", err)
	}
	if member == nil || member.FamilyID != familyID {
		return false, nil
	}
	if member.IsAdmin() {
		return true, nil
	}
	return FlagValue(member, perm), nil
}

// Fallback tries the primary evaluator and falls back to the secondary only
// when the primary errors. A denial from the primary is final.
type Fallback struct {
	primary   Evaluator
	secondary Evaluator
}

// NewFallback chains two evaluators, remote-first
func NewFallback(primary, secondary Evaluator) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Evaluate(userID, familyID int64, perm Permission) (bool, error) {
	if familyID == 0 {
		return false, nil
	}

	allowed, err := f.primary.Evaluate(userID, familyID, perm)
	if err == nil {
		return allowed, nil
	}

	log.Printf("Permission evaluator unavailable, using local fallback: %v", err)
	return f.secondary.Evaluate(userID, familyID, perm)
}
