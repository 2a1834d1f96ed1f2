package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/repository"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/validation"
)

var (
	ErrFamilyNotFound       = errors.New("family not found")
	ErrNotFamilyMember      = errors.New("user is not a member of this family")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrAlreadyInFamily      = errors.New("user already belongs to a family")
	ErrMemberNotFound       = errors.New("family member not found")
	ErrSelfTarget           = errors.New("cannot target your own membership")
	ErrAdminTarget          = errors.New("cannot change permissions of an admin")
	ErrLastAdmin            = errors.New("family must keep at least one admin")
	ErrAdminCannotLeave     = errors.New("admin cannot leave while other members remain")
	ErrSelfInvitation       = errors.New("cannot invite yourself")
	ErrDuplicateInvitation  = errors.New("a pending invitation already exists for this email")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationClosed     = errors.New("invitation is no longer pending")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrNotInvitee           = errors.New("invitation was issued to a different email")
)

// familyStore is the membership persistence needed by FamilyService
type familyStore interface {
	CreateFamilyWithAdmin(name string, creatorUserID int64) (*models.Family, error)
	GetFamilyByID(familyID int64) (*models.Family, error)
	GetMembershipByUserID(userID int64) (*models.FamilyMember, error)
	GetMembership(familyID, userID int64) (*models.FamilyMember, error)
	AddMember(member *models.FamilyMember) error
	GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error)
	UpdateMemberPermissions(familyID, userID int64, perms models.MemberPermissions) error
	UpdateMemberRole(familyID, userID int64, role string) error
	CountAdmins(familyID int64) (int, error)
	CountMembers(familyID int64) (int, error)
	RemoveMember(familyID, userID int64) error
	DeleteFamily(familyID int64) error
	AddAuditLog(entry models.AuditEntry) error
	ListAuditLog(familyID int64, limit int) ([]models.AuditEntry, error)
}

// invitationStore is the invitation persistence needed by FamilyService
type invitationStore interface {
	CreateInvitation(familyID int64, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error)
	GetInvitationByID(id int64) (*models.Invitation, error)
	GetPendingInvitation(familyID int64, email string) (*models.Invitation, error)
	SweepExpired(familyID int64, email string) error
	SetStatus(id int64, status string) error
	ListFamilyInvitations(familyID int64) ([]models.Invitation, error)
	ListPendingByEmail(email string) ([]models.Invitation, error)
}

// memberDirectory resolves users for invitation addressing
type memberDirectory interface {
	GetUserByID(id int64) (*models.User, error)
}

// invitationMailer delivers invitation emails. Delivery failures are
// logged, never surfaced to the caller.
type invitationMailer interface {
	SendInvitationEmail(ctx context.Context, toEmail, familyName, inviterName, code string) error
}

// reattachFunc links a user's orphaned entities of one kind to a family
type reattachFunc func(ownerID, familyID int64) error

// FamilyService handles family lifecycle, membership and invitations
type FamilyService struct {
	familyRepo     familyStore
	invitationRepo invitationStore
	userRepo       memberDirectory
	evaluator      permission.Evaluator
	mailer         invitationMailer
	reattachers    []reattachFunc
	invitationTTL  time.Duration
}

// NewFamilyService creates a new family service. mailer may be nil when
// email delivery is not configured.
func NewFamilyService(familyRepo familyStore, invitationRepo invitationStore, userRepo memberDirectory, evaluator permission.Evaluator, mailer invitationMailer, invitationTTL time.Duration) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		evaluator:      evaluator,
		mailer:         mailer,
		invitationTTL:  invitationTTL,
	}
}

// RegisterReattacher adds a hook that adopts the joining user's orphaned
// entities into the family. Hooks run after family creation and after an
// accepted invitation.
func (s *FamilyService) RegisterReattacher(fn reattachFunc) {
	s.reattachers = append(s.reattachers, fn)
}

// audit writes a best-effort trail entry. Failures are logged and never
// abort the operation that produced them.
func (s *FamilyService) audit(familyID, actorID int64, action string, targetType string, targetID *int64, metadata string) {
	entry := models.AuditEntry{
		FamilyID: familyID,
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Metadata: metadata,
	}
	if targetType != "" {
		entry.TargetType = &targetType
	}
	if err := s.familyRepo.AddAuditLog(entry); err != nil {
		log.Printf("Failed to write audit entry %s for family %d: %v", action, familyID, err)
	}
}

// reattachOrphans links the user's family-less accounts, loans and cards
// to the family. Each kind is attempted independently; a failure is
// logged and does not block the others.
func (s *FamilyService) reattachOrphans(userID, familyID int64) {
	var g errgroup.Group
	for _, fn := range s.reattachers {
		fn := fn
		g.Go(func() error {
			if err := fn(userID, familyID); err != nil {
				log.Printf("Failed to reattach entities for user %d to family %d: %v", userID, familyID, err)
			}
			return nil
		})
	}
	g.Wait()
}

// CreateFamily creates a family with the creator as its sole admin.
// Fails if the creator already belongs to a family.
func (s *FamilyService) CreateFamily(userID int64, name string) (*models.Family, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.CreateFamilyWithAdmin(name, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyInFamily) {
			return nil, ErrAlreadyInFamily
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.reattachOrphans(userID, family.ID)
	s.audit(family.ID, userID, "family_created", "", nil, "")
	return family, nil
}

// GetFamily retrieves a family with its members. The caller must be a
// member of the family.
func (s *FamilyService) GetFamily(userID, familyID int64) (*models.FamilyWithMembers, error) {
	membership, err := s.familyRepo.GetMembership(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil {
		return nil, ErrNotFamilyMember
	}

	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	members, users, err := s.familyRepo.GetFamilyMembers(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}

	return &models.FamilyWithMembers{Family: *family, Members: members, Users: users}, nil
}

// GetMembership returns the caller's current membership, or nil when the
// user does not belong to any family.
func (s *FamilyService) GetMembership(userID int64) (*models.FamilyMember, error) {
	membership, err := s.familyRepo.GetMembershipByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return membership, nil
}

// InviteMember creates a pending invitation addressed to an email. The
// actor needs the manage_invitations capability; at most one open
// invitation may exist per (family, email) pair.
func (s *FamilyService) InviteMember(actorID, familyID int64, email string) (*models.Invitation, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	email = repository.NormalizeEmail(email)

	allowed, err := s.evaluator.Evaluate(actorID, familyID, permission.ManageInvitations)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	actor, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inviter: %w", err)
	}
	if actor != nil && repository.NormalizeEmail(actor.Email) == email {
		return nil, ErrSelfInvitation
	}

	// Flip stale pending rows first so they do not block a re-invite.
	if err := s.invitationRepo.SweepExpired(familyID, email); err != nil {
		return nil, fmt.Errorf("failed to sweep expired invitations: %w", err)
	}

	existing, err := s.invitationRepo.GetPendingInvitation(familyID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invitations: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateInvitation
	}

	invitation, err := s.invitationRepo.CreateInvitation(familyID, email, actorID, time.Now().Add(s.invitationTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if s.mailer != nil {
		family, ferr := s.familyRepo.GetFamilyByID(familyID)
		familyName := ""
		if ferr == nil && family != nil {
			familyName = family.Name
		}
		inviterName := ""
		if actor != nil {
			inviterName = actor.Name
		}
		if err := s.mailer.SendInvitationEmail(context.Background(), email, familyName, inviterName, invitation.Code); err != nil {
			log.Printf("Failed to send invitation email to %s: %v", email, err)
		}
	}

	s.audit(familyID, actorID, "member_invited", "invitation", &invitation.ID, fmt.Sprintf(`{"email":%q}`, email))
	return invitation, nil
}

// AcceptInvitation turns a pending invitation into a membership. Expiry
// is enforced on read: a stale pending invitation is marked expired here
// even though no sweeper has touched it yet.
func (s *FamilyService) AcceptInvitation(userID, invitationID int64) (*models.FamilyMember, error) {
	invitation, err := s.invitationRepo.GetInvitationByID(invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return nil, ErrInvitationNotFound
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || repository.NormalizeEmail(user.Email) != invitation.Email {
		return nil, ErrNotInvitee
	}

	if !invitation.IsPending() {
		return nil, ErrInvitationClosed
	}
	if invitation.IsExpired() {
		if err := s.invitationRepo.SetStatus(invitation.ID, models.InvitationExpired); err != nil {
			log.Printf("Failed to mark invitation %d expired: %v", invitation.ID, err)
		}
		return nil, ErrInvitationExpired
	}

	existing, err := s.familyRepo.GetMembershipByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyInFamily
	}

	member := &models.FamilyMember{
		FamilyID:       invitation.FamilyID,
		UserID:         userID,
		Role:           models.RoleMember,
		CanViewFinance: true,
	}
	if err := s.familyRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := s.invitationRepo.SetStatus(invitation.ID, models.InvitationAccepted); err != nil {
		log.Printf("Failed to mark invitation %d accepted: %v", invitation.ID, err)
	}

	s.reattachOrphans(userID, invitation.FamilyID)
	s.audit(invitation.FamilyID, userID, "invitation_accepted", "invitation", &invitation.ID, "")
	return member, nil
}

// RejectInvitation closes a pending invitation on behalf of the invitee
func (s *FamilyService) RejectInvitation(userID, invitationID int64) error {
	invitation, err := s.invitationRepo.GetInvitationByID(invitationID)
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return ErrInvitationNotFound
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || repository.NormalizeEmail(user.Email) != invitation.Email {
		return ErrNotInvitee
	}
	if !invitation.IsOpen() {
		return ErrInvitationClosed
	}

	if err := s.invitationRepo.SetStatus(invitation.ID, models.InvitationRejected); err != nil {
		return fmt.Errorf("failed to reject invitation: %w", err)
	}

	s.audit(invitation.FamilyID, userID, "invitation_rejected", "invitation", &invitation.ID, "")
	return nil
}

// CancelInvitation withdraws a pending invitation from the family side.
// The actor needs the manage_invitations capability.
func (s *FamilyService) CancelInvitation(actorID, invitationID int64) error {
	invitation, err := s.invitationRepo.GetInvitationByID(invitationID)
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return ErrInvitationNotFound
	}

	allowed, err := s.evaluator.Evaluate(actorID, invitation.FamilyID, permission.ManageInvitations)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	if !invitation.IsOpen() {
		return ErrInvitationClosed
	}

	if err := s.invitationRepo.SetStatus(invitation.ID, models.InvitationCanceled); err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
	}

	s.audit(invitation.FamilyID, actorID, "invitation_canceled", "invitation", &invitation.ID, "")
	return nil
}

// ListInvitations returns the family's invitations for a member with the
// manage_invitations capability
func (s *FamilyService) ListInvitations(actorID, familyID int64) ([]models.Invitation, error) {
	allowed, err := s.evaluator.Evaluate(actorID, familyID, permission.ManageInvitations)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	invitations, err := s.invitationRepo.ListFamilyInvitations(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// ListMyInvitations returns open invitations addressed to the user
func (s *FamilyService) ListMyInvitations(userID int64) ([]models.Invitation, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotInvitee
	}
	invitations, err := s.invitationRepo.ListPendingByEmail(repository.NormalizeEmail(user.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	open := make([]models.Invitation, 0, len(invitations))
	for _, inv := range invitations {
		if inv.IsOpen() {
			open = append(open, inv)
		}
	}
	return open, nil
}

// UpdateMemberPermissions overwrites a member's capability flags. Admins
// cannot be targeted, and nobody can edit their own flags.
func (s *FamilyService) UpdateMemberPermissions(actorID, familyID, targetUserID int64, perms models.MemberPermissions) error {
	if actorID == targetUserID {
		return ErrSelfTarget
	}

	allowed, err := s.evaluator.Evaluate(actorID, familyID, permission.AssignPermissions)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}

	target, err := s.familyRepo.GetMembership(familyID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.IsAdmin() {
		return ErrAdminTarget
	}

	if err := s.familyRepo.UpdateMemberPermissions(familyID, targetUserID, perms); err != nil {
		return fmt.Errorf("failed to update permissions: %w", err)
	}

	s.audit(familyID, actorID, "permissions_updated", "member", &targetUserID, "")
	return nil
}

// UpdateMemberRole changes a member's family-local role. Promoting to
// admin grants every capability flag; demoting the last admin is denied.
func (s *FamilyService) UpdateMemberRole(actorID, familyID, targetUserID int64, role string) error {
	if actorID == targetUserID {
		return ErrSelfTarget
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return fmt.Errorf("invalid role %q", role)
	}

	allowed, err := s.evaluator.Evaluate(actorID, familyID, permission.ManageMembers)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}

	target, err := s.familyRepo.GetMembership(familyID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}

	if target.IsAdmin() && role == models.RoleMember {
		admins, err := s.familyRepo.CountAdmins(familyID)
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.familyRepo.UpdateMemberRole(familyID, targetUserID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.audit(familyID, actorID, "role_updated", "member", &targetUserID, fmt.Sprintf(`{"role":%q}`, role))
	return nil
}

// RemoveMember removes another member from the family. Removing the last
// admin is denied to keep the family governable.
func (s *FamilyService) RemoveMember(actorID, familyID, targetUserID int64) error {
	if actorID == targetUserID {
		return ErrSelfTarget
	}

	allowed, err := s.evaluator.Evaluate(actorID, familyID, permission.ManageMembers)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}

	target, err := s.familyRepo.GetMembership(familyID, targetUserID)
	if err != nil {
		return fmt.Errorf("failed to get target membership: %w", err)
	}
	if target == nil {
		return ErrMemberNotFound
	}

	if target.IsAdmin() {
		admins, err := s.familyRepo.CountAdmins(familyID)
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.familyRepo.RemoveMember(familyID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.audit(familyID, actorID, "member_removed", "member", &targetUserID, "")
	return nil
}

// LeaveFamily removes the caller's own membership. An admin may only
// leave an otherwise empty family, and doing so deletes the family.
func (s *FamilyService) LeaveFamily(userID int64) error {
	membership, err := s.familyRepo.GetMembershipByUserID(userID)
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if membership == nil {
		return ErrNotFamilyMember
	}

	if membership.IsAdmin() {
		total, err := s.familyRepo.CountMembers(membership.FamilyID)
		if err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if total > 1 {
			return ErrAdminCannotLeave
		}
		if err := s.familyRepo.DeleteFamily(membership.FamilyID); err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		}
		return nil
	}

	if err := s.familyRepo.RemoveMember(membership.FamilyID, userID); err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}

	s.audit(membership.FamilyID, userID, "member_left", "member", &userID, "")
	return nil
}

// ListAuditLog returns recent audit entries for a family member
func (s *FamilyService) ListAuditLog(userID, familyID int64, limit int) ([]models.AuditEntry, error) {
	membership, err := s.familyRepo.GetMembership(familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil {
		return nil, ErrNotFamilyMember
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.familyRepo.ListAuditLog(familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
