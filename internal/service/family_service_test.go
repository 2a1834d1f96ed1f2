package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/repository"
)

// allowAllEvaluator grants every permission check
type allowAllEvaluator struct{}

func (allowAllEvaluator) Evaluate(userID, familyID int64, perm permission.Permission) (bool, error) {
	return true, nil
}

// denyAllEvaluator denies every permission check
type denyAllEvaluator struct{}

func (denyAllEvaluator) Evaluate(userID, familyID int64, perm permission.Permission) (bool, error) {
	return false, nil
}

// fakeFamilyStore is an in-memory familyStore
type fakeFamilyStore struct {
	families     map[int64]*models.Family
	members      map[int64]*models.FamilyMember // keyed by user ID
	nextFamilyID int64
	audits       []models.AuditEntry
	deleted      []int64
}

func newFakeFamilyStore() *fakeFamilyStore {
	return &fakeFamilyStore{
		families:     make(map[int64]*models.Family),
		members:      make(map[int64]*models.FamilyMember),
		nextFamilyID: 1,
	}
}

func (f *fakeFamilyStore) CreateFamilyWithAdmin(name string, creatorUserID int64) (*models.Family, error) {
	if _, ok := f.members[creatorUserID]; ok {
		return nil, repository.ErrAlreadyInFamily
	}
	family := &models.Family{ID: f.nextFamilyID, Name: name, CreatedBy: creatorUserID}
	f.nextFamilyID++
	f.families[family.ID] = family
	member := &models.FamilyMember{FamilyID: family.ID, UserID: creatorUserID, Role: models.RoleAdmin}
	member.GrantAll()
	f.members[creatorUserID] = member
	return family, nil
}

func (f *fakeFamilyStore) GetFamilyByID(familyID int64) (*models.Family, error) {
	return f.families[familyID], nil
}

func (f *fakeFamilyStore) GetMembershipByUserID(userID int64) (*models.FamilyMember, error) {
	return f.members[userID], nil
}

func (f *fakeFamilyStore) GetMembership(familyID, userID int64) (*models.FamilyMember, error) {
	m := f.members[userID]
	if m == nil || m.FamilyID != familyID {
		return nil, nil
	}
	return m, nil
}

func (f *fakeFamilyStore) AddMember(member *models.FamilyMember) error {
	f.members[member.UserID] = member
	return nil
}

func (f *fakeFamilyStore) GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	var members []models.FamilyMember
	for _, m := range f.members {
		if m.FamilyID == familyID {
			members = append(members, *m)
		}
	}
	return members, nil, nil
}

func (f *fakeFamilyStore) UpdateMemberPermissions(familyID, userID int64, perms models.MemberPermissions) error {
	m := f.members[userID]
	if m == nil {
		return errors.New("no such member")
	}
	m.CanViewFinance = perms.CanViewFinance
	m.CanCreateFinance = perms.CanCreateFinance
	m.CanEditFinance = perms.CanEditFinance
	m.CanDeleteFinance = perms.CanDeleteFinance
	m.CanManageMembers = perms.CanManageMembers
	m.CanManageInvitations = perms.CanManageInvitations
	m.CanAssignPermissions = perms.CanAssignPermissions
	return nil
}

func (f *fakeFamilyStore) UpdateMemberRole(familyID, userID int64, role string) error {
	m := f.members[userID]
	if m == nil {
		return errors.New("no such member")
	}
	m.Role = role
	if role == models.RoleAdmin {
		m.GrantAll()
	}
	return nil
}

func (f *fakeFamilyStore) CountAdmins(familyID int64) (int, error) {
	count := 0
	for _, m := range f.members {
		if m.FamilyID == familyID && m.IsAdmin() {
			count++
		}
	}
	return count, nil
}

func (f *fakeFamilyStore) CountMembers(familyID int64) (int, error) {
	count := 0
	for _, m := range f.members {
		if m.FamilyID == familyID {
			count++
		}
	}
	return count, nil
}

func (f *fakeFamilyStore) RemoveMember(familyID, userID int64) error {
	delete(f.members, userID)
	return nil
}

func (f *fakeFamilyStore) DeleteFamily(familyID int64) error {
	delete(f.families, familyID)
	for userID, m := range f.members {
		if m.FamilyID == familyID {
			delete(f.members, userID)
		}
	}
	f.deleted = append(f.deleted, familyID)
	return nil
}

func (f *fakeFamilyStore) AddAuditLog(entry models.AuditEntry) error {
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeFamilyStore) ListAuditLog(familyID int64, limit int) ([]models.AuditEntry, error) {
	return f.audits, nil
}

// fakeInvitationStore is an in-memory invitationStore
type fakeInvitationStore struct {
	invitations map[int64]*models.Invitation
	nextID      int64
	swept       int
}

func newFakeInvitationStore() *fakeInvitationStore {
	return &fakeInvitationStore{invitations: make(map[int64]*models.Invitation), nextID: 1}
}

func (f *fakeInvitationStore) CreateInvitation(familyID int64, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	inv := &models.Invitation{
		ID:        f.nextID,
		FamilyID:  familyID,
		Code:      "code",
		Email:     email,
		Status:    models.InvitationPending,
		InvitedBy: invitedBy,
		ExpiresAt: expiresAt,
	}
	f.nextID++
	f.invitations[inv.ID] = inv
	return inv, nil
}

func (f *fakeInvitationStore) GetInvitationByID(id int64) (*models.Invitation, error) {
	return f.invitations[id], nil
}

func (f *fakeInvitationStore) GetPendingInvitation(familyID int64, email string) (*models.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.FamilyID == familyID && inv.Email == email && inv.IsPending() {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeInvitationStore) SweepExpired(familyID int64, email string) error {
	f.swept++
	for _, inv := range f.invitations {
		if inv.FamilyID == familyID && inv.Email == email && inv.IsPending() && inv.IsExpired() {
			inv.Status = models.InvitationExpired
		}
	}
	return nil
}

func (f *fakeInvitationStore) SetStatus(id int64, status string) error {
	inv := f.invitations[id]
	if inv == nil {
		return errors.New("no such invitation")
	}
	inv.Status = status
	return nil
}

func (f *fakeInvitationStore) ListFamilyInvitations(familyID int64) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range f.invitations {
		if inv.FamilyID == familyID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvitationStore) ListPendingByEmail(email string) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range f.invitations {
		if inv.Email == email && inv.IsPending() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// fakeDirectory is an in-memory memberDirectory
type fakeDirectory struct {
	users map[int64]*models.User
}

func (f *fakeDirectory) GetUserByID(id int64) (*models.User, error) {
	return f.users[id], nil
}

func newFamilyService(families *fakeFamilyStore, invitations *fakeInvitationStore, users *fakeDirectory, evaluator permission.Evaluator) *FamilyService {
	return NewFamilyService(families, invitations, users, evaluator, nil, 7*24*time.Hour)
}

func TestCreateFamily(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "a@example.com", Name: "Alice"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, allowAllEvaluator{})

	family, err := svc.CreateFamily(1, "Smith Household")
	if err != nil {
		t.Fatalf("CreateFamily returned error: %v", err)
	}
	if family.Name != "Smith Household" {
		t.Errorf("expected family name preserved, got %q", family.Name)
	}

	member := families.members[1]
	if member == nil || !member.IsAdmin() {
		t.Fatal("creator should become family admin")
	}
	if !member.CanAssignPermissions {
		t.Error("admin member should hold all capability flags")
	}

	if _, err := svc.CreateFamily(1, "Second Family"); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("expected ErrAlreadyInFamily, got %v", err)
	}
}

func TestInviteMember(t *testing.T) {
	families := newFakeFamilyStore()
	invitations := newFakeInvitationStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Email: "admin@example.com", Name: "Admin"},
	}}
	svc := newFamilyService(families, invitations, users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")

	inv, err := svc.InviteMember(1, family.ID, "Guest@Example.com")
	if err != nil {
		t.Fatalf("InviteMember returned error: %v", err)
	}
	if inv.Email != "guest@example.com" {
		t.Errorf("expected normalized email, got %q", inv.Email)
	}
	if !inv.IsPending() {
		t.Errorf("expected pending status, got %q", inv.Status)
	}
	if invitations.swept == 0 {
		t.Error("expected expired invitations to be swept before the duplicate check")
	}

	// A second open invitation for the same address is rejected.
	if _, err := svc.InviteMember(1, family.ID, "guest@example.com"); !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("expected ErrDuplicateInvitation, got %v", err)
	}

	// The inviter cannot address themselves.
	if _, err := svc.InviteMember(1, family.ID, "Admin@Example.com"); !errors.Is(err, ErrSelfInvitation) {
		t.Errorf("expected ErrSelfInvitation, got %v", err)
	}
}

func TestInviteMemberPermissionDenied(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{2: {ID: 2, Email: "m@example.com"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, denyAllEvaluator{})

	if _, err := svc.InviteMember(2, 1, "guest@example.com"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	families := newFakeFamilyStore()
	invitations := newFakeInvitationStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Email: "admin@example.com", Name: "Admin"},
		2: {ID: 2, Email: "guest@example.com", Name: "Guest"},
		3: {ID: 3, Email: "other@example.com", Name: "Other"},
	}}
	svc := newFamilyService(families, invitations, users, allowAllEvaluator{})

	reattached := 0
	svc.RegisterReattacher(func(ownerID, familyID int64) error {
		reattached++
		return nil
	})

	family, _ := svc.CreateFamily(1, "Family")
	inv, _ := svc.InviteMember(1, family.ID, "guest@example.com")

	// A different user cannot accept someone else's invitation.
	if _, err := svc.AcceptInvitation(3, inv.ID); !errors.Is(err, ErrNotInvitee) {
		t.Errorf("expected ErrNotInvitee, got %v", err)
	}

	member, err := svc.AcceptInvitation(2, inv.ID)
	if err != nil {
		t.Fatalf("AcceptInvitation returned error: %v", err)
	}
	if member.Role != models.RoleMember {
		t.Errorf("expected member role, got %q", member.Role)
	}
	if !member.CanViewFinance {
		t.Error("new member should start with the view flag")
	}
	if member.CanEditFinance || member.CanManageMembers {
		t.Error("new member should not start with elevated flags")
	}
	if invitations.invitations[inv.ID].Status != models.InvitationAccepted {
		t.Errorf("expected accepted status, got %q", invitations.invitations[inv.ID].Status)
	}
	if reattached == 0 {
		t.Error("expected orphan reattach to run after acceptance")
	}

	// Accepting twice fails: the invitation is closed.
	if _, err := svc.AcceptInvitation(2, inv.ID); !errors.Is(err, ErrInvitationClosed) {
		t.Errorf("expected ErrInvitationClosed, got %v", err)
	}
}

func TestAcceptInvitationExpiresOnRead(t *testing.T) {
	families := newFakeFamilyStore()
	invitations := newFakeInvitationStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		2: {ID: 2, Email: "guest@example.com", Name: "Guest"},
	}}
	svc := newFamilyService(families, invitations, users, allowAllEvaluator{})

	inv, _ := invitations.CreateInvitation(1, "guest@example.com", 1, time.Now().Add(-time.Hour))

	if _, err := svc.AcceptInvitation(2, inv.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("expected ErrInvitationExpired, got %v", err)
	}
	if invitations.invitations[inv.ID].Status != models.InvitationExpired {
		t.Errorf("stale invitation should be flipped to expired on read, got %q", invitations.invitations[inv.ID].Status)
	}
}

func TestAcceptInvitationSingleMembership(t *testing.T) {
	families := newFakeFamilyStore()
	invitations := newFakeInvitationStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Email: "admin@example.com"},
		2: {ID: 2, Email: "guest@example.com"},
	}}
	svc := newFamilyService(families, invitations, users, allowAllEvaluator{})

	// Invitee already runs their own family.
	svc.CreateFamily(2, "Own Family")
	family, _ := svc.CreateFamily(1, "Other Family")
	inv, _ := invitations.CreateInvitation(family.ID, "guest@example.com", 1, time.Now().Add(time.Hour))

	if _, err := svc.AcceptInvitation(2, inv.ID); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("expected ErrAlreadyInFamily, got %v", err)
	}
}

func TestCancelInvitation(t *testing.T) {
	families := newFakeFamilyStore()
	invitations := newFakeInvitationStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "admin@example.com"}}}
	svc := newFamilyService(families, invitations, users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")
	inv, _ := svc.InviteMember(1, family.ID, "guest@example.com")

	if err := svc.CancelInvitation(1, inv.ID); err != nil {
		t.Fatalf("CancelInvitation returned error: %v", err)
	}
	if invitations.invitations[inv.ID].Status != models.InvitationCanceled {
		t.Errorf("expected canceled status, got %q", invitations.invitations[inv.ID].Status)
	}
	if err := svc.CancelInvitation(1, inv.ID); !errors.Is(err, ErrInvitationClosed) {
		t.Errorf("expected ErrInvitationClosed on second cancel, got %v", err)
	}
}

func TestUpdateMemberPermissions(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "a@example.com"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")
	families.AddMember(&models.FamilyMember{FamilyID: family.ID, UserID: 2, Role: models.RoleMember})
	families.AddMember(&models.FamilyMember{FamilyID: family.ID, UserID: 3, Role: models.RoleAdmin})

	perms := models.MemberPermissions{CanViewFinance: true, CanEditFinance: true}
	if err := svc.UpdateMemberPermissions(1, family.ID, 2, perms); err != nil {
		t.Fatalf("UpdateMemberPermissions returned error: %v", err)
	}
	if !families.members[2].CanEditFinance {
		t.Error("edit flag should be set after update")
	}

	if err := svc.UpdateMemberPermissions(1, family.ID, 1, perms); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("expected ErrSelfTarget, got %v", err)
	}
	if err := svc.UpdateMemberPermissions(1, family.ID, 3, perms); !errors.Is(err, ErrAdminTarget) {
		t.Errorf("expected ErrAdminTarget, got %v", err)
	}
	if err := svc.UpdateMemberPermissions(1, family.ID, 99, perms); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestUpdateMemberRole(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "a@example.com"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")
	families.AddMember(&models.FamilyMember{FamilyID: family.ID, UserID: 2, Role: models.RoleMember})

	if err := svc.UpdateMemberRole(1, family.ID, 2, models.RoleAdmin); err != nil {
		t.Fatalf("promote returned error: %v", err)
	}
	if !families.members[2].CanManageMembers {
		t.Error("promotion should grant all capability flags")
	}

	// Demote the promoted admin back: two admins exist, allowed.
	if err := svc.UpdateMemberRole(1, family.ID, 2, models.RoleMember); err != nil {
		t.Fatalf("demote returned error: %v", err)
	}

	// Now user 1 is the only admin; user 2 holds all flags from the
	// promotion round-trip, so may attempt the demotion.
	if err := svc.UpdateMemberRole(2, family.ID, 1, models.RoleMember); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin, got %v", err)
	}

	if err := svc.UpdateMemberRole(1, family.ID, 2, "owner"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRemoveMember(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "a@example.com"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")
	families.AddMember(&models.FamilyMember{FamilyID: family.ID, UserID: 2, Role: models.RoleMember, CanManageMembers: true})

	if err := svc.RemoveMember(2, family.ID, 1); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin removing the only admin, got %v", err)
	}
	if err := svc.RemoveMember(1, family.ID, 1); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("expected ErrSelfTarget, got %v", err)
	}
	if err := svc.RemoveMember(1, family.ID, 2); err != nil {
		t.Fatalf("RemoveMember returned error: %v", err)
	}
	if families.members[2] != nil {
		t.Error("member should be gone after removal")
	}
}

func TestLeaveFamily(t *testing.T) {
	families := newFakeFamilyStore()
	users := &fakeDirectory{users: map[int64]*models.User{1: {ID: 1, Email: "a@example.com"}}}
	svc := newFamilyService(families, newFakeInvitationStore(), users, allowAllEvaluator{})

	family, _ := svc.CreateFamily(1, "Family")
	families.AddMember(&models.FamilyMember{FamilyID: family.ID, UserID: 2, Role: models.RoleMember})

	// Admin cannot walk away while a member remains.
	if err := svc.LeaveFamily(1); !errors.Is(err, ErrAdminCannotLeave) {
		t.Errorf("expected ErrAdminCannotLeave, got %v", err)
	}

	if err := svc.LeaveFamily(2); err != nil {
		t.Fatalf("member leave returned error: %v", err)
	}

	// Now the admin is alone; leaving dissolves the family.
	if err := svc.LeaveFamily(1); err != nil {
		t.Fatalf("lone admin leave returned error: %v", err)
	}
	if len(families.deleted) != 1 || families.deleted[0] != family.ID {
		t.Errorf("expected family %d deleted, got %v", family.ID, families.deleted)
	}

	if err := svc.LeaveFamily(1); !errors.Is(err, ErrNotFamilyMember) {
		t.Errorf("expected ErrNotFamilyMember after leaving, got %v", err)
	}
}
