package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// ErrAlreadyInFamily is returned when a user who already holds a membership
// tries to create or join a family.
var ErrAlreadyInFamily = errors.New("user already belongs to a family")

// FamilyRepository handles database operations for families, memberships
// and the audit log
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const memberColumns = `id, family_id, user_id, role,
	can_view_finance, can_create_finance, can_edit_finance, can_delete_finance,
	can_manage_members, can_manage_invitations, can_assign_permissions, joined_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*models.FamilyMember, error) {
	m := &models.FamilyMember{}
	err := row.Scan(
		&m.ID, &m.FamilyID, &m.UserID, &m.Role,
		&m.CanViewFinance, &m.CanCreateFinance, &m.CanEditFinance, &m.CanDeleteFinance,
		&m.CanManageMembers, &m.CanManageInvitations, &m.CanAssignPermissions, &m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateFamilyWithAdmin atomically creates a family and its first admin
// membership. The single-membership check runs inside the same transaction
// as the inserts so two racing requests cannot both succeed.
func (r *FamilyRepository) CreateFamilyWithAdmin(name string, creatorUserID int64) (*models.Family, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow("SELECT COUNT(*) FROM family_members WHERE user_id = ?", creatorUserID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyInFamily
	}

	familyID, err := tx.ExecReturningID("INSERT INTO families (name, created_by) VALUES (?, ?)", name, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	query := `
		INSERT INTO family_members (family_id, user_id, role,
			can_view_finance, can_create_finance, can_edit_finance, can_delete_finance,
			can_manage_members, can_manage_invitations, can_assign_permissions)
		VALUES (?, ?, 'admin', ?, ?, ?, ?, ?, ?, ?)
	`
	t := r.db.Dialect.BoolValue(true)
	_, err = tx.Exec(query, familyID, creatorUserID, t, t, t, t, t, t, t)
	if err != nil {
		return nil, fmt.Errorf("failed to add admin member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	family := &models.Family{
		ID:        familyID,
		Name:      name,
		CreatedBy: creatorUserID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT id, name, created_by, created_at, updated_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRow(query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.CreatedBy,
		&family.CreatedAt,
		&family.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// GetMembershipByUserID retrieves a user's membership row. A user belongs to
// at most one family, so user id alone identifies it.
func (r *FamilyRepository) GetMembershipByUserID(userID int64) (*models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " FROM family_members WHERE user_id = ?"
	member, err := scanMember(r.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return member, nil
}

// GetMembership retrieves a specific member of a family
func (r *FamilyRepository) GetMembership(familyID, userID int64) (*models.FamilyMember, error) {
	query := "SELECT " + memberColumns + " FROM family_members WHERE family_id = ? AND user_id = ?"
	member, err := scanMember(r.db.QueryRow(query, familyID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return member, nil
}

// AddMember inserts a membership row. Role and flags come from the caller;
// invitation acceptance uses role 'member' with default flags.
func (r *FamilyRepository) AddMember(member *models.FamilyMember) error {
	query := `
		INSERT INTO family_members (family_id, user_id, role,
			can_view_finance, can_create_finance, can_edit_finance, can_delete_finance,
			can_manage_members, can_manage_invitations, can_assign_permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		member.FamilyID, member.UserID, member.Role,
		member.CanViewFinance, member.CanCreateFinance, member.CanEditFinance, member.CanDeleteFinance,
		member.CanManageMembers, member.CanManageInvitations, member.CanAssignPermissions,
	)
	if err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// GetFamilyMembers retrieves all members of a family with their user details
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role,
		       fm.can_view_finance, fm.can_create_finance, fm.can_edit_finance, fm.can_delete_finance,
		       fm.can_manage_members, fm.can_manage_invitations, fm.can_assign_permissions, fm.joined_at,
		       u.id, u.email, u.name, u.role, u.created_at
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	var users []models.User
	for rows.Next() {
		var member models.FamilyMember
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.FamilyID, &member.UserID, &member.Role,
			&member.CanViewFinance, &member.CanCreateFinance, &member.CanEditFinance, &member.CanDeleteFinance,
			&member.CanManageMembers, &member.CanManageInvitations, &member.CanAssignPermissions, &member.JoinedAt,
			&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, member)
		users = append(users, user)
	}

	return members, users, nil
}

// UpdateMemberPermissions replaces a member's capability flags
func (r *FamilyRepository) UpdateMemberPermissions(familyID, userID int64, perms models.MemberPermissions) error {
	query := `
		UPDATE family_members SET
			can_view_finance = ?, can_create_finance = ?, can_edit_finance = ?, can_delete_finance = ?,
			can_manage_members = ?, can_manage_invitations = ?, can_assign_permissions = ?
		WHERE family_id = ? AND user_id = ?
	`
	_, err := r.db.Exec(query,
		perms.CanViewFinance, perms.CanCreateFinance, perms.CanEditFinance, perms.CanDeleteFinance,
		perms.CanManageMembers, perms.CanManageInvitations, perms.CanAssignPermissions,
		familyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member permissions: %w", err)
	}
	return nil
}

// UpdateMemberRole changes a member's family-local role. Promoting to admin
// also force-sets every capability flag so the stored flags stay consistent
// with the role-implies-full-capability rule.
func (r *FamilyRepository) UpdateMemberRole(familyID, userID int64, role string) error {
	if role == models.RoleAdmin {
		query := `
			UPDATE family_members SET role = ?,
				can_view_finance = ?, can_create_finance = ?, can_edit_finance = ?, can_delete_finance = ?,
				can_manage_members = ?, can_manage_invitations = ?, can_assign_permissions = ?
			WHERE family_id = ? AND user_id = ?
		`
		_, err := r.db.Exec(query, role, true, true, true, true, true, true, true, familyID, userID)
		if err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		return nil
	}

	query := "UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ?"
	_, err := r.db.Exec(query, role, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

// CountAdmins returns the number of admin-role members in a family
func (r *FamilyRepository) CountAdmins(familyID int64) (int, error) {
	query := "SELECT COUNT(*) FROM family_members WHERE family_id = ? AND role = 'admin'"
	var count int
	if err := r.db.QueryRow(query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// CountMembers returns the total number of members in a family
func (r *FamilyRepository) CountMembers(familyID int64) (int, error) {
	query := "SELECT COUNT(*) FROM family_members WHERE family_id = ?"
	var count int
	if err := r.db.QueryRow(query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// RemoveMember deletes a membership row
func (r *FamilyRepository) RemoveMember(familyID, userID int64) error {
	query := "DELETE FROM family_members WHERE family_id = ? AND user_id = ?"
	_, err := r.db.Exec(query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// DeleteFamily deletes a family and all associated data
func (r *FamilyRepository) DeleteFamily(familyID int64) error {
	query := "DELETE FROM families WHERE id = ?"
	_, err := r.db.Exec(query, familyID)
	if err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// HasFamilyPermission invokes the server-side permission check. Dialects
// without the function return an error, which sends callers down the local
// fallback path.
func (r *FamilyRepository) HasFamilyPermission(userID, familyID int64, perm string) (bool, error) {
	return r.db.CallBool("family_permission_check", userID, familyID, perm)
}

// AddAuditLog appends an entry to the family audit trail
func (r *FamilyRepository) AddAuditLog(entry models.AuditEntry) error {
	query := `
		INSERT INTO family_audit_log (family_id, actor_id, action, target_type, target_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, entry.FamilyID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to add audit log entry: %w", err)
	}
	return nil
}

// ListAuditLog returns the most recent audit entries for a family
func (r *FamilyRepository) ListAuditLog(familyID int64, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, family_id, actor_id, action, target_type, target_id, metadata, created_at
		FROM family_audit_log
		WHERE family_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.FamilyID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}
