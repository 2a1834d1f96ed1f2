package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// InvitationRepository handles database operations for family invitations
type InvitationRepository struct {
	db *database.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInvitationCode generates a random invitation code
func (r *InvitationRepository) GenerateInvitationCode() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

const invitationColumns = `i.id, i.family_id, i.code, i.email, i.status, i.invited_by,
	i.created_at, i.expires_at, i.responded_at, COALESCE(u.name, '')`

func scanInvitation(row interface{ Scan(...interface{}) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(
		&inv.ID, &inv.FamilyID, &inv.Code, &inv.Email, &inv.Status, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.RespondedAt, &inv.InviterName,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvitation creates a new pending invitation. Email must already be
// normalized by the caller.
func (r *InvitationRepository) CreateInvitation(familyID int64, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	code, err := r.GenerateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	query := `
		INSERT INTO family_invitations (family_id, code, email, status, invited_by, expires_at)
		VALUES (?, ?, ?, 'pending', ?, ?)
	`
	id, err := r.db.ExecReturningID(query, familyID, code, email, invitedBy, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		FamilyID:  familyID,
		Code:      code,
		Email:     email,
		Status:    models.InvitationPending,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByID retrieves an invitation by ID
func (r *InvitationRepository) GetInvitationByID(id int64) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM family_invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.id = ?
	`
	inv, err := scanInvitation(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetPendingInvitation retrieves the pending invitation for a (family,
// normalized email) pair, if one exists
func (r *InvitationRepository) GetPendingInvitation(familyID int64, email string) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM family_invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.family_id = ? AND i.email = ? AND i.status = 'pending'
	`
	inv, err := scanInvitation(r.db.QueryRow(query, familyID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending invitation: %w", err)
	}
	return inv, nil
}

// SweepExpired flips pending-but-expired invitations for a (family, email)
// pair to expired. Run before duplicate-pending checks so a re-invite after
// true expiry succeeds.
func (r *InvitationRepository) SweepExpired(familyID int64, email string) error {
	query := `
		UPDATE family_invitations
		SET status = 'expired', responded_at = ?
		WHERE family_id = ? AND email = ? AND status = 'pending' AND expires_at < ?
	`
	now := time.Now()
	_, err := r.db.Exec(query, now, familyID, email, now)
	if err != nil {
		return fmt.Errorf("failed to sweep expired invitations: %w", err)
	}
	return nil
}

// SetStatus moves an invitation into a terminal state
func (r *InvitationRepository) SetStatus(id int64, status string) error {
	query := "UPDATE family_invitations SET status = ?, responded_at = ? WHERE id = ?"
	_, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	return nil
}

// ListFamilyInvitations retrieves all invitations for a family, newest first
func (r *InvitationRepository) ListFamilyInvitations(familyID int64) ([]models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM family_invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}

	return invitations, nil
}

// ListPendingByEmail retrieves all pending invitations addressed to an email
func (r *InvitationRepository) ListPendingByEmail(email string) ([]models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM family_invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.email = ? AND i.status = 'pending'
		ORDER BY i.created_at DESC
	`
	rows, err := r.db.Query(query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}

	return invitations, nil
}
