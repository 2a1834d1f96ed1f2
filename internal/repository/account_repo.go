package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// AccountRepository handles database operations for bank accounts
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount inserts a new bank account
func (r *AccountRepository) CreateAccount(account *models.BankAccount) (*models.BankAccount, error) {
	query := `
		INSERT INTO bank_accounts (owner_id, family_id, bank_name, name, balance, currency)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		account.OwnerID, account.FamilyID, account.BankName, account.Name, account.Balance, account.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	account.ID = id
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return account, nil
}

// GetAccountByID retrieves a bank account by ID
func (r *AccountRepository) GetAccountByID(id int64) (*models.BankAccount, error) {
	query := `
		SELECT id, owner_id, family_id, bank_name, name, balance, currency, created_at, updated_at
		FROM bank_accounts
		WHERE id = ?
	`
	account := &models.BankAccount{}
	err := r.db.QueryRow(query, id).Scan(
		&account.ID, &account.OwnerID, &account.FamilyID, &account.BankName,
		&account.Name, &account.Balance, &account.Currency, &account.CreatedAt, &account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListAccounts retrieves the accounts visible to a user: their own plus
// their family's, when familyID is non-nil
func (r *AccountRepository) ListAccounts(userID int64, familyID *int64) ([]models.BankAccount, error) {
	query := `
		SELECT id, owner_id, family_id, bank_name, name, balance, currency, created_at, updated_at
		FROM bank_accounts
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`
	args := []interface{}{userID}
	if familyID != nil {
		query = `
			SELECT id, owner_id, family_id, bank_name, name, balance, currency, created_at, updated_at
			FROM bank_accounts
			WHERE owner_id = ? OR family_id = ?
			ORDER BY created_at DESC
		`
		args = append(args, *familyID)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.BankAccount
	for rows.Next() {
		var a models.BankAccount
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.FamilyID, &a.BankName, &a.Name, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, nil
}

// UpdateAccount updates the mutable fields of a bank account
func (r *AccountRepository) UpdateAccount(account *models.BankAccount) error {
	query := `
		UPDATE bank_accounts
		SET bank_name = ?, name = ?, balance = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, account.BankName, account.Name, account.Balance, account.Currency, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// DeleteAccount deletes a bank account
func (r *AccountRepository) DeleteAccount(id int64) error {
	query := "DELETE FROM bank_accounts WHERE id = ?"
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// ReattachOwnerAccounts moves a user's personal accounts into a family.
// Only rows with no family yet are touched.
func (r *AccountRepository) ReattachOwnerAccounts(ownerID, familyID int64) error {
	query := "UPDATE bank_accounts SET family_id = ? WHERE owner_id = ? AND family_id IS NULL"
	_, err := r.db.Exec(query, familyID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reattach accounts: %w", err)
	}
	return nil
}
