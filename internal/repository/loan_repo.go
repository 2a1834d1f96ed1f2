package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// LoanRepository handles database operations for loans and their installments
type LoanRepository struct {
	db *database.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *database.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, owner_id, created_by, family_id, bank_name, loan_type,
	total_amount, monthly_payment, paid_amount, remaining_balance, status,
	start_date, end_date, grace_months, due_day, created_at, updated_at`

func scanLoan(row interface{ Scan(...interface{}) error }) (*models.Loan, error) {
	loan := &models.Loan{}
	err := row.Scan(
		&loan.ID, &loan.OwnerID, &loan.CreatedBy, &loan.FamilyID, &loan.BankName, &loan.LoanType,
		&loan.TotalAmount, &loan.MonthlyPayment, &loan.PaidAmount, &loan.RemainingBalance, &loan.Status,
		&loan.StartDate, &loan.EndDate, &loan.GraceMonths, &loan.DueDay, &loan.CreatedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// CreateLoan inserts a new loan record
func (r *LoanRepository) CreateLoan(loan *models.Loan) (*models.Loan, error) {
	query := `
		INSERT INTO loans (owner_id, created_by, family_id, bank_name, loan_type,
			total_amount, monthly_payment, paid_amount, remaining_balance, status,
			start_date, end_date, grace_months, due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		loan.OwnerID, loan.CreatedBy, loan.FamilyID, loan.BankName, loan.LoanType,
		loan.TotalAmount, loan.MonthlyPayment, loan.PaidAmount, loan.RemainingBalance, loan.Status,
		loan.StartDate, loan.EndDate, loan.GraceMonths, loan.DueDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	loan.ID = id
	loan.CreatedAt = time.Now()
	loan.UpdatedAt = time.Now()
	return loan, nil
}

// GetLoanByID retrieves a loan by ID
func (r *LoanRepository) GetLoanByID(id int64) (*models.Loan, error) {
	query := "SELECT " + loanColumns + " FROM loans WHERE id = ?"
	loan, err := scanLoan(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListLoans retrieves the loans visible to a user: their own plus their
// family's, when familyID is non-nil
func (r *LoanRepository) ListLoans(userID int64, familyID *int64) ([]models.Loan, error) {
	query := "SELECT " + loanColumns + " FROM loans WHERE owner_id = ? ORDER BY created_at DESC"
	args := []interface{}{userID}
	if familyID != nil {
		query = "SELECT " + loanColumns + " FROM loans WHERE owner_id = ? OR family_id = ? ORDER BY created_at DESC"
		args = append(args, *familyID)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *loan)
	}

	return loans, nil
}

// DeleteLoan deletes a loan and its installments. Also used as the
// compensating action when installment materialization fails mid-create.
func (r *LoanRepository) DeleteLoan(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM installments WHERE loan_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete installments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM loans WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertInstallments bulk-inserts a loan's installment schedule in one
// transaction
func (r *LoanRepository) InsertInstallments(installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO installments (loan_id, installment_number, due_date, amount, is_paid, paid_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i := range installments {
		inst := &installments[i]
		id, err := tx.ExecReturningID(query, inst.LoanID, inst.InstallmentNumber, inst.DueDate, inst.Amount, inst.IsPaid, inst.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", inst.InstallmentNumber, err)
		}
		inst.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetInstallmentByID retrieves a single installment
func (r *LoanRepository) GetInstallmentByID(id int64) (*models.Installment, error) {
	query := `
		SELECT id, loan_id, installment_number, due_date, amount, is_paid, paid_at
		FROM installments
		WHERE id = ?
	`
	inst := &models.Installment{}
	err := r.db.QueryRow(query, id).Scan(
		&inst.ID, &inst.LoanID, &inst.InstallmentNumber, &inst.DueDate, &inst.Amount, &inst.IsPaid, &inst.PaidAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}

	return inst, nil
}

// ListInstallments retrieves a loan's installments ordered by number
func (r *LoanRepository) ListInstallments(loanID int64) ([]models.Installment, error) {
	query := `
		SELECT id, loan_id, installment_number, due_date, amount, is_paid, paid_at
		FROM installments
		WHERE loan_id = ?
		ORDER BY installment_number ASC
	`
	rows, err := r.db.Query(query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var installments []models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(&inst.ID, &inst.LoanID, &inst.InstallmentNumber, &inst.DueDate, &inst.Amount, &inst.IsPaid, &inst.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}

	return installments, nil
}

// CountUnpaidInstallments counts a loan's unpaid installments, optionally
// excluding one (the one about to be marked paid)
func (r *LoanRepository) CountUnpaidInstallments(loanID, excludeID int64) (int, error) {
	query := "SELECT COUNT(*) FROM installments WHERE loan_id = ? AND is_paid = ? AND id != ?"
	var count int
	if err := r.db.QueryRow(query, loanID, false, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unpaid installments: %w", err)
	}
	return count, nil
}

// ApplyInstallmentUpdate writes an installment mutation and the recomputed
// loan aggregates in a single transaction so the cached totals can never
// drift from the installment state on a crash between the two writes.
func (r *LoanRepository) ApplyInstallmentUpdate(inst *models.Installment, loan *models.Loan) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	instQuery := `
		UPDATE installments
		SET due_date = ?, amount = ?, is_paid = ?, paid_at = ?
		WHERE id = ?
	`
	if _, err := tx.Exec(instQuery, inst.DueDate, inst.Amount, inst.IsPaid, inst.PaidAt, inst.ID); err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}

	loanQuery := `
		UPDATE loans
		SET paid_amount = ?, remaining_balance = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := tx.Exec(loanQuery, loan.PaidAmount, loan.RemainingBalance, loan.Status, loan.ID); err != nil {
		return fmt.Errorf("failed to update loan aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReattachOwnerLoans moves a user's personal loans into a family. Only rows
// with no family yet are touched.
func (r *LoanRepository) ReattachOwnerLoans(ownerID, familyID int64) error {
	query := "UPDATE loans SET family_id = ? WHERE owner_id = ? AND family_id IS NULL"
	_, err := r.db.Exec(query, familyID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reattach loans: %w", err)
	}
	return nil
}

// ListDueInstallments returns unpaid installments due on or before the
// horizon, joined with their loan for reminder grouping
func (r *LoanRepository) ListDueInstallments(horizon time.Time) ([]models.Installment, []models.Loan, error) {
	query := `
		SELECT i.id, i.loan_id, i.installment_number, i.due_date, i.amount, i.is_paid, i.paid_at,
		       ` + prefixedLoanColumns("l") + `
		FROM installments i
		INNER JOIN loans l ON i.loan_id = l.id
		WHERE i.is_paid = ? AND i.due_date <= ?
		ORDER BY i.due_date ASC
	`
	rows, err := r.db.Query(query, false, horizon)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query due installments: %w", err)
	}
	defer rows.Close()

	var installments []models.Installment
	var loans []models.Loan
	for rows.Next() {
		var inst models.Installment
		var loan models.Loan
		if err := rows.Scan(
			&inst.ID, &inst.LoanID, &inst.InstallmentNumber, &inst.DueDate, &inst.Amount, &inst.IsPaid, &inst.PaidAt,
			&loan.ID, &loan.OwnerID, &loan.CreatedBy, &loan.FamilyID, &loan.BankName, &loan.LoanType,
			&loan.TotalAmount, &loan.MonthlyPayment, &loan.PaidAmount, &loan.RemainingBalance, &loan.Status,
			&loan.StartDate, &loan.EndDate, &loan.GraceMonths, &loan.DueDay, &loan.CreatedAt, &loan.UpdatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan due installment: %w", err)
		}
		installments = append(installments, inst)
		loans = append(loans, loan)
	}

	return installments, loans, nil
}

// prefixedLoanColumns qualifies the loan column list with a table alias
func prefixedLoanColumns(alias string) string {
	return alias + `.id, ` + alias + `.owner_id, ` + alias + `.created_by, ` + alias + `.family_id, ` +
		alias + `.bank_name, ` + alias + `.loan_type, ` + alias + `.total_amount, ` + alias + `.monthly_payment, ` +
		alias + `.paid_amount, ` + alias + `.remaining_balance, ` + alias + `.status, ` + alias + `.start_date, ` +
		alias + `.end_date, ` + alias + `.grace_months, ` + alias + `.due_day, ` + alias + `.created_at, ` + alias + `.updated_at`
}
