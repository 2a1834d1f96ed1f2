package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/ledger"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/schedule"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/validation"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrAlreadyPaid         = errors.New("installment is already paid")
	ErrNotPaid             = errors.New("installment is not paid")
	ErrEmptySchedule       = errors.New("loan dates produce no installments")
)

// loanStore is the loan and installment persistence needed by LoanService
type loanStore interface {
	CreateLoan(loan *models.Loan) (*models.Loan, error)
	GetLoanByID(id int64) (*models.Loan, error)
	ListLoans(userID int64, familyID *int64) ([]models.Loan, error)
	DeleteLoan(id int64) error
	InsertInstallments(installments []models.Installment) error
	GetInstallmentByID(id int64) (*models.Installment, error)
	ListInstallments(loanID int64) ([]models.Installment, error)
	CountUnpaidInstallments(loanID, excludeID int64) (int, error)
	ApplyInstallmentUpdate(inst *models.Installment, loan *models.Loan) error
}

// LoanService handles loans and their installment schedules
type LoanService struct {
	loanRepo loanStore
	userRepo memberDirectory
	guard    *permission.Guard
}

// NewLoanService creates a new loan service
func NewLoanService(loanRepo loanStore, userRepo memberDirectory, guard *permission.Guard) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		guard:    guard,
	}
}

// CreateLoanInput carries the fields accepted when registering a loan.
// PaidAmount imports history: installments covered by it are created
// already marked paid.
type CreateLoanInput struct {
	FamilyID       *int64
	BankName       string
	LoanType       string
	TotalAmount    decimal.Decimal
	MonthlyPayment decimal.Decimal
	PaidAmount     decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	GraceMonths    int
	DueDay         *int
}

func (s *LoanService) isSystemAdmin(userID int64) (bool, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	return user != nil && user.IsAdmin(), nil
}

// checkLoanAccess resolves whether the actor may perform perm on the loan
func (s *LoanService) checkLoanAccess(actorID int64, loan *models.Loan, perm permission.Permission) error {
	isAdmin, err := s.isSystemAdmin(actorID)
	if err != nil {
		return err
	}
	allowed, err := s.guard.CanAccessEntity(actorID, isAdmin, &loan.OwnerID, &loan.CreatedBy, loan.FamilyID, perm)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// checkFamilyScope resolves whether the actor holds perm within a family,
// for operations not anchored to an entity the actor might own
func (s *LoanService) checkFamilyScope(actorID int64, familyID *int64, perm permission.Permission) error {
	isAdmin, err := s.isSystemAdmin(actorID)
	if err != nil {
		return err
	}
	allowed, err := s.guard.CanAccessEntity(actorID, isAdmin, nil, nil, familyID, perm)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// CreateLoan registers a loan and materializes its installment schedule.
// If inserting the schedule fails the loan row is deleted again so a
// half-created loan never survives.
func (s *LoanService) CreateLoan(actorID int64, input CreateLoanInput) (*models.Loan, []models.Installment, error) {
	if err := validation.ValidateName(input.BankName); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateAmount("total amount", input.TotalAmount); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateAmount("monthly payment", input.MonthlyPayment); err != nil {
		return nil, nil, err
	}
	if input.PaidAmount.IsNegative() {
		return nil, nil, validation.ValidationError{Field: "paid amount", Message: "must not be negative"}
	}
	if err := validation.ValidateDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, nil, err
	}
	if input.DueDay != nil {
		if err := validation.ValidateDayOfMonth(*input.DueDay); err != nil {
			return nil, nil, err
		}
	}
	if input.GraceMonths < 0 {
		return nil, nil, validation.ValidationError{Field: "grace months", Message: "must not be negative"}
	}

	if input.FamilyID != nil {
		if err := s.checkFamilyScope(actorID, input.FamilyID, permission.CreateFinance); err != nil {
			return nil, nil, err
		}
	}

	installments := schedule.Generate(0, input.StartDate, input.EndDate, input.MonthlyPayment,
		input.DueDay, input.GraceMonths, input.PaidAmount)
	if len(installments) == 0 {
		return nil, nil, ErrEmptySchedule
	}

	// Aggregates derive from the materialized schedule, not the raw
	// PaidAmount input: a partial month rounds down to whole installments.
	paid := decimal.Zero
	unpaid := 0
	for _, inst := range installments {
		if inst.IsPaid {
			paid = paid.Add(inst.Amount)
		} else {
			unpaid++
		}
	}
	status := models.LoanActive
	if unpaid == 0 {
		status = models.LoanClosed
	}

	loan := &models.Loan{
		OwnerID:          actorID,
		CreatedBy:        actorID,
		FamilyID:         input.FamilyID,
		BankName:         input.BankName,
		LoanType:         input.LoanType,
		TotalAmount:      input.TotalAmount,
		MonthlyPayment:   input.MonthlyPayment,
		PaidAmount:       paid,
		RemainingBalance: input.TotalAmount.Sub(paid),
		Status:           status,
		StartDate:        input.StartDate,
		EndDate:          input.EndDate,
		GraceMonths:      input.GraceMonths,
		DueDay:           input.DueDay,
	}
	if loan.RemainingBalance.IsNegative() {
		loan.RemainingBalance = decimal.Zero
	}

	created, err := s.loanRepo.CreateLoan(loan)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create loan: %w", err)
	}

	for i := range installments {
		installments[i].LoanID = created.ID
	}
	if err := s.loanRepo.InsertInstallments(installments); err != nil {
		if derr := s.loanRepo.DeleteLoan(created.ID); derr != nil {
			return nil, nil, fmt.Errorf("failed to insert installments: %v (cleanup also failed: %w)", err, derr)
		}
		return nil, nil, fmt.Errorf("failed to insert installments: %w", err)
	}

	return created, installments, nil
}

// GetLoan returns a loan the actor may view
func (s *LoanService) GetLoan(actorID, loanID int64) (*models.Loan, error) {
	loan, err := s.loanRepo.GetLoanByID(loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	if err := s.checkLoanAccess(actorID, loan, permission.ViewFinance); err != nil {
		return nil, err
	}
	return loan, nil
}

// ListLoans returns the actor's own loans, plus a family's loans when the
// actor may view that family's finances
func (s *LoanService) ListLoans(actorID int64, familyID *int64) ([]models.Loan, error) {
	if familyID != nil {
		if err := s.checkFamilyScope(actorID, familyID, permission.ViewFinance); err != nil {
			return nil, err
		}
	}
	loans, err := s.loanRepo.ListLoans(actorID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// GetLoanSummary returns the loan with its installments and progress
func (s *LoanService) GetLoanSummary(actorID, loanID int64) (*models.Loan, []models.Installment, schedule.Summary, error) {
	loan, err := s.GetLoan(actorID, loanID)
	if err != nil {
		return nil, nil, schedule.Summary{}, err
	}
	installments, err := s.loanRepo.ListInstallments(loanID)
	if err != nil {
		return nil, nil, schedule.Summary{}, fmt.Errorf("failed to list installments: %w", err)
	}
	return loan, installments, schedule.Summarize(loan.TotalAmount, installments), nil
}

// MarkInstallmentPaid marks an installment paid and rolls the payment into
// the loan's aggregates in the same transaction. Paying the last open
// installment closes the loan.
func (s *LoanService) MarkInstallmentPaid(actorID, installmentID int64) (*models.Installment, *models.Loan, error) {
	inst, loan, err := s.installmentForUpdate(actorID, installmentID)
	if err != nil {
		return nil, nil, err
	}
	if inst.IsPaid {
		return nil, nil, ErrAlreadyPaid
	}

	unpaidOthers, err := s.loanRepo.CountUnpaidInstallments(loan.ID, inst.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count unpaid installments: %w", err)
	}

	totals := ledger.ApplyPayment(loanTotals(loan), inst.Amount, unpaidOthers == 0)
	now := time.Now()
	inst.IsPaid = true
	inst.PaidAt = &now
	applyTotals(loan, totals)

	if err := s.loanRepo.ApplyInstallmentUpdate(inst, loan); err != nil {
		return nil, nil, fmt.Errorf("failed to apply payment: %w", err)
	}
	return inst, loan, nil
}

// MarkInstallmentUnpaid reverts a paid installment. The loan reopens even
// when other installments remain paid.
func (s *LoanService) MarkInstallmentUnpaid(actorID, installmentID int64) (*models.Installment, *models.Loan, error) {
	inst, loan, err := s.installmentForUpdate(actorID, installmentID)
	if err != nil {
		return nil, nil, err
	}
	if !inst.IsPaid {
		return nil, nil, ErrNotPaid
	}

	totals := ledger.RevertPayment(loanTotals(loan), inst.Amount)
	inst.IsPaid = false
	inst.PaidAt = nil
	applyTotals(loan, totals)

	if err := s.loanRepo.ApplyInstallmentUpdate(inst, loan); err != nil {
		return nil, nil, fmt.Errorf("failed to revert payment: %w", err)
	}
	return inst, loan, nil
}

// UpdateInstallment edits an installment's amount and due date. Editing a
// paid installment shifts the loan's paid total by the difference; the
// loan status is not touched.
func (s *LoanService) UpdateInstallment(actorID, installmentID int64, amount decimal.Decimal, dueDate time.Time) (*models.Installment, *models.Loan, error) {
	if err := validation.ValidateAmount("amount", amount); err != nil {
		return nil, nil, err
	}

	inst, loan, err := s.installmentForUpdate(actorID, installmentID)
	if err != nil {
		return nil, nil, err
	}

	if inst.IsPaid {
		totals := ledger.ApplyAmountChange(loanTotals(loan), inst.Amount, amount)
		applyTotals(loan, totals)
	}
	inst.Amount = amount
	if !dueDate.IsZero() {
		inst.DueDate = dueDate
	}

	if err := s.loanRepo.ApplyInstallmentUpdate(inst, loan); err != nil {
		return nil, nil, fmt.Errorf("failed to update installment: %w", err)
	}
	return inst, loan, nil
}

// DeleteLoan removes a loan and its installments
func (s *LoanService) DeleteLoan(actorID, loanID int64) error {
	loan, err := s.loanRepo.GetLoanByID(loanID)
	if err != nil {
		return fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return ErrLoanNotFound
	}
	if err := s.checkLoanAccess(actorID, loan, permission.DeleteFinance); err != nil {
		return err
	}
	if err := s.loanRepo.DeleteLoan(loanID); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	return nil
}

// installmentForUpdate loads an installment with its loan and checks the
// actor holds edit access on the loan
func (s *LoanService) installmentForUpdate(actorID, installmentID int64) (*models.Installment, *models.Loan, error) {
	inst, err := s.loanRepo.GetInstallmentByID(installmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get installment: %w", err)
	}
	if inst == nil {
		return nil, nil, ErrInstallmentNotFound
	}

	loan, err := s.loanRepo.GetLoanByID(inst.LoanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, nil, ErrLoanNotFound
	}
	if err := s.checkLoanAccess(actorID, loan, permission.EditFinance); err != nil {
		return nil, nil, err
	}
	return inst, loan, nil
}

func loanTotals(loan *models.Loan) ledger.LoanTotals {
	return ledger.LoanTotals{
		TotalAmount:      loan.TotalAmount,
		PaidAmount:       loan.PaidAmount,
		RemainingBalance: loan.RemainingBalance,
		Status:           loan.Status,
	}
}

func applyTotals(loan *models.Loan, t ledger.LoanTotals) {
	loan.PaidAmount = t.PaidAmount
	loan.RemainingBalance = t.RemainingBalance
	loan.Status = t.Status
}
