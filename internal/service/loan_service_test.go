package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
)

// fakeLoanStore is an in-memory loanStore
type fakeLoanStore struct {
	loans        map[int64]*models.Loan
	installments map[int64]*models.Installment
	nextLoanID   int64
	nextInstID   int64
	failInsert   bool
	deletedLoans []int64
}

func newFakeLoanStore() *fakeLoanStore {
	return &fakeLoanStore{
		loans:        make(map[int64]*models.Loan),
		installments: make(map[int64]*models.Installment),
		nextLoanID:   1,
		nextInstID:   1,
	}
}

func (f *fakeLoanStore) CreateLoan(loan *models.Loan) (*models.Loan, error) {
	copied := *loan
	copied.ID = f.nextLoanID
	f.nextLoanID++
	f.loans[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeLoanStore) GetLoanByID(id int64) (*models.Loan, error) {
	loan := f.loans[id]
	if loan == nil {
		return nil, nil
	}
	copied := *loan
	return &copied, nil
}

func (f *fakeLoanStore) ListLoans(userID int64, familyID *int64) ([]models.Loan, error) {
	var out []models.Loan
	for _, loan := range f.loans {
		inFamily := familyID != nil && loan.FamilyID != nil && *loan.FamilyID == *familyID
		if loan.OwnerID == userID || inFamily {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) DeleteLoan(id int64) error {
	delete(f.loans, id)
	for instID, inst := range f.installments {
		if inst.LoanID == id {
			delete(f.installments, instID)
		}
	}
	f.deletedLoans = append(f.deletedLoans, id)
	return nil
}

func (f *fakeLoanStore) InsertInstallments(installments []models.Installment) error {
	if f.failInsert {
		return errors.New("insert failed")
	}
	for i := range installments {
		installments[i].ID = f.nextInstID
		f.nextInstID++
		copied := installments[i]
		f.installments[copied.ID] = &copied
	}
	return nil
}

func (f *fakeLoanStore) GetInstallmentByID(id int64) (*models.Installment, error) {
	inst := f.installments[id]
	if inst == nil {
		return nil, nil
	}
	copied := *inst
	return &copied, nil
}

func (f *fakeLoanStore) ListInstallments(loanID int64) ([]models.Installment, error) {
	var out []models.Installment
	for _, inst := range f.installments {
		if inst.LoanID == loanID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeLoanStore) CountUnpaidInstallments(loanID, excludeID int64) (int, error) {
	count := 0
	for _, inst := range f.installments {
		if inst.LoanID == loanID && !inst.IsPaid && inst.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLoanStore) ApplyInstallmentUpdate(inst *models.Installment, loan *models.Loan) error {
	instCopy := *inst
	loanCopy := *loan
	f.installments[inst.ID] = &instCopy
	f.loans[loan.ID] = &loanCopy
	return nil
}

func newLoanService(store *fakeLoanStore) *LoanService {
	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Email: "payer@example.com", Role: models.RoleMember},
	}}
	return NewLoanService(store, users, permission.NewGuard(allowAllEvaluator{}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func basicLoanInput() CreateLoanInput {
	return CreateLoanInput{
		BankName:       "Ziraat",
		LoanType:       "consumer",
		TotalAmount:    dec("12000"),
		MonthlyPayment: dec("1000"),
		StartDate:      time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, time.December, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateLoanMaterializesSchedule(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	loan, installments, err := svc.CreateLoan(1, basicLoanInput())
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}
	if len(installments) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(installments))
	}
	if loan.Status != models.LoanActive {
		t.Errorf("expected active status, got %q", loan.Status)
	}
	if !loan.PaidAmount.IsZero() {
		t.Errorf("expected zero paid amount, got %s", loan.PaidAmount)
	}
	if !loan.RemainingBalance.Equal(dec("12000")) {
		t.Errorf("expected full remaining balance, got %s", loan.RemainingBalance)
	}
	for _, inst := range installments {
		if inst.LoanID != loan.ID {
			t.Fatalf("installment not linked to created loan: %+v", inst)
		}
	}
}

func TestCreateLoanImportsPaidHistory(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	input := basicLoanInput()
	input.PaidAmount = dec("3500")

	loan, installments, err := svc.CreateLoan(1, input)
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}

	paid := 0
	for _, inst := range installments {
		if inst.IsPaid {
			paid++
		}
	}
	// 3500 covers three whole 1000-unit installments; the partial 500
	// never marks a fourth.
	if paid != 3 {
		t.Errorf("expected 3 pre-paid installments, got %d", paid)
	}
	if !loan.PaidAmount.Equal(dec("3000")) {
		t.Errorf("paid aggregate should match marked installments, got %s", loan.PaidAmount)
	}
	if !loan.RemainingBalance.Equal(dec("9000")) {
		t.Errorf("expected remaining 9000, got %s", loan.RemainingBalance)
	}
}

func TestCreateLoanCompensatesOnInsertFailure(t *testing.T) {
	store := newFakeLoanStore()
	store.failInsert = true
	svc := newLoanService(store)

	if _, _, err := svc.CreateLoan(1, basicLoanInput()); err == nil {
		t.Fatal("expected error from failed installment insert")
	}
	if len(store.deletedLoans) != 1 {
		t.Errorf("half-created loan should be deleted, deletions: %v", store.deletedLoans)
	}
	if len(store.loans) != 0 {
		t.Errorf("no loan row should survive, got %d", len(store.loans))
	}
}

func TestCreateLoanValidation(t *testing.T) {
	svc := newLoanService(newFakeLoanStore())

	tests := []struct {
		name   string
		mutate func(*CreateLoanInput)
	}{
		{"zero total", func(in *CreateLoanInput) { in.TotalAmount = decimal.Zero }},
		{"negative monthly", func(in *CreateLoanInput) { in.MonthlyPayment = dec("-1") }},
		{"end before start", func(in *CreateLoanInput) { in.EndDate = in.StartDate.AddDate(-1, 0, 0) }},
		{"negative paid", func(in *CreateLoanInput) { in.PaidAmount = dec("-100") }},
		{"negative grace", func(in *CreateLoanInput) { in.GraceMonths = -1 }},
		{"bad due day", func(in *CreateLoanInput) { day := 32; in.DueDay = &day }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := basicLoanInput()
			tt.mutate(&input)
			if _, _, err := svc.CreateLoan(1, input); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMarkInstallmentPaid(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	input := basicLoanInput()
	input.EndDate = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	input.TotalAmount = dec("3000")
	loan, installments, err := svc.CreateLoan(1, input)
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}
	if len(installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(installments))
	}

	inst, updated, err := svc.MarkInstallmentPaid(1, installments[0].ID)
	if err != nil {
		t.Fatalf("MarkInstallmentPaid returned error: %v", err)
	}
	if !inst.IsPaid || inst.PaidAt == nil {
		t.Error("installment should be paid with a timestamp")
	}
	if !updated.PaidAmount.Equal(dec("1000")) {
		t.Errorf("expected paid 1000, got %s", updated.PaidAmount)
	}
	if updated.Status != models.LoanActive {
		t.Errorf("loan should stay active with unpaid installments, got %q", updated.Status)
	}

	if _, _, err := svc.MarkInstallmentPaid(1, installments[0].ID); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid, got %v", err)
	}

	// Pay the rest; the final payment closes the loan.
	if _, _, err := svc.MarkInstallmentPaid(1, installments[1].ID); err != nil {
		t.Fatalf("second payment returned error: %v", err)
	}
	_, closed, err := svc.MarkInstallmentPaid(1, installments[2].ID)
	if err != nil {
		t.Fatalf("final payment returned error: %v", err)
	}
	if closed.Status != models.LoanClosed {
		t.Errorf("loan should close on final payment, got %q", closed.Status)
	}
	if !closed.RemainingBalance.IsZero() {
		t.Errorf("expected zero balance on closed loan, got %s", closed.RemainingBalance)
	}
	_ = loan
}

func TestMarkInstallmentUnpaidReopens(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	input := basicLoanInput()
	input.EndDate = time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	input.TotalAmount = dec("2000")
	_, installments, err := svc.CreateLoan(1, input)
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}

	if _, _, err := svc.MarkInstallmentUnpaid(1, installments[0].ID); !errors.Is(err, ErrNotPaid) {
		t.Errorf("expected ErrNotPaid, got %v", err)
	}

	svc.MarkInstallmentPaid(1, installments[0].ID)
	_, closed, err := svc.MarkInstallmentPaid(1, installments[1].ID)
	if err != nil {
		t.Fatalf("payment returned error: %v", err)
	}
	if closed.Status != models.LoanClosed {
		t.Fatalf("expected closed loan, got %q", closed.Status)
	}

	// Reverting the first installment, not the closing one, still reopens.
	inst, reopened, err := svc.MarkInstallmentUnpaid(1, installments[0].ID)
	if err != nil {
		t.Fatalf("MarkInstallmentUnpaid returned error: %v", err)
	}
	if inst.IsPaid || inst.PaidAt != nil {
		t.Error("installment should be unpaid with no timestamp")
	}
	if reopened.Status != models.LoanActive {
		t.Errorf("loan should reopen, got %q", reopened.Status)
	}
	if !reopened.PaidAmount.Equal(dec("1000")) {
		t.Errorf("expected paid 1000 after revert, got %s", reopened.PaidAmount)
	}
}

func TestUpdateInstallment(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	input := basicLoanInput()
	input.EndDate = time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	input.TotalAmount = dec("2000")
	_, installments, err := svc.CreateLoan(1, input)
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}

	// Editing an unpaid installment leaves the aggregates alone.
	_, loan, err := svc.UpdateInstallment(1, installments[0].ID, dec("1200"), time.Time{})
	if err != nil {
		t.Fatalf("UpdateInstallment returned error: %v", err)
	}
	if !loan.PaidAmount.IsZero() {
		t.Errorf("unpaid edit should not move the paid total, got %s", loan.PaidAmount)
	}

	// Pay it, then change the amount: the paid total shifts by the diff.
	svc.MarkInstallmentPaid(1, installments[0].ID)
	_, loan, err = svc.UpdateInstallment(1, installments[0].ID, dec("900"), time.Time{})
	if err != nil {
		t.Fatalf("UpdateInstallment returned error: %v", err)
	}
	if !loan.PaidAmount.Equal(dec("900")) {
		t.Errorf("expected paid total 900 after amount change, got %s", loan.PaidAmount)
	}
	if loan.Status != models.LoanActive {
		t.Errorf("amount edit should not touch status, got %q", loan.Status)
	}

	if _, _, err := svc.UpdateInstallment(1, installments[0].ID, decimal.Zero, time.Time{}); err == nil {
		t.Error("expected validation error for zero amount")
	}
}

func TestLoanAccessDenied(t *testing.T) {
	store := newFakeLoanStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Role: models.RoleMember},
		2: {ID: 2, Role: models.RoleMember},
	}}
	guard := permission.NewGuard(denyAllEvaluator{})
	svc := NewLoanService(store, users, guard)

	famID := int64(7)
	loan, _ := store.CreateLoan(&models.Loan{
		OwnerID: 1, CreatedBy: 1, FamilyID: &famID,
		TotalAmount: dec("1000"), Status: models.LoanActive,
	})

	// Owner passes the ownership branch regardless of the evaluator.
	if _, err := svc.GetLoan(1, loan.ID); err != nil {
		t.Errorf("owner should read own loan, got %v", err)
	}

	// A stranger is pushed to the family check, which denies.
	if _, err := svc.GetLoan(2, loan.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestListLoansFamilyScope(t *testing.T) {
	store := newFakeLoanStore()
	famID := int64(9)
	store.CreateLoan(&models.Loan{
		OwnerID: 1, CreatedBy: 1, FamilyID: &famID,
		TotalAmount: dec("1000"), Status: models.LoanActive,
	})

	users := &fakeDirectory{users: map[int64]*models.User{
		1: {ID: 1, Role: models.RoleMember},
		2: {ID: 2, Role: models.RoleMember},
	}}

	// A stranger asking for the family's loans is refused before the
	// store is ever consulted.
	denied := NewLoanService(store, users, permission.NewGuard(denyAllEvaluator{}))
	if _, err := denied.ListLoans(2, &famID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	// Without a family filter the same caller only sees their own rows.
	loans, err := denied.ListLoans(2, nil)
	if err != nil {
		t.Fatalf("ListLoans returned error: %v", err)
	}
	if len(loans) != 0 {
		t.Errorf("stranger should see no loans, got %d", len(loans))
	}

	// A member the evaluator approves does see the family rows.
	allowed := NewLoanService(store, users, permission.NewGuard(allowAllEvaluator{}))
	loans, err = allowed.ListLoans(2, &famID)
	if err != nil {
		t.Fatalf("ListLoans returned error: %v", err)
	}
	if len(loans) != 1 {
		t.Errorf("expected 1 family loan, got %d", len(loans))
	}
}

func TestCreateLoanFamilyScope(t *testing.T) {
	store := newFakeLoanStore()
	users := &fakeDirectory{users: map[int64]*models.User{
		2: {ID: 2, Role: models.RoleMember},
		3: {ID: 3, Role: models.RoleAdmin},
	}}
	svc := NewLoanService(store, users, permission.NewGuard(denyAllEvaluator{}))

	famID := int64(9)
	input := basicLoanInput()
	input.FamilyID = &famID

	if _, _, err := svc.CreateLoan(2, input); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for plain member, got %v", err)
	}

	// A system admin bypasses the family permission check entirely.
	if _, _, err := svc.CreateLoan(3, input); err != nil {
		t.Errorf("admin create should succeed, got %v", err)
	}
}

func TestGetLoanSummary(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	input := basicLoanInput()
	input.PaidAmount = dec("2000")
	created, _, err := svc.CreateLoan(1, input)
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}

	loan, installments, summary, err := svc.GetLoanSummary(1, created.ID)
	if err != nil {
		t.Fatalf("GetLoanSummary returned error: %v", err)
	}
	if len(installments) != 12 {
		t.Errorf("expected 12 installments, got %d", len(installments))
	}
	if !summary.PaidAmount.Equal(dec("2000")) {
		t.Errorf("expected summary paid 2000, got %s", summary.PaidAmount)
	}
	if summary.NextPayment == nil || summary.NextPayment.InstallmentNumber != 3 {
		t.Errorf("expected next payment to be installment 3, got %+v", summary.NextPayment)
	}
	_ = loan
}

func TestDeleteLoan(t *testing.T) {
	store := newFakeLoanStore()
	svc := newLoanService(store)

	created, _, err := svc.CreateLoan(1, basicLoanInput())
	if err != nil {
		t.Fatalf("CreateLoan returned error: %v", err)
	}
	if err := svc.DeleteLoan(1, created.ID); err != nil {
		t.Fatalf("DeleteLoan returned error: %v", err)
	}
	if err := svc.DeleteLoan(1, created.ID); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound, got %v", err)
	}
	if len(store.installments) != 0 {
		t.Errorf("installments should be gone with the loan, %d remain", len(store.installments))
	}
}
