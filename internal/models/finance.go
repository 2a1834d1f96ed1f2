package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan statuses
const (
	LoanActive = "active"
	LoanClosed = "closed"
)

// BankAccount is a personal or family-scoped bank account
type BankAccount struct {
	ID        int64
	OwnerID   int64
	FamilyID  *int64 // nil for personal accounts
	BankName  string
	Name      string
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Loan is an amortized loan paid down through monthly installments.
// PaidAmount, RemainingBalance and Status are cached aggregates over the
// loan's installments and are recomputed whenever an installment changes.
type Loan struct {
	ID               int64
	OwnerID          int64
	CreatedBy        int64 // who entered the record; may differ from the payer
	FamilyID         *int64
	BankName         string
	LoanType         string
	TotalAmount      decimal.Decimal
	MonthlyPayment   decimal.Decimal
	PaidAmount       decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           string // 'active' or 'closed'
	StartDate        time.Time
	EndDate          time.Time
	GraceMonths      int
	DueDay           *int // fixed day-of-month override, nil uses StartDate's day
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Installment is one scheduled payment obligation under a loan
type Installment struct {
	ID                int64
	LoanID            int64
	InstallmentNumber int
	DueDate           time.Time
	Amount            decimal.Decimal
	IsPaid            bool
	PaidAt            *time.Time
}

// CreditCard is a personal or family-scoped credit card
type CreditCard struct {
	ID        int64
	OwnerID   int64
	CreatedBy int64
	FamilyID  *int64
	BankName  string
	Name      string
	Limit     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CardPurchase is a credit card purchase paid down in installment units.
// Unlike loan installments it tracks a paid counter rather than per-row
// paid flags.
type CardPurchase struct {
	ID               int64
	CardID           int64
	Description      string
	TotalAmount      decimal.Decimal
	MonthlyAmount    decimal.Decimal
	InstallmentCount int
	PaidInstallments int
	IsCompleted      bool
	PurchasedAt      time.Time
	CreatedAt        time.Time
}
