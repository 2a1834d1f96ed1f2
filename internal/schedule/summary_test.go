package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

func TestSummarize(t *testing.T) {
	installments := []models.Installment{
		{InstallmentNumber: 1, DueDate: date(2024, time.January, 15), Amount: decimal.NewFromInt(500), IsPaid: true},
		{InstallmentNumber: 2, DueDate: date(2024, time.February, 15), Amount: decimal.NewFromInt(500), IsPaid: true},
		{InstallmentNumber: 3, DueDate: date(2024, time.March, 15), Amount: decimal.NewFromInt(500)},
		{InstallmentNumber: 4, DueDate: date(2024, time.April, 15), Amount: decimal.NewFromInt(500)},
	}

	summary := Summarize(decimal.NewFromInt(2000), installments)

	if !summary.PaidAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("PaidAmount = %v, want 1000", summary.PaidAmount)
	}
	if !summary.RemainingBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("RemainingBalance = %v, want 1000", summary.RemainingBalance)
	}
	if summary.PaidPercentage != 50 {
		t.Errorf("PaidPercentage = %d, want 50", summary.PaidPercentage)
	}
	if summary.NextPayment == nil || summary.NextPayment.InstallmentNumber != 3 {
		t.Errorf("NextPayment = %+v, want installment 3", summary.NextPayment)
	}
}

func TestSummarizeNextPaymentByDueDate(t *testing.T) {
	// Unordered input: the earliest unpaid due date wins, not slice order
	installments := []models.Installment{
		{InstallmentNumber: 3, DueDate: date(2024, time.March, 1), Amount: decimal.NewFromInt(100)},
		{InstallmentNumber: 1, DueDate: date(2024, time.January, 1), Amount: decimal.NewFromInt(100)},
		{InstallmentNumber: 2, DueDate: date(2024, time.February, 1), Amount: decimal.NewFromInt(100), IsPaid: true},
	}

	summary := Summarize(decimal.NewFromInt(300), installments)

	if summary.NextPayment == nil || summary.NextPayment.InstallmentNumber != 1 {
		t.Errorf("NextPayment = %+v, want installment 1", summary.NextPayment)
	}
}

func TestSummarizeAllPaid(t *testing.T) {
	installments := []models.Installment{
		{InstallmentNumber: 1, DueDate: date(2024, time.January, 1), Amount: decimal.NewFromInt(100), IsPaid: true},
		{InstallmentNumber: 2, DueDate: date(2024, time.February, 1), Amount: decimal.NewFromInt(100), IsPaid: true},
	}

	summary := Summarize(decimal.NewFromInt(200), installments)

	if summary.NextPayment != nil {
		t.Errorf("NextPayment = %+v, want nil", summary.NextPayment)
	}
	if summary.PaidPercentage != 100 {
		t.Errorf("PaidPercentage = %d, want 100", summary.PaidPercentage)
	}
	if !summary.RemainingBalance.IsZero() {
		t.Errorf("RemainingBalance = %v, want 0", summary.RemainingBalance)
	}
}

func TestSummarizeEdgeCases(t *testing.T) {
	tests := []struct {
		name           string
		total          decimal.Decimal
		installments   []models.Installment
		wantPercentage int
		wantRemaining  decimal.Decimal
	}{
		{
			name:           "zero total",
			total:          decimal.Zero,
			installments:   []models.Installment{{Amount: decimal.NewFromInt(100), IsPaid: true}},
			wantPercentage: 0,
			wantRemaining:  decimal.Zero,
		},
		{
			name:           "negative total",
			total:          decimal.NewFromInt(-50),
			installments:   nil,
			wantPercentage: 0,
			wantRemaining:  decimal.Zero,
		},
		{
			name:  "overpaid clamps",
			total: decimal.NewFromInt(100),
			installments: []models.Installment{
				{Amount: decimal.NewFromInt(150), IsPaid: true},
			},
			wantPercentage: 100,
			wantRemaining:  decimal.Zero,
		},
		{
			name:           "no installments",
			total:          decimal.NewFromInt(100),
			installments:   nil,
			wantPercentage: 0,
			wantRemaining:  decimal.NewFromInt(100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Summarize(tt.total, tt.installments)
			if summary.PaidPercentage != tt.wantPercentage {
				t.Errorf("PaidPercentage = %d, want %d", summary.PaidPercentage, tt.wantPercentage)
			}
			if !summary.RemainingBalance.Equal(tt.wantRemaining) {
				t.Errorf("RemainingBalance = %v, want %v", summary.RemainingBalance, tt.wantRemaining)
			}
		})
	}
}
