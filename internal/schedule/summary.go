package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// Summary aggregates a loan's installments into display totals
type Summary struct {
	PaidAmount       decimal.Decimal
	RemainingBalance decimal.Decimal
	PaidPercentage   int
	NextPayment      *models.Installment // earliest unpaid, nil when fully paid
}

// Summarize computes the summary for a loan's installment set. The paid
// percentage is rounded and clamped to 0-100, and reported as 0 whenever the
// total is not positive.
func Summarize(totalAmount decimal.Decimal, installments []models.Installment) Summary {
	paid := decimal.Zero
	var next *models.Installment

	for i := range installments {
		inst := &installments[i]
		if inst.IsPaid {
			paid = paid.Add(inst.Amount)
			continue
		}
		if next == nil || inst.DueDate.Before(next.DueDate) {
			next = inst
		}
	}

	remaining := totalAmount.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	percentage := 0
	if totalAmount.IsPositive() {
		percentage = int(paid.Div(totalAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		if percentage < 0 {
			percentage = 0
		}
		if percentage > 100 {
			percentage = 100
		}
	}

	var nextCopy *models.Installment
	if next != nil {
		c := *next
		nextCopy = &c
	}

	return Summary{
		PaidAmount:       paid,
		RemainingBalance: remaining,
		PaidPercentage:   percentage,
		NextPayment:      nextCopy,
	}
}
