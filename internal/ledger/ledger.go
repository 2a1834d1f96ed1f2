package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// LoanTotals is the cached aggregate state of a loan: the sum of its paid
// installments, the balance left against the total, and whether the loan is
// still open. Transitions here are pure; the repository applies the result
// in the same transaction as the installment write.
type LoanTotals struct {
	TotalAmount      decimal.Decimal
	PaidAmount       decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           string
}

// ApplyPayment records an installment of the given amount being marked paid.
// allPaid must reflect the installment set after this payment; when true the
// loan auto-closes.
func ApplyPayment(t LoanTotals, amount decimal.Decimal, allPaid bool) LoanTotals {
	t.PaidAmount = t.PaidAmount.Add(amount)
	t.RemainingBalance = floorZero(t.TotalAmount.Sub(t.PaidAmount))
	if allPaid {
		t.Status = models.LoanClosed
	}
	return t
}

// RevertPayment records an installment of the given amount being marked
// unpaid. Reverting any installment reopens the loan unconditionally, even
// one that wasn't the closing payment.
func RevertPayment(t LoanTotals, amount decimal.Decimal) LoanTotals {
	t.PaidAmount = floorZero(t.PaidAmount.Sub(amount))
	t.RemainingBalance = floorZero(t.TotalAmount.Sub(t.PaidAmount))
	t.Status = models.LoanActive
	return t
}

// ApplyAmountChange records an already-paid installment's amount being
// edited. The paid total shifts by the difference; the status is left alone
// on a plain amount edit.
func ApplyAmountChange(t LoanTotals, oldAmount, newAmount decimal.Decimal) LoanTotals {
	t.PaidAmount = floorZero(t.PaidAmount.Add(newAmount.Sub(oldAmount)))
	t.RemainingBalance = floorZero(t.TotalAmount.Sub(t.PaidAmount))
	return t
}

// AdvancePurchase pays one installment unit of a card purchase. Returns the
// new paid count and whether the purchase is now complete. There is no
// reverse operation for card purchases; loan installments are the only
// two-way toggle.
func AdvancePurchase(paidInstallments, installmentCount int) (int, bool) {
	paidInstallments++
	return paidInstallments, paidInstallments >= installmentCount
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
