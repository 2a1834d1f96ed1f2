package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// maxInstallments caps schedule generation so malformed inputs (an end date
// before the start, a far-future end) can never produce a runaway schedule.
const maxInstallments = 600

// DueDate computes the due date at the given month offset from the anchor
// start date. The target day is the fixed day-of-month override when set,
// otherwise the anchor's day, clamped to the length of the target month so a
// day-31 anchor lands on the 28th/29th/30th in shorter months.
func DueDate(start time.Time, monthOffset int, fixedDay *int) time.Time {
	targetDay := start.Day()
	if fixedDay != nil {
		targetDay = *fixedDay
	}

	// time.Date normalizes month overflow, so month+offset with day 1 is
	// always the first of the intended month
	firstOfMonth := time.Date(start.Year(), start.Month()+time.Month(monthOffset), 1, 0, 0, 0, 0, start.Location())

	if days := daysInMonth(firstOfMonth); targetDay > days {
		targetDay = days
	}

	return firstOfMonth.AddDate(0, 0, targetDay-1)
}

// daysInMonth returns the number of days in t's month
func daysInMonth(t time.Time) int {
	// day 0 of the next month is the last day of this month
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// Generate materializes the installment schedule for a loan. Installments are
// due monthly starting graceMonths after the start date and stop once the due
// date passes end (exclusive). When paidAmount is positive, leading
// installments are pre-marked paid while a running total of monthly payments
// still fits inside it, which lets partially-paid legacy loans be imported
// with a single cumulative figure. Pre-paid installments get their due date
// as the paid timestamp. Numbering is 1-based over generated installments.
func Generate(loanID int64, start, end time.Time, monthlyPayment decimal.Decimal, fixedDay *int, graceMonths int, paidAmount decimal.Decimal) []models.Installment {
	var installments []models.Installment
	cumulativePaid := decimal.Zero

	for i := 0; i < maxInstallments; i++ {
		dueDate := DueDate(start, graceMonths+i, fixedDay)
		if dueDate.After(end) {
			break
		}

		installment := models.Installment{
			LoanID:            loanID,
			InstallmentNumber: i + 1,
			DueDate:           dueDate,
			Amount:            monthlyPayment,
		}

		if cumulativePaid.Add(monthlyPayment).LessThanOrEqual(paidAmount) {
			cumulativePaid = cumulativePaid.Add(monthlyPayment)
			paidAt := dueDate
			installment.IsPaid = true
			installment.PaidAt = &paidAt
		}

		installments = append(installments, installment)
	}

	return installments
}
