package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// Urgency buckets for payment reminders
const (
	BucketOverdue  = "overdue"
	BucketDueToday = "due_today"
	BucketUpcoming = "upcoming"
)

// PaymentReminder is one upcoming obligation in a reminder digest
type PaymentReminder struct {
	BankName          string
	LoanType          string
	Amount            decimal.Decimal
	DueDate           time.Time
	DaysLeft          int
	InstallmentNumber int
}

// dueLister supplies unpaid installments within a horizon
type dueLister interface {
	ListDueInstallments(horizon time.Time) ([]models.Installment, []models.Loan, error)
}

// reminderMailer delivers a reminder digest to one payer
type reminderMailer interface {
	SendPaymentReminder(ctx context.Context, toEmail, toName string, buckets map[string][]PaymentReminder) error
}

// ReminderService builds and dispatches payment reminder digests
type ReminderService struct {
	loanRepo dueLister
	userRepo memberDirectory
	mailer   reminderMailer
	horizon  time.Duration
}

// NewReminderService creates a new reminder service. horizon bounds how
// far ahead an installment may be due and still appear in a digest.
func NewReminderService(loanRepo dueLister, userRepo memberDirectory, mailer reminderMailer, horizon time.Duration) *ReminderService {
	return &ReminderService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		mailer:   mailer,
		horizon:  horizon,
	}
}

// startOfDay truncates to local midnight so bucket boundaries follow
// calendar days, not 24-hour offsets from the run time.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// BucketFor classifies a due date relative to now
func BucketFor(now, due time.Time) string {
	today := startOfDay(now)
	dueDay := startOfDay(due)
	switch {
	case dueDay.Before(today):
		return BucketOverdue
	case dueDay.Equal(today):
		return BucketDueToday
	default:
		return BucketUpcoming
	}
}

// DaysUntil counts whole calendar days from now until due. Negative for
// overdue installments.
func DaysUntil(now, due time.Time) int {
	return int(startOfDay(due).Sub(startOfDay(now)).Hours() / 24)
}

// GroupReminders arranges due installments by payer, then by urgency
// bucket. Closed loans never appear since their installments are paid.
func GroupReminders(now time.Time, installments []models.Installment, loans []models.Loan) map[int64]map[string][]PaymentReminder {
	grouped := make(map[int64]map[string][]PaymentReminder)
	for i, inst := range installments {
		loan := loans[i]
		reminder := PaymentReminder{
			BankName:          loan.BankName,
			LoanType:          loan.LoanType,
			Amount:            inst.Amount,
			DueDate:           inst.DueDate,
			DaysLeft:          DaysUntil(now, inst.DueDate),
			InstallmentNumber: inst.InstallmentNumber,
		}
		buckets, ok := grouped[loan.OwnerID]
		if !ok {
			buckets = make(map[string][]PaymentReminder)
			grouped[loan.OwnerID] = buckets
		}
		bucket := BucketFor(now, inst.DueDate)
		buckets[bucket] = append(buckets[bucket], reminder)
	}
	return grouped
}

// Run builds one digest per payer and dispatches it. A failed send for
// one payer is logged and does not block the others. Returns the number
// of digests sent.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (int, error) {
	installments, loans, err := s.loanRepo.ListDueInstallments(now.Add(s.horizon))
	if err != nil {
		return 0, fmt.Errorf("failed to list due installments: %w", err)
	}
	if len(installments) == 0 {
		return 0, nil
	}

	grouped := GroupReminders(now, installments, loans)
	sent := 0
	for payerID, buckets := range grouped {
		user, err := s.userRepo.GetUserByID(payerID)
		if err != nil {
			log.Printf("Skipping reminder for user %d: %v", payerID, err)
			continue
		}
		if user == nil {
			log.Printf("Skipping reminder for user %d: user not found", payerID)
			continue
		}
		if err := s.mailer.SendPaymentReminder(ctx, user.Email, user.Name, buckets); err != nil {
			log.Printf("Failed to send payment reminder to %s: %v", user.Email, err)
			continue
		}
		sent++
	}
	return sent, nil
}
