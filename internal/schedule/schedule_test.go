package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDueDateMonthOverflow(t *testing.T) {
	start := date(2024, time.January, 31)

	tests := []struct {
		name        string
		monthOffset int
		want        time.Time
	}{
		{"offset 0 keeps anchor day", 0, date(2024, time.January, 31)},
		{"february clamps to leap day", 1, date(2024, time.February, 29)},
		{"march reverts to 31", 2, date(2024, time.March, 31)},
		{"april clamps to 30", 3, date(2024, time.April, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueDate(start, tt.monthOffset, nil)
			if !got.Equal(tt.want) {
				t.Errorf("DueDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueDateNonLeapFebruary(t *testing.T) {
	start := date(2023, time.January, 31)
	got := DueDate(start, 1, nil)
	want := date(2023, time.February, 28)
	if !got.Equal(want) {
		t.Errorf("DueDate() = %v, want %v", got, want)
	}
}

func TestDueDateFixedDay(t *testing.T) {
	start := date(2024, time.March, 5)
	fixedDay := 15

	got := DueDate(start, 2, &fixedDay)
	want := date(2024, time.May, 15)
	if !got.Equal(want) {
		t.Errorf("DueDate() = %v, want %v", got, want)
	}
}

func TestDueDateFixedDayClamped(t *testing.T) {
	start := date(2024, time.January, 5)
	fixedDay := 31

	got := DueDate(start, 3, &fixedDay)
	want := date(2024, time.April, 30)
	if !got.Equal(want) {
		t.Errorf("DueDate() = %v, want %v", got, want)
	}
}

func TestDueDateYearRollover(t *testing.T) {
	start := date(2024, time.November, 15)
	got := DueDate(start, 3, nil)
	want := date(2025, time.February, 15)
	if !got.Equal(want) {
		t.Errorf("DueDate() = %v, want %v", got, want)
	}
}

func TestGenerateBasicSchedule(t *testing.T) {
	start := date(2024, time.January, 10)
	end := date(2024, time.June, 30)
	monthly := decimal.NewFromInt(500)

	installments := Generate(1, start, end, monthly, nil, 0, decimal.Zero)

	if len(installments) != 6 {
		t.Fatalf("generated %d installments, want 6", len(installments))
	}
	for i, inst := range installments {
		if inst.InstallmentNumber != i+1 {
			t.Errorf("installment %d has number %d", i, inst.InstallmentNumber)
		}
		if inst.DueDate.After(end) {
			t.Errorf("installment %d due %v is after end %v", i, inst.DueDate, end)
		}
		if inst.IsPaid {
			t.Errorf("installment %d marked paid with zero paidAmount", i)
		}
		if !inst.Amount.Equal(monthly) {
			t.Errorf("installment %d amount = %v, want %v", i, inst.Amount, monthly)
		}
	}
}

func TestGenerateGracePeriod(t *testing.T) {
	start := date(2024, time.January, 10)
	end := date(2024, time.June, 30)
	monthly := decimal.NewFromInt(500)

	installments := Generate(1, start, end, monthly, nil, 2, decimal.Zero)

	if len(installments) != 4 {
		t.Fatalf("generated %d installments, want 4", len(installments))
	}
	if want := date(2024, time.March, 10); !installments[0].DueDate.Equal(want) {
		t.Errorf("first due date = %v, want %v", installments[0].DueDate, want)
	}
	// Numbering starts at 1 for the first generated installment, not at
	// graceMonths+1
	if installments[0].InstallmentNumber != 1 {
		t.Errorf("first installment number = %d, want 1", installments[0].InstallmentNumber)
	}
}

func TestGeneratePrePaidImport(t *testing.T) {
	start := date(2024, time.January, 1)
	end := date(2024, time.December, 31)
	monthly := decimal.NewFromInt(1000)
	paidAmount := decimal.NewFromInt(3000) // exactly 3 installments

	installments := Generate(1, start, end, monthly, nil, 0, paidAmount)

	if len(installments) != 12 {
		t.Fatalf("generated %d installments, want 12", len(installments))
	}
	for i, inst := range installments {
		wantPaid := i < 3
		if inst.IsPaid != wantPaid {
			t.Errorf("installment %d IsPaid = %v, want %v", i+1, inst.IsPaid, wantPaid)
		}
		if wantPaid && inst.PaidAt == nil {
			t.Errorf("installment %d missing PaidAt", i+1)
		}
		if !wantPaid && inst.PaidAt != nil {
			t.Errorf("installment %d has PaidAt but is unpaid", i+1)
		}
	}
}

func TestGeneratePartialPrePaidNeverMarksExtra(t *testing.T) {
	start := date(2024, time.January, 1)
	end := date(2024, time.December, 31)
	monthly := decimal.NewFromInt(1000)
	// 3.5 months' worth: still only 3 full installments covered
	paidAmount := decimal.NewFromInt(3500)

	installments := Generate(1, start, end, monthly, nil, 0, paidAmount)

	paidCount := 0
	for _, inst := range installments {
		if inst.IsPaid {
			paidCount++
		}
	}
	if paidCount != 3 {
		t.Errorf("paid count = %d, want 3", paidCount)
	}
}

func TestGenerateEndBeforeStart(t *testing.T) {
	start := date(2024, time.June, 1)
	end := date(2024, time.January, 1)

	installments := Generate(1, start, end, decimal.NewFromInt(100), nil, 0, decimal.Zero)
	if len(installments) != 0 {
		t.Errorf("generated %d installments for end < start, want 0", len(installments))
	}
}

func TestGenerateCeiling(t *testing.T) {
	start := date(2000, time.January, 1)
	end := date(2100, time.January, 1) // 1200 months

	installments := Generate(1, start, end, decimal.NewFromInt(100), nil, 0, decimal.Zero)
	if len(installments) != maxInstallments {
		t.Errorf("generated %d installments, want ceiling %d", len(installments), maxInstallments)
	}
	for _, inst := range installments {
		if inst.DueDate.After(end) {
			t.Fatalf("installment due %v is after end %v", inst.DueDate, end)
		}
	}
}

func TestGenerateDay31Series(t *testing.T) {
	start := date(2024, time.January, 31)
	end := date(2024, time.April, 30)

	installments := Generate(1, start, end, decimal.NewFromInt(250), nil, 0, decimal.Zero)

	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	if len(installments) != len(want) {
		t.Fatalf("generated %d installments, want %d", len(installments), len(want))
	}
	for i, w := range want {
		if !installments[i].DueDate.Equal(w) {
			t.Errorf("installment %d due = %v, want %v", i+1, installments[i].DueDate, w)
		}
	}
}
