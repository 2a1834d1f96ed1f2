package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateAmount checks that a money amount is strictly positive
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ValidationError{Field: field, Message: "amount must be positive"}
	}
	return nil
}

// ValidateDateRange checks that an end date falls strictly after a start date
func ValidateDateRange(start, end time.Time) error {
	if !end.After(start) {
		return ValidationError{Field: "end_date", Message: "end date must be after start date"}
	}
	return nil
}

// ValidateDayOfMonth checks a fixed due-day override
func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return ValidationError{Field: "due_day", Message: "day must be between 1 and 31"}
	}
	return nil
}
