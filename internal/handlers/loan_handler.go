package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/schedule"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

const dateLayout = "2006-01-02"

// LoanHandler handles loan and installment HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type createLoanRequest struct {
	FamilyID       *int64          `json:"family_id"`
	BankName       string          `json:"bank_name"`
	LoanType       string          `json:"loan_type"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	GraceMonths    int             `json:"grace_months"`
	DueDay         *int            `json:"due_day"`
}

type loanSummaryResponse struct {
	Loan         *models.Loan         `json:"loan"`
	Installments []models.Installment `json:"installments"`
	Summary      schedule.Summary     `json:"summary"`
}

// familyIDParam reads the optional family_id query parameter
func familyIDParam(r *http.Request) *int64 {
	raw := r.URL.Query().Get("family_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// CreateLoan registers a loan and its installment schedule
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	loan, installments, err := h.loanService.CreateLoan(user.ID, service.CreateLoanInput{
		FamilyID:       req.FamilyID,
		BankName:       req.BankName,
		LoanType:       req.LoanType,
		TotalAmount:    req.TotalAmount,
		MonthlyPayment: req.MonthlyPayment,
		PaidAmount:     req.PaidAmount,
		StartDate:      startDate,
		EndDate:        endDate,
		GraceMonths:    req.GraceMonths,
		DueDay:         req.DueDay,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loanSummaryResponse{
		Loan:         loan,
		Installments: installments,
		Summary:      schedule.Summarize(loan.TotalAmount, installments),
	})
}

// ListLoans returns the caller's loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	loans, err := h.loanService.ListLoans(user.ID, familyIDParam(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loans)
}

// GetLoan returns a loan with its installments and progress summary
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, installments, summary, err := h.loanService.GetLoanSummary(user.ID, loanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loanSummaryResponse{
		Loan:         loan,
		Installments: installments,
		Summary:      summary,
	})
}

// DeleteLoan removes a loan and its installments
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	loanID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	if err := h.loanService.DeleteLoan(user.ID, loanID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

type installmentUpdateResponse struct {
	Installment *models.Installment `json:"installment"`
	Loan        *models.Loan        `json:"loan"`
}

// MarkInstallmentPaid marks an installment paid
func (h *LoanHandler) MarkInstallmentPaid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	installmentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid installment id")
		return
	}

	inst, loan, err := h.loanService.MarkInstallmentPaid(user.ID, installmentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, installmentUpdateResponse{Installment: inst, Loan: loan})
}

// MarkInstallmentUnpaid reverts a paid installment
func (h *LoanHandler) MarkInstallmentUnpaid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	installmentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid installment id")
		return
	}

	inst, loan, err := h.loanService.MarkInstallmentUnpaid(user.ID, installmentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, installmentUpdateResponse{Installment: inst, Loan: loan})
}

// UpdateInstallment edits an installment's amount and due date
func (h *LoanHandler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	installmentID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid installment id")
		return
	}

	var req struct {
		Amount  decimal.Decimal `json:"amount"`
		DueDate string          `json:"due_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var dueDate time.Time
	if req.DueDate != "" {
		dueDate, err = time.Parse(dateLayout, req.DueDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid due_date, expected YYYY-MM-DD")
			return
		}
	}

	inst, loan, err := h.loanService.UpdateInstallment(user.ID, installmentID, req.Amount, dueDate)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, installmentUpdateResponse{Installment: inst, Loan: loan})
}
