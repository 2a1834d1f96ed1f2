package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

// AccountHandler handles bank account HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

type accountRequest struct {
	FamilyID *int64          `json:"family_id"`
	BankName string          `json:"bank_name"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// CreateAccount registers a bank account
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accountService.CreateAccount(user.ID, req.FamilyID, req.BankName, req.Name, req.Currency, req.Balance)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// ListAccounts returns the caller's accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	accounts, err := h.accountService.ListAccounts(user.ID, familyIDParam(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// GetAccount returns one account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	accountID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.accountService.GetAccount(user.ID, accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// UpdateAccount edits an account
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	accountID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accountService.UpdateAccount(user.ID, accountID, req.BankName, req.Name, req.Balance)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// DeleteAccount removes an account
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	accountID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.accountService.DeleteAccount(user.ID, accountID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
