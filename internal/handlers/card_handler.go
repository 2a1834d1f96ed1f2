package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

// CardHandler handles credit card HTTP requests
type CardHandler struct {
	cardService *service.CardService
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardService *service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// CreateCard registers a credit card
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		FamilyID *int64          `json:"family_id"`
		BankName string          `json:"bank_name"`
		Name     string          `json:"name"`
		Limit    decimal.Decimal `json:"limit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.cardService.CreateCard(user.ID, req.FamilyID, req.BankName, req.Name, req.Limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

// ListCards returns the caller's cards
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	cards, err := h.cardService.ListCards(user.ID, familyIDParam(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

// DeleteCard removes a card and its purchases
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	cardID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	if err := h.cardService.DeleteCard(user.ID, cardID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// CreatePurchase records an installment purchase on a card
func (h *CardHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	cardID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	var req struct {
		Description      string          `json:"description"`
		TotalAmount      decimal.Decimal `json:"total_amount"`
		InstallmentCount int             `json:"installment_count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	purchase, err := h.cardService.CreatePurchase(user.ID, cardID, req.Description, req.TotalAmount, req.InstallmentCount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, purchase)
}

// ListPurchases returns the purchases on a card
func (h *CardHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	cardID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	purchases, err := h.cardService.ListPurchases(user.ID, cardID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}

// PayPurchaseInstallment advances a purchase's paid counter
func (h *CardHandler) PayPurchaseInstallment(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	purchaseID, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	purchase, err := h.cardService.PayPurchaseInstallment(user.ID, purchaseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}
