package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/ledger"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/validation"
)

var (
	ErrCardNotFound      = errors.New("credit card not found")
	ErrPurchaseNotFound  = errors.New("card purchase not found")
	ErrPurchaseCompleted = errors.New("card purchase is already completed")
)

// cardStore is the card and purchase persistence needed by CardService
type cardStore interface {
	CreateCard(card *models.CreditCard) (*models.CreditCard, error)
	GetCardByID(id int64) (*models.CreditCard, error)
	ListCards(userID int64, familyID *int64) ([]models.CreditCard, error)
	DeleteCard(id int64) error
	CreatePurchase(purchase *models.CardPurchase) (*models.CardPurchase, error)
	GetPurchaseByID(id int64) (*models.CardPurchase, error)
	ListPurchases(cardID int64) ([]models.CardPurchase, error)
	UpdatePurchaseProgress(id int64, paidInstallments int, isCompleted bool) error
}

// CardService handles credit cards and their installment purchases
type CardService struct {
	cardRepo cardStore
	userRepo memberDirectory
	guard    *permission.Guard
}

// NewCardService creates a new card service
func NewCardService(cardRepo cardStore, userRepo memberDirectory, guard *permission.Guard) *CardService {
	return &CardService{
		cardRepo: cardRepo,
		userRepo: userRepo,
		guard:    guard,
	}
}

func (s *CardService) checkCardAccess(actorID int64, card *models.CreditCard, perm permission.Permission) error {
	user, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	isAdmin := user != nil && user.IsAdmin()
	allowed, err := s.guard.CanAccessEntity(actorID, isAdmin, &card.OwnerID, &card.CreatedBy, card.FamilyID, perm)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// checkFamilyScope resolves whether the actor holds perm within a family,
// for operations not anchored to an entity the actor might own
func (s *CardService) checkFamilyScope(actorID int64, familyID *int64, perm permission.Permission) error {
	user, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	isAdmin := user != nil && user.IsAdmin()
	allowed, err := s.guard.CanAccessEntity(actorID, isAdmin, nil, nil, familyID, perm)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

// CreateCard registers a credit card owned by the actor
func (s *CardService) CreateCard(actorID int64, familyID *int64, bankName, name string, limit decimal.Decimal) (*models.CreditCard, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if limit.IsNegative() {
		return nil, validation.ValidationError{Field: "limit", Message: "must not be negative"}
	}

	if familyID != nil {
		if err := s.checkFamilyScope(actorID, familyID, permission.CreateFinance); err != nil {
			return nil, err
		}
	}

	card := &models.CreditCard{
		OwnerID:   actorID,
		CreatedBy: actorID,
		FamilyID:  familyID,
		BankName:  bankName,
		Name:      name,
		Limit:     limit,
	}
	created, err := s.cardRepo.CreateCard(card)
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	return created, nil
}

// ListCards returns the actor's own cards, plus a family's cards when the
// actor may view that family's finances
func (s *CardService) ListCards(actorID int64, familyID *int64) ([]models.CreditCard, error) {
	if familyID != nil {
		if err := s.checkFamilyScope(actorID, familyID, permission.ViewFinance); err != nil {
			return nil, err
		}
	}
	cards, err := s.cardRepo.ListCards(actorID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card and its purchases
func (s *CardService) DeleteCard(actorID, cardID int64) error {
	card, err := s.cardRepo.GetCardByID(cardID)
	if err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}
	if card == nil {
		return ErrCardNotFound
	}
	if err := s.checkCardAccess(actorID, card, permission.DeleteFinance); err != nil {
		return err
	}
	if err := s.cardRepo.DeleteCard(cardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// CreatePurchase records an installment purchase on a card
func (s *CardService) CreatePurchase(actorID, cardID int64, description string, totalAmount decimal.Decimal, installmentCount int) (*models.CardPurchase, error) {
	if description == "" {
		return nil, validation.ValidationError{Field: "description", Message: "description is required"}
	}
	if err := validation.ValidateAmount("total amount", totalAmount); err != nil {
		return nil, err
	}
	if installmentCount < 1 {
		return nil, validation.ValidationError{Field: "installment count", Message: "must be at least 1"}
	}

	card, err := s.cardRepo.GetCardByID(cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if err := s.checkCardAccess(actorID, card, permission.CreateFinance); err != nil {
		return nil, err
	}

	purchase := &models.CardPurchase{
		CardID:           cardID,
		Description:      description,
		TotalAmount:      totalAmount,
		MonthlyAmount:    totalAmount.DivRound(decimal.NewFromInt(int64(installmentCount)), 2),
		InstallmentCount: installmentCount,
	}
	created, err := s.cardRepo.CreatePurchase(purchase)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}
	return created, nil
}

// ListPurchases returns the purchases on a card the actor may view
func (s *CardService) ListPurchases(actorID, cardID int64) ([]models.CardPurchase, error) {
	card, err := s.cardRepo.GetCardByID(cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if err := s.checkCardAccess(actorID, card, permission.ViewFinance); err != nil {
		return nil, err
	}
	purchases, err := s.cardRepo.ListPurchases(cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

// PayPurchaseInstallment advances a purchase's paid counter by one unit.
// The counter only moves forward; a purchase payment cannot be reverted
// the way a loan installment can.
func (s *CardService) PayPurchaseInstallment(actorID, purchaseID int64) (*models.CardPurchase, error) {
	purchase, err := s.cardRepo.GetPurchaseByID(purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	if purchase.IsCompleted {
		return nil, ErrPurchaseCompleted
	}

	card, err := s.cardRepo.GetCardByID(purchase.CardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	if err := s.checkCardAccess(actorID, card, permission.EditFinance); err != nil {
		return nil, err
	}

	paid, completed := ledger.AdvancePurchase(purchase.PaidInstallments, purchase.InstallmentCount)
	if err := s.cardRepo.UpdatePurchaseProgress(purchase.ID, paid, completed); err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}
	purchase.PaidInstallments = paid
	purchase.IsCompleted = completed
	return purchase, nil
}
