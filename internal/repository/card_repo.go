package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
)

// CardRepository handles database operations for credit cards and their
// installment purchases
type CardRepository struct {
	db *database.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.DB) *CardRepository {
	return &CardRepository{db: db}
}

// CreateCard inserts a new credit card
func (r *CardRepository) CreateCard(card *models.CreditCard) (*models.CreditCard, error) {
	query := `
		INSERT INTO credit_cards (owner_id, created_by, family_id, bank_name, name, card_limit)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		card.OwnerID, card.CreatedBy, card.FamilyID, card.BankName, card.Name, card.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	card.ID = id
	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()
	return card, nil
}

// GetCardByID retrieves a credit card by ID
func (r *CardRepository) GetCardByID(id int64) (*models.CreditCard, error) {
	query := `
		SELECT id, owner_id, created_by, family_id, bank_name, name, card_limit, created_at, updated_at
		FROM credit_cards
		WHERE id = ?
	`
	card := &models.CreditCard{}
	err := r.db.QueryRow(query, id).Scan(
		&card.ID, &card.OwnerID, &card.CreatedBy, &card.FamilyID,
		&card.BankName, &card.Name, &card.Limit, &card.CreatedAt, &card.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return card, nil
}

// ListCards retrieves the cards visible to a user: their own plus their
// family's, when familyID is non-nil
func (r *CardRepository) ListCards(userID int64, familyID *int64) ([]models.CreditCard, error) {
	query := `
		SELECT id, owner_id, created_by, family_id, bank_name, name, card_limit, created_at, updated_at
		FROM credit_cards
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`
	args := []interface{}{userID}
	if familyID != nil {
		query = `
			SELECT id, owner_id, created_by, family_id, bank_name, name, card_limit, created_at, updated_at
			FROM credit_cards
			WHERE owner_id = ? OR family_id = ?
			ORDER BY created_at DESC
		`
		args = append(args, *familyID)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.CreditCard
	for rows.Next() {
		var c models.CreditCard
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.CreatedBy, &c.FamilyID, &c.BankName, &c.Name, &c.Limit, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}

	return cards, nil
}

// DeleteCard deletes a credit card and its purchases
func (r *CardRepository) DeleteCard(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM card_purchases WHERE card_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete card purchases: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM credit_cards WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreatePurchase inserts a new installment purchase
func (r *CardRepository) CreatePurchase(purchase *models.CardPurchase) (*models.CardPurchase, error) {
	query := `
		INSERT INTO card_purchases (card_id, description, total_amount, monthly_amount,
			installment_count, paid_installments, is_completed, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		purchase.CardID, purchase.Description, purchase.TotalAmount, purchase.MonthlyAmount,
		purchase.InstallmentCount, purchase.PaidInstallments, purchase.IsCompleted, purchase.PurchasedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	purchase.ID = id
	purchase.CreatedAt = time.Now()
	return purchase, nil
}

// GetPurchaseByID retrieves an installment purchase by ID
func (r *CardRepository) GetPurchaseByID(id int64) (*models.CardPurchase, error) {
	query := `
		SELECT id, card_id, description, total_amount, monthly_amount,
		       installment_count, paid_installments, is_completed, purchased_at, created_at
		FROM card_purchases
		WHERE id = ?
	`
	p := &models.CardPurchase{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID, &p.CardID, &p.Description, &p.TotalAmount, &p.MonthlyAmount,
		&p.InstallmentCount, &p.PaidInstallments, &p.IsCompleted, &p.PurchasedAt, &p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return p, nil
}

// ListPurchases retrieves a card's installment purchases, newest first
func (r *CardRepository) ListPurchases(cardID int64) ([]models.CardPurchase, error) {
	query := `
		SELECT id, card_id, description, total_amount, monthly_amount,
		       installment_count, paid_installments, is_completed, purchased_at, created_at
		FROM card_purchases
		WHERE card_id = ?
		ORDER BY purchased_at DESC
	`
	rows, err := r.db.Query(query, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []models.CardPurchase
	for rows.Next() {
		var p models.CardPurchase
		if err := rows.Scan(&p.ID, &p.CardID, &p.Description, &p.TotalAmount, &p.MonthlyAmount,
			&p.InstallmentCount, &p.PaidInstallments, &p.IsCompleted, &p.PurchasedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	return purchases, nil
}

// UpdatePurchaseProgress writes a purchase's paid counter and completion flag
func (r *CardRepository) UpdatePurchaseProgress(id int64, paidInstallments int, isCompleted bool) error {
	query := "UPDATE card_purchases SET paid_installments = ?, is_completed = ? WHERE id = ?"
	_, err := r.db.Exec(query, paidInstallments, isCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to update purchase progress: %w", err)
	}
	return nil
}

// ReattachOwnerCards moves a user's personal cards into a family. Only rows
// with no family yet are touched.
func (r *CardRepository) ReattachOwnerCards(ownerID, familyID int64) error {
	query := "UPDATE credit_cards SET family_id = ? WHERE owner_id = ? AND family_id IS NULL"
	_, err := r.db.Exec(query, familyID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reattach cards: %w", err)
	}
	return nil
}
