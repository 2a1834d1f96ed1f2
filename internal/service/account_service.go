package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/models"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/validation"
)

var ErrAccountNotFound = errors.New("bank account not found")

// accountStore is the account persistence needed by AccountService
type accountStore interface {
	CreateAccount(account *models.BankAccount) (*models.BankAccount, error)
	GetAccountByID(id int64) (*models.BankAccount, error)
	ListAccounts(userID int64, familyID *int64) ([]models.BankAccount, error)
	UpdateAccount(account *models.BankAccount) error
	DeleteAccount(id int64) error
}

// AccountService handles bank accounts
type AccountService struct {
	accountRepo accountStore
	userRepo    memberDirectory
	guard       *permission.Guard
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo accountStore, userRepo memberDirectory, guard *permission.Guard) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		userRepo:    userRepo,
		guard:       guard,
	}
}

func (s *AccountService) checkAccountAccess(actorID int64, account *models.BankAccount, perm permission.Permission) error {
	user, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	isAdmin := user != nil && user.IsAdmin()
	allowed, err := s.guard.CanAccessEntity(actorID, isAdmin, &account.OwnerID, nil, account.FamilyID, perm)
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
func (s *AccountService) checkFamilyScope(actorID int64, familyID *int64, perm permission.Permission) error {
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

// CreateAccount registers a bank account owned by the actor
func (s *AccountService) CreateAccount(actorID int64, familyID *int64, bankName, name, currency string, balance decimal.Decimal) (*models.BankAccount, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = "TRY"
	}

	if familyID != nil {
		if err := s.checkFamilyScope(actorID, familyID, permission.CreateFinance); err != nil {
			return nil, err
		}
	}

	account := &models.BankAccount{
		OwnerID:  actorID,
		FamilyID: familyID,
		BankName: bankName,
		Name:     name,
		Balance:  balance,
		Currency: currency,
	}
	created, err := s.accountRepo.CreateAccount(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// GetAccount returns an account the actor may view
func (s *AccountService) GetAccount(actorID, accountID int64) (*models.BankAccount, error) {
	account, err := s.accountRepo.GetAccountByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if err := s.checkAccountAccess(actorID, account, permission.ViewFinance); err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns the actor's own accounts, plus a family's accounts
// when the actor may view that family's finances
func (s *AccountService) ListAccounts(actorID int64, familyID *int64) ([]models.BankAccount, error) {
	if familyID != nil {
		if err := s.checkFamilyScope(actorID, familyID, permission.ViewFinance); err != nil {
			return nil, err
		}
	}
	accounts, err := s.accountRepo.ListAccounts(actorID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount edits an account's details and balance
func (s *AccountService) UpdateAccount(actorID, accountID int64, bankName, name string, balance decimal.Decimal) (*models.BankAccount, error) {
	account, err := s.accountRepo.GetAccountByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if err := s.checkAccountAccess(actorID, account, permission.EditFinance); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	account.BankName = bankName
	account.Name = name
	account.Balance = balance
	if err := s.accountRepo.UpdateAccount(account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes an account
func (s *AccountService) DeleteAccount(actorID, accountID int64) error {
	account, err := s.accountRepo.GetAccountByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return ErrAccountNotFound
	}
	if err := s.checkAccountAccess(actorID, account, permission.DeleteFinance); err != nil {
		return err
	}
	if err := s.accountRepo.DeleteAccount(accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
