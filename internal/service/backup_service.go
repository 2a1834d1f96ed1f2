package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Users      []UserBackup        `json:"users"`
	Families   []FamilyBackup      `json:"families"`
	Accounts   []AccountBackup     `json:"accounts"`
	Loans      []LoanBackup        `json:"loans"`
	Cards      []CardBackup        `json:"cards"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record with its members
type FamilyBackup struct {
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	CreatedBy int64                `json:"created_by"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	Members   []FamilyMemberBackup `json:"members"`
}

// FamilyMemberBackup represents a family member record
type FamilyMemberBackup struct {
	UserID               int64  `json:"user_id"`
	Role                 string `json:"role"`
	CanViewFinance       bool   `json:"can_view_finance"`
	CanCreateFinance     bool   `json:"can_create_finance"`
	CanEditFinance       bool   `json:"can_edit_finance"`
	CanDeleteFinance     bool   `json:"can_delete_finance"`
	CanManageMembers     bool   `json:"can_manage_members"`
	CanManageInvitations bool   `json:"can_manage_invitations"`
	CanAssignPermissions bool   `json:"can_assign_permissions"`
}

// AccountBackup represents a bank account record for backup
type AccountBackup struct {
	ID       int64           `json:"id"`
	OwnerID  int64           `json:"owner_id"`
	FamilyID *int64          `json:"family_id"`
	BankName string          `json:"bank_name"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// LoanBackup represents a loan with its installment schedule
type LoanBackup struct {
	ID               int64               `json:"id"`
	OwnerID          int64               `json:"owner_id"`
	CreatedBy        int64               `json:"created_by"`
	FamilyID         *int64              `json:"family_id"`
	BankName         string              `json:"bank_name"`
	LoanType         string              `json:"loan_type"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	MonthlyPayment   decimal.Decimal     `json:"monthly_payment"`
	PaidAmount       decimal.Decimal     `json:"paid_amount"`
	RemainingBalance decimal.Decimal     `json:"remaining_balance"`
	Status           string              `json:"status"`
	StartDate        time.Time           `json:"start_date"`
	EndDate          time.Time           `json:"end_date"`
	GraceMonths      int                 `json:"grace_months"`
	DueDay           *int                `json:"due_day"`
	Installments     []InstallmentBackup `json:"installments"`
}

// InstallmentBackup represents one installment row
type InstallmentBackup struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	IsPaid            bool            `json:"is_paid"`
	PaidAt            *time.Time      `json:"paid_at"`
}

// CardBackup represents a credit card with its purchases
type CardBackup struct {
	ID        int64            `json:"id"`
	OwnerID   int64            `json:"owner_id"`
	CreatedBy int64            `json:"created_by"`
	FamilyID  *int64           `json:"family_id"`
	BankName  string           `json:"bank_name"`
	Name      string           `json:"name"`
	Limit     decimal.Decimal  `json:"limit"`
	Purchases []PurchaseBackup `json:"purchases"`
}

// PurchaseBackup represents one card purchase row
type PurchaseBackup struct {
	Description      string          `json:"description"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	MonthlyAmount    decimal.Decimal `json:"monthly_amount"`
	InstallmentCount int             `json:"installment_count"`
	PaidInstallments int             `json:"paid_installments"`
	IsCompleted      bool            `json:"is_completed"`
	PurchasedAt      time.Time       `json:"purchased_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer (useful for HTTP responses)
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportAccounts(backup); err != nil {
		return fmt.Errorf("failed to export accounts: %w", err)
	}
	if err := s.exportLoans(backup); err != nil {
		return fmt.Errorf("failed to export loans: %w", err)
	}
	if err := s.exportCards(backup); err != nil {
		return fmt.Errorf("failed to export cards: %w", err)
	}

	log.Printf("Exported: %d users, %d families, %d accounts, %d loans, %d cards",
		len(backup.Users), len(backup.Families), len(backup.Accounts),
		len(backup.Loans), len(backup.Cards))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader. Records are
// inserted in dependency order against an empty schema.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importAccounts(backup.Accounts); err != nil {
		return fmt.Errorf("failed to import accounts: %w", err)
	}
	if err := s.importLoans(backup.Loans); err != nil {
		return fmt.Errorf("failed to import loans: %w", err)
	}
	if err := s.importCards(backup.Cards); err != nil {
		return fmt.Errorf("failed to import cards: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, role, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, created_by, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Families {
		memberQuery := `
			SELECT user_id, role,
				can_view_finance, can_create_finance, can_edit_finance, can_delete_finance,
				can_manage_members, can_manage_invitations, can_assign_permissions
			FROM family_members WHERE family_id = ? ORDER BY user_id
		`
		memberRows, err := s.db.Query(memberQuery, backup.Families[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var m FamilyMemberBackup
			if err := memberRows.Scan(&m.UserID, &m.Role,
				&m.CanViewFinance, &m.CanCreateFinance, &m.CanEditFinance, &m.CanDeleteFinance,
				&m.CanManageMembers, &m.CanManageInvitations, &m.CanAssignPermissions); err != nil {
				memberRows.Close()
				return err
			}
			backup.Families[i].Members = append(backup.Families[i].Members, m)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return err
		}
		memberRows.Close()
	}
	return nil
}

func (s *BackupService) exportAccounts(backup *BackupData) error {
	query := "SELECT id, owner_id, family_id, bank_name, name, balance, currency FROM bank_accounts ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AccountBackup
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.FamilyID, &a.BankName, &a.Name, &a.Balance, &a.Currency); err != nil {
			return err
		}
		backup.Accounts = append(backup.Accounts, a)
	}
	return rows.Err()
}

func (s *BackupService) exportLoans(backup *BackupData) error {
	query := `
		SELECT id, owner_id, created_by, family_id, bank_name, loan_type,
			total_amount, monthly_payment, paid_amount, remaining_balance, status,
			start_date, end_date, grace_months, due_day
		FROM loans ORDER BY id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LoanBackup
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.CreatedBy, &l.FamilyID, &l.BankName, &l.LoanType,
			&l.TotalAmount, &l.MonthlyPayment, &l.PaidAmount, &l.RemainingBalance, &l.Status,
			&l.StartDate, &l.EndDate, &l.GraceMonths, &l.DueDay); err != nil {
			return err
		}
		backup.Loans = append(backup.Loans, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Loans {
		instQuery := `
			SELECT installment_number, due_date, amount, is_paid, paid_at
			FROM installments WHERE loan_id = ? ORDER BY installment_number
		`
		instRows, err := s.db.Query(instQuery, backup.Loans[i].ID)
		if err != nil {
			return err
		}
		for instRows.Next() {
			var inst InstallmentBackup
			if err := instRows.Scan(&inst.InstallmentNumber, &inst.DueDate, &inst.Amount, &inst.IsPaid, &inst.PaidAt); err != nil {
				instRows.Close()
				return err
			}
			backup.Loans[i].Installments = append(backup.Loans[i].Installments, inst)
		}
		if err := instRows.Err(); err != nil {
			instRows.Close()
			return err
		}
		instRows.Close()
	}
	return nil
}

func (s *BackupService) exportCards(backup *BackupData) error {
	query := "SELECT id, owner_id, created_by, family_id, bank_name, name, card_limit FROM credit_cards ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CardBackup
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.CreatedBy, &c.FamilyID, &c.BankName, &c.Name, &c.Limit); err != nil {
			return err
		}
		backup.Cards = append(backup.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range backup.Cards {
		purchaseQuery := `
			SELECT description, total_amount, monthly_amount, installment_count,
				paid_installments, is_completed, purchased_at
			FROM card_purchases WHERE card_id = ? ORDER BY id
		`
		purchaseRows, err := s.db.Query(purchaseQuery, backup.Cards[i].ID)
		if err != nil {
			return err
		}
		for purchaseRows.Next() {
			var p PurchaseBackup
			if err := purchaseRows.Scan(&p.Description, &p.TotalAmount, &p.MonthlyAmount,
				&p.InstallmentCount, &p.PaidInstallments, &p.IsCompleted, &p.PurchasedAt); err != nil {
				purchaseRows.Close()
				return err
			}
			backup.Cards[i].Purchases = append(backup.Cards[i].Purchases, p)
		}
		if err := purchaseRows.Err(); err != nil {
			purchaseRows.Close()
			return err
		}
		purchaseRows.Close()
	}
	return nil
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, f.ID, f.Name, f.CreatedBy, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}

		for _, m := range f.Members {
			memberQuery := `
				INSERT INTO family_members (family_id, user_id, role,
					can_view_finance, can_create_finance, can_edit_finance, can_delete_finance,
					can_manage_members, can_manage_invitations, can_assign_permissions)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`
			b := s.db.Dialect.BoolValue
			_, err := s.db.Exec(memberQuery, f.ID, m.UserID, m.Role,
				b(m.CanViewFinance), b(m.CanCreateFinance), b(m.CanEditFinance), b(m.CanDeleteFinance),
				b(m.CanManageMembers), b(m.CanManageInvitations), b(m.CanAssignPermissions))
			if err != nil {
				return fmt.Errorf("failed to import member %d for family %d: %w", m.UserID, f.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importAccounts(accounts []AccountBackup) error {
	log.Printf("Importing %d accounts...", len(accounts))
	for _, a := range accounts {
		query := "INSERT INTO bank_accounts (id, owner_id, family_id, bank_name, name, balance, currency) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, a.ID, a.OwnerID, a.FamilyID, a.BankName, a.Name, a.Balance, a.Currency)
		if err != nil {
			return fmt.Errorf("failed to import account %d: %w", a.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importLoans(loans []LoanBackup) error {
	log.Printf("Importing %d loans...", len(loans))
	for _, l := range loans {
		query := `
			INSERT INTO loans (id, owner_id, created_by, family_id, bank_name, loan_type,
				total_amount, monthly_payment, paid_amount, remaining_balance, status,
				start_date, end_date, grace_months, due_day)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.Exec(query, l.ID, l.OwnerID, l.CreatedBy, l.FamilyID, l.BankName, l.LoanType,
			l.TotalAmount, l.MonthlyPayment, l.PaidAmount, l.RemainingBalance, l.Status,
			l.StartDate, l.EndDate, l.GraceMonths, l.DueDay)
		if err != nil {
			return fmt.Errorf("failed to import loan %d: %w", l.ID, err)
		}

		for _, inst := range l.Installments {
			instQuery := "INSERT INTO installments (loan_id, installment_number, due_date, amount, is_paid, paid_at) VALUES (?, ?, ?, ?, ?, ?)"
			_, err := s.db.Exec(instQuery, l.ID, inst.InstallmentNumber, inst.DueDate, inst.Amount,
				s.db.Dialect.BoolValue(inst.IsPaid), inst.PaidAt)
			if err != nil {
				return fmt.Errorf("failed to import installment %d of loan %d: %w", inst.InstallmentNumber, l.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importCards(cards []CardBackup) error {
	log.Printf("Importing %d cards...", len(cards))
	for _, c := range cards {
		query := "INSERT INTO credit_cards (id, owner_id, created_by, family_id, bank_name, name, card_limit) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, c.ID, c.OwnerID, c.CreatedBy, c.FamilyID, c.BankName, c.Name, c.Limit)
		if err != nil {
			return fmt.Errorf("failed to import card %d: %w", c.ID, err)
		}

		for _, p := range c.Purchases {
			purchaseQuery := `
				INSERT INTO card_purchases (card_id, description, total_amount, monthly_amount,
					installment_count, paid_installments, is_completed, purchased_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`
			_, err := s.db.Exec(purchaseQuery, c.ID, p.Description, p.TotalAmount, p.MonthlyAmount,
				p.InstallmentCount, p.PaidInstallments, s.db.Dialect.BoolValue(p.IsCompleted), p.PurchasedAt)
			if err != nil {
				return fmt.Errorf("failed to import purchase for card %d: %w", c.ID, err)
			}
		}
	}
	return nil
}
