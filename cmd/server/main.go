package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/config"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/handlers"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/permission"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/repository"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

func main() {
	// Load .env if present, then configuration from the environment
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	cardRepo := repository.NewCardRepository(db)

	// Permission evaluation: server-side check first, local membership
	// flags when the dialect has no server functions or the call fails
	evaluator := permission.NewFallback(
		permission.NewRPCEvaluator(familyRepo),
		permission.NewFlagEvaluator(familyRepo),
	)
	guard := permission.NewGuard(evaluator)

	// Email is optional; the services degrade to logging when disabled
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Printf("Warning: email service unavailable, continuing without email: %v", err)
		emailService, _ = service.NewEmailService(cfg.AWSRegion, "", "", "", cfg.Debug)
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.SessionDuration, cfg.JWTSecret, cfg.JWTTokenTTL)
	familyService := service.NewFamilyService(familyRepo, invitationRepo, userRepo, evaluator, emailService, cfg.InvitationTTL)
	familyService.RegisterReattacher(accountRepo.ReattachOwnerAccounts)
	familyService.RegisterReattacher(loanRepo.ReattachOwnerLoans)
	familyService.RegisterReattacher(cardRepo.ReattachOwnerCards)
	accountService := service.NewAccountService(accountRepo, userRepo, guard)
	loanService := service.NewLoanService(loanRepo, userRepo, guard)
	cardService := service.NewCardService(cardRepo, userRepo, guard)
	backupService := service.NewBackupService(db)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService)
	familyHandler := handlers.NewFamilyHandler(familyService)
	accountHandler := handlers.NewAccountHandler(accountService)
	loanHandler := handlers.NewLoanHandler(loanService)
	cardHandler := handlers.NewCardHandler(cardService)
	adminHandler := handlers.NewAdminHandler(backupService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Authenticated user routes
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/token", middleware.RequireAuth(authHandler.CreateAPIToken))

	// Family routes
	mux.HandleFunc("POST /api/families", middleware.RequireAuth(familyHandler.CreateFamily))
	mux.HandleFunc("GET /api/families/{id}", middleware.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("GET /api/families/me", middleware.RequireAuth(familyHandler.GetMyMembership))
	mux.HandleFunc("POST /api/families/{id}/invitations", middleware.RequireAuth(familyHandler.InviteMember))
	mux.HandleFunc("GET /api/families/{id}/invitations", middleware.RequireAuth(familyHandler.ListInvitations))
	mux.HandleFunc("GET /api/invitations", middleware.RequireAuth(familyHandler.ListMyInvitations))
	mux.HandleFunc("POST /api/invitations/{id}/accept", middleware.RequireAuth(familyHandler.AcceptInvitation))
	mux.HandleFunc("POST /api/invitations/{id}/reject", middleware.RequireAuth(familyHandler.RejectInvitation))
	mux.HandleFunc("POST /api/invitations/{id}/cancel", middleware.RequireAuth(familyHandler.CancelInvitation))
	mux.HandleFunc("PUT /api/families/{id}/members/{userId}/permissions", middleware.RequireAuth(familyHandler.UpdateMemberPermissions))
	mux.HandleFunc("PUT /api/families/{id}/members/{userId}/role", middleware.RequireAuth(familyHandler.UpdateMemberRole))
	mux.HandleFunc("DELETE /api/families/{id}/members/{userId}", middleware.RequireAuth(familyHandler.RemoveMember))
	mux.HandleFunc("POST /api/families/{id}/leave", middleware.RequireAuth(familyHandler.LeaveFamily))
	mux.HandleFunc("GET /api/families/{id}/audit-log", middleware.RequireAuth(familyHandler.ListAuditLog))

	// Bank account routes
	mux.HandleFunc("POST /api/accounts", middleware.RequireAuth(accountHandler.CreateAccount))
	mux.HandleFunc("GET /api/accounts", middleware.RequireAuth(accountHandler.ListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", middleware.RequireAuth(accountHandler.GetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", middleware.RequireAuth(accountHandler.UpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", middleware.RequireAuth(accountHandler.DeleteAccount))

	// Loan and installment routes
	mux.HandleFunc("POST /api/loans", middleware.RequireAuth(loanHandler.CreateLoan))
	mux.HandleFunc("GET /api/loans", middleware.RequireAuth(loanHandler.ListLoans))
	mux.HandleFunc("GET /api/loans/{id}", middleware.RequireAuth(loanHandler.GetLoan))
	mux.HandleFunc("DELETE /api/loans/{id}", middleware.RequireAuth(loanHandler.DeleteLoan))
	mux.HandleFunc("POST /api/installments/{id}/pay", middleware.RequireAuth(loanHandler.MarkInstallmentPaid))
	mux.HandleFunc("POST /api/installments/{id}/unpay", middleware.RequireAuth(loanHandler.MarkInstallmentUnpaid))
	mux.HandleFunc("PUT /api/installments/{id}", middleware.RequireAuth(loanHandler.UpdateInstallment))

	// Credit card routes
	mux.HandleFunc("POST /api/cards", middleware.RequireAuth(cardHandler.CreateCard))
	mux.HandleFunc("GET /api/cards", middleware.RequireAuth(cardHandler.ListCards))
	mux.HandleFunc("DELETE /api/cards/{id}", middleware.RequireAuth(cardHandler.DeleteCard))
	mux.HandleFunc("POST /api/cards/{id}/purchases", middleware.RequireAuth(cardHandler.CreatePurchase))
	mux.HandleFunc("GET /api/cards/{id}/purchases", middleware.RequireAuth(cardHandler.ListPurchases))
	mux.HandleFunc("POST /api/purchases/{id}/pay", middleware.RequireAuth(cardHandler.PayPurchaseInstallment))

	// Admin routes
	mux.HandleFunc("GET /api/admin/backup", middleware.RequireAdmin(adminHandler.ExportBackup))
	mux.HandleFunc("POST /api/admin/backup", middleware.RequireAdmin(adminHandler.ImportBackup))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else {
			log.Println("Expired sessions cleaned up")
		}
	}
}
