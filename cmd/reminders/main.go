package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/config"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/database"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/repository"
	"github.com/ylcemir1/aile-finans-paneli-sub000/internal/service"
)

// Sends one payment reminder digest per loan owner with installments due
// within the configured horizon. Meant to run from cron once a day.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	loanRepo := repository.NewLoanRepository(db)

	horizon := time.Duration(cfg.ReminderHorizon) * 24 * time.Hour
	reminderService := service.NewReminderService(loanRepo, userRepo, emailService, horizon)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := reminderService.Run(ctx, time.Now())
	if err != nil {
		log.Fatalf("Reminder run failed: %v", err)
	}
	log.Printf("Reminder run complete: %d digest(s) sent", sent)
}
