package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/internal/config"
	"github.com/diewo77/pipoca/internal/db"
	"github.com/diewo77/pipoca/internal/logging"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/internal/services"
	"github.com/diewo77/pipoca/mail"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag     = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag        = flag.Bool("seed-only", false, "Run DB seed and exit")
	createSuperuserFlag = flag.Bool("create-superuser", false, "Create a superuser and exit")
	emailFlag           = flag.String("email", "", "Superuser email")
	passwordFlag        = flag.String("password", "", "Superuser password (empty leaves it unusable)")
	usernameFlag        = flag.String("username", "", "Superuser display name")
	birthDateFlag       = flag.String("birth-date", "", "Superuser birth date (YYYY-MM-DD)")
	audienceFlag        = flag.String("audience", string(models.AudienceProfessional), "Superuser audience type (MIG, PRO, CUR)")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := logging.New(logging.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = closeLog() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	dbConn, err := db.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(dbConn) }()

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			return err
		}
		logger.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeding completed")
		return nil
	}

	if cfg.App.Migrations || cfg.Database.Driver == config.DriverSQLite {
		if err := migrate(cfg, dbConn); err != nil {
			return err
		}
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return err
	}
	hasher := auth.NewBcryptHasher(0)

	if *createSuperuserFlag {
		return createSuperuser(dbConn, hasher, mailer, logger)
	}

	tokens, err := auth.NewTokens(cfg.App.SecretKey, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	app := NewApp(Deps{
		DB:     dbConn,
		Log:    logger,
		Tokens: tokens,
		Hasher: hasher,
		Mailer: mailer,
		Auth:   cfg.Auth,
		CORS:   cfg.CORS,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Bool("dev", cfg.App.Dev),
			zap.String("driver", cfg.Database.Driver),
			zap.String("db", db.MaskDSN(cfg.Database.DSN())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// migrate applies the SQL migrations on postgres when configured, and
// AutoMigrate otherwise.
func migrate(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.Database.Driver == config.DriverPostgres && cfg.App.Migrations {
		if err := db.RunSQLMigrations("migrations", cfg.Database.ConnURL()); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		return db.CheckTables(dbConn)
	}
	if err := db.Migrate(dbConn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func newMailer(cfg config.MailConfig, logger *zap.Logger) (mail.Sender, error) {
	switch cfg.Backend {
	case "smtp":
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.User,
			Password: cfg.Password,
			From:     cfg.From,
			SSL:      cfg.UseTLS,
		}), nil
	case "console":
		return mail.NewConsoleSender(logger, cfg.From), nil
	case "memory":
		return mail.NewOutbox(cfg.From), nil
	}
	return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
}

func createSuperuser(dbConn *gorm.DB, hasher auth.Hasher, mailer mail.Sender, logger *zap.Logger) error {
	birth, err := models.ParseDate(*birthDateFlag)
	if err != nil {
		return fmt.Errorf("-birth-date: %w", err)
	}
	accounts := services.NewAccountManager(dbConn, hasher, mailer, logger)
	user, err := accounts.CreateSuperuser(context.Background(), *emailFlag, *passwordFlag, services.UserFields{
		Username:     *usernameFlag,
		BirthDate:    birth,
		AudienceType: models.AudienceType(*audienceFlag),
	})
	if err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}
	logger.Info("superuser created", zap.Uint("id", user.ID), zap.String("email", user.Email))
	return nil
}
