package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/oliveira-flavio-br/authorizer-agentic-build/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/auth"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/cache"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/config"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/db"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/handler"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ledger"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ratelimit"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/router"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/service"
)

// @title Card Authorization API
// @version 1.0
// @description Card transaction authorization engine with balance reservation, rate limiting, and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.AuthorizationLog{},
			&model.Transaction{},
			&model.Reservation{},
			&model.Card{},
			&model.Account{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.Account{},
		&model.Card{},
		&model.Transaction{},
		&model.AuthorizationLog{},
		&model.Reservation{},
		&model.User{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(gormDB)
	cardRepo := repository.NewCardRepository(gormDB)
	txnRepo := repository.NewTransactionRepository(gormDB)
	logRepo := repository.NewAuthorizationLogRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	// Ledger backend: mysql shares state across instances, memory is
	// single-process only.
	var bal ledger.Ledger
	switch cfg.LedgerBackend {
	case "memory":
		memLedger := ledger.NewMemoryLedger()
		accounts, err := accountRepo.ListActive(context.Background())
		if err != nil {
			log.Fatalf("load accounts for memory ledger: %v", err)
		}
		for _, account := range accounts {
			if err := memLedger.Open(account.ID, account.Balance); err != nil {
				log.Fatalf("open account %s: %v", account.ID, err)
			}
		}
		bal = memLedger
		log.Printf("memory ledger loaded with %d accounts", len(accounts))
	default:
		bal = ledger.NewGormLedger(gormDB)
	}

	var limiter ratelimit.Counter
	switch cfg.RateLimitBackend {
	case "memory":
		limiter = ratelimit.NewMemoryCounter()
	default:
		limiter = ratelimit.NewRedisCounter(cacheClient.Redis())
	}

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize validators
	cardValidator := service.NewCardValidator(cardRepo)
	accountValidator := service.NewAccountValidator(accountRepo, cfg.AddressCaseSensitive)
	txnValidator := service.NewTransactionValidator(limiter, cfg.MaxTransactionsPerWindow, cfg.RateLimitWindow, cfg.AllowedMerchantCategories)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	accountService := service.NewAccountService(accountRepo, txnRepo, cacheClient)
	authzService := service.NewAuthorizationService(
		cardValidator,
		accountValidator,
		txnValidator,
		bal,
		limiter,
		txnRepo,
		logRepo,
		cfg.RepositoryTimeout,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService)
	authorizationHandler := handler.NewAuthorizationHandler(authzService)

	// Register routes
	router.Register(e, cfg, authHandler, accountHandler, authorizationHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
