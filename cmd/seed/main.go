package main

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/config"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/db"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
)

// seedEntry is one demo account with its cards.
type seedEntry struct {
	balance string
	status  model.AccountStatus
	address model.Address
	cards   []model.Card
}

func demoData() []seedEntry {
	return []seedEntry{
		{
			balance: "1000.00",
			status:  model.AccountStatusActive,
			address: model.Address{
				Street:     "100 Market St",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: "94105",
				Country:    "US",
			},
			cards: []model.Card{
				{
					CardNumber:     "4111111111111111",
					CardholderName: "Alice Johnson",
					CVC2:           "123",
					Status:         model.CardStatusActive,
				},
				{
					CardNumber:     "4012888888881881",
					CardholderName: "Alice Johnson",
					CVC2:           "456",
					Status:         model.CardStatusBlocked,
				},
			},
		},
		{
			balance: "250.50",
			status:  model.AccountStatusActive,
			address: model.Address{
				Street:     "22 Baker St",
				City:       "London",
				State:      "",
				PostalCode: "NW1 6XE",
				Country:    "GB",
			},
			cards: []model.Card{
				{
					CardNumber:     "5555555555554444",
					CardholderName: "Bob Smith",
					CVC2:           "321",
					Status:         model.CardStatusActive,
				},
			},
		},
		{
			balance: "0.00",
			status:  model.AccountStatusSuspended,
			address: model.Address{
				Street:     "9 Rue de Rivoli",
				City:       "Paris",
				State:      "",
				PostalCode: "75004",
				Country:    "FR",
			},
			cards: []model.Card{
				{
					CardNumber:     "378282246310005",
					CardholderName: "Carol White",
					CVC2:           "7890",
					Status:         model.CardStatusActive,
				},
			},
		},
	}
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.Account{},
		&model.Card{},
		&model.Transaction{},
		&model.AuthorizationLog{},
		&model.Reservation{},
		&model.User{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	accountRepo := repository.NewAccountRepository(gormDB)
	cardRepo := repository.NewCardRepository(gormDB)
	ctx := context.Background()

	log.Println("Seeding demo accounts and cards...")
	accounts, cards, err := seed(ctx, accountRepo, cardRepo, demoData())
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Accounts created: %d", accounts)
	log.Printf("  - Cards created: %d", cards)
}

// seed inserts the demo entries. An entry whose first card already exists is
// assumed seeded and skipped, so reruns are safe.
func seed(ctx context.Context, accountRepo repository.AccountRepository, cardRepo repository.CardRepository, entries []seedEntry) (accounts int, cards int, err error) {
	for _, entry := range entries {
		existing, err := cardRepo.FindByCardNumber(ctx, entry.cards[0].CardNumber)
		if err != nil && err != gorm.ErrRecordNotFound {
			return accounts, cards, fmt.Errorf("check card %s: %w", entry.cards[0].CardNumber, err)
		}
		if existing != nil {
			log.Printf("Card %s already exists, skipping entry", entry.cards[0].CardNumber)
			continue
		}

		balance, err := decimal.NewFromString(entry.balance)
		if err != nil {
			return accounts, cards, fmt.Errorf("invalid balance %q: %w", entry.balance, err)
		}

		account := &model.Account{
			Status:         entry.status,
			Balance:        balance,
			BillingAddress: entry.address,
		}
		if err := accountRepo.Create(ctx, account); err != nil {
			return accounts, cards, fmt.Errorf("create account: %w", err)
		}
		accounts++

		for _, card := range entry.cards {
			card.AccountID = account.ID
			if err := cardRepo.Create(ctx, &card); err != nil {
				return accounts, cards, fmt.Errorf("create card: %w", err)
			}
			cards++
		}
	}

	return accounts, cards, nil
}
