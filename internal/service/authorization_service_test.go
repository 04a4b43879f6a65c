package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ledger"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ratelimit"
)

// MockCardRepository is a mock implementation of CardRepository.
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Create(ctx context.Context, card *model.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) FindByCardNumber(ctx context.Context, cardNumber string) (*model.Card, error) {
	args := m.Called(ctx, cardNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Card, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Card), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) ListActive(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByRequestID(ctx context.Context, requestID string) (*model.Transaction, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

// MockAuthorizationLogRepository is a mock implementation of AuthorizationLogRepository.
type MockAuthorizationLogRepository struct {
	mock.Mock
}

func (m *MockAuthorizationLogRepository) Create(ctx context.Context, log *model.AuthorizationLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuthorizationLogRepository) CreateBatch(ctx context.Context, logs []model.AuthorizationLog) error {
	args := m.Called(ctx, logs)
	return args.Error(0)
}

const (
	testCardNumber  = "4111111111111111"
	otherCardNumber = "5555555555554444"
)

var testAddress = model.Address{
	Street:     "100 Market St",
	City:       "San Francisco",
	State:      "CA",
	PostalCode: "94105",
	Country:    "US",
}

// engineFixture wires the engine with mocked repositories and real in-memory
// ledger and rate-limit backends.
type engineFixture struct {
	cards    *MockCardRepository
	accounts *MockAccountRepository
	txns     *MockTransactionRepository
	logs     *MockAuthorizationLogRepository
	ledger   *ledger.MemoryLedger
	limiter  *ratelimit.MemoryCounter
	service  AuthorizationService
	card     *model.Card
	account  *model.Account
}

func newEngineFixture(t *testing.T, balance string) *engineFixture {
	t.Helper()

	account := &model.Account{
		ID:             uuid.New(),
		Status:         model.AccountStatusActive,
		Balance:        decimal.RequireFromString(balance),
		BillingAddress: testAddress,
	}
	card := &model.Card{
		ID:             uuid.New(),
		AccountID:      account.ID,
		CardNumber:     testCardNumber,
		CardholderName: "Alice Johnson",
		CVC2:           "123",
		Status:         model.CardStatusActive,
	}

	f := &engineFixture{
		cards:    new(MockCardRepository),
		accounts: new(MockAccountRepository),
		txns:     new(MockTransactionRepository),
		logs:     new(MockAuthorizationLogRepository),
		ledger:   ledger.NewMemoryLedger(),
		limiter:  ratelimit.NewMemoryCounter(),
		card:     card,
		account:  account,
	}

	require.NoError(t, f.ledger.Open(account.ID, account.Balance))

	f.cards.On("FindByCardNumber", mock.Anything, testCardNumber).Return(card, nil).Maybe()
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil).Maybe()
	f.txns.On("Create", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil).Maybe()
	f.logs.On("Create", mock.Anything, mock.AnythingOfType("*model.AuthorizationLog")).Return(nil).Maybe()
	f.logs.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]model.AuthorizationLog")).Return(nil).Maybe()

	f.service = NewAuthorizationService(
		NewCardValidator(f.cards),
		NewAccountValidator(f.accounts, false),
		NewTransactionValidator(f.limiter, 5, time.Hour, []string{"5411", "5812", "5999"}),
		f.ledger,
		f.limiter,
		f.txns,
		f.logs,
		5*time.Second,
	)

	return f
}

func (f *engineFixture) request(amount string) *model.AuthorizationRequest {
	return &model.AuthorizationRequest{
		RequestID:            uuid.NewString(),
		CardNumber:           testCardNumber,
		Amount:               decimal.RequireFromString(amount),
		MerchantCategoryCode: "5411",
		Type:                 model.TransactionTypeCardPresent,
		Timestamp:            time.Now(),
	}
}

func (f *engineFixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	balance, err := f.ledger.Balance(f.account.ID)
	require.NoError(t, err)
	return balance
}

func TestAuthorize_Approved(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	req := f.request("250.00")

	result, err := f.service.Authorize(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.NotEmpty(t, result.AuthorizationCode)
	assert.True(t, result.AmountAuthorized.Equal(req.Amount))
	assert.Empty(t, result.DeclineCode)
	assert.Empty(t, result.DeclineReason)

	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("750.00")))
	f.txns.AssertNumberOfCalls(t, "Create", 1)
}

func TestAuthorize_AmountEqualToBalanceApproves(t *testing.T) {
	f := newEngineFixture(t, "1000.00")

	result, err := f.service.Authorize(context.Background(), f.request("1000.00"))
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.True(t, f.balance(t).IsZero())
}

func TestAuthorize_InsufficientFunds(t *testing.T) {
	f := newEngineFixture(t, "1000.00")

	result, err := f.service.Authorize(context.Background(), f.request("1000.01"))
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, errors.DeclineInsufficientFunds.Code, result.DeclineCode)
	assert.Empty(t, result.AuthorizationCode)
	assert.True(t, result.AmountAuthorized.IsZero())
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("1000.00")))
}

func TestAuthorize_DeclineReasons(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *engineFixture)
		mutate   func(req *model.AuthorizationRequest)
		expected *errors.Decline
	}{
		{
			name: "unknown card",
			mutate: func(req *model.AuthorizationRequest) {
				req.CardNumber = otherCardNumber
			},
			setup: func(f *engineFixture) {
				f.cards.On("FindByCardNumber", mock.Anything, otherCardNumber).Return(nil, gorm.ErrRecordNotFound)
			},
			expected: errors.DeclineCardNotFound,
		},
		{
			name: "card number failing check digit",
			mutate: func(req *model.AuthorizationRequest) {
				req.CardNumber = "4111111111111112"
			},
			expected: errors.DeclineCardNotFound,
		},
		{
			name: "blocked card",
			setup: func(f *engineFixture) {
				f.card.Status = model.CardStatusBlocked
			},
			expected: errors.DeclineCardNotActive,
		},
		{
			name: "expired card",
			setup: func(f *engineFixture) {
				f.card.Status = model.CardStatusExpired
			},
			expected: errors.DeclineCardNotActive,
		},
		{
			name: "suspended account",
			setup: func(f *engineFixture) {
				f.account.Status = model.AccountStatusSuspended
			},
			expected: errors.DeclineAccountNotActive,
		},
		{
			name: "merchant category not allowed",
			mutate: func(req *model.AuthorizationRequest) {
				req.MerchantCategoryCode = "9999"
			},
			expected: errors.DeclineMerchantCategoryNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, "1000.00")
			if tt.setup != nil {
				tt.setup(f)
			}
			req := f.request("100.00")
			if tt.mutate != nil {
				tt.mutate(req)
			}

			result, err := f.service.Authorize(context.Background(), req)
			require.NoError(t, err, "a decline is a decision, not an error")

			assert.False(t, result.Approved)
			assert.Equal(t, tt.expected.Code, result.DeclineCode)
			assert.Equal(t, tt.expected.Reason, result.DeclineReason)
			assert.Empty(t, result.AuthorizationCode)
			assert.True(t, result.AmountAuthorized.IsZero())

			// A decline must leave the balance untouched.
			assert.True(t, f.balance(t).Equal(decimal.RequireFromString("1000.00")))
			f.txns.AssertNumberOfCalls(t, "Create", 1)
		})
	}
}

func TestAuthorize_BlockedCardReason(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	f.card.Status = model.CardStatusBlocked

	result, err := f.service.Authorize(context.Background(), f.request("50.00"))
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, "card is not active", result.DeclineReason)
}

func TestAuthorize_CardNotPresentChecks(t *testing.T) {
	goodAddress := testAddress

	tests := []struct {
		name     string
		cvc2     string
		holder   string
		address  *model.Address
		expected *errors.Decline
	}{
		{
			name:    "all cross-checks pass",
			cvc2:    "123",
			holder:  "Alice Johnson",
			address: &goodAddress,
		},
		{
			name:    "cardholder name matches case-insensitively",
			cvc2:    "123",
			holder:  "  alice johnson ",
			address: &goodAddress,
		},
		{
			name:     "wrong cvc2",
			cvc2:     "999",
			holder:   "Alice Johnson",
			address:  &goodAddress,
			expected: errors.DeclineCVC2Mismatch,
		},
		{
			name:     "missing cvc2",
			cvc2:     "",
			holder:   "Alice Johnson",
			address:  &goodAddress,
			expected: errors.DeclineCVC2Mismatch,
		},
		{
			name:     "wrong cardholder name",
			cvc2:     "123",
			holder:   "Mallory Evil",
			address:  &goodAddress,
			expected: errors.DeclineNameMismatch,
		},
		{
			name:   "wrong billing address",
			cvc2:   "123",
			holder: "Alice Johnson",
			address: &model.Address{
				Street:     "1 Elsewhere Ave",
				City:       "San Francisco",
				State:      "CA",
				PostalCode: "94105",
				Country:    "US",
			},
			expected: errors.DeclineAddressMismatch,
		},
		{
			name:     "missing billing address",
			cvc2:     "123",
			holder:   "Alice Johnson",
			address:  nil,
			expected: errors.DeclineAddressMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, "1000.00")
			req := f.request("50.00")
			req.Type = model.TransactionTypeCardNotPresent
			req.CVC2 = tt.cvc2
			req.CardholderName = tt.holder
			req.BillingAddress = tt.address

			result, err := f.service.Authorize(context.Background(), req)
			require.NoError(t, err)

			if tt.expected == nil {
				assert.True(t, result.Approved)
				assert.NotEmpty(t, result.AuthorizationCode)
			} else {
				assert.False(t, result.Approved)
				assert.Equal(t, tt.expected.Code, result.DeclineCode)
			}
		})
	}
}

func TestAuthorize_CardPresentSkipsCrossChecks(t *testing.T) {
	f := newEngineFixture(t, "1000.00")

	// Card-present requests carry no CVC2, name, or address, and none are
	// required.
	req := f.request("50.00")
	req.CVC2 = ""
	req.CardholderName = ""
	req.BillingAddress = nil

	result, err := f.service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestAuthorize_RateLimit(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	now := time.Now()

	approve := func(at time.Time) *model.AuthorizationResult {
		req := f.request("10.00")
		req.Timestamp = at
		result, err := f.service.Authorize(context.Background(), req)
		require.NoError(t, err)
		return result
	}

	// The first five attempts in the window approve.
	for i := 0; i < 5; i++ {
		result := approve(now)
		require.True(t, result.Approved, "attempt %d should approve", i+1)
	}

	// The sixth hits the cap.
	result := approve(now)
	assert.False(t, result.Approved)
	assert.Equal(t, errors.DeclineRateLimitExceeded.Code, result.DeclineCode)

	// Declines do not consume budget; still declined a moment later.
	result = approve(now.Add(time.Minute))
	assert.False(t, result.Approved)

	// Once the window has rolled past the burst, approvals resume.
	result = approve(now.Add(61 * time.Minute))
	assert.True(t, result.Approved)
}

func TestAuthorize_IdempotentReplay(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	req := f.request("250.00")

	first, err := f.service.Authorize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Approved)

	retry := *req
	second, err := f.service.Authorize(context.Background(), &retry)
	require.NoError(t, err)

	assert.True(t, second.Approved)
	assert.Equal(t, first.AuthorizationCode, second.AuthorizationCode)

	// Replays debit once and record once.
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("750.00")))
	f.txns.AssertNumberOfCalls(t, "Create", 1)
}

func TestAuthorize_IdempotencyKeyConflict(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	req := f.request("250.00")

	_, err := f.service.Authorize(context.Background(), req)
	require.NoError(t, err)

	conflicting := *req
	conflicting.Amount = decimal.RequireFromString("300.00")
	_, err = f.service.Authorize(context.Background(), &conflicting)
	assert.ErrorIs(t, err, errors.ErrIdempotencyConflict)

	// The original reservation stands.
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("750.00")))
}

func TestAuthorize_RequestValidation(t *testing.T) {
	f := newEngineFixture(t, "1000.00")

	req := f.request("10.00")
	req.RequestID = ""
	_, err := f.service.Authorize(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrMissingRequestID)

	req = f.request("10.00")
	req.Amount = decimal.Zero
	_, err = f.service.Authorize(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)

	req = f.request("10.00")
	req.Amount = decimal.RequireFromString("-5.00")
	_, err = f.service.Authorize(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

// The chain stops at the first failing check, so a request that would fail
// several checks reports the earliest one.
func TestAuthorize_FirstFailureWins(t *testing.T) {
	f := newEngineFixture(t, "10.00")
	f.card.Status = model.CardStatusBlocked
	f.account.Status = model.AccountStatusSuspended

	req := f.request("100.00")
	req.MerchantCategoryCode = "9999"

	result, err := f.service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, errors.DeclineCardNotActive.Code, result.DeclineCode)
}

func TestAuthorize_RepositoryFailureFailsClosed(t *testing.T) {
	f := newEngineFixture(t, "1000.00")
	dbErr := stderrors.New("connection refused")

	req := f.request("10.00")
	req.CardNumber = otherCardNumber
	f.cards.On("FindByCardNumber", mock.Anything, otherCardNumber).Return(nil, dbErr)

	result, err := f.service.Authorize(context.Background(), req)
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("1000.00")))
}

// The advisory balance check can pass while the ledger says otherwise; the
// ledger's answer is the decision.
func TestAuthorize_LedgerIsAuthoritative(t *testing.T) {
	f := newEngineFixture(t, "1000.00")

	// Drain the ledger behind the advisory check's back.
	_, err := f.ledger.Reserve(context.Background(), f.account.ID, decimal.RequireFromString("950.00"), uuid.NewString(), "drain")
	require.NoError(t, err)

	result, err := f.service.Authorize(context.Background(), f.request("100.00"))
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, errors.DeclineInsufficientFunds.Code, result.DeclineCode)
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("50.00")))
}

// Two racing requests that each fit the balance alone must produce exactly one
// approval; the loser declines for insufficient funds.
func TestAuthorize_ConcurrentDoubleSpend(t *testing.T) {
	f := newEngineFixture(t, "100.00")

	results := make([]*model.AuthorizationResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.Authorize(context.Background(), f.request("60.00"))
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	approved := 0
	for _, result := range results {
		require.NotNil(t, result)
		if result.Approved {
			approved++
		} else {
			assert.Equal(t, errors.DeclineInsufficientFunds.Code, result.DeclineCode)
		}
	}
	assert.Equal(t, 1, approved)
	assert.True(t, f.balance(t).Equal(decimal.RequireFromString("40.00")))
}
