package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ledger"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/ratelimit"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/repository"
)

// AuthorizationService decides whether to approve or decline a card
// transaction. It is stateless and safe to call from any number of
// concurrent workers; all shared mutable state lives in the ledger and the
// rate-limit counter.
type AuthorizationService interface {
	Authorize(ctx context.Context, req *model.AuthorizationRequest) (*model.AuthorizationResult, error)
}

type authorizationService struct {
	cardValidator    *CardValidator
	accountValidator *AccountValidator
	txnValidator     *TransactionValidator
	ledger           ledger.Ledger
	limiter          ratelimit.Counter
	txnRepo          repository.TransactionRepository
	logRepo          repository.AuthorizationLogRepository
	repoTimeout      time.Duration
	// Channel for async audit logging
	logChannel chan model.AuthorizationLog
}

// NewAuthorizationService creates the authorization engine and starts its
// async audit log worker.
func NewAuthorizationService(
	cardValidator *CardValidator,
	accountValidator *AccountValidator,
	txnValidator *TransactionValidator,
	bal ledger.Ledger,
	limiter ratelimit.Counter,
	txnRepo repository.TransactionRepository,
	logRepo repository.AuthorizationLogRepository,
	repoTimeout time.Duration,
) AuthorizationService {
	s := &authorizationService{
		cardValidator:    cardValidator,
		accountValidator: accountValidator,
		txnValidator:     txnValidator,
		ledger:           bal,
		limiter:          limiter,
		txnRepo:          txnRepo,
		logRepo:          logRepo,
		repoTimeout:      repoTimeout,
		logChannel:       make(chan model.AuthorizationLog, 100),
	}

	// Start async log worker
	go s.logWorker(context.Background())

	return s
}

// logWorker flushes audit log entries in batches.
func (s *authorizationService) logWorker(ctx context.Context) {
	batch := make([]model.AuthorizationLog, 0, 10)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-s.logChannel:
			if !ok {
				if len(batch) > 0 {
					_ = s.logRepo.CreateBatch(ctx, batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= 10 {
				_ = s.logRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				_ = s.logRepo.CreateBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			return
		}
	}
}

// Authorize runs the validator chain in a fixed order, stopping at the first
// failure, then performs the authoritative balance reservation. Declines are
// normal outcomes; only environment failures return an error, and any check
// that cannot complete fails the whole authorization (fail closed).
func (s *authorizationService) Authorize(ctx context.Context, req *model.AuthorizationRequest) (*model.AuthorizationResult, error) {
	if req.RequestID == "" {
		return nil, errors.ErrMissingRequestID
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrInvalidAmount
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	card, account, decline, err := s.runValidators(ctx, req)
	if err != nil {
		return nil, err
	}
	if decline != nil {
		return s.decline(ctx, req, card, account, decline)
	}

	// Point of no return is the reservation commit; an upstream cancellation
	// before it must leave no balance side effect.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	authCode := uuid.NewString()
	reserveCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	outcome, err := s.ledger.Reserve(reserveCtx, account.ID, req.Amount, req.RequestID, authCode)
	cancel()
	if err != nil {
		switch err {
		case ledger.ErrKeyConflict:
			return nil, errors.ErrIdempotencyConflict
		case ledger.ErrInvariantViolation:
			// Concurrency discipline was broken; surface loudly.
			return nil, errors.ErrInvariantViolation
		case ledger.ErrUnknownAccount:
			return nil, fmt.Errorf("account %s: %w", account.ID, errors.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("reserve: %w", err)
	}

	if outcome.Status == model.ReservationStatusInsufficientFunds {
		if outcome.Replayed {
			// Retry of an already-declined request: replay the decision
			// without recording it a second time.
			return declinedResult(errors.DeclineInsufficientFunds), nil
		}
		// The advisory check passed but a concurrent reservation won the
		// race. A normal decline, not an error.
		return s.decline(ctx, req, card, account, errors.DeclineInsufficientFunds)
	}

	if outcome.Replayed {
		return approvedResult(outcome.AuthorizationCode, req.Amount), nil
	}

	if err := s.limiter.RecordAttempt(ctx, card.CardNumber, req.Timestamp); err != nil {
		// The reservation is committed; the decision stands. Keep the failure
		// in the audit trail.
		s.log(ctx, model.AuthorizationLog{
			Approved: true,
			Message:  fmt.Sprintf("record attempt failed: %v", err),
		})
	}

	result := approvedResult(outcome.AuthorizationCode, req.Amount)
	s.record(ctx, req, card, account, result)
	return result, nil
}

// runValidators applies the chain in fixed order: card existence and status,
// card-not-present cross-checks, account checks, then transaction checks.
// Each repository-backed step runs under its own timeout.
func (s *authorizationService) runValidators(ctx context.Context, req *model.AuthorizationRequest) (*model.Card, *model.Account, *errors.Decline, error) {
	cardCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	card, decline, err := s.cardValidator.Validate(cardCtx, req)
	cancel()
	if err != nil || decline != nil {
		return card, nil, decline, err
	}

	accountCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	account, decline, err := s.accountValidator.Validate(accountCtx, card, req)
	cancel()
	if err != nil || decline != nil {
		return card, account, decline, err
	}

	txnCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	decline, err = s.txnValidator.Validate(txnCtx, card, account, req)
	cancel()
	return card, account, decline, err
}

// decline records the declined decision through the sink and returns it.
func (s *authorizationService) decline(ctx context.Context, req *model.AuthorizationRequest, card *model.Card, account *model.Account, reason *errors.Decline) (*model.AuthorizationResult, error) {
	result := declinedResult(reason)
	s.record(ctx, req, card, account, result)
	return result, nil
}

// record writes the transaction record exactly once per decision and queues
// an audit log entry. Once a reservation has committed the decision stands,
// so a sink failure is logged rather than turned into an error.
func (s *authorizationService) record(ctx context.Context, req *model.AuthorizationRequest, card *model.Card, account *model.Account, result *model.AuthorizationResult) {
	txn := &model.Transaction{
		RequestID:            req.RequestID,
		CardNumber:           MaskCardNumber(req.CardNumber),
		Amount:               req.Amount,
		MerchantCategoryCode: req.MerchantCategoryCode,
		Type:                 req.Type,
		Approved:             result.Approved,
		AuthorizationCode:    result.AuthorizationCode,
		DeclineCode:          result.DeclineCode,
		DeclineReason:        result.DeclineReason,
	}
	if card != nil {
		txn.CardID = card.ID
	}
	if account != nil {
		txn.AccountID = account.ID
	}

	message := result.DeclineReason
	sinkCtx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	if err := s.txnRepo.Create(sinkCtx, txn); err != nil {
		message = fmt.Sprintf("record transaction: %v", err)
	}
	cancel()

	s.log(ctx, model.AuthorizationLog{
		TransactionID: txn.ID,
		Approved:      result.Approved,
		Message:       message,
	})
}

// log queues an audit entry, falling back to a synchronous write when the
// channel is full.
func (s *authorizationService) log(ctx context.Context, entry model.AuthorizationLog) {
	select {
	case s.logChannel <- entry:
	default:
		_ = s.logRepo.Create(ctx, &entry)
	}
}

func approvedResult(authCode string, amount decimal.Decimal) *model.AuthorizationResult {
	return &model.AuthorizationResult{
		Approved:          true,
		AuthorizationCode: authCode,
		AmountAuthorized:  amount,
	}
}

func declinedResult(reason *errors.Decline) *model.AuthorizationResult {
	return &model.AuthorizationResult{
		Approved:         false,
		AmountAuthorized: decimal.Zero,
		DeclineCode:      reason.Code,
		DeclineReason:    reason.Reason,
	}
}
