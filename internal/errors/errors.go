package errors

import (
	"errors"
	"net/http"
)

// Environment failures. These are never converted into declines: an
// authorization that cannot complete all of its checks fails closed.
var (
	// ErrAccountNotFound is returned when an account lookup finds nothing.
	// For an existing card this is a referential integrity breach, not a
	// business decline.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAmount is returned when the requested amount is not strictly positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrMissingRequestID is returned when a request carries no idempotency key.
	ErrMissingRequestID = errors.New("missing request id")
	// ErrIdempotencyConflict is returned when an idempotency key is reused
	// with a different amount.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	// ErrInvariantViolation indicates a negative balance was observed. It must
	// never be swallowed: it means per-account serialization was broken.
	ErrInvariantViolation = errors.New("balance invariant violated")
)

// Decline is a business outcome, not an error. Code is stable and machine
// readable; Reason is the human-readable message surfaced to the caller.
type Decline struct {
	Code   string
	Reason string
}

// Decline taxonomy, in validator order.
var (
	DeclineCardNotFound               = &Decline{Code: "CARD_NOT_FOUND", Reason: "card not found"}
	DeclineCardNotActive              = &Decline{Code: "CARD_NOT_ACTIVE", Reason: "card is not active"}
	DeclineCVC2Mismatch               = &Decline{Code: "CVC2_MISMATCH", Reason: "cvc2 does not match"}
	DeclineNameMismatch               = &Decline{Code: "NAME_MISMATCH", Reason: "cardholder name does not match"}
	DeclineAddressMismatch            = &Decline{Code: "ADDRESS_MISMATCH", Reason: "billing address does not match"}
	DeclineAccountNotActive           = &Decline{Code: "ACCOUNT_NOT_ACTIVE", Reason: "account is not active"}
	DeclineRateLimitExceeded          = &Decline{Code: "RATE_LIMIT_EXCEEDED", Reason: "rate limit exceeded"}
	DeclineMerchantCategoryNotAllowed = &Decline{Code: "MCC_NOT_ALLOWED", Reason: "merchant category not allowed"}
	DeclineInsufficientFunds          = &Decline{Code: "INSUFFICIENT_FUNDS", Reason: "insufficient funds"}
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps environment failures to HTTP errors. Declines never
// pass through here; they are regular responses.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return NewHTTPError(http.StatusNotFound, ErrAccountNotFound.Error(), "ACCOUNT_NOT_FOUND")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrMissingRequestID):
		return NewHTTPError(http.StatusBadRequest, ErrMissingRequestID.Error(), "MISSING_REQUEST_ID")
	case errors.Is(err, ErrIdempotencyConflict):
		return NewHTTPError(http.StatusConflict, ErrIdempotencyConflict.Error(), "IDEMPOTENCY_CONFLICT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
