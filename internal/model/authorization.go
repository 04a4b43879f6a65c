package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies how the card was presented to the merchant.
// Card-not-present requests additionally require CVC2, cardholder name and
// billing address cross-checks.
type TransactionType string

const (
	TransactionTypeCardPresent    TransactionType = "card_present"
	TransactionTypeCardNotPresent TransactionType = "card_not_present"
	TransactionTypeContactless    TransactionType = "contactless"
	TransactionTypeATMWithdrawal  TransactionType = "atm_withdrawal"
)

// ParseTransactionType parses a wire value into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionTypeCardPresent, TransactionTypeCardNotPresent,
		TransactionTypeContactless, TransactionTypeATMWithdrawal:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// AuthorizationRequest is a single authorization attempt. RequestID is the
// caller-supplied idempotency key; retries with the same RequestID replay the
// original decision without debiting the balance twice.
type AuthorizationRequest struct {
	RequestID            string
	CardNumber           string
	CVC2                 string
	CardholderName       string
	Amount               decimal.Decimal
	MerchantCategoryCode string
	Type                 TransactionType
	BillingAddress       *Address
	Timestamp            time.Time
}

// AuthorizationResult is the decision for one request. Exactly one of
// AuthorizationCode (approved) or DeclineReason (declined) is set; a declined
// result always carries a zero authorized amount.
type AuthorizationResult struct {
	Approved          bool            `json:"approved"`
	AuthorizationCode string          `json:"authorization_code,omitempty"`
	AmountAuthorized  decimal.Decimal `json:"amount_authorized"`
	DeclineCode       string          `json:"decline_code,omitempty"`
	DeclineReason     string          `json:"decline_reason,omitempty"`
}
