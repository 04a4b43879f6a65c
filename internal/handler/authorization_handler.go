package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/errors"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/model"
	"github.com/oliveira-flavio-br/authorizer-agentic-build/internal/service"
)

// AuthorizationHandler handles the authorization endpoint.
type AuthorizationHandler struct {
	authzService service.AuthorizationService
}

// NewAuthorizationHandler creates a new authorization handler.
func NewAuthorizationHandler(authzService service.AuthorizationService) *AuthorizationHandler {
	return &AuthorizationHandler{authzService: authzService}
}

// AddressRequest carries a billing address on an authorization request.
type AddressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// AuthorizeRequest represents a card authorization request.
type AuthorizeRequest struct {
	RequestID            string          `json:"request_id" validate:"required,uuid"`
	CardNumber           string          `json:"card_number" validate:"required"`
	CVC2                 string          `json:"cvc2,omitempty"`
	CardholderName       string          `json:"cardholder_name,omitempty"`
	Amount               string          `json:"amount" validate:"required"`
	MerchantCategoryCode string          `json:"merchant_category_code" validate:"required,len=4,numeric"`
	TransactionType      string          `json:"transaction_type" validate:"required"`
	BillingAddress       *AddressRequest `json:"billing_address,omitempty"`
}

// AuthorizeResponse represents the decision for one request.
type AuthorizeResponse struct {
	RequestID         string `json:"request_id"`
	Approved          bool   `json:"approved"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
	AmountAuthorized  string `json:"amount_authorized"`
	DeclineCode       string `json:"decline_code,omitempty"`
	DeclineReason     string `json:"decline_reason,omitempty"`
}

// Authorize godoc
// @Summary Authorize a card transaction
// @Description Runs the authorization decision chain and, on approval, reserves the amount against the account balance. A decline is a normal 200 response.
// @Tags authorizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AuthorizeRequest true "Authorization request"
// @Success 200 {object} AuthorizeResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /authorizations [post]
func (h *AuthorizationHandler) Authorize(c echo.Context) error {
	var req AuthorizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid amount",
			Code:  "INVALID_AMOUNT",
		})
	}

	txnType, err := model.ParseTransactionType(req.TransactionType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_TRANSACTION_TYPE",
		})
	}

	authzReq := &model.AuthorizationRequest{
		RequestID:            req.RequestID,
		CardNumber:           req.CardNumber,
		CVC2:                 req.CVC2,
		CardholderName:       req.CardholderName,
		Amount:               amount,
		MerchantCategoryCode: req.MerchantCategoryCode,
		Type:                 txnType,
	}
	if req.BillingAddress != nil {
		authzReq.BillingAddress = &model.Address{
			Street:     req.BillingAddress.Street,
			City:       req.BillingAddress.City,
			State:      req.BillingAddress.State,
			PostalCode: req.BillingAddress.PostalCode,
			Country:    req.BillingAddress.Country,
		}
	}

	result, err := h.authzService.Authorize(c.Request().Context(), authzReq)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, AuthorizeResponse{
		RequestID:         req.RequestID,
		Approved:          result.Approved,
		AuthorizationCode: result.AuthorizationCode,
		AmountAuthorized:  result.AmountAuthorized.StringFixed(2),
		DeclineCode:       result.DeclineCode,
		DeclineReason:     result.DeclineReason,
	})
}
