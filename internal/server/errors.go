package server

import (
	"errors"
	"net/http"
	"strings"

	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	documentdomain "github.com/Girosmedia/tendo-app-sub002/internal/document/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/moneymath"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	subscriptiondomain "github.com/Girosmedia/tendo-app-sub002/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, receivabledomain.ErrInvalidOrganization),
		errors.Is(err, payabledomain.ErrInvalidOrganization),
		errors.Is(err, cashregisterdomain.ErrInvalidOrganization),
		errors.Is(err, subscriptiondomain.ErrInvalidOrganization),
		errors.Is(err, cashregisterdomain.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, cashregisterdomain.ErrNotOpener):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isStateConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state_transition",
			Message: err.Error(),
		}
	default:
		// Includes status drift and conservation failures: defects, not
		// caller mistakes, so they surface as plain 500s.
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, moneymath.ErrNegativeAmount),
		errors.Is(err, moneymath.ErrInvalidTaxRate),
		errors.Is(err, moneymath.ErrInvalidDenomination),
		errors.Is(err, documentdomain.ErrNoItems),
		errors.Is(err, documentdomain.ErrInvalidQuantity),
		errors.Is(err, documentdomain.ErrInvalidUnitPrice),
		errors.Is(err, documentdomain.ErrInvalidDiscount),
		errors.Is(err, documentdomain.ErrInvalidTaxRate):
		return true
	case errors.Is(err, receivabledomain.ErrInvalidCustomer),
		errors.Is(err, receivabledomain.ErrInvalidCredit),
		errors.Is(err, receivabledomain.ErrInvalidAmount),
		errors.Is(err, receivabledomain.ErrInvalidDueDate),
		errors.Is(err, receivabledomain.ErrInvalidStatus):
		return true
	case errors.Is(err, payabledomain.ErrInvalidSupplier),
		errors.Is(err, payabledomain.ErrInvalidPayable),
		errors.Is(err, payabledomain.ErrInvalidAmount),
		errors.Is(err, payabledomain.ErrInvalidDueDate),
		errors.Is(err, payabledomain.ErrInvalidStatus):
		return true
	case errors.Is(err, cashregisterdomain.ErrInvalidShift),
		errors.Is(err, cashregisterdomain.ErrInvalidAmount),
		errors.Is(err, cashregisterdomain.ErrInvalidMethod),
		errors.Is(err, cashregisterdomain.ErrInvalidStatus):
		return true
	case errors.Is(err, subscriptiondomain.ErrInvalidPlan),
		errors.Is(err, subscriptiondomain.ErrInvalidPrice),
		errors.Is(err, subscriptiondomain.ErrInvalidAction),
		errors.Is(err, subscriptiondomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, receivabledomain.ErrCreditNotFound),
		errors.Is(err, payabledomain.ErrPayableNotFound),
		errors.Is(err, cashregisterdomain.ErrShiftNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isStateConflictError(err error) bool {
	switch {
	case errors.Is(err, receivabledomain.ErrCreditNotPayable),
		errors.Is(err, receivabledomain.ErrCreditCanceled),
		errors.Is(err, receivabledomain.ErrCreditHasPayments),
		errors.Is(err, receivabledomain.ErrOverpayment),
		errors.Is(err, receivabledomain.ErrConcurrentUpdate):
		return true
	case errors.Is(err, payabledomain.ErrPayableAlreadyPaid),
		errors.Is(err, payabledomain.ErrPayableCanceled),
		errors.Is(err, payabledomain.ErrPayableHasPayments),
		errors.Is(err, payabledomain.ErrOverpayment),
		errors.Is(err, payabledomain.ErrConcurrentUpdate):
		return true
	case errors.Is(err, cashregisterdomain.ErrShiftAlreadyOpen),
		errors.Is(err, cashregisterdomain.ErrShiftNotOpen),
		errors.Is(err, cashregisterdomain.ErrConcurrentUpdate):
		return true
	case errors.Is(err, subscriptiondomain.ErrRenewCanceled),
		errors.Is(err, subscriptiondomain.ErrSubscriptionExists),
		errors.Is(err, subscriptiondomain.ErrConcurrentUpdate):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
