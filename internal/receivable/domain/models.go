// Package domain defines the customer credit ledger: credits granted on a
// sale, payments that reduce them, and the status derivation shared by every
// mutation.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

// CreditStatus is always derivable from (balance, dueDate, canceled flag).
// The stored value exists for query performance and is audited against the
// derivation before every write.
type CreditStatus string

const (
	CreditStatusActive   CreditStatus = "ACTIVE"
	CreditStatusOverdue  CreditStatus = "OVERDUE"
	CreditStatusPaid     CreditStatus = "PAID"
	CreditStatusCanceled CreditStatus = "CANCELED"
)

// Credit is one accounts-receivable line. Balance starts at Amount and only
// decreases: payments bring it down, cancellation forgives the rest.
type Credit struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	CustomerID snowflake.ID `gorm:"not null;index"`
	Amount     int64        `gorm:"not null"`
	Balance    int64        `gorm:"not null"`
	DueDate    time.Time    `gorm:"not null"`
	Status     CreditStatus `gorm:"type:text;not null"`
	CanceledAt *time.Time   `gorm:""`
	Version    int64        `gorm:"not null;default:1"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Credit) TableName() string { return "credits" }

// Payment is one settlement against a credit. Payments are immutable.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	CreditID  snowflake.ID `gorm:"not null;index"`
	Amount    int64        `gorm:"not null"`
	Method    string       `gorm:"type:text;not null"`
	Reference string       `gorm:"type:text;not null"`
	PaidAt    time.Time    `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "credit_payments" }

// DeriveStatus computes the credit status from its inputs. Pure: the same
// (balance, dueDate, now) always yields the same status. Cancellation is
// handled by the caller; a canceled credit keeps CANCELED forever.
func DeriveStatus(balance int64, dueDate, now time.Time) CreditStatus {
	if balance <= 0 {
		return CreditStatusPaid
	}
	if dueDate.Before(now) {
		return CreditStatusOverdue
	}
	return CreditStatusActive
}

type CreateCreditRequest struct {
	CustomerID string    `json:"customer_id"`
	Amount     int64     `json:"amount"`
	DueDate    time.Time `json:"due_date"`
}

type RegisterPaymentRequest struct {
	CreditID string `json:"credit_id"`
	Amount   int64  `json:"amount"`
	Method   string `json:"method"`
}

// PaymentResult reports the ledger state after a mutation. DebtDelta is the
// signed change to the customer's aggregate debt; the service applies it in
// the same transaction and reports it so external rollups can follow suit.
type PaymentResult struct {
	CreditID  string       `json:"credit_id"`
	Balance   int64        `json:"balance"`
	Status    CreditStatus `json:"status"`
	DebtDelta int64        `json:"debt_delta"`
	Reference string       `json:"payment_reference,omitempty"`
}

type ListCreditsRequest struct {
	CustomerID string
	Status     string
	PageToken  string
	PageSize   int
}

type ListCreditsResponse struct {
	pagination.PageInfo
	Credits []Credit `json:"credits"`
}

type Service interface {
	Create(ctx context.Context, req CreateCreditRequest) (Credit, error)
	GetByID(ctx context.Context, id string) (Credit, error)
	List(ctx context.Context, req ListCreditsRequest) (ListCreditsResponse, error)
	RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (PaymentResult, error)
	Cancel(ctx context.Context, id string) (PaymentResult, error)
	Delete(ctx context.Context, id string) (PaymentResult, error)
}

var (
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidCredit       = errors.New("invalid_credit")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrCreditNotFound      = errors.New("credit_not_found")
	ErrCreditNotPayable    = errors.New("credit_not_payable")
	ErrOverpayment         = errors.New("overpayment")
	ErrCreditCanceled      = errors.New("credit_canceled")
	ErrCreditHasPayments   = errors.New("credit_has_payments")
	ErrConcurrentUpdate    = errors.New("concurrent_update")
	ErrStatusDrift         = errors.New("status_drift")
	ErrInvalidOrganization = errors.New("invalid_organization")
)
