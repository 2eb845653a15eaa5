// Package domain defines the accounts-payable ledger: supplier obligations,
// payment applications against them, and the status derivation with its
// explicit-hint escape hatch.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type PayableStatus string

const (
	PayableStatusPending  PayableStatus = "PENDING"
	PayableStatusPartial  PayableStatus = "PARTIAL"
	PayableStatusPaid     PayableStatus = "PAID"
	PayableStatusOverdue  PayableStatus = "OVERDUE"
	PayableStatusCanceled PayableStatus = "CANCELED"
)

// AccountPayable is one supplier obligation. Balance discipline matches the
// receivable side: starts at Amount, only decreases, never goes negative.
type AccountPayable struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	OrgID      snowflake.ID  `gorm:"not null;index"`
	SupplierID snowflake.ID  `gorm:"not null;index"`
	Amount     int64         `gorm:"not null"`
	Balance    int64         `gorm:"not null"`
	DueDate    time.Time     `gorm:"not null"`
	Status     PayableStatus `gorm:"type:text;not null"`
	CanceledAt *time.Time    `gorm:""`
	Version    int64         `gorm:"not null;default:1"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AccountPayable) TableName() string { return "accounts_payable" }

// PayableApplication is one payment applied against a payable. Immutable.
type PayableApplication struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	PayableID snowflake.ID `gorm:"not null;index"`
	Amount    int64        `gorm:"not null"`
	Method    string       `gorm:"type:text;not null"`
	Reference string       `gorm:"type:text;not null"`
	PaidAt    time.Time    `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayableApplication) TableName() string { return "payable_applications" }

// Supplier carries the denormalized outstanding-payable rollup, maintained
// through explicit deltas the same way customer debt is.
type Supplier struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`
	Outstanding int64        `gorm:"not null;default:0"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Supplier) TableName() string { return "suppliers" }

// StatusHint says whether the caller explicitly requested a status. The
// zero value means no hint; call sites that want one must say so, which
// keeps intent visible at every caller.
type StatusHint struct {
	explicit bool
	status   PayableStatus
}

func NoHint() StatusHint { return StatusHint{} }

func ExplicitStatus(status PayableStatus) StatusHint {
	return StatusHint{explicit: true, status: status}
}

func (h StatusHint) Explicit() (PayableStatus, bool) {
	return h.status, h.explicit
}

// DeriveStatus computes the payable status. Richer than the receivable rule:
// CANCELED is sticky and beats everything; a zero balance is PAID; past the
// due date the status is OVERDUE unless the caller explicitly held it at
// PARTIAL; before the due date a partially paid obligation shows PARTIAL
// when the caller asked for it, otherwise PENDING.
func DeriveStatus(amount, balance int64, dueDate, now time.Time, current PayableStatus, hint StatusHint) PayableStatus {
	if current == PayableStatusCanceled {
		return PayableStatusCanceled
	}
	if balance <= 0 {
		return PayableStatusPaid
	}

	hinted, explicit := hint.Explicit()
	if dueDate.Before(now) {
		if explicit && hinted == PayableStatusPartial {
			return PayableStatusPartial
		}
		return PayableStatusOverdue
	}
	if explicit && hinted == PayableStatusPartial && balance < amount {
		return PayableStatusPartial
	}
	return PayableStatusPending
}

type CreatePayableRequest struct {
	SupplierID string    `json:"supplier_id"`
	Amount     int64     `json:"amount"`
	DueDate    time.Time `json:"due_date"`
}

type RegisterPaymentRequest struct {
	PayableID string `json:"payable_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	// MarkPartial holds the payable at PARTIAL even past its due date.
	MarkPartial bool `json:"mark_partial"`
}

type PaymentResult struct {
	PayableID        string        `json:"payable_id"`
	Balance          int64         `json:"balance"`
	Status           PayableStatus `json:"status"`
	OutstandingDelta int64         `json:"outstanding_delta"`
	Reference        string        `json:"payment_reference,omitempty"`
}

type ListPayablesRequest struct {
	SupplierID string
	Status     string
	PageToken  string
	PageSize   int
}

type ListPayablesResponse struct {
	pagination.PageInfo
	Payables []AccountPayable `json:"payables"`
}

type Service interface {
	Create(ctx context.Context, req CreatePayableRequest) (AccountPayable, error)
	GetByID(ctx context.Context, id string) (AccountPayable, error)
	List(ctx context.Context, req ListPayablesRequest) (ListPayablesResponse, error)
	RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (PaymentResult, error)
	Cancel(ctx context.Context, id string) (PaymentResult, error)
	Delete(ctx context.Context, id string) (PaymentResult, error)
}

var (
	ErrInvalidSupplier     = errors.New("invalid_supplier")
	ErrInvalidPayable      = errors.New("invalid_payable")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrPayableNotFound     = errors.New("payable_not_found")
	ErrPayableAlreadyPaid  = errors.New("payable_already_paid")
	ErrPayableCanceled     = errors.New("payable_canceled")
	ErrOverpayment         = errors.New("overpayment")
	ErrPayableHasPayments  = errors.New("payable_has_payments")
	ErrConcurrentUpdate    = errors.New("concurrent_update")
	ErrStatusDrift         = errors.New("status_drift")
	ErrInvalidOrganization = errors.New("invalid_organization")
)
