// Package domain defines cash register shifts, the immutable sale records
// made during them, and the pure reconciliation math run at close.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/moneymath"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "OPEN"
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

type SaleMethod string

const (
	SaleMethodCash     SaleMethod = "CASH"
	SaleMethodCard     SaleMethod = "CARD"
	SaleMethodTransfer SaleMethod = "TRANSFER"
)

type VarianceClass string

const (
	VarianceOK       VarianceClass = "OK"
	VarianceWarning  VarianceClass = "WARNING"
	VarianceCritical VarianceClass = "CRITICAL"
)

// Shift is one register session. Financial close fields are nil until the
// shift is closed and never change afterwards. At most one OPEN shift may
// exist per (organization, opener) pair.
type Shift struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	OpenedBy    snowflake.ID `gorm:"not null;index"`
	Status      ShiftStatus  `gorm:"type:text;not null"`
	OpeningCash int64        `gorm:"not null"`
	OpenedAt    time.Time    `gorm:"not null"`

	ClosedAt      *time.Time    `gorm:""`
	ExpectedCash  *int64        `gorm:""`
	ActualCash    *int64        `gorm:""`
	Difference    *int64        `gorm:""`
	TotalSales    *int64        `gorm:""`
	SalesCount    *int64        `gorm:""`
	VarianceClass VarianceClass `gorm:"type:text"`

	Notes     string    `gorm:"type:text"`
	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Shift) TableName() string { return "register_shifts" }

// Sale is one transaction recorded against an open shift. Append-only: sales
// are never updated or deleted, the close reads them back as ground truth.
type Sale struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	ShiftID    snowflake.ID `gorm:"not null;index"`
	Method     SaleMethod   `gorm:"type:text;not null"`
	Total      int64        `gorm:"not null"`
	OccurredAt time.Time    `gorm:"not null;index"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Sale) TableName() string { return "shift_sales" }

// Reconciliation is the derived close snapshot: expected drawer cash,
// the counted-vs-expected difference, and the all-methods sales rollup.
type Reconciliation struct {
	ExpectedCash int64
	Difference   int64
	TotalSales   int64
	SalesCount   int64
}

// Reconcile computes the close snapshot for a shift. Cash sales are rounded
// to the physical denomination before summing because that is what actually
// lands in the drawer; card and transfer sales count toward TotalSales but
// never toward expected cash. Difference is signed and never clamped.
func Reconcile(openingCash int64, sales []Sale, actualCash, denomination int64) (Reconciliation, error) {
	if openingCash < 0 || actualCash < 0 {
		return Reconciliation{}, moneymath.ErrNegativeAmount
	}

	rec := Reconciliation{ExpectedCash: openingCash}
	for _, sale := range sales {
		rec.TotalSales += sale.Total
		rec.SalesCount++
		if sale.Method != SaleMethodCash {
			continue
		}
		rounded, err := moneymath.RoundToDenomination(sale.Total, denomination)
		if err != nil {
			return Reconciliation{}, err
		}
		rec.ExpectedCash += rounded
	}
	rec.Difference = actualCash - rec.ExpectedCash
	return rec, nil
}

// ClassifyVariance grades the absolute difference against the policy
// thresholds. Advisory only: a close is never blocked by its class.
func ClassifyVariance(difference, warning, critical int64) VarianceClass {
	abs := difference
	if abs < 0 {
		abs = -abs
	}
	switch {
	case critical > 0 && abs >= critical:
		return VarianceCritical
	case warning > 0 && abs >= warning:
		return VarianceWarning
	default:
		return VarianceOK
	}
}

type OpenShiftRequest struct {
	OpeningCash int64  `json:"opening_cash"`
	Notes       string `json:"notes"`
}

type RecordSaleRequest struct {
	ShiftID string `json:"shift_id"`
	Method  string `json:"method"`
	Total   int64  `json:"total"`
}

type CloseShiftRequest struct {
	ShiftID    string `json:"shift_id"`
	ActualCash int64  `json:"actual_cash"`
	Notes      string `json:"notes"`
}

type ListShiftsRequest struct {
	Status    string
	PageToken string
	PageSize  int
}

type ListShiftsResponse struct {
	pagination.PageInfo
	Shifts []Shift `json:"shifts"`
}

type Service interface {
	Open(ctx context.Context, req OpenShiftRequest) (Shift, error)
	RecordSale(ctx context.Context, req RecordSaleRequest) (Sale, error)
	Close(ctx context.Context, req CloseShiftRequest) (Shift, error)
	GetByID(ctx context.Context, id string) (Shift, error)
	List(ctx context.Context, req ListShiftsRequest) (ListShiftsResponse, error)
}

var (
	ErrInvalidShift        = errors.New("invalid_shift")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrShiftNotFound       = errors.New("shift_not_found")
	ErrShiftAlreadyOpen    = errors.New("shift_already_open")
	ErrShiftNotOpen        = errors.New("shift_not_open")
	ErrNotOpener           = errors.New("not_opener")
	ErrConcurrentUpdate    = errors.New("concurrent_update")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
)
