// Package domain defines the document totals calculation contract: line
// items in, a consistent net/tax/total breakdown out. The calculation is a
// pure function of its inputs; nothing here touches storage.
package domain

import (
	"context"
	"errors"
)

// LineItem is one priced row of a sales document. UnitPrice is the
// tax-inclusive gross price in minor units; Discount is an absolute
// per-item reduction applied before the header discount.
type LineItem struct {
	Description    string  `json:"description,omitempty"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      int64   `json:"unit_price"`
	Discount       int64   `json:"discount"`
	TaxRatePercent float64 `json:"tax_rate_percent"`
}

// ItemTotals is the per-item slice of the document breakdown.
// Subtotal + TaxAmount == Total for every item.
type ItemTotals struct {
	Subtotal          int64 `json:"subtotal"`
	TaxAmount         int64 `json:"tax_amount"`
	Total             int64 `json:"total"`
	AllocatedDiscount int64 `json:"allocated_discount"`
}

// DocumentTotals is the full breakdown for one document.
type DocumentTotals struct {
	Items                     []ItemTotals `json:"items"`
	Subtotal                  int64        `json:"subtotal"`
	TaxAmount                 int64        `json:"tax_amount"`
	Total                     int64        `json:"total"`
	GrossBeforeGlobalDiscount int64        `json:"gross_before_global_discount"`
	GlobalDiscountApplied     int64        `json:"global_discount_applied"`
}

type ComputeTotalsRequest struct {
	Items          []LineItem `json:"items"`
	HeaderDiscount int64      `json:"header_discount"`
}

type Service interface {
	ComputeTotals(ctx context.Context, req ComputeTotalsRequest) (DocumentTotals, error)
}

var (
	ErrNoItems          = errors.New("invalid_items")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvalidDiscount  = errors.New("invalid_discount")
	ErrInvalidTaxRate   = errors.New("invalid_tax_rate")
)
