package service

import (
	"context"
	"fmt"

	documentdomain "github.com/Girosmedia/tendo-app-sub002/internal/document/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/moneymath"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	log *zap.Logger
}

type ServiceParam struct {
	fx.In

	Log *zap.Logger
}

func NewService(p ServiceParam) documentdomain.Service {
	return &Service{
		log: p.Log.Named("document.service"),
	}
}

// ComputeTotals turns an ordered list of tax-inclusive line items and a
// requested header discount into a consistent document breakdown.
//
// The header discount is clamped to the document gross, never rejected:
// a discount larger than the document simply zeroes it out. Payments work
// the other way around (overpaying a balance is a hard error); the two
// policies are intentionally different and both are load-bearing.
func (s *Service) ComputeTotals(ctx context.Context, req documentdomain.ComputeTotalsRequest) (documentdomain.DocumentTotals, error) {
	_ = ctx

	if len(req.Items) == 0 {
		return documentdomain.DocumentTotals{}, documentdomain.ErrNoItems
	}

	itemGross := make([]int64, len(req.Items))
	for i, item := range req.Items {
		gross, err := lineGross(item)
		if err != nil {
			return documentdomain.DocumentTotals{}, err
		}
		itemGross[i] = gross
	}

	var grossBefore int64
	for _, g := range itemGross {
		grossBefore += g
	}

	applied := req.HeaderDiscount
	if applied < 0 {
		applied = 0
	}
	if applied > grossBefore {
		applied = grossBefore
	}

	// Allocation follows input order; the last item absorbs the rounding
	// remainder so the allocated amounts sum to the applied discount exactly.
	allocated, err := moneymath.AllocateProportionally(itemGross, applied)
	if err != nil {
		return documentdomain.DocumentTotals{}, err
	}

	totals := documentdomain.DocumentTotals{
		Items:                     make([]documentdomain.ItemTotals, len(req.Items)),
		GrossBeforeGlobalDiscount: grossBefore,
		GlobalDiscountApplied:     applied,
	}

	for i, item := range req.Items {
		adjusted := itemGross[i] - allocated[i]
		if adjusted < 0 {
			adjusted = 0
		}

		net, tax, err := moneymath.GrossToNet(adjusted, item.TaxRatePercent)
		if err != nil {
			return documentdomain.DocumentTotals{}, err
		}

		totals.Items[i] = documentdomain.ItemTotals{
			Subtotal:          net,
			TaxAmount:         tax,
			Total:             adjusted,
			AllocatedDiscount: allocated[i],
		}
		totals.Subtotal += net
		totals.TaxAmount += tax
		totals.Total += adjusted
	}

	if totals.Total != grossBefore-applied {
		s.log.Error("document totals do not conserve the discounted gross",
			zap.Int64("total", totals.Total),
			zap.Int64("gross_before_discount", grossBefore),
			zap.Int64("discount_applied", applied),
		)
		return documentdomain.DocumentTotals{}, fmt.Errorf(
			"document total %d != gross %d - discount %d: %w",
			totals.Total, grossBefore, applied, moneymath.ErrInvariantViolation,
		)
	}

	return totals, nil
}

func lineGross(item documentdomain.LineItem) (int64, error) {
	if item.Quantity < 0 {
		return 0, documentdomain.ErrInvalidQuantity
	}
	if item.UnitPrice < 0 {
		return 0, documentdomain.ErrInvalidUnitPrice
	}
	if item.Discount < 0 {
		return 0, documentdomain.ErrInvalidDiscount
	}
	if item.TaxRatePercent < 0 || item.TaxRatePercent > 100 {
		return 0, documentdomain.ErrInvalidTaxRate
	}

	gross := decimal.NewFromFloat(item.Quantity).
		Mul(decimal.NewFromInt(item.UnitPrice)).
		Round(0).
		IntPart()
	gross -= item.Discount
	if gross < 0 {
		gross = 0
	}
	return gross, nil
}
