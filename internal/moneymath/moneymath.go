// Package moneymath provides the arithmetic primitives shared by every
// ledger-mutating component: tax back-calculation from gross amounts,
// proportional allocation of a shared discount, and cash denomination
// rounding. All amounts are int64 minor units; intermediate division uses
// decimals and rounds back to minor units at the boundary.
package moneymath

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount      = errors.New("negative_amount")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidDenomination = errors.New("invalid_denomination")

	// ErrInvariantViolation marks arithmetic outcomes that are unreachable
	// with correct inputs. Callers log it hard and never correct silently.
	ErrInvariantViolation = errors.New("money_invariant_violation")
)

var one = decimal.NewFromInt(1)

// GrossToNet splits a tax-inclusive gross amount into net and tax for the
// given percentage rate. net + tax == gross always holds: net is rounded
// half-up to minor units and tax is the exact remainder.
func GrossToNet(gross int64, taxRatePercent float64) (net int64, tax int64, err error) {
	if gross < 0 {
		return 0, 0, ErrNegativeAmount
	}
	if taxRatePercent < 0 || taxRatePercent > 100 {
		return 0, 0, ErrInvalidTaxRate
	}

	// divisor = 1 + rate/100, always >= 1 so division never blows up.
	divisor := one.Add(decimal.NewFromFloat(taxRatePercent).Div(decimal.NewFromInt(100)))
	net = decimal.NewFromInt(gross).Div(divisor).Round(0).IntPart()
	return net, gross - net, nil
}

// AllocateProportionally splits total across buckets weighted by each
// bucket's share of the summed weights. Every bucket except the last gets
// its rounded proportional share; the last bucket takes the remainder so
// the allocations sum to total exactly. When total does not exceed the
// weight sum, every allocation stays within [0, weight]: rounding overflow
// in the remainder bucket is shifted to earlier buckets with spare
// capacity. A zero weight sum allocates zero everywhere.
func AllocateProportionally(weights []int64, total int64) ([]int64, error) {
	if total < 0 {
		return nil, ErrNegativeAmount
	}

	var sum int64
	for _, w := range weights {
		if w < 0 {
			return nil, ErrNegativeAmount
		}
		sum += w
	}

	allocated := make([]int64, len(weights))
	if len(weights) == 0 || sum == 0 {
		return allocated, nil
	}

	totalDec := decimal.NewFromInt(total)
	sumDec := decimal.NewFromInt(sum)
	var assigned int64
	for i, w := range weights {
		if i == len(weights)-1 {
			allocated[i] = total - assigned
			break
		}
		share := totalDec.Mul(decimal.NewFromInt(w)).Div(sumDec).Round(0).IntPart()
		allocated[i] = share
		assigned += share
	}

	// Rounding half up keeps every proportional share at or below its
	// weight, but the remainder bucket can land outside [0, weight] when
	// the earlier shares all rounded the same way. total <= sum guarantees
	// enough capacity in the other buckets to absorb the difference.
	if last := len(weights) - 1; total <= sum {
		if excess := allocated[last] - weights[last]; excess > 0 {
			allocated[last] = weights[last]
			for j := last - 1; j >= 0 && excess > 0; j-- {
				spare := weights[j] - allocated[j]
				if spare > excess {
					spare = excess
				}
				allocated[j] += spare
				excess -= spare
			}
		} else if allocated[last] < 0 {
			deficit := -allocated[last]
			allocated[last] = 0
			for j := last - 1; j >= 0 && deficit > 0; j-- {
				take := allocated[j]
				if take > deficit {
					take = deficit
				}
				allocated[j] -= take
				deficit -= take
			}
		}
	}

	return allocated, nil
}

// RoundToDenomination rounds amount to the nearest multiple of the physical
// cash denomination, half up. Card and transfer amounts are never rounded;
// this applies only to cash tender.
func RoundToDenomination(amount, denomination int64) (int64, error) {
	if denomination <= 0 {
		return 0, ErrInvalidDenomination
	}
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	remainder := amount % denomination
	rounded := amount - remainder
	if remainder*2 >= denomination {
		rounded += denomination
	}
	return rounded, nil
}
