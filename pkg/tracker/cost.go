package tracker

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/metronai/costmeter/pkg/pricing"
)

// costPrecision is the currency precision costs are rounded to, using
// round-half-even so cent-level bias cannot accumulate across records.
const costPrecision = 6

// InvalidUsageError reports negative or otherwise malformed token counts.
type InvalidUsageError struct {
	TokensIn  int64
	TokensOut int64
}

func (e *InvalidUsageError) Error() string {
	return fmt.Sprintf("usage: token counts must be non-negative (in=%d, out=%d)", e.TokensIn, e.TokensOut)
}

// Calculator computes USD costs from token counts against a pricing table.
// It is pure and safe for concurrent use.
type Calculator struct {
	table *pricing.Table
}

// NewCalculator creates a calculator backed by a pricing table.
func NewCalculator(table *pricing.Table) *Calculator {
	return &Calculator{table: table}
}

// Compute resolves the raw model string and returns the cost of the call:
// tokensIn/1000 * input rate + tokensOut/1000 * output rate, rounded to six
// decimal places. Unresolvable models fail with pricing.UnknownModelError
// rather than pricing at zero.
func (c *Calculator) Compute(provider, rawModel string, tokensIn, tokensOut int64) (decimal.Decimal, error) {
	if tokensIn < 0 || tokensOut < 0 {
		return decimal.Zero, &InvalidUsageError{TokensIn: tokensIn, TokensOut: tokensOut}
	}

	key, err := c.table.Resolve(provider, rawModel)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := c.table.Price(provider, key)
	if err != nil {
		return decimal.Zero, err
	}

	cost := rate.InputPer1K.Mul(decimal.NewFromInt(tokensIn)).
		Add(rate.OutputPer1K.Mul(decimal.NewFromInt(tokensOut))).
		Shift(-3)
	return cost.RoundBank(costPrecision), nil
}
