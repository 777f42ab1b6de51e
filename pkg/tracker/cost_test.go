package tracker_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metronai/costmeter/pkg/pricing"
	"github.com/metronai/costmeter/pkg/tracker"
)

// per1kTable prices gpt-4o-mini at $0.15/1K input and $0.60/1K output.
func per1kTable(t *testing.T) *pricing.Table {
	t.Helper()
	table, err := pricing.NewTable(&pricing.ProviderPricing{
		Provider: "openai",
		Models: []pricing.ModelPricing{
			{Model: "gpt-4o-mini", InputPer1K: "0.15", OutputPer1K: "0.60"},
			{Model: "gpt-3.5-turbo", InputPer1K: "0.0005", OutputPer1K: "0.0015"},
		},
		Aliases: map[string]string{"gpt-4o-mini-latest": "gpt-4o-mini"},
	})
	require.NoError(t, err)
	return table
}

func TestCalculator_Compute(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	// 1000 in at 0.15/1K plus 500 out at 0.60/1K.
	cost, err := calc.Compute("openai", "gpt-4o-mini", 1000, 500)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.45")), "got %s", cost)
}

func TestCalculator_Compute_Deterministic(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	first, err := calc.Compute("openai", "gpt-4o-mini", 12345, 6789)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.Compute("openai", "gpt-4o-mini", 12345, 6789)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
	assert.False(t, first.IsNegative())
}

func TestCalculator_Compute_ZeroTokens(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	cost, err := calc.Compute("openai", "gpt-4o-mini", 0, 0)
	require.NoError(t, err)
	assert.True(t, cost.IsZero())
}

func TestCalculator_Compute_NegativeTokens(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	_, err := calc.Compute("openai", "gpt-4o-mini", -1, 0)
	var invalid *tracker.InvalidUsageError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, int64(-1), invalid.TokensIn)

	_, err = calc.Compute("openai", "gpt-4o-mini", 0, -1)
	require.True(t, errors.As(err, &invalid))
}

func TestCalculator_Compute_UnknownModel(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	_, err := calc.Compute("openai", "llama-70b", 100, 100)
	var unknown *pricing.UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "llama-70b", unknown.Model)
}

func TestCalculator_Compute_AliasSameCost(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	base, err := calc.Compute("openai", "gpt-4o-mini", 1000, 500)
	require.NoError(t, err)
	aliased, err := calc.Compute("openai", "gpt-4o-mini-latest", 1000, 500)
	require.NoError(t, err)
	dated, err := calc.Compute("openai", "gpt-4o-mini-2024-07-18", 1000, 500)
	require.NoError(t, err)

	assert.True(t, base.Equal(aliased))
	assert.True(t, base.Equal(dated))
}

func TestCalculator_Compute_RoundHalfEven(t *testing.T) {
	calc := tracker.NewCalculator(per1kTable(t))

	// 1 token at 0.0005/1K is 0.0000005: the sixth decimal stays even.
	cost, err := calc.Compute("openai", "gpt-3.5-turbo", 1, 0)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "got %s", cost)

	// 1 token at 0.0015/1K is 0.0000015: rounds up to the even 0.000002.
	cost, err = calc.Compute("openai", "gpt-3.5-turbo", 0, 1)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.000002")), "got %s", cost)
}
