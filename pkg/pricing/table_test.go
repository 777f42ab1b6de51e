package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metronai/costmeter/pkg/pricing"
)

func testTable(t *testing.T) *pricing.Table {
	t.Helper()
	table, err := pricing.NewTable(
		&pricing.ProviderPricing{
			Provider: "openai",
			Models: []pricing.ModelPricing{
				{Model: "gpt-4", InputPer1K: "0.03", OutputPer1K: "0.06"},
				{Model: "gpt-4o", InputPer1K: "0.005", OutputPer1K: "0.015"},
				{Model: "gpt-4o-mini", InputPer1K: "0.00015", OutputPer1K: "0.0006"},
			},
			Aliases: map[string]string{"chatgpt-4o-latest": "gpt-4o"},
		},
		&pricing.ProviderPricing{
			Provider: "anthropic",
			Models: []pricing.ModelPricing{
				{Model: "claude-sonnet-3.5", InputPer1K: "0.003", OutputPer1K: "0.015"},
			},
			Aliases: map[string]string{"claude-3-5-sonnet": "claude-sonnet-3.5"},
		},
	)
	require.NoError(t, err)
	return table
}

func TestTable_Resolve(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name     string
		provider string
		raw      string
		want     string
	}{
		{"exact", "openai", "gpt-4o", "gpt-4o"},
		{"case insensitive", "openai", "GPT-4o", "gpt-4o"},
		{"underscores normalized", "openai", "gpt_4o_mini", "gpt-4o-mini"},
		{"exact alias", "openai", "chatgpt-4o-latest", "gpt-4o"},
		{"alias prefix", "anthropic", "claude-3-5-sonnet-20241022", "claude-sonnet-3.5"},
		{"dated snapshot prefix", "openai", "gpt-4o-2024-05-13", "gpt-4o"},
		{"most specific key wins", "openai", "gpt-4o-mini-2024-07-18", "gpt-4o-mini"},
		{"whitespace trimmed", "openai", "  gpt-4  ", "gpt-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := table.Resolve(tt.provider, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestTable_Resolve_Unknown(t *testing.T) {
	table := testTable(t)

	_, err := table.Resolve("openai", "llama-70b")
	require.Error(t, err)

	var unknownErr *pricing.UnknownModelError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "llama-70b", unknownErr.Model)
	assert.Equal(t, "openai", unknownErr.Provider)
}

func TestTable_Resolve_UnknownProvider(t *testing.T) {
	table := testTable(t)

	_, err := table.Resolve("mistral", "mistral-large")
	var unknownErr *pricing.UnknownModelError
	require.True(t, errors.As(err, &unknownErr))
}

func TestTable_Price(t *testing.T) {
	table := testTable(t)

	rate, err := table.Price("openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.True(t, rate.InputPer1K.Equal(decimal.RequireFromString("0.00015")))
	assert.True(t, rate.OutputPer1K.Equal(decimal.RequireFromString("0.0006")))

	_, err = table.Price("openai", "nonexistent")
	var unknownErr *pricing.UnknownModelError
	require.True(t, errors.As(err, &unknownErr))
}

func TestTable_AliasMatchesBasePrice(t *testing.T) {
	table := testTable(t)

	baseKey, err := table.Resolve("anthropic", "claude-sonnet-3.5")
	require.NoError(t, err)
	aliasKey, err := table.Resolve("anthropic", "claude-3-5-sonnet-20250601")
	require.NoError(t, err)
	assert.Equal(t, baseKey, aliasKey)

	baseRate, err := table.Price("anthropic", baseKey)
	require.NoError(t, err)
	aliasRate, err := table.Price("anthropic", aliasKey)
	require.NoError(t, err)
	assert.True(t, baseRate.InputPer1K.Equal(aliasRate.InputPer1K))
	assert.True(t, baseRate.OutputPer1K.Equal(aliasRate.OutputPer1K))
}

func TestNewTable_Validation(t *testing.T) {
	_, err := pricing.NewTable(&pricing.ProviderPricing{
		Provider: "openai",
		Models:   []pricing.ModelPricing{{Model: "gpt-4", InputPer1K: "-1", OutputPer1K: "0.06"}},
	})
	assert.Error(t, err)

	_, err = pricing.NewTable(&pricing.ProviderPricing{
		Provider: "openai",
		Models:   []pricing.ModelPricing{{Model: "gpt-4", InputPer1K: "bogus", OutputPer1K: "0.06"}},
	})
	assert.Error(t, err)

	_, err = pricing.NewTable(&pricing.ProviderPricing{
		Provider: "openai",
		Models:   []pricing.ModelPricing{{Model: "gpt-4", InputPer1K: "0.03", OutputPer1K: "0.06"}},
		Aliases:  map[string]string{"gpt-x": "no-such-model"},
	})
	assert.Error(t, err)

	_, err = pricing.NewTable(&pricing.ProviderPricing{Provider: "", Models: nil})
	assert.Error(t, err)
}

func TestNewTable_LaterConfigOverrides(t *testing.T) {
	table, err := pricing.NewTable(
		&pricing.ProviderPricing{
			Provider: "openai",
			Models:   []pricing.ModelPricing{{Model: "gpt-4o", InputPer1K: "0.005", OutputPer1K: "0.015"}},
		},
		&pricing.ProviderPricing{
			Provider: "openai",
			Models:   []pricing.ModelPricing{{Model: "gpt-4o", InputPer1K: "0.004", OutputPer1K: "0.012"}},
		},
	)
	require.NoError(t, err)

	rate, err := table.Price("openai", "gpt-4o")
	require.NoError(t, err)
	assert.True(t, rate.InputPer1K.Equal(decimal.RequireFromString("0.004")))
}

func TestDefaultTable(t *testing.T) {
	table, err := pricing.DefaultTable()
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "openai"}, table.Providers())
	assert.Contains(t, table.Models("openai"), "gpt-4o-mini")
	assert.Contains(t, table.Models("anthropic"), "claude-opus-4")

	key, err := table.Resolve("anthropic", "claude-3-opus-20240229")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4", key)
}
