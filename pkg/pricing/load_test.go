package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metronai/costmeter/pkg/pricing"
)

const samplePricingYAML = `provider: openai
updated: "2026-01-01"
models:
  - model: gpt-4o
    input_per_1k: "0.005"
    output_per_1k: "0.015"
aliases:
  chatgpt-4o-latest: gpt-4o
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePricingYAML), 0o644))

	cfg, err := pricing.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Len(t, cfg.Models, 1)
	assert.Equal(t, "gpt-4o", cfg.Aliases["chatgpt-4o-latest"])
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := pricing.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadBytes_Invalid(t *testing.T) {
	_, err := pricing.LoadBytes([]byte("provider: openai\nmodels: []\n"))
	assert.Error(t, err)

	_, err = pricing.LoadBytes([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai.yaml"), []byte(samplePricingYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	configs, err := pricing.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "openai", configs[0].Provider)
}

func TestLoadDir_Missing(t *testing.T) {
	configs, err := pricing.LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, configs)
}

func TestTableWithOverrides(t *testing.T) {
	dir := t.TempDir()
	override := `provider: openai
models:
  - model: gpt-4o
    input_per_1k: "0.001"
    output_per_1k: "0.002"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai.yaml"), []byte(override), 0o644))

	table, err := pricing.TableWithOverrides(dir)
	require.NoError(t, err)

	rate, err := table.Price("openai", "gpt-4o")
	require.NoError(t, err)
	assert.True(t, rate.InputPer1K.Equal(decimal.RequireFromString("0.001")))

	// Defaults for other models are still present.
	_, err = table.Price("openai", "gpt-4o-mini")
	assert.NoError(t, err)
}
