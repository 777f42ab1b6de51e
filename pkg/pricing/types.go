package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rate is the price of a model as USD per 1000 tokens.
type Rate struct {
	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal
}

// ModelPricing is one model entry in a YAML pricing file. Rates are decimal
// strings so fractional-cent prices survive parsing exactly.
type ModelPricing struct {
	Model       string `yaml:"model"`
	InputPer1K  string `yaml:"input_per_1k"`
	OutputPer1K string `yaml:"output_per_1k"`
}

// ProviderPricing holds YAML-loaded pricing data for one provider.
// Aliases map a raw model-name prefix (e.g. a dated snapshot family) to the
// canonical pricing key it bills as.
type ProviderPricing struct {
	Provider string            `yaml:"provider"`
	Updated  string            `yaml:"updated"`
	Models   []ModelPricing    `yaml:"models"`
	Aliases  map[string]string `yaml:"aliases,omitempty"`
}

// UnknownModelError reports a model string that no pricing entry or alias
// resolves to. It carries the raw string so callers can surface a clear
// diagnostic instead of silently recording zero cost.
type UnknownModelError struct {
	Provider string
	Model    string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("pricing: no entry for model %q (provider %q)", e.Model, e.Provider)
}
