package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Table maps (provider, model key) to per-1K-token rates and resolves raw
// provider-reported model strings to canonical pricing keys. A Table is
// immutable after construction and safe for concurrent use.
type Table struct {
	providers map[string]*providerTable
}

type providerTable struct {
	rates   map[string]Rate
	aliases map[string]string
	// canonical keys and alias prefixes sorted longest-first, so versioned
	// names match their most specific base model.
	keysByLen    []string
	aliasesByLen []string
}

// NewTable builds a pricing table from provider configs. Later configs for
// the same provider override earlier entries, which is how a user pricing
// directory extends the embedded defaults.
func NewTable(configs ...*ProviderPricing) (*Table, error) {
	t := &Table{providers: make(map[string]*providerTable)}
	for _, cfg := range configs {
		if cfg.Provider == "" {
			return nil, fmt.Errorf("pricing: config missing provider name")
		}
		if len(cfg.Models) == 0 {
			return nil, fmt.Errorf("pricing: provider %q has no models", cfg.Provider)
		}
		name := normalize(cfg.Provider)
		pt, ok := t.providers[name]
		if !ok {
			pt = &providerTable{rates: make(map[string]Rate), aliases: make(map[string]string)}
			t.providers[name] = pt
		}
		for _, m := range cfg.Models {
			rate, err := parseRate(cfg.Provider, m)
			if err != nil {
				return nil, err
			}
			pt.rates[normalize(m.Model)] = rate
		}
		for raw, canonical := range cfg.Aliases {
			key := normalize(canonical)
			if _, ok := pt.rates[key]; !ok {
				return nil, fmt.Errorf("pricing: provider %q alias %q points to unknown model %q", cfg.Provider, raw, canonical)
			}
			pt.aliases[normalize(raw)] = key
		}
	}
	for _, pt := range t.providers {
		pt.keysByLen = sortedByLen(pt.rates)
		pt.aliasesByLen = sortedByLenStr(pt.aliases)
	}
	return t, nil
}

func parseRate(provider string, m ModelPricing) (Rate, error) {
	in, err := decimal.NewFromString(m.InputPer1K)
	if err != nil {
		return Rate{}, fmt.Errorf("pricing: provider %q model %q input rate %q: %w", provider, m.Model, m.InputPer1K, err)
	}
	out, err := decimal.NewFromString(m.OutputPer1K)
	if err != nil {
		return Rate{}, fmt.Errorf("pricing: provider %q model %q output rate %q: %w", provider, m.Model, m.OutputPer1K, err)
	}
	if in.IsNegative() || out.IsNegative() {
		return Rate{}, fmt.Errorf("pricing: provider %q model %q has negative rate", provider, m.Model)
	}
	return Rate{InputPer1K: in, OutputPer1K: out}, nil
}

// Resolve maps a raw provider-reported model string to its canonical pricing
// key. Matching is case-insensitive; resolution order is exact canonical
// match, exact alias match, alias-prefix match, then longest canonical-key
// prefix or substring match for versioned names.
func (t *Table) Resolve(provider, rawModel string) (string, error) {
	pt, ok := t.providers[normalize(provider)]
	if !ok {
		return "", &UnknownModelError{Provider: provider, Model: rawModel}
	}

	norm := normalize(rawModel)
	if _, ok := pt.rates[norm]; ok {
		return norm, nil
	}
	if key, ok := pt.aliases[norm]; ok {
		return key, nil
	}
	for _, prefix := range pt.aliasesByLen {
		if strings.HasPrefix(norm, prefix) {
			return pt.aliases[prefix], nil
		}
	}
	for _, key := range pt.keysByLen {
		if strings.HasPrefix(norm, key) || strings.Contains(norm, key) {
			return key, nil
		}
	}
	return "", &UnknownModelError{Provider: provider, Model: rawModel}
}

// Price returns the rates for a canonical model key, as returned by Resolve.
func (t *Table) Price(provider, modelKey string) (Rate, error) {
	pt, ok := t.providers[normalize(provider)]
	if !ok {
		return Rate{}, &UnknownModelError{Provider: provider, Model: modelKey}
	}
	rate, ok := pt.rates[normalize(modelKey)]
	if !ok {
		return Rate{}, &UnknownModelError{Provider: provider, Model: modelKey}
	}
	return rate, nil
}

// Providers returns the provider names in the table, sorted.
func (t *Table) Providers() []string {
	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the canonical model keys for a provider, sorted.
func (t *Table) Models(provider string) []string {
	pt, ok := t.providers[normalize(provider)]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(pt.rates))
	for key := range pt.rates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

func sortedByLen(m map[string]Rate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortLenDesc(keys)
	return keys
}

func sortedByLenStr(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortLenDesc(keys)
	return keys
}

func sortLenDesc(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
}
