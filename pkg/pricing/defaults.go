package pricing

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed data/*.yaml
var defaultsFS embed.FS

// DefaultConfigs returns the pricing configs shipped with the binary.
func DefaultConfigs() ([]*ProviderPricing, error) {
	entries, err := defaultsFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("read embedded pricing: %w", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var configs []*ProviderPricing
	for _, name := range names {
		data, err := defaultsFS.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("read embedded pricing %s: %w", name, err)
		}
		cfg, err := LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("embedded pricing %s: %w", name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// DefaultTable builds a table from the embedded pricing data alone.
func DefaultTable() (*Table, error) {
	configs, err := DefaultConfigs()
	if err != nil {
		return nil, err
	}
	return NewTable(configs...)
}

// TableWithOverrides builds a table from the embedded defaults plus any
// pricing files found in dir. Dir entries override defaults for the same
// provider/model; an empty dir name skips overrides.
func TableWithOverrides(dir string) (*Table, error) {
	configs, err := DefaultConfigs()
	if err != nil {
		return nil, err
	}
	if dir != "" {
		extra, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		configs = append(configs, extra...)
	}
	return NewTable(configs...)
}
