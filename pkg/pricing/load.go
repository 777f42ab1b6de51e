package pricing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML pricing file for one provider.
func LoadFile(path string) (*ProviderPricing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}
	cfg, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses YAML pricing data from raw bytes.
func LoadBytes(data []byte) (*ProviderPricing, error) {
	var cfg ProviderPricing
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pricing data: %w", err)
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("missing provider name")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("no models defined")
	}
	return &cfg, nil
}

// LoadDir loads every .yaml/.yml pricing file in a directory, sorted by
// filename for deterministic override order. A missing directory is not an
// error: the embedded defaults stand alone.
func LoadDir(dir string) ([]*ProviderPricing, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pricing dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var configs []*ProviderPricing
	for _, name := range names {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
