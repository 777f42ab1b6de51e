package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all costmeter configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Tracking TrackingConfig `mapstructure:"tracking"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// PricingConfig defines where user pricing overrides live. The embedded
// pricing data is always loaded; files in Dir extend or override it.
type PricingConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines default record attribution.
type DefaultsConfig struct {
	Org string `mapstructure:"org"`
}

// TrackingConfig defines recording behavior.
type TrackingConfig struct {
	// Policy is "strict" (recording failures are surfaced, the default) or
	// "best_effort" (logged and swallowed).
	Policy string `mapstructure:"policy"`
}

// BestEffort reports whether recording failures should be swallowed.
func (c *Config) BestEffort() bool {
	return c.Tracking.Policy == "best_effort"
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".costmeter"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".costmeter", "costs.db"))
	v.SetDefault("pricing.dir", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("defaults.org", "default")
	v.SetDefault("tracking.policy", "strict")

	v.SetEnvPrefix("COSTMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Tracking.Policy != "strict" && cfg.Tracking.Policy != "best_effort" {
		return nil, fmt.Errorf("tracking.policy must be strict or best_effort, got %q", cfg.Tracking.Policy)
	}

	return &cfg, nil
}
