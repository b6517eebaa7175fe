// Package config loads engine configuration from .ace/config.yaml with
// environment-variable overrides (ACE_ prefix).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StateDirName is the per-project state directory holding config, the
// import index and the ledger database.
const StateDirName = ".ace"

// Config represents the complete engine configuration.
type Config struct {
	TokenBudget  int           `json:"tokenBudget" mapstructure:"tokenBudget"`
	ClusterDepth int           `json:"clusterDepth" mapstructure:"clusterDepth"`
	IndexPath    string        `json:"indexPath" mapstructure:"indexPath"`
	Logging      LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		TokenBudget:  8000,
		ClusterDepth: 2,
		IndexPath:    "index.json",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// StateDir returns the state directory under projectRoot.
func StateDir(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName)
}

// Load reads configuration from <projectRoot>/.ace/config.yaml.
// A missing file yields DefaultConfig. Environment variables such as
// ACE_TOKENBUDGET override file values.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("tokenBudget", defaults.TokenBudget)
	v.SetDefault("clusterDepth", defaults.ClusterDepth)
	v.SetDefault("indexPath", defaults.IndexPath)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(StateDir(projectRoot))

	v.SetEnvPrefix("ACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants the core does not defend against at call
// time.
func (c *Config) Validate() error {
	if c.TokenBudget < 0 {
		return fmt.Errorf("tokenBudget must be >= 0, got %d", c.TokenBudget)
	}
	if c.ClusterDepth < 1 {
		return fmt.Errorf("clusterDepth must be >= 1, got %d", c.ClusterDepth)
	}
	return nil
}

// ResolveIndexPath returns the absolute path of the import index file.
func (c *Config) ResolveIndexPath(projectRoot string) string {
	if filepath.IsAbs(c.IndexPath) {
		return c.IndexPath
	}
	return filepath.Join(StateDir(projectRoot), c.IndexPath)
}
