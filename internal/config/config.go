package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Suggest  SuggestConfig
	Import   ImportConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SuggestConfig holds categorization backend settings.
type SuggestConfig struct {
	EndpointURL    string `mapstructure:"endpoint_url"`
	Model          string
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ImportConfig holds the statement import policy. DebitsOnly controls whether
// positive (credit) amounts are skipped at import time. The two policies are
// not reconcilable after the fact, so a deployment must pick one and keep it.
type ImportConfig struct {
	DebitsOnly bool `mapstructure:"debits_only"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// Load reads configuration from file and env. Env var overrides use prefix ORCAMENTO_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "orcamento", "orcamento.db"))
	v.SetDefault("suggest.endpoint_url", "http://localhost:11434")
	v.SetDefault("suggest.model", "qwen2.5:1.5b")
	v.SetDefault("suggest.timeout_seconds", 30)
	v.SetDefault("import.debits_only", false)
	v.SetDefault("ui.currency_symbol", "R$")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("ORCAMENTO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "orcamento"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ORCAMENTO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
