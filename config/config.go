package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Suggestions SuggestionsConfig `mapstructure:"suggestions"`
}

// SuggestionsConfig drives the place-suggestion pipeline: the feature flag,
// the cache TTL, query parameter bounds and the category mapping table used
// by the normalizer. The recommendable whitelist is deliberately NOT here;
// it is product policy, hardcoded in the category package.
type SuggestionsConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	CacheTTL         time.Duration     `mapstructure:"cacheTTL"`
	DefaultLimit     int               `mapstructure:"defaultLimit"`
	MaxLimit         int               `mapstructure:"maxLimit"`
	DefaultRadiusM   int               `mapstructure:"defaultRadiusM"`
	MinRadiusM       int               `mapstructure:"minRadiusM"`
	MaxRadiusM       int               `mapstructure:"maxRadiusM"`
	CategoryMapping  map[string]string `mapstructure:"categoryMapping"`
	FallbackCategory string            `mapstructure:"fallbackCategory"`
	Enhancer         EnhancerConfig    `mapstructure:"enhancer"`
	Places           PlacesConfig      `mapstructure:"places"`
}

// EnhancerConfig configures the best-effort LLM reason enhancement.
type EnhancerConfig struct {
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	PreferenceThreshold float64       `mapstructure:"preferenceThreshold"`
	MaxPlaces           int           `mapstructure:"maxPlaces"`
}

// PlacesConfig configures candidate retrieval sources.
type PlacesConfig struct {
	GoogleBaseURL string        `mapstructure:"googleBaseURL"`
	GoogleTimeout time.Duration `mapstructure:"googleTimeout"`
	MaxCandidates int           `mapstructure:"maxCandidates"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
