// Package config loads and validates ingest configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/spf13/viper"

	"github.com/JakeFAU/boe-sumario-crawler/internal/sink"
)

// Year bounds accepted for catalog.year.
const (
	MinYear = 1900
	MaxYear = 9999
)

// Config captures all ingest configuration knobs loaded via Viper.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Text     TextConfig     `mapstructure:"text"`
	Output   OutputConfig   `mapstructure:"output"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Themes   ThemesConfig   `mapstructure:"themes"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// CatalogConfig selects what to crawl.
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Year    int    `mapstructure:"year" validate:"gte=1900,lte=9999"`
}

// HTTPConfig configures the fetcher's retry behavior.
type HTTPConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxTries     int           `mapstructure:"max_tries" validate:"gt=0"`
	BackoffBase  float64       `mapstructure:"backoff_base" validate:"gte=1"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes" validate:"gte=0"`
}

// ThrottleConfig spaces catalog and document requests.
type ThrottleConfig struct {
	DayDelay  time.Duration `mapstructure:"day_delay" validate:"gte=0"`
	ItemDelay time.Duration `mapstructure:"item_delay" validate:"gte=0"`
}

// TextConfig controls text attachment.
type TextConfig struct {
	Inline   bool `mapstructure:"inline"`
	MaxItems int  `mapstructure:"max_items" validate:"gte=0"`
	Truncate int  `mapstructure:"truncate" validate:"gte=0"`
}

// OutputConfig sets where the JSON Lines dataset goes.
type OutputConfig struct {
	Path string `mapstructure:"path" validate:"notblank"`
	Gzip bool   `mapstructure:"gzip"`
}

// PostgresConfig enables the optional row sink.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table" validate:"required_with=DSN,omitempty,pgtable"`
}

// ThemesConfig points at an optional theme table file.
type ThemesConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig enables the operator HTTP server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultUserAgent identifies the crawler to the BOE servers.
const DefaultUserAgent = "BOE-Sumario-Crawler/1.0 (+https://github.com/JakeFAU/boe-sumario-crawler)"

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://www.boe.es")
	v.SetDefault("catalog.year", 0)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_tries", 3)
	v.SetDefault("http.backoff_base", 1.6)
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("throttle.day_delay", "100ms")
	v.SetDefault("throttle.item_delay", "200ms")
	v.SetDefault("text.inline", false)
	v.SetDefault("text.max_items", 0)
	v.SetDefault("text.truncate", 0)
	v.SetDefault("output.path", "data/base.jsonl")
	v.SetDefault("output.gzip", false)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", sink.DefaultTable)
	v.SetDefault("themes.file", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.addr", "")
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Catalog.BaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits. Errors name the
// offending key the way it appears in config files, e.g. catalog.year.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("pgtable", func(fl validator.FieldLevel) bool {
		return sink.ValidTableName(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func describeFieldError(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	if key == "catalog.year" {
		return fmt.Sprintf("%s must be between %d and %d, got %v", key, MinYear, MaxYear, fe.Value())
	}
	switch fe.Tag() {
	case "required", "notblank":
		return key + " is required"
	case "required_with":
		return fmt.Sprintf("%s is required when postgres.dsn is set", key)
	case "pgtable":
		return fmt.Sprintf("invalid %s %q", key, fe.Value())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", key, fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be > %s", key, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}
