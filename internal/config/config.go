// Package config loads process configuration from defaults, an optional TOML
// file named by BUDGET_CONFIG, and environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var validBackends = []string{"memory", "sqlite"}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// CIDRs whose X-Forwarded-For is believed when keying the rate limiter.
	TrustedProxies []string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP; an empty URL disables ledger events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Upstream lookups
	FXBaseURL       string
	FXCacheTTL      time.Duration
	QuoteBaseURL    string
	AlphaVantageKey string
	BaseCurrency    string

	// Recurring expansion
	RecurringInterval     time.Duration
	SeedDefaultCategories bool

	LogLevel string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("data_backend", "sqlite")
	v.SetDefault("sqlite_db_path", "./data/budget.db")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "budget")
	v.SetDefault("amqp_queue", "ledger_events")
	v.SetDefault("fx_base_url", "https://api.frankfurter.app")
	v.SetDefault("fx_cache_ttl", time.Hour)
	v.SetDefault("quote_base_url", "https://www.alphavantage.co")
	v.SetDefault("alpha_vantage_key", "")
	v.SetDefault("base_currency", "USD")
	v.SetDefault("recurring_interval", time.Hour)
	v.SetDefault("seed_default_categories", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_sheet_name", "Transactions")
	v.SetDefault("google_service_account_file", "")
	v.SetDefault("google_service_account_json", "")
}

// Load reads the configuration. Keys are the lower-case form of their
// environment variable, e.g. data_backend for DATA_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)

	if path := strings.TrimSpace(os.Getenv("BUDGET_CONFIG")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Port:               v.GetString("port"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		TrustedProxies:     splitList(v.GetString("trusted_proxies")),

		DataBackend:  strings.ToLower(v.GetString("data_backend")),
		SQLiteDBPath: v.GetString("sqlite_db_path"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		FXBaseURL:       v.GetString("fx_base_url"),
		FXCacheTTL:      v.GetDuration("fx_cache_ttl"),
		QuoteBaseURL:    v.GetString("quote_base_url"),
		AlphaVantageKey: v.GetString("alpha_vantage_key"),
		BaseCurrency:    strings.ToUpper(v.GetString("base_currency")),

		RecurringInterval:     v.GetDuration("recurring_interval"),
		SeedDefaultCategories: v.GetBool("seed_default_categories"),

		LogLevel: v.GetString("log_level"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleSheetName:          v.GetString("google_sheet_name"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),
	}, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 10.0.0.0/8", cidr))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !isHTTPURL(c.FXBaseURL) {
		errors = append(errors, fmt.Sprintf("invalid FX base URL '%s': must be an http(s) URL", c.FXBaseURL))
	}
	if !isHTTPURL(c.QuoteBaseURL) {
		errors = append(errors, fmt.Sprintf("invalid quote base URL '%s': must be an http(s) URL", c.QuoteBaseURL))
	}

	if c.FXCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid FX cache TTL %v: must be at least 1 second", c.FXCacheTTL))
	}

	if len(c.BaseCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3-letter code", c.BaseCurrency))
	}

	if c.RecurringInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 second", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
