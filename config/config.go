// Package config loads the allocator configuration from a TOML file, an
// optional .env file and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/etnz/allocator"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "alloc.toml"

// Config is the complete configuration.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Quotes     QuotesConfig     `toml:"quotes"`
	Allocation AllocationConfig `toml:"allocation"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Agent      AgentConfig      `toml:"agent"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// QuotesConfig selects the market data providers.
type QuotesConfig struct {
	// Providers are asked in order, each for the tickers still missing.
	// Known names are "brapi" and "yahoo".
	Providers      []string `toml:"providers"`
	BrapiToken     string   `toml:"brapi_token"`
	BrapiURL       string   `toml:"brapi_url"`
	YahooURL       string   `toml:"yahoo_url"`
	RateLimit      int      `toml:"rate_limit"` // requests per second
	TimeoutSeconds int      `toml:"timeout_seconds"`
	// CacheDir holds the daily HTTP cache. Empty disables it.
	CacheDir string `toml:"cache_dir"`
	// MaxAgeHours is how long a refreshed quote is served from the
	// database before asking the providers again. Zero disables it.
	MaxAgeHours int `toml:"max_age_hours"`
}

// Timeout returns the HTTP timeout of the quote clients.
func (c QuotesConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxAge returns how long cached quotes are fresh.
func (c QuotesConfig) MaxAge() time.Duration { return time.Duration(c.MaxAgeHours) * time.Hour }

// AllocationConfig holds the tunables of the allocation strategies.
type AllocationConfig struct {
	SurplusMaxIterations  int     `toml:"surplus_max_iterations"`
	BalancedMaxIterations int     `toml:"balanced_max_iterations"`
	MinCash               float64 `toml:"min_cash"`
	TolerancePct          float64 `toml:"tolerance_pct"`
	TieBand               float64 `toml:"tie_band"`
	Currency              string  `toml:"currency"`
}

// Options returns the strategy options for maxIterations, one of the two
// configured caps.
func (c AllocationConfig) Options(maxIterations int, log *zerolog.Logger) allocator.Options {
	return allocator.Options{
		MaxIterations: maxIterations,
		MinCash:       c.MinCash,
		Tolerance:     allocator.Percent(c.TolerancePct),
		TieBand:       c.TieBand,
		Logger:        log,
	}
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	RefreshSchedule string   `toml:"refresh_schedule"` // cron expression, empty disables
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type AgentConfig struct {
	Model  string `toml:"model"`
	APIKey string `toml:"api_key"`
}

// NewDefault returns the configuration used when no file exists.
func NewDefault() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "alloc.db"},
		Quotes: QuotesConfig{
			Providers:      []string{"brapi", "yahoo"},
			RateLimit:      5,
			TimeoutSeconds: 30,
			MaxAgeHours:    12,
		},
		Allocation: AllocationConfig{
			SurplusMaxIterations:  allocator.DefaultSurplusIterations,
			BalancedMaxIterations: allocator.DefaultBalancedIterations,
			MinCash:               allocator.DefaultMinCash,
			TolerancePct:          float64(allocator.DefaultTolerance),
			TieBand:               allocator.DefaultTieBand,
			Currency:              allocator.DefaultCurrency,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RefreshSchedule: "0 19 * * 1-5",
			AllowedOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{Level: "info", Pretty: true},
		Agent:   AgentConfig{Model: "gemini-2.5-flash"},
	}
}

// Load reads the .env file, then merges every existing file of paths in order
// over the defaults, then applies environment overrides. Missing files are
// skipped.
func Load(paths ...string) (*Config, error) {
	// a missing .env is not an error
	_ = godotenv.Load()

	cfg := NewDefault()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("ALLOC_DB"); path != "" {
		cfg.Database.Path = path
	}
	if token := os.Getenv("BRAPI_TOKEN"); token != "" {
		cfg.Quotes.BrapiToken = token
	}
	if level := os.Getenv("ALLOC_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if addr := os.Getenv("ALLOC_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Agent.APIKey = key
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	for _, p := range c.Quotes.Providers {
		if p != "brapi" && p != "yahoo" {
			errs = append(errs, fmt.Errorf("quotes.providers: unknown provider %q", p))
		}
	}
	if c.Quotes.MaxAgeHours < 0 {
		errs = append(errs, errors.New("quotes.max_age_hours cannot be negative"))
	}
	a := c.Allocation
	if a.SurplusMaxIterations <= 0 || a.BalancedMaxIterations <= 0 {
		errs = append(errs, errors.New("allocation: iteration caps must be positive"))
	}
	if a.MinCash < 0 || a.TieBand < 0 {
		errs = append(errs, errors.New("allocation: min_cash and tie_band cannot be negative"))
	}
	if a.TolerancePct < 0 || a.TolerancePct > 100 {
		errs = append(errs, fmt.Errorf("allocation.tolerance_pct %v out of [0, 100]", a.TolerancePct))
	}
	if len(a.Currency) != 3 {
		errs = append(errs, fmt.Errorf("allocation.currency %q is not an ISO code", a.Currency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
