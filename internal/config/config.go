package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/carrier-rates/internal/quoting"
	"github.com/eugenenazirov/carrier-rates/internal/storage"
)

const (
	defaultPort              = "8080"
	defaultRateLimitRPS      = 25.0
	defaultRateLimitBurst    = 50
	defaultMaxParcelWeightKg = 31.5
	defaultCurrency          = "EUR"
	defaultDeliveryMinDays   = 1
	defaultDeliveryMaxDays   = 5
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	StorageDriver        string
	DatabaseURL          string
	InitialCarriers      []quoting.Carrier
	MaxParcelWeightKg    float64
	ParcelPolicy         string
	DefaultCurrency      string
	DeliveryMinDays      int
	DeliveryMaxDays      int
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int
}

// MaxParcelWeightGrams converts the configured parcel cap to grams, the unit
// the quoting engine works in.
func (c Config) MaxParcelWeightGrams() int64 {
	return int64(c.MaxParcelWeightKg * 1000)
}

// Policy returns the configured parcel policy as an engine policy value.
func (c Config) Policy() quoting.Policy {
	return quoting.Policy(c.ParcelPolicy)
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	StorageDriver        string        `yaml:"storage_driver"`
	DatabaseURL          string        `yaml:"database_url"`
	Carriers             []yamlCarrier `yaml:"carriers"`
	MaxParcelWeightKg    float64       `yaml:"max_parcel_weight_kg"`
	ParcelPolicy         string        `yaml:"parcel_policy"`
	DefaultCurrency      string        `yaml:"default_currency"`
	DeliveryMinDays      *int          `yaml:"delivery_min_days"`
	DeliveryMaxDays      *int          `yaml:"delivery_max_days"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlCarrier represents one seed carrier in YAML.
type yamlCarrier struct {
	Name           string `yaml:"name"`
	PricePerParcel int64  `yaml:"price_per_parcel"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	StorageDriver  *string
	DatabaseURL    *string
	CarriersStr    *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		StorageDriver:        storage.DriverMemory,
		MaxParcelWeightKg:    defaultMaxParcelWeightKg,
		ParcelPolicy:         string(quoting.PolicyCeiling),
		DefaultCurrency:      defaultCurrency,
		DeliveryMinDays:      defaultDeliveryMinDays,
		DeliveryMaxDays:      defaultDeliveryMaxDays,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             "info",
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.StorageDriver != "" {
		cfg.StorageDriver = yamlCfg.StorageDriver
	}

	if yamlCfg.DatabaseURL != "" {
		cfg.DatabaseURL = yamlCfg.DatabaseURL
	}

	if len(yamlCfg.Carriers) > 0 {
		carriers := make([]quoting.Carrier, 0, len(yamlCfg.Carriers))
		for _, carrier := range yamlCfg.Carriers {
			carriers = append(carriers, quoting.Carrier{
				Name:           carrier.Name,
				PricePerParcel: carrier.PricePerParcel,
			})
		}
		cfg.InitialCarriers = carriers
	}

	if yamlCfg.MaxParcelWeightKg > 0 {
		cfg.MaxParcelWeightKg = yamlCfg.MaxParcelWeightKg
	}

	if yamlCfg.ParcelPolicy != "" {
		cfg.ParcelPolicy = yamlCfg.ParcelPolicy
	}

	if yamlCfg.DefaultCurrency != "" {
		cfg.DefaultCurrency = yamlCfg.DefaultCurrency
	}

	if yamlCfg.DeliveryMinDays != nil {
		cfg.DeliveryMinDays = *yamlCfg.DeliveryMinDays
	}

	if yamlCfg.DeliveryMaxDays != nil {
		cfg.DeliveryMaxDays = *yamlCfg.DeliveryMaxDays
	}

	if yamlCfg.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(yamlCfg.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if yamlCfg.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if yamlCfg.WriteTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if yamlCfg.IdleTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if driver := strings.TrimSpace(os.Getenv("STORAGE_DRIVER")); driver != "" {
		cfg.StorageDriver = driver
	}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.DatabaseURL = dsn
	}

	if rawCarriers := strings.TrimSpace(os.Getenv("CARRIERS")); rawCarriers != "" {
		carriers, err := parseCarriers(rawCarriers)
		if err == nil && len(carriers) > 0 {
			cfg.InitialCarriers = carriers
		}
	}

	if weight := strings.TrimSpace(os.Getenv("MAX_PARCEL_WEIGHT_KG")); weight != "" {
		if value, err := strconv.ParseFloat(weight, 64); err == nil && value > 0 {
			cfg.MaxParcelWeightKg = value
		}
	}

	if policy := strings.TrimSpace(os.Getenv("PARCEL_POLICY")); policy != "" {
		cfg.ParcelPolicy = policy
	}

	if currency := strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY")); currency != "" {
		cfg.DefaultCurrency = currency
	}

	if minDays := strings.TrimSpace(os.Getenv("DELIVERY_MIN_DAYS")); minDays != "" {
		if value, err := strconv.Atoi(minDays); err == nil && value >= 0 {
			cfg.DeliveryMinDays = value
		}
	}

	if maxDays := strings.TrimSpace(os.Getenv("DELIVERY_MAX_DAYS")); maxDays != "" {
		if value, err := strconv.Atoi(maxDays); err == nil && value >= 0 {
			cfg.DeliveryMaxDays = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.StorageDriver != nil && *overrides.StorageDriver != "" {
		cfg.StorageDriver = *overrides.StorageDriver
	}

	if overrides.DatabaseURL != nil && *overrides.DatabaseURL != "" {
		cfg.DatabaseURL = *overrides.DatabaseURL
	}

	if overrides.CarriersStr != nil && *overrides.CarriersStr != "" {
		carriers, err := parseCarriers(*overrides.CarriersStr)
		if err != nil {
			return fmt.Errorf("parse carriers: %w", err)
		}
		cfg.InitialCarriers = carriers
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	switch cfg.StorageDriver {
	case storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	switch quoting.Policy(cfg.ParcelPolicy) {
	case quoting.PolicyCeiling, quoting.PolicyBinpack:
	default:
		return fmt.Errorf("unknown parcel policy %q", cfg.ParcelPolicy)
	}

	if cfg.MaxParcelWeightKg <= 0 {
		return fmt.Errorf("MAX_PARCEL_WEIGHT_KG must be > 0")
	}
	if len(cfg.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter ISO 4217 code")
	}
	if cfg.DeliveryMinDays < 0 || cfg.DeliveryMaxDays < cfg.DeliveryMinDays {
		return fmt.Errorf("delivery window must satisfy 0 <= min <= max days")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}

// parseCarriers parses a comma-separated list of name=price pairs, with the
// price in minor currency units, e.g. "DPD=1000,Post=1200".
func parseCarriers(raw string) ([]quoting.Carrier, error) {
	parts := strings.Split(raw, ",")
	carriers := make([]quoting.Carrier, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rawPrice, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid carrier %q, expected name=price", part)
		}
		price, err := strconv.ParseInt(strings.TrimSpace(rawPrice), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price in %q", part)
		}
		if price <= 0 {
			return nil, fmt.Errorf("carrier price must be positive, got %d", price)
		}
		carriers = append(carriers, quoting.Carrier{Name: name, PricePerParcel: price})
	}
	if len(carriers) == 0 {
		return nil, fmt.Errorf("no carriers provided")
	}
	return carriers, nil
}
