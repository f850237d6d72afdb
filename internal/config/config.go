package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig holds the exchange-rate cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	RateTTL  time.Duration `mapstructure:"rate_ttl"`
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// EngineConfig holds the promo code and token-economy constants
type EngineConfig struct {
	CodePrefix         string        `mapstructure:"code_prefix"`
	Currency           string        `mapstructure:"currency"`
	MinClaimFiat       string        `mapstructure:"min_claim_fiat"`
	DefaultHSCValue    string        `mapstructure:"default_hsc_value"`
	DefaultHSGValue    string        `mapstructure:"default_hsg_value"`
	DefaultHSDValue    string        `mapstructure:"default_hsd_value"`
	GenerateAttempts   int           `mapstructure:"generate_attempts"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
	MarketplacePageMax int           `mapstructure:"marketplace_page_max"`
	Tiers              []TierConfig  `mapstructure:"tiers"`
}

// TierConfig describes one promo code tier
type TierConfig struct {
	Type            string `mapstructure:"type"`
	PriceFiat       string `mapstructure:"price_fiat"`
	DiscountPercent int    `mapstructure:"discount_percent"`
	EarningPercent  int    `mapstructure:"earning_percent"`
	ValidityDays    int    `mapstructure:"validity_days"`
}

var prefixPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// DefaultTiers mirrors the tiers sold on the platform
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Type: "silver", PriceFiat: "5000", DiscountPercent: 5, EarningPercent: 5, ValidityDays: 365},
		{Type: "gold", PriceFiat: "10000", DiscountPercent: 10, EarningPercent: 8, ValidityDays: 365},
		{Type: "diamond", PriceFiat: "25000", DiscountPercent: 15, EarningPercent: 12, ValidityDays: 365},
		{Type: "free", PriceFiat: "0", DiscountPercent: 2, EarningPercent: 2, ValidityDays: 90},
	}
}

// Load loads configuration from .env, an optional config file and environment variables.
// Priority: environment > config file > defaults
func Load(path string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOLIDAYSRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Engine.Tiers) == 0 {
		cfg.Engine.Tiers = DefaultTiers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "holidaysri")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "holidaysri.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rate_ttl", "5m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("engine.code_prefix", "HS")
	v.SetDefault("engine.currency", "LKR")
	v.SetDefault("engine.min_claim_fiat", "5000")
	v.SetDefault("engine.default_hsc_value", "100")
	v.SetDefault("engine.default_hsg_value", "100")
	v.SetDefault("engine.default_hsd_value", "100")
	v.SetDefault("engine.generate_attempts", 10)
	v.SetDefault("engine.retry_attempts", 3)
	v.SetDefault("engine.retry_base_delay", "20ms")
	v.SetDefault("engine.marketplace_page_max", 100)
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if !prefixPattern.MatchString(c.Engine.CodePrefix) {
		return fmt.Errorf("engine.code_prefix must be two uppercase letters, got %q", c.Engine.CodePrefix)
	}
	if c.Engine.RetryAttempts < 1 {
		return fmt.Errorf("engine.retry_attempts must be at least 1")
	}
	for _, tier := range c.Engine.Tiers {
		if tier.DiscountPercent < 0 || tier.DiscountPercent > 100 {
			return fmt.Errorf("tier %s: discount_percent out of range", tier.Type)
		}
		if tier.EarningPercent < 0 || tier.EarningPercent > 100 {
			return fmt.Errorf("tier %s: earning_percent out of range", tier.Type)
		}
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}
