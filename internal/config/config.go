// Package config defines the collider service configuration and its loader.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/antitoken/collider/internal/collider"
)

// Config is the root configuration. Fields are populated from defaults, an
// optional TOML file, and then COLLIDER_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Market   MarketConfig   `toml:"market"`
	Chain    ChainConfig    `toml:"chain"`
	Policy   string         `toml:"policy"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL vote ledger settings. An empty URL
// selects the in-memory store.
type DatabaseConfig struct {
	URL     string `toml:"url"`
	Migrate bool   `toml:"migrate"`
}

// RedisConfig holds cache settings. An empty URL disables caching.
type RedisConfig struct {
	URL      string        `toml:"url"`
	StoreTTL time.Duration `toml:"store_ttl"`
	QuoteTTL time.Duration `toml:"quote_ttl"`
}

// MarketConfig holds market-data settings.
type MarketConfig struct {
	DexScreenerURL string        `toml:"dexscreener_url"`
	AntiMint       string        `toml:"anti_mint"`
	ProMint        string        `toml:"pro_mint"`
	Timeout        time.Duration `toml:"timeout"`
}

// ChainConfig holds Solana RPC settings. An empty RPC URL disables the
// on-chain balance check on vote submission.
type ChainConfig struct {
	RPCURL  string        `toml:"rpc_url"`
	Timeout time.Duration `toml:"timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			StoreTTL: 30 * time.Second,
			QuoteTTL: 60 * time.Second,
		},
		Market: MarketConfig{
			DexScreenerURL: "https://api.dexscreener.com",
			AntiMint:       "HB8KrN7Bb3iLWUPsozp67kS4gxtbA4W5QJX4wKPvpump",
			ProMint:        "CWFa2nxUMf5d1WwKtG9FS9kjUKGwKXWSjH8hFdWspump",
			Timeout:        10 * time.Second,
		},
		Chain: ChainConfig{
			Timeout: 10 * time.Second,
		},
		Policy:   collider.PolicyDominantShare,
		LogLevel: "info",
	}
}

// Load merges an optional TOML file at path over the defaults, loads a
// .env file if present, and applies COLLIDER_* overrides. The result is
// not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "PORT")
	setStr(&cfg.Server.Port, "COLLIDER_PORT")
	setDuration(&cfg.Server.RequestTimeout, "COLLIDER_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "COLLIDER_SHUTDOWN_TIMEOUT")

	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Database.URL, "COLLIDER_DATABASE_URL")
	setBool(&cfg.Database.Migrate, "COLLIDER_DATABASE_MIGRATE")

	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.URL, "COLLIDER_REDIS_URL")
	setDuration(&cfg.Redis.StoreTTL, "COLLIDER_REDIS_STORE_TTL")
	setDuration(&cfg.Redis.QuoteTTL, "COLLIDER_REDIS_QUOTE_TTL")

	setStr(&cfg.Market.DexScreenerURL, "COLLIDER_DEXSCREENER_URL")
	setStr(&cfg.Market.AntiMint, "COLLIDER_ANTI_MINT")
	setStr(&cfg.Market.ProMint, "COLLIDER_PRO_MINT")
	setDuration(&cfg.Market.Timeout, "COLLIDER_MARKET_TIMEOUT")

	setStr(&cfg.Chain.RPCURL, "COLLIDER_SOLANA_RPC_URL")
	setDuration(&cfg.Chain.Timeout, "COLLIDER_SOLANA_TIMEOUT")

	setStr(&cfg.Policy, "COLLIDER_POLICY")
	setStr(&cfg.LogLevel, "COLLIDER_LOG_LEVEL")
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	} else if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", c.Server.Port))
	}
	if c.Market.AntiMint == "" || c.Market.ProMint == "" {
		errs = append(errs, errors.New("market.anti_mint and market.pro_mint are required"))
	}
	if _, err := collider.PolicyByName(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.URL != "" && (c.Redis.StoreTTL <= 0 || c.Redis.QuoteTTL <= 0) {
		errs = append(errs, errors.New("redis TTLs must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
