package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ForexSignalBot/internal/services/filters"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads .env if present, then the optional YAML file named by
// STRATEGY_CONFIG, then environment overrides. Defaults fill whatever is left.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path := os.Getenv("STRATEGY_CONFIG"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	fillTables(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.Path, "DB_PATH")

	setString(&cfg.Oanda.AccountID, "OANDA_ACCOUNT_ID")
	setString(&cfg.Oanda.APIKey, "OANDA_API_KEY")
	setString(&cfg.Oanda.URL, "OANDA_URL")

	setBool(&cfg.Binance.Enabled, "BINANCE_ENABLED")
	setString(&cfg.Binance.APIKey, "BINANCE_API_KEY")
	setString(&cfg.Binance.SecretKey, "BINANCE_SECRET_KEY")

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setInt(&cfg.Server.Port, "HTTP_PORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("TRADING_SYMBOLS"); v != "" {
		cfg.Strategy.Symbols = getSymbols(v)
	}
}

// fillTables supplies the built-in tables for anything the YAML left out
func fillTables(cfg *Config) {
	if len(cfg.Strategy.Symbols) == 0 {
		cfg.Strategy.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if cfg.Strategy.Filter.Sessions == nil {
		cfg.Strategy.Filter.Sessions = filters.DefaultSessions()
	}
	if cfg.Strategy.Filter.NewsWindows == nil {
		cfg.Strategy.Filter.NewsWindows = filters.DefaultNewsWindows()
	}
	if cfg.Strategy.Filter.SpreadLimits == nil {
		cfg.Strategy.Filter.SpreadLimits = filters.DefaultSpreadLimits()
	}
}

var validate = validator.New()

func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = EnvtoInt(v)
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// helper to split a comma separated symbol list
func getSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}
