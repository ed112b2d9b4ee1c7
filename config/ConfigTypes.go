package config

import (
	"time"

	"ForexSignalBot/internal/services/filters"
	"ForexSignalBot/internal/services/risk"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Oanda    OandaConfig    `yaml:"oanda"`
	Binance  BinanceConfig  `yaml:"binance"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Strategy StrategyConfig `yaml:"strategy"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" default:"sqlite" validate:"oneof=postgres sqlite"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name" default:"forexbot"`
	// Path is the sqlite database file
	Path string `yaml:"path" default:"signals.db" validate:"required_if=Driver sqlite"`
}

type OandaConfig struct {
	AccountID string `yaml:"account_id"`
	APIKey    string `yaml:"api_key"`
	URL       string `yaml:"url" default:"https://api-fxpractice.oanda.com" validate:"url"`
}

type BinanceConfig struct {
	Enabled   bool   `yaml:"enabled" default:"true"`
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"secret_key"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"forexbot"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

// StrategyConfig holds the tables the filters and gates are built from
type StrategyConfig struct {
	Symbols []string       `yaml:"symbols" validate:"min=1,dive,len=6,uppercase"`
	Filter  filters.Config `yaml:"filter"`
	Risk    risk.Limits    `yaml:"risk"`

	ScanInterval          time.Duration `yaml:"scan_interval" default:"30m" validate:"gte=1m"`
	ForecastInterval      time.Duration `yaml:"forecast_interval" default:"3h" validate:"gte=1m"`
	PositionCheckInterval time.Duration `yaml:"position_check_interval" default:"15s" validate:"gte=1s"`

	ExecuteThreshold int     `yaml:"execute_threshold" default:"75" validate:"gte=0,lte=100"`
	RiskPercent      float64 `yaml:"risk_percent" default:"1.0" validate:"gt=0,lte=100"`
	MinBars          int     `yaml:"min_bars" default:"250" validate:"gte=50"`
	ScanWorkers      int     `yaml:"scan_workers" default:"4" validate:"gte=1"`

	// paper broker
	PaperBalance float64 `yaml:"paper_balance" default:"10000" validate:"gt=0"`
	PaperSpread  float64 `yaml:"paper_spread" default:"1.0" validate:"gte=0"`
}

// DefaultSymbols are the pairs scanned when none are configured
var DefaultSymbols = []string{
	"GBPNZD", "AUDNZD", "EURNZD", "GBPAUD",
	"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "USDCAD", "AUDUSD", "NZDUSD",
	"XAUUSD", "XAGUSD",
	"EURGBP", "EURJPY", "EURCHF", "EURCAD", "EURAUD",
	"GBPJPY", "GBPCHF", "GBPCAD",
	"AUDJPY", "CADJPY", "CHFJPY",
	"AUDCAD", "AUDCHF", "CADCHF",
}
