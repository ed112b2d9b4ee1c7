package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ForexSignalBot/config"
	"ForexSignalBot/internal/handlers"
	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/metrics"
	"ForexSignalBot/internal/operations/backtest"
	"ForexSignalBot/internal/operations/binance"
	"ForexSignalBot/internal/operations/broker"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/repositories"
	"ForexSignalBot/internal/services/filters"
	"ForexSignalBot/internal/services/risk"
	"ForexSignalBot/internal/services/strategy"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	backtestSymbol := flag.String("backtest", "", "replay recent history for one symbol and exit")
	backtestStrategy := flag.String("strategy", strategy.ConfluenceStrategy, "strategy to replay")
	backtestBars := flag.Int("bars", 2000, "number of M15 bars to replay")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}

	if *backtestSymbol != "" {
		recorder := metrics.New()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runBacktest(ctx, cfg, setupProviders(ctx, cfg, recorder, log), strings.ToUpper(*backtestSymbol), *backtestStrategy, *backtestBars, log); err != nil {
			log.Fatal().Err(err).Msg("backtest failed")
		}
		return
	}

	// Setup database
	db, err := setupDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	signalRepo := repositories.NewSignalRepository(db)
	if err := signalRepo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	recorder := metrics.New()

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := setupProviders(ctx, cfg, recorder, log)

	gateway := broker.NewPaperGateway(provider, broker.PaperConfig{
		Symbols:           cfg.Strategy.Symbols,
		InitialBalance:    cfg.Strategy.PaperBalance,
		DefaultSpreadPips: cfg.Strategy.PaperSpread,
	}, nil, log)

	riskGate := risk.NewRiskGate(cfg.Strategy.Risk)
	limits := riskGate.Limits()
	log.Info().
		Float64("max_daily_loss", limits.MaxDailyLoss).
		Int("max_open_trades", limits.MaxOpenTrades).
		Int("max_symbol_positions", limits.MaxSymbolPositions).
		Msg("risk limits loaded")

	engine := handlers.NewSignalEngine(
		provider,
		gateway,
		filters.NewMarketFilter(cfg.Strategy.Filter),
		riskGate,
		strategy.NewStrategyManager(),
		recorder,
		nil,
		log,
		handlers.EngineConfig{MinBars: cfg.Strategy.MinBars, Workers: cfg.Strategy.ScanWorkers},
	)

	dispatcher := handlers.NewDispatcher(signalRepo, gateway, riskGate, provider, recorder, nil, log, handlers.DispatcherConfig{
		ExecuteThreshold: cfg.Strategy.ExecuteThreshold,
		RiskPercent:      cfg.Strategy.RiskPercent,
		DuplicateWindow:  handlers.DuplicateWindow(cfg.Strategy.ScanInterval),
	})

	scheduler := handlers.NewStrategyHandler(
		engine,
		dispatcher,
		cfg.Strategy.Symbols,
		cfg.Strategy.ScanInterval,
		cfg.Strategy.ForecastInterval,
		log,
	)

	server := handlers.NewServer(
		fmt.Sprintf(":%d", cfg.Server.Port),
		handlers.NewAPIHandler(signalRepo, engine, log),
		recorder.Registry(),
		log,
	)

	go scheduler.Start(ctx)
	go gateway.MonitorPositions(ctx, cfg.Strategy.PositionCheckInterval)
	server.Start()

	log.Info().
		Int("symbols", len(cfg.Strategy.Symbols)).
		Str("database", cfg.Database.Driver).
		Msg("signal bot started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("shutdown complete")
}

func runBacktest(ctx context.Context, cfg *config.Config, provider price.Provider, symbol, name string, bars int, log zerolog.Logger) error {
	manager := strategy.NewStrategyManager()
	timeframes, err := manager.Timeframes(name)
	if err != nil {
		return err
	}

	bcfg := backtest.DefaultConfig()
	bcfg.Strategy = name
	bcfg.InitialBalance = cfg.Strategy.PaperBalance
	bcfg.RiskPercent = cfg.Strategy.RiskPercent
	bcfg.Lookback = cfg.Strategy.MinBars

	history, err := backtest.FetchHistory(ctx, provider, symbol, timeframes, bcfg.Lookback, bars)
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(manager, filters.NewMarketFilter(cfg.Strategy.Filter), log)
	res, err := engine.Run(ctx, history, bcfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("symbol", res.Symbol).
		Str("strategy", res.Strategy).
		Int("evaluations", res.Evaluations).
		Int("trades", res.TotalTrades).
		Float64("win_rate", res.WinRate).
		Float64("average_pnl", res.AveragePnL).
		Float64("max_drawdown", res.MaxDrawdown).
		Float64("sharpe", res.SharpeRatio).
		Float64("final_balance", res.FinalBalance).
		Msg("backtest results")
	return nil
}

// setupProviders builds the fallback chain OANDA -> Binance -> synthetic, with
// an optional Redis cache in front
func setupProviders(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, log zerolog.Logger) price.Provider {
	var providers []price.Provider
	if cfg.Oanda.APIKey != "" {
		providers = append(providers, price.NewOandaProvider(cfg.Oanda.AccountID, cfg.Oanda.APIKey, cfg.Oanda.URL, log))
	}
	if cfg.Binance.Enabled {
		client := binance.NewBinanceClient(cfg.Binance.APIKey, cfg.Binance.SecretKey)
		providers = append(providers, price.NewBinanceProvider(client, log))
	}
	providers = append(providers, price.NewSyntheticProvider(nil))

	var provider price.Provider = price.NewChainProvider(log, recorder, providers...)

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, candle cache disabled")
			client.Close()
		} else {
			provider = price.NewCachedProvider(provider, client, cfg.Redis.Prefix, log)
		}
	}
	return provider
}

func setupDatabase(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbConfig.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			dbConfig.Host,
			dbConfig.Port,
			dbConfig.User,
			dbConfig.Password,
			dbConfig.DBName)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dbConfig.Path)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
}
