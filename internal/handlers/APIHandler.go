package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/strategy"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SignalReader reads stored signals
type SignalReader interface {
	FindRecent(ctx context.Context, limit int) ([]models.SignalRecord, error)
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SignalRecord, error)
}

// Evaluator runs an on-demand evaluation
type Evaluator interface {
	EvaluateStrategy(ctx context.Context, symbol, name string) (models.Signal, error)
	Strategies() []string
}

// APIResponse wraps every JSON body
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type APIHandler struct {
	signals   SignalReader
	evaluator Evaluator
	log       zerolog.Logger
}

func NewAPIHandler(signals SignalReader, evaluator Evaluator, log zerolog.Logger) *APIHandler {
	return &APIHandler{
		signals:   signals,
		evaluator: evaluator,
		log:       logger.Component(log, "api"),
	}
}

func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/strategies", h.Strategies)
	e.GET("/signals", h.RecentSignals)
	e.GET("/signals/:symbol", h.EvaluateSymbol)
	e.GET("/signals/:symbol/history", h.SymbolHistory)
}

func (h *APIHandler) Health(c echo.Context) error {
	return respond(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) Strategies(c echo.Context) error {
	return respond(c, http.StatusOK, h.evaluator.Strategies())
}

func (h *APIHandler) RecentSignals(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error())
	}
	records, err := h.signals.FindRecent(c.Request().Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read signals")
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}
	return respond(c, http.StatusOK, records)
}

func (h *APIHandler) SymbolHistory(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error())
	}
	symbol := strings.ToUpper(c.Param("symbol"))
	records, err := h.signals.FindBySymbol(c.Request().Context(), symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("failed to read signals")
		return respond(c, http.StatusInternalServerError, "Something went wrong")
	}
	return respond(c, http.StatusOK, records)
}

// EvaluateSymbol scores a symbol now. ?strategy= picks a variant.
func (h *APIHandler) EvaluateSymbol(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	name := c.QueryParam("strategy")

	signal, err := h.evaluator.EvaluateStrategy(c.Request().Context(), symbol, name)
	if err != nil {
		status := evaluationStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("evaluation failed")
			return respond(c, status, "Something went wrong")
		}
		return respond(c, status, err.Error())
	}
	return respond(c, http.StatusOK, signal)
}

func evaluationStatus(err error) int {
	switch {
	case errors.Is(err, strategy.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, price.ErrAllProvidersFailed), errors.Is(err, price.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 50, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 500 {
		return 0, fmt.Errorf("limit must be between 1 and 500")
	}
	return limit, nil
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

// Server wraps the echo instance serving the API and /metrics
type Server struct {
	echo *echo.Echo
	addr string
	log  zerolog.Logger
}

func NewServer(addr string, handler *APIHandler, registry *prometheus.Registry, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	serverLog := logger.Component(log, "http")
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			serverLog.Info().
				Err(v.Error).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	handler.RegisterRoutes(e)
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return &Server{echo: e, addr: addr, log: serverLog}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server error")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

// Echo returns the underlying instance, used by tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
