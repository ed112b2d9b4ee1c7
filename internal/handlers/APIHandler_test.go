package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ForexSignalBot/internal/metrics"
	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	err error
}

func (e *stubEvaluator) EvaluateStrategy(ctx context.Context, symbol, name string) (models.Signal, error) {
	if e.err != nil {
		return models.Signal{}, e.err
	}
	if name == "" {
		name = strategy.ConfluenceStrategy
	}
	return models.Signal{Symbol: symbol, Direction: models.DirectionNeutral, Reason: "Below threshold", Strategy: name}, nil
}

func (e *stubEvaluator) Strategies() []string {
	return []string{"confluence", "trend"}
}

func newTestServer(evaluator Evaluator, store *memoryStore) *Server {
	rec := metrics.New()
	rec.RecordSignal("EURUSD", "confluence", "BUY")
	return NewServer(":0", NewAPIHandler(store, evaluator, zerolog.Nop()), rec.Registry(), zerolog.Nop())
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var body APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &memoryStore{})

	rec, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, body.Data)
}

func TestAPI_Signals(t *testing.T) {
	store := &memoryStore{}
	require.NoError(t, store.Create(context.Background(), models.NewSignalRecord(tradableSignal(80))))
	s := newTestServer(&stubEvaluator{}, store)

	rec, body := get(t, s, "/signals")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body.Data, 1)

	rec, _ = get(t, s, "/signals?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, s, "/signals/eurusd/history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body.Data, 1)

	rec, _ = get(t, s, "/strategies")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_EvaluateSymbol(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &memoryStore{})

	rec, body := get(t, s, "/signals/eurusd?strategy=trend")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]any)
	assert.Equal(t, "EURUSD", data["symbol"])
	assert.Equal(t, "trend", data["strategy"])
	assert.Equal(t, "NEUTRAL", data["direction"])
}

func TestAPI_EvaluateErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: scalper", strategy.ErrUnknownStrategy), http.StatusBadRequest},
		{fmt.Errorf("%w: EURUSD M15 has 20 bars", ErrInsufficientHistory), http.StatusUnprocessableEntity},
		{fmt.Errorf("fetch EURUSD H4: %w", price.ErrAllProvidersFailed), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s := newTestServer(&stubEvaluator{err: tt.err}, &memoryStore{})
		rec, body := get(t, s, "/signals/EURUSD")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		assert.Equal(t, tt.want, body.Status)
	}
}

func TestAPI_Metrics(t *testing.T) {
	s := newTestServer(&stubEvaluator{}, &memoryStore{})

	rec, _ := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `forexbot_signals_total{direction="BUY",strategy="confluence",symbol="EURUSD"} 1`)
}
