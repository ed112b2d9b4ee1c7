package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New()
	// A second recorder must not collide with the first
	_ = New()

	r.RecordSignal("EURUSD", "confluence", "BUY")
	r.RecordSignal("EURUSD", "confluence", "BUY")
	r.RecordError("fetch")
	r.RecordFallback("oanda")
	r.RecordOrder("placed")
	r.RecordLatency("evaluate", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("EURUSD", "confluence", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("oanda")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.orders.WithLabelValues("placed")))

	families, err := r.Registry().Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 5)
}
