package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/config"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

func newTestMetrics() *PrometheusMetrics {
	return NewPrometheusMetrics(&types.MetricsConfig{Enabled: true, Prefix: "portfolio"}, logger.NewZapWrapper(zap.NewNop()))
}

func TestPrometheusMetrics_CounterPerLabelSet(t *testing.T) {
	m := newTestMetrics()

	m.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "hit"}).Inc()
	m.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "hit"}).Add(2)
	m.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "miss"}).Inc()

	assert.Equal(t, 3.0, m.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "hit"}).Get())
	assert.Equal(t, 1.0, m.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "miss"}).Get())
}

func TestPrometheusMetrics_GaugeAndHistogram(t *testing.T) {
	m := newTestMetrics()

	g := m.Gauge("db_keepalive_running", nil)
	g.Set(1)
	g.Inc()
	g.Dec()
	assert.Equal(t, 1.0, g.Get())

	h := m.Histogram("cache_operation_duration_seconds", []float64{0.1, 1}, map[string]string{"operation": "get"})
	h.Observe(0.05)
	h.Observe(0.5)
	assert.Equal(t, uint64(2), h.GetCount())
	assert.InDelta(t, 0.55, h.GetSum(), 1e-9)
}

func TestPrometheusMetrics_HandlerExposesRegistry(t *testing.T) {
	m := newTestMetrics()
	m.Counter("db_keepalive_pings_total", map[string]string{"result": "success"}).Inc()

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/metrics")
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)

	m.Handler()(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.True(t, strings.Contains(body, `portfolio_db_keepalive_pings_total{result="success"} 1`), body)
}

func TestNewManager_DisabledIsNoop(t *testing.T) {
	cfg := config.NewLoader().Defaults()
	cfg.Metrics.Enabled = false

	m := NewManager(config.NewStaticManager(cfg), logger.NewZapWrapper(zap.NewNop()))

	_, isNoop := m.(NoopMetrics)
	assert.True(t, isNoop)
	m.Counter("anything", nil).Inc()
	assert.Zero(t, m.Counter("anything", nil).Get())
}
