package metrics

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// NewManager returns the Prometheus backend, or a no-op one when metrics are
// disabled so callers never have to nil-check.
func NewManager(config types.ConfigManager, logger types.Logger) types.MetricsManager {
	metricsConfig := config.GetConfig().Metrics
	if metricsConfig == nil || !metricsConfig.Enabled {
		logger.Info("Metrics disabled")
		return NoopMetrics{}
	}

	return NewPrometheusMetrics(metricsConfig, logger)
}

type NoopMetrics struct{}

func (NoopMetrics) Counter(string, map[string]string) types.Counter {
	return emptyCounter{}
}

func (NoopMetrics) Gauge(string, map[string]string) types.Gauge {
	return emptyGauge{}
}

func (NoopMetrics) Histogram(string, []float64, map[string]string) types.Histogram {
	return emptyHistogram{}
}

func (NoopMetrics) Handler() types.FastHTTPHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

type emptyCounter struct{}

func (emptyCounter) Inc()          {}
func (emptyCounter) Add(_ float64) {}
func (emptyCounter) Get() float64  { return 0 }

type emptyGauge struct{}

func (emptyGauge) Set(_ float64) {}
func (emptyGauge) Inc()          {}
func (emptyGauge) Dec()          {}
func (emptyGauge) Get() float64  { return 0 }

type emptyHistogram struct{}

func (emptyHistogram) Observe(_ float64)           {}
func (emptyHistogram) ObserveDuration(_ time.Time) {}
func (emptyHistogram) GetCount() uint64            { return 0 }
func (emptyHistogram) GetSum() float64             { return 0 }
