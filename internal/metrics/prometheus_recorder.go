package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "shelfkeeper"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	stageDuration     *prom.HistogramVec
	operationDuration *prom.HistogramVec
	operationResults  *prom.CounterVec
	registryFlushes   *prom.CounterVec
	registrySize      prom.Gauge
	eventsRelayed     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual operation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"op", "stage"})
		pr.operationDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "End-to-end duration of container operations",
			Buckets:   prom.DefBuckets,
		}, []string{"op"})
		pr.operationResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operation_results_total",
			Help:      "Container operation outcomes",
		}, []string{"op", "result"})
		pr.registryFlushes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "registry_flushes_total",
			Help:      "Location registry write-outs by outcome",
		}, []string{"result"})
		pr.registrySize = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_locations",
			Help:      "Number of tracked shelf locations",
		})
		pr.eventsRelayed = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Push events forwarded to the message bus",
		}, []string{"kind", "result"})
		reg.MustRegister(pr.stageDuration, pr.operationDuration, pr.operationResults, pr.registryFlushes, pr.registrySize, pr.eventsRelayed)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(op, stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(op, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveOperationDuration(op string, d time.Duration) {
	if p == nil || p.operationDuration == nil {
		return
	}
	p.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncOperationResult(op string, result ResultLabel) {
	if p == nil || p.operationResults == nil {
		return
	}
	p.operationResults.WithLabelValues(op, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRegistryFlush(result ResultLabel) {
	if p == nil || p.registryFlushes == nil {
		return
	}
	p.registryFlushes.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetRegistrySize(n int) {
	if p == nil || p.registrySize == nil {
		return
	}
	p.registrySize.Set(float64(n))
}

func (p *PrometheusRecorder) IncEventRelayed(kind string, success bool) {
	if p == nil || p.eventsRelayed == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.eventsRelayed.WithLabelValues(kind, res).Inc()
}
