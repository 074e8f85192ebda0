// Package metrics exposes Prometheus collectors for refreshes and provider calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solana_news"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Summary
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.SummaryVec
	cachedRecords   prometheus.Gauge
	lastSuccess     prometheus.Gauge
	llmTokens       *prometheus.CounterVec
	llmCost         *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh cycles by outcome (updated, failed, skipped)",
	}, []string{"outcome"})
	m.refreshDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Time spent in a refresh cycle",
	})
	m.providerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Provider calls by provider and status (ok, empty, error)",
	}, []string{"provider", "status"})
	m.providerLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "provider_duration_seconds",
		Help:      "Provider call latency",
	}, []string{"provider"})
	m.cachedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cached_records",
		Help:      "Records currently served from the cache",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last refresh that replaced the cache",
	})
	m.llmTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "LLM tokens by model and direction (in, out)",
	}, []string{"model", "direction"})
	m.llmCost = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_cost_usd_total",
		Help:      "Estimated LLM spend in USD",
	}, []string{"model"})

	m.registry.MustRegister(
		m.refreshTotal, m.refreshDuration,
		m.providerCalls, m.providerLatency,
		m.cachedRecords, m.lastSuccess,
		m.llmTokens, m.llmCost,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ProviderCall records one provider call.
func (m *Metrics) ProviderCall(provider string, records int, err error, elapsed time.Duration) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case records == 0:
		status = "empty"
	}
	m.providerCalls.WithLabelValues(provider, status).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// LLMUsage records token counts and estimated cost of one completion.
func (m *Metrics) LLMUsage(model string, tokensIn, tokensOut int, cost float64) {
	if model == "" {
		model = "unknown"
	}
	m.llmTokens.WithLabelValues(model, "in").Add(float64(tokensIn))
	m.llmTokens.WithLabelValues(model, "out").Add(float64(tokensOut))
	if cost > 0 {
		m.llmCost.WithLabelValues(model).Add(cost)
	}
}

// RefreshDone records the end of a refresh cycle. cached is the cache size
// afterwards; updatedAt is set only when the cache was replaced.
func (m *Metrics) RefreshDone(outcome string, elapsed time.Duration, cached int, updatedAt time.Time) {
	m.refreshTotal.WithLabelValues(outcome).Inc()
	if outcome == "skipped" {
		return
	}
	m.refreshDuration.Observe(elapsed.Seconds())
	m.cachedRecords.Set(float64(cached))
	if !updatedAt.IsZero() {
		m.lastSuccess.Set(float64(updatedAt.Unix()))
	}
}

// CacheSize sets the cached record gauge, used after loading the cache file.
func (m *Metrics) CacheSize(n int) {
	m.cachedRecords.Set(float64(n))
}
