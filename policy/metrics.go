//go:build !nometrics

package policy

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/searchforge/hatchery/blockdata"
)

// Metrics wraps policy specific Prometheus metrics.
type Metrics struct {
	decisions    *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	loaded       *prometheus.GaugeVec
	loadFailures *prometheus.CounterVec
}

// MetricsOption allows customizing the metrics registry.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registerer prometheus.Registerer
}

// WithRegisterer overrides the default Prometheus registerer.
func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.registerer = r
	}
}

// NewMetrics constructs Metrics and registers Prometheus collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{
		registerer: prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_spawn_decisions_total",
		Help: "Spawn decisions per scenario. result=allow|deny.",
	}, []string{"scenario", "result"})

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_spawned_blocks_total",
		Help: "Blocks placed per scenario and material.",
	}, []string{"scenario", "material"})

	loaded := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hatchery_policy_loaded",
		Help: "Whether the last reload produced a policy for the scenario. 1=loaded, 0=unavailable.",
	}, []string{"scenario"})

	loadFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_policy_load_failures_total",
		Help: "Scenario policies that failed to load, by configuration error reason.",
	}, []string{"scenario", "reason"})

	return &Metrics{
		decisions:    register(cfg.registerer, decisions),
		outcomes:     register(cfg.registerer, outcomes),
		loaded:       register(cfg.registerer, loaded),
		loadFailures: register(cfg.registerer, loadFailures),
	}
}

// ObserveDecision counts one spawn roll.
func (m *Metrics) ObserveDecision(scenario string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.decisions.WithLabelValues(scenario, result).Inc()
}

// ObserveOutcome counts one placed block.
func (m *Metrics) ObserveOutcome(scenario string, material blockdata.Material) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(scenario, material.Key()).Inc()
}

// SetLoaded records whether a scenario currently has a policy.
func (m *Metrics) SetLoaded(scenario string, loaded bool) {
	if m == nil {
		return
	}
	var v float64
	if loaded {
		v = 1
	}
	m.loaded.WithLabelValues(scenario).Set(v)
}

// IncLoadFailure counts a scenario that failed to load.
func (m *Metrics) IncLoadFailure(scenario, reason string) {
	if m == nil {
		return
	}
	m.loadFailures.WithLabelValues(scenario, reason).Inc()
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if registerer == nil {
		return collector
	}
	if err := registerer.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
			return collector
		}
		panic(err)
	}
	return collector
}
