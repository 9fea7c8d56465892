//go:build nometrics

package policy

import "github.com/searchforge/hatchery/blockdata"

type Metrics struct{}

type MetricsOption func(*metricsConfig)

type metricsConfig struct{}

func NewMetrics(...MetricsOption) *Metrics {
	return nil
}

func WithRegisterer(_ any) MetricsOption {
	return func(*metricsConfig) {}
}

func (m *Metrics) ObserveDecision(string, bool) {}

func (m *Metrics) ObserveOutcome(string, blockdata.Material) {}

func (m *Metrics) SetLoaded(string, bool) {}

func (m *Metrics) IncLoadFailure(string, string) {}
