package policy

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/searchforge/hatchery/config"
)

// Registry holds one Policy per scenario that loaded successfully. A
// Registry is never modified after NewRegistry returns; reloads build a new one.
type Registry struct {
	policies map[Scenario]*Policy
	failures map[Scenario]error
	unknown  []string
}

// NewRegistry builds a policy for every known scenario found under the
// "scenario" section of root. A scenario that fails to load is logged and left
// unmapped; the remaining scenarios still load.
func NewRegistry(root *config.Node, logger *slog.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "registry")

	r := &Registry{
		policies: make(map[Scenario]*Policy, len(Scenarios())),
		failures: make(map[Scenario]error),
	}

	scenarios, err := config.GetSection(root, KeyScenarios)
	if err != nil {
		logger.Error("invalid config, unable to load scenarios", errorAttrs(err)...)
		for _, s := range Scenarios() {
			r.fail(s, err, metrics)
		}
		return r
	}

	for _, key := range scenarios.Keys() {
		if _, ok := ParseScenario(key); !ok {
			r.unknown = append(r.unknown, key)
			logger.Warn("ignoring unknown scenario", "key", key, "path", scenarios.Qualify(key))
		}
	}

	for _, s := range Scenarios() {
		p, err := buildPolicy(scenarios, s, logger, metrics)
		if err != nil {
			attrs := append([]any{"scenario", s.String()}, errorAttrs(err)...)
			logger.Error("error parsing scenario", attrs...)
			r.fail(s, err, metrics)
			continue
		}
		r.policies[s] = p
		metrics.SetLoaded(s.String(), true)
		logger.Debug("registered policy for scenario", "scenario", s.String())
	}

	return r
}

func buildPolicy(scenarios *config.Node, s Scenario, logger *slog.Logger, metrics *Metrics) (p *Policy, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("building %s policy panicked: %v", s, rec)
		}
	}()

	section, err := config.GetSection(scenarios, s.ConfigKey())
	if err != nil {
		return nil, err
	}
	return NewPolicy(section, logger, metrics)
}

func (r *Registry) fail(s Scenario, err error, metrics *Metrics) {
	r.failures[s] = err
	metrics.SetLoaded(s.String(), false)
	reason := "internal"
	if cfgErr, ok := config.AsError(err); ok {
		reason = cfgErr.Reason.String()
	}
	metrics.IncLoadFailure(s.String(), reason)
}

// PolicyFor returns the policy for s, or false when s failed to load.
func (r *Registry) PolicyFor(s Scenario) (*Policy, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.policies[s]
	return p, ok
}

// Loaded returns the scenarios that have a policy, in declaration order.
func (r *Registry) Loaded() []Scenario {
	if r == nil {
		return nil
	}
	var out []Scenario
	for _, s := range Scenarios() {
		if _, ok := r.policies[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Failure returns the error that kept s from loading.
func (r *Registry) Failure(s Scenario) error {
	if r == nil {
		return ErrUnavailable
	}
	return r.failures[s]
}

// Unknown returns the ignored configuration keys under the scenario section.
func (r *Registry) Unknown() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.unknown))
	copy(out, r.unknown)
	return out
}

// Complete reports whether every scenario has a policy.
func (r *Registry) Complete() bool {
	return len(r.Loaded()) == len(Scenarios())
}

func errorAttrs(err error) []any {
	if cfgErr, ok := config.AsError(err); ok {
		attrs := []any{
			"path", cfgErr.Path,
			"reason", cfgErr.Reason.String(),
			"message", cfgErr.Message,
		}
		if cfgErr.Err != nil {
			attrs = append(attrs, "cause", cfgErr.Err.Error())
		}
		return attrs
	}
	return []any{"error", err.Error()}
}

// Holder publishes the active Registry. Reloads swap in a complete new
// Registry; readers see either the old or the new one, never a mix.
type Holder struct {
	current atomic.Pointer[Registry]
}

// NewHolder returns a Holder publishing r, which may be nil.
func NewHolder(r *Registry) *Holder {
	h := &Holder{}
	if r != nil {
		h.current.Store(r)
	}
	return h
}

// Current returns the active registry, or nil before the first load.
func (h *Holder) Current() *Registry {
	return h.current.Load()
}

// Swap publishes r and returns the registry it replaced.
func (h *Holder) Swap(r *Registry) *Registry {
	return h.current.Swap(r)
}

// PolicyFor looks s up in the active registry.
func (h *Holder) PolicyFor(s Scenario) (*Policy, bool) {
	return h.Current().PolicyFor(s)
}
