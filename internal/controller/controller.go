package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/searchforge/hatchery/blockdata"
	"github.com/searchforge/hatchery/config"
	"github.com/searchforge/hatchery/internal/contract"
	"github.com/searchforge/hatchery/obs"
	"github.com/searchforge/hatchery/policy"
)

// KeyDebugLogging toggles debug-level logging from the configuration file.
const KeyDebugLogging = "debug-logging"

var (
	// ErrBadRequest indicates the event was invalid.
	ErrBadRequest = errors.New("bad request")
	// ErrReload indicates the configuration could not be read or parsed.
	ErrReload = errors.New("reload failed")
)

// Config groups controller dependencies.
type Config struct {
	Source   Source
	Logger   *slog.Logger
	LogLevel *slog.LevelVar
	Metrics  *policy.Metrics
}

// Controller connects the configuration source, the active policy registry
// and the game server's egg-form events.
type Controller struct {
	source   Source
	holder   *policy.Holder
	logger   *slog.Logger
	level    *slog.LevelVar
	metrics  *policy.Metrics
	tracer   trace.Tracer
	versions versionTracker

	reloadMu sync.Mutex
}

// New constructs a controller. No policies are active until Reload succeeds.
func New(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		source:  cfg.Source,
		holder:  policy.NewHolder(nil),
		logger:  logger,
		level:   cfg.LogLevel,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("github.com/searchforge/hatchery/internal/controller"),
	}, nil
}

// Registry returns the active registry, nil before the first reload.
func (c *Controller) Registry() *policy.Registry {
	return c.holder.Current()
}

// Version returns the digest of the last applied document.
func (c *Controller) Version() string {
	return c.versions.current()
}

// Reload reads the configuration, rebuilds every policy and swaps the new
// registry in. If the document cannot be read or is not valid YAML the
// previous registry stays active and an error is returned. Broken scenarios
// are reported in the result, not as an error.
func (c *Controller) Reload(ctx context.Context) (contract.ReloadResult, error) {
	ctx, span := c.tracer.Start(ctx, "hatchery.reload")
	defer span.End()

	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	var result contract.ReloadResult

	data, err := c.source.Load(ctx)
	if err != nil {
		return result, c.reloadFailed(span, fmt.Errorf("%w: %w", ErrReload, err))
	}
	root, err := config.Parse(data)
	if err != nil {
		return result, c.reloadFailed(span, fmt.Errorf("%w: %w", ErrReload, err))
	}

	c.applyDebugLogging(root)

	registry := policy.NewRegistry(root, c.logger, c.metrics)
	c.holder.Swap(registry)

	result.Version = ConfigVersion(data)
	result.Changed = c.versions.observe(result.Version)
	result.Unknown = registry.Unknown()
	for _, s := range registry.Loaded() {
		result.Loaded = append(result.Loaded, s.String())
	}
	for _, s := range policy.Scenarios() {
		if err := registry.Failure(s); err != nil {
			result.Failures = append(result.Failures, describeFailure(s, err))
		}
	}

	outcome := "ok"
	if !result.OK() {
		outcome = "partial"
	}
	obs.RecordReload(outcome)
	span.SetAttributes(
		attribute.String("hatchery.config_version", result.Version),
		attribute.Int("hatchery.loaded", len(result.Loaded)),
		attribute.Int("hatchery.failures", len(result.Failures)),
	)
	c.logger.Info("configuration reloaded",
		"version", result.Version,
		"changed", result.Changed,
		"loaded", strings.Join(result.Loaded, ","),
		"failures", len(result.Failures),
	)
	return result, nil
}

func (c *Controller) reloadFailed(span trace.Span, err error) error {
	obs.RecordReload("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("configuration reload failed, keeping previous policies", "error", err)
	return err
}

func (c *Controller) applyDebugLogging(root *config.Node) {
	enabled, err := config.ParseValue(root, KeyDebugLogging, parseFlag)
	if err != nil {
		c.logger.Error("invalid config, defaulting to debug logging", "error", err)
		enabled = true
	}
	if c.level == nil {
		return
	}
	if enabled {
		c.level.Set(slog.LevelDebug)
	} else {
		c.level.Set(slog.LevelInfo)
	}
}

// parseFlag treats anything other than "true" as false.
func parseFlag(raw string) (bool, error) {
	return strings.EqualFold(strings.TrimSpace(raw), "true"), nil
}

func describeFailure(s policy.Scenario, err error) contract.ScenarioFailure {
	failure := contract.ScenarioFailure{
		Scenario: s.String(),
		Reason:   "internal",
		Message:  err.Error(),
	}
	if cfgErr, ok := config.AsError(err); ok {
		failure.Path = cfgErr.Path
		failure.Reason = cfgErr.Reason.String()
		failure.Message = cfgErr.Message
		if cfgErr.Err != nil {
			failure.Message += ": " + cfgErr.Err.Error()
		}
	}
	return failure
}

// HandleEggForm decides what happens to a dragon egg that is about to appear.
// Events already cancelled elsewhere are left alone. When no policy is loaded
// for the scenario the event is cancelled.
func (c *Controller) HandleEggForm(ctx context.Context, event contract.EggFormEvent) (contract.EggFormResult, error) {
	_, span := c.tracer.Start(ctx, "hatchery.egg_form")
	defer span.End()

	result := contract.EggFormResult{
		Block:     event.Block,
		Cancelled: event.Cancelled,
		TraceID:   event.TraceID,
	}

	if event.Cancelled {
		c.logger.Debug("egg spawning was already cancelled, ignoring event")
		result.Verdict = contract.VerdictIgnored
		obs.RecordEggEvent("", result.Verdict)
		return result, nil
	}

	if err := event.Validate(); err != nil {
		return result, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	current, err := blockdata.ParseData(event.Block)
	if err != nil {
		return result, fmt.Errorf("%w: block: %v", ErrBadRequest, err)
	}

	scenario := policy.MatchBattle(event.PreviouslyKilled)
	result.Scenario = scenario.String()
	span.SetAttributes(attribute.String("hatchery.scenario", result.Scenario))
	c.logger.Debug("detected scenario", "scenario", result.Scenario, "trace_id", event.TraceID)

	p, ok := c.holder.PolicyFor(scenario)
	if !ok {
		result.Verdict = contract.VerdictUnavailable
		result.Cancelled = true
		span.SetStatus(codes.Error, policy.ErrUnavailable.Error())
		c.logger.Error("error handling egg spawning, cancelling event; did the config fail to load?",
			"scenario", result.Scenario,
			"error", policy.ErrUnavailable,
			"nearby_players", strings.Join(event.NearbyPlayers, ", "),
			"trace_id", event.TraceID,
		)
		obs.RecordEggEvent(result.Scenario, result.Verdict)
		return result, nil
	}

	if !p.Decide() {
		result.Verdict = contract.VerdictCancelled
		result.Cancelled = true
		c.logger.Debug("cancelled egg spawning", "scenario", result.Scenario)
		obs.RecordEggEvent(result.Scenario, result.Verdict)
		return result, nil
	}

	slot := blockdata.NewState(current)
	p.Apply(slot)
	result.Verdict = contract.VerdictAllowed
	result.Block = slot.BlockData().AsString()
	c.logger.Debug("allowed egg spawning, updated block", "scenario", result.Scenario, "block", result.Block)
	obs.RecordEggEvent(result.Scenario, result.Verdict)
	return result, nil
}

// Scenarios reports the active policy of every scenario.
func (c *Controller) Scenarios() []contract.ScenarioStatus {
	registry := c.holder.Current()
	out := make([]contract.ScenarioStatus, 0, len(policy.Scenarios()))
	for _, s := range policy.Scenarios() {
		status := contract.ScenarioStatus{Scenario: s.String()}
		if p, ok := registry.PolicyFor(s); ok {
			status.Available = true
			status.SpawnChance = p.SpawnChance()
			for _, block := range p.Outcomes() {
				status.Blocks = append(status.Blocks, block.AsString())
			}
		} else if err := registry.Failure(s); err != nil {
			status.Error = err.Error()
		}
		out = append(out, status)
	}
	return out
}

// Ready reports whether every scenario has a policy.
func (c *Controller) Ready() bool {
	return c.holder.Current().Complete()
}
