package contract

import (
	"context"
	"fmt"
	"strings"
)

const TraceIDHeader = "X-Trace-Id"

// Verdicts reported for an egg-form event.
const (
	VerdictAllowed     = "allowed"
	VerdictCancelled   = "cancelled"
	VerdictIgnored     = "ignored"
	VerdictUnavailable = "unavailable"
)

// EggFormEvent is raised by the game server when a dragon egg is about to
// appear on top of the exit portal.
type EggFormEvent struct {
	// PreviouslyKilled is true when the dragon of this battle died before.
	PreviouslyKilled bool `json:"previously_killed"`
	// Cancelled is true when another handler already cancelled the event.
	Cancelled bool `json:"cancelled"`
	// Block is the block-state the server is about to place.
	Block string `json:"block"`
	// NearbyPlayers is reported on failures only.
	NearbyPlayers []string `json:"nearby_players,omitempty"`
	TraceID       string   `json:"-"`
}

// Validate ensures the event carries a block to place.
func (e EggFormEvent) Validate() error {
	if strings.TrimSpace(e.Block) == "" {
		return fmt.Errorf("block required")
	}
	return nil
}

// EggFormResult tells the server what to do with the event.
type EggFormResult struct {
	Scenario  string `json:"scenario"`
	Verdict   string `json:"verdict"`
	Cancelled bool   `json:"cancelled"`
	Block     string `json:"block"`
	TraceID   string `json:"trace_id,omitempty"`
}

// ScenarioFailure describes why one scenario did not load.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path,omitempty"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}

// ReloadResult summarises a configuration reload.
type ReloadResult struct {
	Version  string            `json:"version"`
	Changed  bool              `json:"changed"`
	Loaded   []string          `json:"loaded"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
	Unknown  []string          `json:"unknown,omitempty"`
}

// OK reports whether every scenario loaded.
func (r ReloadResult) OK() bool {
	return len(r.Failures) == 0
}

// ScenarioStatus describes the active policy of one scenario.
type ScenarioStatus struct {
	Scenario    string   `json:"scenario"`
	Available   bool     `json:"available"`
	SpawnChance float64  `json:"spawn_chance,omitempty"`
	Blocks      []string `json:"blocks,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type contextKey string

const traceIDKey contextKey = "hatchery_trace_id"

// WithTraceID stores the trace identifier in context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace identifier.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value := ctx.Value(traceIDKey)
	if value == nil {
		return "", false
	}
	traceID, ok := value.(string)
	return traceID, ok
}
