package policy

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/searchforge/hatchery/config"
	"github.com/searchforge/hatchery/testutil"
)

func TestRegistryIsolatesBrokenScenario(t *testing.T) {
	broken := strings.Replace(testutil.ValidScenario, "weight: 1", "weight: heavy", 1)
	root := testutil.ParseConfig(t, testutil.RootConfig(map[string]string{
		"first":      testutil.ValidScenario,
		"subsequent": broken,
	}))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegisterer(reg))

	r := NewRegistry(root, logger, metrics)

	if _, ok := r.PolicyFor(First); !ok {
		t.Fatal("expected first scenario to load")
	}
	if _, ok := r.PolicyFor(Subsequent); ok {
		t.Fatal("expected subsequent scenario to be unavailable")
	}
	if r.Complete() {
		t.Fatal("registry must not report complete")
	}
	loaded := r.Loaded()
	if len(loaded) != 1 || loaded[0] != First {
		t.Fatalf("unexpected loaded set %v", loaded)
	}

	cfgErr, ok := config.AsError(r.Failure(Subsequent))
	if !ok || cfgErr.Path != "scenario.subsequent.spawned-block.rod.weight" || cfgErr.Reason != config.ParseFailure {
		t.Fatalf("unexpected failure %v", r.Failure(Subsequent))
	}
	if r.Failure(First) != nil {
		t.Fatalf("unexpected failure for first: %v", r.Failure(First))
	}

	out := logs.String()
	if !strings.Contains(out, "error parsing scenario") || !strings.Contains(out, "path=scenario.subsequent.spawned-block.rod.weight") {
		t.Fatalf("expected failure to be logged with its path, got:\n%s", out)
	}

	if got := promtest.ToFloat64(metrics.loaded.WithLabelValues("first")); got != 1 {
		t.Fatalf("expected first loaded gauge 1, got %v", got)
	}
	if got := promtest.ToFloat64(metrics.loaded.WithLabelValues("subsequent")); got != 0 {
		t.Fatalf("expected subsequent loaded gauge 0, got %v", got)
	}
	if got := promtest.ToFloat64(metrics.loadFailures.WithLabelValues("subsequent", "parse_failure")); got != 1 {
		t.Fatalf("expected one parse failure, got %v", got)
	}
}

func TestRegistryWarnsAboutUnknownScenarios(t *testing.T) {
	root := testutil.ParseConfig(t, testutil.RootConfig(map[string]string{
		"first":      testutil.ValidScenario,
		"subsequent": testutil.ValidScenario,
		"third":      testutil.ValidScenario,
	}))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := NewRegistry(root, logger, nil)

	if !r.Complete() {
		t.Fatalf("unknown key must not block known scenarios: %v / %v", r.Failure(First), r.Failure(Subsequent))
	}
	unknown := r.Unknown()
	if len(unknown) != 1 || unknown[0] != "third" {
		t.Fatalf("unexpected unknown keys %v", unknown)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "key=third") {
		t.Fatalf("expected warning for unknown key, got:\n%s", logs.String())
	}
}

func TestRegistryMissingScenario(t *testing.T) {
	root := testutil.ParseConfig(t, testutil.RootConfig(map[string]string{
		"first": testutil.ValidScenario,
	}))

	r := NewRegistry(root, quietLogger(), nil)
	if _, ok := r.PolicyFor(First); !ok {
		t.Fatal("expected first scenario to load")
	}
	cfgErr, ok := config.AsError(r.Failure(Subsequent))
	if !ok || cfgErr.Reason != config.Missing || cfgErr.Path != "scenario.subsequent" {
		t.Fatalf("unexpected failure %v", r.Failure(Subsequent))
	}
}

func TestRegistryWithoutScenarioSection(t *testing.T) {
	root := testutil.ParseConfig(t, "debug-logging: true\n")

	r := NewRegistry(root, quietLogger(), nil)
	if len(r.Loaded()) != 0 {
		t.Fatalf("expected no policies, got %v", r.Loaded())
	}
	for _, s := range Scenarios() {
		cfgErr, ok := config.AsError(r.Failure(s))
		if !ok || cfgErr.Path != "scenario" || cfgErr.Reason != config.Missing {
			t.Fatalf("%s: unexpected failure %v", s, r.Failure(s))
		}
	}
}

func TestNilRegistryIsUnavailable(t *testing.T) {
	var r *Registry
	if _, ok := r.PolicyFor(First); ok {
		t.Fatal("nil registry must not return policies")
	}
	if r.Complete() || len(r.Loaded()) != 0 || r.Failure(First) != ErrUnavailable {
		t.Fatal("nil registry must report nothing loaded")
	}
}

func TestHolderSwapsWholeRegistries(t *testing.T) {
	full := NewRegistry(testutil.ParseConfig(t, testutil.RootConfig(map[string]string{
		"first":      testutil.ValidScenario,
		"subsequent": testutil.ValidScenario,
	})), quietLogger(), nil)
	empty := NewRegistry(config.Empty(), quietLogger(), nil)

	h := NewHolder(nil)
	if _, ok := h.PolicyFor(First); ok {
		t.Fatal("holder without registry must deny")
	}
	if prev := h.Swap(full); prev != nil {
		t.Fatal("expected no previous registry")
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r := h.Current()
				_, first := r.PolicyFor(First)
				_, subsequent := r.PolicyFor(Subsequent)
				if first != subsequent {
					t.Error("observed a partially loaded registry")
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			h.Swap(empty)
		} else {
			h.Swap(full)
		}
	}
	close(stop)
	wg.Wait()

	if prev := h.Swap(full); prev != full {
		t.Fatal("expected last swapped registry to be returned")
	}
}

func TestScenarioKeys(t *testing.T) {
	for _, s := range Scenarios() {
		parsed, ok := ParseScenario(s.ConfigKey())
		if !ok || parsed != s {
			t.Fatalf("round trip failed for %v", s)
		}
	}
	if _, ok := ParseScenario("FIRST"); ok {
		t.Fatal("keys are case sensitive")
	}
	if MatchBattle(false) != First || MatchBattle(true) != Subsequent {
		t.Fatal("unexpected battle mapping")
	}
	if Scenario(9).String() != "scenario(9)" {
		t.Fatalf("unexpected string %q", Scenario(9).String())
	}
}
