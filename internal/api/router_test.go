package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/searchforge/hatchery/internal/contract"
	"github.com/searchforge/hatchery/internal/controller"
	"github.com/searchforge/hatchery/testutil"
)

type fixture struct {
	server *httptest.Server
	source *testutil.FakeSource
	clock  atomic.Int64
}

func newFixture(t *testing.T, doc string, burst int) *fixture {
	t.Helper()
	f := &fixture{source: testutil.NewFakeSource(doc)}
	f.clock.Store(time.Unix(1_700_000_000, 0).UnixNano())
	ctrl, err := controller.New(controller.Config{
		Source: f.source,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	router, err := NewRouter(ctrl, Options{
		ReloadBurst:  burst,
		ReloadRefill: time.Minute,
		Now:          func() time.Time { return time.Unix(0, f.clock.Load()) },
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func validDoc() string {
	return testutil.RootConfig(map[string]string{
		"first":      testutil.ValidScenario,
		"subsequent": testutil.ValidScenario,
	})
}

func TestNewRouterRequiresController(t *testing.T) {
	if _, err := NewRouter(nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadinessFollowsReload(t *testing.T) {
	f := newFixture(t, validDoc(), 5)

	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	if resp.Header.Get(contract.TraceIDHeader) == "" {
		t.Fatal("expected generated trace id")
	}

	if resp := f.do(t, http.MethodGet, "/readyz", "", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz before reload: %d", resp.StatusCode)
	}

	var result contract.ReloadResult
	if resp := f.do(t, http.MethodPost, "/v1/reload", "", &result); resp.StatusCode != http.StatusOK {
		t.Fatalf("reload: %d", resp.StatusCode)
	}
	if !result.OK() || len(result.Loaded) != 2 || result.Version == "" {
		t.Fatalf("unexpected reload result %+v", result)
	}

	if resp := f.do(t, http.MethodGet, "/readyz", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz after reload: %d", resp.StatusCode)
	}

	var listing struct {
		Version   string                    `json:"version"`
		Scenarios []contract.ScenarioStatus `json:"scenarios"`
	}
	f.do(t, http.MethodGet, "/v1/scenarios", "", &listing)
	if listing.Version != result.Version || len(listing.Scenarios) != 2 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if got := listing.Scenarios[0]; !got.Available || got.SpawnChance != 0.5 || len(got.Blocks) != 2 {
		t.Fatalf("unexpected scenario status %+v", got)
	}
}

func TestReloadIsRateLimited(t *testing.T) {
	f := newFixture(t, validDoc(), 2)

	for i := 0; i < 2; i++ {
		if resp := f.do(t, http.MethodPost, "/v1/reload", "", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("reload %d: %d", i, resp.StatusCode)
		}
	}
	resp := f.do(t, http.MethodPost, "/v1/reload", "", nil)
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	f.clock.Add(int64(time.Minute))
	if resp := f.do(t, http.MethodPost, "/v1/reload", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reload after refill: %d", resp.StatusCode)
	}
}

func TestReloadFailureIsReported(t *testing.T) {
	f := newFixture(t, "scenario: [broken", 5)

	var body map[string]string
	resp := f.do(t, http.MethodPost, "/v1/reload", "", &body)
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body["error"], "reload failed") {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
}

func TestEggFormEvent(t *testing.T) {
	f := newFixture(t, testutil.RootConfig(map[string]string{
		"first": "spawn-chance: 1\nspawned-block:\n  rod:\n    block-type: end_rod\n    block-data: \"[facing=west]\"\n    weight: 1\n",
	}), 5)
	f.do(t, http.MethodPost, "/v1/reload", "", nil)

	var result contract.EggFormResult
	req, _ := http.NewRequest(http.MethodPost, f.server.URL+"/v1/events/egg-form",
		strings.NewReader(`{"previously_killed":false,"block":"minecraft:dragon_egg"}`))
	req.Header.Set(contract.TraceIDHeader, "trace-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || result.Verdict != contract.VerdictAllowed ||
		result.Block != "minecraft:end_rod[facing=west]" || result.TraceID != "trace-123" {
		t.Fatalf("unexpected result %d %+v", resp.StatusCode, result)
	}

	result = contract.EggFormResult{}
	f.do(t, http.MethodPost, "/v1/events/egg-form",
		`{"previously_killed":true,"block":"minecraft:dragon_egg","nearby_players":["alex"]}`, &result)
	if result.Verdict != contract.VerdictUnavailable || !result.Cancelled || result.Scenario != "subsequent" {
		t.Fatalf("expected unavailable subsequent scenario, got %+v", result)
	}
}

func TestEggFormRejectsMalformedEvents(t *testing.T) {
	f := newFixture(t, validDoc(), 5)
	for _, body := range []string{
		`not json`,
		`{"block":"minecraft:dragon_egg","extra":1}`,
		`{"block":""}`,
		`{"block":"minecraft:mystery"}`,
	} {
		if resp := f.do(t, http.MethodPost, "/v1/events/egg-form", body, nil); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestBlockDataLookup(t *testing.T) {
	f := newFixture(t, "", 5)

	var out map[string]string
	q := url.Values{"type": {"END_ROD"}, "data": {"[facing=up]"}}
	if resp := f.do(t, http.MethodGet, "/v1/blockdata?"+q.Encode(), "", &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("blockdata: %d", resp.StatusCode)
	}
	if out["block"] != "minecraft:end_rod[facing=up]" || out["material"] != "minecraft:end_rod" {
		t.Fatalf("unexpected response %v", out)
	}

	out = nil
	q = url.Values{"data": {"minecraft:dragon_egg"}}
	f.do(t, http.MethodGet, "/v1/blockdata?"+q.Encode(), "", &out)
	if out["block"] != "minecraft:dragon_egg" || out["state"] != "" {
		t.Fatalf("unexpected response %v", out)
	}

	for _, q := range []url.Values{
		{"type": {"nope"}},
		{"type": {"end_rod"}, "data": {"[facing=sideways]"}},
		{"data": {"[facing=up]"}},
	} {
		if resp := f.do(t, http.MethodGet, "/v1/blockdata?"+q.Encode(), "", nil); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("query %s: expected 400, got %d", q.Encode(), resp.StatusCode)
		}
	}
}

func TestReloadLimiter(t *testing.T) {
	if !(*reloadLimiter)(nil).allow(time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if newReloadLimiter(0, time.Second, time.Now()) != nil {
		t.Fatal("zero burst disables limiting")
	}

	start := time.Unix(0, 0)
	l := newReloadLimiter(1, time.Second, start)
	if !l.allow(start) || l.allow(start) {
		t.Fatal("expected one token")
	}
	if l.allow(start.Add(500 * time.Millisecond)) {
		t.Fatal("token must not refill early")
	}
	if !l.allow(start.Add(time.Second)) {
		t.Fatal("token must refill after interval")
	}
	if !l.allow(start.Add(time.Hour)) || l.allow(start.Add(time.Hour)) {
		t.Fatal("burst must cap refilled tokens")
	}
}
