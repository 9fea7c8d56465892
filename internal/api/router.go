package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/searchforge/hatchery/blockdata"
	"github.com/searchforge/hatchery/internal/contract"
	"github.com/searchforge/hatchery/internal/controller"
	"github.com/searchforge/hatchery/internal/health"
	"github.com/searchforge/hatchery/obs"
)

const maxEventBytes = 64 << 10

// Options tunes the router.
type Options struct {
	// ReloadBurst is how many reloads may run back to back.
	ReloadBurst int
	// ReloadRefill is how long it takes to earn one more reload.
	ReloadRefill time.Duration
	// Now overrides the clock used by the reload limiter.
	Now func() time.Time
}

// Router wires the HTTP endpoints for the egg controller.
type Router struct {
	controller *controller.Controller
	limiter    *reloadLimiter
	now        func() time.Time
}

// NewRouter constructs the HTTP router.
func NewRouter(ctrl *controller.Controller, opts Options) (*chi.Mux, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("controller is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := &Router{
		controller: ctrl,
		limiter:    newReloadLimiter(opts.ReloadBurst, opts.ReloadRefill, now()),
		now:        now,
	}

	mux := chi.NewRouter()
	mux.Use(r.traced)
	mux.Get("/healthz", r.handleHealthz)
	mux.Get("/readyz", health.Readyz(ctrl))
	mux.Route("/v1", func(v1 chi.Router) {
		v1.Get("/scenarios", r.handleScenarios)
		v1.Post("/reload", r.handleReload)
		v1.Post("/events/egg-form", r.handleEggForm)
		v1.Get("/blockdata", r.handleBlockData)
	})

	return mux, nil
}

// traced assigns a trace id and records request metrics.
func (r *Router) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		traceID := req.Header.Get(contract.TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(contract.TraceIDHeader, traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req.WithContext(contract.WithTraceID(req.Context(), traceID)))

		route := req.URL.Path
		if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		obs.ObserveRequest(route, strconv.Itoa(rec.status), time.Since(start), traceID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleScenarios(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   r.controller.Version(),
		"scenarios": r.controller.Scenarios(),
	})
}

func (r *Router) handleReload(w http.ResponseWriter, req *http.Request) {
	if !r.limiter.allow(r.now()) {
		obs.RecordReload("rejected")
		w.Header().Set("Retry-After", strconv.Itoa(int(r.limiter.refillEvery.Seconds()+0.5)))
		writeError(w, http.StatusTooManyRequests, "reload rate limit exceeded")
		return
	}

	result, err := r.controller.Reload(req.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleEggForm(w http.ResponseWriter, req *http.Request) {
	var event contract.EggFormEvent
	decoder := json.NewDecoder(io.LimitReader(req.Body, maxEventBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event: "+err.Error())
		return
	}
	event.TraceID, _ = contract.TraceIDFromContext(req.Context())

	result, err := r.controller.HandleEggForm(req.Context(), event)
	if errors.Is(err, controller.ErrBadRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleBlockData(w http.ResponseWriter, req *http.Request) {
	typ := normalize(req.URL.Query().Get("type"))
	raw := normalize(req.URL.Query().Get("data"))

	var (
		data blockdata.Data
		err  error
	)
	if typ == "" {
		data, err = blockdata.ParseData(raw)
	} else {
		m, ok := blockdata.MatchMaterial(typ)
		if !ok {
			writeError(w, http.StatusBadRequest, blockdata.ErrUnknownMaterial.Error()+": "+typ)
			return
		}
		data, err = blockdata.CreateData(m, raw)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"material": string(data.Material()),
		"state":    data.State(),
		"block":    data.AsString(),
	})
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}
