package health

import (
	"encoding/json"
	"net/http"

	"github.com/searchforge/hatchery/internal/contract"
)

// Checker reports scenario availability.
type Checker interface {
	Ready() bool
	Version() string
	Scenarios() []contract.ScenarioStatus
}

// Readyz returns a handler that answers 200 once every scenario has a policy
// and 503 otherwise.
func Readyz(c Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := c.Ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}

		payload := map[string]any{
			"ready":     ready,
			"version":   c.Version(),
			"scenarios": c.Scenarios(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}
