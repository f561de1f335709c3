package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// report is the JSON body the handler writes.
type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkReport `json:"checks,omitempty"`
}

type checkReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Handler returns an HTTP handler that runs every registered check and
// reports per-component results as JSON. Healthy and degraded both
// answer 200 so a flapping tunnel does not take token verification out
// of rotation; only unhealthy answers 503.
func (a *Aggregator) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := a.CheckAll(r.Context())
		overall := Overall(results)

		body := report{
			Status: overall.String(),
			Checks: make(map[string]checkReport, len(results)),
		}
		for name, result := range results {
			cr := checkReport{
				Status:  result.Status.String(),
				Message: result.Message,
				Details: result.Details,
			}
			if result.Duration > 0 {
				cr.Duration = result.Duration.Round(time.Microsecond).String()
			}
			if result.Err != nil {
				cr.Error = result.Err.Error()
			}
			body.Checks[name] = cr
		}

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
}
