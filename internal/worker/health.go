package worker

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports liveness and the flush job's statistics.
func HealthHandler(version string, job *FlushJob) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"version": version,
			"outbox":  job.MetricsSnapshot(),
		})
	})
}
