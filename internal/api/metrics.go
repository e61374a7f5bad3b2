package api

import (
	"encoding/json"
	"net/http"

	"github.com/heysubinoy/pyazkv/internal/store"
)

// MetricsHandler returns current store metrics as JSON.
func MetricsHandler(instrumentedStore *store.InstrumentedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		metrics := instrumentedStore.GetMetrics()

		response := map[string]interface{}{
			"operations": map[string]uint64{
				"get":        metrics.GetCount,
				"get_misses": metrics.GetMisses,
				"set":        metrics.SetCount,
				"errors":     metrics.Errors,
			},
			"avg_latency": map[string]string{
				"get": metrics.GetAvgLatency.String(),
				"set": metrics.SetAvgLatency.String(),
			},
			"keys": metrics.Keys,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// MetricsMux serves MetricsHandler at /metrics.
func MetricsMux(instrumentedStore *store.InstrumentedStore) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(instrumentedStore))
	return mux
}
