package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// --- Public handlers ---

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.CountRuns(r.Context())
	if err != nil {
		s.log.WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "unavailable"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   runs,
	})
}

// listHandler serves every row returned by list, highest id first.
func listHandler[T any](
	s *server,
	what string,
	list func(ctx context.Context) ([]T, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := list(r.Context())
		if err != nil {
			s.log.WithError(err).WithField("table", what).Error("Failed to list rows")
			writeJSON(w, http.StatusInternalServerError,
				errorResponse{"internal error"})

			return
		}

		// The store returns rows in id order.
		slices.Reverse(rows)

		if rows == nil {
			rows = []T{}
		}

		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "runs", s.store.ListRuns)(w, r)
}

func (s *server) handleListPerformance(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "performance", s.store.ListPerformanceResults)(w, r)
}

func (s *server) handleListAppDetails(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "app_details", s.store.ListAppDetails)(w, r)
}

func (s *server) handleListSystemInfo(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "system_info", s.store.ListSystemInfo)(w, r)
}

func (s *server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "libraries", s.store.ListLibraries)(w, r)
}

func (s *server) handleListGPUs(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "gpu", s.store.ListGPUs)(w, r)
}

func (s *server) handleListRunDetails(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "run_details", s.store.ListRunDetails)(w, r)
}

func (s *server) handleListModelMaps(w http.ResponseWriter, r *http.Request) {
	listHandler(s, "model_maps", s.store.ListModelMaps)(w, r)
}
