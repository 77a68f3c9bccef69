// Package handlers implements the HTTP API: shelf scan uploads, scan
// history, recommendations, and device preferences.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shelfscan/shelfscan/internal/enrich"
	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/recognition"
	"github.com/shelfscan/shelfscan/internal/recommend"
	"github.com/shelfscan/shelfscan/internal/storage"
)

type Handler struct {
	store      *storage.Store
	recognizer *recognition.Service
	enricher   *enrich.Orchestrator
	generator  *recommend.Generator
	fetcher    *images.Fetcher
}

func New(store *storage.Store, recognizer *recognition.Service, enricher *enrich.Orchestrator, generator *recommend.Generator) *Handler {
	return &Handler{
		store:      store,
		recognizer: recognizer,
		enricher:   enricher,
		generator:  generator,
		fetcher:    images.NewFetcher(),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeServiceError maps pipeline failures onto HTTP statuses: missing rows
// become 404, a recommendation model that timed out becomes 504, other
// model failures become 502, everything else 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	slog.Error("Request failed", "error", err)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, recommend.ErrModelTimeout):
		http.Error(w, "Recommendation model timed out", http.StatusGatewayTimeout)
	case errors.Is(err, recommend.ErrModelAPI):
		http.Error(w, "Recommendation model unavailable", http.StatusBadGateway)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// deviceID extracts the opaque device identifier every API call must carry,
// from the X-Device-ID header or a device_id form/query value.
func (h *Handler) deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if id == "" {
		id = strings.TrimSpace(r.FormValue("device_id"))
	}
	if id == "" {
		h.writeError(w, "X-Device-ID header is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// HandleHealthcheck reports liveness, including a database ping.
func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("Healthcheck database ping failed", "error", err)
		http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}
