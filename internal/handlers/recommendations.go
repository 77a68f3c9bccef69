package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shelfscan/shelfscan/internal/models"
)

type recommendationResponse struct {
	Recommendations *models.RecommendationSet `json:"recommendations"`
	Metadata        models.GenerationMetadata `json:"metadata"`
}

// HandleRecommendations generates a recommendation set for a scan and
// persists it, replacing any earlier set for the same scan.
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req struct {
		ScanID string `json:"scan_id"`
		Count  int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ScanID) == "" {
		h.writeError(w, "scan_id is required", http.StatusBadRequest)
		return
	}

	scan, err := h.store.GetScan(r.Context(), req.ScanID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if scan.DeviceID != device {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if len(scan.Books) == 0 {
		h.writeError(w, "Scan has no recognized books to recommend from", http.StatusBadRequest)
		return
	}

	prefs, err := h.store.GetPreferences(r.Context(), device)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	shelf := h.enricher.Enrich(r.Context(), scan.Books)
	result, err := h.generator.Generate(r.Context(), shelf, prefs, req.Count)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	books := h.enricher.EnrichRecommended(r.Context(), result.Books)
	set, err := h.store.SaveRecommendations(r.Context(), scan.ID, device, books)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	slog.Info("Stored recommendations", "scan_id", scan.ID, "books", len(set.Books))
	h.writeJSON(w, recommendationResponse{Recommendations: set, Metadata: result.Metadata})
}

// HandleRecommendationDetail serves /api/recommendations/{scan_id} and the
// save toggle at /api/recommendations/{scan_id}/save.
func (h *Handler) HandleRecommendationDetail(w http.ResponseWriter, r *http.Request) {
	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/recommendations/")
	scanID, action, _ := strings.Cut(rest, "/")
	if scanID == "" {
		h.writeError(w, "Invalid scan ID", http.StatusBadRequest)
		return
	}

	set, err := h.store.GetRecommendationsByScan(r.Context(), scanID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if set.DeviceID != device {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.writeJSON(w, set)
	case action == "save" && r.Method == http.MethodPost:
		h.saveRecommendations(w, r, scanID)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) saveRecommendations(w http.ResponseWriter, r *http.Request, scanID string) {
	// An absent body or saved field means "keep them".
	saved := true
	var req struct {
		Saved *bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Saved != nil {
		saved = *req.Saved
	}

	if err := h.store.SetRecommendationsSaved(r.Context(), scanID, saved); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"scan_id": scanID, "saved": saved})
}
