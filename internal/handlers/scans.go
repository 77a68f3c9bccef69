package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
)

// maxUploadBytes caps one uploaded shelf photo.
const maxUploadBytes = 10 * 1024 * 1024

// scanResponse is the wire shape for a scan with metadata enrichment
// applied to its books.
type scanResponse struct {
	ID        string                `json:"id"`
	DeviceID  string                `json:"device_id"`
	CreatedAt time.Time             `json:"created_at"`
	Books     []models.EnrichedBook `json:"books"`
}

// HandleScans routes the scan collection: POST runs a shelf photo through
// the vision model and persists the result, GET lists the device's scans.
func (h *Handler) HandleScans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createScan(w, r)
	case http.MethodGet:
		h.listScans(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createScan(w http.ResponseWriter, r *http.Request) {
	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	image, err := h.readShelfImage(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	books, err := h.recognizer.RecognizeShelf(r.Context(), image)
	if err != nil {
		slog.Error("Shelf recognition failed", "device_id", device, "error", err)
		http.Error(w, "Vision model unavailable", http.StatusBadGateway)
		return
	}

	scan, err := h.store.CreateScan(r.Context(), device, books)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	slog.Info("Created scan", "scan_id", scan.ID, "device_id", device, "books", len(scan.Books))
	h.writeJSON(w, scanResponse{
		ID:        scan.ID,
		DeviceID:  scan.DeviceID,
		CreatedAt: scan.CreatedAt,
		Books:     h.enricher.Enrich(r.Context(), scan.Books),
	})
}

// readShelfImage pulls the photo out of the request: either a multipart
// file upload, or a JSON body naming an image_url to fetch.
func (h *Handler) readShelfImage(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			file, _, err = r.FormFile("files")
		}
		if err != nil {
			return nil, fmt.Errorf("no image file in upload: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		if len(data) > maxUploadBytes {
			return nil, fmt.Errorf("uploaded file exceeds %d bytes", maxUploadBytes)
		}
		if len(data) == 0 {
			return nil, errors.New("uploaded file is empty")
		}
		return data, nil
	}

	var req struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, errors.New("provide an image file upload or an image_url")
	}

	data, err := h.fetcher.Fetch(r.Context(), req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image_url: %w", err)
	}
	return data, nil
}

func (h *Handler) listScans(w http.ResponseWriter, r *http.Request) {
	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	scans, err := h.store.ListScans(r.Context(), device, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{"scans": scans})
}

// HandleScanDetail serves one scan by ID. Enrichment runs at read time, so
// metadata cached after the scan was created still shows up.
func (h *Handler) HandleScanDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, "Invalid scan ID", http.StatusBadRequest)
		return
	}

	scan, err := h.store.GetScan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if scan.DeviceID != device {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, scanResponse{
		ID:        scan.ID,
		DeviceID:  scan.DeviceID,
		CreatedAt: scan.CreatedAt,
		Books:     h.enricher.Enrich(r.Context(), scan.Books),
	})
}
