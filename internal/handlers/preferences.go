package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shelfscan/shelfscan/internal/models"
)

// HandlePreferences serves the device taste profile: GET returns it (empty
// if never saved), PUT validates and replaces it.
func (h *Handler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	device, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := h.store.GetPreferences(r.Context(), device)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, prefs)
	case http.MethodPut:
		var prefs models.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			h.writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		prefs.DeviceID = device
		if err := prefs.Normalize(); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.store.SavePreferences(r.Context(), &prefs); err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, &prefs)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
