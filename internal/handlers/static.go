package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves the bundled web UI from the static directory. The
// root path serves index.html; anything outside / and /static/ is a 404,
// which also covers unmatched API paths falling through the mux.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := "index.html"
	switch {
	case r.URL.Path == "/" || r.URL.Path == "/index.html":
	case strings.HasPrefix(r.URL.Path, "/static/"):
		name = strings.TrimPrefix(r.URL.Path, "/static/")
	default:
		http.NotFound(w, r)
		return
	}

	// Cleaning a rooted path keeps ".." from escaping the static dir.
	http.ServeFile(w, r, filepath.Join("static", filepath.Clean("/"+name)))
}
