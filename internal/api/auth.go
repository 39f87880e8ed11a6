package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type keyResponse struct {
	Key string `json:"key"`
}

type keyListResponse struct {
	Keys    []string `json:"keys"`
	Enabled bool     `json:"enabled"`
}

type keyRemovedResponse struct {
	Removed bool   `json:"removed"`
	Key     string `json:"key"`
}

// Authorize handles POST /api/auth, the ingest server's publish check. The
// key is read from the "key" form value, falling back to "name" so that the
// stream name itself can serve as the key.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	key := r.FormValue("key")
	if key == "" {
		key = r.FormValue("name")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !h.keys.Validate(key) {
		h.log.Warn("publish rejected", slog.String("remote_addr", r.RemoteAddr))
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
		return
	}

	h.log.Info("publish authorized", slog.String("remote_addr", r.RemoteAddr))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GenerateKey handles POST /api/auth/keys.
func (h *Handler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	key := h.keys.Generate()
	h.log.Info("stream key added")
	h.writeJSON(w, http.StatusOK, keyResponse{Key: key})
}

// ListKeys handles GET /api/auth/keys.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, keyListResponse{Keys: h.keys.List(), Enabled: h.keys.Enabled()})
}

// RemoveKey handles DELETE /api/auth/keys/{key}.
func (h *Handler) RemoveKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	removed := h.keys.Remove(key)
	if removed {
		h.log.Info("stream key removed")
	}
	h.writeJSON(w, http.StatusOK, keyRemovedResponse{Removed: removed, Key: key})
}
