// Package api exposes the stream registry, key store and artifact directory
// over HTTP using go-chi.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"hls-liveness/internal/auth"
	"hls-liveness/internal/platform/metrics"
	"hls-liveness/internal/registry"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"
	jsonContentType     = "application/json"
)

// Handler holds the collaborators shared by every endpoint.
type Handler struct {
	reg     *registry.Registry
	keys    *auth.KeyStore
	hlsDir  string
	webDir  string
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler returns a Handler. hlsDir is the artifact directory served under
// /hls/ and webDir holds the player page. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(reg *registry.Registry, keys *auth.KeyStore, hlsDir, webDir string, log *slog.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		reg:     reg,
		keys:    keys,
		hlsDir:  hlsDir,
		webDir:  webDir,
		log:     log.With("component", "api"),
		metrics: m,
		now:     time.Now,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("write response failed", slog.String("error", err.Error()))
	}
}
