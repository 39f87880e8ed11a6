package api

import (
	"log/slog"
	"net/http"
	"time"

	"hls-liveness/internal/registry"

	"github.com/go-chi/chi/v5"
)

const startedAtLayout = "2006-01-02T15:04:05Z"

type streamResponse struct {
	Name          string `json:"name"`
	Live          bool   `json:"live"`
	StartedAt     string `json:"started_at,omitempty"`
	UptimeSeconds *int64 `json:"uptime_seconds,omitempty"`
	Viewers       int    `json:"viewers"`
}

type statusResponse struct {
	Live        bool `json:"live"`
	StreamCount int  `json:"stream_count"`
}

type streamListResponse struct {
	Streams []streamResponse `json:"streams"`
}

type publishResponse struct {
	Status string `json:"status"`
	Stream string `json:"stream"`
}

// toStreamResponse shapes a record for clients. Start time and uptime are only
// meaningful while the stream is live.
func toStreamResponse(rec registry.StreamRecord, now time.Time) streamResponse {
	out := streamResponse{
		Name:    rec.Name,
		Live:    rec.Live,
		Viewers: rec.ViewerEstimate,
	}
	if rec.Live {
		out.StartedAt = rec.StartedAt.UTC().Format(startedAtLayout)
		uptime := int64(now.Sub(rec.StartedAt) / time.Second)
		out.UptimeSeconds = &uptime
	}
	return out
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /api/status: whether any known stream is live.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	streams := h.reg.GetAllStreams()
	resp := statusResponse{StreamCount: len(streams)}
	for _, s := range streams {
		if s.Live {
			resp.Live = true
			break
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListStreams handles GET /api/streams.
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	streams := h.reg.GetAllStreams()
	resp := streamListResponse{Streams: make([]streamResponse, 0, len(streams))}
	for _, s := range streams {
		resp.Streams = append(resp.Streams, toStreamResponse(s, now))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetStream handles GET /api/streams/{name}. Unknown streams are reported
// offline unless their playlist is fresh; they never produce a 404.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, toStreamResponse(h.reg.GetStream(name), h.now()))
}

// Publish handles POST /api/streams/{name}/publish from the ingest server.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.reg.OnPublish(name)
	if h.metrics != nil {
		h.metrics.IncPublishEvent("publish")
	}
	h.writeJSON(w, http.StatusOK, publishResponse{Status: "ok", Stream: name})
}

// PublishDone handles POST /api/streams/{name}/publish_done from the ingest server.
func (h *Handler) PublishDone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.reg.OnPublishDone(name)
	if h.metrics != nil {
		h.metrics.IncPublishEvent("publish_done")
	}
	h.log.Debug("publish done callback", slog.String("stream", name))
	h.writeJSON(w, http.StatusOK, publishResponse{Status: "ok", Stream: name})
}
