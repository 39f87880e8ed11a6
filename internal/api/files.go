package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hls-liveness/internal/registry"

	"github.com/go-chi/chi/v5"
)

func artifactContentType(ext string) string {
	switch ext {
	case registry.PlaylistExt:
		return playlistContentType
	case ".ts":
		return segmentContentType
	default:
		return "application/octet-stream"
	}
}

// ServeArtifact handles GET /hls/*. Every playlist served counts as viewer
// activity for the stream named by the playlist's file stem.
func (h *Handler) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "*")
	if strings.Contains(file, "..") {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	fullPath := filepath.Join(h.hlsDir, filepath.FromSlash(file))
	f, err := os.Open(fullPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.log.Warn("open artifact failed", slog.String("path", file), slog.String("error", err.Error()))
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ext := filepath.Ext(fullPath)
	w.Header().Set("Content-Type", artifactContentType(ext))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)

	if ext == registry.PlaylistExt {
		h.reg.RecordViewerActivity(strings.TrimSuffix(filepath.Base(fullPath), ext))
		if h.metrics != nil {
			h.metrics.IncViewerActivity()
		}
	}
}

// ServeIndex handles GET / and /streamingservice with the player page.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	body, err := os.ReadFile(filepath.Join(h.webDir, "index.html"))
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Player page not found"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// StaticFiles serves the web directory under /static/.
func (h *Handler) StaticFiles() http.Handler {
	return http.StripPrefix("/static", http.FileServer(http.Dir(h.webDir)))
}
