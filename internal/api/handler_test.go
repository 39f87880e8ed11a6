package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hls-liveness/internal/auth"
	"hls-liveness/internal/platform/metrics"
	"hls-liveness/internal/platform/ratelimit"
	"hls-liveness/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *chi.Mux
	reg    *registry.Registry
	keys   *auth.KeyStore
	hlsDir string
	webDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil, nil)
}

func newTestServerWith(t *testing.T, m *metrics.Metrics, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	hlsDir := t.TempDir()
	webDir := t.TempDir()
	log := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.New(registry.NewDirSource(hlsDir), registry.WithLogger(log))
	keys := auth.NewKeyStore([]string{"stream"}, true)
	h := NewHandler(reg, keys, hlsDir, webDir, log, m)

	return &testServer{
		router: NewRouter(h, log, m, limiter),
		reg:    reg,
		keys:   keys,
		hlsDir: hlsDir,
		webDir: webDir,
	}
}

func (s *testServer) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_Preflight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodOptions, "/api/streams/cam", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestHandler_PublishLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/streams/cam/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","stream":"cam"}`, rec.Body.String())

	var stream map[string]any
	decode(t, s.do(http.MethodGet, "/api/streams/cam", nil), &stream)
	assert.Equal(t, "cam", stream["name"])
	assert.Equal(t, true, stream["live"])
	assert.Equal(t, float64(0), stream["viewers"])
	assert.Contains(t, stream, "started_at")
	assert.Contains(t, stream, "uptime_seconds")

	var status statusResponse
	decode(t, s.do(http.MethodGet, "/api/status", nil), &status)
	assert.True(t, status.Live)
	assert.Equal(t, 1, status.StreamCount)

	rec = s.do(http.MethodPost, "/api/streams/cam/publish_done", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Streams []map[string]any `json:"streams"`
	}
	decode(t, s.do(http.MethodGet, "/api/streams", nil), &list)
	require.Len(t, list.Streams, 1)
	assert.Equal(t, false, list.Streams[0]["live"])
	assert.NotContains(t, list.Streams[0], "started_at", "offline streams omit start time")
	assert.NotContains(t, list.Streams[0], "uptime_seconds")

	decode(t, s.do(http.MethodGet, "/api/status", nil), &status)
	assert.False(t, status.Live)
}

func TestHandler_GetStream_unknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/streams/ghost", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"ghost","live":false,"viewers":0}`, rec.Body.String())
	assert.Empty(t, s.reg.GetAllStreams())
}

func TestHandler_ListStreams_empty(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/streams", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streams":[]}`, rec.Body.String())
}

func TestToStreamResponse(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := registry.StreamRecord{Name: "cam", Live: true, StartedAt: started, ViewerEstimate: 4}

	got := toStreamResponse(rec, started.Add(90*time.Second))
	assert.Equal(t, "2024-03-01T12:00:00Z", got.StartedAt)
	require.NotNil(t, got.UptimeSeconds)
	assert.Equal(t, int64(90), *got.UptimeSeconds)
	assert.Equal(t, 4, got.Viewers)
}

func TestHandler_Authorize(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		form url.Values
		code int
		body string
	}{
		{"valid key", url.Values{"key": {"stream"}}, http.StatusOK, "OK"},
		{"name fallback", url.Values{"name": {"stream"}}, http.StatusOK, "OK"},
		{"key wins over name", url.Values{"key": {"bad"}, "name": {"stream"}}, http.StatusForbidden, "Forbidden"},
		{"unknown key", url.Values{"key": {"nope"}}, http.StatusForbidden, "Forbidden"},
		{"no key", url.Values{}, http.StatusForbidden, "Forbidden"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/auth", strings.NewReader(tc.form.Encode()))
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
		})
	}
}

func TestHandler_Authorize_rate_limited(t *testing.T) {
	s := newTestServerWith(t, nil, ratelimit.New(1, 1))

	form := url.Values{"key": {"stream"}}.Encode()
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/auth", strings.NewReader(form)).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/auth", strings.NewReader(form)).Code)
}

func TestHandler_Keys(t *testing.T) {
	s := newTestServer(t)

	var generated keyResponse
	rec := s.do(http.MethodPost, "/api/auth/keys", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &generated)
	assert.Len(t, generated.Key, 32)

	var list keyListResponse
	decode(t, s.do(http.MethodGet, "/api/auth/keys", nil), &list)
	assert.True(t, list.Enabled)
	assert.ElementsMatch(t, []string{"stream", generated.Key}, list.Keys)

	form := url.Values{"key": {generated.Key}}.Encode()
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/auth", strings.NewReader(form)).Code)

	var removed keyRemovedResponse
	decode(t, s.do(http.MethodDelete, "/api/auth/keys/"+generated.Key, nil), &removed)
	assert.True(t, removed.Removed)
	assert.Equal(t, generated.Key, removed.Key)

	decode(t, s.do(http.MethodDelete, "/api/auth/keys/"+generated.Key, nil), &removed)
	assert.False(t, removed.Removed)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/auth", strings.NewReader(form)).Code)
}

func TestHandler_ServeArtifact_playlist_records_viewer(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.hlsDir, "cam.m3u8"), "#EXTM3U\n", time.Now())
	s.reg.OnPublish("cam")

	rec := s.do(http.MethodGet, "/hls/cam.m3u8", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#EXTM3U\n", rec.Body.String())
	assert.Equal(t, playlistContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	s.do(http.MethodGet, "/hls/cam.m3u8", nil)
	assert.Equal(t, 2, s.reg.GetStream("cam").ViewerEstimate)
}

func TestHandler_ServeArtifact_segment(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.hlsDir, "cam", "cam-12.ts"), "\x47data", time.Now())
	s.reg.OnPublish("cam")

	rec := s.do(http.MethodGet, "/hls/cam/cam-12.ts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, segmentContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, s.reg.GetStream("cam").ViewerEstimate, "segments are not viewer activity")
}

func TestHandler_ServeArtifact_nested_playlist_uses_stem(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.hlsDir, "cam", "index.m3u8"), "#EXTM3U\n", time.Now())
	s.reg.OnPublish("index")

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/hls/cam/index.m3u8", nil).Code)
	assert.Equal(t, 1, s.reg.GetStream("index").ViewerEstimate)
}

func TestHandler_ServeArtifact_unknown_stream_not_created(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.hlsDir, "cam.m3u8"), "#EXTM3U\n", time.Now())

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/hls/cam.m3u8", nil).Code)
	assert.Empty(t, s.reg.GetAllStreams(), "viewer activity never creates records")
}

func TestHandler_ServeArtifact_errors(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.hlsDir, "sub", "x.ts"), "x", time.Now())

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/hls/../secret.m3u8", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/hls/missing.m3u8", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/hls/sub", nil).Code)
}

func TestHandler_ServeIndex(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Player page not found", rec.Body.String())

	writeFile(t, filepath.Join(s.webDir, "index.html"), "<html></html>", time.Now())
	for _, path := range []string{"/", "/streamingservice", "/streamingservice/"} {
		rec := s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "<html></html>", rec.Body.String(), path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
	}
}

func TestHandler_StaticFiles(t *testing.T) {
	s := newTestServer(t)
	writeFile(t, filepath.Join(s.webDir, "player.js"), "console.log(1)", time.Now())

	rec := s.do(http.MethodGet, "/static/player.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New()
	s := newTestServerWith(t, m, nil)
	writeFile(t, filepath.Join(s.hlsDir, "cam.m3u8"), "#EXTM3U\n", time.Now())

	s.do(http.MethodPost, "/api/streams/cam/publish", nil)
	s.do(http.MethodPost, "/api/streams/other/publish", nil)
	s.do(http.MethodPost, "/api/streams/other/publish_done", nil)
	s.do(http.MethodGet, "/hls/cam.m3u8", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hls_publish_events_total{event="publish"} 2`)
	assert.Contains(t, body, `hls_publish_events_total{event="publish_done"} 1`)
	assert.Contains(t, body, "hls_viewer_activity_total 1")
	assert.Contains(t, body, "hls_live_streams 1")
	assert.Contains(t, body, "hls_known_streams 2")
}
