package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/epgcast/internal/api"
	"github.com/stwalsh4118/epgcast/internal/config"
	"github.com/stwalsh4118/epgcast/internal/db"
)

const guideDoc = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="C1"><display-name>Channel One</display-name></channel>
</tv>`

func testConfig(t *testing.T, guideURL string) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Guide.URL = guideURL
	cfg.Search.Host = "http://127.0.0.1:1"
	cfg.Provider.URL = "http://127.0.0.1:1"
	return cfg
}

func guideServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, guideDoc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})
	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, "file://../../migrations"))
	return database
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	srv := New(testConfig(t, guideServer(t).URL), openTestDB(t))
	h := srv.Handler()

	w := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Database)

	w = get(t, h, "/playlist.m3u")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "#EXTM3U"))
	assert.Contains(t, w.Body.String(), "http://example.com/channel/C1")

	w = get(t, h, "/channel/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, h, "/api/sessions")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, h, "/api/streams")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "epgcast_http_requests_total")
	assert.Contains(t, w.Body.String(), "epgcast_guide_fetch_duration_seconds")
}

func TestServer_WithoutHistoryOrMetrics(t *testing.T) {
	cfg := testConfig(t, guideServer(t).URL)
	cfg.Metrics.Enabled = false
	srv := New(cfg, nil)
	h := srv.Handler()

	w := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "disabled", health.Database)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/sessions").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := New(testConfig(t, "http://127.0.0.1:1/guide.xml"), nil)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestServer_ShutdownFlushesHistory(t *testing.T) {
	srv := New(testConfig(t, "http://127.0.0.1:1/guide.xml"), openTestDB(t))
	require.NotNil(t, srv.history)

	assert.NoError(t, srv.Shutdown(context.Background()))
	// the recorder is closed; a second close returns at once
	assert.NoError(t, srv.history.Close(context.Background()))
}
