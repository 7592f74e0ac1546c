package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

type brokenDB struct{}

func (brokenDB) Health(context.Context) error {
	return errors.New("database is locked")
}

func TestHealthCheck(t *testing.T) {
	database, _ := setupTestDB(t)

	tests := []struct {
		name         string
		checker      healthChecker
		wantStatus   int
		wantDatabase string
	}{
		{"healthy", database, http.StatusOK, "healthy"},
		{"disabled", nil, http.StatusOK, "disabled"},
		{"unhealthy", brokenDB{}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			SetupHealthRoutes(router.Group("/api"), tt.checker, streaming.NewRegistry())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDatabase, body.Database)
			assert.EqualValues(t, 0, body.Details["active_streams"])
		})
	}
}
