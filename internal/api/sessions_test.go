package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/epgcast/internal/db"
	"github.com/stwalsh4118/epgcast/internal/models"
)

// setupTestDB creates a migrated database in a temporary directory
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, "file://../../migrations"))

	return database, db.NewRepositories(database)
}

func setupSessionTestRouter(repos *db.Repositories) http.Handler {
	router := newTestRouter()
	SetupSessionRoutes(router.Group("/api"), repos.Sessions)
	return router
}

func seedSessions(t *testing.T, repos *db.Repositories) []*models.StreamSession {
	t.Helper()
	ctx := context.Background()

	var sessions []*models.StreamSession
	for i, ch := range []string{"C1", "C2", "C1"} {
		s := models.NewStreamSession(uuid.New(), ch, "10.0.0.1", 1, testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repos.Sessions.Create(ctx, s))
		sessions = append(sessions, s)
	}

	require.NoError(t, repos.Sessions.AddStep(ctx, &models.StreamStep{
		SessionID:     sessions[0].ID,
		Sequence:      1,
		Kind:          "programme",
		Title:         "First",
		Identifier:    "tt0000001",
		OffsetSeconds: 900,
		Outcome:       models.StepOutcomeCompleted,
		Bytes:         10,
		StartedAt:     testNow,
		FinishedAt:    testNow.Add(15 * time.Minute),
	}))
	return sessions
}

func TestListSessions(t *testing.T) {
	_, repos := setupTestDB(t)
	seedSessions(t, repos)
	router := setupSessionTestRouter(repos)

	tests := []struct {
		name      string
		query     string
		wantCount int
	}{
		{"all", "", 3},
		{"limited", "?limit=2", 2},
		{"by channel", "?channel=C1", 2},
		{"unknown channel", "?channel=C9", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			var body SessionListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Sessions, tt.wantCount)
		})
	}
}

func TestListSessions_InvalidLimit(t *testing.T) {
	_, repos := setupTestDB(t)
	router := setupSessionTestRouter(repos)

	for _, q := range []string{"?limit=abc", "?limit=0", "?limit=-3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetSession(t *testing.T) {
	_, repos := setupTestDB(t)
	sessions := seedSessions(t, repos)
	router := setupSessionTestRouter(repos)

	t.Run("found with steps", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessions[0].ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body models.StreamSession
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, sessions[0].ID, body.ID)
		assert.Equal(t, 1, body.StepCount)
		require.Len(t, body.Steps, 1)
		assert.Equal(t, int64(900), body.Steps[0].OffsetSeconds)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.New().String(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
