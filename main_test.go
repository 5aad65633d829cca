package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlinks/internal/config"
	"devlinks/internal/logging"
	"devlinks/internal/sessions"
)

func loadConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	dir := t.TempDir()
	v := viper.New()
	v.Set("DATA_FILE", filepath.Join(dir, "users.json"))
	v.Set("UPLOADS_DIR", filepath.Join(dir, "uploads"))
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	app, cleanup, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		app.Shutdown()
		cleanup()
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func registerAccount(t *testing.T, app *fiber.App, email string) {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"email": email, "password": "pw1"})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, loadConfig(t, nil))

	status, body := get(t, app, "/api/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, loadConfig(t, map[string]any{"STORE_BACKEND": "memory"}))
	registerAccount(t, app, "a@x.com")

	status, body := get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `devlinks_account_operations_total{operation="register",outcome="ok"} 1`)
}

func TestOpenBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name         string
		overrides    map[string]any
		wantStore    string
		wantSessions string
	}{
		{
			name:         "file",
			wantStore:    config.StoreFile,
			wantSessions: config.SessionMemory,
		},
		{
			name:         "redis",
			overrides:    map[string]any{"STORE_BACKEND": "redis", "REDIS_URL": "redis://" + mr.Addr() + "/0"},
			wantStore:    config.StoreRedis,
			wantSessions: config.SessionRedis,
		},
		{
			name:         "unreachable redis falls back to file",
			overrides:    map[string]any{"STORE_BACKEND": "redis", "REDIS_URL": "redis://127.0.0.1:1/0"},
			wantStore:    config.StoreFile,
			wantSessions: config.SessionMemory,
		},
		{
			name:         "sqlite",
			overrides:    map[string]any{"STORE_BACKEND": "sqlite", "DATABASE_DSN": filepath.Join(t.TempDir(), "devlinks.db")},
			wantStore:    config.StoreSQLite,
			wantSessions: config.SessionSQL,
		},
		{
			name:         "jwt sessions",
			overrides:    map[string]any{"STORE_BACKEND": "memory", "SESSION_BACKEND": "jwt", "JWT_SECRET": "s3cret"},
			wantStore:    config.StoreMemory,
			wantSessions: config.SessionJWT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t, tt.overrides)
			b, err := openBackends(context.Background(), cfg, logging.Discard())
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, tt.wantStore, b.store)
			assert.Equal(t, tt.wantSessions, cfg.ResolvedSessionBackend(b.store))
			_, local := b.localUploadsDir()
			assert.True(t, local)

			token, err := b.sessions.Issue(context.Background(), "a@x.com")
			require.NoError(t, err)
			email, err := b.sessions.Resolve(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", email)
		})
	}
}

func TestAppServesUploads(t *testing.T) {
	app := newTestApp(t, loadConfig(t, map[string]any{"STORE_BACKEND": "memory"}))

	status, _ := get(t, app, "/uploads/missing.png")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOpenBackends_RedisSessionsFallBackToMemory(t *testing.T) {
	cfg := loadConfig(t, map[string]any{
		"STORE_BACKEND":   "memory",
		"SESSION_BACKEND": "redis",
		"REDIS_URL":       "redis://127.0.0.1:1/0",
	})
	b, err := openBackends(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &sessions.MemoryStore{}, b.sessions)
	assert.Nil(t, b.redis)
}
