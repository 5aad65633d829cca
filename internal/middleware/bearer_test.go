package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlinks/internal/middleware"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/private", middleware.BearerToken(), func(c *fiber.Ctx) error {
		return c.SendString(middleware.Token(c))
	})
	return app
}

func TestBearerToken(t *testing.T) {
	app := newApp()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid", header: "Bearer abc123", wantStatus: http.StatusOK, wantBody: "abc123"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc123", wantStatus: http.StatusUnauthorized},
		{name: "no token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "bare token", header: "abc123", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
				return
			}
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}
