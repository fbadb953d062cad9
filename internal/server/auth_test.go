package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "gw-test-key"

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		path    string
		header  string
		status  int
		message string
	}{
		{name: "open gateway", path: "/v1/invocations", status: http.StatusOK},
		{name: "matching key", key: testKey, path: "/v1/invocations", header: "Bearer " + testKey, status: http.StatusOK},
		{name: "no header", key: testKey, path: "/v1/invocations", status: http.StatusUnauthorized, message: "missing authorization header"},
		{name: "raw key without scheme", key: testKey, path: "/v1/invocations", header: testKey, status: http.StatusUnauthorized, message: "invalid authorization header format, expected 'Bearer <token>'"},
		{name: "lowercase scheme", key: testKey, path: "/v1/invocations", header: "bearer " + testKey, status: http.StatusUnauthorized, message: "invalid authorization header format, expected 'Bearer <token>'"},
		{name: "wrong key", key: testKey, path: "/v1/invocations", header: "Bearer nope", status: http.StatusUnauthorized, message: "invalid master key"},
		{name: "empty token", key: testKey, path: "/v1/invocations", header: "Bearer ", status: http.StatusUnauthorized, message: "invalid master key"},
		{name: "key prefix only", key: testKey, path: "/v1/invocations", header: "Bearer " + testKey[:4], status: http.StatusUnauthorized, message: "invalid master key"},
		{name: "health is public", key: testKey, path: "/health", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, &Config{MasterKey: tt.key})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			f.server.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.message == "" {
				return
			}
			var body struct {
				Error struct {
					Type    string `json:"type"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "authentication_error", body.Error.Type)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestAuthMiddleware_SkipPathsAreExact(t *testing.T) {
	e := echo.New()
	e.Use(AuthMiddleware(testKey, []string{"/health"}))
	e.GET("/*", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for path, want := range map[string]int{
		"/health":        http.StatusNoContent,
		"/health/deep":   http.StatusUnauthorized,
		"/v1/health":     http.StatusUnauthorized,
		"/healthz":       http.StatusUnauthorized,
		"/v1/format/foo": http.StatusUnauthorized,
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, strings.NewReader("")))
		assert.Equal(t, want, rec.Code, path)
	}
}
