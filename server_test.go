package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathParts(t *testing.T) {
	t.Run("Should split id and action segments", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/apps/abc123/deploy", nil)
		assert.Equal(t, []string{"abc123", "deploy"}, pathParts(r, "/api/apps/"))
	})

	t.Run("Should return nil for bare prefix", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/apps/", nil)
		assert.Nil(t, pathParts(r, "/api/apps/"))
	})

	t.Run("Should ignore trailing slash", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/apps/abc123/", nil)
		assert.Equal(t, []string{"abc123"}, pathParts(r, "/api/apps/"))
	})
}

func TestRouting(t *testing.T) {
	handler := NewApp().Routes()

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	t.Run("Should serve health check", func(t *testing.T) {
		w := do("GET", "/healthz")
		assert.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), "ok")
	})

	t.Run("Should reject unknown app action", func(t *testing.T) {
		w := do("POST", "/api/apps/abc123/scale")
		assert.Equal(t, 404, w.Code)
	})

	t.Run("Should reject unsupported method", func(t *testing.T) {
		w := do(http.MethodPatch, "/api/agents")
		assert.Equal(t, 405, w.Code)
	})

	t.Run("Should require an agent ID for terminal sessions", func(t *testing.T) {
		w := do("GET", "/ws/terminal/")
		assert.Equal(t, 400, w.Code)
	})

	t.Run("Should reject job routes without an ID", func(t *testing.T) {
		w := do("DELETE", "/api/jobs/")
		assert.Equal(t, 404, w.Code)
	})
}
