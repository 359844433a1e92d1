package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specpkg "github.com/ndktu/quizdash/api"
	"github.com/ndktu/quizdash/internal/api/handler"
)

func TestOpenAPIHandler_ReturnsJSON(t *testing.T) {
	t.Parallel()

	h, err := handler.NewOpenAPIHandler([]byte(`openapi: "3.1.0"
info:
  title: Test API
  version: "1.0.0"
paths: {}
`))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
}

func TestOpenAPIHandler_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := handler.NewOpenAPIHandler([]byte("openapi: [unclosed"))
	assert.Error(t, err)
}

func TestOpenAPIHandler_EmbeddedDocument(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, specpkg.OpenAPISpec, "embedded OpenAPI document should not be empty")

	h, err := handler.NewOpenAPIHandler(specpkg.OpenAPISpec)
	require.NoError(t, err, "embedded document should convert to JSON")
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	paths := doc["paths"].(map[string]interface{})
	assert.Contains(t, paths, "/auth/login")
	assert.Contains(t, paths, "/views/{name}")
}
