package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"sigs.k8s.io/yaml"
)

// OpenAPIHandler serves the gateway's OpenAPI document as JSON.
type OpenAPIHandler struct {
	jsonSpec []byte
}

// NewOpenAPIHandler converts the YAML document once, so a broken document
// stops the server at startup.
func NewOpenAPIHandler(yamlSpec []byte) (*OpenAPIHandler, error) {
	doc, err := yaml.YAMLToJSON(yamlSpec)
	if err != nil {
		return nil, fmt.Errorf("converting openapi document: %w", err)
	}
	return &OpenAPIHandler{jsonSpec: doc}, nil
}

// ServeHTTP writes the document.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.jsonSpec); err != nil {
		slog.Error("failed to write openapi response", "error", err)
	}
}
