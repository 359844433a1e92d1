package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency the gateway needs to serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	deps    map[string]Pinger
	version string
}

// NewHealthHandler creates a HealthHandler checking deps by name.
func NewHealthHandler(deps map[string]Pinger, version string) *HealthHandler {
	return &HealthHandler{deps: deps, version: version}
}

type dependencyStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type healthData struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// ServeHTTP reports healthy when every dependency answers, degraded
// otherwise. It always answers 200.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	data := healthData{
		Status:       "healthy",
		Version:      h.version,
		Dependencies: make(map[string]dependencyStatus, len(h.deps)),
	}
	for name, p := range h.deps {
		st := dependencyStatus{Connected: true}
		if err := p.Ping(ctx); err != nil {
			st = dependencyStatus{Error: err.Error()}
			data.Status = "degraded"
		}
		data.Dependencies[name] = st
	}

	response.Success(w, http.StatusOK, data, middleware.GetRequestID(r.Context()))
}
