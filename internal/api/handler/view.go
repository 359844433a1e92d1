package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/view"
)

const defaultWaitTimeout = 10 * time.Second

// ViewHandler serves the mounted list views of a session's workspace.
type ViewHandler struct {
	base
	gate        *access.Gate
	waitTimeout time.Duration
}

// NewViewHandler creates a ViewHandler. A view whose fetch the backend
// rejects with 401 ends the session through expirer.
func NewViewHandler(expirer SessionExpirer, gate *access.Gate, v *validation.Validator) *ViewHandler {
	return &ViewHandler{base: newBase(expirer, v), gate: gate, waitTimeout: defaultWaitTimeout}
}

// Routes mounts the view endpoints.
func (h *ViewHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{name}", h.Get)
	r.Patch("/{name}", h.Patch)
	r.Post("/{name}/refetch", h.Refetch)
	r.Delete("/{name}", h.Unmount)
}

// List handles GET /views: the views whose page the session may open.
func (h *ViewHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := middleware.GetWorkspace(r.Context())
	s := middleware.GetSession(r.Context())
	state := middleware.GetState(r.Context())

	names := []string{}
	for _, name := range ws.Views.Names() {
		src, _ := ws.Views.Source(name)
		if d, _, _ := h.gate.Check(s, state, src.Route); d.Allow {
			names = append(names, name)
		}
	}
	response.Success(w, http.StatusOK, names, middleware.GetRequestID(r.Context()))
}

// mount resolves and mounts the named view. On failure the response is
// already written.
func (h *ViewHandler) mount(w http.ResponseWriter, r *http.Request) (*view.List, bool) {
	requestID := middleware.GetRequestID(r.Context())
	ws := middleware.GetWorkspace(r.Context())
	name := chi.URLParam(r, "name")

	src, ok := ws.Views.Source(name)
	if !ok {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "View not found", requestID)
		return nil, false
	}
	if !h.allowed(w, r, src) {
		return nil, false
	}
	v, err := ws.Views.Mount(name)
	if err != nil {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "View not found", requestID)
		return nil, false
	}
	return v, true
}

func (h *ViewHandler) allowed(w http.ResponseWriter, r *http.Request, src view.Source) bool {
	d, _, _ := h.gate.Check(middleware.GetSession(r.Context()), middleware.GetState(r.Context()), src.Route)
	if d.Allow {
		return true
	}
	response.Redirect(w, http.StatusSeeOther, d.Redirect, middleware.GetRequestID(r.Context()))
	return false
}

// Get handles GET /views/{name}. With wait=true it blocks until the current
// fetch settles.
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.mount(w, r)
	if !ok {
		return
	}
	h.render(w, r, v)
}

func (h *ViewHandler) render(w http.ResponseWriter, r *http.Request, v *view.List) {
	m := v.Model()
	if b := queryBool(r, "wait"); b != nil && *b {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()
		m = v.Wait(ctx)
	}
	if errors.Is(m.Err, backend.ErrUnauthorized) {
		h.fail(w, r, m.Err, "View")
		return
	}
	response.Success(w, http.StatusOK, m, middleware.GetRequestID(r.Context()))
}

// Patch handles PATCH /views/{name}.
func (h *ViewHandler) Patch(w http.ResponseWriter, r *http.Request) {
	v, ok := h.mount(w, r)
	if !ok {
		return
	}
	var p view.Patch
	if !h.decode(w, r, &p) {
		return
	}
	if err := v.Apply(p); err != nil {
		if errors.Is(err, view.ErrUnknownFilter) {
			response.Err(w, http.StatusBadRequest, "UNKNOWN_FILTER", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		response.Err(w, http.StatusBadRequest, "INVALID_PATCH", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	h.render(w, r, v)
}

// Refetch handles POST /views/{name}/refetch.
func (h *ViewHandler) Refetch(w http.ResponseWriter, r *http.Request) {
	v, ok := h.mount(w, r)
	if !ok {
		return
	}
	v.Refetch()
	h.render(w, r, v)
}

// Unmount handles DELETE /views/{name}.
func (h *ViewHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	ws := middleware.GetWorkspace(r.Context())
	if !ws.Views.Unmount(chi.URLParam(r, "name")) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "View not mounted", middleware.GetRequestID(r.Context()))
		return
	}
	response.NoContent(w)
}
