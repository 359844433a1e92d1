package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/resource"
	"github.com/ndktu/quizdash/internal/session"
)

// CollectionHandler serves list/get/create/update/delete for one resource
// through the session's cache.
type CollectionHandler[T, In any, F backend.Filter] struct {
	base
	what   string
	pick   func(*resource.Set) resource.Collection[T, In, F]
	filter func(r *http.Request, p *session.Principal) F

	// Read and Write are the actions required for reads and writes.
	Read  string
	Write string
}

func newCollectionHandler[T, In any, F backend.Filter](
	b base,
	what, read, write string,
	pick func(*resource.Set) resource.Collection[T, In, F],
	filter func(r *http.Request, p *session.Principal) F,
) *CollectionHandler[T, In, F] {
	return &CollectionHandler[T, In, F]{base: b, what: what, pick: pick, filter: filter, Read: read, Write: write}
}

func (h *CollectionHandler[T, In, F]) collection(r *http.Request) resource.Collection[T, In, F] {
	return h.pick(middleware.GetWorkspace(r.Context()).Resources)
}

// Routes mounts the handler: reads need Read, writes need Write.
func (h *CollectionHandler[T, In, F]) Routes(r chi.Router) {
	r.With(middleware.RequireAction(h.Read)).Get("/", h.List)
	r.With(middleware.RequireAction(h.Read)).Get("/{id}", h.Get)
	r.With(middleware.RequireAction(h.Write)).Post("/", h.Create)
	r.With(middleware.RequireAction(h.Write)).Put("/{id}", h.Update)
	r.With(middleware.RequireAction(h.Write)).Delete("/{id}", h.Delete)
}

// List handles GET /.
func (h *CollectionHandler[T, In, F]) List(w http.ResponseWriter, r *http.Request) {
	f := h.filter(r, middleware.GetPrincipal(r.Context()))
	list, _, err := h.collection(r).List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, h.what)
		return
	}
	page, limit := pagingOf(f)
	response.SuccessList(w, http.StatusOK, list.Items, list.Total, page, limit, middleware.GetRequestID(r.Context()))
}

// Get handles GET /{id}.
func (h *CollectionHandler[T, In, F]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.collection(r).Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, h.what)
		return
	}
	response.Success(w, http.StatusOK, item, middleware.GetRequestID(r.Context()))
}

// Create handles POST /.
func (h *CollectionHandler[T, In, F]) Create(w http.ResponseWriter, r *http.Request) {
	var in In
	if !h.decode(w, r, &in) {
		return
	}
	item, err := h.collection(r).Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, h.what)
		return
	}
	response.Success(w, http.StatusCreated, item, middleware.GetRequestID(r.Context()))
}

// Update handles PUT /{id}.
func (h *CollectionHandler[T, In, F]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in In
	if !h.decode(w, r, &in) {
		return
	}
	item, err := h.collection(r).Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, h.what)
		return
	}
	response.Success(w, http.StatusOK, item, middleware.GetRequestID(r.Context()))
}

// Delete handles DELETE /{id}.
func (h *CollectionHandler[T, In, F]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.collection(r).Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, h.what)
		return
	}
	response.NoContent(w)
}

type pager interface {
	Normalized() (page, limit int)
}

func pagingOf(f any) (page, limit int) {
	if p, ok := f.(pager); ok {
		return p.Normalized()
	}
	return 1, 10
}
