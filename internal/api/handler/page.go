package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/response"
	"github.com/ndktu/quizdash/internal/routes"
	"github.com/ndktu/quizdash/internal/session"
)

// PageHandler answers the client router: may this session open a page, and
// if so what shell to draw around it.
type PageHandler struct {
	gate *access.Gate
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(gate *access.Gate) *PageHandler {
	return &PageHandler{gate: gate}
}

type pageView struct {
	Page      string              `json:"page"`
	Route     string              `json:"route"`
	Params    map[string]string   `json:"params,omitempty"`
	Principal *session.Principal  `json:"principal,omitempty"`
	Nav       []routes.NavSection `json:"nav,omitempty"`
	Actions   []string            `json:"actions,omitempty"`
}

// Resolve handles GET /pages/*. The page path is everything after /pages.
func (h *PageHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	path := "/" + chi.URLParam(r, "*")
	s := middleware.GetSession(r.Context())

	decision, route, params := h.gate.Check(s, middleware.GetState(r.Context()), path)
	switch {
	case decision.State == session.Loading:
		response.Pending(w, decision.State.String(), requestID)
		return
	case !decision.Allow:
		response.Redirect(w, http.StatusSeeOther, decision.Redirect, requestID)
		return
	}

	out := pageView{Page: route.Page, Route: route.Path, Params: params}
	if decision.State == session.Authenticated {
		out.Principal = s.Principal
		out.Nav = h.gate.NavSections(s.Principal)
		out.Actions = access.Actions(s.Principal)
	}
	response.Success(w, http.StatusOK, out, requestID)
}
