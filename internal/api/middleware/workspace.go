package middleware

import (
	"context"
	"net/http"

	"github.com/ndktu/quizdash/internal/session"
	"github.com/ndktu/quizdash/internal/workspace"
)

const workspaceKey contextKey = "workspace"

// WorkspaceAcquirer hands out the workspace of a session.
type WorkspaceAcquirer interface {
	Acquire(s *session.Session) *workspace.Workspace
}

// Workspace attaches the session's workspace to the context. It must run
// after RequireAuth.
func Workspace(reg WorkspaceAcquirer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r.Context())
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), workspaceKey, reg.Acquire(s))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetWorkspace returns the workspace attached by Workspace, or nil.
func GetWorkspace(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(workspaceKey).(*workspace.Workspace)
	return ws
}

// WithWorkspace stores ws in ctx as Workspace would.
func WithWorkspace(ctx context.Context, ws *workspace.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey, ws)
}
