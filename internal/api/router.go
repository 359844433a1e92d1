package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ndktu/quizdash/internal/access"
	"github.com/ndktu/quizdash/internal/api/handler"
	"github.com/ndktu/quizdash/internal/api/middleware"
	"github.com/ndktu/quizdash/internal/api/validation"
	"github.com/ndktu/quizdash/internal/metrics"
)

// SessionService restores sessions for the middleware and drives the auth
// endpoints.
type SessionService interface {
	middleware.SessionRestorer
	handler.SessionManager
}

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Version    string
	Sessions   SessionService
	Gate       *access.Gate
	Workspaces middleware.WorkspaceAcquirer
	Metrics    *metrics.Metrics
	Pingers    map[string]handler.Pinger
	Cookie     handler.CookieConfig
	OpenAPI    *handler.OpenAPIHandler
	Validator  *validation.Validator
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	healthHandler := handler.NewHealthHandler(deps.Pingers, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.OpenAPI != nil {
		r.Get("/openapi.json", deps.OpenAPI.ServeHTTP)
	}

	v := deps.Validator
	if v == nil {
		v = validation.New()
	}

	authHandler := handler.NewAuthHandler(deps.Sessions, deps.Gate, deps.Cookie, v)
	pageHandler := handler.NewPageHandler(deps.Gate)
	viewHandler := handler.NewViewHandler(deps.Sessions, deps.Gate, v)
	collections := handler.NewCollections(deps.Sessions, v)
	ops := handler.NewOperationsHandler(deps.Sessions, v)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions, deps.Cookie.Name))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/student-login", authHandler.StudentLogin)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/pages/*", pageHandler.Resolve)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Workspace(deps.Workspaces))

			r.Route("/views", viewHandler.Routes)

			r.Route("/api", func(r chi.Router) {
				r.Route("/faculties", collections.Faculties.Routes)
				r.Route("/kafedras", collections.Kafedras.Routes)
				r.Route("/groups", func(r chi.Router) {
					collections.Groups.Routes(r)
					r.With(middleware.RequireAction("student.view")).Get("/{id}/students", ops.GroupStudents)
				})
				r.Route("/subjects", collections.Subjects.Routes)
				r.Route("/teachers", func(r chi.Router) {
					collections.Teachers.Routes(r)
					r.With(middleware.RequireAction("teacher.assign")).Post("/assign-groups", ops.AssignGroups)
					r.With(middleware.RequireAction("teacher.assign")).Post("/assign-subjects", ops.AssignSubjects)
				})
				r.Route("/students", collections.Students.Routes)
				r.Route("/users", collections.Users.Routes)
				r.Route("/roles", func(r chi.Router) {
					collections.Roles.Routes(r)
					r.With(middleware.RequireAction("role.assign")).Post("/assign-permissions", ops.AssignPermissions)
				})
				r.Route("/permissions", collections.Permissions.Routes)
				r.Route("/quizzes", func(r chi.Router) {
					collections.Quizzes.Routes(r)
					r.With(middleware.RequireAction("quiz.toggle")).Patch("/{id}/active", ops.ToggleQuiz)
					r.With(middleware.RequireAction("quiz.repeat")).Post("/{id}/repeat", ops.RepeatQuiz)
				})
				r.Route("/questions", collections.Questions.Routes)

				r.Route("/quiz-process", func(r chi.Router) {
					r.Use(middleware.RequireAction("quiz.take"))
					r.Post("/start", ops.StartQuiz)
					r.Post("/end", ops.EndQuiz)
				})
				r.Route("/results", func(r chi.Router) {
					r.With(middleware.RequireAction("result.view")).Get("/", ops.ListResults)
					r.With(middleware.RequireAction("result.view")).Get("/{id}", ops.GetResult)
					r.With(middleware.RequireAction("result.delete")).Delete("/{id}", ops.DeleteResult)
				})
				r.With(middleware.RequireAction("answers.view")).Get("/user-answers", ops.ListAnswers)
				r.With(middleware.RequireAction("dashboard.view")).Get("/dashboard/stats", ops.DashboardStats)
			})
		})
	})

	return r
}
