package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-classroom/internal/api"
	apiMiddleware "github.com/phrazzld/scry-classroom/internal/api/middleware"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/notify"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	reviewHandler := api.NewReviewHandler(app.reviews, app.logger)
	sessionHandler := api.NewSessionHandler(app.sessions, app.logger)
	evaluationHandler := api.NewEvaluationHandler(app.evaluations, app.logger)
	grantHandler := api.NewGrantHandler(app.distribution, app.logger)
	importHandler := api.NewImportHandler(app.imports, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Public; an identity is attached when a token is sent.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuthenticate)
			r.Post("/grants/resolve", grantHandler.Resolve)
			r.Post("/grants/view", grantHandler.View)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/cards/{id}/grade", reviewHandler.GradeCard)
			r.Get("/collections/{id}/due", reviewHandler.DueCards)

			r.Post("/sessions", sessionHandler.Start)
			r.Post("/sessions/{id}/complete", sessionHandler.Complete)
			r.Put("/sessions/{id}/annotation", sessionHandler.Annotate)
			r.Get("/sessions/{id}", sessionHandler.Get)

			r.With(apiMiddleware.RequireRole(domain.RoleTeacher, domain.RoleAdmin)).
				Get("/evaluations/students", evaluationHandler.Students)
			r.Get("/evaluations/me", evaluationHandler.Me)

			r.Post("/collections/{id}/grants", grantHandler.Issue)
			r.Get("/grants", grantHandler.List)
			r.Delete("/grants/{id}", grantHandler.Deactivate)

			r.Post("/imports", importHandler.ImportByGrant)
			r.Post("/imports/class", importHandler.ImportFromClass)
		})
	})

	r.Method(http.MethodGet, "/ws", notify.NewWebSocketHandler(app.hub, app.jwtService, app.config.Notify, app.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
