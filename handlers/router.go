package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter wires the index routes and the middleware chain.
func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(SecurityHeadersMiddleware)
	mux.Use(CSRFMiddleware)
	mux.Use(SessionMiddleware(app))

	mux.Get("/", MakeHandler(app, HandleRootIndex))
	mux.Route("/index/{forumID}", func(r chi.Router) {
		r.Get("/", MakeHandler(app, HandleIndex))
		r.Get("/markread/{returnID}", MakeHandler(app, HandleMarkRead))
	})
	mux.Get("/list/{forumID}", MakeHandler(app, HandleList))
	mux.Get("/feed/{forumID}", MakeHandler(app, HandleFeed))
	mux.Get("/forum/{forumID}/unlock", MakeHandler(app, HandleUnlockForum))
	mux.Post("/forum/{forumID}/unlock", MakeHandler(app, HandleUnlockForum))

	return mux
}
