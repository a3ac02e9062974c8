package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/edumind-api/internal/api"
	apiMiddleware "github.com/phrazzld/edumind-api/internal/api/middleware"
)

// setupRouter registers every route with its middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService)
	projectHandler := api.NewProjectHandler(app.projectService, app.contentService, app.config.Server.MaxUploadBytes)
	contentHandler := api.NewContentHandler(app.contentService)
	chatHandler := api.NewChatHandler(app.chatService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/users/me/", authHandler.Me)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)
				r.Post("/upload_file/", projectHandler.UploadFile)
				r.Get("/{id}/", projectHandler.Get)
				r.Delete("/{id}/", projectHandler.Delete)
				r.Put("/{id}/update_file/", projectHandler.UpdateFile)
				r.Post("/{id}/generate_content/", projectHandler.GenerateContent)
				r.Post("/{id}/generate_podcast_script/", projectHandler.GeneratePodcastScript)
				r.Post("/{id}/generate_podcast_audio/", projectHandler.GeneratePodcastAudio)
			})

			r.Get("/content/", contentHandler.List)
			r.Get("/content/{id}/", contentHandler.Get)

			r.Get("/chat-sessions/", chatHandler.ListSessions)
			r.Post("/chat-sessions/post_message/", chatHandler.PostMessage)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
