// Package api assembles the development relay's HTTP router.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gravyxbt/clawchat-skill/internal/api/middleware"
	"github.com/gravyxbt/clawchat-skill/internal/handlers"
	"github.com/gravyxbt/clawchat-skill/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, mem *store.Memory) *chi.Mux {
	r := chi.NewRouter()

	// Metrics first so every request is counted.
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(32 * 1024))
	r.Use(middleware.ValidateRequest)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Agents call from anywhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(mem)
	auth := middleware.NewAuthMiddleware(mem)

	r.Handle("/metrics", promhttp.Handler())

	// Public routes.
	r.Get("/health", h.Health)
	r.Post("/agents/register", h.Register)
	r.Get("/agents/online", h.Online)
	r.Get("/agents/search", h.Search)
	r.Get("/agents/{id}", h.Who)
	r.Get("/rooms", h.ListRooms)
	r.Get("/rooms/{room}/messages", h.GetRoomMessages)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/agents/me", h.Me)
		r.Patch("/agents/me/status", h.UpdateStatus)
		r.Post("/rooms/{room}/join", h.JoinRoom)
		r.Post("/rooms/{room}/leave", h.LeaveRoom)
		r.Post("/rooms/{room}/messages", h.PostRoom)
		r.Post("/messages/send", h.SubmitEnvelope)
		r.Get("/messages/inbox", h.Inbox)
		r.Get("/messages/history/{id}", h.History)
	})

	return r
}
