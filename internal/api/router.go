package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/jackie/internal/api/handlers"
	"github.com/isdelr/jackie/internal/services"
	"github.com/isdelr/jackie/internal/websocket"
)

// NewRouter creates and configures a new Chi router. staticDir may be empty
// to disable static file serving.
func NewRouter(hub *websocket.Hub, eventService services.EventServiceProvider, allowedOrigins []string, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	eventHandler := handlers.NewEventHandler(eventService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", handlers.GetInfo)
		r.Get("/ws", wsHandler.Serve)

		r.Route("/events", func(r chi.Router) {
			r.Get("/recent", eventHandler.GetRecent)
			r.Get("/aggregations", eventHandler.GetAggregations)
			r.Get("/consistency/{key}", eventHandler.GetByConsistencyKey)
			r.Get("/correlation/{id}", eventHandler.GetByCorrelationID)
		})
	})

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return r
}
