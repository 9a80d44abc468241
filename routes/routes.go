package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/robertrinh/transcendence-sub001/handlers"
	"github.com/robertrinh/transcendence-sub001/middleware"
)

type Handlers struct {
	Matchmaking *handlers.MatchmakingHandler
	Games       *handlers.GameHandler
	Tournaments *handlers.TournamentHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.Games.List)
			r.Get("/queue", h.Matchmaking.ListQueue)

			r.Post("/matchmaking", h.Matchmaking.Enqueue)
			r.Get("/matchmaking", h.Matchmaking.Status)
			r.Put("/matchmaking/cancel", h.Matchmaking.Cancel)

			r.Post("/host", h.Matchmaking.HostLobby)
			r.Post("/joinlobby", h.Matchmaking.JoinLobby)

			r.Post("/ready", h.Games.SetReady)
			r.Get("/{id}/ready", h.Games.ReadyStatus)
			r.Put("/{id}/start", h.Games.Start)
			r.Put("/{id}/finish", h.Games.Finish)
			r.Put("/{id}/cancel", h.Games.Cancel)
			r.Get("/{id}", h.Games.Get)
			r.Delete("/{id}", h.Games.Delete)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournaments.List)
			r.Post("/", h.Tournaments.Create)
			r.Get("/{id}", h.Tournaments.Get)
			r.Delete("/{id}", h.Tournaments.Delete)
			r.Post("/{id}/join", h.Tournaments.Join)
			r.Post("/{id}/leave", h.Tournaments.Leave)
			r.Post("/{id}/result", h.Tournaments.RecordResult)
		})

		r.Get("/ws", h.WebSocket.Serve)
	})

	return router
}
