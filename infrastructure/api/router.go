package api

import (
	"chat-relay/contract"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(log *slog.Logger, h *Handler, verifier contract.IdentityVerifier, ws http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/register", h.Register)
		api.Post("/login", h.Login)

		// The gateway authenticates the upgrade itself, it must answer 401 before upgrading
		api.Get("/ws/{user_id}/{room_id}", ws)

		api.Group(func(pr chi.Router) {
			pr.Use(AuthMiddleware(log, verifier))
			pr.Use(middleware.Timeout(30 * time.Second))

			pr.Post("/rooms", h.CreateRoom)
			pr.Get("/rooms", h.ListRooms)
			pr.Get("/rooms/{room_id}/messages", h.ListMessages)
			pr.Get("/users/search/{username}", h.SearchUsers)
			pr.Get("/stats", h.Stats)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
