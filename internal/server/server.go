package server

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/SHIBINSOJU/SHOT-MC/internal/api"
	"github.com/SHIBINSOJU/SHOT-MC/internal/auth"
	"github.com/SHIBINSOJU/SHOT-MC/internal/config"
	"github.com/SHIBINSOJU/SHOT-MC/internal/status"
	"github.com/SHIBINSOJU/SHOT-MC/internal/store"
)

// Server is the operator-facing HTTP surface: health, guild status, and a
// live status stream.
type Server struct {
	router chi.Router
}

// GatewayReady reports whether the Discord session is connected.
type GatewayReady func() bool

func New(cfg *config.Config, db *sql.DB, st *store.Store, feed *status.Feed,
	ready GatewayReady, log zerolog.Logger) (*Server, error) {
	authSvc := auth.NewService(db)
	if err := authSvc.EnsureOperator(cfg.OperatorUser, cfg.OperatorPass); err != nil {
		return nil, err
	}

	authHandler := api.NewAuthHandler(authSvc)
	guildHandler := api.NewGuildHandler(st, feed, authSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		if ready != nil && !ready() {
			http.Error(w, "gateway disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(api.AuthMiddleware(authSvc))
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/guilds", guildHandler.List)
			r.Get("/guilds/{id}/status", guildHandler.Get)
		})

		// WebSocket route (auth via query param)
		r.Get("/guilds/{id}/status/live", guildHandler.Live)
	})

	return &Server{router: r}, nil
}

func (s *Server) Router() chi.Router {
	return s.router
}
