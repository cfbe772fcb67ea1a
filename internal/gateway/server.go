package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tripvera/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server is the public HTTP surface of the gateway.
type Server struct {
	cfg    config.GatewayConfig
	server *http.Server
	logger *zerolog.Logger
}

func NewServer(cfg config.GatewayConfig, handlers *Handlers, auth *Authenticator, logger *zerolog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(recoverer(logger))
	r.Use(requestLogger(logger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(auth.Session)
	r.Use(newClientLimiter(cfg.RateLimit).middleware)
	r.Use(auth.Tokens)

	r.Get("/health", handlers.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", handlers.Login)
			r.Post("/logout", handlers.Logout)
		})

		r.With(auth.RequireUser).Get("/me", handlers.Me)

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", handlers.ListActivities)

			r.Route("/{activityID}", func(r chi.Router) {
				r.Get("/", handlers.GetActivity)
				r.Get("/calendar", handlers.Calendar)

				r.Route("/booking", func(r chi.Router) {
					r.Get("/", handlers.GetSelection)
					r.Delete("/", handlers.ClearSelection)
					r.Post("/date", handlers.SelectDate)
					r.Post("/slot", handlers.SelectSlot)
					r.Post("/head-count", handlers.SetHeadCount)
					r.With(auth.RequireUser).Post("/confirm", handlers.Confirm)
				})
			})
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/", handlers.ListFavorites)
			r.Post("/{activityID}", handlers.ToggleFavorite)
			r.Delete("/{activityID}", handlers.RemoveFavorite)
		})

		r.Route("/recently-viewed", func(r chi.Router) {
			r.Get("/", handlers.ListRecentlyViewed)
			r.Delete("/", handlers.ClearRecentlyViewed)
		})

		r.Route("/my-reservations", func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/", handlers.MyReservations)
			r.Patch("/{reservationID}", handlers.CancelReservation)
			r.Post("/export", handlers.ExportReservations)
		})
	})

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("gateway listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
