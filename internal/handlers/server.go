// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/middleware"
	"github.com/tashanwin/gamesvc/internal/models"
)

// UserDirectory is the account lookup surface the handlers need. The
// postgres UserStore implements it; handler tests swap in a fake.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserCredentials(ctx context.Context, user *models.User) error
}

// Server bundles the HTTP and WebSocket surface over the running game
// instances.
type Server struct {
	Logger   *logrus.Logger
	Games    *engine.Registry
	Hub      *Hub
	Users    UserDirectory
	Accounts engine.Accounts
}

func NewServer(logger *logrus.Logger, games *engine.Registry, hub *Hub, users UserDirectory, accounts engine.Accounts) *Server {
	return &Server{
		Logger:   logger,
		Games:    games,
		Hub:      hub,
		Users:    users,
		Accounts: accounts,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for production security.
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Post("/api/users", s.CreateUserHandler)
	r.Post("/api/users/login", s.LoginHandler)
	r.Post("/api/users/claim", s.ClaimEphemeralHandler)
	r.Get("/api/users/me/balance", s.BalanceHandler)

	r.Route("/api/games/{variant}", func(r chi.Router) {
		r.Get("/round", s.RoundHandler)
		r.Get("/history", s.HistoryHandler)
		r.Post("/bet", s.PlaceBetHandler)
	})

	r.Get("/game/ws/{variant}", s.StreamHandler)

	return r
}

// game resolves the variant slug from the URL to a running instance.
func (s *Server) game(r *http.Request) (*engine.Game, bool) {
	variant := chi.URLParam(r, "variant")
	return s.Games.Get(variant)
}
