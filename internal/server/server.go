// Package server is the HTTP boundary: JSON endpoints for creating, joining
// and moving, a websocket stream of reduced game updates, and PNG renderings
// of the position and the invite QR code.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pairchess/internal/archive"
	"pairchess/internal/identity"
	"pairchess/internal/live"
	"pairchess/internal/msgcat"
)

type Server struct {
	Store    *live.Store
	Repo     archive.Repository
	Identity *identity.Manager
	Messages *msgcat.Catalog

	// BaseURL is the externally visible origin, used for invite links.
	BaseURL        string
	CodeLength     int
	CreateAttempts int
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(s.Identity.Middleware)

	r.Post("/games", s.handleCreateGame)
	r.Get("/games/{code}", s.handleJoinGame)
	r.Post("/games/{code}/moves", s.handleSubmitMove)
	r.Get("/games/{code}/targets", s.handleLegalTargets)
	r.Get("/games/{code}/ws", s.handleGameSocket)
	r.Get("/games/{code}/board.png", s.handleBoardPNG)
	r.Get("/games/{code}/qr.png", s.handleInviteQR)

	r.Post("/identity/reset", s.handleIdentityReset)
	r.Get("/healthz", s.handleHealthz)

	return r
}
