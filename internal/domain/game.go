package domain

import "time"

// StartFEN is the standard chess starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Role is what a participant is allowed to do in a game.
type Role string

const (
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

// Color returns the playing color for a player role, or "" for spectators.
func (r Role) Color() Color {
	switch r {
	case RoleWhite:
		return White
	case RoleBlack:
		return Black
	}
	return ""
}

// Status represents the game lifecycle. Transitions only move forward:
// waiting -> active -> finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Game is the shared mutable record, one per game code. Both players mutate
// it; the color slots are each set at most once and never reassigned.
type Game struct {
	ID          string    `json:"id"`
	PlayerWhite string    `json:"player_white,omitempty"`
	PlayerBlack string    `json:"player_black,omitempty"`
	FEN         string    `json:"fen"`
	Turn        Color     `json:"turn"`
	Status      Status    `json:"status"`
	MovesUCI    []string  `json:"moves_uci"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleOf reports which role the given participant identity holds.
func (g *Game) RoleOf(participantID string) Role {
	switch {
	case participantID != "" && participantID == g.PlayerWhite:
		return RoleWhite
	case participantID != "" && participantID == g.PlayerBlack:
		return RoleBlack
	}
	return RoleSpectator
}

// Move is one row of the append-only move log. Rows are never updated or
// deleted; each FENAfter must follow from the previous row's by one legal move.
type Move struct {
	ID         int64     `json:"id"`
	GameID     string    `json:"game_id"`
	FromSquare string    `json:"from_square"`
	ToSquare   string    `json:"to_square"`
	FENAfter   string    `json:"fen_after"`
	CreatedAt  time.Time `json:"created_at"`
}
