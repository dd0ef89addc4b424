// Package archive mirrors accepted game state into the durable games and
// moves tables. Writes here are a best-effort write-behind: the live record
// remains the authority, and a failed archive write is logged, never rolled
// back or surfaced to the player.
package archive

import (
	"context"

	"pairchess/internal/domain"
)

// Repository persists the one-row-per-game record and the append-only move
// log.
type Repository interface {
	InsertGame(ctx context.Context, g *domain.Game) error
	// ClaimSlot sets a color slot to the participant only if the slot is
	// still empty; a claimed slot is permanent for the life of the row.
	ClaimSlot(ctx context.Context, gameID string, color domain.Color, participantID string) error
	// UpdateGame overwrites fen, turn and status after an accepted move.
	UpdateGame(ctx context.Context, gameID, fen string, turn domain.Color, status domain.Status) error
	// AppendMove inserts one move-log row and returns its id. Rows are
	// never updated or deleted.
	AppendMove(ctx context.Context, m *domain.Move) (int64, error)
	GetGame(ctx context.Context, gameID string) (*domain.Game, error)
	// ListMoves returns the log in creation order.
	ListMoves(ctx context.Context, gameID string) ([]domain.Move, error)
	Close() error
}
