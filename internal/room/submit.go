package room

import (
	"context"

	"go.uber.org/zap"

	"pairchess/internal/domain"
	"pairchess/internal/live"
	"pairchess/internal/obslog"
)

// SubmitMove turns a gesture's square pair into an accepted or rejected move.
// The returned bool tells the interaction layer whether to animate the piece
// or snap it back. Every rejection happens before any side effect:
//
//  1. spectators never submit;
//  2. the game must not be finished;
//  3. the opponent must have joined (no moves while waiting);
//  4. it must be the submitter's turn;
//  5. the rules oracle must accept the move on a disposable copy, with
//     promotion defaulting to queen.
//
// On acceptance the local mirror advances immediately, then the move-log
// append and the record update fire in sequence. Persistence failures are
// logged and left for the next authoritative push to correct; they do not
// roll back the optimistic state.
func (c *Controller) SubmitMove(ctx context.Context, from, to, promo string) (bool, error) {
	c.mu.Lock()

	color := c.role.Color()
	if color == "" {
		c.mu.Unlock()
		return false, domain.ErrSpectator
	}
	if c.game.Status == domain.StatusFinished {
		c.mu.Unlock()
		return false, domain.ErrGameFinished
	}
	if c.game.Status == domain.StatusWaiting {
		c.mu.Unlock()
		return false, domain.ErrOpponentNeeded
	}
	if c.board.Turn() != color {
		c.mu.Unlock()
		return false, domain.ErrNotYourTurn
	}

	applied, err := c.board.Apply(from, to, promo)
	if err != nil {
		c.mu.Unlock()
		return false, domain.ErrIllegalMove
	}

	status := domain.StatusActive
	if applied.Board.Terminal() {
		status = domain.StatusFinished
	}

	// Optimistic: local state advances before any write is issued.
	// moveSeq, not the record copy's move list, is the staleness baseline:
	// it already counts appends whose full-record push has yet to arrive.
	prevMoves := c.moveSeq
	c.moveSeq++
	c.board = applied.Board
	c.game.FEN = applied.Board.FEN()
	c.game.Turn = applied.Board.Turn()
	c.game.Status = status
	c.game.MovesUCI = append(c.game.MovesUCI, applied.UCI)
	code := c.game.ID
	write := live.MoveWrite{
		FromSquare: from,
		ToSquare:   to,
		UCI:        applied.UCI,
		FENAfter:   applied.Board.FEN(),
		Turn:       applied.Board.Turn(),
		Status:     status,
	}
	c.mu.Unlock()

	updated, logged, err := c.store.ApplyMove(ctx, code, prevMoves, write)
	if err != nil {
		// The mirror already advanced; the authoritative push will
		// overwrite it if the record went a different way.
		obslog.L().Warn("move_persist_error",
			zap.String("game_id", code),
			zap.String("uci", write.UCI),
			zap.Error(err))
		return true, nil
	}

	if c.repo != nil {
		if _, err := c.repo.AppendMove(ctx, logged); err != nil {
			obslog.L().Warn("archive_move_error", zap.String("game_id", code), zap.Error(err))
		}
		if err := c.repo.UpdateGame(ctx, code, updated.FEN, updated.Turn, updated.Status); err != nil {
			obslog.L().Warn("archive_update_error", zap.String("game_id", code), zap.Error(err))
		}
	}
	return true, nil
}
