package room

import (
	"go.uber.org/zap"

	"pairchess/internal/domain"
	"pairchess/internal/live"
	"pairchess/internal/obslog"
	"pairchess/internal/rules"
)

// reduce folds one pushed event into the local state. The rules:
//
//   - full-record push: adopt the record; re-derive the board mirror when
//     the pushed position differs from what the mirror serializes to, or
//     when the record carries a move history the mirror is missing
//     (repetition detection needs it). An echo of our own write with the
//     same position and history leaves the mirror alone, so transient local
//     annotations survive it.
//   - move append: the fresher, lower-latency signal; the mirror always
//     ends up serializing to the row's resulting position. When the row
//     replays cleanly onto the current mirror the replayed board is kept,
//     so the move history (and with it repetition detection) survives
//     between the append and the record push.
//   - a transition into finished where the fresh position is a checkmate
//     arms the celebration flag exactly once, and never for a draw.
//
// The second return value reports whether anything observable changed.
func (c *Controller) reduce(ev live.Event) (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case live.EventGameUpdated:
		if ev.Game == nil {
			return Update{}, false
		}
		wasFinished := c.game.Status == domain.StatusFinished
		fenChanged := ev.Game.FEN != c.board.FEN()
		historyBehind := len(ev.Game.MovesUCI) != len(c.board.Moves())
		statusChanged := ev.Game.Status != c.game.Status
		c.game = ev.Game
		c.moveSeq = len(ev.Game.MovesUCI)

		if fenChanged || historyBehind {
			board, err := deriveBoard(ev.Game)
			if err != nil {
				obslog.L().Warn("pushed_record_unparseable",
					zap.String("game_id", ev.Game.ID), zap.Error(err))
				return Update{}, false
			}
			c.board = board
		}

		celebrate := false
		if !wasFinished && ev.Game.Status == domain.StatusFinished &&
			c.board.IsCheckmate() && !c.celebrated {
			c.celebrated = true
			celebrate = true
		}
		if !fenChanged && !statusChanged {
			return Update{}, false
		}
		return c.updateLocked(nil, celebrate), true

	case live.EventMoveAppended:
		if ev.Move == nil {
			return Update{}, false
		}
		if ev.Move.FENAfter == c.board.FEN() {
			// Echo of a move already applied locally; the mirror (and
			// its history) is already there.
			return c.updateLocked(ev.Move, false), true
		}
		// A row we have not accounted for yet bumps the persisted-move
		// count, so a submission landing before the full-record push
		// validates against the right baseline.
		c.moveSeq++
		// Prefer extending the current mirror so repetition history
		// survives; adopt the row's bare position only when the squares
		// do not replay onto it (a missed event, or an underpromotion).
		if applied, err := c.board.Apply(ev.Move.FromSquare, ev.Move.ToSquare, ""); err == nil &&
			applied.Board.FEN() == ev.Move.FENAfter {
			c.board = applied.Board
		} else {
			board, err := rules.FromFEN(ev.Move.FENAfter)
			if err != nil {
				obslog.L().Warn("pushed_move_unparseable",
					zap.String("game_id", ev.Move.GameID), zap.Error(err))
				return Update{}, false
			}
			c.board = board
		}
		// The record copy tracks what is derivable from the position;
		// slots, status and the move list wait for the full-record push.
		c.game.FEN = ev.Move.FENAfter
		c.game.Turn = c.board.Turn()
		return c.updateLocked(ev.Move, false), true
	}
	return Update{}, false
}

func (c *Controller) updateLocked(lastMove *domain.Move, celebrate bool) Update {
	g := *c.game
	return Update{
		Game:      &g,
		Role:      c.role,
		FEN:       c.board.FEN(),
		LastMove:  lastMove,
		Celebrate: celebrate,
	}
}
