// Package rules wraps the chess rules library behind the small set of
// operations the room logic needs. Nothing outside this package touches the
// library directly, and nothing here reimplements chess rules.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"pairchess/internal/domain"
)

// Board is a derived, disposable mirror of one position. It is never a source
// of truth; it can always be rebuilt from a FEN string or a move list.
type Board struct {
	game    *nchess.Game
	moves   []string // UCI history when tracked
	tracked bool     // false for FEN-only boards
}

// FromFEN derives a board from a position string alone. History-dependent
// checks (threefold repetition) are unavailable on such boards.
func FromFEN(fen string) (*Board, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

// FromMoves reconstructs a board by replaying UCI moves from the standard
// start. An unplayable move list returns an error rather than a partial board.
func FromMoves(movesUCI []string) (*Board, error) {
	game := nchess.NewGame()
	for i, mv := range movesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return &Board{game: game, moves: append([]string(nil), movesUCI...), tracked: true}, nil
}

// FEN serializes the current position.
func (b *Board) FEN() string { return b.game.FEN() }

// Moves returns the UCI history the board was built from, if any.
func (b *Board) Moves() []string { return append([]string(nil), b.moves...) }

// Turn reports the color to move.
func (b *Board) Turn() domain.Color {
	if b.game.Position().Turn() == nchess.White {
		return domain.White
	}
	return domain.Black
}

// LegalTargets lists the destination squares reachable from the given square.
func (b *Board) LegalTargets(from string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, mv := range b.game.ValidMoves() {
		if mv.S1().String() != from {
			continue
		}
		to := mv.S2().String()
		if _, ok := seen[to]; ok {
			continue
		}
		seen[to] = struct{}{}
		out = append(out, to)
	}
	return out
}

// Applied is the result of a legal move applied to a disposable copy.
type Applied struct {
	Board *Board
	UCI   string
}

// Apply plays from->to on a copy of the board, leaving the receiver untouched.
// A pawn reaching the last rank promotes to the piece named by promo, or to a
// queen when promo is empty. Returns domain.ErrIllegalMove for anything the
// library rejects.
func (b *Board) Apply(from, to, promo string) (*Applied, error) {
	cp, err := b.copy()
	if err != nil {
		return nil, err
	}
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	if len(uci) != 4 {
		return nil, domain.ErrIllegalMove
	}
	if cp.pawnToLastRank(uci) {
		p := strings.ToLower(strings.TrimSpace(promo))
		if p == "" {
			p = "q"
		}
		uci += p
	}
	mv, err := (nchess.UCINotation{}).Decode(cp.game.Position(), uci)
	if err != nil {
		return nil, domain.ErrIllegalMove
	}
	if err := cp.game.Move(mv, nil); err != nil {
		return nil, domain.ErrIllegalMove
	}
	if cp.tracked {
		cp.moves = append(cp.moves, uci)
	}
	return &Applied{Board: cp, UCI: uci}, nil
}

// IsCheckmate reports whether the side to move is checkmated.
func (b *Board) IsCheckmate() bool {
	return b.game.Position().Status() == nchess.Checkmate
}

// IsStalemate reports whether the side to move is stalemated.
func (b *Board) IsStalemate() bool {
	return b.game.Position().Status() == nchess.Stalemate
}

// IsDraw reports an automatic draw (stalemate, insufficient material, the
// seventy-five move rule, fivefold repetition).
func (b *Board) IsDraw() bool {
	return b.game.Outcome() == nchess.Draw
}

// IsThreefoldRepetition reports whether the current position has occurred
// three times. Always false for boards derived from a bare FEN.
func (b *Board) IsThreefoldRepetition() bool {
	for _, m := range b.game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition {
			return true
		}
	}
	return false
}

// Terminal reports whether the position ends the game under the rules this
// system treats as final: checkmate, stalemate, automatic draw, or threefold
// repetition.
func (b *Board) Terminal() bool {
	return b.IsCheckmate() || b.IsStalemate() || b.IsDraw() || b.IsThreefoldRepetition()
}

// Winner infers the winning color of a checkmate position: the color that is
// not to move. Returns "" when the position is not a mate.
func (b *Board) Winner() domain.Color {
	if !b.IsCheckmate() {
		return ""
	}
	return b.Turn().Other()
}

func (b *Board) copy() (*Board, error) {
	if b.tracked {
		return FromMoves(b.moves)
	}
	return FromFEN(b.FEN())
}

// pawnToLastRank reports whether a 4-char UCI move pushes a pawn onto the
// first or eighth rank, i.e. a promotion square.
func (b *Board) pawnToLastRank(uci string) bool {
	if uci[3] != '1' && uci[3] != '8' {
		return false
	}
	sq := squareOf(uci[:2])
	piece := b.game.Position().Board().Piece(sq)
	return piece != nchess.NoPiece && piece.Type() == nchess.Pawn
}

func squareOf(s string) nchess.Square {
	file := nchess.File(s[0] - 'a')
	rank := nchess.Rank(s[1] - '1')
	return nchess.NewSquare(file, rank)
}
