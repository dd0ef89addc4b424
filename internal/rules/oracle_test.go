package rules

import (
	"testing"

	"pairchess/internal/domain"
)

func TestApplyFlipsTurn(t *testing.T) {
	b, err := FromFEN(domain.StartFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if b.Turn() != domain.White {
		t.Fatalf("expected white to move, got %s", b.Turn())
	}
	res, err := b.Apply("e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply e2e4: %v", err)
	}
	if res.UCI != "e2e4" {
		t.Fatalf("unexpected uci: %q", res.UCI)
	}
	if res.Board.Turn() != domain.Black {
		t.Fatalf("expected black to move after e2e4, got %s", res.Board.Turn())
	}
	// the receiver is untouched
	if b.Turn() != domain.White {
		t.Fatalf("Apply mutated the original board")
	}
}

func TestApplyIllegalMove(t *testing.T) {
	b, _ := FromFEN(domain.StartFEN)
	if _, err := b.Apply("e2", "e5", ""); err == nil {
		t.Fatalf("expected error for e2e5")
	}
	if _, err := b.Apply("e7", "e5", ""); err == nil {
		t.Fatalf("expected error for moving black's pawn on white's turn")
	}
}

func TestLegalTargets(t *testing.T) {
	b, _ := FromFEN(domain.StartFEN)
	targets := b.LegalTargets("e2")
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets from e2, got %v", targets)
	}
	if got := b.LegalTargets("e5"); len(got) != 0 {
		t.Fatalf("expected no targets from empty square, got %v", got)
	}
}

func TestFoolsMate(t *testing.T) {
	b, err := FromMoves([]string{"f2f3", "e7e5", "g2g4", "d8h4"})
	if err != nil {
		t.Fatalf("FromMoves: %v", err)
	}
	if !b.IsCheckmate() {
		t.Fatalf("expected checkmate")
	}
	if !b.Terminal() {
		t.Fatalf("expected terminal position")
	}
	if b.Winner() != domain.Black {
		t.Fatalf("expected black to win, got %q", b.Winner())
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	// White pawn on a7 ready to promote.
	b, err := FromFEN("8/P7/8/8/8/8/k6K/8 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	res, err := b.Apply("a7", "a8", "")
	if err != nil {
		t.Fatalf("Apply promotion: %v", err)
	}
	if res.UCI != "a7a8q" {
		t.Fatalf("expected auto-queen uci a7a8q, got %q", res.UCI)
	}
}

func TestFENRederivationIsIdempotent(t *testing.T) {
	b, _ := FromMoves([]string{"e2e4", "c7c5", "g1f3"})
	once, err := FromFEN(b.FEN())
	if err != nil {
		t.Fatalf("re-derive: %v", err)
	}
	twice, err := FromFEN(once.FEN())
	if err != nil {
		t.Fatalf("re-derive twice: %v", err)
	}
	if once.FEN() != twice.FEN() || once.FEN() != b.FEN() {
		t.Fatalf("fen drift: %q / %q / %q", b.FEN(), once.FEN(), twice.FEN())
	}
}

func TestThreefoldRepetition(t *testing.T) {
	// Knights shuffle back and forth until the start position repeats thrice.
	moves := []string{
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8",
	}
	b, err := FromMoves(moves)
	if err != nil {
		t.Fatalf("FromMoves: %v", err)
	}
	if !b.IsThreefoldRepetition() {
		t.Fatalf("expected threefold repetition")
	}
	// FEN-only boards have no history to detect repetition with.
	flat, _ := FromFEN(b.FEN())
	if flat.IsThreefoldRepetition() {
		t.Fatalf("fen-derived board should not report repetition")
	}
}
