package room

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pairchess/internal/archive"
	"pairchess/internal/domain"
	"pairchess/internal/live"
	"pairchess/internal/rules"
)

func newTestEnv(t *testing.T) (*live.Store, archive.Repository) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return live.NewStoreWithClient(rdb, time.Hour), archive.NewMemoryRepository()
}

// scholarsMate plays through 1.e4 e5 2.Bc4 Nc6 3.Qh5 Nf6 4.Qxf7#.
var scholarsMate = [][2]string{
	{"e2", "e4"}, {"e7", "e5"},
	{"f1", "c4"}, {"b8", "c6"},
	{"d1", "h5"}, {"g8", "f6"},
	{"h5", "f7"},
}

func TestCreateThenSecondIdentityActivates(t *testing.T) {
	store, repo := newTestEnv(t)
	ctx := context.Background()

	g, err := Create(ctx, store, repo, "alice", 6, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != domain.StatusWaiting || g.PlayerBlack != "" {
		t.Fatalf("fresh game should be waiting with empty black slot: %+v", g)
	}
	if g.FEN != domain.StartFEN {
		t.Fatalf("unexpected start fen: %q", g.FEN)
	}

	bob, err := Join(ctx, store, repo, g.ID, "bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if bob.Role() != domain.RoleBlack {
		t.Fatalf("expected bob to claim black, got %s", bob.Role())
	}
	got := bob.Game()
	if got.Status != domain.StatusActive || got.PlayerBlack != "bob" {
		t.Fatalf("claim not reflected in local copy: %+v", got)
	}

	// The archive mirrored both slots.
	arch, err := repo.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("archive GetGame: %v", err)
	}
	if arch.PlayerWhite != "alice" || arch.PlayerBlack != "bob" {
		t.Fatalf("archive slots: white=%q black=%q", arch.PlayerWhite, arch.PlayerBlack)
	}
}

func TestJoinMissingGame(t *testing.T) {
	store, repo := newTestEnv(t)
	if _, err := Join(context.Background(), store, repo, "424242", "alice"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

// joinedPair claims black before constructing white's controller, so both
// local copies start from the active record.
func joinedPair(t *testing.T, store *live.Store, repo archive.Repository) (*Controller, *Controller, string) {
	t.Helper()
	ctx := context.Background()
	g, err := Create(ctx, store, repo, "alice", 6, 5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	black, err := Join(ctx, store, repo, g.ID, "bob")
	if err != nil {
		t.Fatalf("Join black: %v", err)
	}
	white, err := Join(ctx, store, repo, g.ID, "alice")
	if err != nil {
		t.Fatalf("Join white: %v", err)
	}
	return white, black, g.ID
}

func TestSubmitMoveFlipsActiveColor(t *testing.T) {
	store, repo := newTestEnv(t)
	white, _, code := joinedPair(t, store, repo)
	ctx := context.Background()

	ok, err := white.SubmitMove(ctx, "e2", "e4", "")
	if err != nil || !ok {
		t.Fatalf("SubmitMove: ok=%v err=%v", ok, err)
	}
	g, err := store.Get(ctx, code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Turn != domain.Black {
		t.Fatalf("expected turn to flip to black, got %s", g.Turn)
	}
	fields := strings.Fields(g.FEN)
	if len(fields) < 2 || fields[1] != "b" {
		t.Fatalf("expected active-color field b, fen=%q", g.FEN)
	}
}

func TestSubmitMoveRejections(t *testing.T) {
	store, repo := newTestEnv(t)
	white, black, code := joinedPair(t, store, repo)
	ctx := context.Background()

	spectator, err := Join(ctx, store, repo, code, "carol")
	if err != nil {
		t.Fatalf("Join spectator: %v", err)
	}

	cases := []struct {
		name string
		run  func() (bool, error)
		want error
	}{
		{"spectator", func() (bool, error) { return spectator.SubmitMove(ctx, "e2", "e4", "") }, domain.ErrSpectator},
		{"not your turn", func() (bool, error) { return black.SubmitMove(ctx, "e7", "e5", "") }, domain.ErrNotYourTurn},
		{"illegal move", func() (bool, error) { return white.SubmitMove(ctx, "e2", "e5", "") }, domain.ErrIllegalMove},
	}
	for _, tc := range cases {
		ok, err := tc.run()
		if ok || !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected rejection with %v, got ok=%v err=%v", tc.name, tc.want, ok, err)
		}
	}

	// No write may have been issued by any rejection.
	g, _ := store.Get(ctx, code)
	if len(g.MovesUCI) != 0 || g.FEN != domain.StartFEN {
		t.Fatalf("rejections caused writes: %+v", g)
	}
	if moves, _ := repo.ListMoves(ctx, code); len(moves) != 0 {
		t.Fatalf("rejections reached the archive: %v", moves)
	}
}

func TestSubmitMoveRejectedWhileWaiting(t *testing.T) {
	store, repo := newTestEnv(t)
	ctx := context.Background()
	g, _ := Create(ctx, store, repo, "alice", 6, 5)
	white, err := Join(ctx, store, repo, g.ID, "alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	ok, err := white.SubmitMove(ctx, "e2", "e4", "")
	if ok || !errors.Is(err, domain.ErrOpponentNeeded) {
		t.Fatalf("expected ErrOpponentNeeded, got ok=%v err=%v", ok, err)
	}
}

// startRunning attaches the realtime loop so the controller sees the other
// side's moves, and returns a waiter that blocks until the given color is on
// the move locally. Start returns with the subscription live, so no event
// committed afterwards can be missed.
func startRunning(t *testing.T, c *Controller) func(turn domain.Color) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return func(turn domain.Color) {
		deadline := time.Now().Add(2 * time.Second)
		for c.Game().Turn != turn {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s to be on the move", turn)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// playOut submits the sequence alternating between the two controllers,
// waiting for each side's mirror to catch up before it moves.
func playOut(t *testing.T, white, black *Controller, moves [][2]string) {
	t.Helper()
	ctx := context.Background()
	waitWhite := startRunning(t, white)
	waitBlack := startRunning(t, black)
	for i, mv := range moves {
		c, wait, turn := white, waitWhite, domain.White
		if i%2 == 1 {
			c, wait, turn = black, waitBlack, domain.Black
		}
		wait(turn)
		ok, err := c.SubmitMove(ctx, mv[0], mv[1], "")
		if err != nil || !ok {
			t.Fatalf("move %d (%s%s): ok=%v err=%v", i+1, mv[0], mv[1], ok, err)
		}
	}
}

func TestScholarsMateFinishesGame(t *testing.T) {
	store, repo := newTestEnv(t)
	white, black, code := joinedPair(t, store, repo)
	ctx := context.Background()

	playOut(t, white, black, scholarsMate)

	g, err := store.Get(ctx, code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", g.Status)
	}
	board, err := rules.FromFEN(g.FEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	// The winner is the color not to move in the final position.
	if board.Winner() != domain.White {
		t.Fatalf("expected white to win, got %q", board.Winner())
	}

	// The loser's controller hears about the mate through the push, so a
	// further submission is rejected on its local copy.
	deadline := time.Now().Add(2 * time.Second)
	for black.Game().Status != domain.StatusFinished {
		if time.Now().After(deadline) {
			t.Fatal("black never saw the finished status")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ok, err := black.SubmitMove(ctx, "e8", "e7", "")
	if ok || !errors.Is(err, domain.ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished after mate, got ok=%v err=%v", ok, err)
	}
}

// knightShuffle returns to the starting position twice, making it the third
// occurrence overall.
var knightShuffle = [][2]string{
	{"g1", "f3"}, {"g8", "f6"},
	{"f3", "g1"}, {"f6", "g8"},
	{"g1", "f3"}, {"g8", "f6"},
	{"f3", "g1"}, {"f6", "g8"},
}

func TestThreefoldRepetitionFinishesGame(t *testing.T) {
	store, repo := newTestEnv(t)
	white, black, code := joinedPair(t, store, repo)

	playOut(t, white, black, knightShuffle)

	g, err := store.Get(context.Background(), code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Status != domain.StatusFinished {
		t.Fatalf("third repetition should finish the game, got %s", g.Status)
	}
	board, err := rules.FromMoves(g.MovesUCI)
	if err != nil {
		t.Fatalf("FromMoves: %v", err)
	}
	if !board.IsThreefoldRepetition() {
		t.Fatal("persisted history does not show the repetition")
	}
	// A repetition draw has no winner.
	if w := board.Winner(); w != "" {
		t.Fatalf("draw must have no winner, got %q", w)
	}
}

// A submission landing after a move-append event but before the full-record
// push must validate against the appended move, not the stale record copy.
func TestSubmitAfterMoveEventBeforeRecordPush(t *testing.T) {
	store, repo := newTestEnv(t)
	white, _, code := joinedPair(t, store, repo)
	ctx := context.Background()

	if ok, err := white.SubmitMove(ctx, "e2", "e4", ""); err != nil || !ok {
		t.Fatalf("white e2e4: ok=%v err=%v", ok, err)
	}
	// Black catches up by re-joining, then replies.
	black, err := Join(ctx, store, repo, code, "bob")
	if err != nil {
		t.Fatalf("re-join black: %v", err)
	}
	if ok, err := black.SubmitMove(ctx, "e7", "e5", ""); err != nil || !ok {
		t.Fatalf("black e7e5: ok=%v err=%v", ok, err)
	}

	// White hears about e7e5 only as the appended row so far.
	replay, err := rules.FromMoves([]string{"e2e4", "e7e5"})
	if err != nil {
		t.Fatalf("FromMoves: %v", err)
	}
	white.reduce(live.Event{Kind: live.EventMoveAppended, Move: &domain.Move{
		GameID: code, FromSquare: "e7", ToSquare: "e5", FENAfter: replay.FEN(),
	}})

	if ok, err := white.SubmitMove(ctx, "g1", "f3", ""); err != nil || !ok {
		t.Fatalf("white g1f3: ok=%v err=%v", ok, err)
	}
	g, err := store.Get(ctx, code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(g.MovesUCI) != 3 || g.MovesUCI[2] != "g1f3" {
		t.Fatalf("move did not persist against the fresh baseline: %v", g.MovesUCI)
	}
}

func TestMoveLogChainsByLegalMoves(t *testing.T) {
	store, repo := newTestEnv(t)
	white, black, code := joinedPair(t, store, repo)
	ctx := context.Background()

	playOut(t, white, black, scholarsMate)

	moves, err := repo.ListMoves(ctx, code)
	if err != nil {
		t.Fatalf("ListMoves: %v", err)
	}
	if len(moves) != len(scholarsMate) {
		t.Fatalf("expected %d archived moves, got %d", len(scholarsMate), len(moves))
	}
	// Each resulting position must follow from the previous by exactly the
	// recorded move.
	prev, _ := rules.FromFEN(domain.StartFEN)
	for i, m := range moves {
		applied, err := prev.Apply(m.FromSquare, m.ToSquare, "")
		if err != nil {
			t.Fatalf("move %d does not follow from previous position: %v", i+1, err)
		}
		if applied.Board.FEN() != m.FENAfter {
			t.Fatalf("move %d: fen_after %q, replay gives %q", i+1, m.FENAfter, applied.Board.FEN())
		}
		prev = applied.Board
	}
}
