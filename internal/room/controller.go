// Package room ports the per-participant game session: joining a game claims
// a role, a reducer folds the two realtime event sources into the local board
// mirror, and move submission validates against the rules oracle before
// anything is persisted. One Controller serves one participant connection.
package room

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pairchess/internal/archive"
	"pairchess/internal/domain"
	"pairchess/internal/live"
	"pairchess/internal/obslog"
	"pairchess/internal/rules"
)

type Controller struct {
	store    *live.Store
	repo     archive.Repository
	identity string

	mu         sync.Mutex
	game       *domain.Game // local copy of the shared record
	role       domain.Role
	board      *rules.Board // derived, disposable mirror
	moveSeq    int          // moves known persisted; may run ahead of the record copy
	celebrated bool

	updates chan Update
}

// Update is what the connection layer pushes to the browser after each
// reduced event (and as the initial frame).
type Update struct {
	Game      *domain.Game `json:"game"`
	Role      domain.Role  `json:"role"`
	FEN       string       `json:"fen"`
	LastMove  *domain.Move `json:"last_move,omitempty"`
	Celebrate bool         `json:"celebrate,omitempty"`
}

// Join fetches the game and runs the claim protocol for the identity: keep an
// already-held slot, else take white, else take black (activating the game),
// else spectate. The returned controller's local copy already reflects a won
// claim, so the next decision made against it is consistent with the new role.
func Join(ctx context.Context, store *live.Store, repo archive.Repository, code, identity string) (*Controller, error) {
	g, role, err := store.Claim(ctx, code, identity)
	if err != nil {
		return nil, err
	}

	// Mirror the claim into the archive; failures are logged, not surfaced.
	if c := role.Color(); c != "" && repo != nil {
		if err := repo.ClaimSlot(ctx, g.ID, c, identity); err != nil {
			obslog.L().Warn("archive_claim_error", zap.String("game_id", g.ID), zap.Error(err))
		}
	}

	board, err := deriveBoard(g)
	if err != nil {
		return nil, err
	}
	return &Controller{
		store:    store,
		repo:     repo,
		identity: strings.TrimSpace(identity),
		game:     g,
		role:     role,
		board:    board,
		moveSeq:  len(g.MovesUCI),
		updates:  make(chan Update, 16),
	}, nil
}

// deriveBoard rebuilds the mirror from the record: from the move list when
// present (keeps repetition history), else from the position string.
func deriveBoard(g *domain.Game) (*rules.Board, error) {
	if len(g.MovesUCI) > 0 {
		if b, err := rules.FromMoves(g.MovesUCI); err == nil {
			return b, nil
		}
		// A move list that fails to replay is treated like a bare FEN
		// record rather than a fatal error; the FEN stays authoritative.
	}
	return rules.FromFEN(g.FEN)
}

// Role reports the role assigned at join time.
func (c *Controller) Role() domain.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Game returns a copy of the local record.
func (c *Controller) Game() domain.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.game
}

// Snapshot is the initial frame for a freshly attached connection.
func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := *c.game
	return Update{Game: &g, Role: c.role, FEN: c.board.FEN()}
}

// Updates delivers one Update per reduced event once Start has been called.
func (c *Controller) Updates() <-chan Update { return c.updates }

// Start subscribes to the game's realtime channel and launches the reduce
// loop. It returns only once the subscription is established, so events
// committed after Start are not missed. Events committed before it are never
// replayed; callers reconnect by joining again. The updates channel closes
// when ctx ends.
func (c *Controller) Start(ctx context.Context) error {
	events, err := c.store.Subscribe(ctx, c.Game().ID)
	if err != nil {
		return err
	}
	go c.loop(ctx, events)
	return nil
}

func (c *Controller) loop(ctx context.Context, events <-chan live.Event) {
	defer close(c.updates)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			upd, changed := c.reduce(ev)
			if !changed {
				continue
			}
			select {
			case c.updates <- upd:
			default:
				// A slow consumer drops frames; the next update
				// carries the full record anyway.
			}
		}
	}
}

// LegalTargets lists the squares reachable from the given square on the
// current mirror, for move-hint highlighting.
func (c *Controller) LegalTargets(from string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.LegalTargets(from)
}
