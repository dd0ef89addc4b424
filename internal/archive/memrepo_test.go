package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchess/internal/domain"
)

func TestClaimSlotIsPermanent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.InsertGame(ctx, &domain.Game{
		ID: "123456", FEN: domain.StartFEN, Status: domain.StatusWaiting, Turn: domain.White,
	}))

	require.NoError(t, repo.ClaimSlot(ctx, "123456", domain.White, "alice"))
	require.NoError(t, repo.ClaimSlot(ctx, "123456", domain.Black, "bob"))
	// A second claim of an occupied slot is a no-op, never a reassignment.
	require.NoError(t, repo.ClaimSlot(ctx, "123456", domain.White, "carol"))

	g, err := repo.GetGame(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "alice", g.PlayerWhite)
	assert.Equal(t, "bob", g.PlayerBlack)
	assert.Equal(t, domain.StatusActive, g.Status)
}

func TestMovesKeepAppendOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.InsertGame(ctx, &domain.Game{
		ID: "654321", FEN: domain.StartFEN, Status: domain.StatusActive, Turn: domain.White,
	}))

	now := time.Now()
	for i, uci := range [][2]string{{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}} {
		id, err := repo.AppendMove(ctx, &domain.Move{
			GameID: "654321", FromSquare: uci[0], ToSquare: uci[1],
			FENAfter: domain.StartFEN, CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	moves, err := repo.ListMoves(ctx, "654321")
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, "e2", moves[0].FromSquare)
	assert.Equal(t, "g1", moves[2].FromSquare)
}

func TestGetGameNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetGame(context.Background(), "999999")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}
