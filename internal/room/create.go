package room

import (
	"context"

	"go.uber.org/zap"

	"pairchess/internal/archive"
	"pairchess/internal/domain"
	"pairchess/internal/live"
	"pairchess/internal/obslog"
)

// Create allocates a fresh game with the caller in the white slot, the black
// slot empty, status waiting, and the board at the standard start. A code
// collision after the configured attempts surfaces as a retryable conflict
// for the caller to show inline; it is never retried automatically beyond
// those attempts. There is no separate join operation: visiting the code
// afterwards triggers fetch-then-claim via Join.
func Create(ctx context.Context, store *live.Store, repo archive.Repository, identity string, codeLen, attempts int) (*domain.Game, error) {
	g, err := store.Create(ctx, identity, codeLen, attempts)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		if err := repo.InsertGame(ctx, g); err != nil {
			obslog.L().Warn("archive_insert_error", zap.String("game_id", g.ID), zap.Error(err))
		}
	}
	return g, nil
}
