package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"pairchess/internal/domain"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a connection pool against databaseURL, pings
// it, and makes sure the games and moves tables exist.
func NewPostgresRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	r := &postgresRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS games (
    id           TEXT PRIMARY KEY,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    player_white TEXT,
    player_black TEXT,
    fen          TEXT NOT NULL,
    status       TEXT NOT NULL,
    turn         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS moves (
    id          BIGSERIAL PRIMARY KEY,
    game_id     TEXT NOT NULL REFERENCES games(id),
    from_square TEXT NOT NULL,
    to_square   TEXT NOT NULL,
    fen_after   TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves (game_id, id);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *postgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *postgresRepository) InsertGame(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	query := builder.Insert("games").
		Columns("id", "created_at", "player_white", "player_black", "fen", "status", "turn").
		Values(g.ID, g.CreatedAt, nullable(g.PlayerWhite), nullable(g.PlayerBlack), g.FEN, string(g.Status), string(g.Turn)).
		Suffix("ON CONFLICT (id) DO NOTHING")
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (r *postgresRepository) ClaimSlot(ctx context.Context, gameID string, color domain.Color, participantID string) error {
	col := "player_white"
	if color == domain.Black {
		col = "player_black"
	}
	query := builder.Update("games").
		Set(col, participantID).
		Where(sq.Eq{"id": gameID}).
		Where(col + " IS NULL")
	if color == domain.Black {
		query = query.Set("status", string(domain.StatusActive))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("claim %s slot: %w", color, err)
	}
	return nil
}

func (r *postgresRepository) UpdateGame(ctx context.Context, gameID, fen string, turn domain.Color, status domain.Status) error {
	query := builder.Update("games").
		Set("fen", fen).
		Set("turn", string(turn)).
		Set("status", string(status)).
		Where(sq.Eq{"id": gameID})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

func (r *postgresRepository) AppendMove(ctx context.Context, m *domain.Move) (int64, error) {
	if m == nil {
		return 0, fmt.Errorf("nil move payload")
	}
	query := builder.Insert("moves").
		Columns("game_id", "from_square", "to_square", "fen_after", "created_at").
		Values(m.GameID, m.FromSquare, m.ToSquare, m.FENAfter, m.CreatedAt).
		Suffix("RETURNING id")
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("append move: %w", err)
	}
	return id, nil
}

func (r *postgresRepository) GetGame(ctx context.Context, gameID string) (*domain.Game, error) {
	query := builder.Select("id", "created_at", "player_white", "player_black", "fen", "status", "turn").
		From("games").
		Where(sq.Eq{"id": gameID})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var (
		g            domain.Game
		white, black sql.NullString
		status, turn string
	)
	err = r.db.QueryRowContext(ctx, sqlStr, args...).
		Scan(&g.ID, &g.CreatedAt, &white, &black, &g.FEN, &status, &turn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	g.PlayerWhite = white.String
	g.PlayerBlack = black.String
	g.Status = domain.Status(status)
	g.Turn = domain.Color(turn)
	return &g, nil
}

func (r *postgresRepository) ListMoves(ctx context.Context, gameID string) ([]domain.Move, error) {
	query := builder.Select("id", "game_id", "from_square", "to_square", "fen_after", "created_at").
		From("moves").
		Where(sq.Eq{"game_id": gameID}).
		OrderBy("id ASC")
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("select moves: %w", err)
	}
	defer rows.Close()

	var out []domain.Move
	for rows.Next() {
		var m domain.Move
		if err := rows.Scan(&m.ID, &m.GameID, &m.FromSquare, &m.ToSquare, &m.FENAfter, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
