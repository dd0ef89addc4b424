// Package live keeps the shared mutable game record in Redis and fans out
// change events over pub/sub. Delivery follows commit order for a given game
// but is not guaranteed: a dropped subscription silently misses events, and
// there is no replay. Reconnecting clients re-fetch the record instead.
package live

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pairchess/internal/domain"
	"pairchess/internal/obslog"
)

const claimAttempts = 3

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore connects to Redis using a redis:// URL and verifies the
// connection.
func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStoreWithClient(rdb, ttl), nil
}

// NewStoreWithClient wraps an existing client; used by tests.
func NewStoreWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(code string) string     { return "game:" + strings.TrimSpace(code) }
func gameChannel(code string) string { return "game:" + strings.TrimSpace(code) + ":events" }

// Create allocates a fresh game under a short numeric code. The creator
// occupies the white slot, the black slot stays empty, status starts as
// waiting. Code collisions are retried up to attempts times before the
// conflict is surfaced to the caller as retryable.
func (s *Store) Create(ctx context.Context, creatorID string, codeLen, attempts int) (*domain.Game, error) {
	if strings.TrimSpace(creatorID) == "" {
		return nil, fmt.Errorf("creator id required")
	}
	if codeLen < 4 {
		codeLen = 6
	}
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code, err := numericCode(codeLen)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		g := &domain.Game{
			ID:          code,
			PlayerWhite: strings.TrimSpace(creatorID),
			FEN:         domain.StartFEN,
			Turn:        domain.White,
			Status:      domain.StatusWaiting,
			MovesUCI:    []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		ok, err := s.rdb.SetNX(ctx, gameKey(code), raw, s.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			obslog.L().Info("game_create",
				zap.String("game_id", code),
				zap.String("player_white", g.PlayerWhite),
			)
			return g, nil
		}
	}
	return nil, domain.ErrCodeConflict
}

// Get loads the current record, or domain.ErrGameNotFound.
func (s *Store) Get(ctx context.Context, code string) (*domain.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(code)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Claim assigns a role to the participant: the slot they already hold, else
// the first empty color slot, else spectator. The write runs inside a WATCH
// transaction so the claim succeeds only if the slot is still unset at write
// time; a lost race is retried and resolves to whatever the record then says.
// Claiming the black slot flips status from waiting to active.
func (s *Store) Claim(ctx context.Context, code, participantID string) (*domain.Game, domain.Role, error) {
	participantID = strings.TrimSpace(participantID)
	key := gameKey(code)

	var (
		result *domain.Game
		role   domain.Role
	)
	for attempt := 0; attempt < claimAttempts; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return domain.ErrGameNotFound
			}
			if err != nil {
				return err
			}
			var cur domain.Game
			if err := json.Unmarshal(raw, &cur); err != nil {
				return err
			}

			// Idempotent reconnection: an identity that already holds a
			// slot keeps it.
			if r := cur.RoleOf(participantID); r != domain.RoleSpectator {
				result, role = &cur, r
				return nil
			}

			switch {
			case participantID == "":
				result, role = &cur, domain.RoleSpectator
				return nil
			case cur.PlayerWhite == "":
				cur.PlayerWhite = participantID
				role = domain.RoleWhite
			case cur.PlayerBlack == "":
				cur.PlayerBlack = participantID
				cur.Status = domain.StatusActive
				role = domain.RoleBlack
			default:
				result, role = &cur, domain.RoleSpectator
				return nil
			}

			cur.UpdatedAt = time.Now().UTC()
			newRaw, err := json.Marshal(&cur)
			if err != nil {
				return err
			}
			evRaw, err := json.Marshal(Event{Kind: EventGameUpdated, Game: &cur})
			if err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, newRaw, s.ttl)
			pipe.Publish(ctx, gameChannel(code), evRaw)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			result = &cur
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		obslog.L().Info("game_claim",
			zap.String("game_id", code),
			zap.String("participant", participantID),
			zap.String("role", string(role)),
			zap.String("status", string(result.Status)),
		)
		return result, role, nil
	}
	return nil, "", domain.ErrStaleRecord
}

// MoveWrite is the already-validated outcome of an accepted move. The store
// persists it; it never re-checks legality (no server-authoritative
// validation in this system).
type MoveWrite struct {
	FromSquare string
	ToSquare   string
	UCI        string
	FENAfter   string
	Turn       domain.Color
	Status     domain.Status
}

// ApplyMove appends the move to the record and overwrites position, turn and
// status, inside a WATCH transaction keyed on the game. prevMoves is the move
// count the submitter validated against; a record that moved on concurrently
// fails with domain.ErrStaleRecord instead of clobbering the newer state.
// The move-append event publishes before the full-record update, mirroring
// the append-then-update write order.
func (s *Store) ApplyMove(ctx context.Context, code string, prevMoves int, mv MoveWrite) (*domain.Game, *domain.Move, error) {
	key := gameKey(code)

	var (
		updated *domain.Game
		logged  *domain.Move
	)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrGameNotFound
		}
		if err != nil {
			return err
		}
		var cur domain.Game
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Status == domain.StatusFinished {
			return domain.ErrGameFinished
		}
		if len(cur.MovesUCI) != prevMoves {
			return redis.TxFailedErr
		}

		now := time.Now().UTC()
		cur.MovesUCI = append(cur.MovesUCI, mv.UCI)
		cur.FEN = mv.FENAfter
		cur.Turn = mv.Turn
		cur.Status = mv.Status
		cur.UpdatedAt = now

		m := &domain.Move{
			GameID:     cur.ID,
			FromSquare: mv.FromSquare,
			ToSquare:   mv.ToSquare,
			FENAfter:   mv.FENAfter,
			CreatedAt:  now,
		}

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		moveEv, err := json.Marshal(Event{Kind: EventMoveAppended, Move: m})
		if err != nil {
			return err
		}
		gameEv, err := json.Marshal(Event{Kind: EventGameUpdated, Game: &cur})
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, s.ttl)
		pipe.Publish(ctx, gameChannel(code), moveEv)
		pipe.Publish(ctx, gameChannel(code), gameEv)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		updated, logged = &cur, m
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, nil, domain.ErrStaleRecord
	}
	if err != nil {
		return nil, nil, err
	}
	obslog.L().Info("game_move",
		zap.String("game_id", code),
		zap.String("uci", mv.UCI),
		zap.String("turn", string(updated.Turn)),
		zap.String("status", string(updated.Status)),
	)
	return updated, logged, nil
}

// Subscribe delivers this game's events until ctx is cancelled. Events arrive
// in commit order; there is no catch-up for anything published before the
// subscription was established.
func (s *Store) Subscribe(ctx context.Context, code string) (<-chan Event, error) {
	sub := s.rdb.Subscribe(ctx, gameChannel(code))
	// Force the SUBSCRIBE round-trip so callers observe events published
	// after Subscribe returns.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					obslog.L().Warn("event_decode_error", zap.String("game_id", code), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// numericCode returns n random decimal digits with a non-zero leading digit.
func numericCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	b[0] = '1' + b[0]%9
	for i := 1; i < n; i++ {
		b[i] = '0' + b[i]%10
	}
	return string(b), nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
