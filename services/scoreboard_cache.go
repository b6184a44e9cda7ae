package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScoreboardCache stores computed scoreboards keyed by game and a per-game
// version. Writers bump the version, so an entry computed before a write can
// never be served after it.
type ScoreboardCache interface {
	Lookup(ctx context.Context, gameID uint) (board []PlayerSummary, version int64, hit bool, err error)
	Store(ctx context.Context, gameID uint, version int64, board []PlayerSummary) error
	Invalidate(ctx context.Context, gameID uint) error
}

// ScoreboardFeed fans out "scoreboard changed" notifications per game.
type ScoreboardFeed interface {
	Publish(ctx context.Context, gameID uint) error
	Subscribe(ctx context.Context, gameID uint) *redis.PubSub
}

// RedisScoreboardStore implements both ScoreboardCache and ScoreboardFeed.
type RedisScoreboardStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScoreboardStore(client *redis.Client, ttl time.Duration) *RedisScoreboardStore {
	return &RedisScoreboardStore{client: client, ttl: ttl}
}

func versionKey(gameID uint) string {
	return fmt.Sprintf("scoreboard:%d:version", gameID)
}

func entryKey(gameID uint, version int64) string {
	return fmt.Sprintf("scoreboard:%d:v%d", gameID, version)
}

func UpdatesChannel(gameID uint) string {
	return fmt.Sprintf("scoreboard:%d:updates", gameID)
}

func (r *RedisScoreboardStore) Lookup(ctx context.Context, gameID uint) ([]PlayerSummary, int64, bool, error) {
	version, err := r.version(ctx, gameID)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := r.client.Get(ctx, entryKey(gameID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, false, nil
		}
		return nil, version, false, fmt.Errorf("failed to read scoreboard from Redis: %w", err)
	}

	var board []PlayerSummary
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, version, false, fmt.Errorf("failed to unmarshal cached scoreboard: %w", err)
	}
	return board, version, true, nil
}

func (r *RedisScoreboardStore) Store(ctx context.Context, gameID uint, version int64, board []PlayerSummary) error {
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to marshal scoreboard: %w", err)
	}
	if err := r.client.Set(ctx, entryKey(gameID, version), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store scoreboard in Redis: %w", err)
	}
	return nil
}

// Invalidate bumps the game's version. If the bump fails it still tries to
// drop the entry for the current version, and reports the failure either way.
func (r *RedisScoreboardStore) Invalidate(ctx context.Context, gameID uint) error {
	err := r.client.Incr(ctx, versionKey(gameID)).Err()
	if err == nil {
		return nil
	}

	if version, verr := r.version(ctx, gameID); verr == nil {
		if derr := r.client.Del(ctx, entryKey(gameID, version)).Err(); derr == nil {
			return fmt.Errorf("failed to bump scoreboard version, current entry dropped: %w", err)
		}
	}
	return fmt.Errorf("failed to bump scoreboard version: %w", err)
}

func (r *RedisScoreboardStore) Publish(ctx context.Context, gameID uint) error {
	return r.client.Publish(ctx, UpdatesChannel(gameID), strconv.FormatUint(uint64(gameID), 10)).Err()
}

// Subscribe returns a subscription to the game's update channel. The caller
// must Close it.
func (r *RedisScoreboardStore) Subscribe(ctx context.Context, gameID uint) *redis.PubSub {
	return r.client.Subscribe(ctx, UpdatesChannel(gameID))
}

func (r *RedisScoreboardStore) version(ctx context.Context, gameID uint) (int64, error) {
	version, err := r.client.Get(ctx, versionKey(gameID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scoreboard version: %w", err)
	}
	return version, nil
}
