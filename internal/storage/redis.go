package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/scenario"
)

const (
	adventureKeyPrefix = "adventure:"
	adventureSetKey    = "adventures"
	turnKeyPrefix      = "turn:"
	turnIndexPrefix    = "adventure-turns:"
	turnSeqPrefix      = "adventure-turn-seq:"
	usageKeyPrefix     = "token-usage:"
	usageIndexPrefix   = "adventure-usage:"
)

// RedisStorage implements the Storage interface using Redis for
// adventure state and filesystem for static resources (scenarios)
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Scenario operations (filesystem-backed)

func (r *RedisStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	scenariosDir := filepath.Join(r.dataDir, "scenarios")
	scenarios := make(map[string]string)

	err := filepath.WalkDir(scenariosDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read scenario file", "path", path, "error", err)
			return nil
		}

		var s scenario.Scenario
		if err := json.Unmarshal(file, &s); err != nil {
			r.logger.Warn("Failed to unmarshal scenario file", "path", path, "error", err)
			return nil
		}

		filename := filepath.Base(path)
		scenarios[s.Name] = filename
		return nil
	})

	if err != nil {
		r.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	return scenarios, nil
}

func (r *RedisStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	path := filepath.Join(r.dataDir, "scenarios", filename)

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario %s: %w", filename, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s scenario.Scenario
	if err := json.Unmarshal(file, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	if s.ID == "" {
		s.ID = filename
	}

	return &s, nil
}

// Adventure operations (Redis-backed)

func (r *RedisStorage) SaveAdventure(ctx context.Context, adv *adventure.Adventure) error {
	data, err := json.Marshal(adv)
	if err != nil {
		r.logger.Error("Failed to marshal adventure", "uuid", adv.ID, "error", err)
		return fmt.Errorf("failed to marshal adventure: %w", err)
	}

	key := adventureKeyPrefix + adv.ID.String()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save adventure", "uuid", adv.ID, "error", err)
		return fmt.Errorf("failed to save adventure: %w", err)
	}

	if err := r.client.SAdd(ctx, adventureSetKey, adv.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index adventure: %w", err)
	}

	return nil
}

func (r *RedisStorage) GetAdventure(ctx context.Context, id uuid.UUID) (*adventure.Adventure, error) {
	key := adventureKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("adventure %s: %w", id, ErrNotFound)
		}
		r.logger.Error("Failed to load adventure", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load adventure: %w", err)
	}

	var adv adventure.Adventure
	if err := json.Unmarshal([]byte(data), &adv); err != nil {
		r.logger.Error("Failed to unmarshal adventure", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal adventure: %w", err)
	}

	return &adv, nil
}

func (r *RedisStorage) ListAdventures(ctx context.Context) ([]*adventure.Adventure, error) {
	ids, err := r.client.SMembers(ctx, adventureSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list adventures: %w", err)
	}

	adventures := make([]*adventure.Adventure, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Skipping malformed adventure id", "id", raw)
			continue
		}
		adv, err := r.GetAdventure(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Stale index entry.
				continue
			}
			return nil, err
		}
		adventures = append(adventures, adv)
	}

	return adventures, nil
}

func (r *RedisStorage) DeleteAdventure(ctx context.Context, id uuid.UUID) error {
	turns, err := r.ListTurns(ctx, id)
	if err != nil {
		return err
	}

	keys := []string{
		adventureKeyPrefix + id.String(),
		turnIndexPrefix + id.String(),
		turnSeqPrefix + id.String(),
		usageIndexPrefix + id.String(),
	}
	for _, t := range turns {
		keys = append(keys, turnKeyPrefix+t.ID.String())
		if t.TokenUsageID != uuid.Nil {
			keys = append(keys, usageKeyPrefix+t.TokenUsageID.String())
		}
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Failed to delete adventure", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete adventure: %w", err)
	}
	if err := r.client.SRem(ctx, adventureSetKey, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to unindex adventure: %w", err)
	}

	return nil
}

// Turn operations (Redis-backed)

func (r *RedisStorage) AppendTurn(ctx context.Context, turn *adventure.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := turnKeyPrefix + turn.ID.String()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save turn", "uuid", turn.ID, "error", err)
		return fmt.Errorf("failed to save turn: %w", err)
	}

	// A per-adventure counter provides the ordering score, so turns
	// appended in the same millisecond still list in append order.
	seq, err := r.client.Incr(ctx, turnSeqPrefix+turn.AdventureID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to sequence turn: %w", err)
	}

	indexKey := turnIndexPrefix + turn.AdventureID.String()
	err = r.client.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(seq),
		Member: turn.ID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index turn: %w", err)
	}

	return nil
}

func (r *RedisStorage) ListTurns(ctx context.Context, adventureID uuid.UUID) ([]adventure.Turn, error) {
	indexKey := turnIndexPrefix + adventureID.String()
	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	turns := make([]adventure.Turn, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, turnKeyPrefix+id).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				r.logger.Warn("Turn missing for index entry", "turn", id, "adventure", adventureID)
				continue
			}
			return nil, fmt.Errorf("failed to load turn: %w", err)
		}

		var t adventure.Turn
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}

	return turns, nil
}

func (r *RedisStorage) DeleteTurn(ctx context.Context, adventureID uuid.UUID, turnID uuid.UUID) error {
	indexKey := turnIndexPrefix + adventureID.String()
	removed, err := r.client.ZRem(ctx, indexKey, turnID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to unindex turn: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("turn %s: %w", turnID, ErrNotFound)
	}

	if err := r.client.Del(ctx, turnKeyPrefix+turnID.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete turn: %w", err)
	}

	return nil
}

// Token usage operations (Redis-backed)

func (r *RedisStorage) SaveTokenUsage(ctx context.Context, usage *adventure.TokenUsage) error {
	data, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("failed to marshal token usage: %w", err)
	}

	key := usageKeyPrefix + usage.ID.String()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to save token usage: %w", err)
	}

	indexKey := usageIndexPrefix + usage.AdventureID.String()
	if err := r.client.SAdd(ctx, indexKey, usage.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index token usage: %w", err)
	}

	return nil
}

func (r *RedisStorage) DeleteTokenUsage(ctx context.Context, adventureID uuid.UUID, usageID uuid.UUID) error {
	if err := r.client.Del(ctx, usageKeyPrefix+usageID.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete token usage: %w", err)
	}

	indexKey := usageIndexPrefix + adventureID.String()
	if err := r.client.SRem(ctx, indexKey, usageID.String()).Err(); err != nil {
		return fmt.Errorf("failed to unindex token usage: %w", err)
	}

	return nil
}
