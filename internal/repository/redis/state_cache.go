package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Key patterns for cached game state.
func stateKey(gameID string) string { return "game:" + gameID + ":state" }
func turnKey(gameID string) string  { return "game:" + gameID + ":turn" }

// SetState stores the latest serialized state for a game. The turn is
// kept alongside so stale writes are detectable by operators.
func (c *Client) SetState(ctx context.Context, gameID string, turn int, blob json.RawMessage) error {
	if err := c.rdb.Set(ctx, stateKey(gameID), []byte(blob), 0).Err(); err != nil {
		return fmt.Errorf("cache state: %w", err)
	}
	return c.rdb.Set(ctx, turnKey(gameID), strconv.Itoa(turn), 0).Err()
}

// GetState retrieves the cached latest state, or nil on a miss.
func (c *Client) GetState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached state: %w", err)
	}
	return json.RawMessage(data), nil
}

// Invalidate drops the cached state for a game. Called during recovery
// (the cache may be ahead of the rolled-back store) and at completion.
func (c *Client) Invalidate(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), turnKey(gameID)).Err()
}
