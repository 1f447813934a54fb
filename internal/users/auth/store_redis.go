// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/agora/internal/platform/constants"
)

// # Cooldown Repository

// RedisCooldownRepository implements [CooldownRepository] using Redis key expiry.
type RedisCooldownRepository struct {
	client redis.UniversalClient
}

// NewCooldownRepository creates a new Redis-backed CooldownRepository.
func NewCooldownRepository(client redis.UniversalClient) *RedisCooldownRepository {
	return &RedisCooldownRepository{client: client}
}

func cooldownKey(memberID int64) string {
	return constants.RedisPrefixVerifyCooldown + strconv.FormatInt(memberID, 10)
}

/*
Acquire claims the cooldown window with SET NX EX.

Description: Exactly one caller per window observes a zero remaining
duration. Others receive the TTL left on the key, at least one second.

Parameters:
  - context: context.Context
  - memberID: int64
  - window: time.Duration

Returns:
  - time.Duration: Remaining wait, zero when acquired
  - error: Connectivity failures
*/
func (repository *RedisCooldownRepository) Acquire(context context.Context, memberID int64, window time.Duration) (time.Duration, error) {
	key := cooldownKey(memberID)

	// Claim the window atomically
	acquired, err := repository.client.SetNX(context, key, "1", window).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_cooldown_acquire_failed: %w", err)
	}
	if acquired {
		return 0, nil
	}

	// Report how long the live window still has to run
	remaining, err := repository.client.TTL(context, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_cooldown_ttl_failed: %w", err)
	}
	if remaining < time.Second {
		remaining = time.Second
	}

	return remaining, nil
}

// Release removes the window so the member may retry immediately.
func (repository *RedisCooldownRepository) Release(context context.Context, memberID int64) error {
	if err := repository.client.Del(context, cooldownKey(memberID)).Err(); err != nil {
		return fmt.Errorf("redis_cooldown_release_failed: %w", err)
	}
	return nil
}
