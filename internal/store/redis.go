// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stargaze/refunddesk/internal/models"
)

// Redis stores pending requests as JSON elements of a Redis list.
// RPUSH is atomic, so concurrent appends from several instances never
// overwrite each other.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis creates a store backed by rdb under the fixed Key.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, key: Key}
}

func (s *Redis) Append(ctx context.Context, rec models.PendingRequest) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pending request: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("redis RPUSH: %w", err)
	}
	return nil
}

func (s *Redis) List(ctx context.Context) ([]models.PendingRequest, error) {
	items, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE: %w", err)
	}

	records := make([]models.PendingRequest, 0, len(items))
	for i, item := range items {
		var rec models.PendingRequest
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode pending request %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Redis) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}
