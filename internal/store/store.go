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

// Package store persists refund requests that no automated channel could
// deliver. Records form one ordered, append-only sequence under a fixed
// key; they are read back only by diagnostic tooling and removed only by
// an explicit Clear.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stargaze/refunddesk/internal/config"
	"github.com/stargaze/refunddesk/internal/models"
)

// Key names the sequence of pending requests in every backend.
const Key = "pending_refund_requests"

// Store is the pending-request persistence capability.
type Store interface {
	// Append adds rec to the end of the sequence. Concurrent appends from
	// several service instances must not lose records.
	Append(ctx context.Context, rec models.PendingRequest) error

	// List returns every record in append order. An empty store yields an
	// empty, non-nil slice.
	List(ctx context.Context) ([]models.PendingRequest, error)

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Ping checks the backing medium is reachable.
	Ping(ctx context.Context) error
}

// Open connects the backend selected by cfg. The returned close function
// releases the connection and is safe to call once.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemory(), func() {}, nil

	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		s := NewRedis(rdb)
		if err := s.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to Redis: %w", err)
		}
		return s, func() { rdb.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		s, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
