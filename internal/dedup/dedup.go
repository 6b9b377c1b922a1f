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

// Package dedup flags repeated refund submissions using a Redis key with TTL.
// A repeat is only reported, never suppressed: resubmitting the same form
// still runs a full, independent delivery.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stargaze/refunddesk/internal/models"
)

const (
	// DefaultTTL is how long we remember a submission fingerprint.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces fingerprint keys in Redis.
	keyPrefix = "refunds:seen:"
)

// Filter tracks which submissions have been seen recently.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a repeat filter backed by Redis. A non-positive ttl
// selects DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// Fingerprint identifies a submission by booking number and customer email,
// case- and whitespace-insensitively.
func Fingerprint(form models.RefundRequestForm) string {
	key := strings.ToLower(strings.TrimSpace(form.BookingNumber)) + "|" +
		strings.ToLower(strings.TrimSpace(form.Email))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsNew returns true if the fingerprint has NOT been seen within the TTL.
// If true, the fingerprint is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, fingerprint string) (bool, error) {
	key := fmt.Sprintf("%s%s", keyPrefix, fingerprint)

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}
