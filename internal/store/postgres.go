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
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stargaze/refunddesk/internal/models"
)

// Postgres stores pending requests in a table named after Key. Append
// order is the BIGSERIAL sequence.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store backed by the given Postgres pool.
// It ensures the table exists on creation.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure pending request schema: %w", err)
	}
	slog.Info("pending request store initialised", "backend", "postgres")
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pending_refund_requests (
			seq             BIGSERIAL PRIMARY KEY,
			request_id      TEXT NOT NULL,
			full_name       TEXT NOT NULL,
			booking_number  TEXT NOT NULL,
			email           TEXT NOT NULL,
			phone_number    TEXT NOT NULL,
			refund_reason   TEXT NOT NULL,
			refund_method   TEXT NOT NULL,
			signature       TEXT NOT NULL,
			agree_to_terms  BOOLEAN NOT NULL,
			submitted_at    TIMESTAMPTZ NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending_email',
			service         TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_pending_booking ON pending_refund_requests(booking_number);
	`)
	return err
}

func (s *Postgres) Append(ctx context.Context, r models.PendingRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pending_refund_requests
			(request_id, full_name, booking_number, email, phone_number,
			 refund_reason, refund_method, signature, agree_to_terms,
			 submitted_at, status, service)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.FullName, r.BookingNumber, r.Email, r.PhoneNumber,
		r.RefundReason, string(r.RefundMethod), r.Signature, r.AgreeToTerms,
		r.SubmittedAt, string(r.Status), r.Service)
	if err != nil {
		return fmt.Errorf("insert pending request: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]models.PendingRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, full_name, booking_number, email, phone_number,
		       refund_reason, refund_method, signature, agree_to_terms,
		       submitted_at, status, service
		FROM pending_refund_requests
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Postgres) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pending_refund_requests`); err != nil {
		return fmt.Errorf("clear pending requests: %w", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// collectRecords scans multiple rows into a slice of PendingRequests.
func collectRecords(rows pgx.Rows) ([]models.PendingRequest, error) {
	records := []models.PendingRequest{}
	for rows.Next() {
		var (
			r              models.PendingRequest
			method, status string
		)
		if err := rows.Scan(
			&r.ID, &r.FullName, &r.BookingNumber, &r.Email, &r.PhoneNumber,
			&r.RefundReason, &method, &r.Signature, &r.AgreeToTerms,
			&r.SubmittedAt, &status, &r.Service,
		); err != nil {
			return nil, err
		}
		r.RefundMethod = models.RefundMethod(method)
		r.Status = models.PendingStatus(status)
		r.SubmittedAt = r.SubmittedAt.UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}
