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

package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stargaze/refunddesk/internal/models"
)

// PendingAppender persists a request no automated channel delivered.
type PendingAppender interface {
	Append(ctx context.Context, rec models.PendingRequest) error
}

// Local is the terminal channel. It records the request for manual follow-up
// and hands the visitor the business's direct contact details.
type Local struct {
	store   PendingAppender
	contact models.ContactInfo
	service string
	now     func() time.Time
}

// NewLocal creates the persistence channel. service names the configured
// primary provider and is stored with each record.
func NewLocal(store PendingAppender, contact models.ContactInfo, service string) *Local {
	return &Local{
		store:   store,
		contact: contact,
		service: service,
		now:     time.Now,
	}
}

func (l *Local) Name() ChannelName { return ChannelLocal }

// NewRecord builds the pending record for p. The ID is "REF-<unix ms>-"
// followed by a random suffix, so records stored in the same millisecond
// stay distinct.
func (l *Local) NewRecord(p *models.MessagePayload) models.PendingRequest {
	f := p.Request
	submittedAt := p.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = l.now()
	}
	return models.PendingRequest{
		ID:            newRequestID(l.now()),
		FullName:      f.FullName,
		BookingNumber: f.BookingNumber,
		Email:         f.Email,
		PhoneNumber:   f.PhoneNumber,
		RefundReason:  f.RefundReason,
		RefundMethod:  f.RefundMethod,
		Signature:     f.Signature,
		AgreeToTerms:  f.AgreeToTerms,
		SubmittedAt:   submittedAt.UTC(),
		Status:        models.StatusPendingEmail,
		Service:       l.service,
	}
}

func newRequestID(t time.Time) string {
	return "REF-" + strconv.FormatInt(t.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// Deliver appends the pending record. The only failure is the store itself.
func (l *Local) Deliver(ctx context.Context, p *models.MessagePayload) Result {
	rec := l.NewRecord(p)

	if err := l.store.Append(ctx, rec); err != nil {
		return failed(ChannelLocal, ErrStorage, fmt.Errorf("append pending request: %w", err))
	}

	slog.Warn("refund request stored for manual processing",
		"request_id", rec.ID,
		"booking_number", rec.BookingNumber,
	)

	return Result{
		Success:   true,
		Channel:   ChannelLocal,
		RequestID: rec.ID,
		Instructions: &models.ManualInstructions{
			ContactInfo: l.contact,
			Details:     &rec,
		},
	}
}
