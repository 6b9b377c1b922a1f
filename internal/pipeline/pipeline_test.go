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

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stargaze/refunddesk/internal/compose"
	"github.com/stargaze/refunddesk/internal/delivery"
	"github.com/stargaze/refunddesk/internal/delivery/deliverytest"
	"github.com/stargaze/refunddesk/internal/models"
	"github.com/stargaze/refunddesk/internal/store"
)

var contact = models.ContactInfo{Phone: "1-844-782-7429", Email: "info@stargazevacations.com"}

func janeDoe() models.RefundRequestForm {
	return models.RefundRequestForm{
		FullName:      "Jane Doe",
		BookingNumber: "SG-2024-001234",
		Email:         "jane@example.com",
		PhoneNumber:   "5551234567",
		RefundReason:  "Trip cancelled",
		RefundMethod:  models.RefundPayPal,
		Signature:     "Jane Doe",
		AgreeToTerms:  true,
	}
}

func newPipeline(stages []Stage) *Pipeline {
	return New(Config{
		Composer: compose.New(compose.Business{
			Name:  "StarGaze Vacations",
			Inbox: contact.Email,
			Phone: contact.Phone,
		}, time.UTC),
		Stages:         stages,
		ChannelTimeout: time.Second,
		Contact:        contact,
		Now:            func() time.Time { return time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC) },
	})
}

// mockRepeat implements RepeatDetector with an in-memory set.
type mockRepeat struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *mockRepeat) IsNew(_ context.Context, fp string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[fp] {
		return false, nil
	}
	m.seen[fp] = true
	return true, nil
}

// mockEvents implements EventPublisher.
type mockEvents struct {
	mu     sync.Mutex
	events []models.SubmissionEvent
	err    error
}

func (m *mockEvents) PublishSubmission(_ context.Context, e models.SubmissionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

// TestSubmit_InvalidNeverDelivers verifies the validation gate.
func TestSubmit_InvalidNeverDelivers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *models.RefundRequestForm)
	}{
		{"missing name", func(f *models.RefundRequestForm) { f.FullName = "" }},
		{"terms not accepted", func(f *models.RefundRequestForm) { f.AgreeToTerms = false }},
		{"bad email", func(f *models.RefundRequestForm) { f.Email = "jane.example.com" }},
		{"no method", func(f *models.RefundRequestForm) { f.RefundMethod = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := deliverytest.Succeeding(delivery.ChannelPrimary, "msg-1")
			webhook := deliverytest.Succeeding(delivery.ChannelWebhook, "")
			local := deliverytest.Succeeding(delivery.ChannelLocal, "")
			p := newPipeline(DefaultStages(primary, webhook, local))

			f := janeDoe()
			tt.mutate(&f)
			out := p.Submit(context.Background(), f)

			if out.Status != StatusInvalid {
				t.Errorf("status = %q, want invalid", out.Status)
			}
			if len(out.FieldErrors) == 0 {
				t.Error("expected field errors")
			}
			if n := primary.Calls() + webhook.Calls() + local.Calls(); n != 0 {
				t.Errorf("channels invoked %d times, want 0", n)
			}
		})
	}
}

// TestSubmit_PrimarySuccess covers the Jane Doe scenario end to end.
func TestSubmit_PrimarySuccess(t *testing.T) {
	primary := deliverytest.Succeeding(delivery.ChannelPrimary, "acm-42")
	webhook := deliverytest.Succeeding(delivery.ChannelWebhook, "")
	local := deliverytest.Succeeding(delivery.ChannelLocal, "")
	p := newPipeline(DefaultStages(primary, webhook, local))

	out := p.Submit(context.Background(), janeDoe())

	if out.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", out.Status)
	}
	if out.MessageID == "" {
		t.Error("message id is empty")
	}
	if out.Subject != "Refund Request - SG-2024-001234" {
		t.Errorf("subject = %q", out.Subject)
	}
	if out.Contact != nil {
		t.Error("full success should not carry manual contact details")
	}
	if webhook.Calls() != 0 || local.Calls() != 0 {
		t.Error("fallback channels ran after primary success")
	}

	sent := primary.Payloads()
	if len(sent) != 1 || sent[0].Subject != out.Subject {
		t.Fatalf("primary received %d payloads", len(sent))
	}
	if sent[0].ReplyTo != "jane@example.com" {
		t.Errorf("reply-to = %q", sent[0].ReplyTo)
	}
}

// TestSubmit_WebhookDegraded verifies the local channel is skipped when the
// webhook delivers.
func TestSubmit_WebhookDegraded(t *testing.T) {
	primary := deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrAuth)
	webhook := deliverytest.Succeeding(delivery.ChannelWebhook, "")
	local := deliverytest.Succeeding(delivery.ChannelLocal, "")
	p := newPipeline(DefaultStages(primary, webhook, local))

	out := p.Submit(context.Background(), janeDoe())

	if out.Status != StatusDegraded {
		t.Fatalf("status = %q, want degraded", out.Status)
	}
	if out.Channel != delivery.ChannelWebhook {
		t.Errorf("channel = %q, want webhook", out.Channel)
	}
	if local.Calls() != 0 {
		t.Error("local channel invoked after webhook success")
	}
	if out.Contact == nil || out.Contact.Phone != contact.Phone {
		t.Error("degraded outcome should carry manual contact details")
	}
	if len(out.Attempts) != 2 || out.Attempts[0].Kind != delivery.ErrAuth {
		t.Errorf("attempts = %+v", out.Attempts)
	}

	// Every channel sees the very same payload.
	if primary.Payloads()[0] != webhook.Payloads()[0] {
		t.Error("channels received different payload instances")
	}
}

// TestSubmit_LocalOnly verifies the terminal channel persists the request
// and returns manual instructions.
func TestSubmit_LocalOnly(t *testing.T) {
	mem := store.NewMemory()
	primary := deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrNetwork)
	webhook := deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrUnknown)
	local := delivery.NewLocal(mem, contact, "acumbamail")
	p := newPipeline(DefaultStages(primary, webhook, local))

	out := p.Submit(context.Background(), janeDoe())

	if out.Status != StatusLocalOnly {
		t.Fatalf("status = %q, want local_only", out.Status)
	}
	if out.Instructions == nil {
		t.Fatal("manual instructions missing")
	}
	if out.Instructions.Phone != "1-844-782-7429" {
		t.Errorf("phone = %q", out.Instructions.Phone)
	}
	if out.Instructions.Email != "info@stargazevacations.com" {
		t.Errorf("email = %q", out.Instructions.Email)
	}
	if !strings.HasPrefix(out.RequestID, "REF-") {
		t.Errorf("request id = %q, want REF- prefix", out.RequestID)
	}

	recs, _ := mem.List(context.Background())
	if len(recs) != 1 {
		t.Fatalf("stored %d records, want 1", len(recs))
	}
	if recs[0].Status != models.StatusPendingEmail || recs[0].BookingNumber != "SG-2024-001234" {
		t.Errorf("stored record = %+v", recs[0])
	}
}

// TestSubmit_HardFailure verifies a storage failure is the only way to fail.
func TestSubmit_HardFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.Err = errors.New("quota exceeded")
	p := newPipeline(DefaultStages(
		deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrQuota),
		deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrNetwork),
		delivery.NewLocal(mem, contact, "acumbamail"),
	))

	out := p.Submit(context.Background(), janeDoe())

	if out.Status != StatusHardFailure {
		t.Fatalf("status = %q, want hard_failure", out.Status)
	}
	if out.Contact == nil || out.Contact.Email != contact.Email {
		t.Error("hard failure must carry the business contact")
	}
	if len(out.Attempts) != 3 || out.Attempts[2].Kind != delivery.ErrStorage {
		t.Errorf("attempts = %+v", out.Attempts)
	}
	if !strings.Contains(out.Message, "contact StarGaze Vacations directly") {
		t.Errorf("message = %q", out.Message)
	}
}

// TestSubmit_ChannelTimeout verifies a hung channel is abandoned and the
// next one runs.
func TestSubmit_ChannelTimeout(t *testing.T) {
	primary := &deliverytest.Channel{ChannelName: delivery.ChannelPrimary, Block: true}
	webhook := deliverytest.Succeeding(delivery.ChannelWebhook, "")
	local := deliverytest.Succeeding(delivery.ChannelLocal, "")

	p := newPipeline(DefaultStages(primary, webhook, local))
	p.timeout = 20 * time.Millisecond

	start := time.Now()
	out := p.Submit(context.Background(), janeDoe())

	if out.Status != StatusDegraded {
		t.Fatalf("status = %q, want degraded", out.Status)
	}
	if out.Attempts[0].Kind != delivery.ErrNetwork {
		t.Errorf("timed-out attempt kind = %q, want network", out.Attempts[0].Kind)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("submission took %v, timeout not applied", elapsed)
	}
}

// TestSubmit_ExtraStage verifies channels are added without touching the loop.
func TestSubmit_ExtraStage(t *testing.T) {
	extra := deliverytest.Succeeding("sms", "sms-1")
	stages := []Stage{
		{Channel: deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrConfig), OnSuccess: StatusSuccess},
		{Channel: extra, OnSuccess: StatusDegraded},
	}
	out := newPipeline(stages).Submit(context.Background(), janeDoe())

	if out.Status != StatusDegraded || out.Channel != "sms" {
		t.Errorf("outcome = %s via %s, want degraded via sms", out.Status, out.Channel)
	}
	if extra.Calls() != 1 {
		t.Errorf("extra stage calls = %d, want 1", extra.Calls())
	}
}

// TestSubmit_RepeatIsFlaggedNotBlocked verifies resubmissions still deliver.
func TestSubmit_RepeatIsFlaggedNotBlocked(t *testing.T) {
	primary := deliverytest.Succeeding(delivery.ChannelPrimary, "msg")
	p := newPipeline(DefaultStages(primary, deliverytest.Succeeding(delivery.ChannelWebhook, ""), deliverytest.Succeeding(delivery.ChannelLocal, "")))
	p.repeat = &mockRepeat{}

	first := p.Submit(context.Background(), janeDoe())
	second := p.Submit(context.Background(), janeDoe())

	if first.Repeat {
		t.Error("first submission flagged as repeat")
	}
	if !second.Repeat {
		t.Error("second submission not flagged as repeat")
	}
	if second.Status != StatusSuccess {
		t.Errorf("repeat status = %q, want success", second.Status)
	}
	if primary.Calls() != 2 {
		t.Errorf("primary calls = %d, want 2", primary.Calls())
	}
}

// TestSubmit_RepeatDetectorError verifies detector failures are ignored.
func TestSubmit_RepeatDetectorError(t *testing.T) {
	p := newPipeline(DefaultStages(
		deliverytest.Succeeding(delivery.ChannelPrimary, "msg"),
		deliverytest.Succeeding(delivery.ChannelWebhook, ""),
		deliverytest.Succeeding(delivery.ChannelLocal, ""),
	))
	p.repeat = &mockRepeat{err: errors.New("redis down")}

	out := p.Submit(context.Background(), janeDoe())
	if out.Status != StatusSuccess || out.Repeat {
		t.Errorf("outcome = %+v", out)
	}
}

// TestSubmit_PublishesEvents verifies outcome events and that publish
// failures do not change the outcome.
func TestSubmit_PublishesEvents(t *testing.T) {
	events := &mockEvents{err: errors.New("redis down")}
	p := newPipeline(DefaultStages(
		deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrQuota),
		deliverytest.Succeeding(delivery.ChannelWebhook, ""),
		deliverytest.Succeeding(delivery.ChannelLocal, ""),
	))
	p.events = events

	out := p.Submit(context.Background(), janeDoe())
	if out.Status != StatusDegraded {
		t.Fatalf("status = %q, want degraded", out.Status)
	}

	if len(events.events) != 1 {
		t.Fatalf("published %d events, want 1", len(events.events))
	}
	e := events.events[0]
	if e.Status != "degraded" || e.Channel != "webhook" || e.BookingNumber != "SG-2024-001234" {
		t.Errorf("event = %+v", e)
	}

	// Invalid submissions publish nothing.
	f := janeDoe()
	f.Signature = ""
	p.Submit(context.Background(), f)
	if len(events.events) != 1 {
		t.Errorf("invalid submission published an event")
	}
}
