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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stargaze/refunddesk/internal/compose"
	"github.com/stargaze/refunddesk/internal/delivery"
	"github.com/stargaze/refunddesk/internal/delivery/deliverytest"
	"github.com/stargaze/refunddesk/internal/models"
	"github.com/stargaze/refunddesk/internal/pipeline"
	"github.com/stargaze/refunddesk/internal/store"
)

const validBody = `{
	"fullName": "Jane Doe",
	"bookingNumber": "SG-2024-001234",
	"email": "jane@example.com",
	"phoneNumber": "5551234567",
	"refundReason": "Trip cancelled",
	"refundMethod": "paypal",
	"signature": "Jane Doe",
	"agreeToTerms": true
}`

var testContact = models.ContactInfo{Phone: "1-844-782-7429", Email: "info@stargazevacations.com"}

func newTestHandler(t *testing.T, primary, webhook delivery.Channel, mem *store.Memory, admin bool) http.Handler {
	t.Helper()
	p := pipeline.New(pipeline.Config{
		Composer: compose.New(compose.Business{Name: "StarGaze Vacations", Inbox: testContact.Email, Phone: testContact.Phone}, time.UTC),
		Stages: pipeline.DefaultStages(
			primary,
			webhook,
			delivery.NewLocal(mem, testContact, "acumbamail"),
		),
		ChannelTimeout: time.Second,
		Contact:        testContact,
	})
	return NewHandler(p, mem, admin).Router()
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/refund-requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

// TestSubmit_StatusCodes verifies each outcome maps to its HTTP status.
func TestSubmit_StatusCodes(t *testing.T) {
	failingStore := store.NewMemory()
	failingStore.Err = errors.New("unavailable")

	tests := []struct {
		name       string
		primary    delivery.Channel
		webhook    delivery.Channel
		mem        *store.Memory
		body       string
		wantCode   int
		wantStatus string
	}{
		{
			name:       "success",
			primary:    deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
			webhook:    deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			mem:        store.NewMemory(),
			body:       validBody,
			wantCode:   http.StatusOK,
			wantStatus: "success",
		},
		{
			name:       "degraded",
			primary:    deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrAuth),
			webhook:    deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			mem:        store.NewMemory(),
			body:       validBody,
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name:       "local only",
			primary:    deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrAuth),
			webhook:    deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrNetwork),
			mem:        store.NewMemory(),
			body:       validBody,
			wantCode:   http.StatusOK,
			wantStatus: "local_only",
		},
		{
			name:       "hard failure",
			primary:    deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrAuth),
			webhook:    deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrNetwork),
			mem:        failingStore,
			body:       validBody,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "hard_failure",
		},
		{
			name:       "invalid",
			primary:    deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
			webhook:    deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			mem:        store.NewMemory(),
			body:       `{"fullName":"Jane Doe"}`,
			wantCode:   http.StatusUnprocessableEntity,
			wantStatus: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.primary, tt.webhook, tt.mem, false)
			w, out := post(t, h, tt.body)

			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d (body: %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if out["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", out["status"], tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
		})
	}
}

// TestSubmit_ResponseBodies verifies the fields the form UI renders.
func TestSubmit_ResponseBodies(t *testing.T) {
	t.Run("invalid carries field errors", func(t *testing.T) {
		h := newTestHandler(t,
			deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
			deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			store.NewMemory(), false)
		_, out := post(t, h, `{"fullName":"Jane Doe"}`)

		fields, ok := out["fieldErrors"].(map[string]any)
		if !ok {
			t.Fatalf("fieldErrors missing: %v", out)
		}
		if _, ok := fields["fullName"]; ok {
			t.Error("fullName should be valid")
		}
		if fields["agreeToTerms"] != "You must agree to the terms and conditions" {
			t.Errorf("agreeToTerms error = %v", fields["agreeToTerms"])
		}
	})

	t.Run("local only carries instructions", func(t *testing.T) {
		mem := store.NewMemory()
		h := newTestHandler(t,
			deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrQuota),
			deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrNetwork),
			mem, false)
		_, out := post(t, h, validBody)

		in, ok := out["manualInstructions"].(map[string]any)
		if !ok {
			t.Fatalf("manualInstructions missing: %v", out)
		}
		if in["phone"] != testContact.Phone || in["email"] != testContact.Email {
			t.Errorf("instructions = %v", in)
		}
		if id, _ := out["requestId"].(string); !strings.HasPrefix(id, "REF-") {
			t.Errorf("requestId = %v", out["requestId"])
		}
	})

	t.Run("degraded carries failure message", func(t *testing.T) {
		h := newTestHandler(t,
			deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrAuth),
			deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			store.NewMemory(), false)
		_, out := post(t, h, validBody)

		attempts, _ := out["attempts"].([]any)
		if len(attempts) != 2 {
			t.Fatalf("attempts = %v", out["attempts"])
		}
		first, _ := attempts[0].(map[string]any)
		if first["message"] != "Email service authentication failed. Check API token." {
			t.Errorf("primary attempt message = %v", first["message"])
		}
		if second, _ := attempts[1].(map[string]any); second["message"] != nil {
			t.Errorf("successful attempt carries message %v", second["message"])
		}
	})

	t.Run("hard failure carries failure messages", func(t *testing.T) {
		mem := store.NewMemory()
		mem.Err = errors.New("unavailable")
		h := newTestHandler(t,
			deliverytest.Failing(delivery.ChannelPrimary, delivery.ErrQuota),
			deliverytest.Failing(delivery.ChannelWebhook, delivery.ErrNetwork),
			mem, false)
		_, out := post(t, h, validBody)

		attempts, _ := out["attempts"].([]any)
		if len(attempts) != 3 {
			t.Fatalf("attempts = %v", out["attempts"])
		}
		want := []string{
			"Email quota exceeded. Please try again later.",
			"Network error. Please try again.",
			"Failed to save request locally.",
		}
		for i, w := range want {
			a, _ := attempts[i].(map[string]any)
			if a["message"] != w {
				t.Errorf("attempt %d message = %v, want %q", i, a["message"], w)
			}
		}
	})

	t.Run("success carries message id", func(t *testing.T) {
		h := newTestHandler(t,
			deliverytest.Succeeding(delivery.ChannelPrimary, "m-77"),
			deliverytest.Succeeding(delivery.ChannelWebhook, ""),
			store.NewMemory(), false)
		_, out := post(t, h, validBody)

		if out["messageId"] != "m-77" {
			t.Errorf("messageId = %v", out["messageId"])
		}
		if out["subject"] != "Refund Request - SG-2024-001234" {
			t.Errorf("subject = %v", out["subject"])
		}
	})
}

// TestSubmit_MalformedJSON verifies bad bodies never reach the pipeline.
func TestSubmit_MalformedJSON(t *testing.T) {
	primary := deliverytest.Succeeding(delivery.ChannelPrimary, "m-1")
	h := newTestHandler(t, primary, deliverytest.Succeeding(delivery.ChannelWebhook, ""), store.NewMemory(), false)

	w, _ := post(t, h, `{"fullName":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
	if primary.Calls() != 0 {
		t.Error("pipeline ran for malformed body")
	}
}

// TestRequestID verifies ids are generated and propagated.
func TestRequestID(t *testing.T) {
	h := newTestHandler(t,
		deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
		deliverytest.Succeeding(delivery.ChannelWebhook, ""),
		store.NewMemory(), false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("request id not generated")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

// TestAdminRoutes verifies the pending accessor and its gating.
func TestAdminRoutes(t *testing.T) {
	mem := store.NewMemory()
	mem.Append(context.Background(), models.PendingRequest{ID: "REF-1", BookingNumber: "SG-1", Status: models.StatusPendingEmail})
	mem.Append(context.Background(), models.PendingRequest{ID: "REF-2", BookingNumber: "SG-2", Status: models.StatusPendingEmail})

	primary := deliverytest.Succeeding(delivery.ChannelPrimary, "m-1")
	webhook := deliverytest.Succeeding(delivery.ChannelWebhook, "")

	t.Run("disabled", func(t *testing.T) {
		h := newTestHandler(t, primary, webhook, mem, false)
		req := httptest.NewRequest(http.MethodGet, "/v1/pending-refund-requests", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", w.Code)
		}
	})

	h := newTestHandler(t, primary, webhook, mem, true)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/pending-refund-requests", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", w.Code)
		}
		var out pendingList
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out.Items) != 2 || out.Items[0].ID != "REF-1" || out.Items[1].ID != "REF-2" {
			t.Errorf("items = %+v", out.Items)
		}
	})

	t.Run("clear", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/pending-refund-requests", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("code = %d, want 204", w.Code)
		}
		items, _ := mem.List(context.Background())
		if len(items) != 0 {
			t.Errorf("store still has %d items", len(items))
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/pending-refund-requests", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if !strings.Contains(w.Body.String(), `"items":[]`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})
}

// TestReadyz verifies readiness follows the store.
func TestReadyz(t *testing.T) {
	mem := store.NewMemory()
	h := newTestHandler(t,
		deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
		deliverytest.Succeeding(delivery.ChannelWebhook, ""),
		mem, false)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}

	mem.Err = errors.New("down")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", w.Code)
	}
}

// TestServe verifies the listener starts and stops with ctx.
func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newTestHandler(t,
		deliverytest.Succeeding(delivery.ChannelPrimary, "m-1"),
		deliverytest.Succeeding(delivery.ChannelWebhook, ""),
		store.NewMemory(), false)

	ready, err := Serve(ctx, 0, h)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server never became ready")
	}
}
