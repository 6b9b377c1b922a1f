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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/stargaze/refunddesk/internal/models"
)

// WebhookConfig configures the relay fallback.
type WebhookConfig struct {
	URL      string
	Service  string // primary provider name, echoed for the relay's routing
	Priority string
}

// Webhook is the first fallback channel: it posts a normalized JSON
// envelope to a relay (Zapier, Make or a custom endpoint).
type Webhook struct {
	cfg        WebhookConfig
	httpClient *http.Client
}

// NewWebhook creates the relay channel. httpClient may carry OAuth2
// credentials for relays that require them.
func NewWebhook(cfg WebhookConfig, httpClient *http.Client) *Webhook {
	if cfg.Priority == "" {
		cfg.Priority = "high"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Webhook{cfg: cfg, httpClient: httpClient}
}

func (w *Webhook) Name() ChannelName { return ChannelWebhook }

// Envelope is the relay body. The schema is fixed; relays map on these keys.
type Envelope struct {
	Type         string               `json:"type"`
	Timestamp    string               `json:"timestamp"`
	Service      string               `json:"service,omitempty"`
	Customer     EnvelopeCustomer     `json:"customer"`
	Refund       EnvelopeRefund       `json:"refund"`
	Notification EnvelopeNotification `json:"notification"`
}

type EnvelopeCustomer struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	BookingNumber string `json:"bookingNumber"`
}

type EnvelopeRefund struct {
	Method    models.RefundMethod `json:"method"`
	Reason    string              `json:"reason"`
	Signature string              `json:"signature"`
}

type EnvelopeNotification struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
}

// NewEnvelope builds the relay body for p.
func (w *Webhook) NewEnvelope(p *models.MessagePayload) Envelope {
	f := p.Request
	return Envelope{
		Type:      "refund_request",
		Timestamp: p.Metadata.SubmittedAtISO8601,
		Service:   w.cfg.Service,
		Customer: EnvelopeCustomer{
			Name:          f.FullName,
			Email:         f.Email,
			Phone:         f.PhoneNumber,
			BookingNumber: f.BookingNumber,
		},
		Refund: EnvelopeRefund{
			Method:    f.RefundMethod,
			Reason:    f.RefundReason,
			Signature: f.Signature,
		},
		Notification: EnvelopeNotification{
			To:       p.Recipient,
			Subject:  p.Subject,
			Priority: w.cfg.Priority,
		},
	}
}

// Deliver posts the envelope. Any 2xx is success; the body is not parsed.
func (w *Webhook) Deliver(ctx context.Context, p *models.MessagePayload) Result {
	if w.cfg.URL == "" {
		return failed(ChannelWebhook, ErrConfig, fmt.Errorf("webhook URL not configured"))
	}

	data, err := json.Marshal(w.NewEnvelope(p))
	if err != nil {
		return failed(ChannelWebhook, ErrUnknown, fmt.Errorf("marshal envelope: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return failed(ChannelWebhook, ErrConfig, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// The token endpoint rejected the relay's client credentials.
		var tokenErr *oauth2.RetrieveError
		if errors.As(err, &tokenErr) {
			return failed(ChannelWebhook, ErrAuth, fmt.Errorf("webhook oauth2 token: %w", err))
		}
		return failed(ChannelWebhook, ErrNetwork, fmt.Errorf("post webhook: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrUnknown
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = ErrAuth
		case http.StatusTooManyRequests:
			kind = ErrQuota
		}
		return failed(ChannelWebhook, kind, fmt.Errorf("webhook failed with status: %d", resp.StatusCode))
	}

	slog.Info("refund request sent via webhook",
		"booking_number", p.Metadata.BookingNumber,
		"status", resp.StatusCode,
	)

	return succeeded(ChannelWebhook, "")
}
