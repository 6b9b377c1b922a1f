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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stargaze/refunddesk/internal/models"
)

// DefaultAcumbamailURL is the provider's API base.
const DefaultAcumbamailURL = "https://acumbamail.com/api/1"

// AcumbamailConfig holds provider credentials and sender identity.
type AcumbamailConfig struct {
	BaseURL       string
	Token         string
	FromEmail     string
	FromName      string
	RecipientName string
	ListID        string // optional; enrolls the customer after a successful send
	TrackOpens    bool
	TrackClicks   bool
}

// Acumbamail is the primary channel: it sends the composed message through
// the Acumbamail transactional API.
type Acumbamail struct {
	cfg        AcumbamailConfig
	httpClient *http.Client
}

// NewAcumbamail creates the primary email channel.
func NewAcumbamail(cfg AcumbamailConfig, httpClient *http.Client) *Acumbamail {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAcumbamailURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Acumbamail{cfg: cfg, httpClient: httpClient}
}

func (a *Acumbamail) Name() ChannelName { return ChannelPrimary }

type sendMailRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendMailRequest struct {
	AuthToken   string              `json:"auth_token"`
	Template    string              `json:"template"`
	From        string              `json:"from"`
	FromName    string              `json:"from_name"`
	To          []sendMailRecipient `json:"to"`
	ReplyTo     string              `json:"reply_to"`
	Subject     string              `json:"subject"`
	HTMLBody    string              `json:"html_body"`
	TextBody    string              `json:"text_body"`
	TrackOpens  bool                `json:"track_opens"`
	TrackClicks bool                `json:"track_clicks"`
}

// apiResponse is the provider's reply. "response" is "OK" on success.
type apiResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Deliver sends p to the business inbox with reply-to set to the customer.
func (a *Acumbamail) Deliver(ctx context.Context, p *models.MessagePayload) Result {
	if a.cfg.Token == "" {
		return failed(ChannelPrimary, ErrConfig, fmt.Errorf("acumbamail auth_token not configured"))
	}

	req := sendMailRequest{
		AuthToken:   a.cfg.Token,
		Template:    "custom",
		From:        a.cfg.FromEmail,
		FromName:    a.cfg.FromName,
		To:          []sendMailRecipient{{Email: p.Recipient, Name: a.cfg.RecipientName}},
		ReplyTo:     p.ReplyTo,
		Subject:     p.Subject,
		HTMLBody:    p.HTMLBody,
		TextBody:    p.TextBody,
		TrackOpens:  a.cfg.TrackOpens,
		TrackClicks: a.cfg.TrackClicks,
	}

	status, resp, err := a.post(ctx, "/sendMail/", req)
	if err != nil {
		return failed(ChannelPrimary, ErrNetwork, err)
	}

	if status < 200 || status > 299 || resp.Response != "OK" {
		msg := resp.Error
		if msg == "" {
			msg = "acumbamail API error"
		}
		return failed(ChannelPrimary, classifyProvider(status, msg),
			fmt.Errorf("acumbamail sendMail HTTP %d: %s", status, msg))
	}

	messageID := resp.MessageID
	if messageID == "" {
		messageID = "N/A"
	}

	slog.Info("refund request sent via acumbamail",
		"booking_number", p.Metadata.BookingNumber,
		"message_id", messageID,
	)

	if a.cfg.ListID != "" {
		if err := a.AddSubscriber(ctx, p.Request); err != nil {
			slog.Warn("failed to add customer to acumbamail list",
				"list_id", a.cfg.ListID,
				"error", err,
			)
		}
	}

	return succeeded(ChannelPrimary, messageID)
}

type addSubscriberRequest struct {
	AuthToken   string            `json:"auth_token"`
	ListID      string            `json:"list_id"`
	MergeFields map[string]string `json:"merge_fields"`
	DoubleOptin bool              `json:"double_optin"`
	Tags        []string          `json:"tags"`
}

// AddSubscriber enrolls the customer in the configured list for follow-up
// communication. Service requests skip double opt-in.
func (a *Acumbamail) AddSubscriber(ctx context.Context, form models.RefundRequestForm) error {
	first, last, _ := strings.Cut(strings.TrimSpace(form.FullName), " ")

	req := addSubscriberRequest{
		AuthToken: a.cfg.Token,
		ListID:    a.cfg.ListID,
		MergeFields: map[string]string{
			"EMAIL":   form.Email,
			"FNAME":   first,
			"LNAME":   strings.TrimSpace(last),
			"PHONE":   form.PhoneNumber,
			"BOOKING": form.BookingNumber,
		},
		Tags: []string{"refund-request", "customer-service"},
	}

	status, resp, err := a.post(ctx, "/addSubscriber/", req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("acumbamail addSubscriber HTTP %d: %s", status, resp.Error)
	}
	return nil
}

// post sends body as JSON and decodes the provider reply. A non-nil error
// means the request never produced a readable HTTP response.
func (a *Acumbamail) post(ctx context.Context, path string, body any) (int, apiResponse, error) {
	var out apiResponse

	data, err := json.Marshal(body)
	if err != nil {
		return 0, out, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, out, fmt.Errorf("acumbamail %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, out, fmt.Errorf("read acumbamail response: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil && out.Error == "" {
		out.Error = strings.TrimSpace(string(raw))
	}

	return resp.StatusCode, out, nil
}

// classifyProvider maps a provider rejection to a failure kind using the
// HTTP status first and the error text second.
func classifyProvider(status int, msg string) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrQuota
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		if kind := classifyText(msg); kind != ErrUnknown {
			return kind
		}
		return ErrConfig
	}
	return classifyText(msg)
}

func classifyText(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "auth_token"), strings.Contains(m, "unauthori"), strings.Contains(m, "invalid token"):
		return ErrAuth
	case strings.Contains(m, "quota"), strings.Contains(m, "rate limit"), strings.Contains(m, "limit exceeded"):
		return ErrQuota
	case strings.Contains(m, "template"), strings.Contains(m, "config"):
		return ErrConfig
	case strings.Contains(m, "network"):
		return ErrNetwork
	}
	return ErrUnknown
}
