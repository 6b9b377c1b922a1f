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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/stargaze/refunddesk/internal/models"
)

// SMTPConfig configures the SMTP variant of the primary channel.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	TLSPolicy string // "mandatory" (default), "opportunistic" or "none"
	Timeout   time.Duration
}

// SMTP is a primary channel that relays the message through an SMTP
// server instead of the HTTP provider API.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates the SMTP primary channel.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Name() ChannelName { return ChannelPrimary }

// Deliver sends p as a multipart text/HTML message.
func (s *SMTP) Deliver(ctx context.Context, p *models.MessagePayload) Result {
	msg, err := s.buildMessage(p)
	if err != nil {
		return failed(ChannelPrimary, ErrConfig, err)
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return failed(ChannelPrimary, ErrConfig, fmt.Errorf("smtp client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return failed(ChannelPrimary, classifySMTP(err), fmt.Errorf("smtp send: %w", err))
	}

	messageID := "N/A"
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 && ids[0] != "" {
		messageID = strings.Trim(ids[0], "<>")
	}

	slog.Info("refund request sent via smtp",
		"booking_number", p.Metadata.BookingNumber,
		"message_id", messageID,
		"host", s.cfg.Host,
	)

	return succeeded(ChannelPrimary, messageID)
}

func (s *SMTP) buildMessage(p *models.MessagePayload) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(p.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if err := msg.ReplyTo(p.ReplyTo); err != nil {
		return nil, fmt.Errorf("invalid reply-to: %w", err)
	}
	msg.Subject(p.Subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, p.TextBody)
	msg.AddAlternativeString(mail.TypeTextHTML, p.HTMLBody)
	return msg, nil
}

func (s *SMTP) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	switch strings.ToLower(s.cfg.TLSPolicy) {
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}

	return opts
}

// classifySMTP maps an SMTP failure to a kind using the reply code when
// one is available.
func classifySMTP(err error) ErrorKind {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return smtpCodeKind(tpErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork
	}

	m := strings.ToLower(err.Error())
	for _, code := range []int{535, 534, 530, 454, 452, 451, 450, 421, 550, 553} {
		if strings.Contains(m, fmt.Sprintf("%d ", code)) {
			return smtpCodeKind(code)
		}
	}
	if strings.Contains(m, "auth") {
		return ErrAuth
	}
	if strings.Contains(m, "dial") || strings.Contains(m, "connection") {
		return ErrNetwork
	}
	return ErrUnknown
}

func smtpCodeKind(code int) ErrorKind {
	switch code {
	case 530, 534, 535:
		return ErrAuth
	case 421, 450, 451, 452, 454:
		return ErrQuota
	case 550, 553:
		return ErrConfig
	}
	return ErrUnknown
}
