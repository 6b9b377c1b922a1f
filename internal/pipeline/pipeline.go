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

// Package pipeline runs a refund submission end to end: validate the form,
// compose the message, then walk the delivery channels in order until one
// succeeds. Channel failures never escape the pipeline; they only move the
// submission to the next, more degraded channel.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stargaze/refunddesk/internal/compose"
	"github.com/stargaze/refunddesk/internal/dedup"
	"github.com/stargaze/refunddesk/internal/delivery"
	"github.com/stargaze/refunddesk/internal/models"
	"github.com/stargaze/refunddesk/internal/validate"
)

// DefaultChannelTimeout bounds each delivery attempt.
const DefaultChannelTimeout = 10 * time.Second

// Status is the terminal state of a submission.
type Status string

const (
	StatusInvalid     Status = "invalid"
	StatusSuccess     Status = "success"
	StatusDegraded    Status = "degraded"
	StatusLocalOnly   Status = "local_only"
	StatusHardFailure Status = "hard_failure"
)

// Banner texts shown by the presentation layer. %s is the business name.
const (
	messageInvalid  = "Please correct the highlighted fields and try again."
	messageSuccess  = "Your refund request has been sent to %s successfully!"
	messageDegraded = "Request submitted but email delivery failed. Please contact %s directly."
	messageFailure  = "Failed to submit request. Please contact %s directly."
)

// Stage pairs a channel with the status reported when it is the one that
// delivers. Stages are tried in slice order.
type Stage struct {
	Channel   delivery.Channel
	OnSuccess Status
}

// DefaultStages returns the standard ladder: primary email, webhook relay,
// local persistence.
func DefaultStages(primary, webhook, local delivery.Channel) []Stage {
	return []Stage{
		{Channel: primary, OnSuccess: StatusSuccess},
		{Channel: webhook, OnSuccess: StatusDegraded},
		{Channel: local, OnSuccess: StatusLocalOnly},
	}
}

// RepeatDetector reports whether a submission fingerprint is new.
type RepeatDetector interface {
	IsNew(ctx context.Context, fingerprint string) (bool, error)
}

// EventPublisher receives the outcome of every delivered or failed submission.
type EventPublisher interface {
	PublishSubmission(ctx context.Context, event models.SubmissionEvent) error
}

// Outcome is what the presentation layer renders after a submission.
type Outcome struct {
	Status       Status                     `json:"status"`
	Message      string                     `json:"message"`
	Channel      delivery.ChannelName       `json:"channel,omitempty"`
	MessageID    string                     `json:"messageId,omitempty"`
	RequestID    string                     `json:"requestId,omitempty"`
	Subject      string                     `json:"subject,omitempty"`
	FieldErrors  validate.FieldErrors       `json:"fieldErrors,omitempty"`
	Contact      *models.ContactInfo        `json:"contact,omitempty"`
	Instructions *models.ManualInstructions `json:"manualInstructions,omitempty"`
	Attempts     []delivery.Result          `json:"attempts,omitempty"`
	Repeat       bool                       `json:"repeat,omitempty"`
}

// Config wires a Pipeline.
type Config struct {
	Composer       *compose.Composer
	Stages         []Stage
	ChannelTimeout time.Duration
	BusinessName   string
	Contact        models.ContactInfo

	// Optional.
	Repeat RepeatDetector
	Events EventPublisher
	Now    func() time.Time
}

// Pipeline orchestrates one submission at a time per call; it holds no
// per-submission state and is safe for concurrent use.
type Pipeline struct {
	composer *compose.Composer
	stages   []Stage
	timeout  time.Duration
	business string
	contact  models.ContactInfo
	repeat   RepeatDetector
	events   EventPublisher
	now      func() time.Time
}

// New creates a pipeline from cfg.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		composer: cfg.Composer,
		stages:   cfg.Stages,
		timeout:  cfg.ChannelTimeout,
		business: cfg.BusinessName,
		contact:  cfg.Contact,
		repeat:   cfg.Repeat,
		events:   cfg.Events,
		now:      cfg.Now,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultChannelTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.business == "" {
		p.business = "StarGaze Vacations"
	}
	return p
}

// Submit validates form and, if it passes, delivers it through the first
// channel that succeeds. Each call is an independent submission.
func (p *Pipeline) Submit(ctx context.Context, form models.RefundRequestForm) Outcome {
	if errs := validate.Validate(form); !errs.Valid() {
		slog.Info("refund request rejected by validation", "fields", len(errs))
		return Outcome{
			Status:      StatusInvalid,
			Message:     messageInvalid,
			FieldErrors: errs,
		}
	}

	payload := p.composer.Compose(form, p.now())

	out := Outcome{Subject: payload.Subject}
	out.Repeat = p.checkRepeat(ctx, form)

	p.deliver(ctx, payload, &out)
	p.publish(ctx, form, out)

	return out
}

func (p *Pipeline) deliver(ctx context.Context, payload *models.MessagePayload, out *Outcome) {
	for _, stage := range p.stages {
		res := p.attempt(ctx, stage.Channel, payload)
		out.Attempts = append(out.Attempts, res)

		if res.Success {
			out.Status = stage.OnSuccess
			out.Channel = res.Channel
			out.MessageID = res.MessageID
			out.RequestID = res.RequestID
			out.Instructions = res.Instructions
			switch stage.OnSuccess {
			case StatusSuccess:
				out.Message = fmt.Sprintf(messageSuccess, p.business)
			default:
				out.Message = fmt.Sprintf(messageDegraded, p.business)
				out.Contact = p.contactInfo()
			}
			slog.Info("refund request delivered",
				"booking_number", payload.Metadata.BookingNumber,
				"channel", res.Channel,
				"status", out.Status,
			)
			return
		}

		slog.Warn("delivery channel failed",
			"channel", res.Channel,
			"booking_number", payload.Metadata.BookingNumber,
			"error_kind", res.Kind,
			"error", res.Err,
		)
	}

	slog.Error("refund request could not be delivered or stored",
		"booking_number", payload.Metadata.BookingNumber,
		"attempts", len(out.Attempts),
	)
	out.Status = StatusHardFailure
	out.Message = fmt.Sprintf(messageFailure, p.business)
	out.Contact = p.contactInfo()
}

// attempt runs one channel under the per-channel timeout.
func (p *Pipeline) attempt(ctx context.Context, ch delivery.Channel, payload *models.MessagePayload) delivery.Result {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res := ch.Deliver(actx, payload)
	if res.Channel == "" {
		res.Channel = ch.Name()
	}
	if !res.Success && res.Kind == "" {
		res.Kind = delivery.KindOf(res.Err)
	}
	if !res.Success && res.Message == "" {
		res.Message = res.Kind.UserMessage()
	}
	return res
}

func (p *Pipeline) contactInfo() *models.ContactInfo {
	c := p.contact
	return &c
}

func (p *Pipeline) checkRepeat(ctx context.Context, form models.RefundRequestForm) bool {
	if p.repeat == nil {
		return false
	}
	isNew, err := p.repeat.IsNew(ctx, dedup.Fingerprint(form))
	if err != nil {
		slog.Warn("repeat check failed, proceeding", "error", err)
		return false
	}
	if !isNew {
		slog.Warn("repeat refund submission",
			"booking_number", form.BookingNumber,
		)
	}
	return !isNew
}

func (p *Pipeline) publish(ctx context.Context, form models.RefundRequestForm, out Outcome) {
	if p.events == nil {
		return
	}
	event := models.SubmissionEvent{
		Status:        string(out.Status),
		Channel:       string(out.Channel),
		BookingNumber: form.BookingNumber,
		MessageID:     out.MessageID,
		RequestID:     out.RequestID,
		Repeat:        out.Repeat,
	}
	if err := p.events.PublishSubmission(ctx, event); err != nil {
		slog.Error("publish submission event failed",
			"booking_number", form.BookingNumber,
			"error", err,
		)
	}
}
