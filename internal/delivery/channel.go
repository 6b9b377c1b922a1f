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

// Package delivery implements the channels a composed refund request can
// be delivered through: the transactional email provider, the webhook
// relay and the pending-request store. Every channel exposes the same
// Deliver contract so the pipeline can walk them in order.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/stargaze/refunddesk/internal/models"
)

// ChannelName identifies a delivery channel.
type ChannelName string

const (
	ChannelPrimary ChannelName = "primary"
	ChannelWebhook ChannelName = "webhook"
	ChannelLocal   ChannelName = "local"
)

// Channel delivers a composed payload. Implementations must not mutate
// the payload and must report failure through Result rather than panicking.
type Channel interface {
	Name() ChannelName
	Deliver(ctx context.Context, p *models.MessagePayload) Result
}

// Result describes one delivery attempt.
type Result struct {
	Success   bool        `json:"success"`
	Channel   ChannelName `json:"channel"`
	MessageID string      `json:"messageId,omitempty"`
	Kind      ErrorKind   `json:"errorKind,omitempty"`
	Message   string      `json:"message,omitempty"`

	// Set by the local channel only.
	RequestID    string                     `json:"requestId,omitempty"`
	Instructions *models.ManualInstructions `json:"-"`

	Err error `json:"-"`
}

func succeeded(ch ChannelName, messageID string) Result {
	return Result{Success: true, Channel: ch, MessageID: messageID}
}

func failed(ch ChannelName, kind ErrorKind, err error) Result {
	return Result{
		Channel: ch,
		Kind:    kind,
		Message: kind.UserMessage(),
		Err:     &Error{Channel: ch, Kind: kind, Err: err},
	}
}

// ErrorKind classifies why a channel failed.
type ErrorKind string

const (
	ErrAuth    ErrorKind = "auth"
	ErrQuota   ErrorKind = "quota"
	ErrConfig  ErrorKind = "config"
	ErrNetwork ErrorKind = "network"
	ErrUnknown ErrorKind = "unknown"
	ErrStorage ErrorKind = "storage"
)

var userMessages = map[ErrorKind]string{
	ErrAuth:    "Email service authentication failed. Check API token.",
	ErrQuota:   "Email quota exceeded. Please try again later.",
	ErrConfig:  "Email configuration error. Please contact support.",
	ErrNetwork: "Network error. Please try again.",
	ErrUnknown: "Failed to send email notification.",
	ErrStorage: "Failed to save request locally.",
}

// UserMessage returns the visitor-facing text for a failure kind.
func (k ErrorKind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[ErrUnknown]
}

// Error is the failure reported by a channel.
type Error struct {
	Channel ChannelName
	Kind    ErrorKind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s channel %s error: %v", e.Channel, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the visitor-facing text for this failure.
func (e *Error) UserMessage() string { return e.Kind.UserMessage() }

// KindOf extracts the ErrorKind from err, or ErrUnknown if err is not a
// channel error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrUnknown
}
