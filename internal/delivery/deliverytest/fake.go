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

// Package deliverytest provides a scripted delivery channel for tests.
package deliverytest

import (
	"context"
	"errors"
	"sync"

	"github.com/stargaze/refunddesk/internal/delivery"
	"github.com/stargaze/refunddesk/internal/models"
)

var errScripted = errors.New("scripted failure")

// Channel is a delivery.Channel whose outcome is fixed in advance.
type Channel struct {
	ChannelName delivery.ChannelName
	Fail        bool
	Kind        delivery.ErrorKind
	MessageID   string

	// Block, when set, makes Deliver wait for ctx to finish before failing.
	Block bool

	mu       sync.Mutex
	calls    int
	payloads []*models.MessagePayload
}

// Succeeding returns a channel that always succeeds with messageID.
func Succeeding(name delivery.ChannelName, messageID string) *Channel {
	return &Channel{ChannelName: name, MessageID: messageID}
}

// Failing returns a channel that always fails with kind.
func Failing(name delivery.ChannelName, kind delivery.ErrorKind) *Channel {
	return &Channel{ChannelName: name, Fail: true, Kind: kind}
}

func (c *Channel) Name() delivery.ChannelName { return c.ChannelName }

func (c *Channel) Deliver(ctx context.Context, p *models.MessagePayload) delivery.Result {
	c.mu.Lock()
	c.calls++
	c.payloads = append(c.payloads, p)
	c.mu.Unlock()

	if c.Block {
		<-ctx.Done()
		return delivery.Result{
			Channel: c.ChannelName,
			Kind:    delivery.ErrNetwork,
			Message: delivery.ErrNetwork.UserMessage(),
			Err:     &delivery.Error{Channel: c.ChannelName, Kind: delivery.ErrNetwork, Err: ctx.Err()},
		}
	}

	if c.Fail {
		kind := c.Kind
		if kind == "" {
			kind = delivery.ErrUnknown
		}
		return delivery.Result{
			Channel: c.ChannelName,
			Kind:    kind,
			Message: kind.UserMessage(),
			Err:     &delivery.Error{Channel: c.ChannelName, Kind: kind, Err: errScripted},
		}
	}

	return delivery.Result{Success: true, Channel: c.ChannelName, MessageID: c.MessageID}
}

// Calls returns how many times Deliver ran.
func (c *Channel) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Payloads returns the payloads Deliver received, in order.
func (c *Channel) Payloads() []*models.MessagePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.MessagePayload(nil), c.payloads...)
}
