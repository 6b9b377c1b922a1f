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

// Package models defines the data structures shared across the refund
// intake service.
package models

import "time"

// RefundMethod is the customer's preferred payout channel.
type RefundMethod string

const (
	RefundPayPal RefundMethod = "paypal"
	RefundVenmo  RefundMethod = "venmo"
	RefundCheck  RefundMethod = "check"
)

// Known reports whether m is one of the supported payout methods.
func (m RefundMethod) Known() bool {
	switch m {
	case RefundPayPal, RefundVenmo, RefundCheck:
		return true
	}
	return false
}

// RefundRequestForm is the raw form a visitor submits.
//
// The JSON field names are the contract with the front end and must not change.
type RefundRequestForm struct {
	FullName      string       `json:"fullName"`
	BookingNumber string       `json:"bookingNumber"`
	Email         string       `json:"email"`
	PhoneNumber   string       `json:"phoneNumber"`
	RefundReason  string       `json:"refundReason"`
	RefundMethod  RefundMethod `json:"refundMethod"`
	Signature     string       `json:"signature"`
	AgreeToTerms  bool         `json:"agreeToTerms"`
}

// PayloadMetadata carries the values channels need for routing and audit.
type PayloadMetadata struct {
	BookingNumber      string `json:"bookingNumber"`
	SubmittedAtISO8601 string `json:"submittedAtISO8601"`
}

// MessagePayload is a composed refund request ready for delivery.
// It is built once per submission and shared read-only by every channel.
type MessagePayload struct {
	Subject   string          `json:"subject"`
	HTMLBody  string          `json:"htmlBody"`
	TextBody  string          `json:"textBody"`
	Recipient string          `json:"recipient"`
	ReplyTo   string          `json:"replyTo"`
	Metadata  PayloadMetadata `json:"metadata"`

	// Structured body: the validated form and its derived display values.
	Request       RefundRequestForm `json:"request"`
	MethodDisplay string            `json:"methodDisplay"`
	SubmittedAt   time.Time         `json:"-"`
}

// PendingStatus is the lifecycle state of a persisted request.
type PendingStatus string

// StatusPendingEmail marks a request that no automated channel delivered.
const StatusPendingEmail PendingStatus = "pending_email"

// PendingRequest is a refund request persisted after every automated
// delivery channel failed. Records are only removed by an explicit clear.
type PendingRequest struct {
	ID            string        `json:"id"`
	FullName      string        `json:"fullName"`
	BookingNumber string        `json:"bookingNumber"`
	Email         string        `json:"email"`
	PhoneNumber   string        `json:"phoneNumber"`
	RefundReason  string        `json:"refundReason"`
	RefundMethod  RefundMethod  `json:"refundMethod"`
	Signature     string        `json:"signature"`
	AgreeToTerms  bool          `json:"agreeToTerms"`
	SubmittedAt   time.Time     `json:"submittedAt"`
	Status        PendingStatus `json:"status"`
	Service       string        `json:"service,omitempty"`
}

// ContactInfo is the business's direct contact, shown to the visitor when
// no automated channel confirmed delivery.
type ContactInfo struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ManualInstructions tell the visitor how to follow up by hand.
type ManualInstructions struct {
	ContactInfo
	Details *PendingRequest `json:"details,omitempty"`
}

// SubmissionEvent records the outcome of one submission for downstream
// consumers (support tooling, reporting). It never carries the form body.
type SubmissionEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Channel       string `json:"channel,omitempty"`
	BookingNumber string `json:"booking_number"`
	MessageID     string `json:"message_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Repeat        bool   `json:"repeat"`
	OccurredAt    string `json:"occurred_at"`
}
