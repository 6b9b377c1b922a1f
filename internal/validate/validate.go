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

// Package validate checks a refund request form before anything leaves
// the intake service.
package validate

import (
	"regexp"
	"strings"

	"github.com/stargaze/refunddesk/internal/models"
)

// Field names as they appear in FieldErrors. They match the form's JSON keys.
const (
	FieldFullName      = "fullName"
	FieldBookingNumber = "bookingNumber"
	FieldEmail         = "email"
	FieldPhoneNumber   = "phoneNumber"
	FieldRefundReason  = "refundReason"
	FieldRefundMethod  = "refundMethod"
	FieldSignature     = "signature"
	FieldAgreeToTerms  = "agreeToTerms"
)

// emailShape is a coarse shape check, not RFC 5322. Unicode spaces such
// as U+00A0 count as whitespace.
var emailShape = regexp.MustCompile(`[^\s\p{Z}]+@[^\s\p{Z}]+\.[^\s\p{Z}]+`)

// FieldErrors maps a field name to a human-readable error.
// A missing key or an empty message means the field is valid.
type FieldErrors map[string]string

// Valid reports whether no field carries an error.
func (e FieldErrors) Valid() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

// Clear drops the error for a single field, typically once the visitor
// edits it.
func (e FieldErrors) Clear(field string) {
	delete(e, field)
}

// Validate checks every field of the form and returns all errors found.
// It never short-circuits; an empty map means the form may be submitted.
func Validate(form models.RefundRequestForm) FieldErrors {
	errs := FieldErrors{}

	required := []struct {
		field, value, msg string
	}{
		{FieldFullName, form.FullName, "Full name is required"},
		{FieldBookingNumber, form.BookingNumber, "Booking number is required"},
		{FieldPhoneNumber, form.PhoneNumber, "Phone number is required"},
		{FieldRefundReason, form.RefundReason, "Refund reason is required"},
		{FieldSignature, form.Signature, "Digital signature is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.msg
		}
	}

	switch {
	case strings.TrimSpace(form.Email) == "":
		errs[FieldEmail] = "Email is required"
	case !emailShape.MatchString(form.Email):
		errs[FieldEmail] = "Email is invalid"
	}

	if !form.RefundMethod.Known() {
		errs[FieldRefundMethod] = "Please select a refund method"
	}

	if !form.AgreeToTerms {
		errs[FieldAgreeToTerms] = "You must agree to the terms and conditions"
	}

	return errs
}
