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

// Package compose renders a validated refund request into the message
// payload handed to the delivery channels. Composition is pure: the same
// form and timestamp always produce byte-identical bodies.
package compose

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/stargaze/refunddesk/internal/models"
)

const (
	// DisplayLayout is the long, human-readable submission timestamp.
	DisplayLayout = "Monday, January 2, 2006 at 03:04 PM MST"

	// isoLayout is RFC 3339 in UTC with exactly three fractional digits.
	isoLayout = "2006-01-02T15:04:05.000Z"

	subjectPrefix = "Refund Request - "
)

var methodDisplay = map[models.RefundMethod]string{
	models.RefundPayPal: "PayPal (3-5 business days)",
	models.RefundVenmo:  "Venmo (3-5 business days)",
	models.RefundCheck:  "Company Check (10-15 business days)",
}

// Business identifies the inbox the request is delivered to and the
// contact details printed in the message footer.
type Business struct {
	Name  string
	Inbox string
	Phone string
}

// Composer builds message payloads for a single business.
type Composer struct {
	business Business
	loc      *time.Location
}

// New creates a Composer. Timestamps are rendered in loc; a nil loc means UTC.
func New(business Business, loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{business: business, loc: loc}
}

// MethodDisplay expands a refund method to its label and processing window.
// Unknown values pass through with the first letter upper-cased.
func MethodDisplay(m models.RefundMethod) string {
	if s, ok := methodDisplay[m]; ok {
		return s
	}
	r, size := utf8.DecodeRuneInString(string(m))
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + string(m)[size:]
}

// Subject returns the deterministic subject line for a booking.
func Subject(bookingNumber string) string {
	return subjectPrefix + bookingNumber
}

// view is the single source both bodies are rendered from.
type view struct {
	Form          models.RefundRequestForm
	MethodDisplay string
	SubmittedAt   string
	Business      Business
	PhoneDigits   string
}

// Compose renders form into a payload stamped with submittedAt. The same
// instant feeds the HTML body, the text body and the ISO-8601 metadata.
func (c *Composer) Compose(form models.RefundRequestForm, submittedAt time.Time) *models.MessagePayload {
	local := submittedAt.In(c.loc)
	v := view{
		Form:          form,
		MethodDisplay: MethodDisplay(form.RefundMethod),
		SubmittedAt:   local.Format(DisplayLayout),
		Business:      c.business,
		PhoneDigits:   digitsOnly(c.business.Phone),
	}

	return &models.MessagePayload{
		Subject:   Subject(form.BookingNumber),
		HTMLBody:  renderHTML(v),
		TextBody:  renderText(v),
		Recipient: c.business.Inbox,
		ReplyTo:   form.Email,
		Metadata: models.PayloadMetadata{
			BookingNumber:      form.BookingNumber,
			SubmittedAtISO8601: submittedAt.UTC().Format(isoLayout),
		},
		Request:       form,
		MethodDisplay: v.MethodDisplay,
		SubmittedAt:   submittedAt,
	}
}

// executor is satisfied by both html/template and text/template.
type executor interface {
	Execute(w io.Writer, data any) error
}

// render executes t with v. The templates are static, so an execution
// error is a programming error and panics.
func render(t executor, v view) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		panic(fmt.Sprintf("compose: render template: %v", err))
	}
	return buf.String()
}

func renderHTML(v view) string { return render(htmlTmpl, v) }

func renderText(v view) string { return render(textTmpl, v) }

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("refund.html").Option("missingkey=error").Parse(htmlBody))

var textTmpl = texttemplate.Must(texttemplate.New("refund.txt").Option("missingkey=error").Parse(textBody))
