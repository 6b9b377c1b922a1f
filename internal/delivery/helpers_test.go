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
	"time"

	"github.com/stargaze/refunddesk/internal/compose"
	"github.com/stargaze/refunddesk/internal/models"
)

var testContact = models.ContactInfo{Phone: "1-844-782-7429", Email: "info@stargazevacations.com"}

func testPayload() *models.MessagePayload {
	c := compose.New(compose.Business{
		Name:  "StarGaze Vacations",
		Inbox: testContact.Email,
		Phone: testContact.Phone,
	}, time.UTC)
	return c.Compose(models.RefundRequestForm{
		FullName:      "Jane Doe",
		BookingNumber: "SG-2024-001234",
		Email:         "jane@example.com",
		PhoneNumber:   "5551234567",
		RefundReason:  "Trip cancelled",
		RefundMethod:  models.RefundPayPal,
		Signature:     "Jane Doe",
		AgreeToTerms:  true,
	}, time.Date(2024, 3, 15, 14, 30, 5, 123e6, time.UTC))
}
