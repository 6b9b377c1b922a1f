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

package compose

const htmlBody = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Refund Request - {{.Form.BookingNumber}}</title>
</head>
<body style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; background-color: #f8f9fa;">
<div style="background: #667eea; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
<h1 style="margin: 0; font-size: 28px;">{{.Business.Name}}</h1>
<p style="margin: 10px 0 0 0;">New Refund Request Received</p>
</div>
<div style="background: white; padding: 30px; border-radius: 0 0 10px 10px;">
<div style="background: #fff3cd; border: 1px solid #ffeaa7; padding: 15px; border-radius: 8px; margin: 20px 0;">
<strong style="color: #856404;">Action Required:</strong> A new refund request has been submitted and requires your attention.
</div>
<div style="margin: 25px 0; padding: 20px; border-radius: 8px; border-left: 4px solid #667eea; background-color: #f8f9ff;">
<h3 style="color: #667eea; margin-top: 0;">Customer Information</h3>
<table style="width: 100%; border-collapse: collapse;">
<tr><td style="font-weight: bold; width: 35%;">Full Name:</td><td><strong>{{.Form.FullName}}</strong></td></tr>
<tr><td style="font-weight: bold;">Booking Number:</td><td><code>{{.Form.BookingNumber}}</code></td></tr>
<tr><td style="font-weight: bold;">Email Address:</td><td><a href="mailto:{{.Form.Email}}">{{.Form.Email}}</a></td></tr>
<tr><td style="font-weight: bold;">Phone Number:</td><td><a href="tel:{{.Form.PhoneNumber}}">{{.Form.PhoneNumber}}</a></td></tr>
<tr><td style="font-weight: bold;">Preferred Method:</td><td><span style="background: #667eea; color: white; padding: 6px 12px; border-radius: 20px;">{{.MethodDisplay}}</span></td></tr>
</table>
</div>
<div style="margin: 25px 0; padding: 20px; border-radius: 8px; border-left: 4px solid #ffa726; background-color: #fff8f0;">
<h3 style="color: #ff8f00; margin-top: 0;">Refund Reason</h3>
<p style="margin: 0;">{{.Form.RefundReason}}</p>
</div>
<div style="margin: 25px 0; padding: 20px; border-radius: 8px; border-left: 4px solid #42a5f5; background-color: #f0f8ff;">
<h3 style="color: #1976d2; margin-top: 0;">Digital Signature</h3>
<div style="font-family: 'Brush Script MT', cursive, sans-serif; font-size: 24px; font-style: italic; color: #667eea;">{{.Form.Signature}}</div>
<p style="color: #666; font-size: 14px;"><strong>Submitted:</strong> {{.SubmittedAt}}</p>
</div>
<div style="background: #e8f5e8; padding: 20px; border-radius: 8px; text-align: center;">
<h4 style="color: #2e7d32; margin-top: 0;">Next Steps</h4>
<p style="color: #388e3c; margin-bottom: 0;">This refund request should be processed within 1-2 business days. The customer will receive email updates throughout the process.</p>
</div>
</div>
<div style="background: #667eea; color: white; padding: 20px; text-align: center; margin-top: 20px; border-radius: 10px;">
<h4 style="margin: 0 0 10px 0;">{{.Business.Name}} Customer Service</h4>
<p style="font-size: 14px;"><a style="color: white;" href="tel:{{.PhoneDigits}}">{{.Business.Phone}}</a> | <a style="color: white;" href="mailto:{{.Business.Inbox}}">{{.Business.Inbox}}</a></p>
</div>
</body>
</html>
`

const textBody = `{{.Business.Name}} - NEW REFUND REQUEST
=======================================

ACTION REQUIRED: A new refund request has been submitted.

CUSTOMER INFORMATION:
--------------------
Name: {{.Form.FullName}}
Booking Number: {{.Form.BookingNumber}}
Email: {{.Form.Email}}
Phone: {{.Form.PhoneNumber}}
Preferred Method: {{.MethodDisplay}}

REFUND REASON:
--------------
{{.Form.RefundReason}}

DIGITAL SIGNATURE:
------------------
{{.Form.Signature}}

SUBMISSION DETAILS:
-------------------
Submitted: {{.SubmittedAt}}
Via: {{.Business.Name}} Refund System

NEXT STEPS:
-----------
This refund request should be processed within 1-2 business days.
The customer will receive email updates throughout the process.

CONTACT INFORMATION:
--------------------
Phone: {{.Business.Phone}}
Email: {{.Business.Inbox}}
`
