// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"
)

// EmailSummaryNotification is the rendered-input for one summary email.
type EmailSummaryNotification struct {
	RecipientEmail string
	RecipientName  string
	MeetingTitle   string
	MeetingDate    time.Time
	Timezone       string
	Attendees      []EmailAttendee
	Overview       string
	ActionItems    []string
	Sections       []EmailSummarySection
}

// EmailAttendee is one participant line in the summary email.
type EmailAttendee struct {
	Name  string
	Email string
}

// EmailSummarySection mirrors one summary section into the email body.
type EmailSummarySection struct {
	Title string
	Body  string
}

// EmailService is the outbound mail capability. Implementations attempt the
// send; they make no delivery guarantee beyond the SMTP handoff. The
// dispatcher is responsible for idempotency via the processing ledger.
type EmailService interface {
	SendSummaryNotification(ctx context.Context, notification EmailSummaryNotification) error
}
