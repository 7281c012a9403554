// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// NotificationService renders and sends the summary email for a meeting.
// Delivery idempotency lives with the caller: the orchestrator claims the
// notified stage in the processing ledger before invoking the send.
type NotificationService struct {
	EmailService domain.EmailService
}

// NewNotificationService creates a new summary notification service.
func NewNotificationService(emailService domain.EmailService) *NotificationService {
	return &NotificationService{
		EmailService: emailService,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *NotificationService) ServiceReady() bool {
	return s.EmailService != nil
}

// Notify sends the summary email to the account owner. The ref is the
// pipeline reference, which carries the occurrence segment for recurring
// meetings.
func (s *NotificationService) Notify(ctx context.Context, ref models.MeetingRef, account *models.Account, event *models.CalendarEvent, summary *models.MeetingSummary) error {
	if !s.ServiceReady() {
		return domain.NewUnavailableError("notification service not initialized")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_ref", ref.String()))

	notification := domain.EmailSummaryNotification{
		RecipientEmail: account.OwnerEmail,
		RecipientName:  account.OwnerName,
		MeetingTitle:   event.Title,
		MeetingDate:    event.StartTime,
		Timezone:       event.Timezone,
		Overview:       summary.Content.Overview,
		ActionItems:    summary.Content.ActionItems,
	}
	for _, attendee := range event.Attendees {
		notification.Attendees = append(notification.Attendees, domain.EmailAttendee{
			Name:  attendee.Name,
			Email: attendee.Email,
		})
	}
	for _, section := range summary.Content.Sections {
		notification.Sections = append(notification.Sections, domain.EmailSummarySection{
			Title: section.Title,
			Body:  section.Body,
		})
	}

	if err := s.EmailService.SendSummaryNotification(ctx, notification); err != nil {
		return err
	}

	slog.InfoContext(ctx, "summary notification sent", "recipient", account.OwnerEmail)
	return nil
}
