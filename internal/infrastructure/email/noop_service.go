// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"log/slog"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// NoOpService is a no-operation email service that logs but doesn't send emails.
type NoOpService struct{}

// NewNoOpService creates a new no-op email service.
func NewNoOpService() *NoOpService {
	return &NoOpService{}
}

// SendSummaryNotification logs the notification but doesn't send an email.
func (s *NoOpService) SendSummaryNotification(ctx context.Context, notification domain.EmailSummaryNotification) error {
	ctx = logging.AppendCtx(ctx, slog.String("recipient_email", notification.RecipientEmail))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_title", notification.MeetingTitle))

	slog.DebugContext(ctx, "email service disabled, skipping summary notification email")
	return nil
}
