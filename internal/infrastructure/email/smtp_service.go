// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
)

// SMTPService implements the EmailService interface using SMTP.
type SMTPService struct {
	config    SMTPConfig
	templates SummaryTemplateManager
}

// SMTPConfig holds the SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string // Optional for authenticated SMTP
	Password string // Optional for authenticated SMTP
}

// NewSMTPService creates a new SMTP email service.
func NewSMTPService(config SMTPConfig) (*SMTPService, error) {
	templates, err := NewTemplateManager()
	if err != nil {
		return nil, err
	}

	return &SMTPService{
		config:    config,
		templates: templates,
	}, nil
}

// Ensure SMTPService implements EmailService
var _ domain.EmailService = (*SMTPService)(nil)

// SendSummaryNotification sends a meeting summary email to the account owner.
func (s *SMTPService) SendSummaryNotification(ctx context.Context, notification domain.EmailSummaryNotification) error {
	ctx = logging.AppendCtx(ctx, slog.String("recipient_email", notification.RecipientEmail))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_title", notification.MeetingTitle))

	rendered, err := s.templates.RenderSummaryNotification(notification)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render summary notification templates", logging.ErrKey, err)
		return err
	}

	subject := fmt.Sprintf("Meeting summary: %s", notification.MeetingTitle)
	message := buildEmailMessage(notification.RecipientEmail, subject, rendered.HTML, rendered.Text, s.config)
	err = sendEmailMessage(notification.RecipientEmail, message, s.config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send summary notification email", logging.ErrKey, err)
		return err
	}

	slog.InfoContext(ctx, "summary notification email sent successfully")
	return nil
}
