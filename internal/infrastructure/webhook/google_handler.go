// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

// GoogleWebhookHandler implements domain.WebhookHandler for Google Calendar
// push channel notifications. Google sends an empty body; the channel ID,
// token and resource state all arrive as headers. Channels are created with
// the account UID as the channel ID, so no extra lookup is needed here.
type GoogleWebhookHandler struct {
	channelToken string
	publisher    domain.WorkPublisher
}

// NewGoogleWebhookHandler creates a new Google push notification handler
func NewGoogleWebhookHandler(channelToken string, publisher domain.WorkPublisher) *GoogleWebhookHandler {
	return &GoogleWebhookHandler{
		channelToken: channelToken,
		publisher:    publisher,
	}
}

// Source implements domain.WebhookHandler
func (h *GoogleWebhookHandler) Source() string {
	return constants.WebhookSourceGoogle
}

// HandleEvent implements domain.WebhookHandler
func (h *GoogleWebhookHandler) HandleEvent(ctx context.Context, headers http.Header, _ url.Values, _ []byte) (*domain.WebhookResponse, error) {
	if err := h.validateToken(headers.Get(constants.GoogleChannelTokenHeader)); err != nil {
		slog.WarnContext(ctx, "google channel token validation failed", logging.ErrKey, err)
		return &domain.WebhookResponse{StatusCode: http.StatusUnauthorized}, err
	}

	channelID := headers.Get(constants.GoogleChannelIDHeader)
	state := headers.Get(constants.GoogleResourceStateHeader)
	ctx = logging.AppendCtx(ctx, slog.String("channel_id", channelID))

	if channelID == "" {
		return &domain.WebhookResponse{StatusCode: http.StatusBadRequest}, fmt.Errorf("notification carries no channel ID")
	}

	// The initial "sync" message only confirms channel creation.
	if state == "sync" {
		slog.DebugContext(ctx, "google watch channel established")
		return &domain.WebhookResponse{StatusCode: http.StatusOK}, nil
	}

	item := domain.WorkItem{
		Kind:       domain.WorkSyncAccount,
		AccountUID: channelID,
	}
	if err := h.publisher.PublishWorkItem(ctx, item); err != nil {
		slog.ErrorContext(ctx, "failed to publish work item for google notification", logging.ErrKey, err)
		return &domain.WebhookResponse{StatusCode: http.StatusInternalServerError}, err
	}

	slog.InfoContext(ctx, "google channel notification accepted", "resource_state", state)
	return &domain.WebhookResponse{StatusCode: http.StatusOK}, nil
}

func (h *GoogleWebhookHandler) validateToken(token string) error {
	if h.channelToken == "" {
		return fmt.Errorf("channel token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.channelToken)) != 1 {
		return fmt.Errorf("channel token mismatch")
	}
	return nil
}
