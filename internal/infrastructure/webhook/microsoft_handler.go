// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

// MicrosoftWebhookHandler implements domain.WebhookHandler for Microsoft
// Graph change notifications. Subscriptions are created with clientState
// set to "<secret>:<accountUID>", which is how a notification maps back to
// the account without a subscription lookup table.
type MicrosoftWebhookHandler struct {
	clientSecret string
	publisher    domain.WorkPublisher
}

// NewMicrosoftWebhookHandler creates a new Graph change notification handler
func NewMicrosoftWebhookHandler(clientSecret string, publisher domain.WorkPublisher) *MicrosoftWebhookHandler {
	return &MicrosoftWebhookHandler{
		clientSecret: clientSecret,
		publisher:    publisher,
	}
}

// Source implements domain.WebhookHandler
func (h *MicrosoftWebhookHandler) Source() string {
	return constants.WebhookSourceMicrosoft
}

// HandleEvent implements domain.WebhookHandler
func (h *MicrosoftWebhookHandler) HandleEvent(ctx context.Context, _ http.Header, query url.Values, body []byte) (*domain.WebhookResponse, error) {
	// Subscription handshake: Graph expects the validation token echoed
	// back as plain text within ten seconds.
	if token := query.Get("validationToken"); token != "" {
		return &domain.WebhookResponse{StatusCode: http.StatusOK, Body: token}, nil
	}

	var notification models.MicrosoftChangeNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return &domain.WebhookResponse{StatusCode: http.StatusBadRequest}, fmt.Errorf("invalid change notification: %w", err)
	}

	published := 0
	seen := make(map[string]bool)
	for _, item := range notification.Value {
		accountUID, err := h.accountFromClientState(item.ClientState)
		if err != nil {
			slog.WarnContext(ctx, "graph notification clientState rejected", logging.ErrKey, err,
				"subscription_id", item.SubscriptionID)
			continue
		}
		if seen[accountUID] {
			continue
		}
		seen[accountUID] = true

		workItem := domain.WorkItem{
			Kind:       domain.WorkSyncAccount,
			AccountUID: accountUID,
		}
		if err := h.publisher.PublishWorkItem(ctx, workItem); err != nil {
			slog.ErrorContext(ctx, "failed to publish work item for graph notification", logging.ErrKey, err)
			return &domain.WebhookResponse{StatusCode: http.StatusInternalServerError}, err
		}
		published++
	}

	slog.InfoContext(ctx, "graph change notifications accepted",
		"received", len(notification.Value), "published", published)

	// Graph expects 202 for accepted notifications.
	return &domain.WebhookResponse{StatusCode: http.StatusAccepted}, nil
}

// accountFromClientState validates the shared secret and extracts the
// account UID the subscription was created for.
func (h *MicrosoftWebhookHandler) accountFromClientState(clientState string) (string, error) {
	if h.clientSecret == "" {
		return "", fmt.Errorf("client state secret not configured")
	}

	secret, accountUID, found := strings.Cut(clientState, ":")
	if !found || accountUID == "" {
		return "", fmt.Errorf("malformed clientState")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.clientSecret)) != 1 {
		return "", fmt.Errorf("clientState secret mismatch")
	}

	return accountUID, nil
}
