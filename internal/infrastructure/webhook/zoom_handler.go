// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	zoomwebhook "github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/webhook"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

// ZoomWebhookHandler implements domain.WebhookHandler for Zoom webhook
// events. Mutations to the mirror never happen here; the handler validates
// the delivery and fans a work item into the shared dispatch queue.
type ZoomWebhookHandler struct {
	validator   *zoomwebhook.ZoomWebhookValidator
	accountRepo domain.AccountRepository
	publisher   domain.WorkPublisher
}

// NewZoomWebhookHandler creates a new Zoom webhook handler
func NewZoomWebhookHandler(secretToken string, accountRepo domain.AccountRepository, publisher domain.WorkPublisher) *ZoomWebhookHandler {
	return &ZoomWebhookHandler{
		validator:   zoomwebhook.NewZoomWebhookValidator(secretToken),
		accountRepo: accountRepo,
		publisher:   publisher,
	}
}

// Source implements domain.WebhookHandler
func (h *ZoomWebhookHandler) Source() string {
	return constants.WebhookSourceZoom
}

// HandleEvent implements domain.WebhookHandler
func (h *ZoomWebhookHandler) HandleEvent(ctx context.Context, headers http.Header, _ url.Values, body []byte) (*domain.WebhookResponse, error) {
	signature := headers.Get(constants.ZoomSignatureHeader)
	timestamp := headers.Get(constants.ZoomTimestampHeader)
	if err := h.validator.ValidateSignature(body, signature, timestamp); err != nil {
		slog.WarnContext(ctx, "zoom webhook signature validation failed", logging.ErrKey, err)
		return &domain.WebhookResponse{StatusCode: http.StatusUnauthorized}, err
	}

	var event models.ZoomWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return &domain.WebhookResponse{StatusCode: http.StatusBadRequest}, fmt.Errorf("invalid webhook payload: %w", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_type", event.Event))

	// Endpoint ownership challenge: echo back the hashed plain token.
	if event.Event == "endpoint.url_validation" {
		return &domain.WebhookResponse{
			StatusCode: http.StatusOK,
			Body: models.ZoomURLValidationResponse{
				PlainToken:     event.Payload.PlainText,
				EncryptedToken: h.validator.HashValidationToken(event.Payload.PlainText),
			},
		}, nil
	}

	if !h.validator.IsValidEvent(event.Event) {
		// Acknowledge events we don't care about so Zoom stops retrying.
		slog.DebugContext(ctx, "ignoring unsupported zoom webhook event")
		return &domain.WebhookResponse{StatusCode: http.StatusOK}, nil
	}

	account, err := h.resolveAccount(ctx, event.Payload.Object.HostEmail)
	if err != nil {
		slog.WarnContext(ctx, "zoom webhook for unknown account", logging.ErrKey, err,
			"host_email", event.Payload.Object.HostEmail)
		// Still acknowledged: a retry will not make the account appear.
		return &domain.WebhookResponse{StatusCode: http.StatusOK}, nil
	}

	item := h.workItemForEvent(event, account)
	if err := h.publisher.PublishWorkItem(ctx, item); err != nil {
		slog.ErrorContext(ctx, "failed to publish work item for zoom webhook", logging.ErrKey, err)
		return &domain.WebhookResponse{StatusCode: http.StatusInternalServerError}, err
	}

	slog.InfoContext(ctx, "zoom webhook event accepted", "work_kind", string(item.Kind))
	return &domain.WebhookResponse{StatusCode: http.StatusOK}, nil
}

// workItemForEvent maps a Zoom event to the work item the scheduler should
// run. Calendar-shaped events trigger a sync; lifecycle events advance the
// meeting's processing record directly.
func (h *ZoomWebhookHandler) workItemForEvent(event models.ZoomWebhookEvent, account *models.Account) domain.WorkItem {
	switch event.Event {
	case "meeting.ended", "recording.completed", "recording.transcript_completed":
		return domain.WorkItem{
			Kind:       domain.WorkAdvanceMeeting,
			AccountUID: account.UID,
			MeetingRef: models.NewMeetingRef(account.UID, event.Payload.Object.ID),
		}
	default:
		return domain.WorkItem{
			Kind:       domain.WorkSyncAccount,
			AccountUID: account.UID,
		}
	}
}

// resolveAccount finds the Zoom account whose owner hosts the meeting the
// event refers to.
func (h *ZoomWebhookHandler) resolveAccount(ctx context.Context, hostEmail string) (*models.Account, error) {
	if hostEmail == "" {
		return nil, fmt.Errorf("event carries no host email")
	}

	accounts, err := h.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if account.Provider == models.ProviderZoom && account.OwnerEmail == hostEmail {
			return account, nil
		}
	}

	return nil, fmt.Errorf("no zoom account for host %s", hostEmail)
}
