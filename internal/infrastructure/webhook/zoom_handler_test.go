// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/messaging"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/store"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

const zoomTestSecret = "test-secret-token"

func signZoomBody(t *testing.T, body []byte, timestamp string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(zoomTestSecret))
	mac.Write([]byte(fmt.Sprintf("v0:%s:%s", timestamp, body)))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func zoomHeaders(t *testing.T, body []byte) http.Header {
	t.Helper()
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	headers := http.Header{}
	headers.Set(constants.ZoomTimestampHeader, timestamp)
	headers.Set(constants.ZoomSignatureHeader, signZoomBody(t, body, timestamp))
	return headers
}

func newZoomHandlerForTest(t *testing.T) (*ZoomWebhookHandler, *messaging.MockWorkPublisher) {
	t.Helper()
	accountRepo := store.NewNatsAccountRepository(store.NewMockNatsKeyValue())
	account := &models.Account{
		UID:        "acct-zoom-1",
		Provider:   models.ProviderZoom,
		OwnerEmail: "host@example.com",
		SyncStatus: models.SyncStatusActive,
	}
	require.NoError(t, accountRepo.Create(context.Background(), account))

	publisher := &messaging.MockWorkPublisher{}
	return NewZoomWebhookHandler(zoomTestSecret, accountRepo, publisher), publisher
}

func TestZoomWebhookHandlerURLValidation(t *testing.T) {
	handler, _ := newZoomHandlerForTest(t)

	body := []byte(`{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`)
	resp, err := handler.HandleEvent(context.Background(), zoomHeaders(t, body), nil, body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	challenge, ok := resp.Body.(models.ZoomURLValidationResponse)
	require.True(t, ok)
	assert.Equal(t, "abc123", challenge.PlainToken)
	assert.NotEmpty(t, challenge.EncryptedToken)
	assert.NotEqual(t, challenge.PlainToken, challenge.EncryptedToken)
}

func TestZoomWebhookHandlerRejectsBadSignature(t *testing.T) {
	handler, publisher := newZoomHandlerForTest(t)

	body := []byte(`{"event":"meeting.ended","payload":{"object":{"id":"123"}}}`)
	headers := http.Header{}
	headers.Set(constants.ZoomTimestampHeader, "1700000000")
	headers.Set(constants.ZoomSignatureHeader, "v0=deadbeef")

	resp, err := handler.HandleEvent(context.Background(), headers, nil, body)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, publisher.PublishedItems())
}

func TestZoomWebhookHandlerMeetingEnded(t *testing.T) {
	handler, publisher := newZoomHandlerForTest(t)

	body := []byte(`{"event":"meeting.ended","payload":{"account_id":"z-acct","object":{"id":"987654","host_email":"host@example.com"}}}`)
	resp, err := handler.HandleEvent(context.Background(), zoomHeaders(t, body), nil, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	items := publisher.PublishedItems()
	require.Len(t, items, 1)
	assert.Equal(t, domain.WorkAdvanceMeeting, items[0].Kind)
	assert.Equal(t, "acct-zoom-1", items[0].AccountUID)
	assert.Equal(t, models.NewMeetingRef("acct-zoom-1", "987654"), items[0].MeetingRef)
}

func TestZoomWebhookHandlerMeetingUpdatedTriggersSync(t *testing.T) {
	handler, publisher := newZoomHandlerForTest(t)

	body := []byte(`{"event":"meeting.updated","payload":{"object":{"id":"987654","host_email":"host@example.com"}}}`)
	_, err := handler.HandleEvent(context.Background(), zoomHeaders(t, body), nil, body)
	require.NoError(t, err)

	items := publisher.PublishedItems()
	require.Len(t, items, 1)
	assert.Equal(t, domain.WorkSyncAccount, items[0].Kind)
	assert.Equal(t, "acct-zoom-1", items[0].AccountUID)
}

func TestZoomWebhookHandlerUnknownAccountAcked(t *testing.T) {
	handler, publisher := newZoomHandlerForTest(t)

	body := []byte(`{"event":"meeting.ended","payload":{"object":{"id":"1","host_email":"stranger@example.com"}}}`)
	resp, err := handler.HandleEvent(context.Background(), zoomHeaders(t, body), nil, body)
	require.NoError(t, err)

	// Acknowledged without work: retries cannot resolve an unknown account.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, publisher.PublishedItems())
}

func TestZoomWebhookHandlerUnsupportedEventAcked(t *testing.T) {
	handler, publisher := newZoomHandlerForTest(t)

	body := []byte(`{"event":"meeting.participant_joined","payload":{"object":{"id":"1","host_email":"host@example.com"}}}`)
	resp, err := handler.HandleEvent(context.Background(), zoomHeaders(t, body), nil, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, publisher.PublishedItems())
}
