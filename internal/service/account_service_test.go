// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

func newAccountService(h *harness) *AccountService {
	return NewAccountService(h.accounts, h.events, h.records)
}

func TestConnectValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(newHarness())

	tests := []struct {
		name string
		req  ConnectAccountRequest
	}{
		{
			name: "unsupported provider",
			req:  ConnectAccountRequest{Provider: "caldav", OwnerEmail: "a@example.com", AccessToken: "tok"},
		},
		{
			name: "missing owner email",
			req:  ConnectAccountRequest{Provider: models.ProviderGoogle, AccessToken: "tok"},
		},
		{
			name: "malformed owner email",
			req:  ConnectAccountRequest{Provider: models.ProviderGoogle, OwnerEmail: "not-an-email", AccessToken: "tok"},
		},
		{
			name: "missing access token",
			req:  ConnectAccountRequest{Provider: models.ProviderGoogle, OwnerEmail: "a@example.com"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Connect(ctx, tc.req)
			assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
		})
	}
}

func TestConnectAndList(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	svc := newAccountService(h)

	account, err := svc.Connect(ctx, ConnectAccountRequest{
		Provider:     models.ProviderZoom,
		OwnerEmail:   "  Dana@Example.COM ",
		OwnerName:    "Dana",
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenExpiry:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, account.UID)
	assert.Equal(t, "dana@example.com", account.OwnerEmail)
	assert.Equal(t, models.SyncStatusActive, account.SyncStatus)
	assert.Empty(t, account.SyncCursor)

	fetched, err := svc.Get(ctx, account.UID)
	require.NoError(t, err)
	assert.Equal(t, account.OwnerEmail, fetched.OwnerEmail)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDisconnectCascades(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	svc := newAccountService(h)

	account := h.seedAccount("acct-1", models.ProviderZoom)
	h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)
	h.seedEndedMeeting("acct-1", "evt-2", "", models.PlatformNone)

	// Another account's data must survive the cascade.
	h.seedAccount("acct-2", models.ProviderZoom)
	h.seedEndedMeeting("acct-2", "evt-1", "", models.PlatformNone)

	require.NoError(t, svc.Disconnect(ctx, account.UID))

	_, err := svc.Get(ctx, account.UID)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	events, err := h.events.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, events)
	records, err := h.records.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	otherEvents, err := h.events.ListByAccount(ctx, "acct-2")
	require.NoError(t, err)
	assert.Len(t, otherEvents, 1)
	otherRecords, err := h.records.ListByAccount(ctx, "acct-2")
	require.NoError(t, err)
	assert.Len(t, otherRecords, 1)
}

func TestDisconnectUnknownAccount(t *testing.T) {
	svc := newAccountService(newHarness())
	err := svc.Disconnect(context.Background(), "missing")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}
