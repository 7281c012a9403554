// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

func workItemMessage(t *testing.T, item domain.WorkItem) *fakeMessage {
	t.Helper()
	data, err := json.Marshal(item)
	require.NoError(t, err)
	return &fakeMessage{subject: constants.WorkItemSubject, data: data}
}

func TestHandleMessageSyncAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderGoogle)

	h.scheduler.HandleMessage(ctx, workItemMessage(t, domain.WorkItem{
		Kind:       domain.WorkSyncAccount,
		AccountUID: account.UID,
	}))

	assert.Equal(t, []string{"acct-1"}, h.calendar.listAccounts)
}

func TestHandleMessageAdvanceMeeting(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", "", models.PlatformNone)

	h.scheduler.HandleMessage(ctx, workItemMessage(t, domain.WorkItem{
		Kind:       domain.WorkAdvanceMeeting,
		MeetingRef: event.Ref(),
	}))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)
}

func TestHandleMessageMalformed(t *testing.T) {
	h := newHarness()
	h.scheduler.HandleMessage(context.Background(), &fakeMessage{
		subject: constants.WorkItemSubject,
		data:    []byte("not json"),
	})
	assert.Zero(t, h.calendar.listCalls)
}

func TestHandleMessageUnknownKind(t *testing.T) {
	h := newHarness()
	h.scheduler.HandleMessage(context.Background(), workItemMessage(t, domain.WorkItem{Kind: "reindex_library"}))
	assert.Zero(t, h.calendar.listCalls)
}

func TestTickSyncsOnlyDueAccounts(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	due := h.seedAccount("acct-due", models.ProviderGoogle)

	recent := h.seedAccount("acct-recent", models.ProviderGoogle)
	lastSync := h.now.Add(-time.Minute)
	recent.LastSyncAt = &lastSync
	_, revision, err := h.accounts.GetWithRevision(ctx, recent.UID)
	require.NoError(t, err)
	require.NoError(t, h.accounts.Update(ctx, recent, revision))

	expired := h.seedAccount("acct-expired", models.ProviderGoogle)
	expired.SyncStatus = models.SyncStatusExpired
	_, revision, err = h.accounts.GetWithRevision(ctx, expired.UID)
	require.NoError(t, err)
	require.NoError(t, h.accounts.Update(ctx, expired, revision))

	h.scheduler.Tick(ctx)

	assert.Equal(t, []string{due.UID}, h.calendar.listAccounts)
}

func TestTickAdvancesDueMeetings(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)

	dueEvent := h.seedEndedMeeting("acct-1", "evt-due", "", models.PlatformNone)

	// A meeting scheduled for later must not be touched.
	future := &models.CalendarEvent{
		AccountUID: "acct-1", ExternalID: "evt-future",
		StartTime: h.now.Add(time.Hour), EndTime: h.now.Add(2 * time.Hour),
		Platform: models.PlatformNone, RevisionToken: "1",
	}
	require.NoError(t, h.events.Create(ctx, future))
	futureRecord := models.NewProcessingRecord(future.Ref(), future.EndTime)
	retryAt := h.now.Add(time.Hour)
	futureRecord.NextAttemptAt = &retryAt
	require.NoError(t, h.records.Create(ctx, futureRecord))

	h.scheduler.Tick(ctx)

	record, err := h.records.Get(ctx, dueEvent.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)

	untouched, err := h.records.Get(ctx, future.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageScheduled, untouched.Stage)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.scheduler.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
