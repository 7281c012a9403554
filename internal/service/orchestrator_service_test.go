// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

const zoomJoinURL = "https://example.zoom.us/j/9876543210"

func TestAdvanceMeetingHappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}}}
	h.recorder.transcript = "Alice: hello. Bob: hi."
	h.summarizer.results = []fakeSummarizeResult{{content: &models.SummaryContent{
		Overview:    "The team aligned on the release plan.",
		ActionItems: []string{"Ship it"},
	}}}

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.NotNil(t, record.CompletedAt)

	summary, err := h.summaries.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, "The team aligned on the release plan.", summary.Content.Overview)

	require.Equal(t, 1, h.email.sentCount())
	assert.Equal(t, "owner@example.com", h.email.sent[0].RecipientEmail)
	assert.Equal(t, "Weekly planning", h.email.sent[0].MeetingTitle)
	assert.Equal(t, []string{"Ship it"}, h.email.sent[0].ActionItems)
}

func TestAdvanceMeetingNoConferenceLink(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderGoogle)
	event := h.seedEndedMeeting("acct-1", "evt-1", "", models.PlatformNone)

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)
	assert.NotNil(t, record.CompletedAt)
	assert.Zero(t, h.recorder.findCount())
	assert.Zero(t, h.email.sentCount())
}

func TestAdvanceMeetingNotYetEnded(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := &models.CalendarEvent{
		AccountUID: "acct-1", ExternalID: "evt-future",
		Title:     "Upcoming",
		StartTime: h.now.Add(time.Hour), EndTime: h.now.Add(2 * time.Hour),
		JoinURL: zoomJoinURL, Platform: models.PlatformZoom, RevisionToken: "1",
	}
	require.NoError(t, h.events.Create(ctx, event))
	require.NoError(t, h.records.Create(ctx, models.NewProcessingRecord(event.Ref(), event.EndTime)))

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageScheduled, record.Stage)
	assert.Zero(t, h.recorder.findCount())
}

func TestAdvanceMeetingDiscoveryRetriesThenNotifies(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	// Two lookups miss before the recording appears, then the first
	// summarizer call fails transiently.
	h.recorder.finds = []fakeFindResult{
		{err: domain.NewNotFoundError("not ready")},
		{err: domain.NewNotFoundError("not ready")},
		{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}},
	}
	h.recorder.transcript = "transcript text"
	h.summarizer.results = []fakeSummarizeResult{
		{err: domain.NewTransientError("summarizer 503")},
		{content: &models.SummaryContent{Overview: "Recovered summary."}},
	}

	record, err := h.driveToCompletion(ctx, event.Ref(), 10)
	require.NoError(t, err)

	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 3, record.Attempts[models.StageRecordingPending])
	assert.Equal(t, 2, record.Attempts[models.StageSummarizing])
	assert.Equal(t, 1, h.email.sentCount())
}

func TestAdvanceMeetingRateLimitedExhaustsBudget(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{
		{err: domain.NewRateLimitedError("throttled", 30*time.Second)},
	}

	record, err := h.driveToCompletion(ctx, event.Ref(), 20)
	require.NoError(t, err)

	assert.Equal(t, models.StageFailed, record.Stage)
	assert.Equal(t, "rate_limited", record.LastErrorCode)
	assert.Equal(t, h.config.DiscoveryMaxAttempts, record.Attempts[models.StageRecordingPending])
	assert.Zero(t, h.summarizer.callCount())
	assert.Zero(t, h.email.sentCount())
	_, err = h.summaries.Get(ctx, event.Ref())
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestAdvanceMeetingConcurrentTriggersNotifyOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}}}
	h.recorder.transcript = "transcript"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.orchestrator.AdvanceMeeting(ctx, event.Ref())
		}()
	}
	wg.Wait()

	// Stragglers that lost the in-process lock re-trigger after the
	// winner finished; they must observe completion and do nothing.
	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 1, h.email.sentCount())
}

func TestAdvanceMeetingCancelledEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	stored, revision, err := h.events.GetWithRevision(ctx, event.Ref())
	require.NoError(t, err)
	stored.Cancelled = true
	require.NoError(t, h.events.Update(ctx, stored, revision))

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)
	assert.Zero(t, h.recorder.findCount())
}

func TestAdvanceMeetingRemovedEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)
	require.NoError(t, h.events.Delete(ctx, event.Ref()))

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)
}

func TestAdvanceMeetingDiscoveryWindowElapsed(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.advanceClock(25 * time.Hour)
	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotApplicable, record.Stage)
	assert.Zero(t, h.recorder.findCount())
}

func TestAdvanceMeetingAuthExpiredRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.calendar.refreshHandle = &models.CredentialHandle{AccessToken: "fresh-token"}
	h.recorder.finds = []fakeFindResult{
		{err: domain.NewAuthExpiredError("token expired")},
		{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}},
	}
	h.recorder.transcript = "transcript"

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 1, h.calendar.refreshCalls)

	account, err := h.accounts.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", account.Credential.AccessToken)
}

func TestAdvanceMeetingTranscriptNotReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: false}}}
	h.recorder.transcriptErrs = []error{domain.NewNotFoundError("transcript processing")}
	h.recorder.transcript = "late transcript"

	record, err := h.driveToCompletion(ctx, event.Ref(), 10)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 2, record.Attempts[models.StageSummarizing])
}

func TestAdvanceMeetingUnknownMeetingIgnored(t *testing.T) {
	h := newHarness()
	err := h.orchestrator.AdvanceMeeting(context.Background(), models.NewMeetingRef("acct-1", "ghost"))
	assert.NoError(t, err)
}

func TestRetryFailed(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{err: domain.NewPermanentError("recording API gone")}}

	record, err := h.driveToCompletion(ctx, event.Ref(), 5)
	require.NoError(t, err)
	require.Equal(t, models.StageFailed, record.Stage)
	assert.Equal(t, "permanent", record.LastErrorCode)

	failed, err := h.orchestrator.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, event.Ref(), failed[0].MeetingRef)

	// Re-arm and let a now-working platform finish the pipeline.
	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}}}
	h.recorder.transcript = "transcript"

	rearmed, err := h.orchestrator.RetryFailed(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageEnded, rearmed.Stage)
	assert.Empty(t, rearmed.LastErrorCode)

	record, err = h.driveToCompletion(ctx, event.Ref(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 1, h.email.sentCount())
}

func TestRetryFailedRejectsNonFailed(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	_, err := h.orchestrator.RetryFailed(ctx, event.Ref())
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestRetryFailedResumesAfterSummary(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}}}
	h.recorder.transcript = "transcript"
	h.email.errs = []error{
		domain.NewPermanentError("mailbox rejected"),
	}

	record, err := h.driveToCompletion(ctx, event.Ref(), 5)
	require.NoError(t, err)
	require.Equal(t, models.StageFailed, record.Stage)

	rearmed, err := h.orchestrator.RetryFailed(ctx, event.Ref())
	require.NoError(t, err)
	// The summary already exists, so the retry resumes at delivery
	// rather than re-running discovery or summarization.
	assert.Equal(t, models.StageSummarized, rearmed.Stage)

	summarizerCalls := h.summarizer.callCount()
	record, err = h.driveToCompletion(ctx, event.Ref(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, summarizerCalls, h.summarizer.callCount())
	assert.Equal(t, 1, h.email.sentCount())
}

func TestStepNotifyLostClaimSendsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	record, revision, err := h.records.GetWithRevision(ctx, event.Ref())
	require.NoError(t, err)
	record.Advance(models.StageEnded)
	record.Advance(models.StageRecordingPending)
	record.Advance(models.StageRecordingFound)
	record.Advance(models.StageSummarizing)
	record.Advance(models.StageSummarized)
	require.NoError(t, h.records.Update(ctx, record, revision))
	require.NoError(t, h.summaries.Create(ctx, summaryFor(event)))

	// This worker reads the record, then a peer on another replica
	// claims the notified stage first. The stale claim must lose the
	// compare-and-set and never reach the mail service.
	stale, staleRevision, err := h.records.GetWithRevision(ctx, event.Ref())
	require.NoError(t, err)
	peer, peerRevision, err := h.records.GetWithRevision(ctx, event.Ref())
	require.NoError(t, err)
	peer.Advance(models.StageNotified)
	require.NoError(t, h.records.Update(ctx, peer, peerRevision))

	require.NoError(t, h.orchestrator.stepNotify(ctx, account, event, stale, staleRevision, h.now))
	assert.Zero(t, h.email.sentCount())

	final, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, final.Stage)
}

func TestAdvanceMeetingRetriesUndeliveredEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedAccount("acct-1", models.ProviderZoom)
	event := h.seedEndedMeeting("acct-1", "evt-1", zoomJoinURL, models.PlatformZoom)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-123", HasTranscript: true}}}
	h.recorder.transcript = "transcript"
	h.email.errs = []error{domain.NewTransientError("smtp timeout")}

	require.NoError(t, h.orchestrator.AdvanceMeeting(ctx, event.Ref()))

	// The failed send released the claim back to the summarized stage
	// with a retry scheduled.
	record, err := h.records.Get(ctx, event.Ref())
	require.NoError(t, err)
	assert.Equal(t, models.StageSummarized, record.Stage)
	require.NotNil(t, record.NextAttemptAt)
	assert.Zero(t, h.email.sentCount())

	record, err = h.driveToCompletion(ctx, event.Ref(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 1, h.email.sentCount())
}

func TestRecurringMeetingProcessesEachOccurrence(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	account := h.seedAccount("acct-1", models.ProviderZoom)

	start := h.now.Add(-30 * time.Minute)
	weekly := &models.CalendarEvent{
		AccountUID:     "acct-1",
		ExternalID:     "evt-weekly",
		Title:          "Weekly sync",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		Timezone:       "UTC",
		JoinURL:        zoomJoinURL,
		Platform:       models.PlatformZoom,
		RecurrenceRule: "RRULE:FREQ=WEEKLY",
		RevisionToken:  "1",
	}
	h.calendar.results = []fakeListResult{{
		page: &domain.EventPage{Events: []*models.CalendarEvent{weekly}, FullListing: true},
	}}
	_, err := h.sync.SyncAccount(ctx, account.UID)
	require.NoError(t, err)

	// The ledger entry is keyed by occurrence, not by the series.
	firstEnd := weekly.EndTime.UTC().Format(time.RFC3339)
	firstRef := models.NewOccurrenceRef("acct-1", "evt-weekly", firstEnd)
	record, err := h.records.Get(ctx, firstRef)
	require.NoError(t, err)
	assert.Equal(t, models.StageScheduled, record.Stage)

	h.recorder.finds = []fakeFindResult{{info: &domain.RecordingInfo{Handle: "rec-1", HasTranscript: true}}}
	h.recorder.transcript = "transcript"

	h.advanceClock(time.Hour)
	record, err = h.driveToCompletion(ctx, firstRef, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 1, h.email.sentCount())

	// A week later the provider still lists the series at the same
	// revision; the sync pass must seed a fresh ledger entry for the
	// new occurrence instead of leaving the series terminal.
	h.advanceClock(7*24*time.Hour - 2*time.Hour)
	h.calendar.results = []fakeListResult{{
		page: &domain.EventPage{Events: []*models.CalendarEvent{weekly}, FullListing: true},
	}}
	_, err = h.sync.SyncAccount(ctx, account.UID)
	require.NoError(t, err)

	secondEnd := weekly.EndTime.Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339)
	secondRef := models.NewOccurrenceRef("acct-1", "evt-weekly", secondEnd)
	record, err = h.records.Get(ctx, secondRef)
	require.NoError(t, err)
	assert.Equal(t, models.StageScheduled, record.Stage)

	h.advanceClock(2 * time.Hour)
	record, err = h.driveToCompletion(ctx, secondRef, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, record.Stage)
	assert.Equal(t, 2, h.email.sentCount())

	// Each occurrence produced its own artifacts; the first pipeline is
	// untouched by the second.
	first, err := h.records.Get(ctx, firstRef)
	require.NoError(t, err)
	assert.Equal(t, models.StageNotified, first.Stage)
	_, err = h.summaries.Get(ctx, firstRef)
	require.NoError(t, err)
	_, err = h.summaries.Get(ctx, secondRef)
	require.NoError(t, err)
}
