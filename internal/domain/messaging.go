// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// WorkKind is the kind of a recheck work item.
type WorkKind string

const (
	// WorkSyncAccount asks the scheduler to run a calendar sync for an
	// account.
	WorkSyncAccount WorkKind = "sync_account"
	// WorkAdvanceMeeting asks the scheduler to advance one meeting's
	// processing record.
	WorkAdvanceMeeting WorkKind = "advance_meeting"
)

// WorkItem is the unit of scheduled work. Webhook deliveries and the
// polling ticker both produce these, so the state machine logic is written
// once regardless of trigger source.
type WorkItem struct {
	Kind       WorkKind          `json:"kind"`
	AccountUID string            `json:"account_uid,omitempty"`
	MeetingRef models.MeetingRef `json:"meeting_ref,omitempty"`
}

// WorkPublisher fans work items into the shared dispatch queue.
type WorkPublisher interface {
	PublishWorkItem(ctx context.Context, item WorkItem) error
}

// Message represents an inbound queue message.
type Message interface {
	Subject() string
	Data() []byte
}

// MessageHandler consumes inbound queue messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}
