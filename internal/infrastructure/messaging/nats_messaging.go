// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package messaging carries work items over NATS between the webhook
// handlers, the polling scheduler and the dispatch loop.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

// INatsConn is the NATS connection surface the message builder needs.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder publishes work items to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// Ensure MessageBuilder implements WorkPublisher
var _ domain.WorkPublisher = (*MessageBuilder)(nil)

// PublishWorkItem sends one work item to the shared dispatch subject.
func (m *MessageBuilder) PublishWorkItem(ctx context.Context, item domain.WorkItem) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		return fmt.Errorf("NATS connection not available")
	}

	data, err := json.Marshal(item)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling work item into JSON", logging.ErrKey, err)
		return err
	}

	return m.sendMessage(ctx, constants.WorkItemSubject, data)
}

// sendMessage sends the message to the NATS server.
func (m *MessageBuilder) sendMessage(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}
