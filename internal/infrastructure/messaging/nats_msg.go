// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/nats-io/nats.go"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

// NatsMsg adapts an inbound *nats.Msg to the domain message interface.
type NatsMsg struct {
	msg *nats.Msg
}

// WrapNatsMsg wraps a NATS message for handler consumption.
func WrapNatsMsg(msg *nats.Msg) *NatsMsg {
	return &NatsMsg{msg: msg}
}

// Subject returns the subject the message arrived on.
func (m *NatsMsg) Subject() string {
	return m.msg.Subject
}

// Data returns the raw message payload.
func (m *NatsMsg) Data() []byte {
	return m.msg.Data
}

// Ensure NatsMsg implements domain.Message
var _ domain.Message = (*NatsMsg)(nil)
