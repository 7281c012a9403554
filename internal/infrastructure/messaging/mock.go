// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"sync"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

// MockNatsConn is a controllable INatsConn for tests.
type MockNatsConn struct {
	mu           sync.Mutex
	Connected    bool
	PublishError error
	Published    []PublishedMessage
}

// PublishedMessage records one Publish call.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// NewMockNatsConn creates a connected mock NATS connection.
func NewMockNatsConn() *MockNatsConn {
	return &MockNatsConn{Connected: true}
}

// IsConnected implements INatsConn
func (m *MockNatsConn) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connected
}

// Publish implements INatsConn
func (m *MockNatsConn) Publish(subj string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Published = append(m.Published, PublishedMessage{Subject: subj, Data: data})
	return nil
}

// Messages returns a copy of everything published so far.
func (m *MockNatsConn) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedMessage, len(m.Published))
	copy(out, m.Published)
	return out
}

// MockWorkPublisher records work items in memory for tests.
type MockWorkPublisher struct {
	mu           sync.Mutex
	PublishError error
	Items        []domain.WorkItem
}

// Ensure MockWorkPublisher implements WorkPublisher
var _ domain.WorkPublisher = (*MockWorkPublisher)(nil)

// PublishWorkItem implements domain.WorkPublisher
func (m *MockWorkPublisher) PublishWorkItem(_ context.Context, item domain.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Items = append(m.Items, item)
	return nil
}

// PublishedItems returns a copy of everything published so far.
func (m *MockWorkPublisher) PublishedItems() []domain.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WorkItem, len(m.Items))
	copy(out, m.Items)
	return out
}
