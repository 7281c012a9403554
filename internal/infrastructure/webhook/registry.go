// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package webhook normalizes provider webhook deliveries into work items.
package webhook

import (
	"fmt"
	"sync"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

// Registry implements domain.WebhookRegistry
type Registry struct {
	handlers map[string]domain.WebhookHandler
	mu       sync.RWMutex
}

// NewRegistry creates a new webhook registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]domain.WebhookHandler),
	}
}

// GetHandler returns the webhook handler for the specified source
func (r *Registry) GetHandler(source string) (domain.WebhookHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[source]
	if !exists {
		return nil, fmt.Errorf("webhook handler for source %s not found", source)
	}

	return handler, nil
}

// RegisterHandler registers a webhook handler for a source
func (r *Registry) RegisterHandler(source string, handler domain.WebhookHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[source] = handler
}
