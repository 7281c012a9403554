// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package providers resolves calendar and recording adapters by provider
// kind, so callers never branch on the provider outside the adapter layer.
package providers

import (
	"fmt"
	"sync"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

// CalendarRegistry implements domain.CalendarRegistry
type CalendarRegistry struct {
	providers map[models.Provider]domain.CalendarProvider
	mu        sync.RWMutex
}

// NewCalendarRegistry creates a new calendar provider registry
func NewCalendarRegistry() *CalendarRegistry {
	return &CalendarRegistry{
		providers: make(map[models.Provider]domain.CalendarProvider),
	}
}

// GetProvider returns the calendar adapter for the given provider kind
func (r *CalendarRegistry) GetProvider(provider models.Provider) (domain.CalendarProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("calendar provider %s not registered", provider)
	}

	return p, nil
}

// RegisterProvider registers a calendar adapter for a provider kind
func (r *CalendarRegistry) RegisterProvider(provider models.Provider, p domain.CalendarProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[provider] = p
}

// RecordingRegistry implements domain.RecordingRegistry
type RecordingRegistry struct {
	providers map[models.ConferencePlatform]domain.RecordingProvider
	mu        sync.RWMutex
}

// NewRecordingRegistry creates a new recording provider registry
func NewRecordingRegistry() *RecordingRegistry {
	return &RecordingRegistry{
		providers: make(map[models.ConferencePlatform]domain.RecordingProvider),
	}
}

// GetProvider returns the recording adapter for the given platform
func (r *RecordingRegistry) GetProvider(platform models.ConferencePlatform) (domain.RecordingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[platform]
	if !exists {
		return nil, fmt.Errorf("recording provider %s not registered", platform)
	}

	return p, nil
}

// RegisterProvider registers a recording adapter for a platform
func (r *RecordingRegistry) RegisterProvider(platform models.ConferencePlatform, p domain.RecordingProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[platform] = p
}
