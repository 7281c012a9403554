// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package service holds the pipeline logic: calendar synchronization,
// recording discovery, the post-meeting orchestrator, notification
// dispatch and the scheduler that drives them.
package service

import (
	"time"
)

// Default retry and scheduling knobs. Recordings typically surface minutes
// to hours after a call ends, so discovery starts patient and settles on a
// capped interval.
const (
	DefaultSyncInterval            = 5 * time.Minute
	DefaultDiscoveryInitialBackoff = 2 * time.Minute
	DefaultDiscoveryMaxBackoff     = 30 * time.Minute
	DefaultDiscoveryMaxElapsed     = 24 * time.Hour
	DefaultErrorInitialBackoff     = time.Minute
	DefaultStageMaxAttempts        = 5
	DefaultSummarizeMaxAttempts    = 3
	DefaultNotifyMaxAttempts       = 3
)

// ServiceConfig carries the tunable pipeline parameters.
type ServiceConfig struct {
	// SyncInterval is how often an account is re-synced absent webhooks.
	SyncInterval time.Duration
	// DiscoveryInitialBackoff is the delay before the first recording
	// check after a meeting ends, doubling up to DiscoveryMaxBackoff.
	DiscoveryInitialBackoff time.Duration
	DiscoveryMaxBackoff     time.Duration
	// DiscoveryMaxElapsed bounds how long after meeting end discovery
	// keeps checking before finalizing the meeting as having no
	// recording.
	DiscoveryMaxElapsed time.Duration
	// ErrorInitialBackoff seeds the retry delay for rate-limited and
	// transient failures, doubling per attempt.
	ErrorInitialBackoff time.Duration
	// DiscoveryMaxAttempts bounds errored (not merely pending) discovery
	// calls; SummarizeMaxAttempts and NotifyMaxAttempts bound their
	// stages outright.
	DiscoveryMaxAttempts int
	SummarizeMaxAttempts int
	NotifyMaxAttempts    int
}

// NewServiceConfig returns the default configuration.
func NewServiceConfig() ServiceConfig {
	return ServiceConfig{
		SyncInterval:            DefaultSyncInterval,
		DiscoveryInitialBackoff: DefaultDiscoveryInitialBackoff,
		DiscoveryMaxBackoff:     DefaultDiscoveryMaxBackoff,
		DiscoveryMaxElapsed:     DefaultDiscoveryMaxElapsed,
		ErrorInitialBackoff:     DefaultErrorInitialBackoff,
		DiscoveryMaxAttempts:    DefaultStageMaxAttempts,
		SummarizeMaxAttempts:    DefaultSummarizeMaxAttempts,
		NotifyMaxAttempts:       DefaultNotifyMaxAttempts,
	}
}

// backoffDelay computes the exponential delay for the given attempt number
// (1-based): initial, 2*initial, 4*initial, capped at max.
func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
