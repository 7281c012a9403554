// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package constants holds shared subject names and header keys.
package constants

// NATS subjects for the work-item fan-in. Webhook handlers publish here and
// the scheduler's dispatch loop subscribes, so polled and pushed triggers
// flow through the same path.
const (
	// WorkItemSubject carries recheck work items.
	WorkItemSubject = "fieldflow.meeting-intel.work"
)

// Webhook sources, used as registry keys and URL path segments.
const (
	WebhookSourceZoom      = "zoom"
	WebhookSourceGoogle    = "google"
	WebhookSourceMicrosoft = "microsoft"
)

// Provider webhook headers.
const (
	ZoomSignatureHeader       = "x-zm-signature"
	ZoomTimestampHeader       = "x-zm-request-timestamp"
	GoogleChannelIDHeader     = "X-Goog-Channel-ID"
	GoogleResourceIDHeader    = "X-Goog-Resource-ID"
	GoogleResourceStateHeader = "X-Goog-Resource-State"
	GoogleChannelTokenHeader  = "X-Goog-Channel-Token"
)
