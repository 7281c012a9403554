// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"net/http"
	"net/url"
)

// WebhookResponse is what a webhook handler wants returned to the caller.
// Some providers require a specific body (for example Zoom's URL validation
// challenge or Microsoft's validationToken echo).
type WebhookResponse struct {
	StatusCode int
	Body       any
}

// WebhookHandler normalizes one provider's webhook deliveries into work
// items. Handlers validate authenticity (HMAC signature, clientState,
// channel token), then publish and return quickly; heavy work never happens
// on the webhook goroutine.
type WebhookHandler interface {
	// Source names the provider this handler accepts events from.
	Source() string

	// HandleEvent processes a raw delivery. The body is the unmodified
	// request payload so signature validation sees exactly the wire
	// bytes. Query carries URL parameters for providers that use them
	// in their subscription handshake.
	HandleEvent(ctx context.Context, headers http.Header, query url.Values, body []byte) (*WebhookResponse, error)
}

// WebhookRegistry resolves webhook handlers by event source.
type WebhookRegistry interface {
	GetHandler(source string) (WebhookHandler, error)
	RegisterHandler(source string, handler WebhookHandler)
}
