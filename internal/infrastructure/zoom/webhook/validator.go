// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ZoomWebhookValidator handles validation of Zoom webhook signatures
type ZoomWebhookValidator struct {
	SecretToken string
}

// NewZoomWebhookValidator creates a new Zoom webhook validator
func NewZoomWebhookValidator(secretToken string) *ZoomWebhookValidator {
	return &ZoomWebhookValidator{
		SecretToken: secretToken,
	}
}

// ValidateSignature validates the Zoom webhook signature
func (v *ZoomWebhookValidator) ValidateSignature(body []byte, signature, timestamp string) error {
	if v.SecretToken == "" {
		return fmt.Errorf("webhook secret token not configured")
	}

	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}

	if timestamp == "" {
		return fmt.Errorf("missing webhook timestamp")
	}

	// Zoom signs v0:timestamp:body with the secret token.
	message := fmt.Sprintf("v0:%s:%s", timestamp, body)

	h := hmac.New(sha256.New, []byte(v.SecretToken))
	h.Write([]byte(message))
	expectedSignature := "v0=" + hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return fmt.Errorf("zoom webhook signature does not match expected signature")
	}

	return nil
}

// HashValidationToken answers Zoom's endpoint.url_validation challenge by
// signing the plain token with the secret.
func (v *ZoomWebhookValidator) HashValidationToken(plainToken string) string {
	h := hmac.New(sha256.New, []byte(v.SecretToken))
	h.Write([]byte(plainToken))
	return hex.EncodeToString(h.Sum(nil))
}

// IsValidEvent checks if the event type is supported
func (v *ZoomWebhookValidator) IsValidEvent(eventType string) bool {
	validEvents := map[string]bool{
		"meeting.created":                true,
		"meeting.updated":                true,
		"meeting.deleted":                true,
		"meeting.ended":                  true,
		"recording.completed":            true,
		"recording.transcript_completed": true,
		"endpoint.url_validation":        true,
	}

	return validEvents[eventType]
}
