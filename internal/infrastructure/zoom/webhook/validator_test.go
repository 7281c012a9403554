// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signBody(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("v0:%s:%s", timestamp, body)))
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	secret := "whsec"
	body := []byte(`{"event":"meeting.ended"}`)
	timestamp := "1700000000"

	tests := []struct {
		name      string
		validator *ZoomWebhookValidator
		signature string
		timestamp string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			validator: NewZoomWebhookValidator(secret),
			signature: signBody(secret, timestamp, body),
			timestamp: timestamp,
			wantErr:   false,
		},
		{
			name:      "wrong secret",
			validator: NewZoomWebhookValidator("other"),
			signature: signBody(secret, timestamp, body),
			timestamp: timestamp,
			wantErr:   true,
		},
		{
			name:      "tampered timestamp",
			validator: NewZoomWebhookValidator(secret),
			signature: signBody(secret, timestamp, body),
			timestamp: "1700000001",
			wantErr:   true,
		},
		{
			name:      "missing signature",
			validator: NewZoomWebhookValidator(secret),
			signature: "",
			timestamp: timestamp,
			wantErr:   true,
		},
		{
			name:      "unconfigured secret",
			validator: NewZoomWebhookValidator(""),
			signature: signBody(secret, timestamp, body),
			timestamp: timestamp,
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.validator.ValidateSignature(body, tc.signature, tc.timestamp)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsValidEvent(t *testing.T) {
	v := NewZoomWebhookValidator("whsec")

	assert.True(t, v.IsValidEvent("meeting.ended"))
	assert.True(t, v.IsValidEvent("recording.completed"))
	assert.True(t, v.IsValidEvent("endpoint.url_validation"))
	assert.False(t, v.IsValidEvent("chat_message.sent"))
}
