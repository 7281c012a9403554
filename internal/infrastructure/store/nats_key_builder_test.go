// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"testing"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilderRefKeyRoundTrip(t *testing.T) {
	kb := NewKeyBuilder()

	tests := []struct {
		name string
		ref  models.MeetingRef
	}{
		{
			name: "plain external ID",
			ref:  models.NewMeetingRef("acct-1", "evt-123"),
		},
		{
			name: "external ID with characters NATS keys reject",
			ref:  models.NewMeetingRef("acct-1", "AAMkAGI2_T=dA/ClA=="),
		},
		{
			name: "unicode external ID",
			ref:  models.NewMeetingRef("acct-2", "réunion-été"),
		},
		{
			name: "recurring occurrence reference",
			ref:  models.NewOccurrenceRef("acct-1", "evt-weekly", "2026-03-11T15:00:00Z"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := kb.RefKey(tc.ref)
			decoded, err := kb.DecodeRefKey(key)
			require.NoError(t, err)
			assert.Equal(t, tc.ref, decoded)
		})
	}
}

func TestKeyBuilderAccountPrefix(t *testing.T) {
	kb := NewKeyBuilder()

	keyA := kb.RefKey(models.NewMeetingRef("acct-a", "evt-1"))
	keyB := kb.RefKey(models.NewMeetingRef("acct-b", "evt-1"))
	prefix := kb.AccountPrefix("acct-a")

	assert.True(t, len(keyA) > len(prefix) && keyA[:len(prefix)] == prefix)
	assert.False(t, len(keyB) > len(prefix) && keyB[:len(prefix)] == prefix)
}

func TestKeyBuilderDecodeRefKeyRejectsGarbage(t *testing.T) {
	kb := NewKeyBuilder()

	_, err := kb.DecodeRefKey("!!!not-base64!!!")
	assert.Error(t, err)
}
