// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"strings"

	"encoding/base64"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/nats-io/nats.go"
)

// KeyBuilder builds NATS KV keys for meeting-scoped entities. Provider event
// IDs contain characters that NATS KV keys do not allow, so each segment of a
// meeting reference is base64 encoded and the segments are joined with dots.
type KeyBuilder struct{}

// NewKeyBuilder creates a new key builder
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

// RefKey builds the KV key for a meeting reference.
func (kb *KeyBuilder) RefKey(ref models.MeetingRef) string {
	key, err := kb.EncodeKey(ref.String())
	if err != nil {
		return ref.String()
	}
	return key
}

// AccountPrefix builds the key prefix matching every meeting-scoped entry
// belonging to an account.
func (kb *KeyBuilder) AccountPrefix(accountUID string) string {
	return base64.StdEncoding.EncodeToString([]byte(accountUID)) + "."
}

// EncodeKey encodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}

		dst := make([]byte, base64.StdEncoding.EncodedLen(len(part)))
		base64.StdEncoding.Encode(dst, []byte(part))
		res = append(res, string(dst))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey decodes a key produced by EncodeKey.
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "/"), nil
}

// DecodeRefKey decodes a KV key back into a meeting reference.
func (kb *KeyBuilder) DecodeRefKey(key string) (models.MeetingRef, error) {
	decoded, err := kb.DecodeKey(key)
	if err != nil {
		return "", err
	}
	parts := strings.SplitN(decoded, "/", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("key %q does not contain a meeting reference", key)
	}
	return models.NewMeetingRef(parts[0], parts[1]), nil
}
