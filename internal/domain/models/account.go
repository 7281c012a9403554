// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// Provider identifies a calendar provider an account is connected to.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderZoom      Provider = "zoom"
)

// SyncStatus is the health of an account's calendar synchronization.
type SyncStatus string

const (
	SyncStatusActive  SyncStatus = "active"
	SyncStatusExpired SyncStatus = "expired"
	SyncStatusError   SyncStatus = "error"
)

// CredentialHandle is the opaque, refreshable credential for one provider
// connection. Adapters exchange it for provider HTTP clients; nothing else
// inspects it.
type CredentialHandle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Account represents one authenticated connection to a calendar provider
// for one user. The account owns its calendar-event mirror: deleting the
// account cascades to deletion of every mirrored event.
type Account struct {
	UID           string           `json:"uid"`
	Provider      Provider         `json:"provider"`
	OwnerEmail    string           `json:"owner_email"`
	OwnerName     string           `json:"owner_name,omitempty"`
	Credential    CredentialHandle `json:"credential"`
	SyncCursor    string           `json:"sync_cursor,omitempty"` // opaque provider token or timestamp
	LastSyncAt    *time.Time       `json:"last_sync_at,omitempty"`
	SyncStatus    SyncStatus       `json:"sync_status"`
	LastSyncError string           `json:"last_sync_error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CredentialExpiringWithin reports whether the access token expires inside
// the given window. Accounts with no recorded expiry never report expiring.
func (a *Account) CredentialExpiringWithin(window time.Duration) bool {
	if a.Credential.Expiry.IsZero() {
		return false
	}
	return a.Credential.Expiry.Before(time.Now().UTC().Add(window))
}
