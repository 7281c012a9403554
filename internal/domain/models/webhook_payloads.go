// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package models

// ZoomWebhookEvent is the envelope Zoom posts to the webhook endpoint.
type ZoomWebhookEvent struct {
	Event          string           `json:"event"`
	EventTimestamp int64            `json:"event_ts"`
	Payload        ZoomEventPayload `json:"payload"`
}

// ZoomEventPayload carries the object a Zoom event refers to.
type ZoomEventPayload struct {
	AccountID string          `json:"account_id"`
	PlainText string          `json:"plainToken,omitempty"` // endpoint.url_validation only
	Object    ZoomEventObject `json:"object"`
}

// ZoomEventObject identifies the meeting or recording the event is about.
type ZoomEventObject struct {
	ID        string `json:"id"`
	UUID      string `json:"uuid"`
	HostEmail string `json:"host_email,omitempty"`
	Topic     string `json:"topic,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

// ZoomURLValidationResponse answers Zoom's endpoint ownership challenge.
type ZoomURLValidationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// GoogleChannelNotification is the header-only push Google Calendar sends
// for a watched calendar. The body is empty; everything arrives in headers.
type GoogleChannelNotification struct {
	ChannelID     string `json:"channel_id"`
	ResourceID    string `json:"resource_id"`
	ResourceState string `json:"resource_state"` // "sync", "exists", "not_exists"
	ChannelToken  string `json:"channel_token,omitempty"`
}

// MicrosoftChangeNotification is the envelope Microsoft Graph posts for
// subscription change notifications.
type MicrosoftChangeNotification struct {
	Value []MicrosoftNotificationItem `json:"value"`
}

// MicrosoftNotificationItem is a single Graph change notification.
type MicrosoftNotificationItem struct {
	SubscriptionID string                `json:"subscriptionId"`
	ClientState    string                `json:"clientState"`
	ChangeType     string                `json:"changeType"` // "created", "updated", "deleted"
	Resource       string                `json:"resource"`
	ResourceData   MicrosoftResourceData `json:"resourceData"`
}

// MicrosoftResourceData identifies the changed Graph resource.
type MicrosoftResourceData struct {
	ID string `json:"id"`
}
