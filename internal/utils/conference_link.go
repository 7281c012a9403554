// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package utils holds helpers for normalizing provider payloads.
package utils

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// zoomMeetingIDPattern matches the numeric meeting ID in a Zoom join URL
// path ("/j/123456789" or "/wc/join/123456789").
var zoomMeetingIDPattern = regexp.MustCompile(`/(?:j|wc/join)/(\d{9,11})`)

// meetCodePattern matches a Google Meet conference code ("abc-defg-hij").
var meetCodePattern = regexp.MustCompile(`meet\.google\.com/([a-z]{3}-[a-z]{4}-[a-z]{3})`)

// ConferenceLink is a detected conferencing link inside an event.
type ConferenceLink struct {
	Platform  models.ConferencePlatform
	JoinURL   string
	MeetingID string // platform-native meeting identifier, if recognizable
}

// LookupID returns the identifier a recording provider needs to find the
// meeting: the native meeting ID where one was recognized, except Teams,
// where Graph can only filter online meetings by join URL.
func (l ConferenceLink) LookupID() string {
	if l.Platform == models.PlatformTeams {
		return l.JoinURL
	}
	if l.MeetingID != "" {
		return l.MeetingID
	}
	return l.JoinURL
}

// DetectConferenceLink scans an event's location/description text for the
// first recognizable conferencing URL and classifies its platform. Events
// with no recognizable URL get PlatformNone.
func DetectConferenceLink(texts ...string) ConferenceLink {
	for _, text := range texts {
		for _, raw := range urlPattern.FindAllString(text, -1) {
			link := classifyURL(cleanTrailingPunctuation(raw))
			if link.Platform != models.PlatformNone {
				return link
			}
		}
	}
	return ConferenceLink{Platform: models.PlatformNone}
}

func classifyURL(rawURL string) ConferenceLink {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ConferenceLink{Platform: models.PlatformNone}
	}

	host := strings.ToLower(parsed.Host)
	switch {
	case strings.HasSuffix(host, "zoom.us") || strings.HasSuffix(host, "zoomgov.com"):
		link := ConferenceLink{Platform: models.PlatformZoom, JoinURL: rawURL}
		if m := zoomMeetingIDPattern.FindStringSubmatch(parsed.Path); len(m) == 2 {
			link.MeetingID = m[1]
		}
		return link
	case host == "meet.google.com":
		link := ConferenceLink{Platform: models.PlatformMeet, JoinURL: rawURL}
		if m := meetCodePattern.FindStringSubmatch(rawURL); len(m) == 2 {
			link.MeetingID = m[1]
		}
		return link
	case strings.HasSuffix(host, "teams.microsoft.com") || strings.HasSuffix(host, "teams.live.com"):
		link := ConferenceLink{Platform: models.PlatformTeams, JoinURL: rawURL}
		// Teams join URLs embed the thread ID as a path segment.
		if idx := strings.Index(parsed.Path, "19%3a"); idx >= 0 {
			link.MeetingID = parsed.Path[idx:]
		} else if idx := strings.Index(parsed.Path, "19:"); idx >= 0 {
			link.MeetingID = parsed.Path[idx:]
		}
		return link
	}
	return ConferenceLink{Platform: models.PlatformNone}
}

// cleanTrailingPunctuation strips sentence punctuation that the URL regex
// can capture when a link ends a sentence in an event description.
func cleanTrailingPunctuation(rawURL string) string {
	trailingChars := []string{".", ",", "!", "?", ";", ":", ")", "]", "}"}

	for {
		trimmed := false
		for _, char := range trailingChars {
			if strings.HasSuffix(rawURL, char) {
				rawURL = strings.TrimSuffix(rawURL, char)
				trimmed = true
				break
			}
		}
		if !trimmed {
			return rawURL
		}
	}
}
