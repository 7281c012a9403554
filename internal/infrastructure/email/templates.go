// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// RenderedEmail holds both HTML and text versions of a rendered email.
type RenderedEmail struct {
	HTML string
	Text string
}

// SummaryTemplateManager defines the interface for rendering summary email templates.
type SummaryTemplateManager interface {
	RenderSummaryNotification(data domain.EmailSummaryNotification) (*RenderedEmail, error)
}

// TemplateManager is the default implementation of SummaryTemplateManager.
type TemplateManager struct {
	templates Templates
}

// NewTemplateManager creates a new template manager with all templates loaded.
func NewTemplateManager() (*TemplateManager, error) {
	tm := &TemplateManager{}

	templateConfigs := map[string]templateConfig{
		"summaryNotificationHTML": {"meeting_summary_notification.html", "templates/meeting_summary_notification.html"},
		"summaryNotificationText": {"meeting_summary_notification.txt", "templates/meeting_summary_notification.txt"},
	}

	loadedTemplates := make(map[string]*template.Template)
	for key, cfg := range templateConfigs {
		tmpl, err := loadTemplate(cfg)
		if err != nil {
			return nil, err
		}
		loadedTemplates[key] = tmpl
	}

	tm.templates = Templates{
		Summary: SummaryTemplates{
			Notification: TemplateSet{
				HTML: loadedTemplates["summaryNotificationHTML"],
				Text: loadedTemplates["summaryNotificationText"],
			},
		},
	}

	return tm, nil
}

// Ensure TemplateManager implements SummaryTemplateManager
var _ SummaryTemplateManager = (*TemplateManager)(nil)

// RenderSummaryNotification renders a summary notification email with both HTML and text versions.
func (tm *TemplateManager) RenderSummaryNotification(data domain.EmailSummaryNotification) (*RenderedEmail, error) {
	html, err := renderTemplate(tm.templates.Summary.Notification.HTML, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render summary notification HTML: %w", err)
	}

	text, err := renderTemplate(tm.templates.Summary.Notification.Text, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render summary notification text: %w", err)
	}

	return &RenderedEmail{HTML: html, Text: text}, nil
}

// TemplateSet holds HTML and text versions of a template.
type TemplateSet struct {
	HTML *template.Template
	Text *template.Template
}

// SummaryTemplates holds all summary-related templates.
type SummaryTemplates struct {
	Notification TemplateSet
}

// Templates holds all template categories.
type Templates struct {
	Summary SummaryTemplates
}

// templateConfig defines a template to be loaded.
type templateConfig struct {
	name string
	path string
}

// loadTemplate loads a single template with the shared function map.
func loadTemplate(config templateConfig) (*template.Template, error) {
	tmpl, err := template.New(config.name).Funcs(template.FuncMap{
		"formatTime":         formatTime,
		"formatDuration":     formatDuration,
		"capitalize":         capitalize,
		"newLineToBreakLine": newLineToBreakLine,
		"repeat":             strings.Repeat,
	}).ParseFS(templateFS, config.path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", config.name, err)
	}
	return tmpl, nil
}

// renderTemplate renders any template with the provided data.
func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatTime formats a time for display in emails.
func formatTime(t time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		// Fall back to UTC if timezone is invalid
		loc = time.UTC
		timezone = "UTC"
	}

	localTime := t.In(loc)

	// Format with ordinal day suffix
	day := localTime.Day()
	var suffix string
	switch {
	case day >= 11 && day <= 13:
		suffix = "th"
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	default:
		suffix = "th"
	}

	// Format: Wednesday, September 15th, 10:30 Africa/Johannesburg
	return fmt.Sprintf("%s, %s %d%s, %s %s",
		localTime.Format("Monday"),
		localTime.Format("January"),
		day,
		suffix,
		localTime.Format("15:04"),
		timezone)
}

// formatDuration formats duration in minutes to a human-readable string.
func formatDuration(minutes int) string {
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	remainingMinutes := minutes % 60

	if remainingMinutes == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}

	hourLabel := "hours"
	if hours == 1 {
		hourLabel = "hour"
	}
	minuteLabel := "minutes"
	if remainingMinutes == 1 {
		minuteLabel = "minute"
	}
	return fmt.Sprintf("%d %s %d %s", hours, hourLabel, remainingMinutes, minuteLabel)
}

// capitalize capitalizes the first letter of a string.
func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// newLineToBreakLine converts newlines to HTML break tags for proper email formatting.
func newLineToBreakLine(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	replaced := strings.ReplaceAll(escaped, "\n", "<br>")
	// Return as template.HTML to prevent double escaping
	return template.HTML(replaced)
}
