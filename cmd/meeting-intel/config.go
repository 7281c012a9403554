// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/utils"
)

// flags are the command line flags for the meeting intelligence service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meeting intelligence
// service.
type environment struct {
	Port        string
	NatsURL     string
	WorkerCount int

	SyncInterval time.Duration

	Google    googleConfig
	Microsoft microsoftConfig
	Zoom      zoomConfig

	GoogleChannelToken string

	Summarizer summarizerConfig
	SMTP       smtpConfig

	OTLPEndpoint string
}

// googleConfig holds the Google OAuth application credentials.
type googleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// microsoftConfig holds the Microsoft Graph application credentials.
type microsoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURL  string
}

// zoomConfig holds the Zoom Server-to-Server OAuth credentials and the
// webhook secret token.
type zoomConfig struct {
	AccountID          string
	ClientID           string
	ClientSecret       string
	WebhookSecretToken string
}

// summarizerConfig holds the external summarization endpoint settings.
type summarizerConfig struct {
	BaseURL string
	APIKey  string
}

// smtpConfig holds outbound mail settings. An empty host selects the no-op
// email service.
type smtpConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// parseFlags parses command line flags for the meeting intelligence service.
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// The debug flag maps onto the log level env var read by
	// [logging.InitStructuredLogConfig].
	if *debug {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the meeting intelligence
// service. A local .env file is honored when present.
func parseEnv() environment {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.With(logging.ErrKey, err).Warn("error loading .env file, continuing with process environment")
	}

	port := utils.Coalesce(os.Getenv("PORT"), "8080")
	natsURL := utils.Coalesce(os.Getenv("NATS_URL"), nats.DefaultURL)

	workerCount := 4
	if raw := os.Getenv("WORKER_COUNT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			slog.With("value", raw).Warn("invalid WORKER_COUNT, using default")
		} else {
			workerCount = parsed
		}
	}

	syncInterval := time.Duration(0)
	if raw := os.Getenv("SYNC_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			slog.With("value", raw).Warn("invalid SYNC_INTERVAL, using default")
		} else {
			syncInterval = parsed
		}
	}

	smtpPort := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			slog.With("value", raw).Warn("invalid SMTP_PORT, using default")
		} else {
			smtpPort = parsed
		}
	}

	return environment{
		Port:         port,
		NatsURL:      natsURL,
		WorkerCount:  workerCount,
		SyncInterval: syncInterval,
		Google: googleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		Microsoft: microsoftConfig{
			ClientID:     os.Getenv("MICROSOFT_CLIENT_ID"),
			ClientSecret: os.Getenv("MICROSOFT_CLIENT_SECRET"),
			TenantID:     os.Getenv("MICROSOFT_TENANT_ID"),
			RedirectURL:  os.Getenv("MICROSOFT_REDIRECT_URL"),
		},
		Zoom: zoomConfig{
			AccountID:          os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:           os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret:       os.Getenv("ZOOM_CLIENT_SECRET"),
			WebhookSecretToken: os.Getenv("ZOOM_WEBHOOK_SECRET_TOKEN"),
		},
		GoogleChannelToken: os.Getenv("GOOGLE_WEBHOOK_CHANNEL_TOKEN"),
		Summarizer: summarizerConfig{
			BaseURL: os.Getenv("SUMMARIZER_BASE_URL"),
			APIKey:  os.Getenv("SUMMARIZER_API_KEY"),
		},
		SMTP: smtpConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			From:     os.Getenv("SMTP_FROM"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}
