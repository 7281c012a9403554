// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

// Package main is the meeting intelligence service: it mirrors calendars
// from connected providers, watches for ended meetings, discovers their
// recordings, summarizes the transcripts and emails the summaries out. It
// serves provider webhooks and a small ops surface over HTTP and consumes
// recheck work items from NATS.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/email"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/google"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/messaging"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/microsoft"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/providers"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/summarizer"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/webhook"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom"
	zoomapi "github.com/annix/fieldflow-meeting-intel/internal/infrastructure/zoom/api"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/internal/service"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

func main() {
	logging.InitStructuredLogConfig()

	env := parseEnv()
	flags := parseFlags(env.Port)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	tracerShutdown, err := setupTracing(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up tracing")
		os.Exit(1)
	}

	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		os.Exit(1)
	}

	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	messageBuilder := messaging.NewMessageBuilder(natsConn)
	calendarRegistry, recordingRegistry := setupProviders(env)
	emailService := setupEmailService(env)
	summarizerClient := setupSummarizer(env)

	// Initialize services
	serviceConfig := service.NewServiceConfig()
	if env.SyncInterval > 0 {
		serviceConfig.SyncInterval = env.SyncInterval
	}

	accountService := service.NewAccountService(repos.Account, repos.Event, repos.Record)
	syncService := service.NewSyncService(repos.Account, repos.Event, repos.Record, calendarRegistry, serviceConfig)
	discoveryService := service.NewDiscoveryService(repos.Recording, recordingRegistry)
	notificationService := service.NewNotificationService(emailService)
	orchestratorService := service.NewOrchestratorService(
		repos.Account,
		repos.Event,
		repos.Record,
		repos.Recording,
		repos.Summary,
		calendarRegistry,
		recordingRegistry,
		discoveryService,
		notificationService,
		summarizerClient,
		serviceConfig,
	)
	scheduler := service.NewScheduler(
		repos.Account,
		repos.Record,
		syncService,
		orchestratorService,
		serviceConfig,
		env.WorkerCount,
	)

	webhookRegistry := setupWebhooks(env, repos, messageBuilder)

	httpServer := setupHTTPServer(flags, serverDeps{
		Webhooks:     webhookRegistry,
		Accounts:     accountService,
		Orchestrator: orchestratorService,
		Publisher:    messageBuilder,
		Ready: func() bool {
			return natsConn.IsConnected() && scheduler.HandlerReady()
		},
	}, &gracefulCloseWG)

	if err := createNatsSubscriptions(ctx, scheduler, natsConn); err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// The polling loop is the backstop for providers without webhooks and
	// for anything a webhook delivery missed.
	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		scheduler.Run(ctx)
	}()

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, tracerShutdown, &gracefulCloseWG, cancel)
}

// setupProviders registers the calendar and recording adapters for every
// provider with configured credentials. Unconfigured providers stay out of
// the registries; connecting an account for one fails loudly at sync time.
func setupProviders(env environment) (*providers.CalendarRegistry, *providers.RecordingRegistry) {
	calendars := providers.NewCalendarRegistry()
	recordings := providers.NewRecordingRegistry()

	if env.Google.ClientID != "" {
		factory := google.NewServiceFactory(google.Config{
			ClientID:     env.Google.ClientID,
			ClientSecret: env.Google.ClientSecret,
			RedirectURL:  env.Google.RedirectURL,
		})
		calendars.RegisterProvider(models.ProviderGoogle, google.NewCalendarAdapter(factory))
		recordings.RegisterProvider(models.PlatformMeet, google.NewMeetRecordingAdapter(factory))
		slog.Info("google provider registered")
	}

	if env.Microsoft.ClientID != "" {
		client := microsoft.NewClient(microsoft.Config{
			ClientID:     env.Microsoft.ClientID,
			ClientSecret: env.Microsoft.ClientSecret,
			TenantID:     env.Microsoft.TenantID,
			RedirectURL:  env.Microsoft.RedirectURL,
		})
		calendars.RegisterProvider(models.ProviderMicrosoft, microsoft.NewCalendarAdapter(client))
		recordings.RegisterProvider(models.PlatformTeams, microsoft.NewRecordingAdapter(client))
		slog.Info("microsoft provider registered")
	}

	if env.Zoom.ClientID != "" {
		client := zoomapi.NewClient(zoomapi.Config{
			AccountID:    env.Zoom.AccountID,
			ClientID:     env.Zoom.ClientID,
			ClientSecret: env.Zoom.ClientSecret,
		})
		calendars.RegisterProvider(models.ProviderZoom, zoom.NewCalendarAdapter(client))
		recordings.RegisterProvider(models.PlatformZoom, zoom.NewRecordingAdapter(client))
		slog.Info("zoom provider registered")
	}

	return calendars, recordings
}

// setupEmailService selects SMTP delivery when a host is configured and the
// logging no-op otherwise.
func setupEmailService(env environment) domain.EmailService {
	if env.SMTP.Host == "" {
		slog.Info("SMTP not configured, summary emails disabled")
		return email.NewNoOpService()
	}
	svc, err := email.NewSMTPService(email.SMTPConfig{
		Host:     env.SMTP.Host,
		Port:     env.SMTP.Port,
		From:     env.SMTP.From,
		Username: env.SMTP.Username,
		Password: env.SMTP.Password,
	})
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up email service, summary emails disabled")
		return email.NewNoOpService()
	}
	return svc
}

// setupSummarizer selects the HTTP summarizer when an endpoint is
// configured and the canned no-op otherwise.
func setupSummarizer(env environment) domain.Summarizer {
	if env.Summarizer.BaseURL == "" {
		slog.Info("summarizer not configured, using canned summaries")
		return summarizer.NoOpSummarizer{}
	}
	return summarizer.NewClient(summarizer.Config{
		BaseURL: env.Summarizer.BaseURL,
		APIKey:  env.Summarizer.APIKey,
	})
}

// setupWebhooks registers one handler per provider that pushes events.
func setupWebhooks(env environment, repos *repositories, publisher domain.WorkPublisher) *webhook.Registry {
	registry := webhook.NewRegistry()
	registry.RegisterHandler(constants.WebhookSourceZoom,
		webhook.NewZoomWebhookHandler(env.Zoom.WebhookSecretToken, repos.Account, publisher))
	registry.RegisterHandler(constants.WebhookSourceGoogle,
		webhook.NewGoogleWebhookHandler(env.GoogleChannelToken, publisher))
	registry.RegisterHandler(constants.WebhookSourceMicrosoft,
		webhook.NewMicrosoftWebhookHandler(env.Microsoft.ClientSecret, publisher))
	return registry
}

// gracefulShutdown drains the HTTP server, the NATS connection and the
// trace exporter before letting the process exit.
func gracefulShutdown(
	httpServer *http.Server,
	natsConn *nats.Conn,
	tracerShutdown func(context.Context) error,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	slog.Info("shutting down")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down http server")
	}
	gracefulCloseWG.Done()

	if natsConn.IsConnected() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}
	gracefulCloseWG.Done()

	if err := tracerShutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down trace exporter")
	}

	gracefulCloseWG.Wait()
	slog.Info("shutdown complete")
}
