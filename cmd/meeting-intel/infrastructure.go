// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/messaging"
	"github.com/annix/fieldflow-meeting-intel/internal/infrastructure/store"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/pkg/constants"
)

// workQueueGroup makes every service replica share one work-item
// subscription, so a published item is dispatched to exactly one consumer.
const workQueueGroup = "fieldflow-meeting-intel"

// repositories bundles the NATS KV backed stores the services use.
type repositories struct {
	Account   *store.NatsAccountRepository
	Event     *store.NatsCalendarEventRepository
	Record    *store.NatsProcessingRecordRepository
	Recording *store.NatsMeetingRecordingRepository
	Summary   *store.NatsMeetingSummaryRepository
}

// setupNATS connects to the NATS server with reconnect behavior suited for
// a long-running worker.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.DrainTimeout(25*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "connected to NATS server", "url", env.NatsURL)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.ErrorContext(ctx, "async NATS error inside subscription", logging.ErrKey, err, "subject", s.Subject)
				return
			}
			slog.ErrorContext(ctx, "async NATS error", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			err := conn.LastError()
			if err != nil {
				slog.ErrorContext(ctx, "NATS connection closed", logging.ErrKey, err, logging.PriorityCritical())
			}
			// Exit the main loop once the connection is gone for good.
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	gracefulCloseWG.Add(1)
	return natsConn, nil
}

// getKeyValueStores creates or binds the KV buckets and wraps them in the
// entity repositories.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	buckets := map[string]jetstream.KeyValue{}
	for _, name := range []string{
		store.KVStoreNameAccounts,
		store.KVStoreNameCalendarEvents,
		store.KVStoreNameMeetingRecordings,
		store.KVStoreNameMeetingSummaries,
		store.KVStoreNameProcessingRecords,
	} {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
		if err != nil {
			return nil, err
		}
		buckets[name] = kv
	}

	return &repositories{
		Account:   store.NewNatsAccountRepository(buckets[store.KVStoreNameAccounts]),
		Event:     store.NewNatsCalendarEventRepository(buckets[store.KVStoreNameCalendarEvents]),
		Record:    store.NewNatsProcessingRecordRepository(buckets[store.KVStoreNameProcessingRecords]),
		Recording: store.NewNatsMeetingRecordingRepository(buckets[store.KVStoreNameMeetingRecordings]),
		Summary:   store.NewNatsMeetingSummaryRepository(buckets[store.KVStoreNameMeetingSummaries]),
	}, nil
}

// createNatsSubscriptions subscribes the dispatch handler to the work-item
// subject on the shared queue group.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	_, err := natsConn.QueueSubscribe(constants.WorkItemSubject, workQueueGroup, func(msg *nats.Msg) {
		handler.HandleMessage(ctx, messaging.WrapNatsMsg(msg))
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "subscribed to work items", "subject", constants.WorkItemSubject, "queue", workQueueGroup)
	return nil
}

// setupTracing installs the OTLP trace exporter when an endpoint is
// configured. Without one the global no-op tracer stays in place and spans
// cost nothing.
func setupTracing(ctx context.Context, env environment) (func(context.Context) error, error) {
	if env.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.New(ctx)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	slog.InfoContext(ctx, "tracing enabled", "endpoint", env.OTLPEndpoint)
	return provider.Shutdown, nil
}
