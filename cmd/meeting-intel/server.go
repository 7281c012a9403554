// Copyright Annix and each contributor to FieldFlow.
// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annix/fieldflow-meeting-intel/internal/domain"
	"github.com/annix/fieldflow-meeting-intel/internal/domain/models"
	"github.com/annix/fieldflow-meeting-intel/internal/logging"
	"github.com/annix/fieldflow-meeting-intel/internal/service"
)

// maxWebhookBodySize caps inbound webhook payloads at 1 MiB.
const maxWebhookBodySize = 1 << 20

// serverDeps are the handlers and services the HTTP surface exposes.
type serverDeps struct {
	Webhooks     domain.WebhookRegistry
	Accounts     *service.AccountService
	Orchestrator *service.OrchestratorService
	Publisher    domain.WorkPublisher
	Ready        func() bool
}

// connectAccountPayload is the JSON body for connecting an account.
type connectAccountPayload struct {
	Provider     string    `json:"provider" binding:"required"`
	OwnerEmail   string    `json:"owner_email" binding:"required"`
	OwnerName    string    `json:"owner_name"`
	AccessToken  string    `json:"access_token" binding:"required"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// errorStatus maps the error taxonomy onto HTTP statuses for the ops
// surface.
func errorStatus(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

// requestLogger logs one line per request the way the rest of the service
// logs: structured, with duration and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// newRouter builds the webhook and ops HTTP surface.
func newRouter(deps serverDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.POST("/webhooks/:source", func(c *gin.Context) {
		handleWebhook(c, deps.Webhooks)
	})

	router.GET("/livez", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/readyz", func(c *gin.Context) {
		if deps.Ready != nil && !deps.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "OK")
	})

	router.GET("/failed", func(c *gin.Context) {
		failed, err := deps.Orchestrator.ListFailed(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, failed)
	})
	router.POST("/failed/:account/:event/retry", func(c *gin.Context) {
		ref := models.NewMeetingRef(c.Param("account"), c.Param("event"))
		// Recurring meetings track one ledger entry per occurrence; the
		// occurrence query parameter selects which one to re-arm.
		if occurrence := c.Query("occurrence"); occurrence != "" {
			ref = models.NewOccurrenceRef(c.Param("account"), c.Param("event"), occurrence)
		}
		record, err := deps.Orchestrator.RetryFailed(c.Request.Context(), ref)
		if err != nil {
			abortWithError(c, err)
			return
		}
		// Give the re-armed meeting an immediate dispatch rather than
		// waiting for the next polling tick.
		if err := deps.Publisher.PublishWorkItem(c.Request.Context(), domain.WorkItem{
			Kind:       domain.WorkAdvanceMeeting,
			MeetingRef: ref,
		}); err != nil {
			slog.WarnContext(c.Request.Context(), "failed to dispatch re-armed meeting", logging.ErrKey, err)
		}
		c.JSON(http.StatusOK, record)
	})

	router.POST("/accounts", func(c *gin.Context) {
		var payload connectAccountPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := deps.Accounts.Connect(c.Request.Context(), service.ConnectAccountRequest{
			Provider:     models.Provider(payload.Provider),
			OwnerEmail:   payload.OwnerEmail,
			OwnerName:    payload.OwnerName,
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
			TokenExpiry:  payload.TokenExpiry,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := deps.Publisher.PublishWorkItem(c.Request.Context(), domain.WorkItem{
			Kind:       domain.WorkSyncAccount,
			AccountUID: account.UID,
		}); err != nil {
			slog.WarnContext(c.Request.Context(), "failed to dispatch initial sync", logging.ErrKey, err)
		}
		c.JSON(http.StatusCreated, account)
	})
	router.GET("/accounts", func(c *gin.Context) {
		accounts, err := deps.Accounts.List(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	})
	router.GET("/accounts/:uid", func(c *gin.Context) {
		account, err := deps.Accounts.Get(c.Request.Context(), c.Param("uid"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	})
	router.DELETE("/accounts/:uid", func(c *gin.Context) {
		if err := deps.Accounts.Disconnect(c.Request.Context(), c.Param("uid")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.POST("/accounts/:uid/sync", func(c *gin.Context) {
		if _, err := deps.Accounts.Get(c.Request.Context(), c.Param("uid")); err != nil {
			abortWithError(c, err)
			return
		}
		if err := deps.Publisher.PublishWorkItem(c.Request.Context(), domain.WorkItem{
			Kind:       domain.WorkSyncAccount,
			AccountUID: c.Param("uid"),
		}); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusAccepted)
	})

	return router
}

// handleWebhook reads the raw body and hands it to the provider's handler.
// The body stays untouched so signature validation sees the wire bytes.
func handleWebhook(c *gin.Context, registry domain.WebhookRegistry) {
	handler, err := registry.GetHandler(c.Param("source"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown webhook source"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	resp, err := handler.HandleEvent(c.Request.Context(), c.Request.Header, c.Request.URL.Query(), body)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "webhook rejected",
			logging.ErrKey, err, "source", c.Param("source"))
		if resp == nil {
			abortWithError(c, err)
			return
		}
	}

	switch body := resp.Body.(type) {
	case nil:
		c.Status(resp.StatusCode)
	case string:
		// Microsoft's validation handshake expects the token echoed as
		// plain text.
		c.String(resp.StatusCode, "%s", body)
	default:
		c.JSON(resp.StatusCode, body)
	}
}

// setupHTTPServer configures and starts the HTTP server.
func setupHTTPServer(flags flags, deps serverDeps, gracefulCloseWG *sync.WaitGroup) *http.Server {
	if !flags.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 3 * time.Second,
	}

	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// ErrServerClosed is returned the moment Shutdown starts, not
		// when it completes, so the wait group is decremented by the
		// shutdown path instead.
	}()

	return httpServer
}
