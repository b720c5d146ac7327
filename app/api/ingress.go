package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/slackapi"
	"github.com/lysyi3m/idea-comb/app/syncer"
	"github.com/lysyi3m/idea-comb/app/webhook"
)

const maxWebhookBody = 1 << 20

// PostWebhook verifies and decodes a Slack Events API delivery.
func (h *Handler) PostWebhook(c *gin.Context) {
	if h.settings.SigningSecret == "" {
		slog.Error("Webhook received but SLACK_SIGNING_SECRET is not set")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook signing secret is not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	verifier, err := slack.NewSecretsVerifier(c.Request.Header, h.settings.SigningSecret)
	if err != nil {
		slog.Warn("Webhook signature headers rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}
	if _, err := verifier.Write(body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify signature"})
		return
	}
	if err := verifier.Ensure(); err != nil {
		slog.Warn("Webhook signature mismatch", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	if retry := c.GetHeader("X-Slack-Retry-Num"); retry != "" {
		slog.Info("Slack redelivery", "retry", retry, "reason", c.GetHeader("X-Slack-Retry-Reason"))
	}

	apiEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		slog.Warn("Failed to parse webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	ack := h.receiver.Handle(c.Request.Context(), toEvent(apiEvent))
	c.JSON(http.StatusOK, ack)
}

func toEvent(apiEvent slackevents.EventsAPIEvent) webhook.Event {
	switch apiEvent.Type {
	case slackevents.URLVerification:
		event := webhook.Event{Type: webhook.EventURLVerification}
		if data, ok := apiEvent.Data.(*slackevents.EventsAPIURLVerificationEvent); ok {
			event.Challenge = data.Challenge
		}
		return event

	case slackevents.CallbackEvent:
		event := webhook.Event{Type: webhook.EventCallback, TeamID: apiEvent.TeamID}
		if message, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			raw := slackapi.FromEvent(message)
			event.ChannelID = message.Channel
			event.Message = &raw
		}
		return event
	}

	return webhook.Event{Type: apiEvent.Type}
}

// Sync runs a sync inline and returns its summary. A channelId in the body or
// query narrows it to one channel.
func (h *Handler) Sync(c *gin.Context) {
	cronTriggered := c.GetHeader("X-Cron-Trigger") == "1"

	if !h.syncAuthorized(c, cronTriggered) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req syncRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if req.ChannelID == "" {
		req.ChannelID = c.Query("channelId")
	}

	trigger := database.TriggerManual
	if cronTriggered && req.ChannelID == "" {
		trigger = database.TriggerScheduled
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.settings.SyncTimeout)
	defer cancel()

	var summary syncer.Summary
	if req.ChannelID != "" {
		summary = h.syncer.SyncOne(ctx, trigger, req.ChannelID)
	} else {
		channels, err := h.channelRepo.GetEnabledChannels()
		if err != nil {
			slog.Error("Database error", "operation", "get_enabled_channels", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		summary = h.syncer.SyncAll(ctx, trigger, channels)
	}

	status := http.StatusOK
	if !summary.Success {
		status = http.StatusInternalServerError
	}

	c.JSON(status, summary)
}

func (h *Handler) syncAuthorized(c *gin.Context, cronTriggered bool) bool {
	if h.settings.SyncSecret == "" || cronTriggered {
		return true
	}

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	return strings.TrimPrefix(authHeader, "Bearer ") == h.settings.SyncSecret
}
