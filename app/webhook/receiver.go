package webhook

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
)

const (
	EventURLVerification = "url_verification"
	EventCallback        = "event_callback"
)

// Event is the decoded part of a Slack Events API delivery the receiver acts on.
type Event struct {
	Type      string
	Challenge string
	TeamID    string
	ChannelID string
	Message   *ideas.RawMessage // nil for non-message callbacks
}

type Ack struct {
	OK        bool   `json:"ok,omitempty"`
	Challenge string `json:"challenge,omitempty"`
}

// SyncQueue hands a realtime channel over to the background workers.
type SyncQueue interface {
	EnqueueChannelSync(channelID string) error
}

type Receiver struct {
	workspaces database.WorkspaceRepository
	channels   database.ChannelRepository
	messages   database.MessageRepository
	filter     *ideas.Filter
	queue      SyncQueue
	minLength  int
}

func NewReceiver(workspaces database.WorkspaceRepository, channels database.ChannelRepository,
	messages database.MessageRepository, queue SyncQueue, minLength int) *Receiver {
	return &Receiver{
		workspaces: workspaces,
		channels:   channels,
		messages:   messages,
		filter:     ideas.NewFilter(),
		queue:      queue,
		minLength:  minLength,
	}
}

// Handle stores an incoming message and wakes realtime channels. Failures are
// logged only; Slack always gets an ok so it does not redeliver.
func (r *Receiver) Handle(ctx context.Context, event Event) Ack {
	if event.Type == EventURLVerification {
		return Ack{Challenge: event.Challenge}
	}

	if event.Type != EventCallback || event.Message == nil {
		return Ack{OK: true}
	}

	r.handleMessage(event)
	return Ack{OK: true}
}

func (r *Receiver) handleMessage(event Event) {
	raw := *event.Message

	channel, err := r.channels.GetChannel(event.ChannelID)
	if err != nil {
		slog.Error("Webhook channel lookup failed", "channel", event.ChannelID, "error", err)
		return
	}
	if channel == nil {
		slog.Debug("Webhook for unknown channel ignored", "channel", event.ChannelID, "team", event.TeamID)
		return
	}
	if !channel.Enabled {
		slog.Debug("Webhook for disabled channel ignored", "channel", channel.ID)
		return
	}

	workspace, err := r.workspaces.GetWorkspace(channel.WorkspaceID)
	if err != nil {
		slog.Error("Webhook workspace lookup failed", "workspace", channel.WorkspaceID, "error", err)
		return
	}
	if workspace == nil {
		slog.Warn("Webhook channel has no workspace", "channel", channel.ID, "workspace", channel.WorkspaceID)
		return
	}

	identity := ideas.WorkspaceIdentity{ID: workspace.ID, Name: workspace.Name, BotUserID: workspace.BotUserID, BotID: workspace.BotID}
	if accepted, reason := r.filter.Check(raw, identity, r.minLength); !accepted {
		slog.Debug("Webhook message filtered", "channel", channel.ID, "message", raw.ID, "reason", reason)
		return
	}

	_, err = r.messages.UpsertMessage(database.StoredMessage{
		ChannelID:  channel.ID,
		MessageID:  raw.ID,
		AuthorID:   raw.Author,
		AuthorName: raw.Author,
		Text:       raw.Text,
		MessageTS:  raw.Timestamp,
		ThreadTS:   raw.ThreadParent,
		Subtype:    raw.Subtype,
	})
	if err != nil {
		slog.Error("Webhook message store failed", "channel", channel.ID, "message", raw.ID, "error", err)
		return
	}

	slog.Debug("Webhook message stored", "channel", channel.ID, "message", raw.ID)

	if channel.Cadence != database.CadenceRealtime || r.queue == nil {
		return
	}

	if err := r.queue.EnqueueChannelSync(channel.ID); err != nil {
		slog.Warn("Failed to enqueue realtime sync", "channel", channel.ID, "error", err)
	}
}
