package api

import (
	"context"
	"time"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/feed"
	"github.com/lysyi3m/idea-comb/app/search"
	"github.com/lysyi3m/idea-comb/app/tasks"
	"github.com/lysyi3m/idea-comb/app/webhook"
)

type GeneratorInterface interface {
	Run(channel database.Channel, ideas []database.Idea, links map[string][]database.IdeaLink) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Searcher interface {
	Search(queryStr string, limit int) ([]search.Result, error)
}

var _ Searcher = (*search.Index)(nil)

type EventReceiver interface {
	Handle(ctx context.Context, event webhook.Event) webhook.Ack
}

var _ EventReceiver = (*webhook.Receiver)(nil)

type Repositories struct {
	Workspaces database.WorkspaceRepository
	Channels   database.ChannelRepository
	Messages   database.MessageRepository
	Ideas      database.IdeaRepository
	SyncJobs   database.SyncJobRepository
}

type Settings struct {
	SigningSecret string
	SyncSecret    string
	SyncTimeout   time.Duration
}

type Handler struct {
	workspaceRepo database.WorkspaceRepository
	channelRepo   database.ChannelRepository
	messageRepo   database.MessageRepository
	ideaRepo      database.IdeaRepository
	syncJobRepo   database.SyncJobRepository
	generator     GeneratorInterface
	receiver      EventReceiver
	syncer        tasks.ChannelSyncer
	searcher      Searcher
	verifier      tasks.CredentialVerifier
	settings      Settings
}

type syncRequest struct {
	ChannelID string `json:"channelId" form:"channelId"`
}
