package database

import (
	"errors"
	"time"
)

// ErrAlreadyConverted is returned by CreateIdea when the source message
// already produced an idea.
var ErrAlreadyConverted = errors.New("message already converted to idea")

type WorkspaceRepository interface {
	GetWorkspace(id string) (*Workspace, error)
	GetWorkspaces() ([]Workspace, error)
	GetWorkspaceCount() (int, error)

	UpsertWorkspace(workspace Workspace) error
	UpdateBotIdentity(id, botUserID, botID string) error
}

type ChannelRepository interface {
	GetChannel(id string) (*Channel, error)
	GetChannels() ([]Channel, error)
	GetEnabledChannels() ([]Channel, error)
	GetChannelCount() (int, error)

	UpsertChannel(channel Channel) error
	UpdateSyncState(id, cursor string, syncedAt time.Time) error
}

type MessageRepository interface {
	GetMessage(channelID, messageID string) (*StoredMessage, error)
	GetMessageCount() (int, error)

	UpsertMessage(message StoredMessage) (*StoredMessage, error)
	MarkProcessed(id int64) error
}

type IdeaFilter struct {
	ChannelID string
	Status    string
	Limit     int
}

type IdeaRepository interface {
	GetIdea(id string) (*Idea, error)
	GetIdeas(filter IdeaFilter) ([]Idea, error)
	GetIdeaCount() (int, error)
	GetIdeaLinks(ideaID string) ([]IdeaLink, error)

	CreateIdea(messageRowID int64, idea Idea, links []IdeaLink) error

	GetLinksForExtraction(limit int) ([]IdeaLink, error)
	UpdateLinkPreview(id int64, status, title, excerpt string, extractedAt time.Time) error
	RecordLinkFailure(id int64, errorMsg string, maxAttempts int) error
}

type SyncJobRepository interface {
	GetRecentSyncJobs(limit int) ([]SyncJob, error)

	CreateSyncJob(job SyncJob) error
}
