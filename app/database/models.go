package database

import (
	"time"
)

// Channel cadences
const (
	CadenceRealtime = "realtime"
	CadenceHourly   = "hourly"
	CadenceDaily    = "daily"
)

// Sync triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerRealtime  = "realtime"
)

// Link extraction statuses
const (
	LinkStatusPending = "pending"
	LinkStatusSuccess = "success"
	LinkStatusFailed  = "failed"
	LinkStatusSkipped = "skipped"
)

type Workspace struct {
	ID        string // Slack team id
	Name      string
	BotToken  string
	BotUserID string
	BotID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Channel struct {
	ID           string // Slack channel id
	WorkspaceID  string
	Name         string
	Cadence      string
	Enabled      bool
	AutoApprove  bool
	LastCursor   string // ts of the newest message seen
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StoredMessage struct {
	ID              int64
	ChannelID       string
	MessageID       string
	AuthorID        string
	AuthorName      string
	Text            string
	MessageTS       string
	ThreadTS        string
	Subtype         string
	IsProcessed     bool
	ConvertedToIdea bool
	IdeaID          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Idea struct {
	ID          string
	ChannelID   string
	MessageID   string
	Title       string
	Description string
	Priority    string
	Category    string
	Hashtags    []string
	Status      string
	AuthorName  string
	CreatedAt   time.Time
}

type IdeaLink struct {
	ID          int64
	IdeaID      string
	URL         string
	Label       string
	Status      string // pending, success, failed, skipped
	Title       string
	Excerpt     string
	Attempts    int
	Error       string
	ExtractedAt *time.Time
}

type SyncJob struct {
	ID                string
	Trigger           string
	ChannelID         string // empty for fan-out runs
	ChannelsSynced    int
	MessagesFetched   int
	MessagesProcessed int
	IdeasCreated      int
	Errors            []string
	Success           bool
	StartedAt         time.Time
	FinishedAt        time.Time
}
