package ideas

// Priorities assigned by the extractor
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Idea statuses
const (
	StatusDraft = "draft"
	StatusReady = "ready"
)

type Reaction struct {
	Name  string
	Count int
}

// RawMessage is the subset of an upstream message the pipeline works with.
// ID is the message ts, which is unique within a channel.
type RawMessage struct {
	ID           string
	Author       string
	BotID        string
	Text         string
	Timestamp    string
	ThreadParent string
	Subtype      string
	Attachments  int
	Reactions    []Reaction
}

// WorkspaceIdentity identifies the bot installed in a workspace.
type WorkspaceIdentity struct {
	ID        string
	Name      string
	BotUserID string
	BotID     string
}

type ChannelSettings struct {
	ID          string
	Name        string
	AutoApprove bool
}

type Link struct {
	URL   string
	Label string
}

type Candidate struct {
	Title       string
	Description string
	Priority    string
	Category    string
	Hashtags    []string
	Status      string
	Links       []Link
}
