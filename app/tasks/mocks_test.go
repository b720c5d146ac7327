package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/syncer"
)

// MockSyncer records the runs it was asked to perform
type MockSyncer struct {
	allCalls [][]database.Channel
	oneCalls []string
	triggers []string
	summary  syncer.Summary
}

func (m *MockSyncer) SyncAll(ctx context.Context, trigger string, channels []database.Channel) syncer.Summary {
	m.allCalls = append(m.allCalls, channels)
	m.triggers = append(m.triggers, trigger)
	return m.summary
}

func (m *MockSyncer) SyncOne(ctx context.Context, trigger, channelID string) syncer.Summary {
	m.oneCalls = append(m.oneCalls, channelID)
	m.triggers = append(m.triggers, trigger)
	return m.summary
}

type MockVerifier struct {
	identity *ideas.WorkspaceIdentity
	err      error
	calls    int
}

func (m *MockVerifier) AuthTest(ctx context.Context, token string) (*ideas.WorkspaceIdentity, error) {
	m.calls++
	return m.identity, m.err
}

type MockWorkspaceRepository struct {
	workspaces map[string]*database.Workspace
}

func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{workspaces: make(map[string]*database.Workspace)}
}

func (m *MockWorkspaceRepository) GetWorkspace(id string) (*database.Workspace, error) {
	return m.workspaces[id], nil
}

func (m *MockWorkspaceRepository) GetWorkspaces() ([]database.Workspace, error) {
	var result []database.Workspace
	for _, w := range m.workspaces {
		result = append(result, *w)
	}
	return result, nil
}

func (m *MockWorkspaceRepository) GetWorkspaceCount() (int, error) {
	return len(m.workspaces), nil
}

func (m *MockWorkspaceRepository) UpsertWorkspace(workspace database.Workspace) error {
	if existing, ok := m.workspaces[workspace.ID]; ok {
		if workspace.BotUserID == "" {
			workspace.BotUserID = existing.BotUserID
		}
		if workspace.BotID == "" {
			workspace.BotID = existing.BotID
		}
	}
	m.workspaces[workspace.ID] = &workspace
	return nil
}

func (m *MockWorkspaceRepository) UpdateBotIdentity(id, botUserID, botID string) error {
	if w, ok := m.workspaces[id]; ok {
		w.BotUserID = botUserID
		w.BotID = botID
	}
	return nil
}

type MockChannelRepository struct {
	channels []database.Channel
	err      error
}

func (m *MockChannelRepository) GetChannel(id string) (*database.Channel, error) {
	for i := range m.channels {
		if m.channels[i].ID == id {
			return &m.channels[i], nil
		}
	}
	return nil, nil
}

func (m *MockChannelRepository) GetChannels() ([]database.Channel, error) {
	return m.channels, m.err
}

func (m *MockChannelRepository) GetEnabledChannels() ([]database.Channel, error) {
	if m.err != nil {
		return nil, m.err
	}
	var enabled []database.Channel
	for _, channel := range m.channels {
		if channel.Enabled {
			enabled = append(enabled, channel)
		}
	}
	return enabled, nil
}

func (m *MockChannelRepository) GetChannelCount() (int, error) {
	return len(m.channels), nil
}

func (m *MockChannelRepository) UpsertChannel(channel database.Channel) error {
	for i := range m.channels {
		if m.channels[i].ID == channel.ID {
			m.channels[i] = channel
			return nil
		}
	}
	m.channels = append(m.channels, channel)
	return nil
}

func (m *MockChannelRepository) UpdateSyncState(id, cursor string, syncedAt time.Time) error {
	return nil
}

type linkUpdate struct {
	id      int64
	status  string
	title   string
	excerpt string
}

type linkFailure struct {
	id          int64
	message     string
	maxAttempts int
}

// MockIdeaRepository serves pending links and records what the task wrote back
type MockIdeaRepository struct {
	links    []database.IdeaLink
	updates  []linkUpdate
	failures []linkFailure
	err      error
}

func (m *MockIdeaRepository) GetIdea(id string) (*database.Idea, error) {
	return nil, nil
}

func (m *MockIdeaRepository) GetIdeas(filter database.IdeaFilter) ([]database.Idea, error) {
	return nil, nil
}

func (m *MockIdeaRepository) GetIdeaCount() (int, error) {
	return 0, nil
}

func (m *MockIdeaRepository) GetIdeaLinks(ideaID string) ([]database.IdeaLink, error) {
	return nil, nil
}

func (m *MockIdeaRepository) CreateIdea(messageRowID int64, idea database.Idea, links []database.IdeaLink) error {
	return nil
}

func (m *MockIdeaRepository) GetLinksForExtraction(limit int) ([]database.IdeaLink, error) {
	return m.links, m.err
}

func (m *MockIdeaRepository) UpdateLinkPreview(id int64, status, title, excerpt string, extractedAt time.Time) error {
	m.updates = append(m.updates, linkUpdate{id: id, status: status, title: title, excerpt: excerpt})
	return nil
}

func (m *MockIdeaRepository) RecordLinkFailure(id int64, errorMsg string, maxAttempts int) error {
	m.failures = append(m.failures, linkFailure{id: id, message: errorMsg, maxAttempts: maxAttempts})
	return nil
}
