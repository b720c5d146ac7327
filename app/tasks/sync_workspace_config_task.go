package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/workspace"
)

type SyncWorkspaceConfigTask struct {
	Task
	Config        *workspace.Config
	workspaceRepo database.WorkspaceRepository
	channelRepo   database.ChannelRepository
	verifier      CredentialVerifier
}

func NewSyncWorkspaceConfigTask(config *workspace.Config, workspaceRepo database.WorkspaceRepository,
	channelRepo database.ChannelRepository, verifier CredentialVerifier) *SyncWorkspaceConfigTask {
	return &SyncWorkspaceConfigTask{
		Task:          NewTask(TaskTypeSyncWorkspaceConfig, config.ID, DefaultMaxRetries),
		Config:        config,
		workspaceRepo: workspaceRepo,
		channelRepo:   channelRepo,
		verifier:      verifier,
	}
}

func (t *SyncWorkspaceConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	name := t.Config.DisplayName
	if name == "" {
		name = t.Config.Name
	}

	err := t.workspaceRepo.UpsertWorkspace(database.Workspace{
		ID:       t.Config.ID,
		Name:     name,
		BotToken: t.Config.BotToken,
	})
	if err != nil {
		return fmt.Errorf("failed to sync workspace config to database: %w", err)
	}

	for _, channelConfig := range t.Config.Channels {
		err := t.channelRepo.UpsertChannel(database.Channel{
			ID:          channelConfig.ID,
			WorkspaceID: t.Config.ID,
			Name:        channelConfig.Name,
			Cadence:     channelConfig.Cadence,
			Enabled:     channelConfig.IsEnabled(),
			AutoApprove: channelConfig.AutoApprove,
		})
		if err != nil {
			return fmt.Errorf("failed to sync channel %s: %w", channelConfig.ID, err)
		}
	}

	t.verifyIdentity(ctx)

	slog.Info("Task completed",
		"type", t.GetType(),
		"workspace", t.Config.ID,
		"duration", t.GetDuration(),
		"channels", len(t.Config.Channels))

	return nil
}

// verifyIdentity learns the bot ids used for echo filtering. A failure keeps
// the workspace; its syncs will surface the credential problem.
func (t *SyncWorkspaceConfigTask) verifyIdentity(ctx context.Context) {
	if t.verifier == nil || t.Config.BotToken == "" {
		return
	}

	stored, err := t.workspaceRepo.GetWorkspace(t.Config.ID)
	if err != nil {
		slog.Warn("Failed to load workspace for verification", "workspace", t.Config.ID, "error", err)
		return
	}
	if stored != nil && stored.BotUserID != "" {
		return
	}

	identity, err := t.verifier.AuthTest(ctx, t.Config.BotToken)
	if err != nil {
		slog.Error("Workspace credential verification failed", "workspace", t.Config.ID, "error", err)
		return
	}

	if identity.ID != "" && identity.ID != t.Config.ID {
		slog.Warn("Bot token belongs to another workspace", "workspace", t.Config.ID, "token_workspace", identity.ID)
	}

	if err := t.workspaceRepo.UpdateBotIdentity(t.Config.ID, identity.BotUserID, identity.BotID); err != nil {
		slog.Error("Failed to store bot identity", "workspace", t.Config.ID, "error", err)
	}
}
