package tasks

import (
	"context"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/syncer"
)

// TaskSchedulerInterface is what main and the webhook receiver see of the
// background worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueChannelSync(channelID string) error
}

type ChannelSyncer interface {
	SyncAll(ctx context.Context, trigger string, channels []database.Channel) syncer.Summary
	SyncOne(ctx context.Context, trigger, channelID string) syncer.Summary
}

// CredentialVerifier resolves the bot identity behind a token.
type CredentialVerifier interface {
	AuthTest(ctx context.Context, token string) (*ideas.WorkspaceIdentity, error)
}
