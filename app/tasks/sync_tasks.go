package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/syncer"
)

// Sync tasks are never retried by the scheduler. A failed run is already in
// the ledger and the next tick picks the channels up again.

type SyncAllTask struct {
	Task
	Trigger  string
	Channels []database.Channel
	syncer   ChannelSyncer
}

func NewSyncAllTask(trigger string, channels []database.Channel, channelSyncer ChannelSyncer) *SyncAllTask {
	return &SyncAllTask{
		Task:     NewTask(TaskTypeSyncAll, "", 0),
		Trigger:  trigger,
		Channels: channels,
		syncer:   channelSyncer,
	}
}

func (t *SyncAllTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary := t.syncer.SyncAll(ctx, t.Trigger, t.Channels)
	return reportSummary(&t.Task, summary)
}

type SyncChannelTask struct {
	Task
	Trigger   string
	ChannelID string
	syncer    ChannelSyncer
}

func NewSyncChannelTask(trigger, channelID string, channelSyncer ChannelSyncer) *SyncChannelTask {
	return &SyncChannelTask{
		Task:      NewTask(TaskTypeSyncChannel, channelID, 0),
		Trigger:   trigger,
		ChannelID: channelID,
		syncer:    channelSyncer,
	}
}

func (t *SyncChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary := t.syncer.SyncOne(ctx, t.Trigger, t.ChannelID)
	return reportSummary(&t.Task, summary)
}

func reportSummary(task *Task, summary syncer.Summary) error {
	if !summary.Success {
		return fmt.Errorf("sync job %s failed: %s", summary.JobID, strings.Join(summary.Errors, "; "))
	}

	slog.Info("Task completed",
		"type", task.GetType(),
		"target", task.GetTarget(),
		"trigger", summary.Trigger,
		"job", summary.JobID,
		"duration", task.GetDuration(),
		"channels", summary.ChannelsSynced,
		"ideas", summary.IdeasCreated,
		"errors", len(summary.Errors))

	return nil
}
