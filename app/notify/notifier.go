package notify

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/idea-comb/app/syncer"
)

var _ syncer.Notifier = (*LogNotifier)(nil)

// LogNotifier reports finished runs that produced ideas to the log.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

func (n *LogNotifier) Notify(ctx context.Context, summary syncer.Summary) error {
	args := []any{
		"job", summary.JobID,
		"trigger", summary.Trigger,
		"ideas", summary.IdeasCreated,
		"channels", summary.ChannelsSynced,
		"errors", len(summary.Errors),
	}
	if summary.ChannelID != "" {
		args = append(args, "channel", summary.ChannelID)
		if n.baseURL != "" {
			args = append(args, "feed", n.baseURL+"/feeds/"+summary.ChannelID)
		}
	}

	n.logger.InfoContext(ctx, "New ideas collected", args...)
	return nil
}
