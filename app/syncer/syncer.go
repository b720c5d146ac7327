package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/slackapi"
)

const historyPageSize = 100

type Provider interface {
	History(ctx context.Context, token string, req slackapi.HistoryRequest) (*slackapi.HistoryPage, error)
	UserInfo(ctx context.Context, token, userID string) (*slackapi.User, error)
}

type Indexer interface {
	Index(idea database.Idea) error
}

type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

type Repositories struct {
	Workspaces database.WorkspaceRepository
	Channels   database.ChannelRepository
	Messages   database.MessageRepository
	Ideas      database.IdeaRepository
	SyncJobs   database.SyncJobRepository
}

type Options struct {
	MinLength            int
	MaxPages             int
	PacingDelay          time.Duration
	WorkspaceConcurrency int
}

type ChannelResult struct {
	ChannelID         string
	MessagesFetched   int
	MessagesProcessed int
	IdeasCreated      int
	Errors            []string
	Cursor            string
	Err               error // set when the channel failed as a whole
}

type Summary struct {
	JobID             string    `json:"job_id"`
	Success           bool      `json:"success"`
	Trigger           string    `json:"trigger"`
	ChannelID         string    `json:"channel_id,omitempty"`
	ChannelsSynced    int       `json:"channels_synced"`
	MessagesFetched   int       `json:"messages_fetched"`
	MessagesProcessed int       `json:"messages_processed"`
	IdeasCreated      int       `json:"ideas_created"`
	Errors            []string  `json:"errors"`
	Duration          string    `json:"duration"`
	StartedAt         time.Time `json:"started_at"`
}

type Syncer struct {
	provider  Provider
	repos     Repositories
	filter    *ideas.Filter
	extractor *ideas.Extractor
	indexer   Indexer
	notifier  Notifier
	options   Options
	locks     *keyedMutex
}

func New(provider Provider, repos Repositories, indexer Indexer, notifier Notifier, options Options) *Syncer {
	if options.MaxPages <= 0 {
		options.MaxPages = 1
	}
	if options.WorkspaceConcurrency <= 0 {
		options.WorkspaceConcurrency = 1
	}

	return &Syncer{
		provider:  provider,
		repos:     repos,
		filter:    ideas.NewFilter(),
		extractor: ideas.NewExtractor(),
		indexer:   indexer,
		notifier:  notifier,
		options:   options,
		locks:     newKeyedMutex(),
	}
}

// SyncChannel pulls new history for one channel and turns it into ideas while
// holding the workspace lock.
func (s *Syncer) SyncChannel(ctx context.Context, ch database.Channel, ws database.Workspace) ChannelResult {
	if err := s.locks.Lock(ctx, ws.ID); err != nil {
		return ChannelResult{
			ChannelID: ch.ID,
			Cursor:    ch.LastCursor,
			Errors:    []string{fmt.Sprintf("channel %s: %v", ch.ID, err)},
			Err:       err,
		}
	}
	defer s.locks.Unlock(ws.ID)

	return s.syncChannel(ctx, ch, ws, newUserCache(s.provider))
}

func (s *Syncer) syncChannel(ctx context.Context, ch database.Channel, ws database.Workspace, users *userCache) ChannelResult {
	result := ChannelResult{ChannelID: ch.ID, Cursor: ch.LastCursor}
	logState := func(state string, args ...any) {
		slog.Debug("Channel sync", append([]any{"channel", ch.ID, "workspace", ws.ID, "state", state}, args...)...)
	}

	logState("fetching", "oldest", ch.LastCursor)

	messages, err := s.fetchHistory(ctx, ch, ws)
	if err != nil {
		logState("failed", "error", err)
		result.Err = err
		result.Errors = append(result.Errors, fmt.Sprintf("channel %s: %v", ch.ID, err))
		return result
	}
	result.MessagesFetched = len(messages)

	logState("processing", "messages", len(messages))

	identity := ideas.WorkspaceIdentity{ID: ws.ID, Name: ws.Name, BotUserID: ws.BotUserID, BotID: ws.BotID}
	settings := ideas.ChannelSettings{ID: ch.ID, Name: ch.Name, AutoApprove: ch.AutoApprove}

	timestamps := make([]string, 0, len(messages))
	for _, raw := range messages {
		timestamps = append(timestamps, raw.ID)
	}

	for _, raw := range messages {
		if ctx.Err() != nil {
			break
		}

		accepted, reason := s.filter.Check(raw, identity, s.options.MinLength)
		if !accepted {
			slog.Debug("Message filtered", "channel", ch.ID, "message", raw.ID, "reason", reason)
			continue
		}
		result.MessagesProcessed++

		created, err := s.processMessage(ctx, raw, ch, ws, settings, users)
		if err != nil {
			slog.Warn("Message processing failed", "channel", ch.ID, "message", raw.ID, "error", err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if created {
			result.IdeasCreated++
		}
	}

	logState("persisting")

	if err := ctx.Err(); err != nil {
		logState("failed", "error", err)
		result.Err = err
		result.Errors = append(result.Errors, fmt.Sprintf("channel %s: sync interrupted: %v", ch.ID, err))
		return result
	}

	cursor := maxTS(timestamps)
	if cursor != "" && ch.LastCursor != "" && compareTS(cursor, ch.LastCursor) <= 0 {
		cursor = ""
	}

	if err := s.repos.Channels.UpdateSyncState(ch.ID, cursor, time.Now()); err != nil {
		perr := &PersistenceError{Op: "update cursor", ChannelID: ch.ID, Err: err}
		slog.Error("Cursor update failed", "channel", ch.ID, "error", err)
		result.Errors = append(result.Errors, perr.Error())
		return result
	}
	if cursor != "" {
		result.Cursor = cursor
	}

	logState("done",
		"fetched", result.MessagesFetched,
		"processed", result.MessagesProcessed,
		"ideas", result.IdeasCreated,
		"cursor", result.Cursor)

	return result
}

func (s *Syncer) fetchHistory(ctx context.Context, ch database.Channel, ws database.Workspace) ([]ideas.RawMessage, error) {
	var messages []ideas.RawMessage
	pageCursor := ""

	for page := 0; page < s.options.MaxPages; page++ {
		resp, err := s.provider.History(ctx, ws.BotToken, slackapi.HistoryRequest{
			ChannelID: ch.ID,
			Cursor:    pageCursor,
			Oldest:    ch.LastCursor,
			Limit:     historyPageSize,
		})
		if err != nil {
			return nil, err
		}

		messages = append(messages, resp.Messages...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		pageCursor = resp.NextCursor
	}

	return messages, nil
}

func (s *Syncer) processMessage(ctx context.Context, raw ideas.RawMessage, ch database.Channel, ws database.Workspace,
	settings ideas.ChannelSettings, users *userCache) (bool, error) {
	authorName := users.Resolve(ctx, ws.BotToken, raw.Author)

	stored, err := s.repos.Messages.UpsertMessage(database.StoredMessage{
		ChannelID:  ch.ID,
		MessageID:  raw.ID,
		AuthorID:   raw.Author,
		AuthorName: authorName,
		Text:       raw.Text,
		MessageTS:  raw.Timestamp,
		ThreadTS:   raw.ThreadParent,
		Subtype:    raw.Subtype,
	})
	if err != nil {
		return false, &PersistenceError{Op: "store", ChannelID: ch.ID, MessageID: raw.ID, Err: err}
	}

	if stored.ConvertedToIdea {
		return false, nil
	}

	candidate, ok := s.extractor.Extract(raw, settings, s.options.MinLength)
	if !ok {
		if err := s.repos.Messages.MarkProcessed(stored.ID); err != nil {
			return false, &PersistenceError{Op: "mark processed", ChannelID: ch.ID, MessageID: raw.ID, Err: err}
		}
		return false, nil
	}

	idea := database.Idea{
		ID:          uuid.NewString(),
		ChannelID:   ch.ID,
		MessageID:   raw.ID,
		Title:       candidate.Title,
		Description: candidate.Description,
		Priority:    candidate.Priority,
		Category:    candidate.Category,
		Hashtags:    candidate.Hashtags,
		Status:      candidate.Status,
		AuthorName:  authorName,
		CreatedAt:   time.Now(),
	}

	links := make([]database.IdeaLink, 0, len(candidate.Links))
	for _, link := range candidate.Links {
		links = append(links, database.IdeaLink{URL: link.URL, Label: link.Label})
	}

	err = s.repos.Ideas.CreateIdea(stored.ID, idea, links)
	if errors.Is(err, database.ErrAlreadyConverted) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: "create idea from", ChannelID: ch.ID, MessageID: raw.ID, Err: err}
	}

	slog.Info("Idea created", "channel", ch.ID, "idea", idea.ID, "title", idea.Title, "category", idea.Category)

	if s.indexer != nil {
		if err := s.indexer.Index(idea); err != nil {
			slog.Warn("Failed to index idea", "idea", idea.ID, "error", err)
		}
	}

	return true, nil
}

// SyncAll syncs the given channels grouped by workspace and records one ledger row.
func (s *Syncer) SyncAll(ctx context.Context, trigger string, channels []database.Channel) Summary {
	return s.run(ctx, trigger, "", channels)
}

// SyncOne syncs a single channel through the same path as SyncAll.
func (s *Syncer) SyncOne(ctx context.Context, trigger, channelID string) Summary {
	channel, err := s.repos.Channels.GetChannel(channelID)
	if err != nil {
		return s.abort(ctx, trigger, channelID, time.Now(),
			&ConfigurationError{ChannelID: channelID, Reason: "failed to load channel", Err: err})
	}
	if channel == nil {
		return s.abort(ctx, trigger, channelID, time.Now(),
			&ConfigurationError{ChannelID: channelID, Reason: "channel is not configured"})
	}
	if !channel.Enabled {
		return s.abort(ctx, trigger, channelID, time.Now(),
			&ConfigurationError{ChannelID: channelID, Reason: "channel is disabled"})
	}

	return s.run(ctx, trigger, channelID, []database.Channel{*channel})
}

type workspaceBatch struct {
	workspace database.Workspace
	channels  []database.Channel
	results   []ChannelResult
	errors    []string
}

func (s *Syncer) run(ctx context.Context, trigger, channelID string, channels []database.Channel) Summary {
	startedAt := time.Now()

	batches, err := s.preflight(channels)
	if err != nil {
		return s.abort(ctx, trigger, channelID, startedAt, err)
	}

	slog.Info("Sync started", "trigger", trigger, "workspaces", len(batches), "channels", len(channels))

	semaphore := make(chan struct{}, s.options.WorkspaceConcurrency)
	var wg sync.WaitGroup

	for _, batch := range batches {
		wg.Add(1)
		go func(batch *workspaceBatch) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				batch.errors = append(batch.errors, fmt.Sprintf("workspace %s: %v", batch.workspace.ID, ctx.Err()))
				return
			}
			defer func() { <-semaphore }()

			s.syncWorkspace(ctx, batch)
		}(batch)
	}
	wg.Wait()

	summary := newSummary(trigger, channelID, startedAt)
	summary.Success = true
	for _, batch := range batches {
		for _, result := range batch.results {
			if result.Err == nil {
				summary.ChannelsSynced++
			}
			summary.MessagesFetched += result.MessagesFetched
			summary.MessagesProcessed += result.MessagesProcessed
			summary.IdeasCreated += result.IdeasCreated
			summary.Errors = append(summary.Errors, result.Errors...)
		}
		summary.Errors = append(summary.Errors, batch.errors...)
	}

	s.finish(ctx, &summary)
	return summary
}

// preflight validates every referenced workspace before any upstream call.
func (s *Syncer) preflight(channels []database.Channel) ([]*workspaceBatch, error) {
	byWorkspace := make(map[string]*workspaceBatch)

	for _, channel := range channels {
		batch, ok := byWorkspace[channel.WorkspaceID]
		if !ok {
			workspace, err := s.repos.Workspaces.GetWorkspace(channel.WorkspaceID)
			if err != nil {
				return nil, &ConfigurationError{WorkspaceID: channel.WorkspaceID, Reason: "failed to load workspace", Err: err}
			}
			if workspace == nil {
				return nil, &ConfigurationError{WorkspaceID: channel.WorkspaceID, Reason: "workspace is not configured"}
			}
			if workspace.BotToken == "" {
				return nil, &ConfigurationError{WorkspaceID: channel.WorkspaceID, Reason: "bot token is empty"}
			}

			batch = &workspaceBatch{workspace: *workspace}
			byWorkspace[channel.WorkspaceID] = batch
		}
		batch.channels = append(batch.channels, channel)
	}

	batches := make([]*workspaceBatch, 0, len(byWorkspace))
	for _, batch := range byWorkspace {
		sort.SliceStable(batch.channels, func(i, j int) bool { return batch.channels[i].ID < batch.channels[j].ID })
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].workspace.ID < batches[j].workspace.ID })

	return batches, nil
}

func (s *Syncer) syncWorkspace(ctx context.Context, batch *workspaceBatch) {
	workspaceID := batch.workspace.ID

	if err := s.locks.Lock(ctx, workspaceID); err != nil {
		batch.errors = append(batch.errors, fmt.Sprintf("workspace %s: %v", workspaceID, err))
		return
	}
	defer s.locks.Unlock(workspaceID)

	users := newUserCache(s.provider)

	for i, channel := range batch.channels {
		if i > 0 && !s.pace(ctx) {
			batch.errors = append(batch.errors, fmt.Sprintf("workspace %s: %d channels not synced: %v",
				workspaceID, len(batch.channels)-i, ctx.Err()))
			return
		}

		result := s.syncChannel(ctx, channel, batch.workspace, users)
		batch.results = append(batch.results, result)

		if slackapi.IsAuth(result.Err) {
			if remaining := len(batch.channels) - i - 1; remaining > 0 {
				batch.errors = append(batch.errors, fmt.Sprintf("workspace %s: skipped %d channels after authentication failure",
					workspaceID, remaining))
			}
			slog.Error("Workspace sync aborted", "workspace", workspaceID, "error", result.Err)
			return
		}
	}
}

func (s *Syncer) pace(ctx context.Context) bool {
	if s.options.PacingDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(s.options.PacingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Syncer) abort(ctx context.Context, trigger, channelID string, startedAt time.Time, err error) Summary {
	slog.Error("Sync aborted", "trigger", trigger, "error", err)

	summary := newSummary(trigger, channelID, startedAt)
	summary.Errors = append(summary.Errors, err.Error())

	s.finish(ctx, &summary)
	return summary
}

func newSummary(trigger, channelID string, startedAt time.Time) Summary {
	return Summary{
		JobID:     uuid.NewString(),
		Trigger:   trigger,
		ChannelID: channelID,
		Errors:    []string{},
		StartedAt: startedAt,
	}
}

func (s *Syncer) finish(ctx context.Context, summary *Summary) {
	finishedAt := time.Now()
	summary.Duration = finishedAt.Sub(summary.StartedAt).String()

	err := s.repos.SyncJobs.CreateSyncJob(database.SyncJob{
		ID:                summary.JobID,
		Trigger:           summary.Trigger,
		ChannelID:         summary.ChannelID,
		ChannelsSynced:    summary.ChannelsSynced,
		MessagesFetched:   summary.MessagesFetched,
		MessagesProcessed: summary.MessagesProcessed,
		IdeasCreated:      summary.IdeasCreated,
		Errors:            summary.Errors,
		Success:           summary.Success,
		StartedAt:         summary.StartedAt,
		FinishedAt:        finishedAt,
	})
	if err != nil {
		slog.Error("Failed to record sync job", "job", summary.JobID, "error", err)
	}

	slog.Info("Sync finished",
		"job", summary.JobID,
		"trigger", summary.Trigger,
		"success", summary.Success,
		"channels", summary.ChannelsSynced,
		"fetched", summary.MessagesFetched,
		"processed", summary.MessagesProcessed,
		"ideas", summary.IdeasCreated,
		"errors", len(summary.Errors),
		"duration", summary.Duration)

	if summary.IdeasCreated > 0 && s.notifier != nil {
		if err := s.notifier.Notify(ctx, *summary); err != nil {
			slog.Warn("Notifier failed", "job", summary.JobID, "error", err)
		}
	}
}
