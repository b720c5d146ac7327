package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/idea-comb/app/cfg"
	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/workspace"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Polling windows per cadence. Realtime channels are polled hourly as a
// backstop for missed webhooks.
var cadenceIntervals = map[string]time.Duration{
	database.CadenceRealtime: time.Hour,
	database.CadenceHourly:   time.Hour,
	database.CadenceDaily:    24 * time.Hour,
}

type Scheduler struct {
	workspaceRepo    database.WorkspaceRepository
	channelRepo      database.ChannelRepository
	ideaRepo         database.IdeaRepository
	configCache      *workspace.ConfigCache
	syncer           ChannelSyncer
	verifier         CredentialVerifier
	httpClient       *http.Client
	contentExtractor *ideas.ContentExtractor
	userAgent        string
	interval         time.Duration
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(configCache *workspace.ConfigCache, workspaceRepo database.WorkspaceRepository,
	channelRepo database.ChannelRepository, ideaRepo database.IdeaRepository, channelSyncer ChannelSyncer,
	verifier CredentialVerifier, httpClient *http.Client, contentExtractor *ideas.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		workspaceRepo:    workspaceRepo,
		channelRepo:      channelRepo,
		ideaRepo:         ideaRepo,
		configCache:      configCache,
		syncer:           channelSyncer,
		verifier:         verifier,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runStartupTasks()
		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) EnqueueChannelSync(channelID string) error {
	return s.EnqueueTask(NewSyncChannelTask(database.TriggerRealtime, channelID, s.syncer))
}

// runStartupTasks writes the workspace files to the database before the
// first sync is scheduled.
func (s *Scheduler) runStartupTasks() {
	configs := s.configCache.GetConfigs()
	if len(configs) == 0 {
		slog.Debug("No workspace configurations found")
		return
	}

	slog.Debug("Syncing workspace configurations", "count", len(configs))

	for _, config := range configs {
		s.executeTask(-1, NewSyncWorkspaceConfigTask(config, s.workspaceRepo, s.channelRepo, s.verifier))
	}
}

func (s *Scheduler) enqueueTasks() {
	channels, err := s.channelRepo.GetEnabledChannels()
	if err != nil {
		slog.Warn("Failed to get channels from database", "error", err)
		return
	}

	due := dueChannels(channels, time.Now())
	if len(due) == 0 {
		slog.Debug("No channels due for sync", "enabled", len(channels))
	} else {
		slog.Debug("Channels due for sync", "count", len(due))
		if err := s.EnqueueTask(NewSyncAllTask(database.TriggerScheduled, due, s.syncer)); err != nil {
			slog.Warn("Failed to enqueue SyncAllTask", "error", err)
		}
	}

	extractTask := NewExtractLinksTask(s.httpClient, s.contentExtractor, s.ideaRepo, s.userAgent)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractLinksTask", "error", err)
	}
}

func dueChannels(channels []database.Channel, now time.Time) []database.Channel {
	var due []database.Channel

	for _, channel := range channels {
		if !channel.Enabled {
			continue
		}
		if channel.LastSyncedAt == nil {
			due = append(due, channel)
			continue
		}

		interval, ok := cadenceIntervals[channel.Cadence]
		if !ok {
			interval = time.Hour
		}
		if !channel.LastSyncedAt.Add(interval).After(now) {
			due = append(due, channel)
		}
	}

	return due
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	go func() {
		time.Sleep(delay)
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		default:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
