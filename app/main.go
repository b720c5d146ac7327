package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/idea-comb/app/api"
	"github.com/lysyi3m/idea-comb/app/cfg"
	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/notify"
	"github.com/lysyi3m/idea-comb/app/search"
	"github.com/lysyi3m/idea-comb/app/slackapi"
	"github.com/lysyi3m/idea-comb/app/syncer"
	"github.com/lysyi3m/idea-comb/app/tasks"
	"github.com/lysyi3m/idea-comb/app/webhook"
	"github.com/lysyi3m/idea-comb/app/workspace"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(appCfg, logger); err != nil {
		slog.Error("Idea Comb stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg, logger *slog.Logger) error {
	slog.Info("Starting Idea Comb", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := workspace.NewConfigCache(appCfg.WorkspacesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load workspace configurations: %w", err)
	}
	slog.Info("Loaded workspace configurations", "count", configCache.GetConfigCount(), "dir", appCfg.WorkspacesDir)

	workspaceRepo := database.NewWorkspaceRepository(db)
	channelRepo := database.NewChannelRepository(db)
	messageRepo := database.NewMessageRepository(db)
	ideaRepo := database.NewIdeaRepository(db)
	syncJobRepo := database.NewSyncJobRepository(db)

	index, err := search.Open(appCfg.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	defer index.Close()

	indexed, err := index.Reindex(ideaRepo)
	if err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}
	slog.Info("Search index ready", "ideas", indexed, "in_memory", appCfg.IndexPath == "")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	slackClient := slackapi.NewClient(appCfg.SlackAPIURL, httpClient)

	channelSyncer := syncer.New(slackClient, syncer.Repositories{
		Workspaces: workspaceRepo,
		Channels:   channelRepo,
		Messages:   messageRepo,
		Ideas:      ideaRepo,
		SyncJobs:   syncJobRepo,
	}, index, notify.NewLogNotifier(logger, appCfg.BaseUrl), syncer.Options{
		MinLength:            appCfg.SyncMinLength,
		MaxPages:             appCfg.MaxPages,
		PacingDelay:          appCfg.PacingDelay,
		WorkspaceConcurrency: appCfg.WorkspaceConcurrency,
	})

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler := tasks.NewScheduler(configCache, workspaceRepo, channelRepo, ideaRepo, channelSyncer,
		slackClient, httpClient, ideas.NewContentExtractor())
	scheduler.Start()
	defer scheduler.Stop()

	receiver := webhook.NewReceiver(workspaceRepo, channelRepo, messageRepo, scheduler, appCfg.WebhookMinLength)

	handler := api.NewHandler(api.Repositories{
		Workspaces: workspaceRepo,
		Channels:   channelRepo,
		Messages:   messageRepo,
		Ideas:      ideaRepo,
		SyncJobs:   syncJobRepo,
	}, receiver, channelSyncer, index, slackClient, api.Settings{
		SigningSecret: appCfg.SlackSigningSecret,
		SyncSecret:    appCfg.SyncSecret,
		SyncTimeout:   appCfg.SyncTimeout,
	})

	if appCfg.SlackSigningSecret == "" {
		slog.Warn("SLACK_SIGNING_SECRET not set, webhook deliveries will be rejected")
	}
	if appCfg.SyncSecret == "" {
		slog.Warn("SYNC_SECRET not set, the sync endpoint is open")
	}

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.SyncTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return runErr
}
