package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
)

const (
	linkBatchSize    = 50
	linkMaxAttempts  = 3
	linkFetchTimeout = 30 * time.Second
	linkMaxBodyBytes = 5 << 20
)

var errNotHTML = errors.New("content type is not HTML")

type ExtractLinksTask struct {
	Task
	httpClient       *http.Client
	contentExtractor *ideas.ContentExtractor
	ideaRepo         database.IdeaRepository
	userAgent        string
}

func NewExtractLinksTask(httpClient *http.Client, contentExtractor *ideas.ContentExtractor,
	ideaRepo database.IdeaRepository, userAgent string) *ExtractLinksTask {
	return &ExtractLinksTask{
		Task:             NewTask(TaskTypeExtractLinks, "", DefaultMaxRetries),
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		ideaRepo:         ideaRepo,
		userAgent:        userAgent,
	}
}

func (t *ExtractLinksTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	links, err := t.ideaRepo.GetLinksForExtraction(linkBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get links for extraction: %w", err)
	}

	if len(links) == 0 {
		slog.Debug("No links need extraction")
		return nil
	}

	successCount := 0
	skippedCount := 0
	errorCount := 0

	for _, link := range links {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := t.extractLink(ctx, link)
		switch {
		case errors.Is(err, errNotHTML):
			skippedCount++
			if err := t.ideaRepo.UpdateLinkPreview(link.ID, database.LinkStatusSkipped, "", "", time.Now()); err != nil {
				slog.Error("Failed to update link status", "link_id", link.ID, "error", err)
			}
		case err != nil:
			errorCount++
			slog.Warn("Failed to extract link", "link_id", link.ID, "url", link.URL, "attempt", link.Attempts+1, "error", err)
			if err := t.ideaRepo.RecordLinkFailure(link.ID, err.Error(), linkMaxAttempts); err != nil {
				slog.Error("Failed to update link status", "link_id", link.ID, "error", err)
			}
		default:
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"skipped", skippedCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractLinksTask) extractLink(ctx context.Context, link database.IdeaLink) error {
	data, err := t.fetchPage(ctx, link.URL)
	if err != nil {
		return err
	}

	preview, err := t.contentExtractor.Run(data, link.URL)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	title := preview.Title
	if title == "" {
		title = link.Label
	}

	if err := t.ideaRepo.UpdateLinkPreview(link.ID, database.LinkStatusSuccess, title, preview.Excerpt, time.Now()); err != nil {
		return fmt.Errorf("failed to update link preview: %w", err)
	}

	slog.Debug("Link extracted successfully", "link_id", link.ID, "url", link.URL, "excerpt_length", len(preview.Excerpt))
	return nil
}

func (t *ExtractLinksTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, linkFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("%w: %s", errNotHTML, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, linkMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
