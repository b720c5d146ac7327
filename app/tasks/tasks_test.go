package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/idea-comb/app/database"
	"github.com/lysyi3m/idea-comb/app/ideas"
	"github.com/lysyi3m/idea-comb/app/syncer"
	"github.com/lysyi3m/idea-comb/app/workspace"
)

func TestSyncAllTask(t *testing.T) {
	mock := &MockSyncer{summary: syncer.Summary{JobID: "job-1", Success: true, Trigger: database.TriggerScheduled}}
	channels := []database.Channel{{ID: "C1"}, {ID: "C2"}}

	task := NewSyncAllTask(database.TriggerScheduled, channels, mock)
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(mock.allCalls) != 1 || len(mock.allCalls[0]) != 2 {
		t.Errorf("Expected one run over 2 channels, got %v", mock.allCalls)
	}
	if mock.triggers[0] != database.TriggerScheduled {
		t.Errorf("Expected scheduled trigger, got %s", mock.triggers[0])
	}
}

func TestSyncChannelTaskFailure(t *testing.T) {
	mock := &MockSyncer{summary: syncer.Summary{JobID: "job-2", Errors: []string{"channel is disabled"}}}

	task := NewSyncChannelTask(database.TriggerRealtime, "C1", mock)
	err := task.Execute(context.Background())

	if err == nil || !strings.Contains(err.Error(), "channel is disabled") {
		t.Errorf("Expected failed run to surface its errors, got %v", err)
	}
	if len(mock.oneCalls) != 1 || mock.oneCalls[0] != "C1" {
		t.Errorf("Expected SyncOne for C1, got %v", mock.oneCalls)
	}
}

func TestSyncTaskCancelled(t *testing.T) {
	mock := &MockSyncer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSyncAllTask(database.TriggerScheduled, nil, mock).Execute(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(mock.allCalls) != 0 {
		t.Error("Expected no sync after cancellation")
	}
}

func TestSyncWorkspaceConfigTaskVerifierFailure(t *testing.T) {
	workspaces := NewMockWorkspaceRepository()
	channels := &MockChannelRepository{}
	verifier := &MockVerifier{err: errors.New("invalid_auth")}

	config := &workspace.Config{Name: "acme", ID: "T1", BotToken: "xoxb", Channels: []workspace.ChannelConfig{
		{ID: "C1", Cadence: database.CadenceDaily, AutoApprove: true},
	}}

	task := NewSyncWorkspaceConfigTask(config, workspaces, channels, verifier)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected verifier failure to be tolerated, got: %v", err)
	}

	stored := workspaces.workspaces["T1"]
	if stored == nil || stored.Name != "acme" {
		t.Errorf("Expected workspace named after its file, got %+v", stored)
	}
	if stored.BotUserID != "" {
		t.Errorf("Expected no bot identity, got %q", stored.BotUserID)
	}
	if len(channels.channels) != 1 || !channels.channels[0].AutoApprove || channels.channels[0].WorkspaceID != "T1" {
		t.Errorf("Unexpected channels: %+v", channels.channels)
	}
}

func TestSyncWorkspaceConfigTaskWithoutToken(t *testing.T) {
	verifier := &MockVerifier{}
	config := &workspace.Config{Name: "acme", ID: "T1"}

	task := NewSyncWorkspaceConfigTask(config, NewMockWorkspaceRepository(), &MockChannelRepository{}, verifier)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if verifier.calls != 0 {
		t.Error("Expected no verification without a token")
	}
}

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Reviewing Pull Requests</title></head>
<body>
<article>
<h1>Reviewing Pull Requests</h1>
<p>Code review is where teams share knowledge. A good review looks at the design first and the details second, and it keeps the author moving.</p>
<p>Checklists help reviewers stay consistent across the codebase. Pairing on hard changes saves a lot of back and forth in comments.</p>
<p>Small pull requests get better reviews. Large ones get skimmed, and the bugs slip through to production.</p>
</article>
</body>
</html>`

func TestExtractLinksTask(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articleHTML))
		case "/file.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	repo := &MockIdeaRepository{links: []database.IdeaLink{
		{ID: 1, URL: server.URL + "/article", Label: "article"},
		{ID: 2, URL: server.URL + "/file.pdf"},
		{ID: 3, URL: server.URL + "/missing", Attempts: 2},
	}}

	task := NewExtractLinksTask(server.Client(), ideas.NewContentExtractor(), repo, "idea-comb/test")
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if userAgent != "idea-comb/test" {
		t.Errorf("Expected configured user agent, got %q", userAgent)
	}

	if len(repo.updates) != 2 {
		t.Fatalf("Expected 2 link updates, got %+v", repo.updates)
	}
	if repo.updates[0].id != 1 || repo.updates[0].status != database.LinkStatusSuccess {
		t.Errorf("Expected success for article, got %+v", repo.updates[0])
	}
	if !strings.Contains(repo.updates[0].title, "Reviewing Pull Requests") {
		t.Errorf("Expected article title, got %q", repo.updates[0].title)
	}
	if repo.updates[0].excerpt == "" {
		t.Error("Expected an excerpt")
	}
	if repo.updates[1].id != 2 || repo.updates[1].status != database.LinkStatusSkipped {
		t.Errorf("Expected non-HTML link to be skipped, got %+v", repo.updates[1])
	}

	if len(repo.failures) != 1 || repo.failures[0].id != 3 || repo.failures[0].maxAttempts != 3 {
		t.Errorf("Expected one recorded failure, got %+v", repo.failures)
	}
}

func TestExtractLinksTaskRepositoryError(t *testing.T) {
	repo := &MockIdeaRepository{err: errors.New("db down")}

	err := NewExtractLinksTask(http.DefaultClient, ideas.NewContentExtractor(), repo, "").Execute(context.Background())

	if err == nil {
		t.Error("Expected repository error to be returned")
	}
}
