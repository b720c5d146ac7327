package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/idea-comb/app/cfg"
	"github.com/lysyi3m/idea-comb/app/database"
)

func setupTestConfig(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "https://ideas.example.com/")

	if _, err := cfg.LoadArgs([]string{}); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
}

func sampleIdeas() ([]database.Idea, map[string][]database.IdeaLink) {
	newer := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	ideas := []database.Idea{
		{
			ID:          "idea-1",
			ChannelID:   "C1",
			Title:       "Write about code review & pairing",
			Description: "Write about code review & pairing\n\nCover checklists.",
			Priority:    "high",
			Category:    "Engineering",
			Hashtags:    []string{"review", "teams"},
			Status:      "ready",
			AuthorName:  "Alice",
			CreatedAt:   newer,
		},
		{
			ID:          "idea-2",
			ChannelID:   "C1",
			Title:       "Onboarding checklist",
			Description: "Onboarding checklist",
			Priority:    "medium",
			Category:    "General",
			Hashtags:    []string{},
			Status:      "draft",
			CreatedAt:   older,
		},
	}

	links := map[string][]database.IdeaLink{
		"idea-1": {
			{IdeaID: "idea-1", URL: "https://example.com/review", Label: "review guide", Title: "How We Review", Excerpt: "Small PRs get <better> reviews."},
			{IdeaID: "idea-1", URL: "https://example.com/pairing"},
		},
	}

	return ideas, links
}

func TestGenerateRSS(t *testing.T) {
	setupTestConfig(t)
	ideas, links := sampleIdeas()

	rss, err := NewGenerator().Run(database.Channel{ID: "C1", Name: "content-ideas"}, ideas, links)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}
	if !strings.Contains(rss, `<atom:link href="https://ideas.example.com/feeds/C1" rel="self"`) {
		t.Error("RSS should contain self link built from the base url")
	}
	if !strings.Contains(rss, "Write about code review &amp; pairing") {
		t.Error("Titles should be XML escaped")
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated feed should parse, got: %v", err)
	}

	if parsed.Title != "#content-ideas ideas" {
		t.Errorf("Expected channel title, got %q", parsed.Title)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.GUID != "idea-1" || first.Title != "Write about code review & pairing" {
		t.Errorf("Unexpected first item: %q / %q", first.GUID, first.Title)
	}
	if first.Link != "https://example.com/review" {
		t.Errorf("Expected first link as item link, got %q", first.Link)
	}
	if first.Description != "Write about code review & pairing\n\nCover checklists." {
		t.Errorf("Unexpected description: %q", first.Description)
	}

	expectedCategories := []string{"Engineering", "high", "ready", "review", "teams"}
	if len(first.Categories) != len(expectedCategories) {
		t.Fatalf("Expected categories %v, got %v", expectedCategories, first.Categories)
	}
	for i, category := range expectedCategories {
		if first.Categories[i] != category {
			t.Errorf("Expected category %q at %d, got %q", category, i, first.Categories[i])
		}
	}

	if !strings.Contains(first.Content, `<a href="https://example.com/review">How We Review</a>`) {
		t.Errorf("Expected link preview in content, got %q", first.Content)
	}
	if !strings.Contains(first.Content, "Small PRs get &lt;better&gt; reviews.") {
		t.Errorf("Expected escaped excerpt in content, got %q", first.Content)
	}
	if !strings.Contains(first.Content, `<a href="https://example.com/pairing">https://example.com/pairing</a>`) {
		t.Errorf("Expected bare link fallback, got %q", first.Content)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(ideas[0].CreatedAt) {
		t.Errorf("Expected pubDate %v, got %v", ideas[0].CreatedAt, first.PublishedParsed)
	}

	second := parsed.Items[1]
	if second.Link != "" || second.Content != "" {
		t.Errorf("Expected no link or content for an idea without links, got %q / %q", second.Link, second.Content)
	}
}

func TestGenerateRSSEmptyChannel(t *testing.T) {
	setupTestConfig(t)

	rss, err := NewGenerator().Run(database.Channel{ID: "C9"}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated feed should parse, got: %v", err)
	}
	if parsed.Title != "#C9 ideas" || len(parsed.Items) != 0 {
		t.Errorf("Unexpected empty feed: %q with %d items", parsed.Title, len(parsed.Items))
	}
}
