package search

import (
	"path/filepath"
	"testing"

	"github.com/lysyi3m/idea-comb/app/database"
)

type mockLister struct {
	ideas []database.Idea
}

func (m *mockLister) GetIdeas(filter database.IdeaFilter) ([]database.Idea, error) {
	return m.ideas, nil
}

var testIdeas = []database.Idea{
	{
		ID:          "idea-1",
		ChannelID:   "C1",
		Title:       "Write about reviewing pull requests",
		Description: "Write about reviewing pull requests\n\nCover checklists and pairing.",
		Category:    "Engineering",
		Hashtags:    []string{"codereview"},
		Status:      "draft",
		AuthorName:  "Alice",
	},
	{
		ID:          "idea-2",
		ChannelID:   "C2",
		Title:       "Onboarding week for new hires",
		Description: "Onboarding week for new hires",
		Category:    "Culture",
		Status:      "ready",
		AuthorName:  "Bob",
	},
}

func TestIndexAndSearch(t *testing.T) {
	index, err := Open("")
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer index.Close()

	for _, idea := range testIdeas {
		if err := index.Index(idea); err != nil {
			t.Fatalf("Failed to index idea: %v", err)
		}
	}

	tests := []struct {
		query    string
		expected []string
	}{
		{"review", []string{"idea-1"}},
		{"checklists", []string{"idea-1"}},
		{"onboarding", []string{"idea-2"}},
		{"codereview", []string{"idea-1"}},
		{"ChannelID:C2", []string{"idea-2"}},
		{"Author:bob", []string{"idea-2"}},
		{"nothingmatches", []string{}},
	}

	for _, tt := range tests {
		results, err := index.Search(tt.query, 10)
		if err != nil {
			t.Fatalf("Search %q failed: %v", tt.query, err)
		}
		if len(results) != len(tt.expected) {
			t.Errorf("Search %q: expected %v, got %+v", tt.query, tt.expected, results)
			continue
		}
		for i, id := range tt.expected {
			if results[i].ID != id {
				t.Errorf("Search %q: expected %s at %d, got %s", tt.query, id, i, results[i].ID)
			}
		}
	}

	results, _ := index.Search("onboarding", 0)
	if len(results) != 1 || results[0].Title != "Onboarding week for new hires" || results[0].ChannelID != "C2" {
		t.Errorf("Expected stored fields on hit, got %+v", results)
	}
}

func TestIndexReplacesIdea(t *testing.T) {
	index, err := Open("")
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer index.Close()

	idea := testIdeas[1]
	index.Index(idea)
	idea.Title = "Mentoring program"
	idea.Description = "Mentoring program"
	index.Index(idea)

	count, _ := index.Count()
	if count != 1 {
		t.Errorf("Expected 1 document, got %d", count)
	}
	if results, _ := index.Search("onboarding", 10); len(results) != 0 {
		t.Errorf("Expected old text to be gone, got %+v", results)
	}
}

func TestReindexOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ideas.bleve")

	index, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}

	count, err := index.Reindex(&mockLister{ideas: testIdeas})
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 ideas indexed, got %d", count)
	}
	index.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen index: %v", err)
	}
	defer reopened.Close()

	docs, _ := reopened.Count()
	if docs != 2 {
		t.Errorf("Expected persisted documents, got %d", docs)
	}
}
