package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/lysyi3m/idea-comb/app/database"
)

const DefaultLimit = 20

// IdeaLister is the part of the idea repository a rebuild needs.
type IdeaLister interface {
	GetIdeas(filter database.IdeaFilter) ([]database.Idea, error)
}

// Index is a full-text index over ideas. It is safe for concurrent use.
type Index struct {
	index bleve.Index
}

type document struct {
	Title       string
	Description string
	Category    string
	Hashtags    string
	Author      string
	ChannelID   string
	Status      string
}

type Result struct {
	ID        string
	Title     string
	ChannelID string
	Score     float64
}

// Open opens or creates an index at path. An empty path keeps the index in memory.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Description", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Category", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Hashtags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Author", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("ChannelID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Status", keywordFieldMapping)

	// Text fields and unqualified queries share the English analyzer so
	// stemmed terms match on both sides.
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

func newDocument(idea database.Idea) document {
	return document{
		Title:       idea.Title,
		Description: idea.Description,
		Category:    idea.Category,
		Hashtags:    strings.Join(idea.Hashtags, " "),
		Author:      idea.AuthorName,
		ChannelID:   idea.ChannelID,
		Status:      idea.Status,
	}
}

func (i *Index) Close() error {
	return i.index.Close()
}

// Index adds or replaces one idea.
func (i *Index) Index(idea database.Idea) error {
	if err := i.index.Index(idea.ID, newDocument(idea)); err != nil {
		return fmt.Errorf("index idea %s: %w", idea.ID, err)
	}
	return nil
}

// Reindex loads every idea from the repository in one batch.
func (i *Index) Reindex(repo IdeaLister) (int, error) {
	ideas, err := repo.GetIdeas(database.IdeaFilter{})
	if err != nil {
		return 0, fmt.Errorf("list ideas: %w", err)
	}

	batch := i.index.NewBatch()
	for _, idea := range ideas {
		if err := batch.Index(idea.ID, newDocument(idea)); err != nil {
			return 0, fmt.Errorf("batch index %s: %w", idea.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	return len(ideas), nil
}

// Search runs a query string query (quotes, +/- and field:value are supported).
func (i *Index) Search(queryStr string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := bleve.NewQueryStringQuery(queryStr)

	request := bleve.NewSearchRequestOptions(query, limit, 0, false)
	request.Fields = []string{"Title", "ChannelID"}

	response, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(response.Hits))
	for _, hit := range response.Hits {
		result := Result{ID: hit.ID, Score: hit.Score}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		if channelID, ok := hit.Fields["ChannelID"].(string); ok {
			result.ChannelID = channelID
		}
		results = append(results, result)
	}

	return results, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
