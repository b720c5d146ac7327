package ideas

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

const MaxExcerptLength = 500

type LinkPreview struct {
	Title   string
	Excerpt string
}

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts a title and a short excerpt from an HTML page.
func (e *ContentExtractor) Run(data []byte, pageURL string) (*LinkPreview, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(article.TextContent)
	}
	excerpt = strings.Join(strings.Fields(excerpt), " ")

	if article.Title == "" && excerpt == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	if runes := []rune(excerpt); len(runes) > MaxExcerptLength {
		excerpt = string(runes[:MaxExcerptLength-1]) + titleEllipsis
	}

	slog.Debug("Link preview extracted",
		"url", pageURL,
		"title", article.Title,
		"excerpt_length", len(excerpt))

	return &LinkPreview{
		Title:   strings.TrimSpace(article.Title),
		Excerpt: excerpt,
	}, nil
}
