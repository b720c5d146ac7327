package ideas

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const articleHTML = `
<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
</head>
<body>
	<header>
		<h1>Site Header</h1>
		<nav>Navigation</nav>
	</header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>
`

func TestContentExtractorRun(t *testing.T) {
	extractor := NewContentExtractor()

	preview, err := extractor.Run([]byte(articleHTML), "https://example.com/article")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if preview.Title == "" {
		t.Error("Expected non-empty title")
	}
	if !strings.Contains(preview.Excerpt, "main content of the article") {
		t.Errorf("Expected excerpt to contain article text, got %q", preview.Excerpt)
	}
}

func TestContentExtractorTruncatesExcerpt(t *testing.T) {
	extractor := NewContentExtractor()
	paragraph := strings.Repeat("Long paragraph text about content ideas and the way they grow. ", 40)
	html := "<html><head><title>Long</title></head><body><article><p>" + paragraph + "</p></article></body></html>"

	preview, err := extractor.Run([]byte(html), "https://example.com/long")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if utf8.RuneCountInString(preview.Excerpt) > MaxExcerptLength {
		t.Errorf("Expected excerpt of at most %d runes, got %d", MaxExcerptLength, utf8.RuneCountInString(preview.Excerpt))
	}
}

func TestContentExtractorEmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	if _, err := extractor.Run(nil, "https://example.com"); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
