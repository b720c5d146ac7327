package ideas

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

var (
	markedChannel = ChannelSettings{ID: "C1", Name: "ideas"}
	autoChannel   = ChannelSettings{ID: "C2", Name: "content", AutoApprove: true}
)

func extract(t *testing.T, text string, ch ChannelSettings, minLength int) *Candidate {
	t.Helper()
	candidate, ok := NewExtractor().Extract(RawMessage{ID: "1700000000.000100", Author: "U1", Text: text}, ch, minLength)
	if !ok {
		t.Fatalf("Expected candidate for %q", text)
	}
	return candidate
}

func TestExtractSplitsTitleAndDescription(t *testing.T) {
	candidate := extract(t, "Idea: Write about our onboarding flow. It should cover the first week and the buddy system.", markedChannel, 0)

	if candidate.Title != "Write about our onboarding flow" {
		t.Errorf("Unexpected title: %q", candidate.Title)
	}
	expectedDescription := "Write about our onboarding flow.\n\nIt should cover the first week and the buddy system."
	if candidate.Description != expectedDescription {
		t.Errorf("Unexpected description: %q", candidate.Description)
	}
	if candidate.Priority != PriorityMedium {
		t.Errorf("Expected medium priority, got %s", candidate.Priority)
	}
	if candidate.Category != "General" {
		t.Errorf("Expected General category, got %s", candidate.Category)
	}
	if len(candidate.Hashtags) != 0 {
		t.Errorf("Expected no hashtags, got %v", candidate.Hashtags)
	}
	if candidate.Status != StatusDraft {
		t.Errorf("Expected draft status, got %s", candidate.Status)
	}
}

func TestExtractRequiresMarker(t *testing.T) {
	extractor := NewExtractor()
	raw := RawMessage{Author: "U1", Text: "We should write about our onboarding flow for new hires"}

	if _, ok := extractor.Extract(raw, markedChannel, 0); ok {
		t.Error("Expected no candidate without marker")
	}

	candidate, ok := extractor.Extract(raw, autoChannel, 0)
	if !ok {
		t.Fatal("Expected candidate in auto-approve channel")
	}
	if candidate.Status != StatusReady {
		t.Errorf("Expected ready status, got %s", candidate.Status)
	}
	if candidate.Title != raw.Text {
		t.Errorf("Expected whole text as title, got %q", candidate.Title)
	}
}

func TestExtractMarkers(t *testing.T) {
	tests := []struct {
		text  string
		title string
	}{
		{"!idea: rate limiting deep dive", "rate limiting deep dive"},
		{"idea: rate limiting deep dive", "rate limiting deep dive"},
		{"Content idea: rate limiting deep dive", "rate limiting deep dive"},
		{"POST ABOUT: rate limiting deep dive", "rate limiting deep dive"},
		{"topic: rate limiting deep dive", "rate limiting deep dive"},
		{"LinkedIn post: rate limiting deep dive", "rate limiting deep dive"},
		{"💡 rate limiting deep dive", "rate limiting deep dive"},
		{"✍️ rate limiting deep dive", "rate limiting deep dive"},
		{"✍ rate limiting deep dive", "rate limiting deep dive"},
		{"📝 rate limiting deep dive", "rate limiting deep dive"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			candidate := extract(t, tt.text, markedChannel, 0)
			if candidate.Title != tt.title {
				t.Errorf("Expected title %q, got %q", tt.title, candidate.Title)
			}
		})
	}
}

func TestExtractMarkerNeedsWordBoundary(t *testing.T) {
	raw := RawMessage{Author: "U1", Text: "!ideas for a newsletter about hiring"}
	if _, ok := NewExtractor().Extract(raw, markedChannel, 0); ok {
		t.Error("Expected \"!ideas\" not to count as a marker")
	}

	candidate, ok := NewExtractor().Extract(raw, autoChannel, 0)
	if !ok {
		t.Fatal("Expected candidate in auto-approve channel")
	}
	if candidate.Title != raw.Text {
		t.Errorf("Expected untouched title %q, got %q", raw.Text, candidate.Title)
	}
}

func TestExtractSentenceBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		title       string
		description string
	}{
		{"question", "idea: Why do we test? Because it matters", "Why do we test?", "Why do we test?\n\nBecause it matters"},
		{"newline", "idea: Testing in prod\nwhat could go wrong", "Testing in prod", "Testing in prod\n\nwhat could go wrong"},
		{"dot inside word", "idea: Check example.com for notes", "Check example.com for notes", "Check example.com for notes"},
		{"trailing dot", "idea: Title only.", "Title only", "Title only."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := extract(t, tt.text, markedChannel, 0)
			if candidate.Title != tt.title {
				t.Errorf("Expected title %q, got %q", tt.title, candidate.Title)
			}
			if candidate.Description != tt.description {
				t.Errorf("Expected description %q, got %q", tt.description, candidate.Description)
			}
		})
	}
}

func TestExtractMarkupAndLinks(t *testing.T) {
	text := "idea: Read <https://example.com/post|this post> by <@U123ABC> in <#C999|random>\nMore details <https://example.com/more>"
	candidate := extract(t, text, markedChannel, 0)

	if candidate.Title != "Read this post by @user in #random" {
		t.Errorf("Unexpected title: %q", candidate.Title)
	}
	expectedDescription := "Read this post (https://example.com/post) by @user in #random\n\nMore details https://example.com/more"
	if candidate.Description != expectedDescription {
		t.Errorf("Unexpected description: %q", candidate.Description)
	}

	expectedLinks := []Link{
		{URL: "https://example.com/post", Label: "this post"},
		{URL: "https://example.com/more"},
	}
	if !reflect.DeepEqual(candidate.Links, expectedLinks) {
		t.Errorf("Expected links %+v, got %+v", expectedLinks, candidate.Links)
	}
	if len(candidate.Hashtags) != 0 {
		t.Errorf("Channel mention must not become a hashtag, got %v", candidate.Hashtags)
	}
}

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		text     string
		priority string
	}{
		{"💡 urgent: fix the pricing page copy before launch", PriorityHigh},
		{"idea: this is high priority for the launch", PriorityHigh},
		{"idea: ASAP write the migration guide", PriorityHigh},
		{"idea: maybe write about our roadmap", PriorityLow},
		{"idea: someday a retrospective post", PriorityLow},
		{"idea: urgent but maybe not", PriorityHigh},
		{"idea: a regular post", PriorityMedium},
		{"idea: we urgently need a post on onboarding", PriorityHigh},
		{"idea: MAYBE a post on hiring loops", PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := extract(t, tt.text, markedChannel, 0).Priority; got != tt.priority {
				t.Errorf("Expected priority %s, got %s", tt.priority, got)
			}
		})
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		text     string
		category string
	}{
		{"idea: new feature walkthrough", "Product"},
		{"idea: a technical marketing piece", "Marketing"},
		{"idea: how sales teams read revenue charts", "Sales"},
		{"idea: engineering culture notes", "Engineering"},
		{"idea: customer support playbook", "Customer Success"},
		{"idea: office plants", "General"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := extract(t, tt.text, markedChannel, 0).Category; got != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, got)
			}
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	candidate := extract(t, "!idea Post about #golang and #testing in <#C123|general> with #golang", markedChannel, 0)

	expected := []string{"golang", "testing", "golang"}
	if !reflect.DeepEqual(candidate.Hashtags, expected) {
		t.Errorf("Expected hashtags %v, got %v", expected, candidate.Hashtags)
	}
}

func TestExtractTruncatesTitle(t *testing.T) {
	candidate := extract(t, "idea: "+strings.Repeat("a", 150), markedChannel, 0)

	if utf8.RuneCountInString(candidate.Title) != MaxTitleLength {
		t.Errorf("Expected title of %d runes, got %d", MaxTitleLength, utf8.RuneCountInString(candidate.Title))
	}
	if !strings.HasSuffix(candidate.Title, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", candidate.Title)
	}
	if candidate.Description != strings.Repeat("a", 150) {
		t.Error("Description must keep the full text")
	}
}

func TestExtractTruncationKeepsCombiningSequences(t *testing.T) {
	candidate := extract(t, "idea: "+strings.Repeat("q\u0307", 80), markedChannel, 0)

	runes := []rune(candidate.Title)
	if len(runes) > MaxTitleLength {
		t.Fatalf("Title too long: %d runes", len(runes))
	}
	for i, r := range runes {
		if r == 'q' && (i+1 >= len(runes) || runes[i+1] != '\u0307') {
			t.Fatalf("Combining mark split from its base at rune %d in %q", i, candidate.Title)
		}
	}
}

func TestExtractMinLength(t *testing.T) {
	extractor := NewExtractor()
	raw := RawMessage{Author: "U1", Text: "idea: short"}

	if _, ok := extractor.Extract(raw, markedChannel, 50); ok {
		t.Error("Expected no candidate below minimum length")
	}
	if _, ok := extractor.Extract(raw, markedChannel, 0); !ok {
		t.Error("Expected candidate with zero minimum length")
	}
	if _, ok := extractor.Extract(RawMessage{Author: "U1", Text: "idea:   "}, markedChannel, 0); ok {
		t.Error("Expected no candidate for an empty description")
	}
}

func TestExtractBlockedPhrase(t *testing.T) {
	extractor := NewExtractor()
	raw := RawMessage{Author: "U1", Text: "Bob was added to the launch channel, let's write about it"}

	if _, ok := extractor.Extract(raw, autoChannel, 0); ok {
		t.Error("Expected blocked phrase to suppress the candidate")
	}
}

func TestExtractMarkerMustLeadMessage(t *testing.T) {
	raw := RawMessage{Author: "U1", Text: "Title: Dirty CRM\nThesis: ship hygiene first"}
	if _, ok := NewExtractor().Extract(raw, markedChannel, 0); ok {
		t.Error("Expected no candidate without a leading marker")
	}

	raw.Text = "We could write an article: how we ship"
	if _, ok := NewExtractor().Extract(raw, markedChannel, 0); ok {
		t.Error("Expected marker in the middle of the text to be ignored")
	}

	candidate := extract(t, "idea: Dirty CRM. Thesis: ship hygiene first", markedChannel, 0)
	if candidate.Title != "Dirty CRM" {
		t.Errorf("Expected title %q, got %q", "Dirty CRM", candidate.Title)
	}
	if !strings.Contains(candidate.Description, "Dirty CRM") || !strings.Contains(candidate.Description, "Thesis: ship hygiene first") {
		t.Errorf("Expected both sentences in description, got %q", candidate.Description)
	}
}

func TestExtractTopicWithHashtags(t *testing.T) {
	text := "topic: AI in support\nHow artificial intelligence changes support ops. #CX #AI urgent"

	for _, ch := range []ChannelSettings{markedChannel, autoChannel} {
		candidate := extract(t, text, ch, 0)
		if candidate.Title != "AI in support" {
			t.Errorf("Expected title %q, got %q", "AI in support", candidate.Title)
		}
		if candidate.Priority != PriorityHigh {
			t.Errorf("Expected high priority, got %s", candidate.Priority)
		}
		if !reflect.DeepEqual(candidate.Hashtags, []string{"CX", "AI"}) {
			t.Errorf("Expected hashtags [CX AI], got %v", candidate.Hashtags)
		}
		// "support" is a Customer Success keyword.
		if candidate.Category != "Customer Success" {
			t.Errorf("Expected Customer Success category, got %s", candidate.Category)
		}
	}
}

func TestExtractJoinAnnouncement(t *testing.T) {
	raw := RawMessage{Author: "U123", Text: "<@U123> has joined the channel"}
	if _, ok := NewExtractor().Extract(raw, autoChannel, 0); ok {
		t.Error("Expected join announcement to yield no candidate")
	}
}

func TestExtractNeverEmitsBlockedPhraseProperty(t *testing.T) {
	extractor := NewExtractor()

	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[A-Za-z ]{0,30}`).Draw(t, "prefix")
		phrase := rapid.SampledFrom(blockedPhrases).Draw(t, "phrase")
		suffix := rapid.StringMatching(`[A-Za-z .]{0,30}`).Draw(t, "suffix")
		ch := rapid.SampledFrom([]ChannelSettings{markedChannel, autoChannel}).Draw(t, "channel")

		text := "idea: " + prefix + strings.ToUpper(phrase[:1]) + phrase[1:] + suffix
		candidate, ok := extractor.Extract(RawMessage{Author: "U1", Text: text}, ch, 0)
		if ok {
			t.Fatalf("candidate %q returned for text containing %q", candidate.Description, phrase)
		}
	})
}
