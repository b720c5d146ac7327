package ideas

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxTitleLength = 100
	titleEllipsis  = "…"
)

// Markers ending in a letter must end a word, so "!ideas" is not "!idea".
func markerPattern(marker string) *regexp.Regexp {
	pattern := `(?i)^\s*` + regexp.QuoteMeta(marker)
	if last, _ := utf8.DecodeLastRuneInString(marker); unicode.IsLetter(last) || unicode.IsDigit(last) {
		pattern += `\b`
	}
	return regexp.MustCompile(pattern)
}

// Markers only count at the start of the message. "✍️" precedes "✍" so the
// variation selector is stripped with it.
var markerRules = []*regexp.Regexp{
	markerPattern("content idea:"),
	markerPattern("linkedin post:"),
	markerPattern("blog post:"),
	markerPattern("post about:"),
	markerPattern("suggestion:"),
	markerPattern("article:"),
	markerPattern("topic:"),
	markerPattern("!idea"),
	markerPattern("idea:"),
	markerPattern("💡"),
	markerPattern("✍️"),
	markerPattern("✍"),
	markerPattern("📝"),
}

type priorityRule struct {
	priority string
	keywords []string
}

var priorityRules = []priorityRule{
	{PriorityHigh, []string{"urgent", "high priority", "asap"}},
	{PriorityLow, []string{"low priority", "maybe", "someday"}},
}

type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Product", []string{"product", "feature"}},
	{"Marketing", []string{"marketing", "campaign"}},
	{"Sales", []string{"sales", "revenue"}},
	{"Engineering", []string{"engineer", "technical"}},
	{"Customer Success", []string{"customer", "support"}},
}

const defaultCategory = "General"

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// Extractor turns a message into an idea candidate using marker and keyword
// heuristics.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns a candidate and true when the message describes an idea.
// A minLength of 0 only requires a non-empty description.
func (e *Extractor) Extract(raw RawMessage, ch ChannelSettings, minLength int) (*Candidate, bool) {
	if !utf8.ValidString(raw.Text) {
		return nil, false
	}

	original := norm.NFC.String(raw.Text)
	if containsBlockedPhrase(original) {
		return nil, false
	}

	text, found := stripMarker(original)
	if !found && !ch.AutoApprove {
		return nil, false
	}
	if text == "" {
		return nil, false
	}

	first, rest := splitFirstSentence(text)

	description := renderMarkup(first, renderDescription)
	if rest != "" {
		description += "\n\n" + renderMarkup(rest, renderDescription)
	}
	description = strings.TrimSpace(description)

	if description == "" || utf8.RuneCountInString(description) < minLength {
		return nil, false
	}
	if containsBlockedPhrase(description) {
		return nil, false
	}

	status := StatusDraft
	if ch.AutoApprove {
		status = StatusReady
	}

	return &Candidate{
		Title:       truncateTitle(strings.TrimRight(strings.TrimSpace(renderMarkup(first, renderTitle)), ".")),
		Description: description,
		Priority:    detectPriority(text),
		Category:    detectCategory(text),
		Hashtags:    extractHashtags(text),
		Status:      status,
		Links:       extractLinks(text),
	}, true
}

func stripMarker(text string) (string, bool) {
	for _, rule := range markerRules {
		loc := rule.FindStringIndex(text)
		if loc == nil {
			continue
		}
		stripped := text[:loc[0]] + " " + text[loc[1]:]
		return trimMarkerResidue(stripped), true
	}
	return strings.TrimSpace(text), false
}

func trimMarkerResidue(text string) string {
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '-'
	})
}

// splitFirstSentence splits at the first newline or sentence terminator that
// is outside a <...> token. Terminators are kept with the first part and only
// count when followed by whitespace or the end of the text. Titles drop a
// trailing full stop.
func splitFirstSentence(text string) (string, string) {
	depth := 0
	for i, r := range text {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '\n':
			if depth == 0 {
				return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
			}
		case '.', '?', '!':
			if depth > 0 {
				continue
			}
			next := i + 1
			if next < len(text) && !unicode.IsSpace(rune(text[next])) {
				continue
			}
			return strings.TrimSpace(text[:next]), strings.TrimSpace(text[next:])
		}
	}
	return strings.TrimSpace(text), ""
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}

	cut := MaxTitleLength - utf8.RuneCountInString(titleEllipsis)
	for cut > 0 && unicode.Is(unicode.Mn, runes[cut]) {
		cut--
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + titleEllipsis
}

func detectPriority(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range priorityRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.priority
			}
		}
	}
	return PriorityMedium
}

func detectCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return defaultCategory
}

// extractHashtags keeps order and duplicates and drops the leading '#'. Channel mentions and links are
// removed first so their aliases and URL fragments are not counted.
func extractHashtags(text string) []string {
	text = channelMentionPattern.ReplaceAllString(text, " ")
	text = linkPattern.ReplaceAllString(text, " ")

	hashtags := []string{}
	for _, match := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		hashtags = append(hashtags, match[1])
	}
	return hashtags
}
