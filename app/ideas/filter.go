package ideas

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Reason string

const (
	ReasonAccepted     Reason = ""
	ReasonMalformed    Reason = "malformed"
	ReasonBotEcho      Reason = "bot_echo"
	ReasonAdminSubtype Reason = "admin_subtype"
	ReasonTooShort     Reason = "too_short"
	ReasonSystemPhrase Reason = "system_phrase"
	ReasonMentionsOnly Reason = "mentions_only"
)

const botMessageSubtype = "bot_message"

var adminSubtypes = map[string]bool{
	"channel_join":               true,
	"channel_leave":              true,
	"channel_name":               true,
	"channel_topic":              true,
	"channel_purpose":            true,
	"channel_archive":            true,
	"channel_unarchive":          true,
	"channel_convert_to_private": true,
	"channel_convert_to_public":  true,
	"file_share":                 true,
	"thread_broadcast":           true,
	"bot_add":                    true,
	"bot_remove":                 true,
}

type matchMode int

const (
	matchWhole matchMode = iota
	matchContains
)

type phraseRule struct {
	pattern *regexp.Regexp
	phrase  string
	mode    matchMode
}

func (r phraseRule) matches(text, lower string) bool {
	if r.mode == matchContains {
		return strings.Contains(lower, r.phrase)
	}
	return r.pattern.MatchString(text)
}

func wholeRule(pattern string) phraseRule {
	return phraseRule{
		pattern: regexp.MustCompile(`(?is)^\s*` + pattern + `\s*$`),
		mode:    matchWhole,
	}
}

func containsRule(phrase string) phraseRule {
	return phraseRule{phrase: phrase, mode: matchContains}
}

const mentionToken = `<@[^>\s]+>`

// blockedPhrases are also checked by the extractor on its output.
var blockedPhrases = []string{
	"has joined the channel",
	"has left the channel",
	"has renamed the channel",
	"was added to",
	"was removed from",
}

var systemPhraseRules = func() []phraseRule {
	rules := []phraseRule{
		wholeRule(`(?:` + mentionToken + `\s+)?has (?:joined|left) the channel\.?`),
		wholeRule(`(?:` + mentionToken + `\s+)?(?:has )?renamed the channel\b.*`),
		wholeRule(mentionToken),
		wholeRule(`<?(?:https?://|www\.)[^\s>]+>?`),
		wholeRule(`(?:` + mentionToken + `\s+)?set the channel\b.*`),
		wholeRule(`(?:` + mentionToken + `\s+)?(?:archived|created) the channel\b.*`),
		wholeRule(`(?:` + mentionToken + `\s+)?(?:invited|removed)\b.*\b(?:to|from) the channel\b.*`),
	}
	for _, phrase := range blockedPhrases {
		rules = append(rules, containsRule(phrase))
	}
	return rules
}()

var mentionPattern = regexp.MustCompile(mentionToken)

// Filter decides whether a message is worth keeping. It holds no state and
// is safe for concurrent use.
type Filter struct{}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) Accept(raw RawMessage, ws WorkspaceIdentity, minLength int) bool {
	ok, _ := f.Check(raw, ws, minLength)
	return ok
}

// Check applies the reject rules in order and reports the first one that matched.
func (f *Filter) Check(raw RawMessage, ws WorkspaceIdentity, minLength int) (bool, Reason) {
	if !utf8.ValidString(raw.Text) {
		return false, ReasonMalformed
	}

	if isBotEcho(raw, ws) {
		return false, ReasonBotEcho
	}

	if adminSubtypes[raw.Subtype] {
		return false, ReasonAdminSubtype
	}

	text := strings.TrimSpace(raw.Text)
	length := utf8.RuneCountInString(text)
	if length == 0 || length < minLength {
		return false, ReasonTooShort
	}

	lower := strings.ToLower(text)
	for _, rule := range systemPhraseRules {
		if rule.matches(text, lower) {
			return false, ReasonSystemPhrase
		}
	}

	if isMentionsOnly(text) {
		return false, ReasonMentionsOnly
	}

	return true, ReasonAccepted
}

func isBotEcho(raw RawMessage, ws WorkspaceIdentity) bool {
	if raw.Subtype == botMessageSubtype {
		return true
	}
	if raw.Author != "" && raw.Author == ws.BotUserID {
		return true
	}
	return raw.BotID != "" && raw.BotID == ws.BotID
}

func isMentionsOnly(text string) bool {
	if !mentionPattern.MatchString(text) {
		return false
	}
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, "")) == ""
}

func containsBlockedPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range blockedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
