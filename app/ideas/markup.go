package ideas

import (
	"regexp"
	"strings"
)

var (
	userMentionPattern    = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)
	channelMentionPattern = regexp.MustCompile(`<#[A-Z0-9]+(?:\|([^>]*))?>`)
	specialMentionPattern = regexp.MustCompile(`<!(here|channel|everyone)(?:\|[^>]*)?>`)
	linkPattern           = regexp.MustCompile(`<((?:https?|mailto):[^|>\s]+)(?:\|([^>]*))?>`)

	entityReplacer = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

type renderMode int

const (
	renderTitle renderMode = iota
	renderDescription
)

// renderMarkup turns Slack mrkdwn tokens into plain text.
func renderMarkup(text string, mode renderMode) string {
	text = userMentionPattern.ReplaceAllString(text, "@user")

	text = channelMentionPattern.ReplaceAllStringFunc(text, func(token string) string {
		alias := channelMentionPattern.FindStringSubmatch(token)[1]
		if alias == "" {
			return "#channel"
		}
		return "#" + alias
	})

	text = specialMentionPattern.ReplaceAllString(text, "@$1")

	text = linkPattern.ReplaceAllStringFunc(text, func(token string) string {
		parts := linkPattern.FindStringSubmatch(token)
		url, label := parts[1], parts[2]
		if label == "" || label == url {
			return url
		}
		if mode == renderTitle {
			return label
		}
		return label + " (" + url + ")"
	})

	return entityReplacer.Replace(text)
}

// extractLinks returns the web links referenced by a message in order of appearance.
func extractLinks(text string) []Link {
	var links []Link
	seen := make(map[string]bool)

	for _, parts := range linkPattern.FindAllStringSubmatch(text, -1) {
		url := entityReplacer.Replace(parts[1])
		if strings.HasPrefix(url, "mailto:") || seen[url] {
			continue
		}
		seen[url] = true
		links = append(links, Link{URL: url, Label: entityReplacer.Replace(parts[2])})
	}

	return links
}
