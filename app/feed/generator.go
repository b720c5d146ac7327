package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/idea-comb/app/cfg"
	"github.com/lysyi3m/idea-comb/app/database"
)

// Generator renders the ideas of one channel as an RSS 2.0 feed.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run expects ideas newest first. links maps idea ids to their extracted links.
func (g *Generator) Run(channel database.Channel, ideas []database.Idea, links map[string][]database.IdeaLink) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	channelName := channel.Name
	if channelName == "" {
		channelName = channel.ID
	}

	selfLink := g.selfLink(channel.ID)

	g.writeElement(&buf, "title", fmt.Sprintf("#%s ideas", channelName), 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Content ideas collected from Slack channel #%s", channelName), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(ideas) > 0 {
		lastBuildDate = ideas[0].CreatedAt.In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Idea-Comb/%s", cfg.Get().Version), 4)

	for _, idea := range ideas {
		g.writeItem(&buf, idea, links[idea.ID])
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfLink(channelID string) string {
	if cfg.Get().BaseUrl != "" {
		return fmt.Sprintf("%s/feeds/%s", strings.TrimSuffix(cfg.Get().BaseUrl, "/"), channelID)
	}
	return fmt.Sprintf("http://localhost:%s/feeds/%s", cfg.Get().Port, channelID)
}

func (g *Generator) writeItem(buf *bytes.Buffer, idea database.Idea, links []database.IdeaLink) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(idea.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", idea.Title, 6)

	if len(links) > 0 {
		g.writeElement(buf, "link", links[0].URL, 6)
	}

	g.writeElement(buf, "description", idea.Description, 6)

	if content := g.renderContent(idea, links); content != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", idea.CreatedAt.In(time.Local).Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", idea.AuthorName, 6)

	g.writeCategory(buf, "", idea.Category)
	g.writeCategory(buf, "priority", idea.Priority)
	g.writeCategory(buf, "status", idea.Status)
	for _, hashtag := range idea.Hashtags {
		g.writeCategory(buf, "hashtag", hashtag)
	}

	buf.WriteString("    </item>\n")
}

// renderContent lists the idea's links with whatever previews were extracted.
func (g *Generator) renderContent(idea database.Idea, links []database.IdeaLink) string {
	if len(links) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(html.EscapeString(idea.Description))
	b.WriteString("</p>\n<ul>\n")

	for _, link := range links {
		label := link.Title
		if label == "" {
			label = link.Label
		}
		if label == "" {
			label = link.URL
		}

		b.WriteString(fmt.Sprintf("<li><a href=\"%s\">%s</a>", html.EscapeString(link.URL), html.EscapeString(label)))
		if link.Excerpt != "" {
			b.WriteString("<br/>")
			b.WriteString(html.EscapeString(link.Excerpt))
		}
		b.WriteString("</li>\n")
	}

	b.WriteString("</ul>")
	return b.String()
}

func (g *Generator) writeCategory(buf *bytes.Buffer, domain, value string) {
	if value == "" {
		return
	}

	if domain == "" {
		g.writeElement(buf, "category", value, 6)
		return
	}

	buf.WriteString(fmt.Sprintf("      <category domain=\"%s\">", html.EscapeString(domain)))
	xml.EscapeText(buf, []byte(value))
	buf.WriteString("</category>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
