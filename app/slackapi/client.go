package slackapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/lysyi3m/idea-comb/app/ideas"
)

const messageChangedSubtype = "message_changed"

type HistoryRequest struct {
	ChannelID string
	Cursor    string // pagination cursor
	Oldest    string // only messages newer than this ts
	Limit     int
}

type HistoryPage struct {
	Messages   []ideas.RawMessage
	NextCursor string
	HasMore    bool
}

type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
}

// BestName returns the most human friendly name Slack knows for the user.
func (u *User) BestName() string {
	for _, name := range []string{u.DisplayName, u.RealName, u.Name} {
		if name != "" {
			return name
		}
	}
	return u.ID
}

// Client calls the Slack Web API on behalf of many workspaces. The bot token
// is passed per call.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

func NewClient(apiURL string, httpClient *http.Client) *Client {
	if apiURL != "" && !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &Client{apiURL: apiURL, httpClient: httpClient}
}

func (c *Client) api(token string) *slack.Client {
	options := []slack.Option{slack.OptionHTTPClient(c.httpClient)}
	if c.apiURL != "" {
		options = append(options, slack.OptionAPIURL(c.apiURL))
	}
	return slack.New(token, options...)
}

func (c *Client) History(ctx context.Context, token string, req HistoryRequest) (*HistoryPage, error) {
	resp, err := c.api(token).GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: req.ChannelID,
		Cursor:    req.Cursor,
		Oldest:    req.Oldest,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, classify(err, req.ChannelID)
	}

	page := &HistoryPage{
		Messages:   make([]ideas.RawMessage, 0, len(resp.Messages)),
		NextCursor: resp.ResponseMetaData.NextCursor,
		HasMore:    resp.HasMore,
	}
	for _, message := range resp.Messages {
		page.Messages = append(page.Messages, FromMessage(message.Msg))
	}

	return page, nil
}

func (c *Client) UserInfo(ctx context.Context, token, userID string) (*User, error) {
	user, err := c.api(token).GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, classify(err, "")
	}

	return &User{
		ID:          user.ID,
		Name:        user.Name,
		RealName:    user.RealName,
		DisplayName: user.Profile.DisplayName,
	}, nil
}

// AuthTest verifies a bot token and returns the identity it belongs to.
func (c *Client) AuthTest(ctx context.Context, token string) (*ideas.WorkspaceIdentity, error) {
	resp, err := c.api(token).AuthTestContext(ctx)
	if err != nil {
		return nil, classify(err, "")
	}

	return &ideas.WorkspaceIdentity{
		ID:        resp.TeamID,
		Name:      resp.Team,
		BotUserID: resp.UserID,
		BotID:     resp.BotID,
	}, nil
}

func FromMessage(msg slack.Msg) ideas.RawMessage {
	raw := ideas.RawMessage{
		ID:           msg.Timestamp,
		Author:       msg.User,
		BotID:        msg.BotID,
		Text:         msg.Text,
		Timestamp:    msg.Timestamp,
		ThreadParent: msg.ThreadTimestamp,
		Subtype:      msg.SubType,
		Attachments:  len(msg.Attachments) + len(msg.Files),
	}
	for _, reaction := range msg.Reactions {
		raw.Reactions = append(raw.Reactions, ideas.Reaction{Name: reaction.Name, Count: reaction.Count})
	}
	return raw
}

// FromEvent converts a pushed message event. Edits carry the new message
// nested in the event and are unwrapped.
func FromEvent(ev *slackevents.MessageEvent) ideas.RawMessage {
	if ev.SubType == messageChangedSubtype && ev.Message != nil {
		return FromEvent(ev.Message)
	}

	return ideas.RawMessage{
		ID:           ev.TimeStamp,
		Author:       ev.User,
		BotID:        ev.BotID,
		Text:         ev.Text,
		Timestamp:    ev.TimeStamp,
		ThreadParent: ev.ThreadTimeStamp,
		Subtype:      ev.SubType,
		Attachments:  len(ev.Attachments) + len(ev.Files),
	}
}
