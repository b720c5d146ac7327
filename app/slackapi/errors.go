package slackapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

type ErrorKind string

const (
	KindAuth            ErrorKind = "auth"
	KindRateLimited     ErrorKind = "rate_limited"
	KindChannelNotFound ErrorKind = "channel_not_found"
	KindNotInChannel    ErrorKind = "not_in_channel"
	KindProvider        ErrorKind = "provider"
)

var authCodes = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"account_inactive": true,
	"token_revoked":    true,
	"token_expired":    true,
	"missing_scope":    true,
}

// Error is an upstream failure classified by what the operator has to do about it.
type Error struct {
	Kind       ErrorKind
	Code       string
	ChannelID  string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuth:
		if e.Code == "missing_scope" {
			return "slack token is missing a required scope: grant channels:history and users:read to the app and reinstall it"
		}
		return fmt.Sprintf("slack authentication failed (%s): reinstall the app or update the bot token", e.Code)
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("slack rate limit hit: retry after %s", e.RetryAfter)
		}
		return "slack rate limit hit: retry later"
	case KindChannelNotFound:
		return fmt.Sprintf("channel %s not found: check the channel id in the workspace configuration", e.ChannelID)
	case KindNotInChannel:
		return fmt.Sprintf("bot is not a member of channel %s: invite the bot with /invite", e.ChannelID)
	default:
		return fmt.Sprintf("slack request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is an authentication failure that invalidates
// every further call with the same token.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

func classify(err error, channelID string) error {
	if err == nil {
		return nil
	}

	apiErr := &Error{Kind: KindProvider, ChannelID: channelID, Err: err}

	var rateLimited *slack.RateLimitedError
	var slackErr slack.SlackErrorResponse
	var statusErr slack.StatusCodeError

	switch {
	case errors.As(err, &rateLimited):
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter = rateLimited.RetryAfter
	case errors.As(err, &slackErr):
		apiErr.Code = slackErr.Err
		apiErr.Kind = kindForCode(slackErr.Err)
	case errors.As(err, &statusErr):
		apiErr.Code = statusErr.Status
		if statusErr.Code == http.StatusTooManyRequests {
			apiErr.Kind = KindRateLimited
		}
		if statusErr.Code == http.StatusUnauthorized {
			apiErr.Kind = KindAuth
		}
	}

	return apiErr
}

func kindForCode(code string) ErrorKind {
	switch {
	case authCodes[code]:
		return KindAuth
	case code == "ratelimited" || code == "rate_limited":
		return KindRateLimited
	case code == "channel_not_found":
		return KindChannelNotFound
	case code == "not_in_channel":
		return KindNotInChannel
	default:
		return KindProvider
	}
}
