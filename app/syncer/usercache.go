package syncer

import (
	"context"
	"log/slog"
)

// userCache resolves author names for one run. Lookup failures fall back to
// the raw id and are not retried within the run.
type userCache struct {
	provider Provider
	names    map[string]string
}

func newUserCache(provider Provider) *userCache {
	return &userCache{provider: provider, names: make(map[string]string)}
}

func (c *userCache) Resolve(ctx context.Context, token, userID string) string {
	if userID == "" {
		return ""
	}
	if name, ok := c.names[userID]; ok {
		return name
	}

	name := userID
	user, err := c.provider.UserInfo(ctx, token, userID)
	if err != nil {
		slog.Debug("User lookup failed, using id", "user", userID, "error", err)
	} else if user != nil {
		name = user.BestName()
	}

	c.names[userID] = name
	return name
}
