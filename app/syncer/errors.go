package syncer

import "fmt"

// ConfigurationError aborts a whole run before any upstream call is made.
type ConfigurationError struct {
	WorkspaceID string
	ChannelID   string
	Reason      string
	Err         error
}

func (e *ConfigurationError) Error() string {
	target := "workspace " + e.WorkspaceID
	if e.ChannelID != "" {
		target = "channel " + e.ChannelID
	}
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %s: %v", target, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %s", target, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PersistenceError is a storage failure for a single message or cursor update.
type PersistenceError struct {
	Op        string
	ChannelID string
	MessageID string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("failed to %s message %s in channel %s: %v", e.Op, e.MessageID, e.ChannelID, e.Err)
	}
	return fmt.Sprintf("failed to %s for channel %s: %v", e.Op, e.ChannelID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
