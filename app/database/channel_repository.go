package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ ChannelRepository = (*channelRepository)(nil)

// channelRepository handles database operations for channels
type channelRepository struct {
	db *DB
}

func NewChannelRepository(db *DB) ChannelRepository {
	return &channelRepository{db: db}
}

const channelColumns = `id, workspace_id, name, cadence, enabled, auto_approve,
	last_cursor, last_synced_at, created_at, updated_at`

// UpsertChannel writes the definition fields only. The sync state columns are
// owned by UpdateSyncState.
func (r *channelRepository) UpsertChannel(channel Channel) error {
	now := formatTime(time.Now())

	_, err := r.db.Exec(`
		INSERT INTO channels (id, workspace_id, name, cadence, enabled, auto_approve, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			name = excluded.name,
			cadence = excluded.cadence,
			enabled = excluded.enabled,
			auto_approve = excluded.auto_approve,
			updated_at = excluded.updated_at
	`, channel.ID, channel.WorkspaceID, channel.Name, channel.Cadence,
		channel.Enabled, channel.AutoApprove, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}

	return nil
}

// UpdateSyncState records a finished sync. An empty cursor keeps the stored one.
func (r *channelRepository) UpdateSyncState(id, cursor string, syncedAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE channels SET
			last_cursor = COALESCE(NULLIF(?, ''), last_cursor),
			last_synced_at = ?,
			updated_at = ?
		WHERE id = ?
	`, cursor, formatTime(syncedAt), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update channel sync state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated channel: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("channel %s not found", id)
	}

	return nil
}

func (r *channelRepository) GetChannel(id string) (*Channel, error) {
	row := r.db.QueryRow(`SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)

	channel, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return channel, nil
}

func (r *channelRepository) GetChannels() ([]Channel, error) {
	return r.queryChannels(`SELECT ` + channelColumns + ` FROM channels ORDER BY workspace_id, id`)
}

func (r *channelRepository) GetEnabledChannels() ([]Channel, error) {
	return r.queryChannels(`SELECT ` + channelColumns + ` FROM channels WHERE enabled = 1 ORDER BY workspace_id, id`)
}

func (r *channelRepository) GetChannelCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM channels`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count channels: %w", err)
	}
	return count, nil
}

func (r *channelRepository) queryChannels(query string, args ...any) ([]Channel, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, *channel)
	}

	return channels, rows.Err()
}

func scanChannel(row rowScanner) (*Channel, error) {
	var channel Channel
	var lastSyncedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&channel.ID, &channel.WorkspaceID, &channel.Name, &channel.Cadence,
		&channel.Enabled, &channel.AutoApprove, &channel.LastCursor, &lastSyncedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if channel.LastSyncedAt, err = parseNullableTime(lastSyncedAt); err != nil {
		return nil, err
	}
	if channel.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if channel.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &channel, nil
}
