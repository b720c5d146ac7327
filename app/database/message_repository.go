package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ MessageRepository = (*messageRepository)(nil)

// messageRepository handles database operations for stored messages
type messageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) MessageRepository {
	return &messageRepository{db: db}
}

// UpsertMessage refreshes the content columns of an existing row and never
// resets its processing flags.
func (r *messageRepository) UpsertMessage(message StoredMessage) (*StoredMessage, error) {
	now := formatTime(time.Now())

	stored := message
	var ideaID sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRow(`
		INSERT INTO messages (
			channel_id, message_id, author_id, author_name, text,
			message_ts, thread_ts, subtype, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, message_id) DO UPDATE SET
			author_id = excluded.author_id,
			author_name = excluded.author_name,
			text = excluded.text,
			message_ts = excluded.message_ts,
			thread_ts = excluded.thread_ts,
			subtype = excluded.subtype,
			updated_at = excluded.updated_at
		RETURNING id, is_processed, converted_to_idea, idea_id, created_at, updated_at
	`, message.ChannelID, message.MessageID, message.AuthorID, message.AuthorName, message.Text,
		message.MessageTS, message.ThreadTS, message.Subtype, now, now).
		Scan(&stored.ID, &stored.IsProcessed, &stored.ConvertedToIdea, &ideaID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert message: %w", err)
	}

	stored.IdeaID = ideaID.String
	if stored.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if stored.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *messageRepository) MarkProcessed(id int64) error {
	_, err := r.db.Exec(`
		UPDATE messages SET is_processed = 1, updated_at = ? WHERE id = ?
	`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

func (r *messageRepository) GetMessage(channelID, messageID string) (*StoredMessage, error) {
	var message StoredMessage
	var ideaID sql.NullString
	var createdAt, updatedAt string

	err := r.db.QueryRow(`
		SELECT id, channel_id, message_id, author_id, author_name, text, message_ts,
			thread_ts, subtype, is_processed, converted_to_idea, idea_id, created_at, updated_at
		FROM messages WHERE channel_id = ? AND message_id = ?
	`, channelID, messageID).Scan(&message.ID, &message.ChannelID, &message.MessageID,
		&message.AuthorID, &message.AuthorName, &message.Text, &message.MessageTS,
		&message.ThreadTS, &message.Subtype, &message.IsProcessed, &message.ConvertedToIdea,
		&ideaID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	message.IdeaID = ideaID.String
	if message.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if message.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *messageRepository) GetMessageCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
