package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var _ IdeaRepository = (*ideaRepository)(nil)

// ideaRepository handles database operations for ideas and their links
type ideaRepository struct {
	db *DB
}

func NewIdeaRepository(db *DB) IdeaRepository {
	return &ideaRepository{db: db}
}

const ideaColumns = `id, channel_id, message_id, title, description, priority,
	category, hashtags, status, author_name, created_at`

const linkColumns = `id, idea_id, url, label, status, title, excerpt,
	attempts, error, extracted_at`

// CreateIdea stores the idea and its links and flips the message to converted
// in one transaction. It returns ErrAlreadyConverted when another run got there
// first.
func (r *ideaRepository) CreateIdea(messageRowID int64, idea Idea, links []IdeaLink) error {
	hashtags, err := json.Marshal(nonNilStrings(idea.Hashtags))
	if err != nil {
		return fmt.Errorf("failed to encode hashtags: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	createdAt := now
	if !idea.CreatedAt.IsZero() {
		createdAt = formatTime(idea.CreatedAt)
	}

	result, err := tx.Exec(`
		UPDATE messages SET converted_to_idea = 1, is_processed = 1, idea_id = ?, updated_at = ?
		WHERE id = ? AND converted_to_idea = 0
	`, idea.ID, now, messageRowID)
	if err != nil {
		return fmt.Errorf("failed to mark message converted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check converted message: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyConverted
	}

	_, err = tx.Exec(`
		INSERT INTO ideas (`+ideaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, idea.ID, idea.ChannelID, idea.MessageID, idea.Title, idea.Description, idea.Priority,
		idea.Category, string(hashtags), idea.Status, idea.AuthorName, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert idea: %w", err)
	}

	for _, link := range links {
		_, err = tx.Exec(`
			INSERT INTO idea_links (idea_id, url, label, status)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (idea_id, url) DO NOTHING
		`, idea.ID, link.URL, link.Label, LinkStatusPending)
		if err != nil {
			return fmt.Errorf("failed to insert idea link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit idea: %w", err)
	}

	return nil
}

func (r *ideaRepository) GetIdea(id string) (*Idea, error) {
	row := r.db.QueryRow(`SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id)

	idea, err := scanIdea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idea: %w", err)
	}

	return idea, nil
}

// GetIdeas returns ideas newest first. A zero limit returns all of them.
func (r *ideaRepository) GetIdeas(filter IdeaFilter) ([]Idea, error) {
	var conditions []string
	var args []any

	if filter.ChannelID != "" {
		conditions = append(conditions, "channel_id = ?")
		args = append(args, filter.ChannelID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + ideaColumns + ` FROM ideas`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ideas: %w", err)
	}
	defer rows.Close()

	var ideas []Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, *idea)
	}

	return ideas, rows.Err()
}

func (r *ideaRepository) GetIdeaCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM ideas`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}
	return count, nil
}

func (r *ideaRepository) GetIdeaLinks(ideaID string) ([]IdeaLink, error) {
	return r.queryLinks(`SELECT `+linkColumns+` FROM idea_links WHERE idea_id = ? ORDER BY id`, ideaID)
}

func (r *ideaRepository) GetLinksForExtraction(limit int) ([]IdeaLink, error) {
	return r.queryLinks(`SELECT `+linkColumns+` FROM idea_links WHERE status = ? ORDER BY id LIMIT ?`,
		LinkStatusPending, limit)
}

func (r *ideaRepository) UpdateLinkPreview(id int64, status, title, excerpt string, extractedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE idea_links SET status = ?, title = ?, excerpt = ?, error = '',
			attempts = attempts + 1, extracted_at = ?
		WHERE id = ?
	`, status, title, excerpt, formatTime(extractedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update link preview: %w", err)
	}
	return nil
}

// RecordLinkFailure counts a failed attempt and gives up on the link once
// maxAttempts is reached.
func (r *ideaRepository) RecordLinkFailure(id int64, errorMsg string, maxAttempts int) error {
	_, err := r.db.Exec(`
		UPDATE idea_links SET
			attempts = attempts + 1,
			error = ?,
			status = CASE WHEN attempts + 1 >= ? THEN ? ELSE status END,
			extracted_at = ?
		WHERE id = ?
	`, errorMsg, maxAttempts, LinkStatusFailed, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to record link failure: %w", err)
	}
	return nil
}

func (r *ideaRepository) queryLinks(query string, args ...any) ([]IdeaLink, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query idea links: %w", err)
	}
	defer rows.Close()

	var links []IdeaLink
	for rows.Next() {
		var link IdeaLink
		var extractedAt sql.NullString

		err := rows.Scan(&link.ID, &link.IdeaID, &link.URL, &link.Label, &link.Status,
			&link.Title, &link.Excerpt, &link.Attempts, &link.Error, &extractedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea link: %w", err)
		}
		if link.ExtractedAt, err = parseNullableTime(extractedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func scanIdea(row rowScanner) (*Idea, error) {
	var idea Idea
	var hashtags, createdAt string

	err := row.Scan(&idea.ID, &idea.ChannelID, &idea.MessageID, &idea.Title, &idea.Description,
		&idea.Priority, &idea.Category, &hashtags, &idea.Status, &idea.AuthorName, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(hashtags), &idea.Hashtags); err != nil {
		return nil, fmt.Errorf("failed to decode hashtags: %w", err)
	}
	if idea.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &idea, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
