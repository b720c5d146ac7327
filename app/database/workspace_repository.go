package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ WorkspaceRepository = (*workspaceRepository)(nil)

// workspaceRepository handles database operations for workspaces
type workspaceRepository struct {
	db *DB
}

func NewWorkspaceRepository(db *DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

// UpsertWorkspace keeps a known bot identity when the incoming one is empty.
func (r *workspaceRepository) UpsertWorkspace(workspace Workspace) error {
	now := formatTime(time.Now())

	_, err := r.db.Exec(`
		INSERT INTO workspaces (id, name, bot_token, bot_user_id, bot_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			bot_token = excluded.bot_token,
			bot_user_id = CASE WHEN excluded.bot_user_id != '' THEN excluded.bot_user_id ELSE workspaces.bot_user_id END,
			bot_id = CASE WHEN excluded.bot_id != '' THEN excluded.bot_id ELSE workspaces.bot_id END,
			updated_at = excluded.updated_at
	`, workspace.ID, workspace.Name, workspace.BotToken, workspace.BotUserID, workspace.BotID, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert workspace: %w", err)
	}

	return nil
}

func (r *workspaceRepository) UpdateBotIdentity(id, botUserID, botID string) error {
	_, err := r.db.Exec(`
		UPDATE workspaces SET bot_user_id = ?, bot_id = ?, updated_at = ?
		WHERE id = ?
	`, botUserID, botID, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update bot identity: %w", err)
	}

	return nil
}

func (r *workspaceRepository) GetWorkspace(id string) (*Workspace, error) {
	row := r.db.QueryRow(`
		SELECT id, name, bot_token, bot_user_id, bot_id, created_at, updated_at
		FROM workspaces WHERE id = ?
	`, id)

	workspace, err := scanWorkspace(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return workspace, nil
}

func (r *workspaceRepository) GetWorkspaces() ([]Workspace, error) {
	rows, err := r.db.Query(`
		SELECT id, name, bot_token, bot_user_id, bot_id, created_at, updated_at
		FROM workspaces ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []Workspace
	for rows.Next() {
		workspace, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, *workspace)
	}

	return workspaces, rows.Err()
}

func (r *workspaceRepository) GetWorkspaceCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM workspaces`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count workspaces: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*Workspace, error) {
	var workspace Workspace
	var createdAt, updatedAt string

	err := row.Scan(&workspace.ID, &workspace.Name, &workspace.BotToken,
		&workspace.BotUserID, &workspace.BotID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if workspace.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if workspace.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &workspace, nil
}
