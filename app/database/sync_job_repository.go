package database

import (
	"encoding/json"
	"fmt"
)

var _ SyncJobRepository = (*syncJobRepository)(nil)

// syncJobRepository is the insert-only ledger of sync runs
type syncJobRepository struct {
	db *DB
}

func NewSyncJobRepository(db *DB) SyncJobRepository {
	return &syncJobRepository{db: db}
}

func (r *syncJobRepository) CreateSyncJob(job SyncJob) error {
	errs, err := json.Marshal(nonNilStrings(job.Errors))
	if err != nil {
		return fmt.Errorf("failed to encode sync errors: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO sync_jobs (
			id, trigger_type, channel_id, channels_synced, messages_fetched,
			messages_processed, ideas_created, errors, success, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Trigger, job.ChannelID, job.ChannelsSynced, job.MessagesFetched,
		job.MessagesProcessed, job.IdeasCreated, string(errs), job.Success,
		formatTime(job.StartedAt), formatTime(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to insert sync job: %w", err)
	}

	return nil
}

func (r *syncJobRepository) GetRecentSyncJobs(limit int) ([]SyncJob, error) {
	rows, err := r.db.Query(`
		SELECT id, trigger_type, channel_id, channels_synced, messages_fetched,
			messages_processed, ideas_created, errors, success, started_at, finished_at
		FROM sync_jobs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []SyncJob
	for rows.Next() {
		var job SyncJob
		var errs, startedAt, finishedAt string

		err := rows.Scan(&job.ID, &job.Trigger, &job.ChannelID, &job.ChannelsSynced,
			&job.MessagesFetched, &job.MessagesProcessed, &job.IdeasCreated, &errs,
			&job.Success, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}

		if err := json.Unmarshal([]byte(errs), &job.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode sync errors: %w", err)
		}
		if job.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if job.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
