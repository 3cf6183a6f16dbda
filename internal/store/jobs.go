package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AdmitJob decides whether a delivery event wins ownership of the job keyed
// by (objectKey, etag). The decision is a single atomic upsert so that two
// duplicate deliveries arriving concurrently cannot both win:
//
//   - no row: insert with status processing, caller processes
//   - row with status failed: overwrite to processing (retry), caller processes
//   - row processing but started before the staleness cutoff: overwrite
//     (suspected crash), caller processes
//   - otherwise (done, or processing and fresh): skip duplicate
//
// staleAfter bounds how long a processing row shields its key from
// re-admission.
func (s *Store) AdmitJob(ctx context.Context, objectKey, etag, videoUID string, videoID *int64, staleAfter time.Duration) (Admission, error) {
	if objectKey == "" || etag == "" {
		return AdmissionSkipDuplicate, errors.New("admit job: object key and etag are required")
	}
	now := time.Now().UTC()
	timestamp := formatTime(now)
	staleCutoff := formatTime(now.Add(-staleAfter))

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO ingest_jobs (
            object_key, etag, video_uid, video_id, status, retry_count,
            started_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
        ON CONFLICT(object_key, etag) DO UPDATE SET
            status = excluded.status,
            video_uid = excluded.video_uid,
            started_at = excluded.started_at,
            retry_count = ingest_jobs.retry_count + 1,
            error_message = NULL,
            finished_at = NULL,
            updated_at = excluded.updated_at
        WHERE ingest_jobs.status = ?
           OR (ingest_jobs.status = ? AND ingest_jobs.started_at < ?)`,
		objectKey,
		etag,
		videoUID,
		videoID,
		JobProcessing,
		timestamp,
		timestamp,
		timestamp,
		JobFailed,
		JobProcessing,
		staleCutoff,
	)
	if err != nil {
		return AdmissionSkipDuplicate, fmt.Errorf("admit job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return AdmissionSkipDuplicate, fmt.Errorf("admit job rows affected: %w", err)
	}
	if affected == 0 {
		return AdmissionSkipDuplicate, nil
	}
	return AdmissionProcess, nil
}

// CompleteJob transitions a processing job to a terminal state and stamps
// finished_at. It reports whether a row was transitioned; false means the
// job was not in processing (already completed, or reclaimed by a stale
// re-admission).
func (s *Store) CompleteJob(ctx context.Context, objectKey, etag string, outcome JobStatus, errorMessage string) (bool, error) {
	if outcome != JobDone && outcome != JobFailed {
		return false, fmt.Errorf("complete job: %q is not a terminal status", outcome)
	}
	timestamp := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ingest_jobs
         SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE object_key = ? AND etag = ? AND status = ?`,
		outcome,
		nullableString(errorMessage),
		timestamp,
		timestamp,
		objectKey,
		etag,
		JobProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete job rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetJobVideoID records the video row a job resolved to.
func (s *Store) SetJobVideoID(ctx context.Context, objectKey, etag string, videoID int64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE ingest_jobs SET video_id = ?, updated_at = ? WHERE object_key = ? AND etag = ?`,
		videoID,
		formatTime(time.Now().UTC()),
		objectKey,
		etag,
	)
	if err != nil {
		return fmt.Errorf("set job video id: %w", err)
	}
	return nil
}

// GetJob fetches one ledger row by idempotency key.
func (s *Store) GetJob(ctx context.Context, objectKey, etag string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM ingest_jobs WHERE object_key = ? AND etag = ?`,
		objectKey,
		etag,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns ledger rows filtered by status set (or all rows when no
// status is provided), oldest first.
func (s *Store) ListJobs(ctx context.Context, statuses ...JobStatus) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM ingest_jobs`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns ledger counts grouped by status.
func (s *Store) Stats(ctx context.Context) (JobStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ingest_jobs GROUP BY status`)
	if err != nil {
		return JobStats{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := JobStats{}
	for rows.Next() {
		var status JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return JobStats{}, err
		}
		stats.Total += count
		switch status {
		case JobProcessing:
			stats.Processing += count
		case JobDone:
			stats.Done += count
		case JobFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

const jobColumns = "object_key, etag, video_uid, video_id, status, error_message, retry_count, started_at, finished_at, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		objectKey    string
		etag         string
		videoUID     string
		videoID      sql.NullInt64
		statusStr    string
		errorMessage sql.NullString
		retryCount   int
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&objectKey,
		&etag,
		&videoUID,
		&videoID,
		&statusStr,
		&errorMessage,
		&retryCount,
		&startedRaw,
		&finishedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ObjectKey:    objectKey,
		Etag:         etag,
		VideoUID:     videoUID,
		Status:       JobStatus(statusStr),
		ErrorMessage: errorMessage.String,
		RetryCount:   retryCount,
	}
	if videoID.Valid {
		id := videoID.Int64
		job.VideoID = &id
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
