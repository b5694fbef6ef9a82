package catalog

import (
	"context"
	"fmt"
	"time"
)

// HasActiveJob reports whether a pending or processing job already
// exists for the (asset, job type) pair.
func (s *Store) HasActiveJob(ctx context.Context, q Querier, assetID int64, jobType MlJobType) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ml_jobs
		WHERE asset_id = ? AND job_type = ? AND status IN ('pending', 'processing')
	`, assetID, string(jobType)).Scan(&n)
	return n > 0, err
}

// EnqueueJob creates a pending ML job. Enqueueing is idempotent: when
// an active job already exists for the pair, nothing is inserted and
// false is returned.
func (s *Store) EnqueueJob(ctx context.Context, q Querier, assetID int64, jobType MlJobType) (bool, error) {
	done := observeQuery("enqueue_ml_job")

	active, err := s.HasActiveJob(ctx, q, assetID, jobType)
	if err != nil {
		done(err)
		return false, fmt.Errorf("failed to check active job for asset %d: %w", assetID, err)
	}
	if active {
		done(nil)
		return false, nil
	}

	now := time.Now().Unix()
	_, err = q.ExecContext(ctx, `
		INSERT INTO ml_jobs (asset_id, job_type, status, created_at, updated_at)
		VALUES (?, ?, 'pending', ?, ?)
	`, assetID, string(jobType), now, now)
	done(err)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue %s job for asset %d: %w", jobType, assetID, err)
	}
	return true, nil
}

// JobsByAsset returns every ML job recorded for an asset.
func (s *Store) JobsByAsset(ctx context.Context, q Querier, assetID int64) ([]MlJob, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, job_type, status, created_at, updated_at
		FROM ml_jobs WHERE asset_id = ? ORDER BY id
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for asset %d: %w", assetID, err)
	}
	defer rows.Close()

	var jobs []MlJob
	for rows.Next() {
		var j MlJob
		var jobType, status string
		var createdAt, updatedAt int64
		if err := rows.Scan(&j.ID, &j.AssetID, &jobType, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.JobType = MlJobType(jobType)
		j.Status = MlJobStatus(status)
		j.CreatedAt = time.Unix(createdAt, 0)
		j.UpdatedAt = time.Unix(updatedAt, 0)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus moves a job to a new lifecycle state. Used by the
// (out-of-scope) ML workers; kept here so the lifecycle is complete.
func (s *Store) UpdateJobStatus(ctx context.Context, q Querier, jobID int64, status MlJobStatus) error {
	_, err := q.ExecContext(ctx,
		"UPDATE ml_jobs SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().Unix(), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %d: %w", jobID, err)
	}
	return nil
}
