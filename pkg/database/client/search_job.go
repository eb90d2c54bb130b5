/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TSearchIndexJob = "search_index_jobs"
)

var (
	// Duplicate deliveries for a version collapse onto the (tenant, version)
	// key and reset the job to a fresh pending state.
	upsertSearchJobFormat = `INSERT INTO ` + TSearchIndexJob + ` (%s) VALUES (%s)
		ON CONFLICT (tenant_id, version_id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = 0,
			available_at = EXCLUDED.available_at,
			last_error = NULL,
			updated_at = EXCLUDED.updated_at`

	getSearchJobCmd = fmt.Sprintf(`SELECT * FROM %s WHERE job_id = $1 LIMIT 1`, TSearchIndexJob)
	getSearchJobByVersionCmd = fmt.Sprintf(
		`SELECT * FROM %s WHERE tenant_id = $1 AND version_id = $2 LIMIT 1`, TSearchIndexJob)

	claimSearchJobsCmd = fmt.Sprintf(`SELECT * FROM %s
		WHERE status IN ('%s', '%s') AND available_at <= $1 AND attempts < $2
		ORDER BY available_at, created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`, TSearchIndexJob, JobPending, JobFailed)
	setSearchJobsProcessingCmd = fmt.Sprintf(
		`UPDATE %s SET status = '%s', updated_at = $2 WHERE job_id = ANY($1)`,
		TSearchIndexJob, JobProcessing)

	completeSearchJobCmd = fmt.Sprintf(
		`UPDATE %s SET status = '%s', last_error = NULL, updated_at = $2 WHERE job_id = $1`,
		TSearchIndexJob, JobCompleted)
	failSearchJobCmd = fmt.Sprintf(
		`UPDATE %s SET status = '%s', attempts = $2, available_at = $3, last_error = $4, updated_at = $5 WHERE job_id = $1`,
		TSearchIndexJob, JobFailed)
)

// UpsertSearchJobPending enqueues an index job for a version, resetting any
// existing job for the same (tenant, version) to pending.
func (c *Client) UpsertSearchJobPending(ctx context.Context, q Queryer, job *SearchIndexJob) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	job.Status = JobPending
	job.Attempts = 0
	job.UpdatedAt = dbutils.NullTime(time.Now().UTC())
	_, err = sqlxNamedExec(ctx, q, generateCommand(*job, upsertSearchJobFormat, ""), job)
	if err != nil {
		klog.ErrorS(err, "failed to upsert search job", "versionId", job.VersionId)
	}
	return err
}

func (c *Client) GetSearchJob(ctx context.Context, jobId string) (*SearchIndexJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var jobs []*SearchIndexJob
	if err = db.SelectContext(ctx, &jobs, getSearchJobCmd, jobId); err != nil {
		klog.ErrorS(err, "failed to select search job", "id", jobId)
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, commonerrors.NewNotFound("search index job", jobId)
	}
	return jobs[0], nil
}

func (c *Client) GetSearchJobByVersion(ctx context.Context, tenantId, versionId string) (*SearchIndexJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var jobs []*SearchIndexJob
	if err = db.SelectContext(ctx, &jobs, getSearchJobByVersionCmd, tenantId, versionId); err != nil {
		klog.ErrorS(err, "failed to select search job", "versionId", versionId)
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, commonerrors.NewNotFound("search index job", versionId)
	}
	return jobs[0], nil
}

// ClaimSearchJobs locks a batch of runnable jobs and flips them to
// processing. Jobs at the attempt budget are excluded, which is the
// dead-letter mechanism.
func (c *Client) ClaimSearchJobs(ctx context.Context, tx *sqlx.Tx, now time.Time, maxAttempts, limit int) ([]*SearchIndexJob, error) {
	if tx == nil {
		return nil, commonerrors.NewInternalError("claim requires a transaction")
	}
	var jobs []*SearchIndexJob
	if err := tx.SelectContext(ctx, &jobs, claimSearchJobsCmd, now, maxAttempts, limit); err != nil {
		klog.ErrorS(err, "failed to claim search jobs")
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.JobId)
		job.Status = JobProcessing
	}
	if _, err := tx.ExecContext(ctx, setSearchJobsProcessingCmd, pq.Array(ids), now); err != nil {
		klog.ErrorS(err, "failed to mark search jobs processing")
		return nil, err
	}
	return jobs, nil
}

func (c *Client) CompleteSearchJob(ctx context.Context, q Queryer, jobId string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, completeSearchJobCmd, jobId, time.Now().UTC()); err != nil {
		klog.ErrorS(err, "failed to complete search job", "id", jobId)
		return err
	}
	return nil
}

func (c *Client) FailSearchJob(ctx context.Context, q Queryer, jobId string, attempts int, availableAt time.Time, lastError string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, failSearchJobCmd,
		jobId, attempts, availableAt, dbutils.NullString(lastError), time.Now().UTC())
	if err != nil {
		klog.ErrorS(err, "failed to fail search job", "id", jobId)
		return err
	}
	return nil
}
