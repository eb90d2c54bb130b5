/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TGcRun  = "gc_runs"
	TGcMark = "gc_marks"
)

var (
	insertGcRunFormat = `INSERT INTO ` + TGcRun + ` (%s) VALUES (%s)`
	getGcRunCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE run_id = $1 LIMIT 1`, TGcRun)

	// Reachable set: digests referenced by published versions, plus digests
	// referenced by tombstoned versions still inside their retention window.
	insertReachableMarksCmd = fmt.Sprintf(`INSERT INTO %s (run_id, digest)
		SELECT DISTINCT $1, d.digest FROM (
			SELECT e.blob_digest AS digest
			FROM %s e
			JOIN %s v ON v.version_id = e.version_id
			LEFT JOIN %s t ON t.version_id = v.version_id
			WHERE v.state = '%s' OR (v.state = '%s' AND t.retention_until > $2)
			UNION
			SELECT m.manifest_blob_digest AS digest
			FROM %s m
			JOIN %s v ON v.version_id = m.version_id
			LEFT JOIN %s t ON t.version_id = v.version_id
			WHERE m.manifest_blob_digest IS NOT NULL
			  AND (v.state = '%s' OR (v.state = '%s' AND t.retention_until > $2))
		) d
		ON CONFLICT DO NOTHING`,
		TGcMark,
		TArtifactEntry, TPackageVersion, TTombstone, VersionPublished, VersionTombstoned,
		TManifest, TPackageVersion, TTombstone, VersionPublished, VersionTombstoned)

	countGcMarksCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id = $1`, TGcMark)
	isMarkedCmd     = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id = $1 AND digest = $2`, TGcMark)

	setGcRunCountersCmd = fmt.Sprintf(`UPDATE %s
		SET marked_count = :marked_count,
		    candidate_blob_count = :candidate_blob_count,
		    deleted_blob_count = :deleted_blob_count,
		    deleted_version_count = :deleted_version_count,
		    delete_error_count = :delete_error_count
		WHERE run_id = :run_id`, TGcRun)
	finalizeGcRunCmd = fmt.Sprintf(`UPDATE %s SET completed_at = $2 WHERE run_id = $1`, TGcRun)

	strandedGcRunsCmd = fmt.Sprintf(`SELECT * FROM %s
		WHERE completed_at IS NULL AND started_at < $1
		ORDER BY started_at
		LIMIT $2`, TGcRun)
	finalizeStrandedGcRunCmd = fmt.Sprintf(
		`UPDATE %s SET completed_at = $2, delete_error_count = delete_error_count + 1
		 WHERE run_id = $1 AND completed_at IS NULL`, TGcRun)
)

func (c *Client) InsertGcRun(ctx context.Context, run *GcRun) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*run, insertGcRunFormat, ""), run)
	if err != nil {
		klog.ErrorS(err, "failed to insert gc run", "id", run.RunId)
	}
	return err
}

func (c *Client) GetGcRun(ctx context.Context, runId string) (*GcRun, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var runs []*GcRun
	if err = db.SelectContext(ctx, &runs, getGcRunCmd, runId); err != nil {
		klog.ErrorS(err, "failed to select gc run", "id", runId)
		return nil, err
	}
	if len(runs) == 0 {
		return nil, commonerrors.NewNotFound("gc run", runId)
	}
	return runs[0], nil
}

func (c *Client) SelectGcRuns(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*GcRun, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TGcRun).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	var runs []*GcRun
	err = db.SelectContext(ctx, &runs, sql, args...)
	return runs, err
}

// InsertReachableMarks runs the mark phase in one statement and returns the
// size of the run's mark set.
func (c *Client) InsertReachableMarks(ctx context.Context, runId string, retainCutoff time.Time) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, insertReachableMarksCmd, runId, retainCutoff)
	if err != nil {
		klog.ErrorS(err, "failed to insert gc marks", "runId", runId)
		return 0, err
	}
	return result.RowsAffected()
}

func (c *Client) CountGcMarks(ctx context.Context, runId string) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, countGcMarksCmd, runId)
	return cnt, err
}

// IsMarked reports whether the run marked the digest reachable.
func (c *Client) IsMarked(ctx context.Context, runId, digest string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, isMarkedCmd, runId, digest); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (c *Client) SetGcRunCounters(ctx context.Context, run *GcRun) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.NamedExecContext(ctx, setGcRunCountersCmd, run); err != nil {
		klog.ErrorS(err, "failed to update gc run counters", "id", run.RunId)
		return err
	}
	return nil
}

func (c *Client) FinalizeGcRun(ctx context.Context, runId string, completedAt time.Time) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, finalizeGcRunCmd, runId, completedAt); err != nil {
		klog.ErrorS(err, "failed to finalize gc run", "id", runId)
		return err
	}
	return nil
}

// SelectStrandedGcRuns returns runs without a completed_at older than cutoff,
// left behind by a crash mid-run.
func (c *Client) SelectStrandedGcRuns(ctx context.Context, cutoff time.Time, limit int) ([]*GcRun, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var runs []*GcRun
	if err = db.SelectContext(ctx, &runs, strandedGcRunsCmd, cutoff, limit); err != nil {
		klog.ErrorS(err, "failed to select stranded gc runs")
		return nil, err
	}
	return runs, nil
}

// FinalizeStrandedGcRun closes an abandoned run and counts it as an error.
func (c *Client) FinalizeStrandedGcRun(ctx context.Context, runId string, completedAt time.Time) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, finalizeStrandedGcRunCmd, runId, completedAt); err != nil {
		klog.ErrorS(err, "failed to finalize stranded gc run", "id", runId)
		return err
	}
	return nil
}
