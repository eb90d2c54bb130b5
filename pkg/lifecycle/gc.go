/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package lifecycle

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
)

// GcRequest carries the parameters of a collection run. Out-of-range values
// are replaced by configured defaults before the run row is written, so the
// schema checks never fire for caller input.
type GcRequest struct {
	Mode                string
	RetentionGraceHours int
	BatchSize           int
	InitiatedBy         string
	TenantId            string
}

func (r *GcRequest) normalize() error {
	if r.Mode != dbclient.GcModeDryRun && r.Mode != dbclient.GcModeExecute {
		return commonerrors.NewBadRequest(fmt.Sprintf("mode must be %s or %s", dbclient.GcModeDryRun, dbclient.GcModeExecute))
	}
	if r.RetentionGraceHours < commonconfig.MinGcGraceHours || r.RetentionGraceHours > commonconfig.MaxGcGraceHours {
		r.RetentionGraceHours = commonconfig.GetGcGraceHours()
	}
	if r.BatchSize < commonconfig.MinGcBatchSize || r.BatchSize > commonconfig.MaxGcBatchSize {
		r.BatchSize = commonconfig.GetGcBatchSize()
	}
	return nil
}

// RunGc executes one mark-and-sweep collection. Dry-run stops after the mark
// phase and records candidate counts only; execute additionally deletes
// reclaimable versions and unmarked blobs.
func (e *Engine) RunGc(ctx context.Context, req *GcRequest) (*dbclient.GcRun, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	grace := time.Duration(req.RetentionGraceHours) * time.Hour
	cutoff := now.Add(-grace)

	run := &dbclient.GcRun{
		RunId:               uuid.NewString(),
		TenantId:            dbutils.NullString(req.TenantId),
		InitiatedBy:         req.InitiatedBy,
		Mode:                req.Mode,
		RetentionGraceHours: req.RetentionGraceHours,
		BatchSize:           req.BatchSize,
		StartedAt:           dbutils.NullTime(now),
	}
	if err := e.db.InsertGcRun(ctx, run); err != nil {
		return nil, err
	}

	// Mark phase. References captured here cannot be swept in this run, so a
	// publish racing the sweep keeps its digests safe.
	marked, err := e.db.InsertReachableMarks(ctx, run.RunId, cutoff)
	if err != nil {
		return nil, err
	}
	run.MarkedCount = int(marked)

	candidates, err := e.db.CountBlobs(ctx, sqrl.Expr(
		`NOT EXISTS (SELECT 1 FROM gc_marks m WHERE m.run_id = ? AND m.digest = blobs.digest) AND blobs.created_at < ?`,
		run.RunId, cutoff))
	if err != nil {
		return nil, err
	}
	run.CandidateBlobCount = candidates

	if req.Mode == dbclient.GcModeExecute {
		if err = e.deleteReclaimableVersions(ctx, run, cutoff); err != nil {
			return nil, err
		}
		if err = e.sweepBlobs(ctx, run, cutoff); err != nil {
			return nil, err
		}
	}

	if err = e.db.SetGcRunCounters(ctx, run); err != nil {
		return nil, err
	}
	completedAt := time.Now().UTC()
	if err = e.db.FinalizeGcRun(ctx, run.RunId, completedAt); err != nil {
		return nil, err
	}
	run.CompletedAt = dbutils.NullTime(completedAt)

	if err = e.db.InsertAuditLog(ctx, nil, &dbclient.AuditLog{
		TenantId:     run.TenantId,
		Actor:        req.InitiatedBy,
		Action:       ActionGcRunCompleted,
		ResourceType: "gc_run",
		ResourceId:   run.RunId,
		Details: dbutils.NullString(fmt.Sprintf(
			`{"mode":%q,"marked":%d,"candidateBlobs":%d,"deletedBlobs":%d,"deletedVersions":%d,"deleteErrors":%d}`,
			run.Mode, run.MarkedCount, run.CandidateBlobCount,
			run.DeletedBlobCount, run.DeletedVersionCount, run.DeleteErrorCount)),
		OccurredAt: dbutils.NullTime(completedAt),
	}); err != nil {
		klog.ErrorS(err, "failed to audit gc run", "runId", run.RunId)
	}
	klog.InfoS("gc run completed", "runId", run.RunId, "mode", run.Mode,
		"marked", run.MarkedCount, "deletedVersions", run.DeletedVersionCount,
		"deletedBlobs", run.DeletedBlobCount, "deleteErrors", run.DeleteErrorCount)
	return run, nil
}

// deleteReclaimableVersions removes tombstoned versions past their retention
// deadline in batches. Entries, manifests, search jobs, quarantine items and
// the tombstone cascade; upload-session back-references to blobs detach later
// through the blob FK.
func (e *Engine) deleteReclaimableVersions(ctx context.Context, run *dbclient.GcRun, cutoff time.Time) error {
	for {
		versions, err := e.db.SelectReclaimableVersions(ctx, cutoff, run.BatchSize)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return nil
		}
		progressed := 0
		for _, version := range versions {
			if err = e.db.DeletePackageVersion(ctx, nil, version.VersionId); err != nil {
				run.DeleteErrorCount++
				continue
			}
			run.DeletedVersionCount++
			progressed++
		}
		// Rows that failed deletion stay candidates; stop rather than spin.
		if progressed == 0 || len(versions) < run.BatchSize {
			return nil
		}
	}
}

// sweepBlobs deletes unmarked blobs older than the grace cutoff. The object
// delete is best effort: a missing object is fine, any other backend error
// is counted and the metadata row is kept for the next run.
func (e *Engine) sweepBlobs(ctx context.Context, run *dbclient.GcRun, cutoff time.Time) error {
	for {
		blobs, err := e.db.SelectSweepCandidates(ctx, run.RunId, cutoff, run.BatchSize)
		if err != nil {
			return err
		}
		if len(blobs) == 0 {
			return nil
		}
		progressed := 0
		for _, blob := range blobs {
			if err = e.backend.DeleteObject(ctx, blob.StorageKey); err != nil && err != s3.ErrNotFound {
				klog.ErrorS(err, "failed to delete object", "digest", blob.Digest, "key", blob.StorageKey)
				run.DeleteErrorCount++
				continue
			}
			if err = e.db.DeleteBlob(ctx, blob.Digest); err != nil {
				run.DeleteErrorCount++
				continue
			}
			run.DeletedBlobCount++
			progressed++
		}
		// Rows that failed deletion stay candidates; stop rather than spin.
		if progressed == 0 || len(blobs) < run.BatchSize {
			return nil
		}
	}
}

// FinalizeStrandedRuns closes runs abandoned by a crash. Marks are
// run-scoped, so correctness never depended on them; the stranded run is
// closed with its error counter bumped.
func (e *Engine) FinalizeStrandedRuns(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	now := time.Now().UTC()
	runs, err := e.db.SelectStrandedGcRuns(ctx, now.Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	for _, run := range runs {
		if err = e.db.FinalizeStrandedGcRun(ctx, run.RunId, now); err != nil {
			return 0, err
		}
		klog.InfoS("finalized stranded gc run", "runId", run.RunId)
	}
	return len(runs), nil
}
