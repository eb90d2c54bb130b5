/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	backoffBase        = 30 * time.Second
	backoffMaxExponent = 5

	reasonNotPublished = "version_not_published"
)

// Backoff is the deterministic retry delay: base × 2^min(attempts-1, 5).
func Backoff(attempts int) time.Duration {
	exp := attempts - 1
	if exp < 0 {
		exp = 0
	}
	if exp > backoffMaxExponent {
		exp = backoffMaxExponent
	}
	return backoffBase * (1 << exp)
}

// BuildSearchText joins the non-blank parts with single spaces, trimming
// whitespace from each.
func BuildSearchText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, " ")
}

// Worker drains search-index jobs into the rebuildable search read-model.
type Worker struct {
	db dbclient.Interface
}

func NewWorker(db dbclient.Interface) *Worker {
	return &Worker{db: db}
}

// SweepOnce claims a batch of runnable jobs, then processes each outside the
// claim transaction. Per-job failures are persisted with backoff and never
// stop the sweep.
func (w *Worker) SweepOnce(ctx context.Context) (completed, failed int, err error) {
	now := time.Now().UTC()
	var jobs []*dbclient.SearchIndexJob
	err = w.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		claimed, err := w.db.ClaimSearchJobs(ctx, tx, now, commonconfig.GetSearchMaxAttempts(), commonconfig.GetWorkerBatchSize())
		if err != nil {
			return err
		}
		jobs = claimed
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	for _, job := range jobs {
		if err := w.process(ctx, job); err != nil {
			failed++
			w.fail(ctx, job, err.Error())
			continue
		}
		completed++
	}
	if completed > 0 || failed > 0 {
		klog.InfoS("search sweep finished", "completed", completed, "failed", failed)
	}
	return completed, failed, nil
}

func (w *Worker) process(ctx context.Context, job *dbclient.SearchIndexJob) error {
	source, err := w.db.GetSearchSource(ctx, job.VersionId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return errors.New(reasonNotPublished)
		}
		return err
	}
	doc := BuildDocument(source)
	if err = w.db.UpsertSearchDocument(ctx, doc); err != nil {
		return err
	}
	return w.db.CompleteSearchJob(ctx, nil, job.JobId)
}

func (w *Worker) fail(ctx context.Context, job *dbclient.SearchIndexJob, reason string) {
	attempts := job.Attempts + 1
	availableAt := time.Now().UTC().Add(Backoff(attempts))
	if err := w.db.FailSearchJob(ctx, nil, job.JobId, attempts, availableAt, reason); err != nil {
		klog.ErrorS(err, "failed to persist search job failure", "jobId", job.JobId)
	}
}

// BuildDocument derives the read-model row from the published source row.
func BuildDocument(source *dbclient.SearchSource) *dbclient.SearchDocument {
	now := time.Now().UTC()
	return &dbclient.SearchDocument{
		VersionId:    source.VersionId,
		TenantId:     source.TenantId,
		RepoKey:      source.RepoKey,
		PackageType:  source.PackageType,
		Namespace:    source.Namespace,
		PackageName:  source.PackageName,
		Version:      source.Version,
		ManifestJson: source.ManifestJson,
		PublishedAt:  source.PublishedAt,
		SearchText: BuildSearchText(
			source.RepoKey,
			source.PackageType,
			dbutils.ParseNullString(source.Namespace),
			source.PackageName,
			source.Version,
			dbutils.ParseNullString(source.ManifestJson),
		),
		IndexedAt: now,
		UpdatedAt: now,
	}
}
