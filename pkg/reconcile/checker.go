/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package reconcile

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

const (
	ActionBlobsChecked = "reconcile.blobs.checked"

	DefaultSampleLimit = 50
	MaxSampleLimit     = 1000
)

// Bucket is one drift category: a total count plus a bounded id sample.
type Bucket struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

// Report is the read-only drift summary between metadata and blob store.
type Report struct {
	MissingEntryBlobs    Bucket    `json:"missingEntryBlobs"`
	MissingManifestBlobs Bucket    `json:"missingManifestBlobs"`
	OrphanBlobs          Bucket    `json:"orphanBlobs"`
	CheckedAt            time.Time `json:"checkedAt"`
}

// Clean reports whether every bucket is empty.
func (r *Report) Clean() bool {
	return r.MissingEntryBlobs.Count == 0 &&
		r.MissingManifestBlobs.Count == 0 &&
		r.OrphanBlobs.Count == 0
}

// Checker computes the drift report. It never mutates business state; the
// only write is the audit record.
type Checker struct {
	db dbclient.Interface
}

func NewChecker(db dbclient.Interface) *Checker {
	return &Checker{db: db}
}

func (c *Checker) Check(ctx context.Context, actor string, limit int) (*Report, error) {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	if limit > MaxSampleLimit {
		limit = MaxSampleLimit
	}

	report := &Report{CheckedAt: time.Now().UTC()}
	var err error
	if report.MissingEntryBlobs.Samples, report.MissingEntryBlobs.Count, err =
		c.db.SelectMissingEntryDigests(ctx, limit); err != nil {
		return nil, err
	}
	if report.MissingManifestBlobs.Samples, report.MissingManifestBlobs.Count, err =
		c.db.SelectMissingManifestDigests(ctx, limit); err != nil {
		return nil, err
	}
	if report.OrphanBlobs.Samples, report.OrphanBlobs.Count, err =
		c.db.SelectOrphanBlobs(ctx, limit); err != nil {
		return nil, err
	}

	if err = c.db.InsertAuditLog(ctx, nil, &dbclient.AuditLog{
		Actor:        actor,
		Action:       ActionBlobsChecked,
		ResourceType: "blob",
		ResourceId:   "all",
		Details: dbutils.NullString(fmt.Sprintf(
			`{"missingEntryBlobs":%d,"missingManifestBlobs":%d,"orphanBlobs":%d}`,
			report.MissingEntryBlobs.Count, report.MissingManifestBlobs.Count, report.OrphanBlobs.Count)),
		OccurredAt: dbutils.NullTime(report.CheckedAt),
	}); err != nil {
		klog.ErrorS(err, "failed to audit reconcile check")
	}
	return report, nil
}
