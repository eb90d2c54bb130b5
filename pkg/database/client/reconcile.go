/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// Drift queries for the reconciler. All three are read-only: entries whose
// blob digest has no blobs row, manifests whose blob digest has no blobs row,
// and blobs referenced by neither.

var (
	missingEntryDigestsCmd = fmt.Sprintf(`SELECT e.entry_id FROM %s e
		WHERE NOT EXISTS (SELECT 1 FROM %s b WHERE b.digest = e.blob_digest)
		ORDER BY e.entry_id`, TArtifactEntry, TBlob)
	countMissingEntryDigestsCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s e
		WHERE NOT EXISTS (SELECT 1 FROM %s b WHERE b.digest = e.blob_digest)`, TArtifactEntry, TBlob)

	missingManifestDigestsCmd = fmt.Sprintf(`SELECT m.version_id FROM %s m
		WHERE m.manifest_blob_digest IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM %s b WHERE b.digest = m.manifest_blob_digest)
		ORDER BY m.version_id`, TManifest, TBlob)
	countMissingManifestDigestsCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s m
		WHERE m.manifest_blob_digest IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM %s b WHERE b.digest = m.manifest_blob_digest)`, TManifest, TBlob)

	orphanBlobsCmd = fmt.Sprintf(`SELECT b.digest FROM %s b
		WHERE NOT EXISTS (SELECT 1 FROM %s e WHERE e.blob_digest = b.digest)
		  AND NOT EXISTS (SELECT 1 FROM %s m WHERE m.manifest_blob_digest = b.digest)
		ORDER BY b.digest`, TBlob, TArtifactEntry, TManifest)
	countOrphanBlobsCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s b
		WHERE NOT EXISTS (SELECT 1 FROM %s e WHERE e.blob_digest = b.digest)
		  AND NOT EXISTS (SELECT 1 FROM %s m WHERE m.manifest_blob_digest = b.digest)`,
		TBlob, TArtifactEntry, TManifest)
)

func (c *Client) SelectMissingEntryDigests(ctx context.Context, limit int) ([]string, int, error) {
	return c.sampleAndCount(ctx, missingEntryDigestsCmd, countMissingEntryDigestsCmd, limit)
}

func (c *Client) SelectMissingManifestDigests(ctx context.Context, limit int) ([]string, int, error) {
	return c.sampleAndCount(ctx, missingManifestDigestsCmd, countMissingManifestDigestsCmd, limit)
}

func (c *Client) SelectOrphanBlobs(ctx context.Context, limit int) ([]string, int, error) {
	return c.sampleAndCount(ctx, orphanBlobsCmd, countOrphanBlobsCmd, limit)
}

func (c *Client) sampleAndCount(ctx context.Context, sampleCmd, countCmd string, limit int) ([]string, int, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, 0, err
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, countCmd); err != nil {
		klog.ErrorS(err, "failed to count drift rows")
		return nil, 0, err
	}
	var samples []string
	if err = db.SelectContext(ctx, &samples, sampleCmd+fmt.Sprintf(" LIMIT %d", limit)); err != nil {
		klog.ErrorS(err, "failed to sample drift rows")
		return nil, 0, err
	}
	return samples, cnt, nil
}
