/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TArtifactEntry = "artifact_entries"
	TManifest      = "manifests"
)

var (
	insertArtifactEntryFormat = `INSERT INTO ` + TArtifactEntry + ` (%s) VALUES (%s)`
	selectArtifactEntriesCmd  = fmt.Sprintf(
		`SELECT * FROM %s WHERE version_id = $1 ORDER BY relative_path`, TArtifactEntry)
	countArtifactEntriesCmd = fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE version_id = $1`, TArtifactEntry)
	countMissingEntryBlobsCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s e
		WHERE e.version_id = $1 AND NOT EXISTS (SELECT 1 FROM %s b WHERE b.digest = e.blob_digest)`,
		TArtifactEntry, TBlob)

	upsertManifestFormat = `INSERT INTO ` + TManifest + ` (%s) VALUES (%s)
		ON CONFLICT (version_id) DO UPDATE SET
			manifest_json = EXCLUDED.manifest_json,
			manifest_blob_digest = EXCLUDED.manifest_blob_digest,
			package_type = EXCLUDED.package_type,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`
	getManifestCmd = fmt.Sprintf(`SELECT * FROM %s WHERE version_id = $1 LIMIT 1`, TManifest)
)

func (c *Client) InsertArtifactEntry(ctx context.Context, entry *ArtifactEntry) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*entry, insertArtifactEntryFormat, ""), entry)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewAlreadyExist(
				fmt.Sprintf("entry %s already exists for this version", entry.RelativePath))
		}
		klog.ErrorS(err, "failed to insert artifact entry", "path", entry.RelativePath)
	}
	return err
}

func (c *Client) SelectArtifactEntries(ctx context.Context, q Queryer, versionId string) ([]*ArtifactEntry, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var entries []*ArtifactEntry
	if err = q.SelectContext(ctx, &entries, selectArtifactEntriesCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to select artifact entries", "versionId", versionId)
		return nil, err
	}
	return entries, nil
}

func (c *Client) CountArtifactEntries(ctx context.Context, q Queryer, versionId string) (int, error) {
	q, err := c.queryer(q)
	if err != nil {
		return 0, err
	}
	var cnt int
	err = q.GetContext(ctx, &cnt, countArtifactEntriesCmd, versionId)
	return cnt, err
}

// CountMissingEntryBlobs counts entries of a version whose blob digest has no
// blobs row, the publish precondition on blob presence.
func (c *Client) CountMissingEntryBlobs(ctx context.Context, q Queryer, versionId string) (int, error) {
	q, err := c.queryer(q)
	if err != nil {
		return 0, err
	}
	var cnt int
	err = q.GetContext(ctx, &cnt, countMissingEntryBlobsCmd, versionId)
	return cnt, err
}

// UpsertManifest writes the manifest for a draft version, replacing any
// previous body.
func (c *Client) UpsertManifest(ctx context.Context, manifest *Manifest) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	manifest.UpdatedAt = dbutils.NullTime(time.Now().UTC())
	_, err = db.NamedExecContext(ctx, generateCommand(*manifest, upsertManifestFormat, ""), manifest)
	if err != nil {
		klog.ErrorS(err, "failed to upsert manifest", "versionId", manifest.VersionId)
	}
	return err
}

func (c *Client) GetManifest(ctx context.Context, q Queryer, versionId string) (*Manifest, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var manifests []*Manifest
	if err = q.SelectContext(ctx, &manifests, getManifestCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to select manifest", "versionId", versionId)
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, commonerrors.NewNotFound("manifest", versionId)
	}
	return manifests[0], nil
}
