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

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TQuarantineItem = "quarantine_items"
)

var (
	upsertQuarantineItemFormat = `INSERT INTO ` + TQuarantineItem + ` (%s) VALUES (%s)
		ON CONFLICT (tenant_id, repo_id, version_id) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`

	getQuarantineItemCmd = fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 LIMIT 1`, TQuarantineItem)

	setQuarantineResolutionCmd = fmt.Sprintf(
		`UPDATE %s SET status = $2, resolved_by = $3, updated_at = $4 WHERE id = $1`, TQuarantineItem)

	hasActiveQuarantineCmd = fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE version_id = $1 AND status = '%s'`,
		TQuarantineItem, QuarantineQuarantined)

	// A digest is blocked while any version referencing it in the repo, via
	// an artifact entry or the manifest, sits in quarantined or rejected.
	digestBlockedCmd = fmt.Sprintf(`SELECT COUNT(*) FROM %s qi
		WHERE qi.repo_id = $1
		  AND qi.status IN ('%s', '%s')
		  AND (EXISTS (SELECT 1 FROM %s e WHERE e.version_id = qi.version_id AND e.blob_digest = $2)
		    OR EXISTS (SELECT 1 FROM %s m WHERE m.version_id = qi.version_id AND m.manifest_blob_digest = $2))`,
		TQuarantineItem, QuarantineQuarantined, QuarantineRejected, TArtifactEntry, TManifest)
)

// UpsertQuarantineItem places or refreshes a hold on a version, keyed on
// (tenant, repo, version).
func (c *Client) UpsertQuarantineItem(ctx context.Context, q Queryer, item *QuarantineItem) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	item.UpdatedAt = dbutils.NullTime(time.Now().UTC())
	_, err = sqlxNamedExec(ctx, q, generateCommand(*item, upsertQuarantineItemFormat, ""), item)
	if err != nil {
		klog.ErrorS(err, "failed to upsert quarantine item", "versionId", item.VersionId)
	}
	return err
}

func (c *Client) GetQuarantineItem(ctx context.Context, id string) (*QuarantineItem, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var items []*QuarantineItem
	if err = db.SelectContext(ctx, &items, getQuarantineItemCmd, id); err != nil {
		klog.ErrorS(err, "failed to select quarantine item", "id", id)
		return nil, err
	}
	if len(items) == 0 {
		return nil, commonerrors.NewNotFound("quarantine item", id)
	}
	return items[0], nil
}

func (c *Client) SelectQuarantineItems(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*QuarantineItem, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	sql, args, err := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TQuarantineItem).
		Where(query).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	var items []*QuarantineItem
	err = db.SelectContext(ctx, &items, sql, args...)
	return items, err
}

// SetQuarantineResolution resolves a hold to released or rejected and records
// who resolved it.
func (c *Client) SetQuarantineResolution(ctx context.Context, id, status, resolvedBy string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, setQuarantineResolutionCmd,
		id, status, dbutils.NullString(resolvedBy), time.Now().UTC())
	if err != nil {
		klog.ErrorS(err, "failed to resolve quarantine item", "id", id, "status", status)
		return err
	}
	return nil
}

// HasActiveQuarantine reports whether the version is currently held in
// status quarantined, the publish precondition.
func (c *Client) HasActiveQuarantine(ctx context.Context, q Queryer, versionId string) (bool, error) {
	q, err := c.queryer(q)
	if err != nil {
		return false, err
	}
	var cnt int
	if err = q.GetContext(ctx, &cnt, hasActiveQuarantineCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to count active quarantines", "versionId", versionId)
		return false, err
	}
	return cnt > 0, nil
}

// IsDigestBlocked reports whether downloads of a digest are blocked by a
// quarantined or rejected version in the repository.
func (c *Client) IsDigestBlocked(ctx context.Context, repoId, digest string) (bool, error) {
	db, err := c.getDB()
	if err != nil {
		return false, err
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, digestBlockedCmd, repoId, digest); err != nil {
		klog.ErrorS(err, "failed to check digest quarantine", "digest", digest)
		return false, err
	}
	return cnt > 0, nil
}
