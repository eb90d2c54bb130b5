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
	TBlob = "blobs"
)

var (
	// Digest is the primary key, so concurrent committers of identical
	// content collapse to one row.
	insertBlobFormat = `INSERT INTO ` + TBlob + ` (%s) VALUES (%s) ON CONFLICT (digest) DO NOTHING`
	getBlobCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE digest = $1 LIMIT 1`, TBlob)
	deleteBlobCmd    = fmt.Sprintf(`DELETE FROM %s WHERE digest = $1`, TBlob)

	sweepCandidatesCmd = fmt.Sprintf(`SELECT b.* FROM %s b
		WHERE NOT EXISTS (SELECT 1 FROM %s m WHERE m.run_id = $1 AND m.digest = b.digest)
		  AND b.created_at < $2
		ORDER BY b.created_at
		LIMIT $3`, TBlob, TGcMark)
)

// UpsertBlob inserts the blob row if its digest is new; an existing digest is
// left untouched.
func (c *Client) UpsertBlob(ctx context.Context, q Queryer, blob *Blob) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*blob, insertBlobFormat, ""), blob)
	if err != nil {
		klog.ErrorS(err, "failed to upsert blob", "digest", blob.Digest)
	}
	return err
}

func (c *Client) GetBlob(ctx context.Context, q Queryer, digest string) (*Blob, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var blobs []*Blob
	if err = q.SelectContext(ctx, &blobs, getBlobCmd, digest); err != nil {
		klog.ErrorS(err, "failed to select blob", "digest", digest)
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, commonerrors.NewNotFound("blob", digest)
	}
	return blobs[0], nil
}

func (c *Client) CountBlobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	builder := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TBlob)
	if query != nil {
		builder = builder.Where(query)
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var cnt int
	err = db.GetContext(ctx, &cnt, sql, args...)
	return cnt, err
}

// SelectSweepCandidates returns blobs not marked reachable by the given run
// and older than cutoff, in creation order.
func (c *Client) SelectSweepCandidates(ctx context.Context, runId string, cutoff time.Time, limit int) ([]*Blob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var blobs []*Blob
	if err = db.SelectContext(ctx, &blobs, sweepCandidatesCmd, runId, cutoff, limit); err != nil {
		klog.ErrorS(err, "failed to select sweep candidates", "runId", runId)
		return nil, err
	}
	return blobs, nil
}

// DeleteBlob removes the metadata row for a digest. Sessions that referenced
// it are detached via the FK's ON DELETE SET NULL.
func (c *Client) DeleteBlob(ctx context.Context, digest string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if _, err = db.ExecContext(ctx, deleteBlobCmd, digest); err != nil {
		klog.ErrorS(err, "failed to delete blob", "digest", digest)
		return err
	}
	return nil
}
