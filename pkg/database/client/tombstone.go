/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TTombstone = "tombstones"
)

var (
	insertTombstoneFormat    = `INSERT INTO ` + TTombstone + ` (%s) VALUES (%s)`
	getTombstoneByVersionCmd = fmt.Sprintf(`SELECT * FROM %s WHERE version_id = $1 LIMIT 1`, TTombstone)
)

func (c *Client) InsertTombstone(ctx context.Context, q Queryer, tombstone *Tombstone) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*tombstone, insertTombstoneFormat, ""), tombstone)
	if err != nil {
		klog.ErrorS(err, "failed to insert tombstone", "versionId", tombstone.VersionId)
	}
	return err
}

// GetTombstoneByVersion returns the tombstone for a version, or not-found.
// Repeated tombstone requests resolve to this existing row.
func (c *Client) GetTombstoneByVersion(ctx context.Context, q Queryer, versionId string) (*Tombstone, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var tombstones []*Tombstone
	if err = q.SelectContext(ctx, &tombstones, getTombstoneByVersionCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to select tombstone", "versionId", versionId)
		return nil, err
	}
	if len(tombstones) == 0 {
		return nil, commonerrors.NewNotFound("tombstone", versionId)
	}
	return tombstones[0], nil
}
