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
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TPackageVersion = "package_versions"
)

var (
	insertPackageVersionFormat = `INSERT INTO ` + TPackageVersion + ` (%s) VALUES (%s)`
	getPackageVersionCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE version_id = $1 LIMIT 1`, TPackageVersion)
	getPackageVersionLockCmd   = fmt.Sprintf(`SELECT * FROM %s WHERE version_id = $1 LIMIT 1 FOR UPDATE`, TPackageVersion)

	setVersionPublishedCmd = fmt.Sprintf(
		`UPDATE %s SET state = '%s', published_at = $2 WHERE version_id = $1`,
		TPackageVersion, VersionPublished)
	setVersionTombstonedCmd = fmt.Sprintf(
		`UPDATE %s SET state = '%s', tombstoned_at = $2, tombstone_reason = $3 WHERE version_id = $1`,
		TPackageVersion, VersionTombstoned)
	deletePackageVersionCmd = fmt.Sprintf(`DELETE FROM %s WHERE version_id = $1`, TPackageVersion)

	reclaimableVersionsCmd = fmt.Sprintf(`SELECT v.* FROM %s v
		JOIN %s t ON t.version_id = v.version_id
		WHERE v.state = '%s' AND t.retention_until <= $1
		ORDER BY t.retention_until
		LIMIT $2`, TPackageVersion, TTombstone, VersionTombstoned)
)

func (c *Client) InsertPackageVersion(ctx context.Context, version *PackageVersion) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*version, insertPackageVersionFormat, ""), version)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return commonerrors.NewAlreadyExist(
				fmt.Sprintf("version %s already exists for this package", version.Version))
		}
		klog.ErrorS(err, "failed to insert package version", "id", version.VersionId)
	}
	return err
}

func (c *Client) GetPackageVersion(ctx context.Context, q Queryer, versionId string) (*PackageVersion, error) {
	return c.getPackageVersion(ctx, q, getPackageVersionCmd, versionId)
}

// GetPackageVersionForUpdate takes the version row lock publish and tombstone
// serialize on.
func (c *Client) GetPackageVersionForUpdate(ctx context.Context, tx *sqlx.Tx, versionId string) (*PackageVersion, error) {
	if tx == nil {
		return nil, commonerrors.NewInternalError("row lock requires a transaction")
	}
	return c.getPackageVersion(ctx, tx, getPackageVersionLockCmd, versionId)
}

func (c *Client) getPackageVersion(ctx context.Context, q Queryer, cmd, versionId string) (*PackageVersion, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var versions []*PackageVersion
	if err = q.SelectContext(ctx, &versions, cmd, versionId); err != nil {
		klog.ErrorS(err, "failed to select package version", "id", versionId)
		return nil, err
	}
	if len(versions) == 0 {
		return nil, commonerrors.NewNotFound("package version", versionId)
	}
	return versions[0], nil
}

func (c *Client) SetVersionPublished(ctx context.Context, q Queryer, versionId string, publishedAt time.Time) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, setVersionPublishedCmd, versionId, publishedAt); err != nil {
		klog.ErrorS(err, "failed to publish package version", "id", versionId)
		return err
	}
	return nil
}

func (c *Client) SetVersionTombstoned(ctx context.Context, q Queryer, versionId string, at time.Time, reason string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, setVersionTombstonedCmd, versionId, at, dbutils.NullString(reason)); err != nil {
		klog.ErrorS(err, "failed to tombstone package version", "id", versionId)
		return err
	}
	return nil
}

// SelectReclaimableVersions returns tombstoned versions whose retention
// deadline has passed the cutoff, oldest deadline first.
func (c *Client) SelectReclaimableVersions(ctx context.Context, cutoff time.Time, limit int) ([]*PackageVersion, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var versions []*PackageVersion
	if err = db.SelectContext(ctx, &versions, reclaimableVersionsCmd, cutoff, limit); err != nil {
		klog.ErrorS(err, "failed to select reclaimable versions")
		return nil, err
	}
	return versions, nil
}

// DeletePackageVersion removes the version row; entries, manifest, search
// jobs, quarantine items and tombstone cascade.
func (c *Client) DeletePackageVersion(ctx context.Context, q Queryer, versionId string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, deletePackageVersionCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to delete package version", "id", versionId)
		return err
	}
	return nil
}

func (c *Client) CountPackageVersions(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	builder := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TPackageVersion)
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
