/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
)

const (
	ActionVersionTombstoned = "package.version.tombstoned"
	ActionGcRunCompleted    = "gc.run.completed"
)

// Engine owns logical deletion and garbage collection: tombstone-first
// deletes with retention windows, then mark-and-sweep reclamation.
type Engine struct {
	db      dbclient.Interface
	backend s3.Interface
}

func NewEngine(db dbclient.Interface, backend s3.Interface) *Engine {
	return &Engine{db: db, backend: backend}
}

// Tombstone logically deletes a draft or published version. Repeated calls
// for the same version return the existing tombstone.
func (e *Engine) Tombstone(ctx context.Context, versionId, actor, reason string) (*dbclient.Tombstone, error) {
	var tombstone *dbclient.Tombstone
	err := e.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		version, err := e.db.GetPackageVersionForUpdate(ctx, tx, versionId)
		if err != nil {
			return err
		}
		if version.State == dbclient.VersionTombstoned {
			tombstone, err = e.db.GetTombstoneByVersion(ctx, tx, versionId)
			return err
		}

		retentionDays := commonconfig.GetRetentionDays()
		if tenant, err := e.db.GetTenant(ctx, version.TenantId); err == nil && tenant.RetentionDays > 0 {
			retentionDays = tenant.RetentionDays
		}
		now := time.Now().UTC()
		tombstone = &dbclient.Tombstone{
			Id:             uuid.NewString(),
			TenantId:       version.TenantId,
			RepoId:         version.RepoId,
			VersionId:      versionId,
			DeletedBy:      actor,
			DeletedAt:      dbutils.NullTime(now),
			RetentionUntil: dbutils.NullTime(now.Add(time.Duration(retentionDays) * 24 * time.Hour)),
			Reason:         dbutils.NullString(reason),
		}
		if err = e.db.SetVersionTombstoned(ctx, tx, versionId, now, reason); err != nil {
			return err
		}
		if err = e.db.InsertTombstone(ctx, tx, tombstone); err != nil {
			return err
		}
		return e.db.InsertAuditLog(ctx, tx, &dbclient.AuditLog{
			TenantId:     dbutils.NullString(version.TenantId),
			Actor:        actor,
			Action:       ActionVersionTombstoned,
			ResourceType: "package_version",
			ResourceId:   versionId,
			Details:      dbutils.NullString(fmt.Sprintf(`{"retentionUntil":%q}`, tombstone.RetentionUntil.Time.Format(time.RFC3339))),
			OccurredAt:   dbutils.NullTime(now),
		})
	})
	if err != nil {
		return nil, err
	}
	klog.InfoS("version tombstoned", "versionId", versionId, "by", actor)
	return tombstone, nil
}

