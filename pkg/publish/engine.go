/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
)

const ActionVersionPublished = "package.version.published"

// Result reports how a publish request resolved. Republishing an already
// published version is not an error; it resolves idempotently without a
// second event.
type Result struct {
	VersionId    string `json:"versionId"`
	State        string `json:"state"`
	Idempotent   bool   `json:"idempotent"`
	EventEmitted bool   `json:"eventEmitted"`
}

// Engine transitions draft versions to published atomically with their
// dependent writes.
type Engine struct {
	db   dbclient.Interface
	gate *policy.Gate
}

func NewEngine(db dbclient.Interface, gate *policy.Gate) *Engine {
	return &Engine{db: db, gate: gate}
}

// Publish moves the version to published. All preconditions are checked and
// all writes performed under the version row lock in one transaction: the
// state flip, the audit record and the outbox event commit together or not
// at all.
func (e *Engine) Publish(ctx context.Context, versionId, actor string) (*Result, error) {
	version, err := e.db.GetPackageVersion(ctx, nil, versionId)
	if err != nil {
		return nil, err
	}

	input := &policy.Input{
		TenantId:    version.TenantId,
		RepoId:      version.RepoId,
		VersionId:   versionId,
		Action:      dbclient.ActionPublish,
		RequestedBy: actor,
	}
	decision, err := e.gate.Check(ctx, input)
	if err != nil {
		return nil, err
	}
	switch decision.Decision {
	case dbclient.DecisionAllow:
	case dbclient.DecisionDeny:
		if err = e.gate.Record(ctx, input, decision); err != nil {
			return nil, err
		}
		return nil, commonerrors.NewPublishDenied(fmt.Sprintf("publish denied by policy: %s", decision.Reason))
	case dbclient.DecisionQuarantine:
		if err = e.gate.Record(ctx, input, decision); err != nil {
			return nil, err
		}
		return nil, commonerrors.NewPublishBlockedQuarantine(
			fmt.Sprintf("version placed in quarantine by policy: %s", decision.Reason))
	default:
		return nil, commonerrors.NewInternalError(fmt.Sprintf("unknown policy decision %q", decision.Decision))
	}

	result := &Result{VersionId: versionId}
	err = e.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := e.db.GetPackageVersionForUpdate(ctx, tx, versionId)
		if err != nil {
			return err
		}
		switch locked.State {
		case dbclient.VersionPublished:
			// The loser of a concurrent publish race lands here.
			emitted, err := e.db.HasOutboxEvent(ctx, tx,
				dbclient.AggregatePackageVersion, versionId, dbclient.EventVersionPublished)
			if err != nil {
				return err
			}
			result.State = dbclient.VersionPublished
			result.Idempotent = true
			if !emitted {
				return e.emitEvent(ctx, tx, locked, versionId, &result.EventEmitted)
			}
			return nil
		case dbclient.VersionTombstoned:
			return commonerrors.NewVersionImmutable("a tombstoned version cannot be published")
		case dbclient.VersionDraft:
		default:
			return commonerrors.NewInternalError(fmt.Sprintf("unknown version state %q", locked.State))
		}

		if err = e.checkPreconditions(ctx, tx, locked); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err = e.db.SetVersionPublished(ctx, tx, versionId, now); err != nil {
			return err
		}
		if err = e.db.InsertAuditLog(ctx, tx, &dbclient.AuditLog{
			TenantId:     dbutils.NullString(locked.TenantId),
			Actor:        actor,
			Action:       ActionVersionPublished,
			ResourceType: "package_version",
			ResourceId:   versionId,
			Details:      dbutils.NullString(fmt.Sprintf(`{"version":%q}`, locked.Version)),
			OccurredAt:   dbutils.NullTime(now),
		}); err != nil {
			return err
		}
		result.State = dbclient.VersionPublished
		return e.emitEvent(ctx, tx, locked, versionId, &result.EventEmitted)
	})
	if err != nil {
		return nil, err
	}
	klog.InfoS("publish resolved", "versionId", versionId,
		"idempotent", result.Idempotent, "eventEmitted", result.EventEmitted)
	return result, nil
}

func (e *Engine) emitEvent(ctx context.Context, tx *sqlx.Tx, version *dbclient.PackageVersion, versionId string, emitted *bool) error {
	now := time.Now().UTC()
	err := e.db.InsertOutboxEvent(ctx, tx, &dbclient.OutboxEvent{
		EventId:       uuid.NewString(),
		TenantId:      version.TenantId,
		AggregateType: dbclient.AggregatePackageVersion,
		AggregateId:   versionId,
		EventType:     dbclient.EventVersionPublished,
		Payload:       fmt.Sprintf(`{"versionId":%q}`, versionId),
		OccurredAt:    dbutils.NullTime(now),
		AvailableAt:   dbutils.NullTime(now),
	})
	if err != nil {
		return err
	}
	*emitted = true
	return nil
}

// checkPreconditions validates the draft under the row lock: entries exist,
// a manifest exists, every referenced blob exists, no active quarantine.
func (e *Engine) checkPreconditions(ctx context.Context, tx *sqlx.Tx, version *dbclient.PackageVersion) error {
	entryCount, err := e.db.CountArtifactEntries(ctx, tx, version.VersionId)
	if err != nil {
		return err
	}
	if entryCount == 0 {
		return commonerrors.NewPublishPreconditionsUnmet("the version has no artifact entries")
	}
	manifest, err := e.db.GetManifest(ctx, tx, version.VersionId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return commonerrors.NewPublishPreconditionsUnmet("the version has no manifest")
		}
		return err
	}
	missing, err := e.db.CountMissingEntryBlobs(ctx, tx, version.VersionId)
	if err != nil {
		return err
	}
	if missing > 0 {
		return commonerrors.NewPublishBlobMissing(
			fmt.Sprintf("%d artifact entries reference blobs that do not exist", missing))
	}
	if manifest.ManifestBlobDigest.Valid {
		if _, err = e.db.GetBlob(ctx, tx, manifest.ManifestBlobDigest.String); err != nil {
			if commonerrors.IsNotFound(err) {
				return commonerrors.NewPublishBlobMissing("the manifest blob does not exist")
			}
			return err
		}
	}
	quarantined, err := e.db.HasActiveQuarantine(ctx, tx, version.VersionId)
	if err != nil {
		return err
	}
	if quarantined {
		return commonerrors.NewPublishBlockedQuarantine("the version is held in quarantine")
	}
	return nil
}
