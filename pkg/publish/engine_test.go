/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package publish

import (
	"context"
	"testing"
	"time"

	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
)

type denyEvaluator struct {
	decision string
	reason   string
}

func (e *denyEvaluator) Evaluate(ctx context.Context, input *policy.Input) (*policy.Decision, error) {
	return &policy.Decision{Decision: e.decision, Reason: e.reason}, nil
}

// seedDraft builds a publishable draft: one entry, a manifest and the blob
// rows both reference.
func seedDraft(db *fake.Client) string {
	db.Tenants["t1"] = &dbclient.Tenant{TenantId: "t1", Slug: "acme"}
	db.Repos["r1"] = &dbclient.Repository{RepoId: "r1", TenantId: "t1", RepoKey: "maven-main"}
	db.Packages["p1"] = &dbclient.Package{PackageId: "p1", TenantId: "t1", RepoId: "r1", PackageType: "maven", Name: "demo"}
	db.Versions["11111111-1111-1111-1111-111111111111"] = &dbclient.PackageVersion{
		VersionId: "11111111-1111-1111-1111-111111111111",
		TenantId:  "t1", RepoId: "r1", PackageId: "p1",
		Version: "1.0.0", State: dbclient.VersionDraft, CreatedBy: "alice",
	}
	db.Blobs["d1"] = &dbclient.Blob{Digest: "d1", LengthBytes: 4, StorageKey: "k1"}
	db.Entries["11111111-1111-1111-1111-111111111111"] = []*dbclient.ArtifactEntry{{
		EntryId: "e1", VersionId: "11111111-1111-1111-1111-111111111111",
		RelativePath: "demo-1.0.0.jar", BlobDigest: "d1", SizeBytes: 4,
	}}
	db.Manifests["11111111-1111-1111-1111-111111111111"] = &dbclient.Manifest{
		VersionId: "11111111-1111-1111-1111-111111111111", ManifestJson: `{"name":"demo"}`, PackageType: "maven",
	}
	return "11111111-1111-1111-1111-111111111111"
}

func TestPublishSuccess(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	e := NewEngine(db, policy.NewGate(db, nil))
	ctx := context.Background()

	result, err := e.Publish(ctx, versionId, "alice")
	assert.NilError(t, err)
	assert.Equal(t, result.State, dbclient.VersionPublished)
	assert.Assert(t, !result.Idempotent)
	assert.Assert(t, result.EventEmitted)

	version, err := db.GetPackageVersion(ctx, nil, versionId)
	assert.NilError(t, err)
	assert.Equal(t, version.State, dbclient.VersionPublished)
	assert.Assert(t, version.PublishedAt.Valid)

	has, err := db.HasOutboxEvent(ctx, nil, dbclient.AggregatePackageVersion, versionId, dbclient.EventVersionPublished)
	assert.NilError(t, err)
	assert.Assert(t, has)

	logs, err := db.SelectAuditLogsByAction(ctx, ActionVersionPublished, 10)
	assert.NilError(t, err)
	assert.Equal(t, len(logs), 1)
}

func TestPublishIdempotentRepublish(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	e := NewEngine(db, policy.NewGate(db, nil))
	ctx := context.Background()

	_, err := e.Publish(ctx, versionId, "alice")
	assert.NilError(t, err)

	result, err := e.Publish(ctx, versionId, "alice")
	assert.NilError(t, err)
	assert.Equal(t, result.State, dbclient.VersionPublished)
	assert.Assert(t, result.Idempotent)
	assert.Assert(t, !result.EventEmitted)
	assert.Equal(t, len(db.Events), 1)
}

func TestPublishNoEntries(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	delete(db.Entries, versionId)
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishPreconditionsUnmet))
}

func TestPublishNoManifest(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	delete(db.Manifests, versionId)
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishPreconditionsUnmet))
}

func TestPublishMissingBlob(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	delete(db.Blobs, "d1")
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishBlobMissing))
}

func TestPublishMissingManifestBlob(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	db.Manifests[versionId].ManifestBlobDigest = dbutils.NullString("missing-digest")
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishBlobMissing))
}

func TestPublishTombstonedImmutable(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	db.Versions[versionId].State = dbclient.VersionTombstoned
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.VersionImmutable))
}

func TestPublishBlockedByActiveQuarantine(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	db.Quarantine["q1"] = &dbclient.QuarantineItem{
		Id: "q1", TenantId: "t1", RepoId: "r1", VersionId: versionId,
		Status: dbclient.QuarantineQuarantined,
	}
	e := NewEngine(db, policy.NewGate(db, nil))

	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishBlockedQuarantine))

	version, err := db.GetPackageVersion(context.Background(), nil, versionId)
	assert.NilError(t, err)
	assert.Equal(t, version.State, dbclient.VersionDraft)
}

func TestPublishDeniedByPolicy(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	gate := policy.NewGate(db, &denyEvaluator{decision: dbclient.DecisionDeny, reason: "license"})
	e := NewEngine(db, gate)
	ctx := context.Background()

	_, err := e.Publish(ctx, versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishDenied))

	// The denial itself is recorded.
	evals, err := db.SelectPolicyEvaluations(ctx, versionId, 10)
	assert.NilError(t, err)
	assert.Equal(t, len(evals), 1)
	assert.Equal(t, evals[0].Decision, dbclient.DecisionDeny)

	version, err := db.GetPackageVersion(ctx, nil, versionId)
	assert.NilError(t, err)
	assert.Equal(t, version.State, dbclient.VersionDraft)
}

func TestPublishQuarantinedByPolicy(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	gate := policy.NewGate(db, &denyEvaluator{decision: dbclient.DecisionQuarantine, reason: "malware"})
	e := NewEngine(db, gate)
	ctx := context.Background()

	_, err := e.Publish(ctx, versionId, "alice")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PublishBlockedQuarantine))

	quarantined, err := db.HasActiveQuarantine(ctx, nil, versionId)
	assert.NilError(t, err)
	assert.Assert(t, quarantined)
}

func TestPublishEventTimestampsSet(t *testing.T) {
	db := fake.NewClient()
	versionId := seedDraft(db)
	e := NewEngine(db, policy.NewGate(db, nil))

	before := time.Now().UTC().Add(-time.Second)
	_, err := e.Publish(context.Background(), versionId, "alice")
	assert.NilError(t, err)

	for _, event := range db.Events {
		assert.Assert(t, event.OccurredAt.Valid)
		assert.Assert(t, event.OccurredAt.Time.After(before))
		assert.Assert(t, event.AvailableAt.Valid)
	}
}
