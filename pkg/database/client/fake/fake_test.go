/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package fake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

func TestClaimOutboxEventsVisibility(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	now := time.Now()

	c.Events["e1"] = &dbclient.OutboxEvent{
		EventId: "e1", EventType: dbclient.EventVersionPublished,
		AvailableAt: dbutils.NullTime(now.Add(-time.Minute)),
	}
	c.Events["e2"] = &dbclient.OutboxEvent{
		EventId: "e2", EventType: dbclient.EventVersionPublished,
		AvailableAt: dbutils.NullTime(now.Add(time.Hour)),
	}

	claimed, err := c.ClaimOutboxEvents(ctx, nil, dbclient.EventVersionPublished, now, 30*time.Second, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "e1", claimed[0].EventId)
	assert.Equal(t, 1, claimed[0].DeliveryAttempts)

	// The claimed event stays invisible until the window passes.
	claimed, err = c.ClaimOutboxEvents(ctx, nil, dbclient.EventVersionPublished, now, 30*time.Second, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	claimed, err = c.ClaimOutboxEvents(ctx, nil, dbclient.EventVersionPublished, now.Add(time.Minute), 30*time.Second, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 2, claimed[0].DeliveryAttempts)
}

func TestDeletePackageVersionCascades(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	c.Versions["v1"] = &dbclient.PackageVersion{VersionId: "v1", State: dbclient.VersionTombstoned}
	c.Entries["v1"] = []*dbclient.ArtifactEntry{{EntryId: "e1", VersionId: "v1"}}
	c.Manifests["v1"] = &dbclient.Manifest{VersionId: "v1"}
	c.Tombstones["v1"] = &dbclient.Tombstone{Id: "ts1", VersionId: "v1"}
	c.Quarantine["q1"] = &dbclient.QuarantineItem{Id: "q1", VersionId: "v1"}
	c.SearchJobs["j1"] = &dbclient.SearchIndexJob{JobId: "j1", VersionId: "v1"}
	c.SearchJobs["j2"] = &dbclient.SearchIndexJob{JobId: "j2", VersionId: "v2"}

	require.NoError(t, c.DeletePackageVersion(ctx, nil, "v1"))

	assert.Empty(t, c.Versions)
	assert.Empty(t, c.Entries)
	assert.Empty(t, c.Manifests)
	assert.Empty(t, c.Tombstones)
	assert.Empty(t, c.Quarantine)
	require.Len(t, c.SearchJobs, 1)
	assert.Equal(t, "j2", c.SearchJobs["j2"].JobId)
}

func TestIsDigestBlockedByQuarantine(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	c.Entries["v1"] = []*dbclient.ArtifactEntry{{EntryId: "e1", VersionId: "v1", BlobDigest: "d1"}}
	c.Manifests["v1"] = &dbclient.Manifest{VersionId: "v1", ManifestBlobDigest: dbutils.NullString("d2")}
	c.Quarantine["q1"] = &dbclient.QuarantineItem{
		Id: "q1", RepoId: "r1", VersionId: "v1", Status: dbclient.QuarantineQuarantined,
	}

	for _, digest := range []string{"d1", "d2"} {
		blocked, err := c.IsDigestBlocked(ctx, "r1", digest)
		require.NoError(t, err)
		assert.True(t, blocked, digest)
	}

	// Scope is per repository.
	blocked, err := c.IsDigestBlocked(ctx, "r2", "d1")
	require.NoError(t, err)
	assert.False(t, blocked)

	c.Quarantine["q1"].Status = dbclient.QuarantineReleased
	blocked, err = c.IsDigestBlocked(ctx, "r1", "d1")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestInsertReachableMarks(t *testing.T) {
	c := NewClient()
	ctx := context.Background()
	now := time.Now()

	c.Versions["pub"] = &dbclient.PackageVersion{VersionId: "pub", State: dbclient.VersionPublished}
	c.Entries["pub"] = []*dbclient.ArtifactEntry{{EntryId: "e1", VersionId: "pub", BlobDigest: "live"}}
	c.Manifests["pub"] = &dbclient.Manifest{VersionId: "pub", ManifestBlobDigest: dbutils.NullString("live-manifest")}

	c.Versions["held"] = &dbclient.PackageVersion{VersionId: "held", State: dbclient.VersionTombstoned}
	c.Tombstones["held"] = &dbclient.Tombstone{Id: "ts1", VersionId: "held", RetentionUntil: dbutils.NullTime(now.Add(24 * time.Hour))}
	c.Entries["held"] = []*dbclient.ArtifactEntry{{EntryId: "e2", VersionId: "held", BlobDigest: "retained"}}

	c.Versions["dead"] = &dbclient.PackageVersion{VersionId: "dead", State: dbclient.VersionTombstoned}
	c.Tombstones["dead"] = &dbclient.Tombstone{Id: "ts2", VersionId: "dead", RetentionUntil: dbutils.NullTime(now.Add(-time.Hour))}
	c.Entries["dead"] = []*dbclient.ArtifactEntry{{EntryId: "e3", VersionId: "dead", BlobDigest: "reclaimable"}}

	marked, err := c.InsertReachableMarks(ctx, "run1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	for digest, want := range map[string]bool{
		"live": true, "live-manifest": true, "retained": true, "reclaimable": false,
	} {
		got, err := c.IsMarked(ctx, "run1", digest)
		require.NoError(t, err)
		assert.Equal(t, want, got, digest)
	}
}

func TestUpsertSearchJobPendingResets(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	c.SearchJobs["j1"] = &dbclient.SearchIndexJob{
		JobId: "j1", TenantId: "t1", VersionId: "v1",
		Status: dbclient.JobFailed, Attempts: 4, LastError: dbutils.NullString("boom"),
	}

	require.NoError(t, c.UpsertSearchJobPending(ctx, nil, &dbclient.SearchIndexJob{
		JobId: "j2", TenantId: "t1", VersionId: "v1",
	}))

	require.Len(t, c.SearchJobs, 1)
	job := c.SearchJobs["j1"]
	assert.Equal(t, dbclient.JobPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, "", job.LastError.String)
}
