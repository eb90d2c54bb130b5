/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package reconcile

import (
	"context"
	"testing"

	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

func TestCheckClean(t *testing.T) {
	db := fake.NewClient()
	db.Blobs["d1"] = &dbclient.Blob{Digest: "d1", StorageKey: "k1"}
	db.Entries["v1"] = []*dbclient.ArtifactEntry{{EntryId: "e1", VersionId: "v1", RelativePath: "a.jar", BlobDigest: "d1"}}
	c := NewChecker(db)
	ctx := context.Background()

	report, err := c.Check(ctx, "admin", 0)
	assert.NilError(t, err)
	assert.Assert(t, report.Clean())
	assert.Equal(t, report.MissingEntryBlobs.Count, 0)
	assert.Equal(t, report.OrphanBlobs.Count, 0)

	logs, err := db.SelectAuditLogsByAction(ctx, ActionBlobsChecked, 10)
	assert.NilError(t, err)
	assert.Equal(t, len(logs), 1)
}

func TestCheckFindsDiscrepancies(t *testing.T) {
	db := fake.NewClient()
	// Entry referencing a digest with no blob row.
	db.Entries["v1"] = []*dbclient.ArtifactEntry{{EntryId: "e1", VersionId: "v1", RelativePath: "a.jar", BlobDigest: "gone"}}
	// Manifest blob digest with no blob row.
	db.Manifests["v1"] = &dbclient.Manifest{VersionId: "v1", ManifestJson: "{}", ManifestBlobDigest: dbutils.NullString("gone-too")}
	// Blob nothing references.
	db.Blobs["orphan"] = &dbclient.Blob{Digest: "orphan", StorageKey: "k-orphan"}

	report, err := NewChecker(db).Check(context.Background(), "admin", 10)
	assert.NilError(t, err)
	assert.Assert(t, !report.Clean())
	assert.Equal(t, report.MissingEntryBlobs.Count, 1)
	assert.Equal(t, report.MissingEntryBlobs.Samples[0], "gone")
	assert.Equal(t, report.MissingManifestBlobs.Count, 1)
	assert.Equal(t, report.OrphanBlobs.Count, 1)
	assert.Equal(t, report.OrphanBlobs.Samples[0], "orphan")
}

func TestCheckIgnoresSessionLinkedBlobs(t *testing.T) {
	db := fake.NewClient()
	db.Blobs["d1"] = &dbclient.Blob{Digest: "d1", StorageKey: "k1"}
	db.Sessions["u1"] = &dbclient.UploadSession{
		UploadId: "u1", State: dbclient.SessionCommitted,
		CommittedBlobDigest: dbutils.NullString("d1"),
	}

	report, err := NewChecker(db).Check(context.Background(), "admin", 10)
	assert.NilError(t, err)
	assert.Equal(t, report.OrphanBlobs.Count, 0)
}

func TestCheckClampsSampleLimit(t *testing.T) {
	db := fake.NewClient()
	for i := 0; i < 3; i++ {
		digest := string(rune('a' + i))
		db.Blobs[digest] = &dbclient.Blob{Digest: digest, StorageKey: "k-" + digest}
	}

	report, err := NewChecker(db).Check(context.Background(), "admin", 2)
	assert.NilError(t, err)
	assert.Equal(t, report.OrphanBlobs.Count, 3)
	assert.Equal(t, len(report.OrphanBlobs.Samples), 2)
}
