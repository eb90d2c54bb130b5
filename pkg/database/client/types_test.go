/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"testing"

	"gotest.tools/assert"
)

func TestTableConstants(t *testing.T) {
	assert.Equal(t, TTenant, "tenants")
	assert.Equal(t, TRepository, "repositories")
	assert.Equal(t, TPackage, "packages")
	assert.Equal(t, TPackageVersion, "package_versions")
	assert.Equal(t, TBlob, "blobs")
	assert.Equal(t, TUploadSession, "upload_sessions")
	assert.Equal(t, TArtifactEntry, "artifact_entries")
	assert.Equal(t, TManifest, "manifests")
	assert.Equal(t, TAuditLog, "audit_logs")
	assert.Equal(t, TOutboxEvent, "outbox_events")
	assert.Equal(t, TSearchIndexJob, "search_index_jobs")
	assert.Equal(t, TSearchDocument, "search_documents")
	assert.Equal(t, TQuarantineItem, "quarantine_items")
	assert.Equal(t, TPolicyEvaluation, "policy_evaluations")
	assert.Equal(t, TTombstone, "tombstones")
	assert.Equal(t, TGcRun, "gc_runs")
	assert.Equal(t, TGcMark, "gc_marks")
}

func TestGetUploadSessionFieldTags(t *testing.T) {
	tags := GetUploadSessionFieldTags()
	assert.Equal(t, GetFieldTag(tags, "UploadId"), "upload_id")
	assert.Equal(t, GetFieldTag(tags, "ExpectedDigest"), "expected_digest")
	assert.Equal(t, GetFieldTag(tags, "CommittedBlobDigest"), "committed_blob_digest")
	assert.Equal(t, GetFieldTag(tags, "Deduped"), "deduped")
	assert.Equal(t, GetFieldTag(tags, "ExpiresAt"), "expires_at")
}

func TestGetPackageVersionFieldTags(t *testing.T) {
	tags := GetPackageVersionFieldTags()
	assert.Equal(t, GetFieldTag(tags, "VersionId"), "version_id")
	assert.Equal(t, GetFieldTag(tags, "State"), "state")
	assert.Equal(t, GetFieldTag(tags, "PublishedAt"), "published_at")
	assert.Equal(t, GetFieldTag(tags, "TombstoneReason"), "tombstone_reason")
}

func TestGetBlobFieldTags(t *testing.T) {
	tags := GetBlobFieldTags()
	assert.Equal(t, GetFieldTag(tags, "Digest"), "digest")
	assert.Equal(t, GetFieldTag(tags, "LengthBytes"), "length_bytes")
	assert.Equal(t, GetFieldTag(tags, "StorageKey"), "storage_key")
}

func TestGetGcRunFieldTags(t *testing.T) {
	tags := GetGcRunFieldTags()
	assert.Equal(t, GetFieldTag(tags, "RunId"), "run_id")
	assert.Equal(t, GetFieldTag(tags, "RetentionGraceHours"), "retention_grace_hours")
	assert.Equal(t, GetFieldTag(tags, "DeleteErrorCount"), "delete_error_count")
}

func TestGenerateCommand(t *testing.T) {
	cmd := generateCommand(Tenant{}, "INSERT INTO tenants (%s) VALUES (%s)", "")
	assert.Equal(t, cmd,
		"INSERT INTO tenants (tenant_id, slug, name, retention_days, created_at) "+
			"VALUES (:tenant_id, :slug, :name, :retention_days, :created_at)")
}

func TestGenerateCommandIgnoresTag(t *testing.T) {
	cmd := generateCommand(GcMark{}, "INSERT INTO gc_marks (%s) VALUES (%s)", "marked_at")
	assert.Equal(t, cmd, "INSERT INTO gc_marks (run_id, digest) VALUES (:run_id, :digest)")
}
