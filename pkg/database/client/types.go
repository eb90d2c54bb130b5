/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
)

const (
	DESC = "desc"
	ASC  = "asc"

	CreatedTime = "created_at"
)

// PackageVersion states.
const (
	VersionDraft      = "draft"
	VersionPublished  = "published"
	VersionTombstoned = "tombstoned"
)

// UploadSession states.
const (
	SessionInitiated      = "initiated"
	SessionPartsUploading = "parts_uploading"
	SessionPendingCommit  = "pending_commit"
	SessionCommitted      = "committed"
	SessionAborted        = "aborted"
)

// SearchIndexJob statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// QuarantineItem statuses.
const (
	QuarantineQuarantined = "quarantined"
	QuarantineReleased    = "released"
	QuarantineRejected    = "rejected"
)

// PolicyEvaluation decisions and actions.
const (
	DecisionAllow      = "allow"
	DecisionDeny       = "deny"
	DecisionQuarantine = "quarantine"

	ActionPublish = "publish"
	ActionPromote = "promote"
)

// GcRun modes.
const (
	GcModeDryRun  = "dry_run"
	GcModeExecute = "execute"
)

// Outbox event vocabulary.
const (
	AggregatePackageVersion = "package_version"
	AggregateUploadSession  = "upload_session"

	EventVersionPublished = "version.published"
	EventUploadCommitted  = "upload.committed"
)

type Tenant struct {
	TenantId      string      `db:"tenant_id"`
	Slug          string      `db:"slug"`
	Name          string      `db:"name"`
	RetentionDays int         `db:"retention_days"`
	CreatedAt     pq.NullTime `db:"created_at"`
}

// GetTenantFieldTags returns the TenantFieldTags value.
func GetTenantFieldTags() map[string]string {
	t := Tenant{}
	return getFieldTags(t)
}

type Repository struct {
	RepoId    string         `db:"repo_id"`
	TenantId  string         `db:"tenant_id"`
	RepoKey   string         `db:"repo_key"`
	RepoType  string         `db:"repo_type"`
	Config    sql.NullString `db:"config"`
	CreatedAt pq.NullTime    `db:"created_at"`
}

// GetRepositoryFieldTags returns the RepositoryFieldTags value.
func GetRepositoryFieldTags() map[string]string {
	r := Repository{}
	return getFieldTags(r)
}

type Package struct {
	PackageId   string         `db:"package_id"`
	TenantId    string         `db:"tenant_id"`
	RepoId      string         `db:"repo_id"`
	PackageType string         `db:"package_type"`
	Namespace   sql.NullString `db:"namespace"`
	Name        string         `db:"name"`
	CreatedAt   pq.NullTime    `db:"created_at"`
}

// GetPackageFieldTags returns the PackageFieldTags value.
func GetPackageFieldTags() map[string]string {
	p := Package{}
	return getFieldTags(p)
}

type PackageVersion struct {
	VersionId       string         `db:"version_id"`
	TenantId        string         `db:"tenant_id"`
	RepoId          string         `db:"repo_id"`
	PackageId       string         `db:"package_id"`
	Version         string         `db:"version"`
	State           string         `db:"state"`
	PublishedAt     pq.NullTime    `db:"published_at"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       pq.NullTime    `db:"created_at"`
	TombstonedAt    pq.NullTime    `db:"tombstoned_at"`
	TombstoneReason sql.NullString `db:"tombstone_reason"`
}

// GetPackageVersionFieldTags returns the PackageVersionFieldTags value.
func GetPackageVersionFieldTags() map[string]string {
	v := PackageVersion{}
	return getFieldTags(v)
}

type Blob struct {
	Digest      string         `db:"digest"`
	LengthBytes int64          `db:"length_bytes"`
	StorageKey  string         `db:"storage_key"`
	ObjectEtag  sql.NullString `db:"object_etag"`
	CreatedAt   pq.NullTime    `db:"created_at"`
}

// GetBlobFieldTags returns the BlobFieldTags value.
func GetBlobFieldTags() map[string]string {
	b := Blob{}
	return getFieldTags(b)
}

type UploadSession struct {
	UploadId            string         `db:"upload_id"`
	TenantId            string         `db:"tenant_id"`
	RepoId              string         `db:"repo_id"`
	ExpectedDigest      string         `db:"expected_digest"`
	ExpectedLength      int64          `db:"expected_length"`
	State               string         `db:"state"`
	ObjectStagingKey    sql.NullString `db:"object_staging_key"`
	StorageUploadId     sql.NullString `db:"storage_upload_id"`
	CommittedBlobDigest sql.NullString `db:"committed_blob_digest"`
	Deduped             bool           `db:"deduped"`
	CreatedBy           string         `db:"created_by"`
	CreatedAt           pq.NullTime    `db:"created_at"`
	UpdatedAt           pq.NullTime    `db:"updated_at"`
	ExpiresAt           pq.NullTime    `db:"expires_at"`
	AbortedReason       sql.NullString `db:"aborted_reason"`
}

// GetUploadSessionFieldTags returns the UploadSessionFieldTags value.
func GetUploadSessionFieldTags() map[string]string {
	s := UploadSession{}
	return getFieldTags(s)
}

type ArtifactEntry struct {
	EntryId        string         `db:"entry_id"`
	VersionId      string         `db:"version_id"`
	RelativePath   string         `db:"relative_path"`
	BlobDigest     string         `db:"blob_digest"`
	ChecksumSha1   sql.NullString `db:"checksum_sha1"`
	ChecksumSha256 sql.NullString `db:"checksum_sha256"`
	SizeBytes      int64          `db:"size_bytes"`
	CreatedAt      pq.NullTime    `db:"created_at"`
}

// GetArtifactEntryFieldTags returns the ArtifactEntryFieldTags value.
func GetArtifactEntryFieldTags() map[string]string {
	e := ArtifactEntry{}
	return getFieldTags(e)
}

type Manifest struct {
	VersionId          string         `db:"version_id"`
	ManifestJson       string         `db:"manifest_json"`
	ManifestBlobDigest sql.NullString `db:"manifest_blob_digest"`
	PackageType        string         `db:"package_type"`
	CreatedBy          string         `db:"created_by"`
	UpdatedBy          string         `db:"updated_by"`
	CreatedAt          pq.NullTime    `db:"created_at"`
	UpdatedAt          pq.NullTime    `db:"updated_at"`
}

// GetManifestFieldTags returns the ManifestFieldTags value.
func GetManifestFieldTags() map[string]string {
	m := Manifest{}
	return getFieldTags(m)
}

type AuditLog struct {
	Id           int64          `db:"id"`
	TenantId     sql.NullString `db:"tenant_id"`
	Actor        string         `db:"actor"`
	Action       string         `db:"action"`
	ResourceType string         `db:"resource_type"`
	ResourceId   string         `db:"resource_id"`
	Details      sql.NullString `db:"details"`
	OccurredAt   pq.NullTime    `db:"occurred_at"`
}

// GetAuditLogFieldTags returns the AuditLogFieldTags value.
func GetAuditLogFieldTags() map[string]string {
	l := AuditLog{}
	return getFieldTags(l)
}

type OutboxEvent struct {
	EventId          string      `db:"event_id"`
	TenantId         string      `db:"tenant_id"`
	AggregateType    string      `db:"aggregate_type"`
	AggregateId      string      `db:"aggregate_id"`
	EventType        string      `db:"event_type"`
	Payload          string      `db:"payload"`
	OccurredAt       pq.NullTime `db:"occurred_at"`
	AvailableAt      pq.NullTime `db:"available_at"`
	DeliveredAt      pq.NullTime `db:"delivered_at"`
	DeliveryAttempts int         `db:"delivery_attempts"`
}

// GetOutboxEventFieldTags returns the OutboxEventFieldTags value.
func GetOutboxEventFieldTags() map[string]string {
	e := OutboxEvent{}
	return getFieldTags(e)
}

type SearchIndexJob struct {
	JobId       string         `db:"job_id"`
	TenantId    string         `db:"tenant_id"`
	VersionId   string         `db:"version_id"`
	Status      string         `db:"status"`
	AvailableAt pq.NullTime    `db:"available_at"`
	Attempts    int            `db:"attempts"`
	LastError   sql.NullString `db:"last_error"`
	CreatedAt   pq.NullTime    `db:"created_at"`
	UpdatedAt   pq.NullTime    `db:"updated_at"`
}

// GetSearchIndexJobFieldTags returns the SearchIndexJobFieldTags value.
func GetSearchIndexJobFieldTags() map[string]string {
	j := SearchIndexJob{}
	return getFieldTags(j)
}

type QuarantineItem struct {
	Id         string         `db:"id"`
	TenantId   string         `db:"tenant_id"`
	RepoId     string         `db:"repo_id"`
	VersionId  string         `db:"version_id"`
	Status     string         `db:"status"`
	Reason     sql.NullString `db:"reason"`
	ResolvedBy sql.NullString `db:"resolved_by"`
	CreatedAt  pq.NullTime    `db:"created_at"`
	UpdatedAt  pq.NullTime    `db:"updated_at"`
}

// GetQuarantineItemFieldTags returns the QuarantineItemFieldTags value.
func GetQuarantineItemFieldTags() map[string]string {
	q := QuarantineItem{}
	return getFieldTags(q)
}

type PolicyEvaluation struct {
	Id          int64          `db:"id"`
	TenantId    string         `db:"tenant_id"`
	RepoId      string         `db:"repo_id"`
	VersionId   string         `db:"version_id"`
	Action      string         `db:"action"`
	Decision    string         `db:"decision"`
	Reason      sql.NullString `db:"reason"`
	Details     sql.NullString `db:"details"`
	EvaluatedAt pq.NullTime    `db:"evaluated_at"`
	EvaluatedBy string         `db:"evaluated_by"`
}

// GetPolicyEvaluationFieldTags returns the PolicyEvaluationFieldTags value.
func GetPolicyEvaluationFieldTags() map[string]string {
	p := PolicyEvaluation{}
	return getFieldTags(p)
}

type Tombstone struct {
	Id             string         `db:"id"`
	TenantId       string         `db:"tenant_id"`
	RepoId         string         `db:"repo_id"`
	VersionId      string         `db:"version_id"`
	DeletedBy      string         `db:"deleted_by"`
	DeletedAt      pq.NullTime    `db:"deleted_at"`
	RetentionUntil pq.NullTime    `db:"retention_until"`
	Reason         sql.NullString `db:"reason"`
}

// GetTombstoneFieldTags returns the TombstoneFieldTags value.
func GetTombstoneFieldTags() map[string]string {
	t := Tombstone{}
	return getFieldTags(t)
}

type GcRun struct {
	RunId               string         `db:"run_id"`
	TenantId            sql.NullString `db:"tenant_id"`
	InitiatedBy         string         `db:"initiated_by"`
	Mode                string         `db:"mode"`
	RetentionGraceHours int            `db:"retention_grace_hours"`
	BatchSize           int            `db:"batch_size"`
	StartedAt           pq.NullTime    `db:"started_at"`
	CompletedAt         pq.NullTime    `db:"completed_at"`
	MarkedCount         int            `db:"marked_count"`
	CandidateBlobCount  int            `db:"candidate_blob_count"`
	DeletedBlobCount    int            `db:"deleted_blob_count"`
	DeletedVersionCount int            `db:"deleted_version_count"`
	DeleteErrorCount    int            `db:"delete_error_count"`
}

// GetGcRunFieldTags returns the GcRunFieldTags value.
func GetGcRunFieldTags() map[string]string {
	r := GcRun{}
	return getFieldTags(r)
}

type GcMark struct {
	RunId    string      `db:"run_id"`
	Digest   string      `db:"digest"`
	MarkedAt pq.NullTime `db:"marked_at"`
}

// getFieldTags retrieves FieldTags for internal use.
func getFieldTags(obj interface{}) map[string]string {
	result := make(map[string]string)
	t := reflect.TypeOf(obj)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		result[strings.ToLower(field.Name)] = field.Tag.Get("db")
	}
	return result
}

// generateCommand generates SQL command string using reflection.
// Iterates through struct fields and builds column and value lists.
// Skips fields with specified ignoreTag.
// Returns formatted SQL command with columns and values.
func generateCommand(obj interface{}, format, ignoreTag string) string {
	t := reflect.TypeOf(obj)
	columns := make([]string, 0, t.NumField())
	values := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("db")
		if tag == ignoreTag {
			continue
		}
		columns = append(columns, tag)
		values = append(values, fmt.Sprintf(":%s", tag))
	}
	cmd := fmt.Sprintf(format, strings.Join(columns, ", "), strings.Join(values, ", "))
	return cmd
}

// GetFieldTag returns the FieldTag value.
func GetFieldTag(tags map[string]string, name string) string {
	name = strings.ToLower(name)
	return tags[name]
}
