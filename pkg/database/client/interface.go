/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type Interface interface {
	TenantInterface
	RepositoryInterface
	PackageInterface
	BlobInterface
	UploadSessionInterface
	PackageVersionInterface
	OutboxInterface
	SearchInterface
	QuarantineInterface
	PolicyInterface
	TombstoneInterface
	GcInterface
	AuditInterface
	ReconcileInterface

	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type TenantInterface interface {
	InsertTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, tenantId string) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
}

type RepositoryInterface interface {
	InsertRepository(ctx context.Context, repo *Repository) error
	GetRepository(ctx context.Context, repoId string) (*Repository, error)
	GetRepositoryByKey(ctx context.Context, tenantId, repoKey string) (*Repository, error)
}

type PackageInterface interface {
	GetOrCreatePackage(ctx context.Context, q Queryer, pkg *Package) (*Package, error)
	GetPackage(ctx context.Context, packageId string) (*Package, error)
}

type BlobInterface interface {
	UpsertBlob(ctx context.Context, q Queryer, blob *Blob) error
	GetBlob(ctx context.Context, q Queryer, digest string) (*Blob, error)
	CountBlobs(ctx context.Context, query sqrl.Sqlizer) (int, error)
	SelectSweepCandidates(ctx context.Context, runId string, cutoff time.Time, limit int) ([]*Blob, error)
	DeleteBlob(ctx context.Context, digest string) error
}

type UploadSessionInterface interface {
	InsertUploadSession(ctx context.Context, session *UploadSession) error
	GetUploadSession(ctx context.Context, uploadId string) (*UploadSession, error)
	GetUploadSessionForUpdate(ctx context.Context, tx *sqlx.Tx, uploadId string) (*UploadSession, error)
	SetUploadSessionState(ctx context.Context, q Queryer, uploadId, state string) error
	SetUploadSessionCommitted(ctx context.Context, q Queryer, uploadId, digest string) error
	SetUploadSessionAborted(ctx context.Context, q Queryer, uploadId, reason string) error
	ClaimExpiredUploadSessions(ctx context.Context, tx *sqlx.Tx, now time.Time, limit int) ([]*UploadSession, error)
}

type PackageVersionInterface interface {
	InsertPackageVersion(ctx context.Context, version *PackageVersion) error
	GetPackageVersion(ctx context.Context, q Queryer, versionId string) (*PackageVersion, error)
	GetPackageVersionForUpdate(ctx context.Context, tx *sqlx.Tx, versionId string) (*PackageVersion, error)
	SetVersionPublished(ctx context.Context, q Queryer, versionId string, publishedAt time.Time) error
	SetVersionTombstoned(ctx context.Context, q Queryer, versionId string, at time.Time, reason string) error
	SelectReclaimableVersions(ctx context.Context, cutoff time.Time, limit int) ([]*PackageVersion, error)
	DeletePackageVersion(ctx context.Context, q Queryer, versionId string) error
	CountPackageVersions(ctx context.Context, query sqrl.Sqlizer) (int, error)

	InsertArtifactEntry(ctx context.Context, entry *ArtifactEntry) error
	SelectArtifactEntries(ctx context.Context, q Queryer, versionId string) ([]*ArtifactEntry, error)
	CountArtifactEntries(ctx context.Context, q Queryer, versionId string) (int, error)
	CountMissingEntryBlobs(ctx context.Context, q Queryer, versionId string) (int, error)
	UpsertManifest(ctx context.Context, manifest *Manifest) error
	GetManifest(ctx context.Context, q Queryer, versionId string) (*Manifest, error)
}

type OutboxInterface interface {
	InsertOutboxEvent(ctx context.Context, q Queryer, event *OutboxEvent) error
	HasOutboxEvent(ctx context.Context, q Queryer, aggregateType, aggregateId, eventType string) (bool, error)
	ClaimOutboxEvents(ctx context.Context, tx *sqlx.Tx, eventType string, now time.Time, visibility time.Duration, limit int) ([]*OutboxEvent, error)
	MarkOutboxDelivered(ctx context.Context, q Queryer, eventId string, deliveredAt time.Time) error
	RequeueOutboxEvent(ctx context.Context, q Queryer, eventId string, availableAt time.Time) error
}

type SearchInterface interface {
	UpsertSearchJobPending(ctx context.Context, q Queryer, job *SearchIndexJob) error
	GetSearchJob(ctx context.Context, jobId string) (*SearchIndexJob, error)
	GetSearchJobByVersion(ctx context.Context, tenantId, versionId string) (*SearchIndexJob, error)
	ClaimSearchJobs(ctx context.Context, tx *sqlx.Tx, now time.Time, maxAttempts, limit int) ([]*SearchIndexJob, error)
	CompleteSearchJob(ctx context.Context, q Queryer, jobId string) error
	FailSearchJob(ctx context.Context, q Queryer, jobId string, attempts int, availableAt time.Time, lastError string) error

	GetSearchSource(ctx context.Context, versionId string) (*SearchSource, error)
	UpsertSearchDocument(ctx context.Context, doc *SearchDocument) error
	GetSearchDocument(ctx context.Context, versionId string) (*SearchDocument, error)
}

type QuarantineInterface interface {
	UpsertQuarantineItem(ctx context.Context, q Queryer, item *QuarantineItem) error
	GetQuarantineItem(ctx context.Context, id string) (*QuarantineItem, error)
	SelectQuarantineItems(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*QuarantineItem, error)
	SetQuarantineResolution(ctx context.Context, id, status, resolvedBy string) error
	HasActiveQuarantine(ctx context.Context, q Queryer, versionId string) (bool, error)
	IsDigestBlocked(ctx context.Context, repoId, digest string) (bool, error)
}

type PolicyInterface interface {
	InsertPolicyEvaluation(ctx context.Context, q Queryer, eval *PolicyEvaluation) error
	SelectPolicyEvaluations(ctx context.Context, versionId string, limit int) ([]*PolicyEvaluation, error)
}

type TombstoneInterface interface {
	InsertTombstone(ctx context.Context, q Queryer, tombstone *Tombstone) error
	GetTombstoneByVersion(ctx context.Context, q Queryer, versionId string) (*Tombstone, error)
}

type GcInterface interface {
	InsertGcRun(ctx context.Context, run *GcRun) error
	GetGcRun(ctx context.Context, runId string) (*GcRun, error)
	SelectGcRuns(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*GcRun, error)
	InsertReachableMarks(ctx context.Context, runId string, retainCutoff time.Time) (int64, error)
	CountGcMarks(ctx context.Context, runId string) (int, error)
	IsMarked(ctx context.Context, runId, digest string) (bool, error)
	SetGcRunCounters(ctx context.Context, run *GcRun) error
	FinalizeGcRun(ctx context.Context, runId string, completedAt time.Time) error
	SelectStrandedGcRuns(ctx context.Context, cutoff time.Time, limit int) ([]*GcRun, error)
	FinalizeStrandedGcRun(ctx context.Context, runId string, completedAt time.Time) error
}

type AuditInterface interface {
	InsertAuditLog(ctx context.Context, q Queryer, log *AuditLog) error
	BatchInsertAuditLogs(ctx context.Context, logs []*AuditLog) error
	SelectAuditLogsByAction(ctx context.Context, action string, limit int) ([]*AuditLog, error)
}

type ReconcileInterface interface {
	SelectMissingEntryDigests(ctx context.Context, limit int) ([]string, int, error)
	SelectMissingManifestDigests(ctx context.Context, limit int) ([]string, int, error)
	SelectOrphanBlobs(ctx context.Context, limit int) ([]string, int, error)
}
