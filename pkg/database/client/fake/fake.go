/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

// Package fake provides an in-memory implementation of the data-access
// interface for engine tests.
package fake

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

type Client struct {
	mu sync.Mutex

	Tenants       map[string]*dbclient.Tenant
	Repos         map[string]*dbclient.Repository
	Packages      map[string]*dbclient.Package
	Versions      map[string]*dbclient.PackageVersion
	Blobs         map[string]*dbclient.Blob
	Sessions      map[string]*dbclient.UploadSession
	Entries       map[string][]*dbclient.ArtifactEntry
	Manifests     map[string]*dbclient.Manifest
	Audits        []*dbclient.AuditLog
	Events        map[string]*dbclient.OutboxEvent
	SearchJobs    map[string]*dbclient.SearchIndexJob
	SearchDocs    map[string]*dbclient.SearchDocument
	Quarantine    map[string]*dbclient.QuarantineItem
	Evaluations   []*dbclient.PolicyEvaluation
	Tombstones    map[string]*dbclient.Tombstone
	GcRuns        map[string]*dbclient.GcRun
	GcMarks       map[string]map[string]bool
	TxErr         error
	nextEvalId    int64
	nextAuditId   int64
}

func NewClient() *Client {
	return &Client{
		Tenants:    map[string]*dbclient.Tenant{},
		Repos:      map[string]*dbclient.Repository{},
		Packages:   map[string]*dbclient.Package{},
		Versions:   map[string]*dbclient.PackageVersion{},
		Blobs:      map[string]*dbclient.Blob{},
		Sessions:   map[string]*dbclient.UploadSession{},
		Entries:    map[string][]*dbclient.ArtifactEntry{},
		Manifests:  map[string]*dbclient.Manifest{},
		Events:     map[string]*dbclient.OutboxEvent{},
		SearchJobs: map[string]*dbclient.SearchIndexJob{},
		SearchDocs: map[string]*dbclient.SearchDocument{},
		Quarantine: map[string]*dbclient.QuarantineItem{},
		Tombstones: map[string]*dbclient.Tombstone{},
		GcRuns:     map[string]*dbclient.GcRun{},
		GcMarks:    map[string]map[string]bool{},
	}
}

var _ dbclient.Interface = &Client{}

func (c *Client) Ping(ctx context.Context) error { return nil }

// WithTx runs fn directly; the fake has no transactional isolation.
func (c *Client) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if c.TxErr != nil {
		return c.TxErr
	}
	return fn(nil)
}

// tenants

func (c *Client) InsertTenant(ctx context.Context, tenant *dbclient.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Tenants[tenant.TenantId]; ok {
		return commonerrors.NewAlreadyExist("tenant already exists")
	}
	c.Tenants[tenant.TenantId] = tenant
	return nil
}

func (c *Client) GetTenant(ctx context.Context, tenantId string) (*dbclient.Tenant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tenant, ok := c.Tenants[tenantId]; ok {
		return tenant, nil
	}
	return nil, commonerrors.NewNotFound("tenant", tenantId)
}

func (c *Client) GetTenantBySlug(ctx context.Context, slug string) (*dbclient.Tenant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tenant := range c.Tenants {
		if tenant.Slug == slug {
			return tenant, nil
		}
	}
	return nil, commonerrors.NewNotFound("tenant", slug)
}

// repositories

func (c *Client) InsertRepository(ctx context.Context, repo *dbclient.Repository) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Repos[repo.RepoId]; ok {
		return commonerrors.NewAlreadyExist("repository already exists")
	}
	c.Repos[repo.RepoId] = repo
	return nil
}

func (c *Client) GetRepository(ctx context.Context, repoId string) (*dbclient.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if repo, ok := c.Repos[repoId]; ok {
		return repo, nil
	}
	return nil, commonerrors.NewNotFound("repository", repoId)
}

func (c *Client) GetRepositoryByKey(ctx context.Context, tenantId, repoKey string) (*dbclient.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, repo := range c.Repos {
		if repo.TenantId == tenantId && repo.RepoKey == repoKey {
			return repo, nil
		}
	}
	return nil, commonerrors.NewNotFound("repository", repoKey)
}

// packages

func (c *Client) GetOrCreatePackage(ctx context.Context, q dbclient.Queryer, pkg *dbclient.Package) (*dbclient.Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.Packages {
		if existing.RepoId == pkg.RepoId && existing.PackageType == pkg.PackageType &&
			dbutils.ParseNullString(existing.Namespace) == dbutils.ParseNullString(pkg.Namespace) &&
			existing.Name == pkg.Name {
			return existing, nil
		}
	}
	c.Packages[pkg.PackageId] = pkg
	return pkg, nil
}

func (c *Client) GetPackage(ctx context.Context, packageId string) (*dbclient.Package, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pkg, ok := c.Packages[packageId]; ok {
		return pkg, nil
	}
	return nil, commonerrors.NewNotFound("package", packageId)
}

// blobs

func (c *Client) UpsertBlob(ctx context.Context, q dbclient.Queryer, blob *dbclient.Blob) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Blobs[blob.Digest]; !ok {
		c.Blobs[blob.Digest] = blob
	}
	return nil
}

func (c *Client) GetBlob(ctx context.Context, q dbclient.Queryer, digest string) (*dbclient.Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blob, ok := c.Blobs[digest]; ok {
		return blob, nil
	}
	return nil, commonerrors.NewNotFound("blob", digest)
}

func (c *Client) CountBlobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Blobs), nil
}

func (c *Client) SelectSweepCandidates(ctx context.Context, runId string, cutoff time.Time, limit int) ([]*dbclient.Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	marks := c.GcMarks[runId]
	var result []*dbclient.Blob
	for _, blob := range c.Blobs {
		if marks[blob.Digest] {
			continue
		}
		if blob.CreatedAt.Valid && !blob.CreatedAt.Time.Before(cutoff) {
			continue
		}
		result = append(result, blob)
		if len(result) == limit {
			break
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Digest < result[j].Digest })
	return result, nil
}

func (c *Client) DeleteBlob(ctx context.Context, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Blobs, digest)
	return nil
}

// upload sessions

func (c *Client) InsertUploadSession(ctx context.Context, session *dbclient.UploadSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Sessions[session.UploadId]; ok {
		return commonerrors.NewAlreadyExist("upload session already exists")
	}
	c.Sessions[session.UploadId] = session
	return nil
}

func (c *Client) GetUploadSession(ctx context.Context, uploadId string) (*dbclient.UploadSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session, ok := c.Sessions[uploadId]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, commonerrors.NewNotFound("upload session", uploadId)
}

func (c *Client) GetUploadSessionForUpdate(ctx context.Context, tx *sqlx.Tx, uploadId string) (*dbclient.UploadSession, error) {
	return c.GetUploadSession(ctx, uploadId)
}

func (c *Client) SetUploadSessionState(ctx context.Context, q dbclient.Queryer, uploadId, state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.Sessions[uploadId]
	if !ok {
		return commonerrors.NewNotFound("upload session", uploadId)
	}
	session.State = state
	return nil
}

func (c *Client) SetUploadSessionCommitted(ctx context.Context, q dbclient.Queryer, uploadId, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.Sessions[uploadId]
	if !ok {
		return commonerrors.NewNotFound("upload session", uploadId)
	}
	session.State = dbclient.SessionCommitted
	session.CommittedBlobDigest = dbutils.NullString(digest)
	return nil
}

func (c *Client) SetUploadSessionAborted(ctx context.Context, q dbclient.Queryer, uploadId, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.Sessions[uploadId]
	if !ok {
		return commonerrors.NewNotFound("upload session", uploadId)
	}
	session.State = dbclient.SessionAborted
	session.AbortedReason = dbutils.NullString(reason)
	return nil
}

func (c *Client) ClaimExpiredUploadSessions(ctx context.Context, tx *sqlx.Tx, now time.Time, limit int) ([]*dbclient.UploadSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.UploadSession
	for _, session := range c.Sessions {
		switch session.State {
		case dbclient.SessionInitiated, dbclient.SessionPartsUploading, dbclient.SessionPendingCommit:
		default:
			continue
		}
		if session.ExpiresAt.Valid && !session.ExpiresAt.Time.After(now) {
			result = append(result, session)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// package versions

func (c *Client) InsertPackageVersion(ctx context.Context, version *dbclient.PackageVersion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.Versions {
		if existing.RepoId == version.RepoId && existing.PackageId == version.PackageId &&
			existing.Version == version.Version {
			return commonerrors.NewAlreadyExist("the version already exists")
		}
	}
	c.Versions[version.VersionId] = version
	return nil
}

func (c *Client) GetPackageVersion(ctx context.Context, q dbclient.Queryer, versionId string) (*dbclient.PackageVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version, ok := c.Versions[versionId]; ok {
		copied := *version
		return &copied, nil
	}
	return nil, commonerrors.NewNotFound("package version", versionId)
}

func (c *Client) GetPackageVersionForUpdate(ctx context.Context, tx *sqlx.Tx, versionId string) (*dbclient.PackageVersion, error) {
	return c.GetPackageVersion(ctx, nil, versionId)
}

func (c *Client) SetVersionPublished(ctx context.Context, q dbclient.Queryer, versionId string, publishedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	version, ok := c.Versions[versionId]
	if !ok {
		return commonerrors.NewNotFound("package version", versionId)
	}
	version.State = dbclient.VersionPublished
	version.PublishedAt = dbutils.NullTime(publishedAt)
	return nil
}

func (c *Client) SetVersionTombstoned(ctx context.Context, q dbclient.Queryer, versionId string, at time.Time, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	version, ok := c.Versions[versionId]
	if !ok {
		return commonerrors.NewNotFound("package version", versionId)
	}
	version.State = dbclient.VersionTombstoned
	version.TombstonedAt = dbutils.NullTime(at)
	version.TombstoneReason = dbutils.NullString(reason)
	return nil
}

func (c *Client) SelectReclaimableVersions(ctx context.Context, cutoff time.Time, limit int) ([]*dbclient.PackageVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.PackageVersion
	for _, tombstone := range c.Tombstones {
		version, ok := c.Versions[tombstone.VersionId]
		if !ok || version.State != dbclient.VersionTombstoned {
			continue
		}
		if tombstone.RetentionUntil.Valid && !tombstone.RetentionUntil.Time.After(cutoff) {
			result = append(result, version)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (c *Client) DeletePackageVersion(ctx context.Context, q dbclient.Queryer, versionId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Versions, versionId)
	delete(c.Entries, versionId)
	delete(c.Manifests, versionId)
	delete(c.Tombstones, versionId)
	for id, item := range c.Quarantine {
		if item.VersionId == versionId {
			delete(c.Quarantine, id)
		}
	}
	for id, job := range c.SearchJobs {
		if job.VersionId == versionId {
			delete(c.SearchJobs, id)
		}
	}
	return nil
}

func (c *Client) CountPackageVersions(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Versions), nil
}

// artifact entries and manifests

func (c *Client) InsertArtifactEntry(ctx context.Context, entry *dbclient.ArtifactEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.Entries[entry.VersionId] {
		if existing.RelativePath == entry.RelativePath {
			return commonerrors.NewAlreadyExist("the entry path already exists")
		}
	}
	c.Entries[entry.VersionId] = append(c.Entries[entry.VersionId], entry)
	return nil
}

func (c *Client) SelectArtifactEntries(ctx context.Context, q dbclient.Queryer, versionId string) ([]*dbclient.ArtifactEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Entries[versionId], nil
}

func (c *Client) CountArtifactEntries(ctx context.Context, q dbclient.Queryer, versionId string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries[versionId]), nil
}

func (c *Client) CountMissingEntryBlobs(ctx context.Context, q dbclient.Queryer, versionId string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	missing := 0
	for _, entry := range c.Entries[versionId] {
		if _, ok := c.Blobs[entry.BlobDigest]; !ok {
			missing++
		}
	}
	return missing, nil
}

func (c *Client) UpsertManifest(ctx context.Context, manifest *dbclient.Manifest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Manifests[manifest.VersionId] = manifest
	return nil
}

func (c *Client) GetManifest(ctx context.Context, q dbclient.Queryer, versionId string) (*dbclient.Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if manifest, ok := c.Manifests[versionId]; ok {
		return manifest, nil
	}
	return nil, commonerrors.NewNotFound("manifest", versionId)
}

// outbox

func (c *Client) InsertOutboxEvent(ctx context.Context, q dbclient.Queryer, event *dbclient.OutboxEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events[event.EventId] = event
	return nil
}

func (c *Client) HasOutboxEvent(ctx context.Context, q dbclient.Queryer, aggregateType, aggregateId, eventType string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range c.Events {
		if event.AggregateType == aggregateType && event.AggregateId == aggregateId && event.EventType == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) ClaimOutboxEvents(ctx context.Context, tx *sqlx.Tx, eventType string, now time.Time, visibility time.Duration, limit int) ([]*dbclient.OutboxEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.OutboxEvent
	for _, event := range c.Events {
		if event.EventType != eventType || event.DeliveredAt.Valid {
			continue
		}
		if event.AvailableAt.Valid && event.AvailableAt.Time.After(now) {
			continue
		}
		event.AvailableAt = dbutils.NullTime(now.Add(visibility))
		event.DeliveryAttempts++
		result = append(result, event)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (c *Client) MarkOutboxDelivered(ctx context.Context, q dbclient.Queryer, eventId string, deliveredAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	event, ok := c.Events[eventId]
	if !ok {
		return commonerrors.NewNotFound("outbox event", eventId)
	}
	event.DeliveredAt = dbutils.NullTime(deliveredAt)
	return nil
}

func (c *Client) RequeueOutboxEvent(ctx context.Context, q dbclient.Queryer, eventId string, availableAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	event, ok := c.Events[eventId]
	if !ok {
		return commonerrors.NewNotFound("outbox event", eventId)
	}
	event.AvailableAt = dbutils.NullTime(availableAt)
	return nil
}

// search jobs and documents

func (c *Client) UpsertSearchJobPending(ctx context.Context, q dbclient.Queryer, job *dbclient.SearchIndexJob) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.SearchJobs {
		if existing.TenantId == job.TenantId && existing.VersionId == job.VersionId {
			existing.Status = dbclient.JobPending
			existing.Attempts = 0
			existing.AvailableAt = job.AvailableAt
			existing.LastError = dbutils.NullString("")
			return nil
		}
	}
	job.Status = dbclient.JobPending
	job.Attempts = 0
	c.SearchJobs[job.JobId] = job
	return nil
}

func (c *Client) GetSearchJob(ctx context.Context, jobId string) (*dbclient.SearchIndexJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job, ok := c.SearchJobs[jobId]; ok {
		return job, nil
	}
	return nil, commonerrors.NewNotFound("search index job", jobId)
}

func (c *Client) GetSearchJobByVersion(ctx context.Context, tenantId, versionId string) (*dbclient.SearchIndexJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, job := range c.SearchJobs {
		if job.TenantId == tenantId && job.VersionId == versionId {
			return job, nil
		}
	}
	return nil, commonerrors.NewNotFound("search index job", versionId)
}

func (c *Client) ClaimSearchJobs(ctx context.Context, tx *sqlx.Tx, now time.Time, maxAttempts, limit int) ([]*dbclient.SearchIndexJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.SearchIndexJob
	for _, job := range c.SearchJobs {
		if job.Status != dbclient.JobPending && job.Status != dbclient.JobFailed {
			continue
		}
		if job.Attempts >= maxAttempts {
			continue
		}
		if job.AvailableAt.Valid && job.AvailableAt.Time.After(now) {
			continue
		}
		job.Status = dbclient.JobProcessing
		result = append(result, job)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (c *Client) CompleteSearchJob(ctx context.Context, q dbclient.Queryer, jobId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.SearchJobs[jobId]
	if !ok {
		return commonerrors.NewNotFound("search index job", jobId)
	}
	job.Status = dbclient.JobCompleted
	return nil
}

func (c *Client) FailSearchJob(ctx context.Context, q dbclient.Queryer, jobId string, attempts int, availableAt time.Time, lastError string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.SearchJobs[jobId]
	if !ok {
		return commonerrors.NewNotFound("search index job", jobId)
	}
	job.Status = dbclient.JobFailed
	job.Attempts = attempts
	job.AvailableAt = dbutils.NullTime(availableAt)
	job.LastError = dbutils.NullString(lastError)
	return nil
}

func (c *Client) GetSearchSource(ctx context.Context, versionId string) (*dbclient.SearchSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	version, ok := c.Versions[versionId]
	if !ok || version.State != dbclient.VersionPublished {
		return nil, commonerrors.NewNotFound("published version", versionId)
	}
	repo := c.Repos[version.RepoId]
	pkg := c.Packages[version.PackageId]
	if repo == nil || pkg == nil {
		return nil, commonerrors.NewNotFound("published version", versionId)
	}
	source := &dbclient.SearchSource{
		VersionId:   version.VersionId,
		TenantId:    version.TenantId,
		RepoKey:     repo.RepoKey,
		PackageType: pkg.PackageType,
		Namespace:   pkg.Namespace,
		PackageName: pkg.Name,
		Version:     version.Version,
		PublishedAt: sql.NullTime{Time: version.PublishedAt.Time, Valid: version.PublishedAt.Valid},
	}
	if manifest, ok := c.Manifests[versionId]; ok {
		source.ManifestJson = dbutils.NullString(manifest.ManifestJson)
	}
	return source, nil
}

func (c *Client) UpsertSearchDocument(ctx context.Context, doc *dbclient.SearchDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SearchDocs[doc.VersionId] = doc
	return nil
}

func (c *Client) GetSearchDocument(ctx context.Context, versionId string) (*dbclient.SearchDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc, ok := c.SearchDocs[versionId]; ok {
		return doc, nil
	}
	return nil, commonerrors.NewNotFound("search document", versionId)
}

// quarantine

func (c *Client) UpsertQuarantineItem(ctx context.Context, q dbclient.Queryer, item *dbclient.QuarantineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.Quarantine {
		if existing.TenantId == item.TenantId && existing.RepoId == item.RepoId && existing.VersionId == item.VersionId {
			existing.Status = item.Status
			existing.Reason = item.Reason
			return nil
		}
	}
	c.Quarantine[item.Id] = item
	return nil
}

func (c *Client) GetQuarantineItem(ctx context.Context, id string) (*dbclient.QuarantineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.Quarantine[id]; ok {
		return item, nil
	}
	return nil, commonerrors.NewNotFound("quarantine item", id)
}

func (c *Client) SelectQuarantineItems(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*dbclient.QuarantineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.QuarantineItem
	for _, item := range c.Quarantine {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func (c *Client) SetQuarantineResolution(ctx context.Context, id, status, resolvedBy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.Quarantine[id]
	if !ok {
		return commonerrors.NewNotFound("quarantine item", id)
	}
	item.Status = status
	item.ResolvedBy = dbutils.NullString(resolvedBy)
	return nil
}

func (c *Client) HasActiveQuarantine(ctx context.Context, q dbclient.Queryer, versionId string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.Quarantine {
		if item.VersionId == versionId && item.Status == dbclient.QuarantineQuarantined {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) IsDigestBlocked(ctx context.Context, repoId, digest string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.Quarantine {
		if item.RepoId != repoId {
			continue
		}
		if item.Status != dbclient.QuarantineQuarantined && item.Status != dbclient.QuarantineRejected {
			continue
		}
		for _, entry := range c.Entries[item.VersionId] {
			if entry.BlobDigest == digest {
				return true, nil
			}
		}
		if manifest, ok := c.Manifests[item.VersionId]; ok {
			if dbutils.ParseNullString(manifest.ManifestBlobDigest) == digest {
				return true, nil
			}
		}
	}
	return false, nil
}

// policy

func (c *Client) InsertPolicyEvaluation(ctx context.Context, q dbclient.Queryer, eval *dbclient.PolicyEvaluation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextEvalId++
	eval.Id = c.nextEvalId
	c.Evaluations = append(c.Evaluations, eval)
	return nil
}

func (c *Client) SelectPolicyEvaluations(ctx context.Context, versionId string, limit int) ([]*dbclient.PolicyEvaluation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.PolicyEvaluation
	for _, eval := range c.Evaluations {
		if eval.VersionId == versionId {
			result = append(result, eval)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// tombstones

func (c *Client) InsertTombstone(ctx context.Context, q dbclient.Queryer, tombstone *dbclient.Tombstone) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Tombstones[tombstone.VersionId]; ok {
		return commonerrors.NewAlreadyExist("the version already has a tombstone")
	}
	c.Tombstones[tombstone.VersionId] = tombstone
	return nil
}

func (c *Client) GetTombstoneByVersion(ctx context.Context, q dbclient.Queryer, versionId string) (*dbclient.Tombstone, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tombstone, ok := c.Tombstones[versionId]; ok {
		return tombstone, nil
	}
	return nil, commonerrors.NewNotFound("tombstone", versionId)
}

// gc

func (c *Client) InsertGcRun(ctx context.Context, run *dbclient.GcRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GcRuns[run.RunId] = run
	return nil
}

func (c *Client) GetGcRun(ctx context.Context, runId string) (*dbclient.GcRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run, ok := c.GcRuns[runId]; ok {
		return run, nil
	}
	return nil, commonerrors.NewNotFound("gc run", runId)
}

func (c *Client) SelectGcRuns(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*dbclient.GcRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.GcRun
	for _, run := range c.GcRuns {
		result = append(result, run)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RunId < result[j].RunId })
	return result, nil
}

func (c *Client) InsertReachableMarks(ctx context.Context, runId string, retainCutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	marks := map[string]bool{}
	for _, version := range c.Versions {
		retained := version.State == dbclient.VersionPublished
		if version.State == dbclient.VersionTombstoned {
			if tombstone, ok := c.Tombstones[version.VersionId]; ok {
				retained = tombstone.RetentionUntil.Valid && tombstone.RetentionUntil.Time.After(retainCutoff)
			}
		}
		if !retained {
			continue
		}
		for _, entry := range c.Entries[version.VersionId] {
			marks[entry.BlobDigest] = true
		}
		if manifest, ok := c.Manifests[version.VersionId]; ok {
			if digest := dbutils.ParseNullString(manifest.ManifestBlobDigest); digest != "" {
				marks[digest] = true
			}
		}
	}
	c.GcMarks[runId] = marks
	return int64(len(marks)), nil
}

func (c *Client) CountGcMarks(ctx context.Context, runId string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.GcMarks[runId]), nil
}

func (c *Client) IsMarked(ctx context.Context, runId, digest string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GcMarks[runId][digest], nil
}

func (c *Client) SetGcRunCounters(ctx context.Context, run *dbclient.GcRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.GcRuns[run.RunId]; ok && stored != run {
		*stored = *run
	}
	return nil
}

func (c *Client) FinalizeGcRun(ctx context.Context, runId string, completedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.GcRuns[runId]
	if !ok {
		return commonerrors.NewNotFound("gc run", runId)
	}
	run.CompletedAt = dbutils.NullTime(completedAt)
	return nil
}

func (c *Client) SelectStrandedGcRuns(ctx context.Context, cutoff time.Time, limit int) ([]*dbclient.GcRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.GcRun
	for _, run := range c.GcRuns {
		if run.CompletedAt.Valid {
			continue
		}
		if run.StartedAt.Valid && run.StartedAt.Time.Before(cutoff) {
			result = append(result, run)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (c *Client) FinalizeStrandedGcRun(ctx context.Context, runId string, completedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.GcRuns[runId]
	if !ok {
		return commonerrors.NewNotFound("gc run", runId)
	}
	run.CompletedAt = dbutils.NullTime(completedAt)
	run.DeleteErrorCount++
	return nil
}

// audit

func (c *Client) InsertAuditLog(ctx context.Context, q dbclient.Queryer, log *dbclient.AuditLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextAuditId++
	log.Id = c.nextAuditId
	c.Audits = append(c.Audits, log)
	return nil
}

func (c *Client) BatchInsertAuditLogs(ctx context.Context, logs []*dbclient.AuditLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, log := range logs {
		c.nextAuditId++
		log.Id = c.nextAuditId
		c.Audits = append(c.Audits, log)
	}
	return nil
}

func (c *Client) SelectAuditLogsByAction(ctx context.Context, action string, limit int) ([]*dbclient.AuditLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []*dbclient.AuditLog
	for _, log := range c.Audits {
		if log.Action == action {
			result = append(result, log)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// AuditActions returns the recorded audit actions in insertion order.
func (c *Client) AuditActions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions := make([]string, 0, len(c.Audits))
	for _, log := range c.Audits {
		actions = append(actions, log.Action)
	}
	return actions
}

// reconcile

func (c *Client) SelectMissingEntryDigests(ctx context.Context, limit int) ([]string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var samples []string
	count := 0
	for _, entries := range c.Entries {
		for _, entry := range entries {
			if _, ok := c.Blobs[entry.BlobDigest]; ok {
				continue
			}
			count++
			if len(samples) < limit {
				samples = append(samples, entry.BlobDigest)
			}
		}
	}
	return samples, count, nil
}

func (c *Client) SelectMissingManifestDigests(ctx context.Context, limit int) ([]string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var samples []string
	count := 0
	for _, manifest := range c.Manifests {
		digest := dbutils.ParseNullString(manifest.ManifestBlobDigest)
		if digest == "" {
			continue
		}
		if _, ok := c.Blobs[digest]; ok {
			continue
		}
		count++
		if len(samples) < limit {
			samples = append(samples, digest)
		}
	}
	return samples, count, nil
}

func (c *Client) SelectOrphanBlobs(ctx context.Context, limit int) ([]string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	referenced := map[string]bool{}
	for _, entries := range c.Entries {
		for _, entry := range entries {
			referenced[entry.BlobDigest] = true
		}
	}
	for _, manifest := range c.Manifests {
		if digest := dbutils.ParseNullString(manifest.ManifestBlobDigest); digest != "" {
			referenced[digest] = true
		}
	}
	for _, session := range c.Sessions {
		if digest := dbutils.ParseNullString(session.CommittedBlobDigest); digest != "" {
			referenced[digest] = true
		}
	}
	var samples []string
	count := 0
	for digest := range c.Blobs {
		if referenced[digest] {
			continue
		}
		count++
		if len(samples) < limit {
			samples = append(samples, digest)
		}
	}
	return samples, count, nil
}

// SessionMust returns the stored session or panics; test helper.
func (c *Client) SessionMust(uploadId string) *dbclient.UploadSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.Sessions[uploadId]
	if !ok {
		panic(fmt.Sprintf("session %s not found", uploadId))
	}
	return session
}
