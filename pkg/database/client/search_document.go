/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TSearchDocument = "search_documents"
)

// SearchDocument is the rebuildable search read-model row, managed through
// gorm. The search_vector column is database-generated and never written
// here.
type SearchDocument struct {
	VersionId    string         `gorm:"column:version_id;primaryKey"`
	TenantId     string         `gorm:"column:tenant_id"`
	RepoKey      string         `gorm:"column:repo_key"`
	PackageType  string         `gorm:"column:package_type"`
	Namespace    sql.NullString `gorm:"column:namespace"`
	PackageName  string         `gorm:"column:package_name"`
	Version      string         `gorm:"column:version"`
	ManifestJson sql.NullString `gorm:"column:manifest_json"`
	PublishedAt  sql.NullTime   `gorm:"column:published_at"`
	SearchText   string         `gorm:"column:search_text"`
	IndexedAt    time.Time      `gorm:"column:indexed_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (SearchDocument) TableName() string {
	return TSearchDocument
}

// SearchSource is the joined published-version row the index worker reads.
type SearchSource struct {
	VersionId    string         `db:"version_id"`
	TenantId     string         `db:"tenant_id"`
	RepoKey      string         `db:"repo_key"`
	PackageType  string         `db:"package_type"`
	Namespace    sql.NullString `db:"namespace"`
	PackageName  string         `db:"package_name"`
	Version      string         `db:"version"`
	ManifestJson sql.NullString `db:"manifest_json"`
	PublishedAt  sql.NullTime   `db:"published_at"`
}

var getSearchSourceCmd = fmt.Sprintf(`SELECT
		v.version_id, v.tenant_id, r.repo_key, p.package_type, p.namespace,
		p.name AS package_name, v.version, m.manifest_json, v.published_at
	FROM %s v
	JOIN %s r ON r.repo_id = v.repo_id
	JOIN %s p ON p.package_id = v.package_id
	LEFT JOIN %s m ON m.version_id = v.version_id
	WHERE v.version_id = $1 AND v.state = '%s'
	LIMIT 1`, TPackageVersion, TRepository, TPackage, TManifest, VersionPublished)

// GetSearchSource reads the published version joined with its repository,
// package and manifest. Missing or unpublished versions yield not-found.
func (c *Client) GetSearchSource(ctx context.Context, versionId string) (*SearchSource, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var sources []*SearchSource
	if err = db.SelectContext(ctx, &sources, getSearchSourceCmd, versionId); err != nil {
		klog.ErrorS(err, "failed to select search source", "versionId", versionId)
		return nil, err
	}
	if len(sources) == 0 {
		return nil, commonerrors.NewNotFound("published version", versionId)
	}
	return sources[0], nil
}

// UpsertSearchDocument writes the document keyed on version_id, so
// reprocessing a job is idempotent.
func (c *Client) UpsertSearchDocument(ctx context.Context, doc *SearchDocument) error {
	if c == nil || c.gorm == nil {
		return commonerrors.NewInternalError("The client of db has not been initialized")
	}
	err := c.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "version_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repo_key", "package_type", "namespace", "package_name", "version",
			"manifest_json", "published_at", "search_text", "updated_at",
		}),
	}).Create(doc).Error
	if err != nil {
		klog.ErrorS(err, "failed to upsert search document", "versionId", doc.VersionId)
	}
	return err
}

// GetSearchDocument reads a document by version id.
func (c *Client) GetSearchDocument(ctx context.Context, versionId string) (*SearchDocument, error) {
	if c == nil || c.gorm == nil {
		return nil, commonerrors.NewInternalError("The client of db has not been initialized")
	}
	var doc SearchDocument
	err := c.gorm.WithContext(ctx).Where("version_id = ?", versionId).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
