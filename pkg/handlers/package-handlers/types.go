/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package package_handlers

import (
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

type CreateDraftRequest struct {
	PackageType string `json:"packageType"`
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Version     string `json:"version"`
}

type VersionResponse struct {
	VersionId       string `json:"versionId"`
	PackageId       string `json:"packageId"`
	Version         string `json:"version"`
	State           string `json:"state"`
	PublishedAt     string `json:"publishedAt,omitempty"`
	TombstonedAt    string `json:"tombstonedAt,omitempty"`
	TombstoneReason string `json:"tombstoneReason,omitempty"`
	CreatedBy       string `json:"createdBy"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

type AddEntryRequest struct {
	RelativePath   string `json:"relativePath"`
	BlobDigest     string `json:"blobDigest"`
	SizeBytes      int64  `json:"sizeBytes"`
	ChecksumSha1   string `json:"checksumSha1"`
	ChecksumSha256 string `json:"checksumSha256"`
}

type EntryResponse struct {
	EntryId      string `json:"entryId"`
	VersionId    string `json:"versionId"`
	RelativePath string `json:"relativePath"`
	BlobDigest   string `json:"blobDigest"`
	SizeBytes    int64  `json:"sizeBytes"`
}

type PutManifestRequest struct {
	ManifestJson       string `json:"manifestJson"`
	ManifestBlobDigest string `json:"manifestBlobDigest"`
}

type ManifestResponse struct {
	VersionId          string `json:"versionId"`
	ManifestJson       string `json:"manifestJson"`
	ManifestBlobDigest string `json:"manifestBlobDigest,omitempty"`
	PackageType        string `json:"packageType"`
	UpdatedBy          string `json:"updatedBy"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

type TombstoneRequest struct {
	Reason string `json:"reason"`
}

type TombstoneResponse struct {
	VersionId      string `json:"versionId"`
	DeletedBy      string `json:"deletedBy"`
	DeletedAt      string `json:"deletedAt,omitempty"`
	RetentionUntil string `json:"retentionUntil,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

func cvtToVersionResponse(version *dbclient.PackageVersion) *VersionResponse {
	return &VersionResponse{
		VersionId:       version.VersionId,
		PackageId:       version.PackageId,
		Version:         version.Version,
		State:           version.State,
		PublishedAt:     dbutils.ParseNullTimeToString(version.PublishedAt),
		TombstonedAt:    dbutils.ParseNullTimeToString(version.TombstonedAt),
		TombstoneReason: dbutils.ParseNullString(version.TombstoneReason),
		CreatedBy:       version.CreatedBy,
		CreatedAt:       dbutils.ParseNullTimeToString(version.CreatedAt),
	}
}

func cvtToManifestResponse(manifest *dbclient.Manifest) *ManifestResponse {
	return &ManifestResponse{
		VersionId:          manifest.VersionId,
		ManifestJson:       manifest.ManifestJson,
		ManifestBlobDigest: dbutils.ParseNullString(manifest.ManifestBlobDigest),
		PackageType:        manifest.PackageType,
		UpdatedBy:          manifest.UpdatedBy,
		UpdatedAt:          dbutils.ParseNullTimeToString(manifest.UpdatedAt),
	}
}

func cvtToTombstoneResponse(tombstone *dbclient.Tombstone) *TombstoneResponse {
	return &TombstoneResponse{
		VersionId:      tombstone.VersionId,
		DeletedBy:      tombstone.DeletedBy,
		DeletedAt:      dbutils.ParseNullTimeToString(tombstone.DeletedAt),
		RetentionUntil: dbutils.ParseNullTimeToString(tombstone.RetentionUntil),
		Reason:         dbutils.ParseNullString(tombstone.Reason),
	}
}
