/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package package_handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
	"github.com/sremani/Artifortress-sub002/pkg/lifecycle"
	"github.com/sremani/Artifortress-sub002/pkg/publish"
	"github.com/sremani/Artifortress-sub002/pkg/upload"
)

type Handler struct {
	db        dbclient.Interface
	publisher *publish.Engine
	lifecycle *lifecycle.Engine
}

func NewHandler(db dbclient.Interface, publisher *publish.Engine, lc *lifecycle.Engine) *Handler {
	return &Handler{db: db, publisher: publisher, lifecycle: lc}
}

func (h *Handler) CreateDraft(c *gin.Context) {
	handlercommon.Handle(c, h.createDraft)
}

func (h *Handler) AddEntry(c *gin.Context) {
	handlercommon.Handle(c, h.addEntry)
}

func (h *Handler) PutManifest(c *gin.Context) {
	handlercommon.Handle(c, h.putManifest)
}

func (h *Handler) GetManifest(c *gin.Context) {
	handlercommon.Handle(c, h.getManifest)
}

func (h *Handler) PublishVersion(c *gin.Context) {
	handlercommon.Handle(c, h.publishVersion)
}

func (h *Handler) TombstoneVersion(c *gin.Context) {
	handlercommon.Handle(c, h.tombstoneVersion)
}

func (h *Handler) createDraft(c *gin.Context) (interface{}, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	req := &CreateDraftRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	if err = checkDraftParams(req); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	pkg, err := h.db.GetOrCreatePackage(ctx, nil, &dbclient.Package{
		PackageId:   uuid.NewString(),
		TenantId:    scope.Tenant.TenantId,
		RepoId:      scope.Repo.RepoId,
		PackageType: req.PackageType,
		Namespace:   dbutils.NullString(req.Namespace),
		Name:        req.Name,
		CreatedAt:   dbutils.NullTime(time.Now().UTC()),
	})
	if err != nil {
		return nil, err
	}
	version := &dbclient.PackageVersion{
		VersionId: uuid.NewString(),
		TenantId:  scope.Tenant.TenantId,
		RepoId:    scope.Repo.RepoId,
		PackageId: pkg.PackageId,
		Version:   req.Version,
		State:     dbclient.VersionDraft,
		CreatedBy: handlercommon.Actor(c),
		CreatedAt: dbutils.NullTime(time.Now().UTC()),
	}
	if err = h.db.InsertPackageVersion(ctx, version); err != nil {
		return nil, err
	}
	klog.Infof("created draft version %s for %s@%s", version.VersionId, pkg.Name, req.Version)
	return cvtToVersionResponse(version), nil
}

func checkDraftParams(req *CreateDraftRequest) error {
	var errs []error
	if req.PackageType == "" {
		errs = append(errs, fmt.Errorf("packageType is required"))
	}
	if req.Name == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if req.Version == "" {
		errs = append(errs, fmt.Errorf("version is required"))
	}
	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return commonerrors.NewBadRequest(agg.Error())
	}
	return nil
}

func (h *Handler) addEntry(c *gin.Context) (interface{}, error) {
	version, err := h.draftInScope(c)
	if err != nil {
		return nil, err
	}
	req := &AddEntryRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	if req.RelativePath == "" {
		return nil, commonerrors.NewBadRequest("relativePath is required")
	}
	if !upload.IsValidDigest(req.BlobDigest) {
		return nil, commonerrors.NewBadRequest("blobDigest must be 64 lowercase hex characters")
	}
	if req.SizeBytes <= 0 {
		return nil, commonerrors.NewBadRequest("sizeBytes must be positive")
	}

	ctx := c.Request.Context()
	if _, err = h.db.GetBlob(ctx, nil, req.BlobDigest); err != nil {
		return nil, err
	}
	entry := &dbclient.ArtifactEntry{
		EntryId:        uuid.NewString(),
		VersionId:      version.VersionId,
		RelativePath:   req.RelativePath,
		BlobDigest:     req.BlobDigest,
		ChecksumSha1:   dbutils.NullString(req.ChecksumSha1),
		ChecksumSha256: dbutils.NullString(req.ChecksumSha256),
		SizeBytes:      req.SizeBytes,
		CreatedAt:      dbutils.NullTime(time.Now().UTC()),
	}
	if err = h.db.InsertArtifactEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &EntryResponse{
		EntryId:      entry.EntryId,
		VersionId:    entry.VersionId,
		RelativePath: entry.RelativePath,
		BlobDigest:   entry.BlobDigest,
		SizeBytes:    entry.SizeBytes,
	}, nil
}

func (h *Handler) putManifest(c *gin.Context) (interface{}, error) {
	version, err := h.draftInScope(c)
	if err != nil {
		return nil, err
	}
	req := &PutManifestRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	if !json.Valid([]byte(req.ManifestJson)) {
		return nil, commonerrors.NewBadRequest("manifestJson must be valid JSON")
	}
	if req.ManifestBlobDigest != "" && !upload.IsValidDigest(req.ManifestBlobDigest) {
		return nil, commonerrors.NewBadRequest("manifestBlobDigest must be 64 lowercase hex characters")
	}

	ctx := c.Request.Context()
	pkg, err := h.db.GetPackage(ctx, version.PackageId)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	manifest := &dbclient.Manifest{
		VersionId:          version.VersionId,
		ManifestJson:       req.ManifestJson,
		ManifestBlobDigest: dbutils.NullString(req.ManifestBlobDigest),
		PackageType:        pkg.PackageType,
		CreatedBy:          handlercommon.Actor(c),
		UpdatedBy:          handlercommon.Actor(c),
		CreatedAt:          dbutils.NullTime(now),
		UpdatedAt:          dbutils.NullTime(now),
	}
	if err = h.db.UpsertManifest(ctx, manifest); err != nil {
		return nil, err
	}
	return cvtToManifestResponse(manifest), nil
}

func (h *Handler) getManifest(c *gin.Context) (interface{}, error) {
	version, err := h.versionInScope(c)
	if err != nil {
		return nil, err
	}
	manifest, err := h.db.GetManifest(c.Request.Context(), nil, version.VersionId)
	if err != nil {
		return nil, err
	}
	return cvtToManifestResponse(manifest), nil
}

func (h *Handler) publishVersion(c *gin.Context) (interface{}, error) {
	version, err := h.versionInScope(c)
	if err != nil {
		return nil, err
	}
	return h.publisher.Publish(c.Request.Context(), version.VersionId, handlercommon.Actor(c))
}

func (h *Handler) tombstoneVersion(c *gin.Context) (interface{}, error) {
	version, err := h.versionInScope(c)
	if err != nil {
		return nil, err
	}
	req := &TombstoneRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	tombstone, err := h.lifecycle.Tombstone(c.Request.Context(), version.VersionId, handlercommon.Actor(c), req.Reason)
	if err != nil {
		return nil, err
	}
	return cvtToTombstoneResponse(tombstone), nil
}

// versionInScope loads the version and verifies it belongs to the request's
// repository.
func (h *Handler) versionInScope(c *gin.Context) (*dbclient.PackageVersion, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	versionId := c.Param(handlercommon.ParamId)
	version, err := h.db.GetPackageVersion(c.Request.Context(), nil, versionId)
	if err != nil {
		return nil, err
	}
	if version.RepoId != scope.Repo.RepoId {
		return nil, commonerrors.NewNotFound("package version", versionId)
	}
	return version, nil
}

// draftInScope additionally requires the version to still be mutable.
func (h *Handler) draftInScope(c *gin.Context) (*dbclient.PackageVersion, error) {
	version, err := h.versionInScope(c)
	if err != nil {
		return nil, err
	}
	if version.State != dbclient.VersionDraft {
		return nil, commonerrors.NewVersionImmutable(
			fmt.Sprintf("a %s version cannot be modified", version.State))
	}
	return version, nil
}
