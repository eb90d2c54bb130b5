/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload_handlers

import (
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
	"github.com/sremani/Artifortress-sub002/pkg/upload"
)

type Handler struct {
	db      dbclient.Interface
	manager *upload.Manager
}

func NewHandler(db dbclient.Interface, manager *upload.Manager) *Handler {
	return &Handler{db: db, manager: manager}
}

func (h *Handler) CreateUpload(c *gin.Context) {
	handlercommon.Handle(c, h.createUpload)
}

func (h *Handler) GetUpload(c *gin.Context) {
	handlercommon.Handle(c, h.getUpload)
}

func (h *Handler) RequestPart(c *gin.Context) {
	handlercommon.Handle(c, h.requestPart)
}

func (h *Handler) CompleteUpload(c *gin.Context) {
	handlercommon.Handle(c, h.completeUpload)
}

func (h *Handler) CommitUpload(c *gin.Context) {
	handlercommon.Handle(c, h.commitUpload)
}

func (h *Handler) AbortUpload(c *gin.Context) {
	handlercommon.Handle(c, h.abortUpload)
}

func (h *Handler) createUpload(c *gin.Context) (interface{}, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	req := &CreateUploadRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	session, err := h.manager.Create(c.Request.Context(), &upload.CreateRequest{
		TenantId:       scope.Tenant.TenantId,
		RepoId:         scope.Repo.RepoId,
		ExpectedDigest: req.ExpectedDigest,
		ExpectedLength: req.ExpectedLength,
		CreatedBy:      handlercommon.Actor(c),
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("created upload session %s in repo %s", session.UploadId, scope.Repo.RepoKey)
	return cvtToSessionResponse(session), nil
}

func (h *Handler) getUpload(c *gin.Context) (interface{}, error) {
	session, err := h.sessionInScope(c)
	if err != nil {
		return nil, err
	}
	return cvtToSessionResponse(session), nil
}

func (h *Handler) requestPart(c *gin.Context) (interface{}, error) {
	session, err := h.sessionInScope(c)
	if err != nil {
		return nil, err
	}
	req := &RequestPartRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	url, err := h.manager.RequestPart(c.Request.Context(), session.UploadId, req.PartNumber)
	if err != nil {
		return nil, err
	}
	return &RequestPartResponse{
		PartNumber:      req.PartNumber,
		Url:             url,
		ExpiresInSecond: commonconfig.GetPresignTTLSecond(),
	}, nil
}

func (h *Handler) completeUpload(c *gin.Context) (interface{}, error) {
	session, err := h.sessionInScope(c)
	if err != nil {
		return nil, err
	}
	req := &CompleteUploadRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	parts := make([]s3.CompletedPart, 0, len(req.Parts))
	for _, part := range req.Parts {
		parts = append(parts, s3.CompletedPart{PartNumber: part.PartNumber, ETag: part.Etag})
	}
	if err = h.manager.Complete(c.Request.Context(), session.UploadId, parts); err != nil {
		return nil, err
	}
	return h.refreshed(c, session.UploadId)
}

func (h *Handler) commitUpload(c *gin.Context) (interface{}, error) {
	session, err := h.sessionInScope(c)
	if err != nil {
		return nil, err
	}
	committed, err := h.manager.Commit(c.Request.Context(), session.UploadId)
	if err != nil {
		return nil, err
	}
	return cvtToSessionResponse(committed), nil
}

func (h *Handler) abortUpload(c *gin.Context) (interface{}, error) {
	session, err := h.sessionInScope(c)
	if err != nil {
		return nil, err
	}
	req := &AbortUploadRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	if err = h.manager.Abort(c.Request.Context(), session.UploadId, req.Reason); err != nil {
		return nil, err
	}
	return h.refreshed(c, session.UploadId)
}

// sessionInScope loads the session and verifies it belongs to the request's
// repository. Sessions of other repos resolve as not found.
func (h *Handler) sessionInScope(c *gin.Context) (*dbclient.UploadSession, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	uploadId := c.Param(handlercommon.ParamUploadId)
	session, err := h.manager.Get(c.Request.Context(), uploadId)
	if err != nil {
		return nil, err
	}
	if session.RepoId != scope.Repo.RepoId {
		return nil, commonerrors.NewNotFound("upload session", uploadId)
	}
	return session, nil
}

func (h *Handler) refreshed(c *gin.Context, uploadId string) (interface{}, error) {
	session, err := h.manager.Get(c.Request.Context(), uploadId)
	if err != nil {
		return nil, err
	}
	return cvtToSessionResponse(session), nil
}
