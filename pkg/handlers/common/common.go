/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package common

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	apiutils "github.com/sremani/Artifortress-sub002/pkg/utils"
)

// Route parameter names shared by the handler packages.
const (
	ParamRepo     = "repo"
	ParamUploadId = "uploadId"
	ParamDigest   = "digest"
	ParamId       = "id"

	HeaderTenantSlug = "X-Tenant-Slug"
	HeaderActor      = "X-Actor"

	AnonymousActor = "anonymous"
)

var jsonContentType = "application/json; charset=utf-8"

type HandleFunc func(*gin.Context) (interface{}, error)

// Handle runs fn and renders either its response value or the unified error
// shape.
func Handle(c *gin.Context, fn HandleFunc) {
	rsp, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	// If a status was previously set, use that status in the response.
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	switch rspType := rsp.(type) {
	case []byte:
		c.Data(code, jsonContentType, rspType)
	case string:
		c.Data(code, jsonContentType, []byte(rspType))
	default:
		c.JSON(code, rspType)
	}
}

// GetBody reads and decodes the JSON request body into bodyStruct. Unknown
// fields are rejected so typos surface as 400s instead of silent defaults.
func GetBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if len(body) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(bodyStruct); err != nil {
		return body, commonerrors.NewBadRequest(err.Error())
	}
	return body, nil
}

// Actor returns the caller identity for audit rows. Authentication itself
// happens upstream of this service.
func Actor(c *gin.Context) string {
	if actor := c.GetHeader(HeaderActor); actor != "" {
		return actor
	}
	return AnonymousActor
}

// Scope is the resolved tenant and repository of a /repos/:repo request.
type Scope struct {
	Tenant *dbclient.Tenant
	Repo   *dbclient.Repository
}

// ResolveScope resolves the X-Tenant-Slug header and the :repo path parameter
// against the metadata store.
func ResolveScope(c *gin.Context, db dbclient.Interface) (*Scope, error) {
	slug := c.GetHeader(HeaderTenantSlug)
	if slug == "" {
		return nil, commonerrors.NewBadRequest("the X-Tenant-Slug header is required")
	}
	tenant, err := db.GetTenantBySlug(c.Request.Context(), slug)
	if err != nil {
		return nil, err
	}
	repoKey := c.Param(ParamRepo)
	repo, err := db.GetRepositoryByKey(c.Request.Context(), tenant.TenantId, repoKey)
	if err != nil {
		return nil, err
	}
	return &Scope{Tenant: tenant, Repo: repo}, nil
}
