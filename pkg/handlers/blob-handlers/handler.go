/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob_handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
	"github.com/sremani/Artifortress-sub002/pkg/upload"
	apiutils "github.com/sremani/Artifortress-sub002/pkg/utils"
)

const binaryContentType = "application/octet-stream"

type Handler struct {
	db      dbclient.Interface
	backend s3.Interface
}

func NewHandler(db dbclient.Interface, backend s3.Interface) *Handler {
	return &Handler{db: db, backend: backend}
}

// GetBlob streams blob bytes, honoring a single-range Range header. Digests
// referenced by a quarantined or rejected version in the repository are
// locked with 423 until the hold is released.
func (h *Handler) GetBlob(c *gin.Context) {
	blob, err := h.resolveBlob(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}

	byteRange, err := ParseRange(c.GetHeader("Range"), blob.LengthBytes)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", blob.LengthBytes))
		apiutils.AbortWithApiError(c, err)
		return
	}
	rangeSpec := ""
	if byteRange != nil {
		rangeSpec = byteRange.Spec()
	}

	object, err := h.backend.GetObject(c.Request.Context(), blob.StorageKey, rangeSpec)
	if err != nil {
		if err == s3.ErrNotFound {
			// Metadata says the blob exists; the object store disagrees.
			// The reconciler reports these as missing refs.
			klog.ErrorS(nil, "blob object missing from backend", "digest", blob.Digest, "key", blob.StorageKey)
			apiutils.AbortWithApiError(c, commonerrors.NewInternalError("blob object is missing from storage"))
			return
		}
		apiutils.AbortWithApiError(c, commonerrors.NewServiceUnavailable("object backend unavailable"))
		return
	}
	defer object.Body.Close()

	c.Header("Content-Type", binaryContentType)
	c.Header("Accept-Ranges", "bytes")
	c.Header("X-Checksum-Sha256", blob.Digest)
	if byteRange != nil {
		c.Header("Content-Range", byteRange.ContentRange(blob.LengthBytes))
		c.Header("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
		c.Status(http.StatusPartialContent)
	} else {
		c.Header("Content-Length", strconv.FormatInt(blob.LengthBytes, 10))
		c.Status(http.StatusOK)
	}
	if _, err = io.Copy(c.Writer, object.Body); err != nil {
		klog.ErrorS(err, "blob stream interrupted", "digest", blob.Digest)
	}
}

func (h *Handler) resolveBlob(c *gin.Context) (*dbclient.Blob, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	digest := c.Param(handlercommon.ParamDigest)
	if !upload.IsValidDigest(digest) {
		return nil, commonerrors.NewBadRequest("digest must be 64 lowercase hex characters")
	}
	blob, err := h.db.GetBlob(c.Request.Context(), nil, digest)
	if err != nil {
		return nil, err
	}
	blocked, err := h.db.IsDigestBlocked(c.Request.Context(), scope.Repo.RepoId, digest)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, commonerrors.NewQuarantinedBlob("the blob is referenced by a quarantined version")
	}
	return blob, nil
}
