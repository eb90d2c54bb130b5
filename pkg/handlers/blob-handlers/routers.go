/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package blob_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitBlobRouters(e *gin.Engine, h *Handler) {
	group := e.Group(fmt.Sprintf("/api/v1/repos/:%s/blobs", handlercommon.ParamRepo))
	{
		group.GET(fmt.Sprintf(":%s", handlercommon.ParamDigest), h.GetBlob)
	}
}
