/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitUploadRouters(e *gin.Engine, h *Handler) {
	group := e.Group(fmt.Sprintf("/api/v1/repos/:%s/uploads", handlercommon.ParamRepo))
	{
		group.POST("", h.CreateUpload)
		group.GET(fmt.Sprintf(":%s", handlercommon.ParamUploadId), h.GetUpload)
		group.POST(fmt.Sprintf(":%s/parts", handlercommon.ParamUploadId), h.RequestPart)
		group.POST(fmt.Sprintf(":%s/complete", handlercommon.ParamUploadId), h.CompleteUpload)
		group.POST(fmt.Sprintf(":%s/commit", handlercommon.ParamUploadId), h.CommitUpload)
		group.POST(fmt.Sprintf(":%s/abort", handlercommon.ParamUploadId), h.AbortUpload)
	}
}
