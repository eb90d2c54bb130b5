/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package admin_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitAdminRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/api/v1/admin")
	{
		group.POST("gc/runs", h.CreateGcRun)
		group.GET("gc/runs", h.ListGcRuns)
		group.GET(fmt.Sprintf("gc/runs/:%s", handlercommon.ParamId), h.GetGcRun)
		group.GET("reconcile/blobs", h.ReconcileBlobs)
	}
}
