/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package quarantine_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitQuarantineRouters(e *gin.Engine, h *Handler) {
	group := e.Group(fmt.Sprintf("/api/v1/repos/:%s/quarantine", handlercommon.ParamRepo))
	{
		group.GET("", h.ListQuarantine)
		group.GET(fmt.Sprintf(":%s", handlercommon.ParamId), h.GetQuarantine)
		group.POST(fmt.Sprintf(":%s/release", handlercommon.ParamId), h.ReleaseQuarantine)
		group.POST(fmt.Sprintf(":%s/reject", handlercommon.ParamId), h.RejectQuarantine)
	}
}
