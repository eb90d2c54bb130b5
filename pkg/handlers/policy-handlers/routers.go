/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitPolicyRouters(e *gin.Engine, h *Handler) {
	group := e.Group(fmt.Sprintf("/api/v1/repos/:%s/policy", handlercommon.ParamRepo))
	{
		group.POST("evaluations", h.RecordEvaluation)
	}
}
