/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package package_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

func InitPackageRouters(e *gin.Engine, h *Handler) {
	group := e.Group(fmt.Sprintf("/api/v1/repos/:%s/packages/versions", handlercommon.ParamRepo))
	{
		group.POST("drafts", h.CreateDraft)
		group.POST(fmt.Sprintf(":%s/entries", handlercommon.ParamId), h.AddEntry)
		group.PUT(fmt.Sprintf(":%s/manifest", handlercommon.ParamId), h.PutManifest)
		group.GET(fmt.Sprintf(":%s/manifest", handlercommon.ParamId), h.GetManifest)
		group.POST(fmt.Sprintf(":%s/publish", handlercommon.ParamId), h.PublishVersion)
		group.POST(fmt.Sprintf(":%s/tombstone", handlercommon.ParamId), h.TombstoneVersion)
	}
}
