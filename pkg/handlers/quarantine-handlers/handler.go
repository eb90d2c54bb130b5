/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package quarantine_handlers

import (
	"fmt"
	"strconv"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Handler struct {
	db dbclient.Interface
}

func NewHandler(db dbclient.Interface) *Handler {
	return &Handler{db: db}
}

func (h *Handler) ListQuarantine(c *gin.Context) {
	handlercommon.Handle(c, h.listQuarantine)
}

func (h *Handler) GetQuarantine(c *gin.Context) {
	handlercommon.Handle(c, h.getQuarantine)
}

func (h *Handler) ReleaseQuarantine(c *gin.Context) {
	handlercommon.Handle(c, func(c *gin.Context) (interface{}, error) {
		return h.resolve(c, dbclient.QuarantineReleased)
	})
}

func (h *Handler) RejectQuarantine(c *gin.Context) {
	handlercommon.Handle(c, func(c *gin.Context) (interface{}, error) {
		return h.resolve(c, dbclient.QuarantineRejected)
	})
}

func (h *Handler) listQuarantine(c *gin.Context) (interface{}, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	query := sqrl.And{sqrl.Eq{
		"tenant_id": scope.Tenant.TenantId,
		"repo_id":   scope.Repo.RepoId,
	}}
	if status := c.Query("status"); status != "" {
		switch status {
		case dbclient.QuarantineQuarantined, dbclient.QuarantineReleased, dbclient.QuarantineRejected:
			query = append(query, sqrl.Eq{"status": status})
		default:
			return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown quarantine status %q", status))
		}
	}
	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntQuery(c, "offset", 0)

	items, err := h.db.SelectQuarantineItems(c.Request.Context(), query,
		[]string{dbclient.CreatedTime + " " + dbclient.DESC}, limit, offset)
	if err != nil {
		return nil, err
	}
	rsp := &ListQuarantineResponse{Items: make([]QuarantineItemResponse, 0, len(items))}
	for _, item := range items {
		rsp.Items = append(rsp.Items, *cvtToQuarantineResponse(item))
	}
	return rsp, nil
}

func (h *Handler) getQuarantine(c *gin.Context) (interface{}, error) {
	item, err := h.itemInScope(c)
	if err != nil {
		return nil, err
	}
	return cvtToQuarantineResponse(item), nil
}

// resolve releases or rejects a hold. Only an active hold can be resolved;
// resolving twice is a deterministic conflict.
func (h *Handler) resolve(c *gin.Context, status string) (interface{}, error) {
	item, err := h.itemInScope(c)
	if err != nil {
		return nil, err
	}
	if item.Status != dbclient.QuarantineQuarantined {
		return nil, commonerrors.NewAlreadyExist(
			fmt.Sprintf("the quarantine item is already %s", item.Status))
	}
	actor := handlercommon.Actor(c)
	if err = h.db.SetQuarantineResolution(c.Request.Context(), item.Id, status, actor); err != nil {
		return nil, err
	}
	klog.InfoS("quarantine resolved", "id", item.Id, "status", status, "by", actor)
	resolved, err := h.db.GetQuarantineItem(c.Request.Context(), item.Id)
	if err != nil {
		return nil, err
	}
	return cvtToQuarantineResponse(resolved), nil
}

func (h *Handler) itemInScope(c *gin.Context) (*dbclient.QuarantineItem, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	id := c.Param(handlercommon.ParamId)
	item, err := h.db.GetQuarantineItem(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if item.RepoId != scope.Repo.RepoId {
		return nil, commonerrors.NewNotFound("quarantine item", id)
	}
	return item, nil
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return defaultValue
	}
	return val
}
