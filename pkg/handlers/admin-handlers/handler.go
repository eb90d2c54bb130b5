/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package admin_handlers

import (
	"strconv"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
	"github.com/sremani/Artifortress-sub002/pkg/lifecycle"
	"github.com/sremani/Artifortress-sub002/pkg/reconcile"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Handler struct {
	db        dbclient.Interface
	lifecycle *lifecycle.Engine
	checker   *reconcile.Checker
}

func NewHandler(db dbclient.Interface, lc *lifecycle.Engine, checker *reconcile.Checker) *Handler {
	return &Handler{db: db, lifecycle: lc, checker: checker}
}

func (h *Handler) CreateGcRun(c *gin.Context) {
	handlercommon.Handle(c, h.createGcRun)
}

func (h *Handler) ListGcRuns(c *gin.Context) {
	handlercommon.Handle(c, h.listGcRuns)
}

func (h *Handler) GetGcRun(c *gin.Context) {
	handlercommon.Handle(c, h.getGcRun)
}

func (h *Handler) ReconcileBlobs(c *gin.Context) {
	handlercommon.Handle(c, h.reconcileBlobs)
}

// createGcRun starts a collection synchronously and returns the finished run
// with its counters. Dry runs mark and count without deleting anything.
func (h *Handler) createGcRun(c *gin.Context) (interface{}, error) {
	req := &CreateGcRunRequest{}
	if _, err := handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	run, err := h.lifecycle.RunGc(c.Request.Context(), &lifecycle.GcRequest{
		Mode:                req.Mode,
		RetentionGraceHours: req.RetentionGraceHours,
		BatchSize:           req.BatchSize,
		InitiatedBy:         handlercommon.Actor(c),
		TenantId:            req.TenantId,
	})
	if err != nil {
		return nil, err
	}
	return cvtToGcRunResponse(run), nil
}

func (h *Handler) listGcRuns(c *gin.Context) (interface{}, error) {
	query := sqrl.And{}
	if mode := c.Query("mode"); mode != "" {
		query = append(query, sqrl.Eq{"mode": mode})
	}
	if tenantId := c.Query("tenantId"); tenantId != "" {
		query = append(query, sqrl.Eq{"tenant_id": tenantId})
	}
	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntQuery(c, "offset", 0)

	runs, err := h.db.SelectGcRuns(c.Request.Context(), query,
		[]string{"started_at " + dbclient.DESC}, limit, offset)
	if err != nil {
		return nil, err
	}
	rsp := &ListGcRunsResponse{Items: make([]GcRunResponse, 0, len(runs))}
	for _, run := range runs {
		rsp.Items = append(rsp.Items, *cvtToGcRunResponse(run))
	}
	return rsp, nil
}

func (h *Handler) getGcRun(c *gin.Context) (interface{}, error) {
	run, err := h.db.GetGcRun(c.Request.Context(), c.Param(handlercommon.ParamId))
	if err != nil {
		return nil, err
	}
	return cvtToGcRunResponse(run), nil
}

func (h *Handler) reconcileBlobs(c *gin.Context) (interface{}, error) {
	limit := parseIntQuery(c, "limit", 0)
	return h.checker.Check(c.Request.Context(), handlercommon.Actor(c), limit)
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
