/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
)

const evaluationHistoryLimit = 20

type Handler struct {
	db   dbclient.Interface
	gate *policy.Gate
}

func NewHandler(db dbclient.Interface, gate *policy.Gate) *Handler {
	return &Handler{db: db, gate: gate}
}

func (h *Handler) RecordEvaluation(c *gin.Context) {
	handlercommon.Handle(c, h.recordEvaluation)
}

// recordEvaluation persists an externally-made policy decision for a version
// in the repository. A quarantine decision also places the hold, in the same
// transaction.
func (h *Handler) recordEvaluation(c *gin.Context) (interface{}, error) {
	scope, err := handlercommon.ResolveScope(c, h.db)
	if err != nil {
		return nil, err
	}
	req := &RecordEvaluationRequest{}
	if _, err = handlercommon.GetBody(c.Request, req); err != nil {
		return nil, err
	}
	if err = checkEvaluationParams(req); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	version, err := h.db.GetPackageVersion(ctx, nil, req.VersionId)
	if err != nil {
		return nil, err
	}
	if version.RepoId != scope.Repo.RepoId {
		return nil, commonerrors.NewNotFound("package version", req.VersionId)
	}

	input := &policy.Input{
		TenantId:    scope.Tenant.TenantId,
		RepoId:      scope.Repo.RepoId,
		VersionId:   req.VersionId,
		Action:      req.Action,
		RequestedBy: handlercommon.Actor(c),
	}
	decision := &policy.Decision{
		Decision: req.Decision,
		Reason:   req.Reason,
		Details:  req.Details,
	}
	if err = h.gate.Record(ctx, input, decision); err != nil {
		return nil, err
	}
	klog.InfoS("policy evaluation recorded", "versionId", req.VersionId, "decision", req.Decision)

	evaluations, err := h.db.SelectPolicyEvaluations(ctx, req.VersionId, evaluationHistoryLimit)
	if err != nil {
		return nil, err
	}
	rsp := &RecordEvaluationResponse{
		Recorded:    true,
		Quarantined: req.Decision == dbclient.DecisionQuarantine,
	}
	for _, eval := range evaluations {
		rsp.Evaluations = append(rsp.Evaluations, cvtToEvaluationItem(eval))
	}
	return rsp, nil
}

func checkEvaluationParams(req *RecordEvaluationRequest) error {
	if req.VersionId == "" {
		return commonerrors.NewBadRequest("versionId is required")
	}
	switch req.Action {
	case dbclient.ActionPublish, dbclient.ActionPromote:
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("action must be %s or %s",
			dbclient.ActionPublish, dbclient.ActionPromote))
	}
	switch req.Decision {
	case dbclient.DecisionAllow, dbclient.DecisionDeny, dbclient.DecisionQuarantine:
	default:
		return commonerrors.NewBadRequest(fmt.Sprintf("decision must be %s, %s or %s",
			dbclient.DecisionAllow, dbclient.DecisionDeny, dbclient.DecisionQuarantine))
	}
	return nil
}
