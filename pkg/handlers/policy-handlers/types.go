/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package policy_handlers

import (
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

type RecordEvaluationRequest struct {
	VersionId string `json:"versionId"`
	Action    string `json:"action"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
}

type EvaluationItem struct {
	VersionId   string `json:"versionId"`
	Action      string `json:"action"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason,omitempty"`
	Details     string `json:"details,omitempty"`
	EvaluatedBy string `json:"evaluatedBy"`
	EvaluatedAt string `json:"evaluatedAt,omitempty"`
}

type RecordEvaluationResponse struct {
	Recorded    bool             `json:"recorded"`
	Quarantined bool             `json:"quarantined"`
	Evaluations []EvaluationItem `json:"evaluations"`
}

func cvtToEvaluationItem(eval *dbclient.PolicyEvaluation) EvaluationItem {
	return EvaluationItem{
		VersionId:   eval.VersionId,
		Action:      eval.Action,
		Decision:    eval.Decision,
		Reason:      dbutils.ParseNullString(eval.Reason),
		Details:     dbutils.ParseNullString(eval.Details),
		EvaluatedBy: eval.EvaluatedBy,
		EvaluatedAt: dbutils.ParseNullTimeToString(eval.EvaluatedAt),
	}
}
