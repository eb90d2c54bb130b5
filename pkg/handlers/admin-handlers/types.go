/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package admin_handlers

import (
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

type CreateGcRunRequest struct {
	Mode                string `json:"mode"`
	RetentionGraceHours int    `json:"retentionGraceHours"`
	BatchSize           int    `json:"batchSize"`
	TenantId            string `json:"tenantId"`
}

type GcRunResponse struct {
	RunId               string `json:"runId"`
	TenantId            string `json:"tenantId,omitempty"`
	InitiatedBy         string `json:"initiatedBy"`
	Mode                string `json:"mode"`
	RetentionGraceHours int    `json:"retentionGraceHours"`
	BatchSize           int    `json:"batchSize"`
	StartedAt           string `json:"startedAt,omitempty"`
	CompletedAt         string `json:"completedAt,omitempty"`
	MarkedCount         int    `json:"markedCount"`
	CandidateBlobCount  int    `json:"candidateBlobCount"`
	DeletedBlobCount    int    `json:"deletedBlobCount"`
	DeletedVersionCount int    `json:"deletedVersionCount"`
	DeleteErrorCount    int    `json:"deleteErrorCount"`
}

type ListGcRunsResponse struct {
	Items []GcRunResponse `json:"items"`
}

func cvtToGcRunResponse(run *dbclient.GcRun) *GcRunResponse {
	return &GcRunResponse{
		RunId:               run.RunId,
		TenantId:            dbutils.ParseNullString(run.TenantId),
		InitiatedBy:         run.InitiatedBy,
		Mode:                run.Mode,
		RetentionGraceHours: run.RetentionGraceHours,
		BatchSize:           run.BatchSize,
		StartedAt:           dbutils.ParseNullTimeToString(run.StartedAt),
		CompletedAt:         dbutils.ParseNullTimeToString(run.CompletedAt),
		MarkedCount:         run.MarkedCount,
		CandidateBlobCount:  run.CandidateBlobCount,
		DeletedBlobCount:    run.DeletedBlobCount,
		DeletedVersionCount: run.DeletedVersionCount,
		DeleteErrorCount:    run.DeleteErrorCount,
	}
}
