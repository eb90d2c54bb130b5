/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package quarantine_handlers

import (
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

type QuarantineItemResponse struct {
	Id         string `json:"id"`
	RepoId     string `json:"repoId"`
	VersionId  string `json:"versionId"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	ResolvedBy string `json:"resolvedBy,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

type ListQuarantineResponse struct {
	Items []QuarantineItemResponse `json:"items"`
}

func cvtToQuarantineResponse(item *dbclient.QuarantineItem) *QuarantineItemResponse {
	return &QuarantineItemResponse{
		Id:         item.Id,
		RepoId:     item.RepoId,
		VersionId:  item.VersionId,
		Status:     item.Status,
		Reason:     dbutils.ParseNullString(item.Reason),
		ResolvedBy: dbutils.ParseNullString(item.ResolvedBy),
		CreatedAt:  dbutils.ParseNullTimeToString(item.CreatedAt),
		UpdatedAt:  dbutils.ParseNullTimeToString(item.UpdatedAt),
	}
}
