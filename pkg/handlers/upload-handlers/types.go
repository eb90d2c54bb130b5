/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload_handlers

import (
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

type CreateUploadRequest struct {
	ExpectedDigest string `json:"expectedDigest"`
	ExpectedLength int64  `json:"expectedLength"`
}

type UploadSessionResponse struct {
	UploadId       string `json:"uploadId"`
	RepoId         string `json:"repoId"`
	State          string `json:"state"`
	ExpectedDigest string `json:"expectedDigest"`
	ExpectedLength int64  `json:"expectedLength"`
	Deduped        bool   `json:"deduped"`
	BlobDigest     string `json:"blobDigest,omitempty"`
	AbortedReason  string `json:"abortedReason,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
}

type RequestPartRequest struct {
	PartNumber int32 `json:"partNumber"`
}

type RequestPartResponse struct {
	PartNumber      int32  `json:"partNumber"`
	Url             string `json:"url"`
	ExpiresInSecond int    `json:"expiresInSecond"`
}

type CompletedPartSpec struct {
	PartNumber int32  `json:"partNumber"`
	Etag       string `json:"etag"`
}

type CompleteUploadRequest struct {
	Parts []CompletedPartSpec `json:"parts"`
}

type AbortUploadRequest struct {
	Reason string `json:"reason"`
}

func cvtToSessionResponse(session *dbclient.UploadSession) *UploadSessionResponse {
	return &UploadSessionResponse{
		UploadId:       session.UploadId,
		RepoId:         session.RepoId,
		State:          session.State,
		ExpectedDigest: session.ExpectedDigest,
		ExpectedLength: session.ExpectedLength,
		Deduped:        session.Deduped,
		BlobDigest:     dbutils.ParseNullString(session.CommittedBlobDigest),
		AbortedReason:  dbutils.ParseNullString(session.AbortedReason),
		CreatedAt:      dbutils.ParseNullTimeToString(session.CreatedAt),
		ExpiresAt:      dbutils.ParseNullTimeToString(session.ExpiresAt),
	}
}
