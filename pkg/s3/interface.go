/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"io"
	"time"
)

// CompletedPart identifies one uploaded part when completing a multipart
// upload.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// ObjectInfo describes the committed object returned by Head/Complete calls.
type ObjectInfo struct {
	Length int64
	ETag   string
}

// GetObjectResult is a streamed object read. The caller owns Body and must
// close it.
type GetObjectResult struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentRange  string
	ETag          string
}

// Interface is the object-backend capability set consumed by the core:
// multipart upload control, presigned part URLs, ranged reads and deletes.
// Bytes under a key are never mutated once the multipart upload completes.
type Interface interface {
	BeginMultipart(ctx context.Context, key string) (string, error)
	PresignPart(ctx context.Context, key, uploadId string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadId string, parts []CompletedPart) (*ObjectInfo, error)
	AbortMultipart(ctx context.Context, key, uploadId string) error

	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)
	// GetObject reads an object, optionally with a single byte range in
	// RFC 7233 form ("bytes=a-b"); rangeSpec may be empty for a full read.
	GetObject(ctx context.Context, key, rangeSpec string) (*GetObjectResult, error)
	// DeleteObject removes a key. A missing key yields ErrNotFound; other
	// errors propagate.
	DeleteObject(ctx context.Context, key string) error

	CheckAvailability(ctx context.Context) error
}
