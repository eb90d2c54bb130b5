/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
)

// VerifyResult is the outcome of streaming a committed object through sha256.
type VerifyResult struct {
	Matched      bool
	ActualDigest string
	ActualLength int64
	ETag         string
}

// verifyObject streams the full object and hashes every byte. Backend-side
// checksums are multipart ETags and cannot stand in for the content digest.
func verifyObject(ctx context.Context, backend s3.Interface, key, expectedDigest string, expectedLength int64) (*VerifyResult, error) {
	obj, err := backend.GetObject(ctx, key, "")
	if err != nil {
		if err == s3.ErrNotFound {
			return nil, commonerrors.NewConflict(commonerrors.UploadSessionConflict,
				"the uploaded object is missing from the backend")
		}
		klog.ErrorS(err, "failed to read object for verification", "key", key)
		return nil, commonerrors.NewServiceUnavailable("object backend unavailable")
	}
	defer obj.Body.Close()

	hasher := sha256.New()
	length, err := io.Copy(hasher, obj.Body)
	if err != nil {
		klog.ErrorS(err, "failed to stream object for verification", "key", key)
		return nil, commonerrors.NewServiceUnavailable("object backend unavailable")
	}
	actual := hex.EncodeToString(hasher.Sum(nil))
	return &VerifyResult{
		Matched:      actual == expectedDigest && length == expectedLength,
		ActualDigest: actual,
		ActualLength: length,
		ETag:         obj.ETag,
	}, nil
}
