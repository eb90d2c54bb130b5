/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	backoffutil "github.com/cenkalti/backoff/v4"
	"k8s.io/utils/ptr"
)

const DefaultTimeout = 180

// ErrNotFound is returned by DeleteObject and HeadObject when the key does
// not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// Client encapsulates S3 configuration and the AWS S3 client. It implements
// Interface against any S3-compatible object store.
type Client struct {
	*Config
	s3Client  *s3.Client
	presigner *s3.PresignClient
}

// NewClient creates and returns a new Client instance using system-wide S3
// settings.
func NewClient(ctx context.Context) (Interface, error) {
	config, err := NewConfig()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(ctx, config)
}

// NewClientFromConfig creates and returns a new Client instance using config.
func NewClientFromConfig(ctx context.Context, config *Config) (Interface, error) {
	s3Client := s3.NewFromConfig(config.Config, func(o *s3.Options) {
		o.UsePathStyle = config.ForcePathStyle
	})
	cli := &Client{
		Config:    config,
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
	}
	if err := cli.CheckAvailability(ctx); err != nil {
		return nil, err
	}
	return cli, nil
}

// CheckAvailability verifies the bucket exists and is reachable.
func (c *Client) CheckAvailability(ctx context.Context) error {
	input := &s3.HeadBucketInput{
		Bucket: c.Bucket,
	}
	timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	if _, err := c.s3Client.HeadBucket(timeoutCtx, input); err != nil {
		return err
	}
	return nil
}

// BeginMultipart starts a multipart upload for the key and returns the
// backend upload id.
func (c *Client) BeginMultipart(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("please init client first")
	}
	timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.s3Client.CreateMultipartUpload(timeoutCtx, &s3.CreateMultipartUploadInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return *resp.UploadId, nil
}

// PresignPart returns a short-TTL presigned URL the client PUTs part bytes
// to. The core never proxies part bytes.
func (c *Client) PresignPart(ctx context.Context, key, uploadId string, partNumber int32, ttl time.Duration) (string, error) {
	if c == nil {
		return "", fmt.Errorf("please init client first")
	}
	resp, err := c.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     c.Bucket,
		Key:        aws.String(key),
		UploadId:   aws.String(uploadId),
		PartNumber: ptr.To(partNumber),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// CompleteMultipart completes a multipart upload and returns the committed
// object's length and etag.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadId string, parts []CompletedPart) (*ObjectInfo, error) {
	if c == nil {
		return nil, fmt.Errorf("please init client first")
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no completed parts provided")
	}
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: ptr.To(part.PartNumber),
			ETag:       aws.String(part.ETag),
		})
	}
	timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.s3Client.CompleteMultipartUpload(timeoutCtx, &s3.CompleteMultipartUploadInput{
		Bucket:          c.Bucket,
		Key:             aws.String(key),
		UploadId:        aws.String(uploadId),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return nil, err
	}
	head, err := c.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	etag := head.ETag
	if resp.ETag != nil {
		etag = *resp.ETag
	}
	return &ObjectInfo{Length: head.Length, ETag: etag}, nil
}

// AbortMultipart cancels a multipart upload. Best effort and idempotent:
// NoSuchUpload is not an error.
func (c *Client) AbortMultipart(ctx context.Context, key, uploadId string) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	_, err := c.s3Client.AbortMultipartUpload(timeoutCtx, &s3.AbortMultipartUploadInput{
		Bucket:   c.Bucket,
		Key:      aws.String(key),
		UploadId: aws.String(uploadId),
	})
	if err != nil {
		var noSuchUpload *types.NoSuchUpload
		if errors.As(err, &noSuchUpload) {
			return nil
		}
		return err
	}
	return nil
}

// HeadObject returns object length and etag, or ErrNotFound.
func (c *Client) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	if c == nil {
		return nil, fmt.Errorf("please init client first")
	}
	timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.s3Client.HeadObject(timeoutCtx, &s3.HeadObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info := &ObjectInfo{}
	if resp.ContentLength != nil {
		info.Length = *resp.ContentLength
	}
	if resp.ETag != nil {
		info.ETag = *resp.ETag
	}
	return info, nil
}

// GetObject streams an object, optionally with a single byte range. The
// caller must close the returned Body.
func (c *Client) GetObject(ctx context.Context, key, rangeSpec string) (*GetObjectResult, error) {
	if c == nil {
		return nil, fmt.Errorf("please init client first")
	}
	input := &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	}
	if rangeSpec != "" {
		input.Range = aws.String(rangeSpec)
	}
	resp, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	result := &GetObjectResult{Body: resp.Body}
	if resp.ContentLength != nil {
		result.ContentLength = *resp.ContentLength
	}
	if resp.ContentRange != nil {
		result.ContentRange = *resp.ContentRange
	}
	if resp.ETag != nil {
		result.ETag = *resp.ETag
	}
	return result, nil
}

// DeleteObject deletes a key, retrying transient failures with exponential
// backoff. A missing key yields ErrNotFound distinctly.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("please init client first")
	}
	if key == "" {
		return fmt.Errorf("the object key is empty")
	}
	op := func() error {
		timeoutCtx, cancel := withOptionalTimeout(ctx, DefaultTimeout)
		defer cancel()
		_, err := c.s3Client.DeleteObject(timeoutCtx, &s3.DeleteObjectInput{
			Bucket: c.Bucket,
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				return backoffutil.Permanent(ErrNotFound)
			}
			return err
		}
		return nil
	}
	if err := backoffutil.Retry(op, newDeleteBackoff()); err != nil {
		var permanent *backoffutil.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return err
	}
	return nil
}

func newDeleteBackoff() backoffutil.BackOff {
	b := backoffutil.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// isNotFound reports whether the SDK error means the key is absent.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// withOptionalTimeout adds an optional timeout (seconds) to the context.
func withOptionalTimeout(parent context.Context, timeout int64) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, time.Duration(timeout)*time.Second)
}
