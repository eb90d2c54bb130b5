/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"testing"

	"gotest.tools/assert"
)

func TestDefaultsWithoutConfig(t *testing.T) {
	assert.Equal(t, GetSessionTTLSecond(), DefaultSessionTTLSecond)
	assert.Equal(t, GetPolicyTimeoutMs(), DefaultPolicyTimeoutMs)
	assert.Equal(t, GetWorkerPollSecond(), DefaultWorkerPollSecond)
	assert.Equal(t, GetWorkerBatchSize(), DefaultWorkerBatchSize)
	assert.Equal(t, GetSearchMaxAttempts(), DefaultSearchMaxAttempts)
	assert.Equal(t, GetServerPort(), 0)
	assert.Assert(t, IsHealthCheckEnabled())
	assert.Assert(t, !IsTracingEnable())
}

func TestPresignTTLRange(t *testing.T) {
	SetValue("upload.presign_ttl_second", 10)
	assert.Equal(t, GetPresignTTLSecond(), DefaultPresignTTLSecond)

	SetValue("upload.presign_ttl_second", 600)
	assert.Equal(t, GetPresignTTLSecond(), 600)

	SetValue("upload.presign_ttl_second", MaxPresignTTLSecond+1)
	assert.Equal(t, GetPresignTTLSecond(), DefaultPresignTTLSecond)
}

func TestRetentionDaysRange(t *testing.T) {
	SetValue("lifecycle.retention_days", 0)
	assert.Equal(t, GetRetentionDays(), DefaultRetentionDays)

	SetValue("lifecycle.retention_days", 90)
	assert.Equal(t, GetRetentionDays(), 90)
}

func TestGcTunablesRange(t *testing.T) {
	SetValue("lifecycle.gc_grace_hours", MaxGcGraceHours+1)
	assert.Equal(t, GetGcGraceHours(), DefaultGcGraceHours)

	SetValue("lifecycle.gc_grace_hours", 0)
	assert.Equal(t, GetGcGraceHours(), 0)

	SetValue("lifecycle.gc_batch_size", 0)
	assert.Equal(t, GetGcBatchSize(), DefaultGcBatchSize)

	SetValue("lifecycle.gc_batch_size", 500)
	assert.Equal(t, GetGcBatchSize(), 500)
}

func TestPositiveIntFallback(t *testing.T) {
	SetValue("worker.poll_second", -5)
	assert.Equal(t, GetWorkerPollSecond(), DefaultWorkerPollSecond)

	SetValue("worker.poll_second", 10)
	assert.Equal(t, GetWorkerPollSecond(), 10)
}
