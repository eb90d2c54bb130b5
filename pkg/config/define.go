/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix = "server."
	serverPort   = serverPrefix + "port"

	// health_check
	healthCheckPrefix = "health_check."
	healthCheckEnable = healthCheckPrefix + "enable"

	// tracing
	tracingPrefix   = "tracing."
	tracingEnable   = tracingPrefix + "enable"
	tracingEndpoint = tracingPrefix + "endpoint"

	// db
	dbPrefix               = "db."
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbName                 = dbPrefix + "name"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// s3
	s3Prefix         = "s3."
	s3Enable         = s3Prefix + "enable"
	s3Endpoint       = s3Prefix + "endpoint"
	s3Region         = s3Prefix + "region"
	s3Bucket         = s3Prefix + "bucket"
	s3AccessKey      = s3Prefix + "access_key"
	s3SecretKey      = s3Prefix + "secret_key"
	s3ForcePathStyle = s3Prefix + "force_path_style"

	// upload
	uploadPrefix           = "upload."
	uploadPresignTTLSecond = uploadPrefix + "presign_ttl_second"
	uploadSessionTTLSecond = uploadPrefix + "session_ttl_second"

	// policy
	policyPrefix    = "policy."
	policyTimeoutMs = policyPrefix + "timeout_ms"

	// lifecycle
	lifecyclePrefix        = "lifecycle."
	lifecycleRetentionDays = lifecyclePrefix + "retention_days"
	lifecycleGcGraceHours  = lifecyclePrefix + "gc_grace_hours"
	lifecycleGcBatchSize   = lifecyclePrefix + "gc_batch_size"

	// worker
	workerPrefix            = "worker."
	workerPollSecond        = workerPrefix + "poll_second"
	workerBatchSize         = workerPrefix + "batch_size"
	workerSearchMaxAttempts = workerPrefix + "search_max_attempts"
)

// Defaults and accepted ranges for tunables. Out-of-range values fall back to
// the default silently; persisted values are additionally guarded by schema
// CHECK constraints.
const (
	DefaultPresignTTLSecond = 900
	MinPresignTTLSecond     = 60
	MaxPresignTTLSecond     = 3600

	DefaultSessionTTLSecond = 3600

	DefaultPolicyTimeoutMs = 250

	DefaultRetentionDays = 30
	MinRetentionDays     = 1
	MaxRetentionDays     = 3650

	DefaultGcGraceHours = 24
	MinGcGraceHours     = 0
	MaxGcGraceHours     = 8760

	DefaultGcBatchSize = 200
	MinGcBatchSize     = 1
	MaxGcBatchSize     = 5000

	DefaultWorkerPollSecond  = 30
	DefaultWorkerBatchSize   = 100
	DefaultSearchMaxAttempts = 5
)
