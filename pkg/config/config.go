/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"github.com/spf13/viper"
)

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified file path.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// getIntInRange reads an int key and silently falls back to the default when
// the configured value is outside [min, max].
func getIntInRange(key string, defaultValue, min, max int) int {
	val := getInt(key, defaultValue)
	if val < min || val > max {
		return defaultValue
	}
	return val
}

// getPositiveInt reads an int key and silently falls back to the default when
// the configured value is not positive.
func getPositiveInt(key string, defaultValue int) int {
	val := getInt(key, defaultValue)
	if val <= 0 {
		return defaultValue
	}
	return val
}

// GetServerPort returns the API server port.
func GetServerPort() int {
	return getInt(serverPort, 0)
}

// IsHealthCheckEnabled returns whether health checks are enabled.
func IsHealthCheckEnabled() bool {
	return getBool(healthCheckEnable, true)
}

// IsTracingEnable returns whether OpenTelemetry tracing is enabled.
func IsTracingEnable() bool {
	return getBool(tracingEnable, false)
}

// GetTracingEndpoint returns the OTLP collector endpoint.
func GetTracingEndpoint() string {
	return getString(tracingEndpoint, "localhost:4317")
}

// db

func GetDBHost() string { return getString(dbHost, "") }

func GetDBPort() int { return getInt(dbPort, 5432) }

func GetDBName() string { return getString(dbName, "") }

func GetDBUser() string { return getString(dbUser, "") }

func GetDBPassword() string { return getString(dbPassword, "") }

func GetDBSslMode() string { return getString(dbSslMode, "disable") }

func GetDBMaxOpenConns() int { return getInt(dbMaxOpenConns, 20) }

func GetDBMaxIdleConns() int { return getInt(dbMaxIdleConns, 5) }

func GetDBMaxLifetimeSecond() int { return getInt(dbMaxLifetime, 1800) }

func GetDBMaxIdleTimeSecond() int { return getInt(dbMaxIdleTimeSecond, 600) }

func GetDBConnectTimeoutSecond() int { return getInt(dbConnectTimeoutSecond, 10) }

func GetDBRequestTimeoutSecond() int { return getInt(dbRequestTimeoutSecond, 30) }

// s3

func IsS3Enable() bool { return getBool(s3Enable, true) }

func GetS3Endpoint() string { return getString(s3Endpoint, "") }

func GetS3Region() string { return getString(s3Region, "us-east-1") }

func GetS3Bucket() string { return getString(s3Bucket, "") }

func GetS3AccessKey() string { return getString(s3AccessKey, "") }

func GetS3SecretKey() string { return getString(s3SecretKey, "") }

func IsS3ForcePathStyle() bool { return getBool(s3ForcePathStyle, true) }

// upload

// GetPresignTTLSecond returns the TTL for presigned part-upload URLs.
func GetPresignTTLSecond() int {
	return getIntInRange(uploadPresignTTLSecond, DefaultPresignTTLSecond, MinPresignTTLSecond, MaxPresignTTLSecond)
}

// GetSessionTTLSecond returns the default upload session lifetime.
func GetSessionTTLSecond() int {
	return getPositiveInt(uploadSessionTTLSecond, DefaultSessionTTLSecond)
}

// policy

// GetPolicyTimeoutMs returns the policy evaluation deadline in milliseconds.
func GetPolicyTimeoutMs() int {
	return getPositiveInt(policyTimeoutMs, DefaultPolicyTimeoutMs)
}

// lifecycle

// GetRetentionDays returns the default tombstone retention window in days.
func GetRetentionDays() int {
	return getIntInRange(lifecycleRetentionDays, DefaultRetentionDays, MinRetentionDays, MaxRetentionDays)
}

// GetGcGraceHours returns the default GC retention grace in hours.
func GetGcGraceHours() int {
	return getIntInRange(lifecycleGcGraceHours, DefaultGcGraceHours, MinGcGraceHours, MaxGcGraceHours)
}

// GetGcBatchSize returns the default GC batch size.
func GetGcBatchSize() int {
	return getIntInRange(lifecycleGcBatchSize, DefaultGcBatchSize, MinGcBatchSize, MaxGcBatchSize)
}

// worker

// GetWorkerPollSecond returns the sweep interval for the outbox dispatcher
// and the search worker.
func GetWorkerPollSecond() int {
	return getPositiveInt(workerPollSecond, DefaultWorkerPollSecond)
}

// GetWorkerBatchSize returns the claim batch size for sweepers.
func GetWorkerBatchSize() int {
	return getPositiveInt(workerBatchSize, DefaultWorkerBatchSize)
}

// GetSearchMaxAttempts returns the attempt budget for search index jobs.
func GetSearchMaxAttempts() int {
	return getPositiveInt(workerSearchMaxAttempts, DefaultSearchMaxAttempts)
}
