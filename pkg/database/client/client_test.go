/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

func TestPingNoDBConnection(t *testing.T) {
	c := &Client{}
	err := c.Ping(context.Background())
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestGetTenantNoDBConnection(t *testing.T) {
	c := &Client{}
	_, err := c.GetTenant(context.Background(), "tenant-1")
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestGetUploadSessionNoDBConnection(t *testing.T) {
	c := &Client{}
	_, err := c.GetUploadSession(context.Background(), "upload-1")
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestWithTxNoDBConnection(t *testing.T) {
	c := &Client{}
	err := c.WithTx(context.Background(), nil)
	assert.ErrorContains(t, err, "db has not been initialized")
}

func TestClaimOutboxEventsNoDBConnection(t *testing.T) {
	c := &Client{}
	_, err := c.ClaimOutboxEvents(context.Background(), nil, EventVersionPublished, time.Now(), time.Minute, 10)
	assert.ErrorContains(t, err, "claim requires a transaction")
}

func TestCheckParams(t *testing.T) {
	err := checkParams(&utils.DBConfig{})
	assert.ErrorContains(t, err, "dbname not found")
	assert.ErrorContains(t, err, "host not found")

	err = checkParams(&utils.DBConfig{
		DBName:   "artifortress",
		Username: "app",
		Password: "secret",
		Host:     "localhost",
		Port:     5432,
		SSLMode:  "disable",
	})
	assert.NilError(t, err)
}
