/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"gotest.tools/assert"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NilError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClientWithDB(sqlx.NewDb(db, "sqlmock"), nil), mock
}

func TestClientClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NilError(t, err)
	mock.ExpectClose()

	c := NewClientWithDB(sqlx.NewDb(db, "sqlmock"), nil)
	c.Close()
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestGetBlobFound(t *testing.T) {
	c, mock := newMockClient(t)
	rows := sqlmock.NewRows([]string{"digest", "length_bytes", "storage_key", "object_etag", "created_at"}).
		AddRow("d1", int64(42), "repos/r1/blobs/u1", "etag", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(getBlobCmd)).WithArgs("d1").WillReturnRows(rows)

	blob, err := c.GetBlob(context.Background(), nil, "d1")
	assert.NilError(t, err)
	assert.Equal(t, blob.Digest, "d1")
	assert.Equal(t, blob.LengthBytes, int64(42))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestGetBlobNotFound(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectQuery(regexp.QuoteMeta(getBlobCmd)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"digest"}))

	_, err := c.GetBlob(context.Background(), nil, "missing")
	assert.Assert(t, commonerrors.IsNotFound(err))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestUpsertBlobIsConflictSafe(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO blobs .* ON CONFLICT \(digest\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := c.UpsertBlob(context.Background(), nil, &Blob{Digest: "d1", LengthBytes: 1, StorageKey: "k"})
	assert.NilError(t, err)
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestDeleteBlob(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteBlobCmd)).WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NilError(t, c.DeleteBlob(context.Background(), "d1"))
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestCountBlobs(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM blobs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	cnt, err := c.CountBlobs(context.Background(), nil)
	assert.NilError(t, err)
	assert.Equal(t, cnt, 7)
	assert.NilError(t, mock.ExpectationsWereMet())
}

func TestMarkOutboxDelivered(t *testing.T) {
	c, mock := newMockClient(t)
	now := time.Now()
	mock.ExpectExec(`UPDATE outbox_events SET delivered_at`).WithArgs("ev1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NilError(t, c.MarkOutboxDelivered(context.Background(), nil, "ev1", now))
	assert.NilError(t, mock.ExpectationsWereMet())
}
