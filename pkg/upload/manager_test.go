/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"
	"time"

	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
)

type fakeBackend struct {
	objects     map[string][]byte
	begun       int
	aborted     int
	deletedKeys []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string][]byte{}}
}

func (b *fakeBackend) BeginMultipart(ctx context.Context, key string) (string, error) {
	b.begun++
	return "mpu-" + key, nil
}

func (b *fakeBackend) PresignPart(ctx context.Context, key, uploadId string, partNumber int32, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://backend.test/%s?part=%d", key, partNumber), nil
}

func (b *fakeBackend) CompleteMultipart(ctx context.Context, key, uploadId string, parts []s3.CompletedPart) (*s3.ObjectInfo, error) {
	data := b.objects[key]
	return &s3.ObjectInfo{Length: int64(len(data)), ETag: "etag-" + key}, nil
}

func (b *fakeBackend) AbortMultipart(ctx context.Context, key, uploadId string) error {
	b.aborted++
	return nil
}

func (b *fakeBackend) HeadObject(ctx context.Context, key string) (*s3.ObjectInfo, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return &s3.ObjectInfo{Length: int64(len(data)), ETag: "etag-" + key}, nil
}

func (b *fakeBackend) GetObject(ctx context.Context, key, rangeSpec string) (*s3.GetObjectResult, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return &s3.GetObjectResult{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		ETag:          "etag-" + key,
	}, nil
}

func (b *fakeBackend) DeleteObject(ctx context.Context, key string) error {
	if _, ok := b.objects[key]; !ok {
		return s3.ErrNotFound
	}
	delete(b.objects, key)
	b.deletedKeys = append(b.deletedKeys, key)
	return nil
}

func (b *fakeBackend) CheckAvailability(ctx context.Context) error { return nil }

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestIsValidDigest(t *testing.T) {
	assert.Assert(t, IsValidDigest(digestOf([]byte("hello"))))
	assert.Assert(t, !IsValidDigest(""))
	assert.Assert(t, !IsValidDigest("abc123"))
	assert.Assert(t, !IsValidDigest("G3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"))
	assert.Assert(t, !IsValidDigest("E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"))
}

func TestCreateRejectsBadInput(t *testing.T) {
	m := NewManager(fake.NewClient(), newFakeBackend())
	_, err := m.Create(context.Background(), &CreateRequest{ExpectedDigest: "nope", ExpectedLength: 10})
	assert.Assert(t, commonerrors.IsBadRequest(err))

	_, err = m.Create(context.Background(), &CreateRequest{ExpectedDigest: digestOf([]byte("x")), ExpectedLength: 0})
	assert.Assert(t, commonerrors.IsBadRequest(err))
}

func TestCreateDedupesOnExistingBlob(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	content := []byte("already stored")
	digest := digestOf(content)
	db.Blobs[digest] = &dbclient.Blob{Digest: digest, LengthBytes: int64(len(content)), StorageKey: "repos/r1/blobs/u0"}

	m := NewManager(db, backend)
	session, err := m.Create(context.Background(), &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digest,
		ExpectedLength: int64(len(content)), CreatedBy: "alice",
	})
	assert.NilError(t, err)
	assert.Equal(t, session.State, dbclient.SessionCommitted)
	assert.Assert(t, session.Deduped)
	assert.Equal(t, session.CommittedBlobDigest.String, digest)
	assert.Equal(t, backend.begun, 0)
}

func TestCreateBeginsMultipart(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)

	session, err := m.Create(context.Background(), &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digestOf([]byte("new content")),
		ExpectedLength: 11, CreatedBy: "alice",
	})
	assert.NilError(t, err)
	assert.Equal(t, session.State, dbclient.SessionInitiated)
	assert.Assert(t, !session.Deduped)
	assert.Equal(t, session.ObjectStagingKey.String, fmt.Sprintf("repos/r1/blobs/%s", session.UploadId))
	assert.Equal(t, backend.begun, 1)
}

func TestRequestPartTransitionsState(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)
	ctx := context.Background()

	session, err := m.Create(ctx, &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digestOf([]byte("abc")),
		ExpectedLength: 3, CreatedBy: "alice",
	})
	assert.NilError(t, err)

	_, err = m.RequestPart(ctx, session.UploadId, 0)
	assert.Assert(t, commonerrors.IsBadRequest(err))

	url, err := m.RequestPart(ctx, session.UploadId, 1)
	assert.NilError(t, err)
	assert.Assert(t, url != "")
	assert.Equal(t, db.SessionMust(session.UploadId).State, dbclient.SessionPartsUploading)
}

func TestCommitSuccess(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)
	ctx := context.Background()

	content := []byte("the artifact bytes")
	session, err := m.Create(ctx, &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digestOf(content),
		ExpectedLength: int64(len(content)), CreatedBy: "alice",
	})
	assert.NilError(t, err)

	_, err = m.RequestPart(ctx, session.UploadId, 1)
	assert.NilError(t, err)
	backend.objects[session.ObjectStagingKey.String] = content
	err = m.Complete(ctx, session.UploadId, []s3.CompletedPart{{PartNumber: 1, ETag: "p1"}})
	assert.NilError(t, err)
	assert.Equal(t, db.SessionMust(session.UploadId).State, dbclient.SessionPendingCommit)

	committed, err := m.Commit(ctx, session.UploadId)
	assert.NilError(t, err)
	assert.Equal(t, committed.State, dbclient.SessionCommitted)
	assert.Equal(t, committed.CommittedBlobDigest.String, digestOf(content))

	blob, err := db.GetBlob(ctx, nil, digestOf(content))
	assert.NilError(t, err)
	assert.Equal(t, blob.LengthBytes, int64(len(content)))
	assert.Equal(t, blob.StorageKey, session.ObjectStagingKey.String)

	has, err := db.HasOutboxEvent(ctx, nil, dbclient.AggregateUploadSession, session.UploadId, dbclient.EventUploadCommitted)
	assert.NilError(t, err)
	assert.Assert(t, has)

	logs, err := db.SelectAuditLogsByAction(ctx, ActionCommitted, 10)
	assert.NilError(t, err)
	assert.Equal(t, len(logs), 1)

	// Re-committing a committed session is a no-op.
	again, err := m.Commit(ctx, session.UploadId)
	assert.NilError(t, err)
	assert.Equal(t, again.State, dbclient.SessionCommitted)
}

func TestCommitVerificationMismatch(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)
	ctx := context.Background()

	expected := []byte("expected bytes")
	session, err := m.Create(ctx, &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digestOf(expected),
		ExpectedLength: int64(len(expected)), CreatedBy: "alice",
	})
	assert.NilError(t, err)

	_, err = m.RequestPart(ctx, session.UploadId, 1)
	assert.NilError(t, err)
	backend.objects[session.ObjectStagingKey.String] = []byte("tampered bytes!")
	err = m.Complete(ctx, session.UploadId, []s3.CompletedPart{{PartNumber: 1, ETag: "p1"}})
	assert.NilError(t, err)

	_, err = m.Commit(ctx, session.UploadId)
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.UploadVerificationFailed))

	stored := db.SessionMust(session.UploadId)
	assert.Equal(t, stored.State, dbclient.SessionAborted)
	assert.Equal(t, stored.AbortedReason.String, commonerrors.UploadVerificationFailed)
	assert.Equal(t, len(backend.deletedKeys), 1)

	logs, err := db.SelectAuditLogsByAction(ctx, ActionVerificationFailed, 10)
	assert.NilError(t, err)
	assert.Equal(t, len(logs), 1)

	if _, err = db.GetBlob(ctx, nil, digestOf(expected)); !commonerrors.IsNotFound(err) {
		t.Fatalf("no blob row may exist after a failed verification, got %v", err)
	}
}

func TestAbort(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)
	ctx := context.Background()

	session, err := m.Create(ctx, &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digestOf([]byte("abc")),
		ExpectedLength: 3, CreatedBy: "alice",
	})
	assert.NilError(t, err)

	assert.NilError(t, m.Abort(ctx, session.UploadId, "client gave up"))
	stored := db.SessionMust(session.UploadId)
	assert.Equal(t, stored.State, dbclient.SessionAborted)
	assert.Equal(t, stored.AbortedReason.String, "client gave up")
	assert.Equal(t, backend.aborted, 1)

	// Aborting an aborted session stays idempotent.
	assert.NilError(t, m.Abort(ctx, session.UploadId, "again"))
}

func TestAbortCommittedConflicts(t *testing.T) {
	db := fake.NewClient()
	content := []byte("stored")
	digest := digestOf(content)
	db.Blobs[digest] = &dbclient.Blob{Digest: digest, LengthBytes: int64(len(content)), StorageKey: "k"}
	m := NewManager(db, newFakeBackend())
	ctx := context.Background()

	session, err := m.Create(ctx, &CreateRequest{
		TenantId: "t1", RepoId: "r1", ExpectedDigest: digest,
		ExpectedLength: int64(len(content)), CreatedBy: "alice",
	})
	assert.NilError(t, err)
	assert.Equal(t, session.State, dbclient.SessionCommitted)

	err = m.Abort(ctx, session.UploadId, "too late")
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.UploadSessionConflict))
}

func TestSweepExpired(t *testing.T) {
	db := fake.NewClient()
	backend := newFakeBackend()
	m := NewManager(db, backend)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	db.Sessions["expired"] = &dbclient.UploadSession{
		UploadId: "expired", TenantId: "t1", RepoId: "r1",
		State:            dbclient.SessionPartsUploading,
		ObjectStagingKey: dbutils.NullString("repos/r1/blobs/expired"),
		StorageUploadId:  dbutils.NullString("mpu-1"),
		ExpiresAt:        dbutils.NullTime(past),
	}
	db.Sessions["active"] = &dbclient.UploadSession{
		UploadId: "active", TenantId: "t1", RepoId: "r1",
		State:     dbclient.SessionInitiated,
		ExpiresAt: dbutils.NullTime(time.Now().UTC().Add(time.Hour)),
	}

	swept, err := m.SweepExpired(ctx, time.Now().UTC(), 10)
	assert.NilError(t, err)
	assert.Equal(t, swept, 1)
	assert.Equal(t, db.SessionMust("expired").State, dbclient.SessionAborted)
	assert.Equal(t, db.SessionMust("active").State, dbclient.SessionInitiated)
	assert.Equal(t, backend.aborted, 1)
}

func TestCheckActive(t *testing.T) {
	future := dbutils.NullTime(time.Now().UTC().Add(time.Hour))
	session := &dbclient.UploadSession{State: dbclient.SessionInitiated, ExpiresAt: future}
	assert.NilError(t, checkActive(session, dbclient.SessionInitiated, dbclient.SessionPartsUploading))

	err := checkActive(session, dbclient.SessionPendingCommit)
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.UploadSessionConflict))

	session.ExpiresAt = dbutils.NullTime(time.Now().UTC().Add(-time.Minute))
	err = checkActive(session, dbclient.SessionInitiated)
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.UploadSessionExpired))
}
