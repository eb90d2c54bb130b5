/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload_handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
	"github.com/sremani/Artifortress-sub002/pkg/upload"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBackend struct {
	objects map[string][]byte
}

func (b *fakeBackend) BeginMultipart(ctx context.Context, key string) (string, error) {
	return "mpu-" + key, nil
}

func (b *fakeBackend) PresignPart(ctx context.Context, key, uploadId string, partNumber int32, ttl time.Duration) (string, error) {
	return "https://backend.test/" + key, nil
}

func (b *fakeBackend) CompleteMultipart(ctx context.Context, key, uploadId string, parts []s3.CompletedPart) (*s3.ObjectInfo, error) {
	return &s3.ObjectInfo{Length: int64(len(b.objects[key]))}, nil
}

func (b *fakeBackend) AbortMultipart(ctx context.Context, key, uploadId string) error { return nil }

func (b *fakeBackend) HeadObject(ctx context.Context, key string) (*s3.ObjectInfo, error) {
	return nil, s3.ErrNotFound
}

func (b *fakeBackend) GetObject(ctx context.Context, key, rangeSpec string) (*s3.GetObjectResult, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return &s3.GetObjectResult{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: int64(len(data))}, nil
}

func (b *fakeBackend) DeleteObject(ctx context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *fakeBackend) CheckAvailability(ctx context.Context) error { return nil }

var uploadContent = []byte("artifact payload")

func contentDigest() string {
	sum := sha256.Sum256(uploadContent)
	return hex.EncodeToString(sum[:])
}

func newFixture() (*fake.Client, *fakeBackend, *gin.Engine) {
	db := fake.NewClient()
	db.Tenants["t1"] = &dbclient.Tenant{TenantId: "t1", Slug: "acme"}
	db.Repos["r1"] = &dbclient.Repository{RepoId: "r1", TenantId: "t1", RepoKey: "maven-main"}
	db.Repos["r2"] = &dbclient.Repository{RepoId: "r2", TenantId: "t1", RepoKey: "npm-public"}
	backend := &fakeBackend{objects: map[string][]byte{}}

	engine := gin.New()
	InitUploadRouters(engine, NewHandler(db, upload.NewManager(db, backend)))
	return db, backend, engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	if body == nil {
		data = nil
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("X-Tenant-Slug", "acme")
	req.Header.Set("X-Actor", "alice")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestUploadLifecycle(t *testing.T) {
	db, backend, engine := newFixture()

	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/uploads", &CreateUploadRequest{
		ExpectedDigest: contentDigest(), ExpectedLength: int64(len(uploadContent)),
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	session := &UploadSessionResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), session))
	assert.Equal(t, session.State, dbclient.SessionInitiated)
	assert.Assert(t, !session.Deduped)

	base := "/api/v1/repos/maven-main/uploads/" + session.UploadId

	w = doJSON(engine, http.MethodGet, base, nil)
	assert.Equal(t, w.Code, http.StatusOK)

	w = doJSON(engine, http.MethodPost, base+"/parts", &RequestPartRequest{PartNumber: 1})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	part := &RequestPartResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), part))
	assert.Assert(t, part.Url != "")
	assert.Assert(t, part.ExpiresInSecond > 0)

	// Commit before complete conflicts.
	w = doJSON(engine, http.MethodPost, base+"/commit", nil)
	assert.Equal(t, w.Code, http.StatusConflict)

	stagingKey := db.SessionMust(session.UploadId).ObjectStagingKey.String
	backend.objects[stagingKey] = uploadContent
	w = doJSON(engine, http.MethodPost, base+"/complete", &CompleteUploadRequest{
		Parts: []CompletedPartSpec{{PartNumber: 1, Etag: "p1"}},
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())

	w = doJSON(engine, http.MethodPost, base+"/commit", nil)
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	committed := &UploadSessionResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), committed))
	assert.Equal(t, committed.State, dbclient.SessionCommitted)
	assert.Equal(t, committed.BlobDigest, contentDigest())
}

func TestUploadDedupe(t *testing.T) {
	db, _, engine := newFixture()
	db.Blobs[contentDigest()] = &dbclient.Blob{
		Digest: contentDigest(), LengthBytes: int64(len(uploadContent)), StorageKey: "k1",
	}

	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/uploads", &CreateUploadRequest{
		ExpectedDigest: contentDigest(), ExpectedLength: int64(len(uploadContent)),
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	session := &UploadSessionResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), session))
	assert.Equal(t, session.State, dbclient.SessionCommitted)
	assert.Assert(t, session.Deduped)
	assert.Equal(t, session.BlobDigest, contentDigest())
}

func TestUploadCreateValidation(t *testing.T) {
	_, _, engine := newFixture()
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/uploads", &CreateUploadRequest{
		ExpectedDigest: "short", ExpectedLength: 1,
	})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestUploadHiddenFromOtherRepo(t *testing.T) {
	_, _, engine := newFixture()
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/uploads", &CreateUploadRequest{
		ExpectedDigest: contentDigest(), ExpectedLength: int64(len(uploadContent)),
	})
	assert.Equal(t, w.Code, http.StatusOK)
	session := &UploadSessionResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), session))

	w = doJSON(engine, http.MethodGet, "/api/v1/repos/npm-public/uploads/"+session.UploadId, nil)
	assert.Equal(t, w.Code, http.StatusNotFound)
}

func TestUploadUnknownTenant(t *testing.T) {
	_, _, engine := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/maven-main/uploads", bytes.NewReader(nil))
	req.Header.Set("X-Tenant-Slug", "nobody")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, w.Code, http.StatusNotFound)
}
