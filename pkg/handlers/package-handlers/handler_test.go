/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package package_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	"github.com/sremani/Artifortress-sub002/pkg/lifecycle"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
	"github.com/sremani/Artifortress-sub002/pkg/publish"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDigest = strings.Repeat("ab", 32)

func newFixture() (*fake.Client, *gin.Engine) {
	db := fake.NewClient()
	db.Tenants["t1"] = &dbclient.Tenant{TenantId: "t1", Slug: "acme"}
	db.Repos["r1"] = &dbclient.Repository{RepoId: "r1", TenantId: "t1", RepoKey: "maven-main"}
	db.Repos["r2"] = &dbclient.Repository{RepoId: "r2", TenantId: "t1", RepoKey: "npm-public"}
	db.Blobs[testDigest] = &dbclient.Blob{Digest: testDigest, LengthBytes: 4, StorageKey: "k1"}

	engine := gin.New()
	h := NewHandler(db, publish.NewEngine(db, policy.NewGate(db, nil)), lifecycle.NewEngine(db, nil))
	InitPackageRouters(engine, h)
	return db, engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Tenant-Slug", "acme")
	req.Header.Set("X-Actor", "alice")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func createDraft(t *testing.T, engine *gin.Engine) *VersionResponse {
	t.Helper()
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/packages/versions/drafts", &CreateDraftRequest{
		PackageType: "maven", Namespace: "com.acme", Name: "demo", Version: "1.0.0",
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	version := &VersionResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), version))
	return version
}

func TestDraftLifecycle(t *testing.T) {
	db, engine := newFixture()
	version := createDraft(t, engine)
	assert.Equal(t, version.State, dbclient.VersionDraft)
	assert.Equal(t, version.CreatedBy, "alice")

	base := "/api/v1/repos/maven-main/packages/versions/" + version.VersionId

	w := doJSON(engine, http.MethodPost, base+"/entries", &AddEntryRequest{
		RelativePath: "demo-1.0.0.jar", BlobDigest: testDigest, SizeBytes: 4,
	})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())

	w = doJSON(engine, http.MethodPut, base+"/manifest", &PutManifestRequest{ManifestJson: `{"name":"demo"}`})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	manifest := &ManifestResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), manifest))
	assert.Equal(t, manifest.PackageType, "maven")

	w = doJSON(engine, http.MethodPost, base+"/publish", nil)
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	result := &publish.Result{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), result))
	assert.Equal(t, result.State, dbclient.VersionPublished)
	assert.Assert(t, result.EventEmitted)

	// Published versions refuse further mutation.
	w = doJSON(engine, http.MethodPost, base+"/entries", &AddEntryRequest{
		RelativePath: "extra.jar", BlobDigest: testDigest, SizeBytes: 4,
	})
	assert.Equal(t, w.Code, http.StatusConflict)

	w = doJSON(engine, http.MethodPost, base+"/tombstone", &TombstoneRequest{Reason: "superseded"})
	assert.Equal(t, w.Code, http.StatusOK, w.Body.String())
	tombstone := &TombstoneResponse{}
	assert.NilError(t, json.Unmarshal(w.Body.Bytes(), tombstone))
	assert.Equal(t, tombstone.DeletedBy, "alice")
	assert.Assert(t, tombstone.RetentionUntil != "")

	stored, err := db.GetPackageVersion(context.Background(), nil, version.VersionId)
	assert.NilError(t, err)
	assert.Equal(t, stored.State, dbclient.VersionTombstoned)
}

func TestCreateDraftValidation(t *testing.T) {
	_, engine := newFixture()
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/packages/versions/drafts", &CreateDraftRequest{
		PackageType: "maven",
	})
	assert.Equal(t, w.Code, http.StatusBadRequest)
	assert.Assert(t, strings.Contains(w.Body.String(), "name is required"))
	assert.Assert(t, strings.Contains(w.Body.String(), "version is required"))
}

func TestCreateDraftRejectsUnknownFields(t *testing.T) {
	_, engine := newFixture()
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/packages/versions/drafts", map[string]string{
		"packageType": "maven", "name": "demo", "version": "1.0.0", "flavor": "crunchy",
	})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestDuplicateDraftConflicts(t *testing.T) {
	_, engine := newFixture()
	createDraft(t, engine)
	w := doJSON(engine, http.MethodPost, "/api/v1/repos/maven-main/packages/versions/drafts", &CreateDraftRequest{
		PackageType: "maven", Namespace: "com.acme", Name: "demo", Version: "1.0.0",
	})
	assert.Equal(t, w.Code, http.StatusConflict)
}

func TestAddEntryUnknownBlob(t *testing.T) {
	_, engine := newFixture()
	version := createDraft(t, engine)
	w := doJSON(engine, http.MethodPost,
		"/api/v1/repos/maven-main/packages/versions/"+version.VersionId+"/entries",
		&AddEntryRequest{RelativePath: "a.jar", BlobDigest: strings.Repeat("cd", 32), SizeBytes: 4})
	assert.Equal(t, w.Code, http.StatusNotFound)
}

func TestPutManifestRejectsInvalidJson(t *testing.T) {
	_, engine := newFixture()
	version := createDraft(t, engine)
	w := doJSON(engine, http.MethodPut,
		"/api/v1/repos/maven-main/packages/versions/"+version.VersionId+"/manifest",
		&PutManifestRequest{ManifestJson: "{not json"})
	assert.Equal(t, w.Code, http.StatusBadRequest)
}

func TestVersionHiddenFromOtherRepo(t *testing.T) {
	_, engine := newFixture()
	version := createDraft(t, engine)
	w := doJSON(engine, http.MethodGet,
		"/api/v1/repos/npm-public/packages/versions/"+version.VersionId+"/manifest", nil)
	assert.Equal(t, w.Code, http.StatusNotFound)
}
