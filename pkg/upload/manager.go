/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package upload

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
)

const (
	ActionCommitted          = "upload.committed"
	ActionVerificationFailed = "upload.commit.verification_failed"
)

var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IsValidDigest reports whether s is a lower-hex sha256 digest.
func IsValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}

// CreateRequest carries the parameters of a new upload session.
type CreateRequest struct {
	TenantId       string
	RepoId         string
	ExpectedDigest string
	ExpectedLength int64
	CreatedBy      string
}

// Manager drives the upload session state machine against the metadata store
// and the object backend.
type Manager struct {
	db      dbclient.Interface
	backend s3.Interface
}

func NewManager(db dbclient.Interface, backend s3.Interface) *Manager {
	return &Manager{db: db, backend: backend}
}

// Create opens an upload session. When the expected digest already has a blob
// row the session is born committed and no object write happens.
func (m *Manager) Create(ctx context.Context, req *CreateRequest) (*dbclient.UploadSession, error) {
	if !IsValidDigest(req.ExpectedDigest) {
		return nil, commonerrors.NewBadRequest("expected_digest must be 64 lowercase hex characters")
	}
	if req.ExpectedLength <= 0 {
		return nil, commonerrors.NewBadRequest("expected_length must be positive")
	}

	now := time.Now().UTC()
	session := &dbclient.UploadSession{
		UploadId:       uuid.NewString(),
		TenantId:       req.TenantId,
		RepoId:         req.RepoId,
		ExpectedDigest: req.ExpectedDigest,
		ExpectedLength: req.ExpectedLength,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      dbutils.NullTime(now),
		UpdatedAt:      dbutils.NullTime(now),
		ExpiresAt:      dbutils.NullTime(now.Add(time.Duration(commonconfig.GetSessionTTLSecond()) * time.Second)),
	}

	blob, err := m.db.GetBlob(ctx, nil, req.ExpectedDigest)
	if err != nil && !commonerrors.IsNotFound(err) {
		return nil, err
	}
	if blob != nil {
		session.State = dbclient.SessionCommitted
		session.Deduped = true
		session.CommittedBlobDigest = dbutils.NullString(blob.Digest)
		if err = m.db.InsertUploadSession(ctx, session); err != nil {
			return nil, err
		}
		klog.InfoS("upload session deduped on existing blob", "uploadId", session.UploadId, "digest", blob.Digest)
		return session, nil
	}

	objectKey := fmt.Sprintf("repos/%s/blobs/%s", req.RepoId, session.UploadId)
	uploadId, err := m.backend.BeginMultipart(ctx, objectKey)
	if err != nil {
		klog.ErrorS(err, "failed to begin multipart upload", "key", objectKey)
		return nil, commonerrors.NewServiceUnavailable("object backend unavailable")
	}
	session.State = dbclient.SessionInitiated
	session.ObjectStagingKey = dbutils.NullString(objectKey)
	session.StorageUploadId = dbutils.NullString(uploadId)
	if err = m.db.InsertUploadSession(ctx, session); err != nil {
		// The orphan multipart upload is cleaned up best effort.
		_ = m.backend.AbortMultipart(ctx, objectKey, uploadId)
		return nil, err
	}
	return session, nil
}

// Get returns the session for state polling.
func (m *Manager) Get(ctx context.Context, uploadId string) (*dbclient.UploadSession, error) {
	return m.db.GetUploadSession(ctx, uploadId)
}

// RequestPart issues a short-TTL presigned URL for one part.
func (m *Manager) RequestPart(ctx context.Context, uploadId string, partNumber int32) (string, error) {
	if partNumber <= 0 {
		return "", commonerrors.NewBadRequest("part number must be positive")
	}
	session, err := m.db.GetUploadSession(ctx, uploadId)
	if err != nil {
		return "", err
	}
	if err = checkActive(session, dbclient.SessionInitiated, dbclient.SessionPartsUploading); err != nil {
		return "", err
	}
	if session.State == dbclient.SessionInitiated {
		if err = m.db.SetUploadSessionState(ctx, nil, uploadId, dbclient.SessionPartsUploading); err != nil {
			return "", err
		}
	}
	ttl := time.Duration(commonconfig.GetPresignTTLSecond()) * time.Second
	url, err := m.backend.PresignPart(ctx, session.ObjectStagingKey.String, session.StorageUploadId.String, partNumber, ttl)
	if err != nil {
		klog.ErrorS(err, "failed to presign part", "uploadId", uploadId, "part", partNumber)
		return "", commonerrors.NewServiceUnavailable("object backend unavailable")
	}
	return url, nil
}

// Complete acknowledges all uploaded parts and completes the multipart upload.
func (m *Manager) Complete(ctx context.Context, uploadId string, parts []s3.CompletedPart) error {
	if len(parts) == 0 {
		return commonerrors.NewBadRequest("at least one completed part is required")
	}
	session, err := m.db.GetUploadSession(ctx, uploadId)
	if err != nil {
		return err
	}
	if err = checkActive(session, dbclient.SessionPartsUploading); err != nil {
		return err
	}
	if _, err = m.backend.CompleteMultipart(ctx, session.ObjectStagingKey.String, session.StorageUploadId.String, parts); err != nil {
		klog.ErrorS(err, "failed to complete multipart upload", "uploadId", uploadId)
		return commonerrors.NewServiceUnavailable("object backend unavailable")
	}
	return m.db.SetUploadSessionState(ctx, nil, uploadId, dbclient.SessionPendingCommit)
}

// Commit verifies the committed object against the expected digest and length
// and, on success, upserts the blob row, links the session and co-commits
// audit and outbox records. A mismatch aborts the session.
func (m *Manager) Commit(ctx context.Context, uploadId string) (*dbclient.UploadSession, error) {
	session, err := m.db.GetUploadSession(ctx, uploadId)
	if err != nil {
		return nil, err
	}
	if session.State == dbclient.SessionCommitted {
		return session, nil
	}
	if err = checkActive(session, dbclient.SessionPendingCommit); err != nil {
		return nil, err
	}

	objectKey := session.ObjectStagingKey.String
	result, err := verifyObject(ctx, m.backend, objectKey, session.ExpectedDigest, session.ExpectedLength)
	if err != nil {
		return nil, err
	}
	if !result.Matched {
		reason := fmt.Sprintf("digest or length mismatch: got %s (%d bytes), expected %s (%d bytes)",
			result.ActualDigest, result.ActualLength, session.ExpectedDigest, session.ExpectedLength)
		err = m.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := m.db.SetUploadSessionAborted(ctx, tx, uploadId, commonerrors.UploadVerificationFailed); err != nil {
				return err
			}
			return m.db.InsertAuditLog(ctx, tx, &dbclient.AuditLog{
				TenantId:     dbutils.NullString(session.TenantId),
				Actor:        session.CreatedBy,
				Action:       ActionVerificationFailed,
				ResourceType: "upload_session",
				ResourceId:   uploadId,
				Details:      dbutils.NullString(fmt.Sprintf(`{"reason":%q}`, reason)),
				OccurredAt:   dbutils.NullTime(time.Now().UTC()),
			})
		})
		if err != nil {
			return nil, err
		}
		if delErr := m.backend.DeleteObject(ctx, objectKey); delErr != nil && delErr != s3.ErrNotFound {
			klog.ErrorS(delErr, "failed to delete staging object", "key", objectKey)
		}
		return nil, commonerrors.NewUploadVerificationFailed(reason)
	}

	now := time.Now().UTC()
	err = m.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		blob := &dbclient.Blob{
			Digest:      session.ExpectedDigest,
			LengthBytes: session.ExpectedLength,
			StorageKey:  objectKey,
			ObjectEtag:  dbutils.NullString(result.ETag),
			CreatedAt:   dbutils.NullTime(now),
		}
		if err := m.db.UpsertBlob(ctx, tx, blob); err != nil {
			return err
		}
		if err := m.db.SetUploadSessionCommitted(ctx, tx, uploadId, session.ExpectedDigest); err != nil {
			return err
		}
		if err := m.db.InsertAuditLog(ctx, tx, &dbclient.AuditLog{
			TenantId:     dbutils.NullString(session.TenantId),
			Actor:        session.CreatedBy,
			Action:       ActionCommitted,
			ResourceType: "upload_session",
			ResourceId:   uploadId,
			Details:      dbutils.NullString(fmt.Sprintf(`{"digest":%q}`, session.ExpectedDigest)),
			OccurredAt:   dbutils.NullTime(now),
		}); err != nil {
			return err
		}
		return m.db.InsertOutboxEvent(ctx, tx, &dbclient.OutboxEvent{
			EventId:       uuid.NewString(),
			TenantId:      session.TenantId,
			AggregateType: dbclient.AggregateUploadSession,
			AggregateId:   uploadId,
			EventType:     dbclient.EventUploadCommitted,
			Payload:       fmt.Sprintf(`{"uploadId":%q,"digest":%q}`, uploadId, session.ExpectedDigest),
			OccurredAt:    dbutils.NullTime(now),
			AvailableAt:   dbutils.NullTime(now),
		})
	})
	if err != nil {
		return nil, err
	}
	return m.db.GetUploadSession(ctx, uploadId)
}

// Abort cancels an active session. The multipart abort is best effort.
func (m *Manager) Abort(ctx context.Context, uploadId, reason string) error {
	session, err := m.db.GetUploadSession(ctx, uploadId)
	if err != nil {
		return err
	}
	if session.State == dbclient.SessionAborted {
		return nil
	}
	if session.State == dbclient.SessionCommitted {
		return commonerrors.NewConflict(commonerrors.UploadSessionConflict,
			"a committed upload session cannot be aborted")
	}
	m.abortMultipart(ctx, session)
	if reason == "" {
		reason = "aborted by client"
	}
	return m.db.SetUploadSessionAborted(ctx, nil, uploadId, reason)
}

// SweepExpired transitions expired active sessions to aborted and aborts
// their multipart uploads best effort. Returns the number of sessions swept.
func (m *Manager) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	var expired []*dbclient.UploadSession
	err := m.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions, err := m.db.ClaimExpiredUploadSessions(ctx, tx, now, limit)
		if err != nil {
			return err
		}
		for _, session := range sessions {
			if err = m.db.SetUploadSessionAborted(ctx, tx, session.UploadId, "session expired"); err != nil {
				return err
			}
		}
		expired = sessions
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, session := range expired {
		m.abortMultipart(ctx, session)
	}
	if len(expired) > 0 {
		klog.InfoS("swept expired upload sessions", "count", len(expired))
	}
	return len(expired), nil
}

func (m *Manager) abortMultipart(ctx context.Context, session *dbclient.UploadSession) {
	if !session.ObjectStagingKey.Valid || !session.StorageUploadId.Valid {
		return
	}
	if err := m.backend.AbortMultipart(ctx, session.ObjectStagingKey.String, session.StorageUploadId.String); err != nil {
		klog.ErrorS(err, "failed to abort multipart upload", "uploadId", session.UploadId)
	}
}

// checkActive verifies the session is in one of the allowed states and has
// not expired.
func checkActive(session *dbclient.UploadSession, allowed ...string) error {
	for _, state := range allowed {
		if session.State == state {
			if session.ExpiresAt.Valid && !time.Now().UTC().Before(session.ExpiresAt.Time) {
				return commonerrors.NewConflict(commonerrors.UploadSessionExpired,
					"the upload session has expired; create a new session")
			}
			return nil
		}
	}
	return commonerrors.NewConflict(commonerrors.UploadSessionConflict,
		fmt.Sprintf("operation not allowed in session state %s", session.State))
}
