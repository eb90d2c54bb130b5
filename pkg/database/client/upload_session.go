/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TUploadSession = "upload_sessions"
)

var (
	insertUploadSessionFormat = `INSERT INTO ` + TUploadSession + ` (%s) VALUES (%s)`
	getUploadSessionCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE upload_id = $1 LIMIT 1`, TUploadSession)
	getUploadSessionLockCmd   = fmt.Sprintf(`SELECT * FROM %s WHERE upload_id = $1 LIMIT 1 FOR UPDATE`, TUploadSession)

	setSessionStateCmd = fmt.Sprintf(
		`UPDATE %s SET state = $2, updated_at = $3 WHERE upload_id = $1`, TUploadSession)
	setSessionCommittedCmd = fmt.Sprintf(
		`UPDATE %s SET state = '%s', committed_blob_digest = $2, updated_at = $3 WHERE upload_id = $1`,
		TUploadSession, SessionCommitted)
	setSessionAbortedCmd = fmt.Sprintf(
		`UPDATE %s SET state = '%s', aborted_reason = $2, updated_at = $3 WHERE upload_id = $1`,
		TUploadSession, SessionAborted)

	claimExpiredSessionsCmd = fmt.Sprintf(`SELECT * FROM %s
		WHERE state IN ('%s', '%s', '%s') AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		TUploadSession, SessionInitiated, SessionPartsUploading, SessionPendingCommit)
)

func (c *Client) InsertUploadSession(ctx context.Context, session *UploadSession) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*session, insertUploadSessionFormat, ""), session)
	if err != nil {
		klog.ErrorS(err, "failed to insert upload session", "id", session.UploadId)
	}
	return err
}

func (c *Client) GetUploadSession(ctx context.Context, uploadId string) (*UploadSession, error) {
	return c.getUploadSession(ctx, nil, getUploadSessionCmd, uploadId)
}

// GetUploadSessionForUpdate locks the session row for the duration of the
// caller's transaction.
func (c *Client) GetUploadSessionForUpdate(ctx context.Context, tx *sqlx.Tx, uploadId string) (*UploadSession, error) {
	return c.getUploadSession(ctx, tx, getUploadSessionLockCmd, uploadId)
}

func (c *Client) getUploadSession(ctx context.Context, q Queryer, cmd, uploadId string) (*UploadSession, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	var sessions []*UploadSession
	if err = q.SelectContext(ctx, &sessions, cmd, uploadId); err != nil {
		klog.ErrorS(err, "failed to select upload session", "id", uploadId)
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, commonerrors.NewNotFound("upload session", uploadId)
	}
	return sessions[0], nil
}

func (c *Client) SetUploadSessionState(ctx context.Context, q Queryer, uploadId, state string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, setSessionStateCmd, uploadId, state, time.Now().UTC()); err != nil {
		klog.ErrorS(err, "failed to update upload session state", "id", uploadId, "state", state)
		return err
	}
	return nil
}

func (c *Client) SetUploadSessionCommitted(ctx context.Context, q Queryer, uploadId, digest string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, setSessionCommittedCmd, uploadId, digest, time.Now().UTC()); err != nil {
		klog.ErrorS(err, "failed to mark upload session committed", "id", uploadId)
		return err
	}
	return nil
}

func (c *Client) SetUploadSessionAborted(ctx context.Context, q Queryer, uploadId, reason string) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	nullReason := dbutils.NullString(reason)
	if _, err = q.ExecContext(ctx, setSessionAbortedCmd, uploadId, nullReason, time.Now().UTC()); err != nil {
		klog.ErrorS(err, "failed to mark upload session aborted", "id", uploadId)
		return err
	}
	return nil
}

// ClaimExpiredUploadSessions locks up to limit expired active sessions inside
// the caller's transaction. Concurrent sweepers skip each other's rows.
func (c *Client) ClaimExpiredUploadSessions(ctx context.Context, tx *sqlx.Tx, now time.Time, limit int) ([]*UploadSession, error) {
	if tx == nil {
		return nil, commonerrors.NewInternalError("claim requires a transaction")
	}
	var sessions []*UploadSession
	if err := tx.SelectContext(ctx, &sessions, claimExpiredSessionsCmd, now, limit); err != nil {
		klog.ErrorS(err, "failed to claim expired upload sessions")
		return nil, err
	}
	return sessions, nil
}
