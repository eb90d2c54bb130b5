/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

const (
	TAuditLog = "audit_logs"
)

var (
	insertAuditLogFormat = `INSERT INTO ` + TAuditLog + ` (%s) VALUES (%s)`
	selectAuditLogsCmd   = fmt.Sprintf(
		`SELECT * FROM %s WHERE action = $1 ORDER BY occurred_at DESC LIMIT $2`, TAuditLog)
)

// InsertAuditLog appends one audit record, inside the caller's transaction
// when q is a transaction.
func (c *Client) InsertAuditLog(ctx context.Context, q Queryer, log *AuditLog) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*log, insertAuditLogFormat, "id"), log)
	if err != nil {
		klog.ErrorS(err, "failed to insert audit log", "action", log.Action)
	}
	return err
}

// BatchInsertAuditLogs flushes buffered boundary audit records. Best effort:
// a failure drops the batch after logging.
func (c *Client) BatchInsertAuditLogs(ctx context.Context, logs []*AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*logs[0], insertAuditLogFormat, "id"), logs)
	if err != nil {
		klog.ErrorS(err, "failed to batch insert audit logs", "count", len(logs))
	}
	return err
}

func (c *Client) SelectAuditLogsByAction(ctx context.Context, action string, limit int) ([]*AuditLog, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var logs []*AuditLog
	if err = db.SelectContext(ctx, &logs, selectAuditLogsCmd, action, limit); err != nil {
		klog.ErrorS(err, "failed to select audit logs", "action", action)
		return nil, err
	}
	return logs, nil
}
