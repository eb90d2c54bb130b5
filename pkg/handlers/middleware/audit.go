/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	handlercommon "github.com/sremani/Artifortress-sub002/pkg/handlers/common"
)

const (
	// auditBufferSize is the capacity of the audit log buffer channel
	auditBufferSize = 1000
	// auditBatchSize is the number of logs to batch before writing
	auditBatchSize = 50
	// auditFlushInterval is the interval to flush audit logs even if batch is not full
	auditFlushInterval = 5 * time.Second
)

// auditLogBuffer batches request audit rows so the hot path never waits on
// the database.
type auditLogBuffer struct {
	ch     chan *dbclient.AuditLog
	client dbclient.Interface
	once   sync.Once
}

var auditBuffer *auditLogBuffer

func initAuditBuffer(client dbclient.Interface) *auditLogBuffer {
	buf := &auditLogBuffer{
		ch:     make(chan *dbclient.AuditLog, auditBufferSize),
		client: client,
	}
	buf.once.Do(func() {
		go buf.flushWorker()
	})
	return buf
}

// send adds an audit log to the buffer, returns false if the buffer is full.
func (b *auditLogBuffer) send(log *dbclient.AuditLog) bool {
	select {
	case b.ch <- log:
		return true
	default:
		klog.InfoS("audit log buffer full, dropping log", "action", log.Action, "resourceId", log.ResourceId)
		return false
	}
}

func (b *auditLogBuffer) flushWorker() {
	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]*dbclient.AuditLog, 0, auditBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.writeBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case log, ok := <-b.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, log)
			if len(batch) >= auditBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (b *auditLogBuffer) writeBatch(batch []*dbclient.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.client.BatchInsertAuditLogs(ctx, batch); err != nil {
		klog.ErrorS(err, "failed to flush audit logs", "count", len(batch))
		return
	}
	klog.V(4).Infof("flushed %d audit logs to database", len(batch))
}

// AuditLog records every write request (POST, PUT, PATCH, DELETE) into
// audit_logs through a buffered background writer. The engines additionally
// write their own transactional audit rows for domain events.
func AuditLog(client dbclient.Interface) gin.HandlerFunc {
	if auditBuffer == nil {
		auditBuffer = initAuditBuffer(client)
	}
	return func(c *gin.Context) {
		if !isWriteOperation(c.Request.Method) {
			c.Next()
			return
		}
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		resourceType, resourceId := extractResourceInfo(c.Request.URL.Path)
		auditBuffer.send(&dbclient.AuditLog{
			Actor:        handlercommon.Actor(c),
			Action:       fmt.Sprintf("http.%s", strings.ToLower(c.Request.Method)),
			ResourceType: resourceType,
			ResourceId:   resourceId,
			Details: dbutils.NullString(fmt.Sprintf(`{"path":%q,"status":%d,"latencyMs":%d,"clientIp":%q}`,
				c.Request.URL.Path, c.Writer.Status(), latency.Milliseconds(), c.ClientIP())),
			OccurredAt: dbutils.NullTime(startTime.UTC()),
		})
	}
}

func isWriteOperation(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	default:
		return false
	}
}

// extractResourceInfo derives a resource type and id from the request path,
// e.g. /api/v1/repos/main/uploads/u1 -> (uploads, u1).
func extractResourceInfo(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	startIdx := 0
	for i, part := range parts {
		if part == "api" || strings.HasPrefix(part, "v") && len(part) <= 3 {
			startIdx = i + 1
			continue
		}
		break
	}
	// Skip the repo scoping segments so the resource is the collection name.
	if startIdx+1 < len(parts) && parts[startIdx] == "repos" {
		startIdx += 2
	}
	if startIdx >= len(parts) {
		return "", ""
	}
	resourceType := parts[startIdx]
	resourceId := ""
	if startIdx+1 < len(parts) {
		resourceId = parts[startIdx+1]
	}
	return resourceType, resourceId
}
