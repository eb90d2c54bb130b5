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
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TOutboxEvent = "outbox_events"
)

var (
	insertOutboxEventFormat = `INSERT INTO ` + TOutboxEvent + ` (%s) VALUES (%s)`
	hasOutboxEventCmd       = fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE aggregate_type = $1 AND aggregate_id = $2 AND event_type = $3`,
		TOutboxEvent)

	claimOutboxEventsCmd = fmt.Sprintf(`SELECT * FROM %s
		WHERE delivered_at IS NULL AND event_type = $1 AND available_at <= $2
		ORDER BY occurred_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`, TOutboxEvent)
	extendOutboxVisibilityCmd = fmt.Sprintf(
		`UPDATE %s SET delivery_attempts = delivery_attempts + 1, available_at = $2 WHERE event_id = ANY($1)`,
		TOutboxEvent)
	markOutboxDeliveredCmd = fmt.Sprintf(
		`UPDATE %s SET delivered_at = $2 WHERE event_id = $1`, TOutboxEvent)
	requeueOutboxEventCmd = fmt.Sprintf(
		`UPDATE %s SET available_at = $2 WHERE event_id = $1`, TOutboxEvent)
)

func (c *Client) InsertOutboxEvent(ctx context.Context, q Queryer, event *OutboxEvent) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*event, insertOutboxEventFormat, ""), event)
	if err != nil {
		klog.ErrorS(err, "failed to insert outbox event", "id", event.EventId, "type", event.EventType)
	}
	return err
}

// HasOutboxEvent reports whether any event, delivered or not, exists for the
// aggregate and event type. Republish uses it to suppress duplicate emission.
func (c *Client) HasOutboxEvent(ctx context.Context, q Queryer, aggregateType, aggregateId, eventType string) (bool, error) {
	q, err := c.queryer(q)
	if err != nil {
		return false, err
	}
	var cnt int
	if err = q.GetContext(ctx, &cnt, hasOutboxEventCmd, aggregateType, aggregateId, eventType); err != nil {
		klog.ErrorS(err, "failed to count outbox events", "aggregateId", aggregateId)
		return false, err
	}
	return cnt > 0, nil
}

// ClaimOutboxEvents locks a batch of deliverable events and pushes their
// available_at forward by the visibility window, so a crash before ack
// releases them at the window boundary.
func (c *Client) ClaimOutboxEvents(ctx context.Context, tx *sqlx.Tx, eventType string, now time.Time, visibility time.Duration, limit int) ([]*OutboxEvent, error) {
	if tx == nil {
		return nil, commonerrors.NewInternalError("claim requires a transaction")
	}
	var events []*OutboxEvent
	if err := tx.SelectContext(ctx, &events, claimOutboxEventsCmd, eventType, now, limit); err != nil {
		klog.ErrorS(err, "failed to claim outbox events", "type", eventType)
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.EventId)
		event.DeliveryAttempts++
	}
	if _, err := tx.ExecContext(ctx, extendOutboxVisibilityCmd, pq.Array(ids), now.Add(visibility)); err != nil {
		klog.ErrorS(err, "failed to extend outbox visibility")
		return nil, err
	}
	return events, nil
}

func (c *Client) MarkOutboxDelivered(ctx context.Context, q Queryer, eventId string, deliveredAt time.Time) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, markOutboxDeliveredCmd, eventId, deliveredAt); err != nil {
		klog.ErrorS(err, "failed to mark outbox event delivered", "id", eventId)
		return err
	}
	return nil
}

// RequeueOutboxEvent defers a malformed or unresolvable event without marking
// it delivered.
func (c *Client) RequeueOutboxEvent(ctx context.Context, q Queryer, eventId string, availableAt time.Time) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	if _, err = q.ExecContext(ctx, requeueOutboxEventCmd, eventId, availableAt); err != nil {
		klog.ErrorS(err, "failed to requeue outbox event", "id", eventId)
		return err
	}
	return nil
}
