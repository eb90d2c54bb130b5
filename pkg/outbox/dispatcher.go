/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

const (
	// VisibilityWindow is how far a claim pushes available_at forward; a
	// crash between claim and ack releases the row at the window boundary.
	VisibilityWindow = 30 * time.Second

	// RequeueDelay defers malformed events without marking them delivered.
	RequeueDelay = 5 * time.Minute
)

// Dispatcher sweeps the transactional outbox and fans version.published
// events into idempotent search-index jobs.
type Dispatcher struct {
	db dbclient.Interface
}

func NewDispatcher(db dbclient.Interface) *Dispatcher {
	return &Dispatcher{db: db}
}

type eventPayload struct {
	VersionId string `json:"versionId"`
}

// ResolveVersionId extracts the version id from a claimed event: the
// aggregate id when it parses as a UUID, otherwise payload.versionId.
func ResolveVersionId(event *dbclient.OutboxEvent) (string, bool) {
	if _, err := uuid.Parse(event.AggregateId); err == nil {
		return event.AggregateId, true
	}
	var payload eventPayload
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(payload.VersionId); err != nil {
		return "", false
	}
	return payload.VersionId, true
}

// SweepOnce claims one batch of deliverable version.published events and
// routes each: resolvable events enqueue a search job and are acked in the
// same transaction; malformed events are deferred.
func (d *Dispatcher) SweepOnce(ctx context.Context) (delivered, requeued int, err error) {
	now := time.Now().UTC()
	batch := commonconfig.GetWorkerBatchSize()
	err = d.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := d.db.ClaimOutboxEvents(ctx, tx, dbclient.EventVersionPublished, now, VisibilityWindow, batch)
		if err != nil {
			return err
		}
		for _, event := range events {
			versionId, ok := ResolveVersionId(event)
			if !ok {
				klog.InfoS("requeueing unresolvable outbox event", "eventId", event.EventId)
				if err = d.db.RequeueOutboxEvent(ctx, tx, event.EventId, now.Add(RequeueDelay)); err != nil {
					return err
				}
				requeued++
				continue
			}
			job := &dbclient.SearchIndexJob{
				JobId:       uuid.NewString(),
				TenantId:    event.TenantId,
				VersionId:   versionId,
				AvailableAt: dbutils.NullTime(now),
				CreatedAt:   dbutils.NullTime(now),
			}
			if err = d.db.UpsertSearchJobPending(ctx, tx, job); err != nil {
				return err
			}
			if err = d.db.MarkOutboxDelivered(ctx, tx, event.EventId, now); err != nil {
				return err
			}
			delivered++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if delivered > 0 || requeued > 0 {
		klog.InfoS("outbox sweep finished", "delivered", delivered, "requeued", requeued)
	}
	return delivered, requeued, nil
}
