/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package outbox

import (
	"context"
	"testing"
	"time"

	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
)

const versionUUID = "22222222-2222-2222-2222-222222222222"

func TestResolveVersionId(t *testing.T) {
	cases := []struct {
		name        string
		aggregateId string
		payload     string
		want        string
		ok          bool
	}{
		{"aggregate id is a uuid", versionUUID, "{}", versionUUID, true},
		{"payload fallback", "upload-42", `{"versionId":"` + versionUUID + `"}`, versionUUID, true},
		{"payload not json", "upload-42", "not-json", "", false},
		{"payload version not a uuid", "upload-42", `{"versionId":"v-1"}`, "", false},
		{"payload missing field", "upload-42", `{"digest":"abc"}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveVersionId(&dbclient.OutboxEvent{AggregateId: tc.aggregateId, Payload: tc.payload})
			assert.Equal(t, ok, tc.ok)
			assert.Equal(t, got, tc.want)
		})
	}
}

func TestSweepOnceDeliversAndEnqueues(t *testing.T) {
	db := fake.NewClient()
	now := time.Now().UTC()
	db.Events["ev1"] = &dbclient.OutboxEvent{
		EventId: "ev1", TenantId: "t1",
		AggregateType: dbclient.AggregatePackageVersion, AggregateId: versionUUID,
		EventType:   dbclient.EventVersionPublished,
		Payload:     `{"versionId":"` + versionUUID + `"}`,
		OccurredAt:  dbutils.NullTime(now.Add(-time.Minute)),
		AvailableAt: dbutils.NullTime(now.Add(-time.Minute)),
	}
	d := NewDispatcher(db)

	delivered, requeued, err := d.SweepOnce(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, delivered, 1)
	assert.Equal(t, requeued, 0)

	assert.Assert(t, db.Events["ev1"].DeliveredAt.Valid)

	job, err := db.GetSearchJobByVersion(context.Background(), "t1", versionUUID)
	assert.NilError(t, err)
	assert.Equal(t, job.Status, dbclient.JobPending)

	// A delivered event is never claimed again.
	delivered, requeued, err = d.SweepOnce(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, delivered, 0)
	assert.Equal(t, requeued, 0)
}

func TestSweepOnceRequeuesMalformedEvent(t *testing.T) {
	db := fake.NewClient()
	now := time.Now().UTC()
	db.Events["bad"] = &dbclient.OutboxEvent{
		EventId: "bad", TenantId: "t1",
		AggregateType: dbclient.AggregatePackageVersion, AggregateId: "not-a-uuid",
		EventType:   dbclient.EventVersionPublished,
		Payload:     "garbage",
		AvailableAt: dbutils.NullTime(now.Add(-time.Minute)),
	}
	d := NewDispatcher(db)

	delivered, requeued, err := d.SweepOnce(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, delivered, 0)
	assert.Equal(t, requeued, 1)

	event := db.Events["bad"]
	assert.Assert(t, !event.DeliveredAt.Valid)
	assert.Assert(t, event.AvailableAt.Time.After(now.Add(RequeueDelay-time.Minute)))
}

func TestSweepOnceHonorsVisibility(t *testing.T) {
	db := fake.NewClient()
	db.Events["future"] = &dbclient.OutboxEvent{
		EventId: "future", TenantId: "t1",
		AggregateType: dbclient.AggregatePackageVersion, AggregateId: versionUUID,
		EventType:   dbclient.EventVersionPublished,
		Payload:     "{}",
		AvailableAt: dbutils.NullTime(time.Now().UTC().Add(time.Hour)),
	}
	d := NewDispatcher(db)

	delivered, requeued, err := d.SweepOnce(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, delivered, 0)
	assert.Equal(t, requeued, 0)
	assert.Equal(t, db.Events["future"].DeliveryAttempts, 0)
}

func TestSweepOnceIgnoresOtherEventTypes(t *testing.T) {
	db := fake.NewClient()
	db.Events["upload"] = &dbclient.OutboxEvent{
		EventId: "upload", TenantId: "t1",
		AggregateType: dbclient.AggregateUploadSession, AggregateId: versionUUID,
		EventType:   dbclient.EventUploadCommitted,
		Payload:     "{}",
		AvailableAt: dbutils.NullTime(time.Now().UTC().Add(-time.Minute)),
	}
	d := NewDispatcher(db)

	delivered, _, err := d.SweepOnce(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, delivered, 0)
	assert.Assert(t, !db.Events["upload"].DeliveredAt.Valid)
}
