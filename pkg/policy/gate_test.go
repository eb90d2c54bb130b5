/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package policy

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/assert"

	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/client/fake"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

type stubEvaluator struct {
	decision *Decision
	err      error
}

func (s *stubEvaluator) Evaluate(ctx context.Context, input *Input) (*Decision, error) {
	return s.decision, s.err
}

func TestCheckWithoutEvaluatorAllows(t *testing.T) {
	gate := NewGate(fake.NewClient(), nil)
	decision, err := gate.Check(context.Background(), &Input{VersionId: "v1", Action: dbclient.ActionPublish})
	assert.NilError(t, err)
	assert.Equal(t, decision.Decision, dbclient.DecisionAllow)
}

func TestCheckPassesDecisionThrough(t *testing.T) {
	gate := NewGate(fake.NewClient(), &stubEvaluator{
		decision: &Decision{Decision: dbclient.DecisionDeny, Reason: "license violation"},
	})
	decision, err := gate.Check(context.Background(), &Input{VersionId: "v1"})
	assert.NilError(t, err)
	assert.Equal(t, decision.Decision, dbclient.DecisionDeny)
	assert.Equal(t, decision.Reason, "license violation")
}

func TestCheckTimeoutFailsClosed(t *testing.T) {
	gate := NewGate(fake.NewClient(), &stubEvaluator{err: context.DeadlineExceeded})
	_, err := gate.Check(context.Background(), &Input{VersionId: "v1"})
	assert.Assert(t, commonerrors.IsConflictCode(err, commonerrors.PolicyTimeout))
}

func TestCheckEvaluatorFailureIsUnavailable(t *testing.T) {
	gate := NewGate(fake.NewClient(), &stubEvaluator{err: errors.New("scanner offline")})
	_, err := gate.Check(context.Background(), &Input{VersionId: "v1"})
	assert.ErrorContains(t, err, "policy evaluator unavailable")
}

func TestRecordPersistsEvaluation(t *testing.T) {
	db := fake.NewClient()
	gate := NewGate(db, nil)
	ctx := context.Background()
	input := &Input{TenantId: "t1", RepoId: "r1", VersionId: "v1", Action: dbclient.ActionPublish, RequestedBy: "alice"}

	err := gate.Record(ctx, input, &Decision{Decision: dbclient.DecisionDeny, Reason: "blocked"})
	assert.NilError(t, err)

	evals, err := db.SelectPolicyEvaluations(ctx, "v1", 10)
	assert.NilError(t, err)
	assert.Equal(t, len(evals), 1)
	assert.Equal(t, evals[0].Decision, dbclient.DecisionDeny)
	assert.Equal(t, evals[0].EvaluatedBy, "alice")

	quarantined, err := db.HasActiveQuarantine(ctx, nil, "v1")
	assert.NilError(t, err)
	assert.Assert(t, !quarantined)
}

func TestRecordQuarantinePlacesHold(t *testing.T) {
	db := fake.NewClient()
	gate := NewGate(db, nil)
	ctx := context.Background()
	input := &Input{TenantId: "t1", RepoId: "r1", VersionId: "v1", Action: dbclient.ActionPublish, RequestedBy: "scanner"}

	err := gate.Record(ctx, input, &Decision{Decision: dbclient.DecisionQuarantine, Reason: "malware detected"})
	assert.NilError(t, err)

	quarantined, err := db.HasActiveQuarantine(ctx, nil, "v1")
	assert.NilError(t, err)
	assert.Assert(t, quarantined)

	// A second quarantine decision updates the existing item.
	err = gate.Record(ctx, input, &Decision{Decision: dbclient.DecisionQuarantine, Reason: "still bad"})
	assert.NilError(t, err)
	items, err := db.SelectQuarantineItems(ctx, nil, nil, 10, 0)
	assert.NilError(t, err)
	assert.Equal(t, len(items), 1)
}
