/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

// Input identifies the action a policy decision is requested for.
type Input struct {
	TenantId    string
	RepoId      string
	VersionId   string
	Action      string
	RequestedBy string
}

// Decision is the evaluator's verdict.
type Decision struct {
	Decision string
	Reason   string
	Details  string
}

// Evaluator is the pluggable policy engine. Decisions arrive as inputs; the
// engine's internals are outside the core.
type Evaluator interface {
	Evaluate(ctx context.Context, input *Input) (*Decision, error)
}

// Gate runs policy evaluation under a deadline and persists decisions with
// their quarantine side effects.
type Gate struct {
	db        dbclient.Interface
	evaluator Evaluator
}

func NewGate(db dbclient.Interface, evaluator Evaluator) *Gate {
	return &Gate{db: db, evaluator: evaluator}
}

// Check evaluates the input under the configured deadline. Without a
// configured evaluator the gate allows. A timeout fails closed: the caller
// gets policy_timeout and nothing is persisted.
func (g *Gate) Check(ctx context.Context, input *Input) (*Decision, error) {
	if g == nil || g.evaluator == nil {
		return &Decision{Decision: dbclient.DecisionAllow, Reason: "no evaluator configured"}, nil
	}
	timeout := time.Duration(commonconfig.GetPolicyTimeoutMs()) * time.Millisecond
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decision, err := g.evaluator.Evaluate(evalCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			klog.ErrorS(err, "policy evaluation timed out", "versionId", input.VersionId)
			return nil, commonerrors.NewPolicyTimeout("policy evaluation did not finish in time")
		}
		klog.ErrorS(err, "policy evaluation failed", "versionId", input.VersionId)
		return nil, commonerrors.NewServiceUnavailable("policy evaluator unavailable")
	}
	return decision, nil
}

// Record appends the decision and, for quarantine, places the hold on the
// version in the same transaction.
func (g *Gate) Record(ctx context.Context, input *Input, decision *Decision) error {
	now := time.Now().UTC()
	return g.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		eval := &dbclient.PolicyEvaluation{
			TenantId:    input.TenantId,
			RepoId:      input.RepoId,
			VersionId:   input.VersionId,
			Action:      input.Action,
			Decision:    decision.Decision,
			Reason:      dbutils.NullString(decision.Reason),
			Details:     dbutils.NullString(decision.Details),
			EvaluatedAt: dbutils.NullTime(now),
			EvaluatedBy: input.RequestedBy,
		}
		if err := g.db.InsertPolicyEvaluation(ctx, tx, eval); err != nil {
			return err
		}
		if decision.Decision != dbclient.DecisionQuarantine {
			return nil
		}
		return g.db.UpsertQuarantineItem(ctx, tx, &dbclient.QuarantineItem{
			Id:        uuid.NewString(),
			TenantId:  input.TenantId,
			RepoId:    input.RepoId,
			VersionId: input.VersionId,
			Status:    dbclient.QuarantineQuarantined,
			Reason:    dbutils.NullString(decision.Reason),
			CreatedAt: dbutils.NullTime(now),
			UpdatedAt: dbutils.NullTime(now),
		})
	})
}
