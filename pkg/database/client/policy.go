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
	TPolicyEvaluation = "policy_evaluations"
)

var (
	insertPolicyEvaluationFormat = `INSERT INTO ` + TPolicyEvaluation + ` (%s) VALUES (%s)`
	selectPolicyEvaluationsCmd   = fmt.Sprintf(
		`SELECT * FROM %s WHERE version_id = $1 ORDER BY evaluated_at DESC LIMIT $2`, TPolicyEvaluation)
)

// InsertPolicyEvaluation appends a decision record. The table is append-only;
// the id column is database-assigned and skipped on insert.
func (c *Client) InsertPolicyEvaluation(ctx context.Context, q Queryer, eval *PolicyEvaluation) error {
	q, err := c.queryer(q)
	if err != nil {
		return err
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*eval, insertPolicyEvaluationFormat, "id"), eval)
	if err != nil {
		klog.ErrorS(err, "failed to insert policy evaluation", "versionId", eval.VersionId)
	}
	return err
}

func (c *Client) SelectPolicyEvaluations(ctx context.Context, versionId string, limit int) ([]*PolicyEvaluation, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var evals []*PolicyEvaluation
	if err = db.SelectContext(ctx, &evals, selectPolicyEvaluationsCmd, versionId, limit); err != nil {
		klog.ErrorS(err, "failed to select policy evaluations", "versionId", versionId)
		return nil, err
	}
	return evals, nil
}
