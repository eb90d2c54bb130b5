/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TRepository = "repositories"
)

var (
	insertRepositoryFormat = `INSERT INTO ` + TRepository + ` (%s) VALUES (%s)`
	getRepositoryCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE repo_id = $1 LIMIT 1`, TRepository)
	getRepositoryByKeyCmd  = fmt.Sprintf(`SELECT * FROM %s WHERE tenant_id = $1 AND repo_key = $2 LIMIT 1`, TRepository)
)

func (c *Client) InsertRepository(ctx context.Context, repo *Repository) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*repo, insertRepositoryFormat, ""), repo)
	if err != nil {
		klog.ErrorS(err, "failed to insert repository", "key", repo.RepoKey)
	}
	return err
}

func (c *Client) GetRepository(ctx context.Context, repoId string) (*Repository, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var repos []*Repository
	if err = db.SelectContext(ctx, &repos, getRepositoryCmd, repoId); err != nil {
		klog.ErrorS(err, "failed to select repository", "id", repoId)
		return nil, err
	}
	if len(repos) == 0 {
		return nil, commonerrors.NewNotFound("repository", repoId)
	}
	return repos[0], nil
}

func (c *Client) GetRepositoryByKey(ctx context.Context, tenantId, repoKey string) (*Repository, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var repos []*Repository
	if err = db.SelectContext(ctx, &repos, getRepositoryByKeyCmd, tenantId, repoKey); err != nil {
		klog.ErrorS(err, "failed to select repository", "key", repoKey)
		return nil, err
	}
	if len(repos) == 0 {
		return nil, commonerrors.NewNotFound("repository", repoKey)
	}
	return repos[0], nil
}
