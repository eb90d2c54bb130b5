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
	TTenant = "tenants"
)

var (
	insertTenantFormat = `INSERT INTO ` + TTenant + ` (%s) VALUES (%s)`
	getTenantCmd       = fmt.Sprintf(`SELECT * FROM %s WHERE tenant_id = $1 LIMIT 1`, TTenant)
	getTenantBySlugCmd = fmt.Sprintf(`SELECT * FROM %s WHERE slug = $1 LIMIT 1`, TTenant)
)

func (c *Client) InsertTenant(ctx context.Context, tenant *Tenant) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*tenant, insertTenantFormat, ""), tenant)
	if err != nil {
		klog.ErrorS(err, "failed to insert tenant", "slug", tenant.Slug)
	}
	return err
}

func (c *Client) GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var tenants []*Tenant
	if err = db.SelectContext(ctx, &tenants, getTenantCmd, tenantId); err != nil {
		klog.ErrorS(err, "failed to select tenant", "id", tenantId)
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, commonerrors.NewNotFound("tenant", tenantId)
	}
	return tenants[0], nil
}

func (c *Client) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	var tenants []*Tenant
	if err = db.SelectContext(ctx, &tenants, getTenantBySlugCmd, slug); err != nil {
		klog.ErrorS(err, "failed to select tenant", "slug", slug)
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, commonerrors.NewNotFound("tenant", slug)
	}
	return tenants[0], nil
}
