/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	dbutils "github.com/sremani/Artifortress-sub002/pkg/database/utils"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
)

const (
	TPackage = "packages"
)

var (
	insertPackageFormat      = `INSERT INTO ` + TPackage + ` (%s) VALUES (%s)`
	getPackageByCoordsFormat = fmt.Sprintf(
		`SELECT * FROM %s WHERE repo_id = $1 AND package_type = $2 AND COALESCE(namespace, '') = $3 AND name = $4 LIMIT 1`,
		TPackage)
	getPackageCmd = fmt.Sprintf(`SELECT * FROM %s WHERE package_id = $1`, TPackage)
)

// GetPackage returns the package by id.
func (c *Client) GetPackage(ctx context.Context, packageId string) (*Package, error) {
	q, err := c.queryer(nil)
	if err != nil {
		return nil, err
	}
	var packages []*Package
	if err = q.SelectContext(ctx, &packages, getPackageCmd, packageId); err != nil {
		klog.ErrorS(err, "failed to get package", "packageId", packageId)
		return nil, err
	}
	if len(packages) == 0 {
		return nil, commonerrors.NewNotFound("package", packageId)
	}
	return packages[0], nil
}

// GetOrCreatePackage resolves a package by its coordinate key, inserting it
// when absent. Concurrent creators race on the coordinate unique index; the
// loser re-reads the winner's row.
func (c *Client) GetOrCreatePackage(ctx context.Context, q Queryer, pkg *Package) (*Package, error) {
	q, err := c.queryer(q)
	if err != nil {
		return nil, err
	}
	existing, err := selectPackageByCoords(ctx, q, pkg)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	_, err = sqlxNamedExec(ctx, q, generateCommand(*pkg, insertPackageFormat, ""), pkg)
	if err != nil {
		if dbutils.IsUniqueViolation(err) {
			return selectPackageByCoords(ctx, q, pkg)
		}
		klog.ErrorS(err, "failed to insert package", "name", pkg.Name)
		return nil, err
	}
	return pkg, nil
}

func selectPackageByCoords(ctx context.Context, q Queryer, pkg *Package) (*Package, error) {
	var packages []*Package
	namespace := dbutils.ParseNullString(pkg.Namespace)
	err := q.SelectContext(ctx, &packages, getPackageByCoordsFormat,
		pkg.RepoId, pkg.PackageType, namespace, pkg.Name)
	if err != nil {
		klog.ErrorS(err, "failed to select package", "name", pkg.Name)
		return nil, err
	}
	if len(packages) == 0 {
		return nil, nil
	}
	return packages[0], nil
}
