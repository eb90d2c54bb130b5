/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
	"k8s.io/klog/v2"
)

//go:embed *.sql
var embedMigrations embed.FS

// Up applies all pending schema migrations.
func Up(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return err
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return err
	}
	klog.Infof("database schema is at version %d", version)
	return nil
}
