/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	commonerrors "github.com/sremani/Artifortress-sub002/pkg/errors"
	adminhandler "github.com/sremani/Artifortress-sub002/pkg/handlers/admin-handlers"
	blobhandler "github.com/sremani/Artifortress-sub002/pkg/handlers/blob-handlers"
	"github.com/sremani/Artifortress-sub002/pkg/handlers/middleware"
	packagehandler "github.com/sremani/Artifortress-sub002/pkg/handlers/package-handlers"
	policyhandler "github.com/sremani/Artifortress-sub002/pkg/handlers/policy-handlers"
	quarantinehandler "github.com/sremani/Artifortress-sub002/pkg/handlers/quarantine-handlers"
	uploadhandler "github.com/sremani/Artifortress-sub002/pkg/handlers/upload-handlers"
	"github.com/sremani/Artifortress-sub002/pkg/lifecycle"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
	"github.com/sremani/Artifortress-sub002/pkg/publish"
	"github.com/sremani/Artifortress-sub002/pkg/reconcile"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
	"github.com/sremani/Artifortress-sub002/pkg/upload"
	apiutils "github.com/sremani/Artifortress-sub002/pkg/utils"
)

// Engines bundles the domain engines the handlers and sweepers share.
type Engines struct {
	Uploads   *upload.Manager
	Gate      *policy.Gate
	Publisher *publish.Engine
	Lifecycle *lifecycle.Engine
	Checker   *reconcile.Checker
}

// NewEngines wires the domain engines onto the shared clients. The evaluator
// may be nil: publishing then proceeds without a policy gate.
func NewEngines(db dbclient.Interface, backend s3.Interface, evaluator policy.Evaluator) *Engines {
	gate := policy.NewGate(db, evaluator)
	return &Engines{
		Uploads:   upload.NewManager(db, backend),
		Gate:      gate,
		Publisher: publish.NewEngine(db, gate),
		Lifecycle: lifecycle.NewEngine(db, backend),
		Checker:   reconcile.NewChecker(db),
	}
}

// InitHttpHandlers builds the gin engine: recovery, request logging, audit
// and tracing middleware, the per-domain routers and the health probe.
func InitHttpHandlers(db dbclient.Interface, backend s3.Interface, engines *Engines) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery(), middleware.HandleTracing(), middleware.AuditLog(db))
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, commonerrors.NewNotFoundWithMessage(c.Request.RequestURI+" not found"))
	})

	uploadhandler.InitUploadRouters(engine, uploadhandler.NewHandler(db, engines.Uploads))
	blobhandler.InitBlobRouters(engine, blobhandler.NewHandler(db, backend))
	packagehandler.InitPackageRouters(engine, packagehandler.NewHandler(db, engines.Publisher, engines.Lifecycle))
	policyhandler.InitPolicyRouters(engine, policyhandler.NewHandler(db, engines.Gate))
	quarantinehandler.InitQuarantineRouters(engine, quarantinehandler.NewHandler(db))
	adminhandler.InitAdminRouters(engine, adminhandler.NewHandler(db, engines.Lifecycle, engines.Checker))

	engine.GET("/healthz", healthz(db, backend))
	return engine, nil
}

func healthz(db dbclient.Interface, backend s3.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !commonconfig.IsHealthCheckEnabled() {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": "disabled"})
			return
		}
		ctx := c.Request.Context()
		if err := db.Ping(ctx); err != nil {
			apiutils.AbortWithApiError(c, commonerrors.NewServiceUnavailable("database unavailable"))
			return
		}
		if backend != nil {
			if err := backend.CheckAvailability(ctx); err != nil {
				apiutils.AbortWithApiError(c, commonerrors.NewServiceUnavailable("object backend unavailable"))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
