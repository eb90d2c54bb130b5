/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	commonconfig "github.com/sremani/Artifortress-sub002/pkg/config"
	dbclient "github.com/sremani/Artifortress-sub002/pkg/database/client"
	"github.com/sremani/Artifortress-sub002/pkg/database/migrations"
	"github.com/sremani/Artifortress-sub002/pkg/handlers"
	commonklog "github.com/sremani/Artifortress-sub002/pkg/klog"
	"github.com/sremani/Artifortress-sub002/pkg/options"
	"github.com/sremani/Artifortress-sub002/pkg/outbox"
	"github.com/sremani/Artifortress-sub002/pkg/policy"
	"github.com/sremani/Artifortress-sub002/pkg/s3"
	"github.com/sremani/Artifortress-sub002/pkg/search"
	"github.com/sremani/Artifortress-sub002/pkg/trace"
)

const (
	// strandedRunAge is how old an unfinished GC run must be before the
	// finalizer closes it.
	strandedRunAge = 2 * time.Hour
	// strandedRunBatch caps the stranded runs closed per sweep.
	strandedRunBatch = 10
)

type Server struct {
	opts       *options.Options
	dbClient   *dbclient.Client
	backend    s3.Interface
	engines    *handlers.Engines
	dispatcher *outbox.Dispatcher
	indexer    *search.Worker
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if commonconfig.IsTracingEnable() {
		if err = trace.InitTracer("artifortress-apiserver"); err != nil {
			klog.ErrorS(err, "failed to init tracer")
			return err
		}
	}
	if s.dbClient = dbclient.NewClient(); s.dbClient == nil {
		return fmt.Errorf("failed to new db client")
	}
	if s.opts.Migrate {
		if err = migrations.Up(s.dbClient.RawDB().DB); err != nil {
			klog.ErrorS(err, "failed to run migrations")
			return err
		}
	}
	if commonconfig.IsS3Enable() {
		if s.backend, err = s3.NewClient(s.ctx); err != nil {
			klog.ErrorS(err, "failed to init object backend")
			return err
		}
	}

	// No built-in evaluator ships with the server; publishes are allowed
	// until one is plugged in.
	var evaluator policy.Evaluator
	s.engines = handlers.NewEngines(s.dbClient, s.backend, evaluator)
	s.dispatcher = outbox.NewDispatcher(s.dbClient)
	s.indexer = search.NewWorker(s.dbClient)
	s.isInited = true
	return nil
}

func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = commonconfig.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init the server first")
		return
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	klog.Infof("starting artifortress server")
	s.startSweepers()
	go func() {
		if err := s.startHttpServer(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

// startSweepers launches the background loops: upload-session expiry, outbox
// dispatch, search indexing and the stranded-GC-run finalizer. All stop with
// the server context.
func (s *Server) startSweepers() {
	interval := time.Duration(commonconfig.GetWorkerPollSecond()) * time.Second
	batch := commonconfig.GetWorkerBatchSize()

	go wait.UntilWithContext(s.ctx, func(ctx context.Context) {
		if _, err := s.engines.Uploads.SweepExpired(ctx, time.Now().UTC(), batch); err != nil {
			klog.ErrorS(err, "upload expiry sweep failed")
		}
	}, interval)

	go wait.UntilWithContext(s.ctx, func(ctx context.Context) {
		if _, _, err := s.dispatcher.SweepOnce(ctx); err != nil {
			klog.ErrorS(err, "outbox sweep failed")
		}
	}, interval)

	go wait.UntilWithContext(s.ctx, func(ctx context.Context) {
		if _, _, err := s.indexer.SweepOnce(ctx); err != nil {
			klog.ErrorS(err, "search index sweep failed")
		}
	}, interval)

	go wait.UntilWithContext(s.ctx, func(ctx context.Context) {
		if _, err := s.engines.Lifecycle.FinalizeStrandedRuns(ctx, strandedRunAge, strandedRunBatch); err != nil {
			klog.ErrorS(err, "stranded gc run sweep failed")
		}
	}, strandedRunAge/2)
}

func (s *Server) startHttpServer() error {
	if commonconfig.GetServerPort() <= 0 {
		return fmt.Errorf("the server port is not defined")
	}
	handler, err := handlers.InitHttpHandlers(s.dbClient, s.backend, s.engines)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", commonconfig.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http server listen port: %d", commonconfig.GetServerPort())
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			klog.ErrorS(err, "failed to shutdown http server")
		}
	}
	if err := trace.CloseTracer(); err != nil {
		klog.ErrorS(err, "failed to shutdown tracer")
	}
	if s.dbClient != nil {
		s.dbClient.Close()
	}
	s.cancel()
	klog.Info("artifortress server is stopped")
	klog.Flush()
}
