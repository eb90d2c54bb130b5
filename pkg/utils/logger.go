/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// Logger returns a gin middleware that logs each request with method, path,
// status and latency through klog.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		status := c.Writer.Status()
		if status >= 500 {
			klog.Errorf("%s %s %d (%v)", c.Request.Method, c.Request.URL.Path, status, latency)
			return
		}
		klog.V(2).Infof("%s %s %d (%v)", c.Request.Method, c.Request.URL.Path, status, latency)
	}
}
