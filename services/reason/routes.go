// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all reason service routes with the router.
//
// Description:
//
//	Registers all /v1/reason/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/reason/run - Run an admission-gated reasoning search
//	GET  /v1/reason/traces - List stored trace ids
//	GET  /v1/reason/traces/:id - Get a stored trace
//	GET  /v1/reason/health - Health check
//	GET  /v1/reason/ready - Readiness check
//
// Example:
//
//	svc := reason.NewService(eng, policy, st)
//	handlers := reason.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	reason.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	r := rg.Group("/reason")
	{
		// Search runs
		r.POST("/run", handlers.HandleRun)

		// Trace retrieval
		r.GET("/traces", handlers.HandleListTraces)
		r.GET("/traces/:id", handlers.HandleGetTrace)

		// Health checks
		r.GET("/health", handlers.HandleHealth)
		r.GET("/ready", handlers.HandleReady)
	}
}
