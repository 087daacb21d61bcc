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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ponderlabs/ponder/pkg/validation"
	"github.com/ponderlabs/ponder/services/reason/engine"
	"github.com/ponderlabs/ponder/services/reason/store"
)

// ServiceVersion is the reason service version.
const ServiceVersion = "0.1.0"

// defaultTraceListLimit bounds GET /traces when no limit is given.
const defaultTraceListLimit = 100

// Handlers contains the HTTP handlers for the reason service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleRun handles POST /v1/reason/run.
//
// Description:
//
//	Runs one admission-gated reasoning search. The response always carries
//	the admission decision; the search result is present only when the task
//	was admitted, and the trace id only when persistence succeeded.
//
// Request Body:
//
//	RunRequest
//
// Response:
//
//	200 OK: RunResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Search failure
func (h *Handlers) HandleRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRun")

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if req.SessionID != "" {
		safeID, err := validation.SanitizeSessionID(req.SessionID)
		if err != nil {
			logger.Warn("Rejected session id", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_SESSION_ID",
			})
			return
		}
		req.SessionID = safeID
	}

	logger.Info("Running reasoning request",
		"session_id", req.SessionID,
		"task_len", len(req.Task))

	resp, err := h.svc.Run(c.Request.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "RUN_FAILED"

		if errors.Is(err, engine.ErrEmptyTask) {
			statusCode = http.StatusBadRequest
			errCode = "EMPTY_TASK"
		} else if errors.Is(err, engine.ErrInvalidConfig) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_CONFIG"
		}

		logger.Error("Run failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Run complete",
		"session_id", resp.SessionID,
		"use_search", resp.Decision.UseSearch,
		"trace_id", resp.TraceID)

	c.JSON(http.StatusOK, resp)
}

// HandleGetTrace handles GET /v1/reason/traces/:id.
//
// Response:
//
//	200 OK: store.TracePayload
//	400 Bad Request: Malformed trace id
//	404 Not Found: Unknown trace id
//	503 Service Unavailable: Store not configured
func (h *Handlers) HandleGetTrace(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetTrace")

	traceID := c.Param("id")
	if err := validation.ValidateTraceID(traceID); err != nil {
		logger.Warn("Rejected trace id", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_TRACE_ID",
		})
		return
	}

	payload, err := h.svc.GetTrace(c.Request.Context(), traceID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "TRACE_LOOKUP_FAILED"

		if errors.Is(err, store.ErrTraceNotFound) {
			statusCode = http.StatusNotFound
			errCode = "TRACE_NOT_FOUND"
		} else if errors.Is(err, ErrStoreDisabled) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_DISABLED"
		}

		logger.Warn("Trace lookup failed", "trace_id", traceID, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, payload)
}

// HandleListTraces handles GET /v1/reason/traces.
//
// Query Parameters:
//
//	limit: maximum number of ids to return (default 100)
//
// Response:
//
//	200 OK: ListTracesResponse
//	400 Bad Request: Invalid limit
//	503 Service Unavailable: Store not configured
func (h *Handlers) HandleListTraces(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListTraces")

	limit := defaultTraceListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = parsed
	}

	ids, err := h.svc.ListTraces(c.Request.Context(), limit)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "TRACE_LIST_FAILED"
		if errors.Is(err, ErrStoreDisabled) {
			statusCode = http.StatusServiceUnavailable
			errCode = "STORE_DISABLED"
		}
		logger.Error("Trace listing failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, ListTracesResponse{
		TraceIDs: ids,
		Count:    len(ids),
	})
}

// HandleHealth handles GET /v1/reason/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/reason/ready.
//
// Description:
//
//	Returns the readiness status including the trace store check. A service
//	without a configured store is still ready; runs then skip persistence.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Ready:   true,
		StoreOK: h.svc.StoreOK(c.Request.Context()),
	})
}

// getOrCreateRequestID returns the X-Request-ID header, minting one when
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
