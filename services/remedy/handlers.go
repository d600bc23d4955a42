// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the JSON error envelope returned by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RecommendRequest is the body of POST /v1/recommendations.
type RecommendRequest struct {
	// Symptoms is the user's free-text condition description.
	Symptoms string `json:"symptoms"`

	// NLPMode enables the extraction step before matching.
	NLPMode bool `json:"nlp_mode"`
}

// Handlers binds the engine to gin routes.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handler set. logger may be nil.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// getOrCreateRequestID returns the inbound X-Request-ID header or mints a
// new UUID when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// statusForKind maps engine error kinds to HTTP status codes.
func statusForKind(kind Kind) (int, string) {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest, "validation_error"
	case KindNotFound:
		return http.StatusNotFound, "not_found"
	case KindCollaborator:
		return http.StatusBadGateway, "collaborator_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handlers) abortWithEngineError(c *gin.Context, requestID string, err error) {
	status, code := statusForKind(KindOf(err))
	h.logger.Warn("request failed",
		slog.String("request_id", requestID),
		slog.String("path", c.FullPath()),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// HandleRecommend serves POST /v1/recommendations.
func (h *Handlers) HandleRecommend(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "validation_error",
		})
		return
	}

	rec, err := h.service.Recommend(c.Request.Context(), req.Symptoms, req.NLPMode)
	if err != nil {
		h.abortWithEngineError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleListRemedies serves GET /v1/remedies.
func (h *Handlers) HandleListRemedies(c *gin.Context) {
	getOrCreateRequestID(c)
	items := h.service.Remedies()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(items),
		"remedies": items,
	})
}

// HandleGetRemedy serves GET /v1/remedies/:key.
func (h *Handlers) HandleGetRemedy(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	detail, err := h.service.Remedy(c.Param("key"))
	if err != nil {
		h.abortWithEngineError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// HandleListBundles serves GET /v1/bundles.
func (h *Handlers) HandleListBundles(c *gin.Context) {
	getOrCreateRequestID(c)
	bundles := h.service.Bundles()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(bundles),
		"bundles": bundles,
	})
}

// HandleRebuildGraph serves POST /v1/admin/rebuild-graph.
func (h *Handlers) HandleRebuildGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	if err := h.service.RebuildGraph(c.Request.Context()); err != nil {
		h.abortWithEngineError(c, requestID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rebuilt"})
}

// HandleHealth serves GET /health. Always OK while the process is up.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady serves GET /ready. Reports vector warm-up state without
// failing readiness on it — the engine serves with per-request embedding
// until warmed.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ready",
		"vectors_warmed": h.service.Warmed(),
	})
}
