// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, cfg)
	h := NewHandlers(svc, nil)

	router := gin.New()
	RegisterRoutes(router.Group("/v1"), h)
	RegisterProbes(router, h)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Recommendation Endpoint Tests
// =============================================================================

func TestHandleRecommend_Success(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodPost, "/v1/recommendations",
		`{"symptoms": "insomnia and racing thoughts at night"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var rec Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotNil(t, rec.LexicalMatch)
	assert.Equal(t, "white_chestnut", rec.LexicalMatch.Key)
	assert.NotEmpty(t, rec.Bundles)
}

func TestHandleRecommend_BlankQuery(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodPost, "/v1/recommendations", `{"symptoms": "   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleRecommend_MalformedBody(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodPost, "/v1/recommendations", `{"symptoms": `)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Code)
}

func TestHandleRecommend_CollaboratorFailure(t *testing.T) {
	router := newTestRouter(t, Config{
		Embedder: &fakeEmbedder{err: assert.AnError},
	})

	w := doRequest(router, http.MethodPost, "/v1/recommendations", `{"symptoms": "fear"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "collaborator_error", resp.Code)
}

func TestHandleRecommend_EchoesRequestID(t *testing.T) {
	router := newTestRouter(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations",
		strings.NewReader(`{"symptoms": "fear"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "caller-id-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "caller-id-42", w.Header().Get("X-Request-ID"))
}

// =============================================================================
// Catalog Endpoint Tests
// =============================================================================

func TestHandleListRemedies(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodGet, "/v1/remedies", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count    int               `json:"count"`
		Remedies []json.RawMessage `json:"remedies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 39, resp.Count)
	assert.Len(t, resp.Remedies, 39)
}

func TestHandleGetRemedy_Known(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodGet, "/v1/remedies/mimulus", "")
	require.Equal(t, http.StatusOK, w.Code)

	var detail RemedyDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Mimulus", detail.Item.Name)
	assert.NotEmpty(t, detail.Connected)
}

func TestHandleGetRemedy_Unknown(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodGet, "/v1/remedies/no_such_item", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestHandleListBundles(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodGet, "/v1/bundles", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int          `json:"count"`
		Bundles []BundleView `json:"bundles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Count)
	for _, b := range resp.Bundles {
		assert.NotEmpty(t, b.Members, "bundle %q", b.Key)
	}
}

// =============================================================================
// Admin and Probe Tests
// =============================================================================

func TestHandleRebuildGraph(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodPost, "/v1/admin/rebuild-graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rebuilt")
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, Config{})
	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleReady_ReportsWarmState(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := doRequest(router, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status        string `json:"status"`
		VectorsWarmed bool   `json:"vectors_warmed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.False(t, resp.VectorsWarmed)
}
