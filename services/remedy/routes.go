// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches the engine's HTTP surface to a router group.
//
// # Description
//
// The versioned API lives under the group (typically /v1); health probes
// are registered on the group as well so the caller controls their prefix.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/recommendations", h.HandleRecommend)
	rg.GET("/remedies", h.HandleListRemedies)
	rg.GET("/remedies/:key", h.HandleGetRemedy)
	rg.GET("/bundles", h.HandleListBundles)
	rg.POST("/admin/rebuild-graph", h.HandleRebuildGraph)
}

// RegisterProbes attaches liveness and readiness endpoints, typically on
// the engine's root router rather than the versioned group.
func RegisterProbes(r gin.IRoutes, h *Handlers) {
	r.GET("/health", h.HandleHealth)
	r.GET("/ready", h.HandleReady)
}
