// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command floressence starts the Floressence recommendation API server.
//
// Floressence recommends flower essences for emotional states using a
// hybrid engine:
//   - Dense vector similarity over item description embeddings
//   - Weighted lexical overlap backed by a relationship graph
//   - Pre-defined bundle suggestions ranked by composition overlap
//
// Usage:
//
//	go run ./cmd/floressence
//	go run ./cmd/floressence -port 9090
//
// With a local Ollama embedding provider:
//
//	EMBEDDING_SERVICE_URL=http://localhost:11434/api/embed go run ./cmd/floressence
//
// With LLM symptom extraction enabled per request:
//
//	EXTRACTION_SERVICE_URL=http://localhost:11434/v1/chat/completions go run ./cmd/floressence
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/health
//
//	# Get a recommendation
//	curl -X POST http://localhost:8080/v1/recommendations \
//	  -H "Content-Type: application/json" \
//	  -d '{"symptoms": "anxiety, worry, fear, restlessness"}'
//
//	# List the catalog
//	curl http://localhost:8080/v1/remedies | jq
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/floressence/floressence/services/embedding"
	"github.com/floressence/floressence/services/nlp"
	"github.com/floressence/floressence/services/remedy"
	"github.com/floressence/floressence/services/remedy/match"
)

// warmupTimeout bounds the startup embedding warm-up. On expiry the engine
// serves with per-request embedding until the next rebuild.
const warmupTimeout = 2 * time.Minute

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation: inbound traceparent headers flow through
	// the otelgin middleware into every handler's request context.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger := slog.Default()

	// Open the vector cache BadgerDB for embedding persistence.
	// Graceful degradation: if unavailable, the engine recomputes item
	// vectors on every startup instead.
	var vectorStore match.VectorStore
	cacheDir := os.Getenv("VECTOR_CACHE_DIR")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cacheDir = filepath.Join(home, ".floressence", "cache", "vectors")
		}
	}
	var cacheDB *dgbadger.DB
	if cacheDir != "" {
		opts := dgbadger.DefaultOptions(cacheDir).WithLogger(nil)
		db, err := dgbadger.Open(opts)
		if err != nil {
			slog.Warn("Vector cache BadgerDB unavailable, embedding persistence disabled",
				slog.String("path", cacheDir),
				slog.String("error", err.Error()),
			)
		} else {
			cacheDB = db
			vectorStore = match.NewBadgerVectorStore(db, 0, logger)
			slog.Info("Vector cache BadgerDB opened", slog.String("path", cacheDir))
		}
	}

	// Assemble the engine. The embedding provider is required; the
	// extraction provider degrades to raw query text when unreachable, so
	// it is always wired.
	svc, err := remedy.NewService(remedy.Config{
		Embedder:    embedding.NewOllamaProvider(),
		Extractor:   nlp.NewChatExtractor(),
		VectorStore: vectorStore,
		CatalogPath: os.Getenv("CATALOG_PATH"),
		Logger:      logger,
	})
	if err != nil {
		slog.Error("Failed to initialize recommendation engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Warm item vectors in the background so startup is non-blocking. The
	// engine serves with per-request embedding until warm-up completes.
	go func() {
		// Panic recovery keeps a provider-client panic from killing the
		// process; the engine just stays unwarmed.
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				slog.Error("Panic in warm-up goroutine recovered",
					slog.Any("panic", r),
					slog.String("stack", string(buf[:n])),
				)
			}
		}()

		warmCtx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
		defer cancel()

		start := time.Now()
		if err := svc.WarmVectors(warmCtx); err != nil {
			slog.Warn("Vector warm-up failed, serving with per-request embedding",
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)),
			)
			return
		}
		slog.Info("Vector warm-up completed", slog.Duration("duration", time.Since(start)))
	}()

	// Watch an external catalog file for changes when one is configured.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if os.Getenv("CATALOG_PATH") != "" {
		go func() {
			if err := svc.WatchCatalog(watchCtx); err != nil && watchCtx.Err() == nil {
				slog.Warn("Catalog watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("floressence"))
	if *debug {
		router.Use(gin.Logger())
	}

	handlers := remedy.NewHandlers(svc, logger)
	v1 := router.Group("/v1")
	remedy.RegisterRoutes(v1, handlers)
	remedy.RegisterProbes(router, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Floressence server")
		stopWatch()
		if cacheDB != nil {
			if err := cacheDB.Close(); err != nil {
				slog.Warn("Failed to close vector cache BadgerDB", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Floressence server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildBanner assembles the startup banner. Interpolated quick-start lines
// are padded to a fixed width so the box edges stay aligned for any port.
func buildBanner(port int) string {
	row := func(s string) string { return fmt.Sprintf("║  %-64s ║\n", s) }
	quick := func(s string) string { return fmt.Sprintf("║  │ %-59s │  ║\n", s) }

	var b strings.Builder
	b.WriteString("\n╔" + strings.Repeat("═", 67) + "╗\n")
	b.WriteString(row("                      FLORESSENCE SERVER"))
	b.WriteString("╠" + strings.Repeat("═", 67) + "╣\n")
	b.WriteString(row(""))
	b.WriteString(row("Hybrid flower-essence recommendations: vector similarity,"))
	b.WriteString(row("relationship-graph lexical matching, and bundle suggestions."))
	b.WriteString(row(""))
	b.WriteString(row("Quick Start:"))
	b.WriteString("║  ┌" + strings.Repeat("─", 61) + "┐  ║\n")
	b.WriteString(quick("# Health check"))
	b.WriteString(quick(fmt.Sprintf("curl http://localhost:%d/health", port)))
	b.WriteString(quick(""))
	b.WriteString(quick("# Get a recommendation"))
	b.WriteString(quick(fmt.Sprintf("curl -X POST http://localhost:%d/v1/recommendations \\", port)))
	b.WriteString(quick(`  -H "Content-Type: application/json" \`))
	b.WriteString(quick(`  -d '{"symptoms": "anxiety and constant worry"}'`))
	b.WriteString(quick(""))
	b.WriteString(quick("# Browse the catalog"))
	b.WriteString(quick(fmt.Sprintf("curl http://localhost:%d/v1/remedies | jq", port)))
	b.WriteString("║  └" + strings.Repeat("─", 61) + "┘  ║\n")
	b.WriteString(row(""))
	b.WriteString(row("Endpoints:"))
	b.WriteString(row("├── POST /v1/recommendations"))
	b.WriteString(row("├── GET  /v1/remedies, /v1/remedies/:key, /v1/bundles"))
	b.WriteString(row("├── POST /v1/admin/rebuild-graph"))
	b.WriteString(row("└── GET  /health, /ready, /metrics"))
	b.WriteString(row(""))
	b.WriteString(row("Press Ctrl+C to stop"))
	b.WriteString("╚" + strings.Repeat("═", 67) + "╝\n")
	return b.String()
}

func printBanner(port int) {
	fmt.Print(buildBanner(port))
}
