// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package remedy implements the hybrid flower-essence recommendation
// engine: a vector matcher and a lexical matcher scored independently over
// an immutable catalog, reconciled with pre-defined bundle suggestions by
// the orchestrator.
package remedy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/floressence/floressence/services/embedding"
	"github.com/floressence/floressence/services/nlp"
	"github.com/floressence/floressence/services/remedy/catalog"
	"github.com/floressence/floressence/services/remedy/graph"
	"github.com/floressence/floressence/services/remedy/match"
)

var tracer = otel.Tracer("floressence.remedy")

// recommendTimeout bounds the external collaborator work of one request.
// On expiry the embedding call fails and the request fails with a
// collaborator error; extraction degrades to raw text before this fires.
const recommendTimeout = 30 * time.Second

// watchDebounce coalesces bursts of catalog-file write events into one
// rebuild.
const watchDebounce = 500 * time.Millisecond

// Config assembles a Service. The engine owns no globals — catalog, graph,
// and collaborators are injected so tests can run on fixture catalogs.
type Config struct {
	// Embedder is the embedding collaborator. Must not be nil.
	Embedder embedding.Provider

	// Extractor is the optional extraction collaborator. Nil disables
	// extraction mode (requests with extraction enabled degrade to the
	// raw query text).
	Extractor nlp.Extractor

	// VectorStore optionally persists item vectors between restarts.
	// Nil means in-memory-only.
	VectorStore match.VectorStore

	// CatalogPath optionally loads the catalog from an external YAML file
	// instead of the embedded default, and enables WatchCatalog.
	CatalogPath string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// snapshot is the swappable catalog/graph/vectors triple. Readers take the
// whole snapshot once per request; the rebuild path constructs a complete
// replacement and swaps it atomically, never mutating in place.
type snapshot struct {
	cat     *catalog.Catalog
	graph   *graph.Graph
	vectors map[string][]float32 // nil until warmed
}

// Service is the recommendation orchestrator and the engine's public
// surface toward the transport layer.
//
// # Thread Safety
//
// Safe for concurrent use. The snapshot has a single writer (rebuild) and
// many readers; readers always observe a fully built catalog/graph pair.
type Service struct {
	embedder    embedding.Provider
	extractor   nlp.Extractor
	vectorStore match.VectorStore
	catalogPath string
	logger      *slog.Logger

	vector  *match.VectorMatcher
	lexical *match.LexicalMatcher
	bundles *match.BundleRecommender

	snap      atomic.Pointer[snapshot]
	rebuildMu sync.Mutex
}

// NewService loads the catalog, builds the relationship graph, and returns
// a ready Service.
//
// # Description
//
// A malformed catalog is fatal here — rebuild failures belong to startup
// and rebuild time, never to request time. Item vectors are not warmed yet;
// call WarmVectors (typically from a background goroutine at startup) to
// precompute them. Until then the vector matcher embeds items per request,
// which is the reference behavior.
//
// # Outputs
//
//   - *Service: The engine. Nil on error.
//   - error: Non-nil on catalog load or validation failure.
func NewService(cfg Config) (*Service, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("remedy: Config.Embedder must not be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	s := &Service{
		embedder:    cfg.Embedder,
		extractor:   cfg.Extractor,
		vectorStore: cfg.VectorStore,
		catalogPath: cfg.CatalogPath,
		logger:      logger,
		vector:      match.NewVectorMatcher(cfg.Embedder, logger),
		lexical:     match.NewLexicalMatcher(logger),
		bundles:     match.NewBundleRecommender(logger),
	}
	s.snap.Store(&snapshot{cat: cat, graph: graph.Build(cat)})

	logger.Info("remedy engine ready",
		slog.Int("items", cat.Len()),
		slog.Int("bundles", len(cat.Bundles)),
		slog.Int("graph_edges", s.snap.Load().graph.EdgeCount()),
	)
	return s, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Load()
}

// WarmVectors precomputes unit-normalized embedding vectors for every item
// in the current catalog and swaps them into the snapshot.
//
// # Description
//
// Safe to call at startup and after every rebuild. On failure the engine
// stays unwarmed and the vector matcher falls back to per-request
// embedding; the error is returned for logging, not fatal to the service.
func (s *Service) WarmVectors(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	snap := s.snap.Load()
	vectors, err := match.WarmItemVectors(ctx, s.embedder, snap.cat, s.vectorStore, s.logger)
	if err != nil {
		return err
	}
	s.snap.Store(&snapshot{cat: snap.cat, graph: snap.graph, vectors: vectors})
	return nil
}

// Warmed reports whether item vectors are precomputed.
func (s *Service) Warmed() bool {
	return s.snap.Load().vectors != nil
}

// Recommend is the primary entry point: scores the catalog against the
// query with both matchers, then ranks bundle suggestions.
//
// # Description
//
//  1. Rejects empty or blank query text before invoking any matcher.
//  2. With extraction enabled, scores sentiment locally and asks the
//     extraction collaborator for a normalized symptom phrase; on provider
//     failure the original text is used unchanged (graceful degradation,
//     logged and counted).
//  3. Runs the vector and lexical matchers concurrently (top-1 each) —
//     they share only read-only state.
//  4. Feeds the union of selected item keys to the bundle recommender.
//  5. Assembles the Recommendation. Empty matcher results stay as null
//     slots; nothing is silently dropped. An embedding failure fails the
//     whole request — the orchestrator never partially succeeds.
//
// # Inputs
//
//   - ctx: Request context. A collaborator timeout is applied internally.
//   - query: The user's condition description. Must be non-blank.
//   - useExtraction: Enables the extraction step.
//
// # Outputs
//
//   - *Recommendation: The assembled result. Nil on error.
//   - error: *Error with KindValidation or KindCollaborator.
func (s *Service) Recommend(ctx context.Context, query string, useExtraction bool) (*Recommendation, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "remedy.Recommend")
	defer span.End()
	span.SetAttributes(
		attribute.Int("query_length", len(query)),
		attribute.Bool("extraction", useExtraction),
	)

	if strings.TrimSpace(query) == "" {
		recommendationsTotal.WithLabelValues("validation_error").Inc()
		span.SetStatus(codes.Error, "blank query")
		return nil, NewValidationError("query text must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, recommendTimeout)
	defer cancel()

	snap := s.snap.Load()

	working := query
	var meta *ExtractionMeta
	if useExtraction {
		working, meta = s.extract(ctx, query)
	}

	var (
		vecMatches []*match.VectorMatch
		lexMatches []*match.LexicalMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ms, err := s.vector.Match(gctx, snap.cat, snap.vectors, working, 1)
		if err != nil {
			return err
		}
		vecMatches = ms
		return nil
	})
	g.Go(func() error {
		lexMatches = s.lexical.Match(snap.cat, snap.graph, working, 1)
		return nil
	})
	if err := g.Wait(); err != nil {
		recommendationsTotal.WithLabelValues("collaborator_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding provider failed")
		return nil, NewCollaboratorError("embedding provider", err)
	}

	chosen := make([]string, 0, 2)
	rec := &Recommendation{
		QueryAnalyzed:  working,
		ExtractionUsed: useExtraction,
		Extraction:     meta,
		Bundles:        []*match.BundleMatch{},
	}
	if len(vecMatches) > 0 {
		rec.VectorMatch = vecMatches[0]
		chosen = append(chosen, vecMatches[0].Key)
	}
	if len(lexMatches) > 0 {
		rec.LexicalMatch = lexMatches[0]
		if rec.VectorMatch == nil || lexMatches[0].Key != rec.VectorMatch.Key {
			chosen = append(chosen, lexMatches[0].Key)
		}
	}

	rec.Bundles = s.bundles.Recommend(snap.cat, working, chosen)

	recommendationsTotal.WithLabelValues("success").Inc()
	recommendLatency.Observe(time.Since(start).Seconds())
	s.logger.Info("recommendation served",
		slog.Bool("extraction", useExtraction),
		slog.Int("chosen_items", len(chosen)),
		slog.Int("bundle_suggestions", len(rec.Bundles)),
		slog.Duration("duration", time.Since(start)),
	)
	return rec, nil
}

// extract runs the extraction step: local sentiment always, LLM phrase
// extraction best effort. Returns the working query text and the echo
// metadata for the response.
func (s *Service) extract(ctx context.Context, query string) (string, *ExtractionMeta) {
	sent := nlp.ScoreSentiment(query)
	meta := &ExtractionMeta{
		OriginalText:          query,
		SentimentPolarity:     sent.Polarity,
		SentimentSubjectivity: sent.Subjectivity,
	}

	if s.extractor == nil {
		s.logger.Debug("extraction requested but no extractor configured, using raw text")
		return query, meta
	}

	phrase, err := s.extractor.Extract(ctx, query)
	if err != nil {
		// Extraction is non-fatal: degrade to the original text.
		extractionFallbackTotal.Inc()
		s.logger.Warn("extraction failed, falling back to raw query text",
			slog.String("error", err.Error()),
		)
		return query, meta
	}
	return phrase, meta
}

// Remedies returns all catalog items in definition order.
func (s *Service) Remedies() []*catalog.Item {
	return s.snap.Load().cat.Items
}

// Remedy returns one item with its relationship-graph neighbors.
//
// # Outputs
//
//   - *RemedyDetail: The item and its neighbors in adjacency order.
//   - error: *Error with KindNotFound for unknown keys — never a default
//     or empty object.
func (s *Service) Remedy(key string) (*RemedyDetail, error) {
	snap := s.snap.Load()
	it, ok := snap.cat.Item(key)
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("remedy %q not found", key))
	}

	neighborKeys := snap.graph.Neighbors(key)
	connected := make([]NeighborView, 0, len(neighborKeys))
	for _, nk := range neighborKeys {
		peer, ok := snap.cat.Item(nk)
		if !ok {
			continue
		}
		connected = append(connected, NeighborView{
			Key:      peer.Key,
			Name:     peer.Name,
			Category: peer.Category,
		})
	}
	return &RemedyDetail{Item: it, Connected: connected}, nil
}

// Bundles returns all static bundles with resolved member details, in
// definition order.
func (s *Service) Bundles() []*BundleView {
	snap := s.snap.Load()
	views := make([]*BundleView, 0, len(snap.cat.Bundles))
	for _, b := range snap.cat.Bundles {
		views = append(views, &BundleView{
			Key:         b.Key,
			Name:        b.Name,
			Members:     match.ResolveMembers(snap.cat, b),
			TotalDrops:  b.TotalDrops,
			Dosage:      b.Dosage,
			Purpose:     b.Purpose,
			SuitableFor: b.SuitableFor,
		})
	}
	return views
}

// RebuildGraph re-derives the relationship graph (and the whole snapshot)
// from the catalog definition.
//
// # Description
//
// Idempotent: rebuilding twice with no catalog change yields an identical
// graph. The replacement snapshot is fully constructed before the swap, so
// concurrent readers see either the old state or the new state in full,
// never a partially populated graph. Item vectors are re-warmed best
// effort; on warm failure the engine serves per-request embedding until
// the next successful warm.
//
// # Outputs
//
//   - error: Non-nil when the catalog fails to load or validate. The
//     previous snapshot stays in service on failure.
func (s *Service) RebuildGraph(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	cat, err := loadCatalog(s.catalogPath)
	if err != nil {
		graphRebuildsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rebuild: %w", err)
	}

	next := &snapshot{cat: cat, graph: graph.Build(cat)}

	vectors, warmErr := match.WarmItemVectors(ctx, s.embedder, cat, s.vectorStore, s.logger)
	if warmErr != nil {
		s.logger.Warn("rebuild: vector warm-up failed, serving per-request embedding",
			slog.String("error", warmErr.Error()),
		)
	} else {
		next.vectors = vectors
	}

	s.snap.Store(next)
	graphRebuildsTotal.WithLabelValues("success").Inc()
	s.logger.Info("relationship graph rebuilt",
		slog.Int("items", cat.Len()),
		slog.Int("graph_edges", next.graph.EdgeCount()),
		slog.Bool("warmed", next.vectors != nil),
	)
	return nil
}

// WatchCatalog watches the external catalog file and rebuilds on change.
//
// # Description
//
// Requires CatalogPath; returns immediately with an error otherwise.
// Write bursts are debounced. A rebuild failure keeps the previous
// snapshot in service and is logged, not fatal. Blocks until ctx is done.
func (s *Service) WatchCatalog(ctx context.Context) error {
	if s.catalogPath == "" {
		return fmt.Errorf("watch: no catalog path configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.catalogPath); err != nil {
		return fmt.Errorf("watch %s: %w", s.catalogPath, err)
	}
	s.logger.Info("watching catalog file", slog.String("path", s.catalogPath))

	var timer *time.Timer
	rebuilds := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case rebuilds <- struct{}{}:
				default:
				}
			})

		case <-rebuilds:
			if err := s.RebuildGraph(ctx); err != nil {
				s.logger.Error("catalog change rebuild failed, keeping previous snapshot",
					slog.String("error", err.Error()),
				)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("catalog watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
