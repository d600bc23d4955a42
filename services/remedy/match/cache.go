// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package match

// =============================================================================
// Item Vector Persistence
// =============================================================================
//
// Item description embeddings are expensive to compute (one provider call
// per catalog item) but change only when the catalog or the embedding model
// changes. This store persists them in BadgerDB between service restarts.
//
// The corpus hash — SHA256 of every item's key and document text plus the
// model name — serves as the cache key, so any catalog or model change
// invalidates the cached vectors automatically. TTL expiry is enforced by
// BadgerDB's native GC; expired keys surface as a plain cache miss.
//
// The store is optional: a nil VectorStore leaves the engine in
// in-memory-only mode, which is correct for tests and for deployments
// without a cache directory configured.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"

	"github.com/floressence/floressence/services/embedding"
	"github.com/floressence/floressence/services/remedy/catalog"
)

// vectorCacheDefaultTTL is the default lifetime of a cached vector entry.
const vectorCacheDefaultTTL = 7 * 24 * time.Hour

// vectorCacheKeyPrefix is prepended to the corpus hash to form the BadgerDB
// key. Versioned to allow future format changes without collision.
const vectorCacheKeyPrefix = "remedy/emb/v1/"

// warmConcurrency limits parallel provider calls during WarmItemVectors.
const warmConcurrency = 8

// errCacheMiss distinguishes "key not found" from a genuine storage error.
var errCacheMiss = errors.New("cache miss")

// VectorStore persists unit-normalized item embedding vectors across
// service restarts.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// LoadVectors retrieves cached vectors for the given corpus hash.
	// Returns (nil, nil) on cache miss, (nil, error) on storage failure.
	LoadVectors(ctx context.Context, corpusHash string) (map[string][]float32, error)

	// SaveVectors persists vectors for the given corpus hash with the
	// store's TTL. Persistence failure is non-fatal to callers — vectors
	// are already in memory and will be recomputed on the next restart.
	SaveVectors(ctx context.Context, corpusHash string, vectors map[string][]float32) error
}

// =============================================================================
// BadgerVectorStore
// =============================================================================

// BadgerVectorStore implements VectorStore on a BadgerDB instance owned by
// the caller (opened in main, closed at shutdown). Vectors are gob-encoded
// as map[string][]float32.
type BadgerVectorStore struct {
	db     *dgbadger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerVectorStore creates a store on an opened DB.
//
// # Inputs
//
//   - db: Opened BadgerDB. Must not be nil; the caller owns its lifecycle.
//   - ttl: Entry lifetime. Non-positive uses the default (7 days).
//   - logger: May be nil.
func NewBadgerVectorStore(db *dgbadger.DB, ttl time.Duration, logger *slog.Logger) *BadgerVectorStore {
	if db == nil {
		panic("NewBadgerVectorStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = vectorCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerVectorStore{db: db, ttl: ttl, logger: logger}
}

// LoadVectors retrieves cached unit-normalized item vectors.
func (s *BadgerVectorStore) LoadVectors(_ context.Context, corpusHash string) (map[string][]float32, error) {
	key := []byte(vectorCacheKeyPrefix + corpusHash)

	var raw []byte
	err := s.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		s.logger.Debug("vector cache: miss", slog.String("hash", shortHash(corpusHash)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector cache load: %w", err)
	}

	var vectors map[string][]float32
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&vectors); err != nil {
		return nil, fmt.Errorf("vector cache decode: %w", err)
	}

	s.logger.Debug("vector cache: hit",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("item_count", len(vectors)),
	)
	return vectors, nil
}

// SaveVectors persists unit-normalized item vectors with the store's TTL.
func (s *BadgerVectorStore) SaveVectors(_ context.Context, corpusHash string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vectors); err != nil {
		return fmt.Errorf("vector cache encode: %w", err)
	}

	key := []byte(vectorCacheKeyPrefix + corpusHash)
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, buf.Bytes()).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("vector cache save: %w", err)
	}

	s.logger.Debug("vector cache: saved",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("item_count", len(vectors)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// =============================================================================
// Corpus Hash and Warm-Up
// =============================================================================

// modelNamer is implemented by providers that expose their model name.
// The model name participates in the corpus hash so switching models
// invalidates cached vectors.
type modelNamer interface {
	Model() string
}

// CorpusHash computes a deterministic SHA256 over every item's key and
// document text plus the embedding model name. Catalog order is part of
// the digest input, but items are already deterministically ordered.
func CorpusHash(cat *catalog.Catalog, provider embedding.Provider) string {
	h := sha256.New()
	if named, ok := provider.(modelNamer); ok {
		h.Write([]byte(named.Model()))
		h.Write([]byte{0})
	}
	for _, it := range cat.Items {
		h.Write([]byte(it.Key))
		h.Write([]byte{0})
		h.Write([]byte(it.Document()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// shortHash truncates a corpus hash for log lines.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// WarmItemVectors computes (or loads) unit-normalized embedding vectors for
// every catalog item.
//
// # Description
//
// Checks the store first; on a miss, embeds every item document in parallel
// (up to warmConcurrency concurrent provider calls), normalizes the
// results, and persists them. Warm-up is all-or-nothing: if any item fails
// to embed, the error is returned and the caller stays unwarmed, falling
// back to per-request embedding. Persistence failure after a successful
// warm-up is logged and ignored — the vectors are already in memory.
//
// # Inputs
//
//   - ctx: Context for provider and store calls.
//   - provider: The embedding collaborator. Must not be nil.
//   - cat: The catalog to warm. Must not be nil.
//   - store: Optional persistence. Nil disables load/save.
//   - logger: May be nil.
//
// # Outputs
//
//   - map[string][]float32: Item key → unit-normalized vector, one entry
//     per catalog item. Nil on error.
//   - error: Non-nil when any embedding call fails.
func WarmItemVectors(ctx context.Context, provider embedding.Provider, cat *catalog.Catalog, store VectorStore, logger *slog.Logger) (map[string][]float32, error) {
	if logger == nil {
		logger = slog.Default()
	}

	corpusHash := CorpusHash(cat, provider)
	if store != nil {
		cached, err := store.LoadVectors(ctx, corpusHash)
		if err != nil {
			logger.Warn("vector warm-up: store load failed, recomputing",
				slog.String("error", err.Error()),
			)
		} else if len(cached) == cat.Len() {
			logger.Info("vector warm-up: loaded from cache",
				slog.Int("item_count", len(cached)),
				slog.String("corpus_hash", shortHash(corpusHash)),
			)
			return cached, nil
		}
	}

	logger.Info("vector warm-up: embedding catalog",
		slog.Int("item_count", cat.Len()),
		slog.String("corpus_hash", shortHash(corpusHash)),
	)

	type result struct {
		key    string
		vector []float32
	}
	resultCh := make(chan result, cat.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	for _, it := range cat.Items {
		item := it
		g.Go(func() error {
			raw, err := provider.Embed(gctx, item.Document())
			if err != nil {
				return fmt.Errorf("embed item %q: %w", item.Key, err)
			}
			unit := embedding.Normalize(raw)
			if unit == nil {
				return fmt.Errorf("embed item %q: zero-norm vector", item.Key)
			}
			resultCh <- result{key: item.Key, vector: unit}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("vector warm-up: %w", err)
	}
	close(resultCh)

	vectors := make(map[string][]float32, cat.Len())
	for r := range resultCh {
		vectors[r.key] = r.vector
	}

	if store != nil {
		if err := store.SaveVectors(ctx, corpusHash, vectors); err != nil {
			logger.Warn("vector warm-up: failed to persist vectors",
				slog.String("error", err.Error()),
				slog.String("corpus_hash", shortHash(corpusHash)),
			)
		}
	}

	logger.Info("vector warm-up: complete", slog.Int("item_count", len(vectors)))
	return vectors, nil
}
