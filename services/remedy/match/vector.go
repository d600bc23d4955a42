// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/floressence/floressence/services/embedding"
	"github.com/floressence/floressence/services/remedy/catalog"
)

// defaultVectorTopK is used when the caller passes a non-positive top-k.
const defaultVectorTopK = 2

// VectorMatcher ranks catalog items against a query by cosine similarity
// of embedding vectors.
//
// # Description
//
// Each item's document is the concatenation of its symptom phrases, its
// emotional-state text, and its indicated-for text. The matcher prefers
// precomputed unit-normalized item vectors (supplied by the caller from the
// warm cache); when none are supplied it embeds every item per call, which
// is the reference behavior and correspondingly slower.
//
// Embedding provider errors are surfaced unchanged — all scoring depends on
// vectors, so there is no fallback and no retry here.
//
// # Thread Safety
//
// Safe for concurrent use; the matcher holds no per-request state.
type VectorMatcher struct {
	provider embedding.Provider
	logger   *slog.Logger
}

// NewVectorMatcher creates a VectorMatcher.
//
// # Inputs
//
//   - provider: The embedding collaborator. Must not be nil.
//   - logger: Logger for diagnostics. May be nil.
func NewVectorMatcher(provider embedding.Provider, logger *slog.Logger) *VectorMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorMatcher{provider: provider, logger: logger}
}

// Match scores every catalog item against the query and returns the top-k
// by descending cosine similarity.
//
// # Description
//
// Ties are stable: equal similarities preserve catalog iteration order, so
// the first-defined item wins. Each result carries the raw similarity, a
// derived relevance score clamp(round(similarity*10), 1, 10), and the
// item's related items drawn from its association list (not the graph).
//
// # Inputs
//
//   - ctx: Context for the embedding calls.
//   - cat: The catalog snapshot to score. Must not be nil.
//   - itemVectors: Optional precomputed unit-normalized vectors keyed by
//     item key. Nil or incomplete maps fall back to per-call embedding for
//     the missing items.
//   - query: The query text. Must be non-empty (validated by the caller).
//   - topK: Number of results to keep. Non-positive uses the default (2).
//
// # Outputs
//
//   - []*VectorMatch: Top-k matches, best first. Never nil on success.
//   - error: Non-nil when any embedding call fails.
func (m *VectorMatcher) Match(ctx context.Context, cat *catalog.Catalog, itemVectors map[string][]float32, query string, topK int) ([]*VectorMatch, error) {
	if topK <= 0 {
		topK = defaultVectorTopK
	}

	queryVec, err := m.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryUnit := embedding.Normalize(queryVec)
	if queryUnit == nil {
		return nil, fmt.Errorf("embed query: zero-norm vector")
	}

	type scored struct {
		item *catalog.Item
		sim  float64
	}
	results := make([]scored, 0, cat.Len())

	for _, it := range cat.Items {
		vec, ok := itemVectors[it.Key]
		if !ok {
			raw, embErr := m.provider.Embed(ctx, it.Document())
			if embErr != nil {
				return nil, fmt.Errorf("embed item %q: %w", it.Key, embErr)
			}
			vec = embedding.Normalize(raw)
			if vec == nil {
				return nil, fmt.Errorf("embed item %q: zero-norm vector", it.Key)
			}
		}
		// Both vectors are unit length, so cosine reduces to a dot product.
		results = append(results, scored{item: it, sim: embedding.Dot(queryUnit, vec)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].sim > results[j].sim
	})
	if len(results) > topK {
		results = results[:topK]
	}

	matches := make([]*VectorMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, &VectorMatch{
			Key:          r.item.Key,
			Name:         r.item.Name,
			Category:     r.item.Category,
			Symptoms:     r.item.Symptoms,
			IndicatedFor: r.item.IndicatedFor,
			Similarity:   r.sim,
			Relevance:    clampRelevance(r.sim * 10),
			Related:      relatedFromAssociations(cat, r.item),
		})
	}
	return matches, nil
}

// relatedFromAssociations resolves an item's association list to compact
// references. Associations are already pruned at catalog load, so every
// key resolves.
func relatedFromAssociations(cat *catalog.Catalog, it *catalog.Item) []RelatedItem {
	if len(it.Associations) == 0 {
		return nil
	}
	related := make([]RelatedItem, 0, len(it.Associations))
	for _, key := range it.Associations {
		peer, ok := cat.Item(key)
		if !ok {
			continue
		}
		related = append(related, RelatedItem{
			Key:     peer.Key,
			Name:    peer.Name,
			Summary: peer.IndicatedFor,
		})
	}
	return related
}
