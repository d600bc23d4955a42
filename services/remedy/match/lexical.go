// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package match

import (
	"log/slog"
	"sort"

	"github.com/floressence/floressence/services/remedy/catalog"
	"github.com/floressence/floressence/services/remedy/graph"
)

// Lexical field weights. Emotional-state language is the strongest signal
// by design; symptom and indicated-for overlap weigh in below it.
const (
	symptomWeight   = 2.0
	emotionalWeight = 3.0
	indicatedWeight = 2.5
)

// maxLexicalNeighbors caps the graph neighbors attached to each match.
const maxLexicalNeighbors = 3

// LexicalMatcher scores catalog items by weighted token overlap between the
// query and three item text fields, then decorates each surviving match
// with its relationship-graph neighbors.
//
// # Thread Safety
//
// Safe for concurrent use; all inputs are read-only.
type LexicalMatcher struct {
	logger *slog.Logger
}

// NewLexicalMatcher creates a LexicalMatcher. logger may be nil.
func NewLexicalMatcher(logger *slog.Logger) *LexicalMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LexicalMatcher{logger: logger}
}

// Match ranks items by raw lexical score and returns the top-k survivors.
//
// # Description
//
// Raw score = 2x symptom overlap + 3x emotional-state overlap +
// 2.5x indicated-for overlap, where each overlap is the size of the
// intersection between the query token set and that field's token set.
// Items scoring 0 are excluded entirely — zero relevance is not a match,
// and an all-zero query yields an empty (non-error) result. Ties are
// stable, preserving catalog iteration order.
//
// Each result carries relevance clamp(round(raw/2), 1, 10) and up to 3
// neighbor items from the relationship graph in adjacency order.
//
// # Inputs
//
//   - cat: The catalog snapshot. Must not be nil.
//   - g: The relationship graph built from the same catalog. Must not be nil.
//   - query: The query text.
//   - topK: Number of results to keep. Non-positive uses 2.
//
// # Outputs
//
//   - []*LexicalMatch: Top-k surviving matches, best first. May be empty.
func (m *LexicalMatcher) Match(cat *catalog.Catalog, g *graph.Graph, query string, topK int) []*LexicalMatch {
	if topK <= 0 {
		topK = 2
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type scored struct {
		item *catalog.Item
		raw  float64
	}
	results := make([]scored, 0, cat.Len())

	for _, it := range cat.Items {
		raw := symptomWeight*float64(overlap(queryTokens, TokenizeAll(it.Symptoms))) +
			emotionalWeight*float64(overlap(queryTokens, Tokenize(it.EmotionalState))) +
			indicatedWeight*float64(overlap(queryTokens, Tokenize(it.IndicatedFor)))
		if raw > 0 {
			results = append(results, scored{item: it, raw: raw})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].raw > results[j].raw
	})
	if len(results) > topK {
		results = results[:topK]
	}

	matches := make([]*LexicalMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, &LexicalMatch{
			Key:          r.item.Key,
			Name:         r.item.Name,
			Category:     r.item.Category,
			Symptoms:     r.item.Symptoms,
			IndicatedFor: r.item.IndicatedFor,
			RawScore:     r.raw,
			Relevance:    clampRelevance(r.raw / 2),
			Neighbors:    graphNeighbors(cat, g, r.item.Key),
		})
	}
	return matches
}

// graphNeighbors resolves up to maxLexicalNeighbors adjacent items for key,
// in the graph's adjacency (insertion) order.
func graphNeighbors(cat *catalog.Catalog, g *graph.Graph, key string) []RelatedItem {
	if !g.Has(key) {
		return nil
	}
	neighborKeys := g.Neighbors(key)
	if len(neighborKeys) > maxLexicalNeighbors {
		neighborKeys = neighborKeys[:maxLexicalNeighbors]
	}
	neighbors := make([]RelatedItem, 0, len(neighborKeys))
	for _, nk := range neighborKeys {
		peer, ok := cat.Item(nk)
		if !ok {
			continue
		}
		neighbors = append(neighbors, RelatedItem{
			Key:     peer.Key,
			Name:    peer.Name,
			Summary: peer.IndicatedFor,
		})
	}
	return neighbors
}
