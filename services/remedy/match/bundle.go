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
)

// Bundle scoring weights and limits.
const (
	// suitableForWeight multiplies the overlap between query tokens and a
	// bundle's suitable-for tags.
	suitableForWeight = 3

	// chosenMemberWeight multiplies the count of bundle members already
	// selected by the vector/lexical matchers. Composition overlap with the
	// per-item matchers is the stronger signal.
	chosenMemberWeight = 5

	// maxBundleSuggestions caps the suggestions returned per request.
	maxBundleSuggestions = 2
)

// BundleRecommender scores pre-defined bundles against the query tokens and
// the set of items already chosen by the two per-item matchers.
//
// # Thread Safety
//
// Safe for concurrent use; all inputs are read-only.
type BundleRecommender struct {
	logger *slog.Logger
}

// NewBundleRecommender creates a BundleRecommender. logger may be nil.
func NewBundleRecommender(logger *slog.Logger) *BundleRecommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &BundleRecommender{logger: logger}
}

// Recommend returns at most 2 bundle suggestions ranked by overlap score.
//
// # Description
//
// For each bundle, overlap = 3x |query tokens ∩ suitable-for tokens| +
// 5x |members ∩ already-chosen keys|. Bundles with overlap <= 0 are
// discarded; the rest sort descending with a stable tie-break on
// definition order. Unlike the two per-item matchers, the relevance score
// is the composite overlap clamped directly into [1, 10] — no division.
//
// # Inputs
//
//   - cat: The catalog snapshot (bundles and member resolution).
//   - query: The query text.
//   - chosen: Keys of items already selected by the matchers. May be empty.
//
// # Outputs
//
//   - []*BundleMatch: Up to 2 suggestions, best first. May be empty.
func (r *BundleRecommender) Recommend(cat *catalog.Catalog, query string, chosen []string) []*BundleMatch {
	queryTokens := Tokenize(query)

	chosenSet := make(map[string]bool, len(chosen))
	for _, key := range chosen {
		chosenSet[key] = true
	}

	type scored struct {
		bundle  *catalog.Bundle
		score   int
		matched []string
	}
	results := make([]scored, 0, len(cat.Bundles))

	for _, b := range cat.Bundles {
		tagOverlap := overlap(queryTokens, TokenizeAll(b.SuitableFor))

		var matched []string
		for _, m := range b.Members {
			if chosenSet[m.Key] {
				matched = append(matched, m.Key)
			}
		}

		score := suitableForWeight*tagOverlap + chosenMemberWeight*len(matched)
		if score <= 0 {
			continue
		}
		results = append(results, scored{bundle: b, score: score, matched: matched})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > maxBundleSuggestions {
		results = results[:maxBundleSuggestions]
	}

	matches := make([]*BundleMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, &BundleMatch{
			Key:          r.bundle.Key,
			Name:         r.bundle.Name,
			Members:      ResolveMembers(cat, r.bundle),
			TotalDrops:   r.bundle.TotalDrops,
			Dosage:       r.bundle.Dosage,
			Purpose:      r.bundle.Purpose,
			SuitableFor:  r.bundle.SuitableFor,
			OverlapScore: r.score,
			Relevance:    clampRelevance(float64(r.score)),
			MatchedItems: r.matched,
		})
	}
	return matches
}

// ResolveMembers expands a bundle's member keys to display details. Member
// keys are validated at catalog load, so every key resolves.
func ResolveMembers(cat *catalog.Catalog, b *catalog.Bundle) []BundleMemberDetail {
	members := make([]BundleMemberDetail, 0, len(b.Members))
	for _, m := range b.Members {
		it, ok := cat.Item(m.Key)
		if !ok {
			continue
		}
		members = append(members, BundleMemberDetail{
			Key:     it.Key,
			Name:    it.Name,
			Drops:   m.Drops,
			Summary: it.IndicatedFor,
		})
	}
	return members
}
