// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package match implements the three scoring stages of the hybrid
// recommendation engine: dense vector similarity, weighted lexical overlap
// against the relationship graph, and bundle composition overlap.
package match

import "math"

// Method discriminates the three match variants. Every result type carries
// its method tag so the orchestrator can merge them type-safely instead of
// dispatching on ad hoc maps.
type Method string

const (
	MethodVector  Method = "vector_similarity"
	MethodLexical Method = "knowledge_graph"
	MethodBundle  Method = "bundle_overlap"
)

// Match is the shared shape of all three result variants: an item (or
// bundle) reference plus a normalized 1-10 relevance score.
type Match interface {
	MatchMethod() Method
	RelevanceScore() int
}

// RelatedItem is a compact reference to another catalog item, used both for
// association-derived related items (vector matches) and graph neighbors
// (lexical matches).
type RelatedItem struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// VectorMatch is a single vector-similarity result.
type VectorMatch struct {
	Key          string        `json:"remedy_id"`
	Name         string        `json:"remedy_name"`
	Category     string        `json:"category"`
	Symptoms     []string      `json:"symptoms"`
	IndicatedFor string        `json:"indicated_for"`
	Similarity   float64       `json:"similarity_score"`
	Relevance    int           `json:"relevance_score"`
	Related      []RelatedItem `json:"related_remedies,omitempty"`
}

func (m *VectorMatch) MatchMethod() Method { return MethodVector }
func (m *VectorMatch) RelevanceScore() int { return m.Relevance }

// LexicalMatch is a single lexical-overlap result with its graph neighbors.
type LexicalMatch struct {
	Key          string        `json:"remedy_id"`
	Name         string        `json:"remedy_name"`
	Category     string        `json:"category"`
	Symptoms     []string      `json:"symptoms"`
	IndicatedFor string        `json:"indicated_for"`
	RawScore     float64       `json:"raw_score"`
	Relevance    int           `json:"relevance_score"`
	Neighbors    []RelatedItem `json:"connected_remedies,omitempty"`
}

func (m *LexicalMatch) MatchMethod() Method { return MethodLexical }
func (m *LexicalMatch) RelevanceScore() int { return m.Relevance }

// BundleMemberDetail is a resolved bundle member for display.
type BundleMemberDetail struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Drops   int    `json:"drops"`
	Summary string `json:"summary"`
}

// BundleMatch is a single bundle suggestion.
type BundleMatch struct {
	Key          string               `json:"bundle_id"`
	Name         string               `json:"bundle_name"`
	Members      []BundleMemberDetail `json:"members"`
	TotalDrops   int                  `json:"total_drops"`
	Dosage       string               `json:"dosage"`
	Purpose      string               `json:"purpose"`
	SuitableFor  []string             `json:"suitable_for"`
	OverlapScore int                  `json:"overlap_score"`
	Relevance    int                  `json:"relevance_score"`
	MatchedItems []string             `json:"matched_remedies,omitempty"`
}

func (m *BundleMatch) MatchMethod() Method { return MethodBundle }
func (m *BundleMatch) RelevanceScore() int { return m.Relevance }

// clampRelevance rounds x and clamps the result into the 1-10 relevance
// range shared by all matchers.
func clampRelevance(x float64) int {
	r := int(math.Round(x))
	if r < 1 {
		return 1
	}
	if r > 10 {
		return 10
	}
	return r
}
