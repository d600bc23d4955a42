// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remedy

import (
	"github.com/floressence/floressence/services/remedy/catalog"
	"github.com/floressence/floressence/services/remedy/match"
)

// ExtractionMeta echoes the sentiment analysis performed when extraction
// mode is used, alongside the original, pre-extraction query text.
type ExtractionMeta struct {
	OriginalText          string  `json:"original_text"`
	SentimentPolarity     float64 `json:"sentiment_polarity"`
	SentimentSubjectivity float64 `json:"sentiment_subjectivity"`
}

// Recommendation is the full per-request response object.
//
// No component result is ever silently dropped: a matcher that yields
// nothing leaves its slot null (or empty for bundles), never omitted.
type Recommendation struct {
	VectorMatch    *match.VectorMatch    `json:"vector_recommendation"`
	LexicalMatch   *match.LexicalMatch   `json:"knowledge_graph_recommendation"`
	Bundles        []*match.BundleMatch  `json:"bundle_recommendations"`
	QueryAnalyzed  string                `json:"symptoms_analyzed"`
	ExtractionUsed bool                  `json:"nlp_mode"`
	Extraction     *ExtractionMeta       `json:"nlp_analysis,omitempty"`
}

// NeighborView is a compact graph-neighbor reference for remedy detail
// responses.
type NeighborView struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// RemedyDetail is a single catalog item plus its relationship-graph
// neighbors in adjacency order.
type RemedyDetail struct {
	Item      *catalog.Item  `json:"remedy"`
	Connected []NeighborView `json:"connected_remedies"`
}

// BundleView is a bundle with resolved member details, for read-only
// display outside a recommendation context.
type BundleView struct {
	Key         string                     `json:"bundle_id"`
	Name        string                     `json:"bundle_name"`
	Members     []match.BundleMemberDetail `json:"members"`
	TotalDrops  int                        `json:"total_drops"`
	Dosage      string                     `json:"dosage"`
	Purpose     string                     `json:"purpose"`
	SuitableFor []string                   `json:"suitable_for"`
}
