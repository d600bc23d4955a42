// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"github.com/floressence/floressence/services/remedy/catalog"
)

// Edge weights for the two relationship classes.
const (
	// AssociationWeight is assigned to edges derived from an item's
	// explicit association list.
	AssociationWeight = 0.8

	// CategoryWeight is assigned to edges between items sharing a category.
	// The category pass runs after the association pass and overwrites the
	// weight of an edge that already exists (last-write-wins). A pair
	// connected by both an association and a shared category therefore ends
	// up at 0.6, not 0.8. This replicates the reference construction order
	// exactly; see Build.
	CategoryWeight = 0.6
)

// node holds one catalog item and its adjacency in insertion order.
type node struct {
	item *catalog.Item

	// neighbors preserves edge insertion order: association edges are
	// inserted before category edges for a given node, so explicit
	// associations tend to appear first in Neighbors results.
	neighbors []string
	seen      map[string]bool
}

// Graph is the undirected relationship graph derived from a catalog.
//
// # Description
//
// Nodes are catalog items; edges connect items by explicit association
// (weight 0.8) and by shared category (weight 0.6, overwriting). The graph
// is derived wholesale from a catalog by Build and is never patched — a
// catalog change means a full rebuild and an atomic swap by the owner.
//
// # Thread Safety
//
// Immutable after Build; safe for concurrent use.
type Graph struct {
	nodes map[string]*node
	order []string

	// weights is keyed by the normalized (lexicographically ordered) pair.
	weights map[[2]string]float64
}

// Build derives the relationship graph from a catalog.
//
// # Description
//
// Pure and deterministic given catalog iteration order. For each item, in
// catalog order:
//
//  1. Insert the node.
//  2. Add one edge per resolvable association, weight 0.8.
//  3. Add one edge per same-category peer (catalog order), weight 0.6.
//     If the edge already exists, only its weight is overwritten;
//     adjacency membership and order are unchanged.
//
// Step 3 deliberately overwrites association weights for same-category
// pairs. Building twice from the same catalog yields identical node and
// edge sets with identical weights.
//
// # Inputs
//
//   - cat: The source catalog. Must not be nil.
//
// # Outputs
//
//   - *Graph: The derived graph. Never nil.
func Build(cat *catalog.Catalog) *Graph {
	g := &Graph{
		nodes:   make(map[string]*node, cat.Len()),
		order:   make([]string, 0, cat.Len()),
		weights: make(map[[2]string]float64),
	}

	for _, it := range cat.Items {
		g.ensureNode(it)
	}

	for _, it := range cat.Items {
		for _, assoc := range it.Associations {
			if _, ok := cat.Item(assoc); !ok {
				continue // dangling keys are ignored
			}
			g.addEdge(it.Key, assoc, AssociationWeight)
		}

		for _, other := range cat.Items {
			if other.Key == it.Key || other.Category != it.Category {
				continue
			}
			g.addEdge(it.Key, other.Key, CategoryWeight)
		}
	}

	return g
}

func (g *Graph) ensureNode(it *catalog.Item) {
	if _, ok := g.nodes[it.Key]; ok {
		return
	}
	g.nodes[it.Key] = &node{item: it, seen: make(map[string]bool)}
	g.order = append(g.order, it.Key)
}

// addEdge inserts an undirected edge, or overwrites the stored weight when
// the pair is already connected. The seen guards keep adjacency membership
// and order unchanged on overwrite.
func (g *Graph) addEdge(a, b string, weight float64) {
	g.weights[pairKey(a, b)] = weight

	na := g.nodes[a]
	if !na.seen[b] {
		na.seen[b] = true
		na.neighbors = append(na.neighbors, b)
	}
	nb := g.nodes[b]
	if !nb.seen[a] {
		nb.seen[a] = true
		nb.neighbors = append(nb.neighbors, a)
	}
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// Has reports whether the item key exists as a node.
func (g *Graph) Has(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// Neighbors returns the adjacency of the given node in insertion order.
// Returns nil for unknown keys.
func (g *Graph) Neighbors(key string) []string {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	out := make([]string, len(n.neighbors))
	copy(out, n.neighbors)
	return out
}

// Weight returns the stored weight of the edge between a and b, and whether
// such an edge exists.
func (g *Graph) Weight(a, b string) (float64, bool) {
	w, ok := g.weights[pairKey(a, b)]
	return w, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.weights) }

// Keys returns all node keys in catalog order.
func (g *Graph) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}
