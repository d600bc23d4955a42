// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Catalog
// =============================================================================

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// =============================================================================
// Catalog Types
// =============================================================================

// Categories is the closed set of valid item category labels.
var Categories = map[string]bool{
	"fear":                  true,
	"uncertainty":           true,
	"insufficient_interest": true,
	"loneliness":            true,
	"oversensitive":         true,
	"overcare":              true,
	"despondency":           true,
	"emergency":             true,
}

// Item is a single recommendable flower essence.
//
// Items are defined once at catalog load and never mutated at request time.
// The whole catalog is replaced atomically on rebuild; nothing patches an
// Item in place.
type Item struct {
	// Key is the stable short identifier, unique across the catalog.
	Key string `yaml:"key"`

	// Name is the display name.
	Name string `yaml:"name"`

	// Symptoms is the ordered, non-empty list of symptom phrases.
	Symptoms []string `yaml:"symptoms"`

	// EmotionalState is the single emotional-state description.
	EmotionalState string `yaml:"emotional_state"`

	// IndicatedFor describes who or what the essence is indicated for.
	IndicatedFor string `yaml:"indicated_for"`

	// Category is one of the labels in Categories.
	Category string `yaml:"category"`

	// Associations lists keys of related items. Keys that do not resolve
	// are dropped at load time; an item never associates with itself.
	Associations []string `yaml:"associations"`
}

// Document composes the single description string used for embedding:
// space-joined symptom phrases, the emotional state, and the indicated-for
// text, in that order.
func (it *Item) Document() string {
	return strings.Join(it.Symptoms, " ") + " " + it.EmotionalState + " " + it.IndicatedFor
}

// BundleMember is one item inside a bundle with its per-member drop count.
type BundleMember struct {
	Key   string `yaml:"key"`
	Drops int    `yaml:"drops"`
}

// Bundle is a pre-defined, fixed-composition group of items.
type Bundle struct {
	Key     string         `yaml:"key"`
	Name    string         `yaml:"name"`
	Members []BundleMember `yaml:"members"`

	// TotalDrops is the sum of all member drop counts, computed at load.
	TotalDrops int `yaml:"-"`

	// Dosage is the free-text dosage instruction.
	Dosage string `yaml:"dosage"`

	// Purpose is the free-text purpose description.
	Purpose string `yaml:"purpose"`

	// SuitableFor is the set of descriptive tags the bundle recommender
	// matches query tokens against.
	SuitableFor []string `yaml:"suitable_for"`
}

// Catalog is the immutable, in-memory table of items and bundles.
//
// # Description
//
// Items and Bundles preserve definition order — every ranking stage in the
// engine tie-breaks on catalog iteration order, so order must be
// deterministic (a YAML sequence, never a map). Lookup maps are built once
// at load for O(1) access by key.
//
// # Thread Safety
//
// Immutable after Load; safe for concurrent use.
type Catalog struct {
	Items   []*Item
	Bundles []*Bundle

	byKey       map[string]*Item
	bundleByKey map[string]*Bundle
}

// Item returns the item with the given key, or (nil, false).
func (c *Catalog) Item(key string) (*Item, bool) {
	it, ok := c.byKey[key]
	return it, ok
}

// Bundle returns the bundle with the given key, or (nil, false).
func (c *Catalog) Bundle(key string) (*Bundle, bool) {
	b, ok := c.bundleByKey[key]
	return b, ok
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.Items) }

// =============================================================================
// Loading
// =============================================================================

// catalogFile is the YAML shape of a catalog definition.
type catalogFile struct {
	Items   []*Item   `yaml:"items"`
	Bundles []*Bundle `yaml:"bundles"`
}

// Load deserializes the embedded default catalog definition.
//
// # Description
//
// Fails fast with a structural error if any item is missing a required
// field, a category label is outside the closed set, a key is duplicated,
// or a bundle references an unknown member. Dangling item associations are
// dropped silently (with a warning) rather than rejected — this matches the
// reference behavior, where unresolvable combination keys are simply
// skipped during graph construction.
//
// # Outputs
//
//   - *Catalog: The validated catalog. Nil on error.
//   - error: Non-nil on parse or validation failure.
func Load() (*Catalog, error) {
	return parse(defaultCatalogYAML)
}

// LoadFile deserializes a catalog definition from an external YAML file.
// Used for out-of-band catalog replacement; validation is identical to Load.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog: no items defined")
	}

	cat := &Catalog{
		Items:       file.Items,
		Bundles:     file.Bundles,
		byKey:       make(map[string]*Item, len(file.Items)),
		bundleByKey: make(map[string]*Bundle, len(file.Bundles)),
	}

	for i, it := range file.Items {
		if err := validateItem(it); err != nil {
			return nil, fmt.Errorf("catalog: item %d: %w", i, err)
		}
		if _, dup := cat.byKey[it.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate item key %q", it.Key)
		}
		cat.byKey[it.Key] = it
	}

	// Resolve associations in a second pass so forward references work.
	for _, it := range file.Items {
		it.Associations = pruneAssociations(it, cat.byKey)
	}

	for i, b := range file.Bundles {
		if err := validateBundle(b, cat.byKey); err != nil {
			return nil, fmt.Errorf("catalog: bundle %d: %w", i, err)
		}
		if _, dup := cat.bundleByKey[b.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate bundle key %q", b.Key)
		}
		cat.bundleByKey[b.Key] = b
	}

	return cat, nil
}

func validateItem(it *Item) error {
	switch {
	case it == nil:
		return fmt.Errorf("empty item entry")
	case strings.TrimSpace(it.Key) == "":
		return fmt.Errorf("missing key")
	case strings.TrimSpace(it.Name) == "":
		return fmt.Errorf("item %q: missing name", it.Key)
	case len(it.Symptoms) == 0:
		return fmt.Errorf("item %q: symptoms must be non-empty", it.Key)
	case strings.TrimSpace(it.EmotionalState) == "":
		return fmt.Errorf("item %q: missing emotional_state", it.Key)
	case strings.TrimSpace(it.IndicatedFor) == "":
		return fmt.Errorf("item %q: missing indicated_for", it.Key)
	case !Categories[it.Category]:
		return fmt.Errorf("item %q: unknown category %q", it.Key, it.Category)
	}
	return nil
}

// pruneAssociations drops self-references and keys that do not resolve to
// a catalog item. Dropping (rather than rejecting) matches the reference
// behavior; each drop is logged so a malformed catalog is still visible.
func pruneAssociations(it *Item, byKey map[string]*Item) []string {
	kept := make([]string, 0, len(it.Associations))
	for _, key := range it.Associations {
		if key == it.Key {
			slog.Warn("catalog: dropping self-association",
				slog.String("item", it.Key),
			)
			continue
		}
		if _, ok := byKey[key]; !ok {
			slog.Warn("catalog: dropping dangling association",
				slog.String("item", it.Key),
				slog.String("association", key),
			)
			continue
		}
		kept = append(kept, key)
	}
	return kept
}

// validateBundle rejects bundles with unresolvable members. Unlike item
// associations, a dangling bundle member would make the bundle impossible
// to display, so it is a hard load error.
func validateBundle(b *Bundle, byKey map[string]*Item) error {
	switch {
	case b == nil:
		return fmt.Errorf("empty bundle entry")
	case strings.TrimSpace(b.Key) == "":
		return fmt.Errorf("missing key")
	case strings.TrimSpace(b.Name) == "":
		return fmt.Errorf("bundle %q: missing name", b.Key)
	case len(b.Members) == 0:
		return fmt.Errorf("bundle %q: members must be non-empty", b.Key)
	}
	total := 0
	for _, m := range b.Members {
		if _, ok := byKey[m.Key]; !ok {
			return fmt.Errorf("bundle %q: unknown member %q", b.Key, m.Key)
		}
		if m.Drops <= 0 {
			return fmt.Errorf("bundle %q: member %q: drops must be positive", b.Key, m.Key)
		}
		total += m.Drops
	}
	b.TotalDrops = total
	return nil
}
