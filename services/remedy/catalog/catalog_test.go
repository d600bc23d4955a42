// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_DefaultCatalog(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 39, cat.Len())
	assert.Len(t, cat.Bundles, 6)

	// Definition order is load-bearing for tie-breaks.
	assert.Equal(t, "agrimony", cat.Items[0].Key)
	assert.Equal(t, "willow", cat.Items[cat.Len()-1].Key)
}

func TestLoad_LookupByKey(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	it, ok := cat.Item("mimulus")
	require.True(t, ok)
	assert.Equal(t, "Mimulus", it.Name)
	assert.Equal(t, "fear", it.Category)

	_, ok = cat.Item("no_such_item")
	assert.False(t, ok)

	b, ok := cat.Bundle("rescue_blend")
	require.True(t, ok)
	assert.Equal(t, "Rescue Blend", b.Name)
}

func TestLoad_BundleTotalDropsComputed(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	b, ok := cat.Bundle("rescue_blend")
	require.True(t, ok)
	assert.Equal(t, 10, b.TotalDrops)

	b, ok = cat.Bundle("night_calm")
	require.True(t, ok)
	assert.Equal(t, 9, b.TotalDrops)
}

func TestLoad_AssociationsResolve(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	for _, it := range cat.Items {
		for _, assoc := range it.Associations {
			_, ok := cat.Item(assoc)
			assert.True(t, ok, "item %q: unresolved association %q", it.Key, assoc)
			assert.NotEqual(t, it.Key, assoc, "item %q associates with itself", it.Key)
		}
	}
}

func TestItem_Document(t *testing.T) {
	it := &Item{
		Symptoms:       []string{"vague fears", "nightmares"},
		EmotionalState: "fear of unknown things",
		IndicatedFor:   "Vague unknown fears",
	}
	assert.Equal(t, "vague fears nightmares fear of unknown things Vague unknown fears", it.Document())
}

// =============================================================================
// LoadFile Validation Tests
// =============================================================================

const validItemYAML = `
items:
  - key: alpha
    name: Alpha
    symptoms: [worry, dread]
    emotional_state: constant worry
    indicated_for: Worriers
    category: fear
  - key: beta
    name: Beta
    symptoms: [gloom]
    emotional_state: gloom without cause
    indicated_for: Gloomy moods
    category: uncertainty
`

func TestLoadFile_Valid(t *testing.T) {
	cat, err := LoadFile(writeCatalog(t, validItemYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_NoItems(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, "items: []\n"))
	assert.ErrorContains(t, err, "no items")
}

func TestLoadFile_UnknownCategory(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, `
items:
  - key: alpha
    name: Alpha
    symptoms: [worry]
    emotional_state: worry
    indicated_for: Worriers
    category: made_up
`))
	assert.ErrorContains(t, err, "unknown category")
}

func TestLoadFile_DuplicateKey(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, `
items:
  - key: alpha
    name: Alpha
    symptoms: [worry]
    emotional_state: worry
    indicated_for: Worriers
    category: fear
  - key: alpha
    name: Alpha Again
    symptoms: [dread]
    emotional_state: dread
    indicated_for: Dreaders
    category: fear
`))
	assert.ErrorContains(t, err, "duplicate item key")
}

func TestLoadFile_DanglingAssociationPruned(t *testing.T) {
	cat, err := LoadFile(writeCatalog(t, `
items:
  - key: alpha
    name: Alpha
    symptoms: [worry]
    emotional_state: worry
    indicated_for: Worriers
    category: fear
    associations: [beta, ghost, alpha]
  - key: beta
    name: Beta
    symptoms: [gloom]
    emotional_state: gloom
    indicated_for: Gloomy moods
    category: uncertainty
`))
	require.NoError(t, err)

	it, ok := cat.Item("alpha")
	require.True(t, ok)
	// ghost does not resolve and self-references are dropped; only beta stays.
	assert.Equal(t, []string{"beta"}, it.Associations)
}

func TestLoadFile_DanglingBundleMemberRejected(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, validItemYAML+`
bundles:
  - key: broken
    name: Broken
    members:
      - { key: alpha, drops: 2 }
      - { key: ghost, drops: 2 }
    dosage: 4 drops
    purpose: testing
    suitable_for: [worry]
`))
	assert.ErrorContains(t, err, "unknown member")
}

func TestLoadFile_NonPositiveDropsRejected(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, validItemYAML+`
bundles:
  - key: broken
    name: Broken
    members:
      - { key: alpha, drops: 0 }
    dosage: 4 drops
    purpose: testing
    suitable_for: [worry]
`))
	assert.ErrorContains(t, err, "drops must be positive")
}
