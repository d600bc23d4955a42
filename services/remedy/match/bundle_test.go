// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package match

import "testing"

// =============================================================================
// BundleRecommender Tests
// =============================================================================

func TestBundleRecommend_InsomniaQueryWithChosenMember(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	got := r.Recommend(cat, "insomnia and racing thoughts at night", []string{"white_chestnut"})
	if len(got) == 0 {
		t.Fatal("expected bundle suggestions")
	}

	// night_calm: 3x4 suitable-for tokens + 5x1 chosen member = 17.
	top := got[0]
	if top.Key != "night_calm" {
		t.Errorf("expected night_calm first, got %q", top.Key)
	}
	if top.OverlapScore != 17 {
		t.Errorf("expected overlap 17, got %d", top.OverlapScore)
	}
	if top.Relevance != 10 {
		t.Errorf("expected relevance clamped to 10, got %d", top.Relevance)
	}
	if len(top.MatchedItems) != 1 || top.MatchedItems[0] != "white_chestnut" {
		t.Errorf("expected matched items [white_chestnut], got %v", top.MatchedItems)
	}
}

func TestBundleRecommend_ChosenMembershipAloneQualifies(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	// No tag overlap anywhere; exam_focus qualifies purely because
	// white_chestnut is one of its members.
	got := r.Recommend(cat, "zzz qqq", []string{"white_chestnut"})
	found := false
	for _, b := range got {
		if b.Key == "exam_focus" {
			found = true
			if b.OverlapScore != 5 {
				t.Errorf("expected overlap 5 from membership alone, got %d", b.OverlapScore)
			}
		}
	}
	if !found {
		t.Errorf("expected exam_focus in suggestions, got %v", got)
	}
}

func TestBundleRecommend_ZeroOverlapDiscarded(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	if got := r.Recommend(cat, "zzz qqq", nil); len(got) != 0 {
		t.Errorf("expected no suggestions without overlap, got %d", len(got))
	}
}

func TestBundleRecommend_CappedAtTwo(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	// Broad query touching several bundles' tags.
	got := r.Recommend(cat, "fear anxiety worry stress grief insomnia depression", nil)
	if len(got) > maxBundleSuggestions {
		t.Errorf("expected at most %d suggestions, got %d", maxBundleSuggestions, len(got))
	}
	if len(got) == 2 && got[1].OverlapScore > got[0].OverlapScore {
		t.Errorf("suggestions not sorted: %d before %d", got[0].OverlapScore, got[1].OverlapScore)
	}
}

func TestBundleRecommend_RelevanceIsDirectClamp(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	// One tag match, no chosen members: overlap 3 → relevance 3, no halving.
	got := r.Recommend(cat, "insomnia", nil)
	if len(got) == 0 {
		t.Fatal("expected a suggestion for insomnia")
	}
	if got[0].Key != "night_calm" {
		t.Fatalf("expected night_calm, got %q", got[0].Key)
	}
	if got[0].OverlapScore != 3 || got[0].Relevance != 3 {
		t.Errorf("expected overlap 3 and relevance 3, got %d and %d",
			got[0].OverlapScore, got[0].Relevance)
	}
}

func TestBundleRecommend_MembersResolved(t *testing.T) {
	cat, _ := loadFixtures(t)
	r := NewBundleRecommender(nil)

	got := r.Recommend(cat, "emergency shock panic", nil)
	if len(got) == 0 {
		t.Fatal("expected rescue_blend suggestion")
	}
	b := got[0]
	if b.Key != "rescue_blend" {
		t.Fatalf("expected rescue_blend, got %q", b.Key)
	}
	if len(b.Members) != 5 {
		t.Errorf("expected 5 resolved members, got %d", len(b.Members))
	}
	if b.TotalDrops != 10 {
		t.Errorf("expected total drops 10, got %d", b.TotalDrops)
	}
	for _, m := range b.Members {
		if m.Name == "" || m.Drops <= 0 {
			t.Errorf("unresolved member %+v", m)
		}
	}
}
