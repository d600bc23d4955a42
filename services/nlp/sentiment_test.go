// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nlp

import (
	"math"
	"testing"
)

// =============================================================================
// ScoreSentiment Tests
// =============================================================================

func TestScoreSentiment_NegativeAffect(t *testing.T) {
	s := ScoreSentiment("I feel constant anxiety and worry about everything")
	if s.Polarity >= 0 {
		t.Errorf("expected negative polarity, got %v", s.Polarity)
	}
	if s.Subjectivity <= 0 {
		t.Errorf("expected positive subjectivity, got %v", s.Subjectivity)
	}
}

func TestScoreSentiment_PositiveAffect(t *testing.T) {
	s := ScoreSentiment("feeling calm, peaceful and hopeful today")
	if s.Polarity <= 0 {
		t.Errorf("expected positive polarity, got %v", s.Polarity)
	}
}

func TestScoreSentiment_NoLexiconWordsIsNeutral(t *testing.T) {
	s := ScoreSentiment("the quick brown fox jumps over the lazy dog")
	if s.Polarity != 0 || s.Subjectivity != 0 {
		t.Errorf("expected neutral (0, 0), got %+v", s)
	}
}

func TestScoreSentiment_Empty(t *testing.T) {
	s := ScoreSentiment("")
	if s.Polarity != 0 || s.Subjectivity != 0 {
		t.Errorf("expected neutral (0, 0), got %+v", s)
	}
}

func TestScoreSentiment_AveragesValences(t *testing.T) {
	// anxiety (-0.6) and worry (-0.5) average to -0.55.
	s := ScoreSentiment("anxiety and worry")
	if math.Abs(s.Polarity-(-0.55)) > 1e-9 {
		t.Errorf("expected polarity -0.55, got %v", s.Polarity)
	}
	if math.Abs(s.Subjectivity-0.85) > 1e-9 {
		t.Errorf("expected subjectivity 0.85, got %v", s.Subjectivity)
	}
}

func TestScoreSentiment_NegatorFlipsAndDampens(t *testing.T) {
	plain := ScoreSentiment("happy")
	negated := ScoreSentiment("not happy")
	if plain.Polarity <= 0 {
		t.Fatalf("expected positive polarity for 'happy', got %v", plain.Polarity)
	}
	if negated.Polarity >= 0 {
		t.Errorf("expected negated polarity to flip sign, got %v", negated.Polarity)
	}
	if math.Abs(negated.Polarity) >= math.Abs(plain.Polarity) {
		t.Errorf("expected negation to dampen: |%v| >= |%v|", negated.Polarity, plain.Polarity)
	}
}

func TestScoreSentiment_NegatorOnlyAffectsNextWord(t *testing.T) {
	// The negator applies to "calm", not to "anxiety" two words later.
	s := ScoreSentiment("not calm anxiety")
	// calm flips to -0.25, anxiety stays -0.6 → mean -0.425.
	if math.Abs(s.Polarity-(-0.425)) > 1e-9 {
		t.Errorf("expected polarity -0.425, got %v", s.Polarity)
	}
}

func TestScoreSentiment_Bounds(t *testing.T) {
	texts := []string{
		"terror panic despair hopeless trauma grief hatred",
		"happy joy love cheerful confident hopeful calm peaceful",
		"not terrible, feeling better and hopeful but still tired",
	}
	for _, text := range texts {
		s := ScoreSentiment(text)
		if s.Polarity < -1 || s.Polarity > 1 {
			t.Errorf("%q: polarity %v out of [-1,1]", text, s.Polarity)
		}
		if s.Subjectivity < 0 || s.Subjectivity > 1 {
			t.Errorf("%q: subjectivity %v out of [0,1]", text, s.Subjectivity)
		}
	}
}
