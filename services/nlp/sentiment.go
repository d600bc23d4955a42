// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package nlp provides the optional text-analysis collaborators consumed by
// the recommendation engine: a local sentiment scorer and an LLM-backed
// symptom-phrase extractor.
package nlp

import (
	"strings"
	"unicode"
)

// Sentiment is a basic polarity/subjectivity pair.
type Sentiment struct {
	// Polarity is in [-1, 1]; negative values indicate negative affect.
	Polarity float64 `json:"polarity"`

	// Subjectivity is in [0, 1]; higher values indicate more subjective,
	// emotionally loaded language.
	Subjectivity float64 `json:"subjectivity"`
}

// valence is the per-word lexicon entry.
type valence struct {
	polarity     float64
	subjectivity float64
}

// sentimentLexicon maps emotion-bearing words to valence scores. The
// vocabulary is tuned to the symptom language of the catalog domain; words
// outside the lexicon contribute nothing.
var sentimentLexicon = map[string]valence{
	// Negative affect.
	"anxiety":      {-0.6, 0.9},
	"anxious":      {-0.6, 0.9},
	"afraid":       {-0.7, 0.9},
	"fear":         {-0.7, 0.9},
	"fears":        {-0.7, 0.9},
	"fearful":      {-0.7, 0.9},
	"terror":       {-0.9, 1.0},
	"panic":        {-0.8, 1.0},
	"worry":        {-0.5, 0.8},
	"worried":      {-0.5, 0.8},
	"dread":        {-0.7, 0.9},
	"sad":          {-0.6, 0.9},
	"sadness":      {-0.6, 0.9},
	"depressed":    {-0.8, 0.9},
	"depression":   {-0.8, 0.9},
	"gloom":        {-0.6, 0.8},
	"despair":      {-0.9, 0.9},
	"hopeless":     {-0.9, 0.9},
	"hopelessness": {-0.9, 0.9},
	"exhausted":    {-0.6, 0.8},
	"exhaustion":   {-0.6, 0.8},
	"tired":        {-0.4, 0.7},
	"drained":      {-0.5, 0.8},
	"angry":        {-0.7, 0.9},
	"anger":        {-0.7, 0.9},
	"hatred":       {-0.9, 1.0},
	"jealousy":     {-0.7, 0.9},
	"jealous":      {-0.7, 0.9},
	"resentment":   {-0.7, 0.9},
	"bitter":       {-0.6, 0.8},
	"bitterness":   {-0.6, 0.8},
	"guilt":        {-0.6, 0.9},
	"guilty":       {-0.6, 0.9},
	"shame":        {-0.7, 0.9},
	"lonely":       {-0.6, 0.9},
	"loneliness":   {-0.6, 0.9},
	"overwhelmed":  {-0.6, 0.8},
	"stressed":     {-0.6, 0.8},
	"stress":       {-0.5, 0.7},
	"restless":     {-0.4, 0.7},
	"insomnia":     {-0.5, 0.7},
	"sleepless":    {-0.5, 0.7},
	"nightmares":   {-0.7, 0.9},
	"shock":        {-0.7, 0.8},
	"trauma":       {-0.8, 0.9},
	"grief":        {-0.8, 0.9},
	"terrible":     {-0.8, 0.9},
	"awful":        {-0.8, 0.9},
	"bad":          {-0.5, 0.6},
	"impatient":    {-0.4, 0.8},
	"irritable":    {-0.5, 0.8},
	"intolerant":   {-0.5, 0.8},

	// Positive affect.
	"calm":      {0.5, 0.7},
	"peaceful":  {0.6, 0.7},
	"happy":     {0.8, 0.9},
	"hopeful":   {0.6, 0.8},
	"confident": {0.6, 0.8},
	"cheerful":  {0.7, 0.8},
	"good":      {0.5, 0.6},
	"better":    {0.4, 0.5},
	"relaxed":   {0.5, 0.7},
	"strong":    {0.4, 0.5},
	"love":      {0.7, 0.8},
	"joy":       {0.8, 0.9},
}

// negators flip and dampen the polarity of the following lexicon word.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true, "cant": true,
	"dont": true, "isnt": true, "wasnt": true, "without": true,
}

// ScoreSentiment computes a basic polarity/subjectivity pair for the text.
//
// # Description
//
// Averages the valence of every lexicon word found in the text. A negator
// immediately before a word flips its polarity at half strength. Text with
// no lexicon words scores a neutral (0, 0).
//
// # Thread Safety
//
// Pure function; safe for concurrent use.
func ScoreSentiment(text string) Sentiment {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	var polSum, subjSum float64
	var hits int
	negated := false

	for _, w := range words {
		if negators[w] {
			negated = true
			continue
		}
		v, ok := sentimentLexicon[w]
		if !ok {
			negated = false
			continue
		}
		pol := v.polarity
		if negated {
			pol = -0.5 * pol
			negated = false
		}
		polSum += pol
		subjSum += v.subjectivity
		hits++
	}

	if hits == 0 {
		return Sentiment{}
	}
	return Sentiment{
		Polarity:     clampUnit(polSum/float64(hits), -1, 1),
		Subjectivity: clampUnit(subjSum/float64(hits), 0, 1),
	}
}

func clampUnit(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
