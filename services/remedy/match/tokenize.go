// Copyright (C) 2025 Floressence Labs (dev@floressence.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package match

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases the text and splits it into a set of letter/digit
// runs. Punctuation acts as a separator, so "anxiety, worry" and
// "anxiety worry" produce the same tokens. Duplicates collapse; order is
// irrelevant.
func Tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

// TokenizeAll tokenizes each part and unions the results into one set.
func TokenizeAll(parts []string) map[string]bool {
	return Tokenize(strings.Join(parts, " "))
}

// overlap counts tokens present in both sets.
func overlap(query, doc map[string]bool) int {
	// Iterate the smaller set.
	if len(doc) < len(query) {
		query, doc = doc, query
	}
	n := 0
	for tok := range query {
		if doc[tok] {
			n++
		}
	}
	return n
}
