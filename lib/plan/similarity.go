// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"strings"
	"unicode"
)

// SimilarityFunc judges whether a candidate task title describes the
// same work as the title of an already-completed task. Used by
// MaterializePhase to skip duplicates.
type SimilarityFunc func(candidate, completed string) bool

// TitlesEquivalent is the default similarity heuristic. Two titles
// are judged equivalent when, after case folding and trimming, one
// contains the other, or their keyword sets overlap by at least 60%
// of the smaller set. Keywords are runs of letters and digits at
// least three characters long, so "the", "a", and "of" never count.
//
// This is string matching, not understanding: "Add user auth" and
// "Add user auth tests" are judged equivalent (substring), while a
// reworded duplicate slips through. Both failure modes are accepted;
// callers needing stricter behavior supply their own SimilarityFunc.
func TitlesEquivalent(candidate, completed string) bool {
	a := strings.ToLower(strings.TrimSpace(candidate))
	b := strings.ToLower(strings.TrimSpace(completed))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	aWords := keywords(a)
	bWords := keywords(b)
	smaller := len(aWords)
	if len(bWords) < smaller {
		smaller = len(bWords)
	}
	if smaller == 0 {
		return false
	}
	shared := 0
	for word := range aWords {
		if bWords[word] {
			shared++
		}
	}
	return float64(shared)/float64(smaller) >= 0.6
}

// keywords extracts the set of significant words from a case-folded
// title: maximal runs of letters and digits, three characters or
// longer.
func keywords(title string) map[string]bool {
	words := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, word := range words {
		if len(word) >= 3 {
			set[word] = true
		}
	}
	return set
}
