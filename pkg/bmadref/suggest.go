// SPDX-License-Identifier: MPL-2.0

package bmadref

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// SimilarityThreshold is the minimum similarity for a fuzzy suggestion.
const SimilarityThreshold = 0.70

// CaseMismatch returns the candidate that equals name ignoring case, if any.
// Exact matches are not case mismatches.
func CaseMismatch(name string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c != name && strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// ClosestName returns the candidate most similar to name by edit distance,
// provided its similarity reaches SimilarityThreshold. Ties go to the
// lexicographically smaller candidate.
func ClosestName(name string, candidates []string) (string, bool) {
	best, score := "", 0.0
	needle := strings.ToLower(name)
	for _, c := range candidates {
		s := levenshtein.Similarity(needle, strings.ToLower(c), nil)
		if s > score || (s == score && best != "" && c < best) {
			best, score = c, s
		}
	}
	if best == "" || score < SimilarityThreshold {
		return "", false
	}
	return best, true
}

// Suggestions returns up to limit candidates at or above the similarity
// threshold, most similar first.
func Suggestions(name string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}
	needle := strings.ToLower(name)
	var hits []scored
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] || c == name {
			continue
		}
		seen[c] = true
		if s := levenshtein.Similarity(needle, strings.ToLower(c), nil); s >= SimilarityThreshold {
			hits = append(hits, scored{c, s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
