package ui

import (
	"sort"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/model"
)

type scoredIdx struct {
	idx   int
	score int
}

// fuzzyMatchScore returns (score, ok). Lower score is better.
// Matching is a simple case-insensitive subsequence match.
func fuzzyMatchScore(needle, haystack string) (int, bool) {
	needle = strings.ToLower(needle)
	haystack = strings.ToLower(haystack)
	if needle == "" {
		return 0, true
	}

	score := 0
	j := 0
	for i := 0; i < len(haystack) && j < len(needle); i++ {
		if haystack[i] == needle[j] {
			score += i
			j++
		}
	}
	if j != len(needle) {
		return 0, false
	}
	return score, true
}

// rankEndpoints keeps the endpoints matching needle, best first. Ties keep
// declaration order. An empty needle keeps everything as is.
func rankEndpoints(eps []*model.Endpoint, needle string) []*model.Endpoint {
	if needle == "" {
		return eps
	}
	var scored []scoredIdx
	for i, ep := range eps {
		if s, ok := fuzzyMatchScore(needle, searchText(ep)); ok {
			scored = append(scored, scoredIdx{idx: i, score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score < scored[j].score })

	out := make([]*model.Endpoint, len(scored))
	for i, s := range scored {
		out[i] = eps[s.idx]
	}
	return out
}

func searchText(ep *model.Endpoint) string {
	return ep.Method + " " + ep.Path + " " + firstNonEmpty(ep.Summary, ep.OperationID)
}
