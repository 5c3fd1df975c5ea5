package ui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erdncyz/swagger-viewer/internal/model"
)

func TestFuzzyMatchScore(t *testing.T) {
	score, ok := fuzzyMatchScore("gp", "get /pets")
	require.True(t, ok)
	require.Equal(t, 5, score)

	score, ok = fuzzyMatchScore("GET", "get /x")
	require.True(t, ok)
	require.Equal(t, 3, score)

	_, ok = fuzzyMatchScore("xyz", "get /pets")
	require.False(t, ok)

	score, ok = fuzzyMatchScore("", "anything")
	require.True(t, ok)
	require.Zero(t, score)
}

func petEndpoints() []*model.Endpoint {
	return []*model.Endpoint{
		{ID: "GET-/pets", Method: "GET", Path: "/pets", Summary: "List pets", Tags: []string{"pets"}},
		{ID: "POST-/pets", Method: "POST", Path: "/pets", Summary: "Create a pet", Tags: []string{"pets"}},
		{ID: "GET-/pets/{id}", Method: "GET", Path: "/pets/{id}", Summary: "Get pet", Tags: []string{"pets"}},
	}
}

func ids(eps []*model.Endpoint) []string {
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = ep.ID
	}
	return out
}

func TestRankEndpoints(t *testing.T) {
	eps := petEndpoints()

	require.Equal(t, []string{"POST-/pets"}, ids(rankEndpoints(eps, "post")))
	require.Equal(t, []string{"GET-/pets/{id}"}, ids(rankEndpoints(eps, "id")))
	require.Equal(t, []string{"POST-/pets", "GET-/pets", "GET-/pets/{id}"}, ids(rankEndpoints(eps, "pets")))
	require.Equal(t, ids(eps), ids(rankEndpoints(eps, "")))
	require.Empty(t, rankEndpoints(eps, "zzz"))
}
