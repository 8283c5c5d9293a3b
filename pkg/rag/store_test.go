package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQueryNoFilters(t *testing.T) {
	sql, args := buildSearchQuery(Filters{})

	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "ORDER BY embedding <=> $1")
	assert.Contains(t, sql, "LIMIT $2")
	assert.Empty(t, args)
}

func TestBuildSearchQueryAllFilters(t *testing.T) {
	f := Filters{
		Years:  []int{2018, 2019},
		Teams:  []string{"Colla Vella dels Xiquets de Valls"},
		Places: []string{"Tarragona"},
	}
	sql, args := buildSearchQuery(f)

	assert.Contains(t, sql, "years && $3")
	assert.Contains(t, sql, "teams && $4")
	assert.Contains(t, sql, "places && $5")
	require.Len(t, args, 3)
	assert.Equal(t, []int{2018, 2019}, args[0])
}

func TestBuildSearchQuerySparseFiltersRenumber(t *testing.T) {
	sql, args := buildSearchQuery(Filters{Places: []string{"Valls"}})

	assert.Contains(t, sql, "places && $3")
	assert.NotContains(t, sql, "years")
	assert.NotContains(t, sql, "teams")
	assert.Len(t, args, 1)
}
