package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFilters(t *testing.T, mustMatch, mustNotMatch []string) RegexFilters {
	var f RegexFilters
	for _, p := range mustMatch {
		require.NoError(t, f.MustMatch.Set(p))
	}
	for _, p := range mustNotMatch {
		require.NoError(t, f.MustNotMatch.Set(p))
	}
	return f
}

func TestEmptyFiltersMatchEverything(t *testing.T) {
	f := makeFilters(t, nil, nil)
	assert.True(t, f.AsFilter(TestID{Path: []string{"anything", "at all"}}))
}

func TestMustMatchFilter(t *testing.T) {
	f := makeFilters(t, []string{"sync"}, nil)
	assert.True(t, f.AsFilter(TestID{Path: []string{"sync", "through proxy"}}))
	assert.False(t, f.AsFilter(TestID{Path: []string{"upload and publish"}}))
}

func TestMustNotMatchFilterWins(t *testing.T) {
	f := makeFilters(t, []string{"sync"}, []string{"proxy"})
	assert.True(t, f.AsFilter(TestID{Path: []string{"sync", "plain"}}))
	assert.False(t, f.AsFilter(TestID{Path: []string{"sync", "through proxy"}}))
}

func TestMultiplePatternsAreORed(t *testing.T) {
	f := makeFilters(t, []string{"sync", "upload"}, nil)
	assert.True(t, f.AsFilter(TestID{Path: []string{"sync"}}))
	assert.True(t, f.AsFilter(TestID{Path: []string{"upload and publish"}}))
	assert.False(t, f.AsFilter(TestID{Path: []string{"services"}}))
}

func TestInvalidRegexIsRejected(t *testing.T) {
	var list RegexList
	assert.Error(t, list.Set("(unclosed"))
}
