package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStockPhotoFirstKeywordWins(t *testing.T) {
	// "grand opening sale" contains both "opening" and "sale"; the
	// opening rule comes first in the catalogue.
	url, ok := MatchStockPhoto("Grand Opening Sale this weekend!")
	require.True(t, ok)

	openingURL, _ := MatchStockPhoto("our opening day")
	assert.Equal(t, openingURL, url)
}

func TestMatchStockPhotoIsCaseInsensitive(t *testing.T) {
	lower, ok := MatchStockPhoto("fresh bread at our bakery")
	require.True(t, ok)

	upper, ok := MatchStockPhoto("FRESH BREAD AT OUR BAKERY")
	require.True(t, ok)
	assert.Equal(t, lower, upper)
}

func TestMatchStockPhotoNoCategory(t *testing.T) {
	_, ok := MatchStockPhoto("quarterly compliance newsletter")
	assert.False(t, ok)
}
