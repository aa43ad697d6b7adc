package argparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest_OneCloseMatch(t *testing.T) {
	got := Suggest("ad", []string{"add", "echo"})
	assert.Equal(t, "add", got)
}

func TestSuggest_AmbiguousSuppressesSuggestion(t *testing.T) {
	got := Suggest("ab", []string{"ac", "ad"})
	assert.Equal(t, "", got)
}

func TestSuggest_TooFarSuppressesSuggestion(t *testing.T) {
	got := Suggest("xyz123", []string{"add", "echo"})
	assert.Equal(t, "", got)
}

func TestSuggest_ExactMatchDistanceZero(t *testing.T) {
	got := Suggest("add", []string{"add", "echo"})
	assert.Equal(t, "add", got)
}

func TestLevenshtein_KnownDistances(t *testing.T) {
	assert.Equal(t, 0, levenshtein("same", "same"))
	assert.Equal(t, 1, levenshtein("ad", "add"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "test"))
}
