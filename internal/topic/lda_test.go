package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictionaryAssignsStableIDs(t *testing.T) {
	texts := [][]string{
		{"exam", "schedule", "exam"},
		{"schedule", "midterm"},
	}
	dict := BuildDictionary(texts)
	require.Equal(t, 3, dict.Size())
	require.Equal(t, "exam", dict.Token(0))
	require.Equal(t, "schedule", dict.Token(1))
	require.Equal(t, "midterm", dict.Token(2))
}

func TestBOWCountsTermFrequencies(t *testing.T) {
	texts := [][]string{{"exam", "schedule", "exam"}}
	dict := BuildDictionary(texts)
	bow := dict.BOW(texts[0])
	require.Equal(t, []TermCount{{ID: 0, Count: 2}, {ID: 1, Count: 1}}, bow)
}

func TestBOWIgnoresUnknownTerms(t *testing.T) {
	dict := BuildDictionary([][]string{{"exam"}})
	bow := dict.BOW([]string{"exam", "holiday"})
	require.Equal(t, []TermCount{{ID: 0, Count: 1}}, bow)
}

func TestSingleTopicLDARanksDominantTerms(t *testing.T) {
	texts := [][]string{
		{"exam", "exam", "exam", "schedule"},
		{"exam", "schedule", "midterm"},
		{"exam", "results"},
	}
	dict := BuildDictionary(texts)
	corpus := make([][]TermCount, 0, len(texts))
	for _, text := range texts {
		corpus = append(corpus, dict.BOW(text))
	}
	model := FitLDA(corpus, dict, 1, 25, 42)
	terms := model.TopTerms(0, 3)
	require.Len(t, terms, 3)
	require.Equal(t, "exam", terms[0])
	require.Contains(t, terms, "schedule")
}

func TestTopTermsWithFewerThanThreeDistinctTerms(t *testing.T) {
	texts := [][]string{{"registration", "registration"}}
	dict := BuildDictionary(texts)
	corpus := [][]TermCount{dict.BOW(texts[0])}
	model := FitLDA(corpus, dict, 1, 25, 42)
	terms := model.TopTerms(0, 3)
	require.Equal(t, []string{"registration"}, terms)
}

func TestFitLDAIsDeterministicForFixedSeed(t *testing.T) {
	texts := [][]string{
		{"fee", "structure", "payment"},
		{"fee", "deadline"},
	}
	dict := BuildDictionary(texts)
	corpus := make([][]TermCount, 0, len(texts))
	for _, text := range texts {
		corpus = append(corpus, dict.BOW(text))
	}
	first := FitLDA(corpus, dict, 1, 25, 7).TopTerms(0, 3)
	second := FitLDA(corpus, dict, 1, 25, 7).TopTerms(0, 3)
	require.Equal(t, first, second)
}
