package topic

import (
	"math/rand"
	"sort"
)

// Dictionary maps terms to stable integer ids, assigned in first-seen
// order over the corpus.
type Dictionary struct {
	ids    map[string]int
	tokens []string
}

func BuildDictionary(texts [][]string) *Dictionary {
	d := &Dictionary{ids: make(map[string]int)}
	for _, text := range texts {
		for _, token := range text {
			if _, ok := d.ids[token]; !ok {
				d.ids[token] = len(d.tokens)
				d.tokens = append(d.tokens, token)
			}
		}
	}
	return d
}

func (d *Dictionary) Size() int {
	return len(d.tokens)
}

func (d *Dictionary) Token(id int) string {
	return d.tokens[id]
}

// BOW converts a token sequence into a sparse term-frequency vector
// against the dictionary, ordered by term id.
func (d *Dictionary) BOW(text []string) []TermCount {
	counts := make(map[int]int)
	for _, token := range text {
		if id, ok := d.ids[token]; ok {
			counts[id]++
		}
	}
	bow := make([]TermCount, 0, len(counts))
	for id, count := range counts {
		bow = append(bow, TermCount{ID: id, Count: count})
	}
	sort.Slice(bow, func(i, j int) bool { return bow[i].ID < bow[j].ID })
	return bow
}

type TermCount struct {
	ID    int
	Count int
}

// Model is a latent Dirichlet allocation model fit by collapsed Gibbs
// sampling. With a single topic it degenerates into a smoothed term
// ranker, which is exactly how session topics use it.
type Model struct {
	dict       *Dictionary
	numTopics  int
	topicTerm  [][]float64
	termTotals []float64
}

const (
	ldaBeta = 0.01
)

// FitLDA runs the sampler for the given number of passes over the corpus.
// A fixed seed keeps repeated fits over the same corpus stable.
func FitLDA(corpus [][]TermCount, dict *Dictionary, numTopics, passes int, seed int64) *Model {
	if numTopics < 1 {
		numTopics = 1
	}
	if passes < 1 {
		passes = 1
	}
	vocab := dict.Size()
	alpha := 1.0 / float64(numTopics)

	// Expand the sparse docs into flat token streams for sampling.
	docs := make([][]int, len(corpus))
	for i, bow := range corpus {
		for _, tc := range bow {
			for n := 0; n < tc.Count; n++ {
				docs[i] = append(docs[i], tc.ID)
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	docTopic := make([][]int, len(docs))
	topicTerm := make([][]int, numTopics)
	topicTotal := make([]int, numTopics)
	for k := range topicTerm {
		topicTerm[k] = make([]int, vocab)
	}
	assign := make([][]int, len(docs))
	for i, doc := range docs {
		docTopic[i] = make([]int, numTopics)
		assign[i] = make([]int, len(doc))
		for j, term := range doc {
			k := rng.Intn(numTopics)
			assign[i][j] = k
			docTopic[i][k]++
			topicTerm[k][term]++
			topicTotal[k]++
		}
	}

	weights := make([]float64, numTopics)
	for pass := 0; pass < passes; pass++ {
		for i, doc := range docs {
			for j, term := range doc {
				old := assign[i][j]
				docTopic[i][old]--
				topicTerm[old][term]--
				topicTotal[old]--

				var sum float64
				for k := 0; k < numTopics; k++ {
					w := (float64(docTopic[i][k]) + alpha) *
						(float64(topicTerm[k][term]) + ldaBeta) /
						(float64(topicTotal[k]) + ldaBeta*float64(vocab))
					weights[k] = w
					sum += w
				}
				next := numTopics - 1
				target := rng.Float64() * sum
				for k := 0; k < numTopics; k++ {
					target -= weights[k]
					if target <= 0 {
						next = k
						break
					}
				}

				assign[i][j] = next
				docTopic[i][next]++
				topicTerm[next][term]++
				topicTotal[next]++
			}
		}
	}

	m := &Model{
		dict:       dict,
		numTopics:  numTopics,
		topicTerm:  make([][]float64, numTopics),
		termTotals: make([]float64, numTopics),
	}
	for k := 0; k < numTopics; k++ {
		m.topicTerm[k] = make([]float64, vocab)
		denom := float64(topicTotal[k]) + ldaBeta*float64(vocab)
		for term := 0; term < vocab; term++ {
			m.topicTerm[k][term] = (float64(topicTerm[k][term]) + ldaBeta) / denom
		}
		m.termTotals[k] = denom
	}
	return m
}

// TopTerms returns up to n terms of the topic ordered by weight, ties
// broken alphabetically so repeated fits rank identically.
func (m *Model) TopTerms(topic, n int) []string {
	if topic < 0 || topic >= m.numTopics {
		return nil
	}
	type termWeight struct {
		token  string
		weight float64
	}
	ranked := make([]termWeight, 0, m.dict.Size())
	for id, weight := range m.topicTerm[topic] {
		ranked = append(ranked, termWeight{token: m.dict.Token(id), weight: weight})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].token < ranked[j].token
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	terms := make([]string, 0, n)
	for _, tw := range ranked[:n] {
		terms = append(terms, tw.token)
	}
	return terms
}
