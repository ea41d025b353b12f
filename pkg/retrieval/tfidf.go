package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// maxVocabulary bounds the vector space to the most frequent terms across
// the corpus after stop-word removal.
const maxVocabulary = 500

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// vectorSpace is a fitted TF-IDF model: a bounded vocabulary with inverse
// document frequencies. Immutable after fitVectorSpace returns; queries
// project into it without re-fitting, so out-of-vocabulary terms simply
// contribute zero weight.
type vectorSpace struct {
	terms map[string]int // term -> dimension index
	idf   []float64
}

// fitVectorSpace builds the vocabulary and idf weights from the corpus.
// Vocabulary selection keeps the maxVocabulary terms with the highest
// corpus-wide frequency, ties broken alphabetically for determinism.
// IDF uses the smoothed form ln((1+n)/(1+df)) + 1.
func fitVectorSpace(docs []string) *vectorSpace {
	counts := map[string]int{}
	docFreq := map[string]int{}

	for _, doc := range docs {
		seen := map[string]bool{}

		for _, term := range tokenize(doc) {
			counts[term]++

			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}

	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}

		return terms[i] < terms[j]
	})

	if len(terms) > maxVocabulary {
		terms = terms[:maxVocabulary]
	}

	space := &vectorSpace{
		terms: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}

	n := float64(len(docs))

	for i, term := range terms {
		space.terms[term] = i
		space.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return space
}

// vectorize projects text into the fitted space as an L2-normalized TF-IDF
// vector. A text with no in-vocabulary terms yields the zero vector.
func (v *vectorSpace) vectorize(text string) []float64 {
	vec := make([]float64, len(v.idf))

	for _, term := range tokenize(text) {
		if idx, ok := v.terms[term]; ok {
			vec[idx] += v.idf[idx]
		}
	}

	norm := 0.0
	for _, w := range vec {
		norm += w * w
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}

// dot is cosine similarity for already-normalized vectors.
func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

// tokenize lowercases text and extracts word tokens of at least two
// characters, dropping english stop words.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))

	for _, token := range raw {
		if !stopWords[token] {
			tokens = append(tokens, token)
		}
	}

	return tokens
}
