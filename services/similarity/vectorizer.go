package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// sparseVector maps vocabulary term index to weight.
type sparseVector map[int]float64

// vectorizer builds a TF-IDF weighted vector space over a document corpus.
// Construct a fresh vectorizer per engine run; vocabulary and IDF weights
// are derived from, and only valid for, one corpus.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

func newVectorizer() *vectorizer {
	return &vectorizer{vocab: make(map[string]int)}
}

// tokenize splits a document into lower-case terms of at least two
// letters/digits, dropping stop-words.
func tokenize(doc string) []string {
	fields := strings.FieldsFunc(doc, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len([]rune(f)) < 2 {
			continue
		}
		if englishStopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// fitTransform learns the vocabulary and IDF weights from the corpus and
// returns one L2-normalized TF-IDF vector per document, index-aligned with
// the input. IDF uses smoothed weighting: ln((1+n)/(1+df)) + 1.
func (v *vectorizer) fitTransform(docs []string) []sparseVector {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)

	for i, doc := range docs {
		tc := make(map[string]int)
		for _, tok := range tokenize(doc) {
			tc[tok]++
		}
		counts[i] = tc
		for tok := range tc {
			df[tok]++
		}
	}

	// Sorted vocabulary keeps term indices deterministic across runs.
	terms := make([]string, 0, len(df))
	for tok := range df {
		terms = append(terms, tok)
	}
	sort.Strings(terms)

	v.idf = make([]float64, len(terms))
	n := float64(len(docs))
	for i, tok := range terms {
		v.vocab[tok] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[tok]))) + 1
	}

	vectors := make([]sparseVector, len(docs))
	for i, tc := range counts {
		vec := make(sparseVector, len(tc))
		var sumSq float64
		for tok, c := range tc {
			idx := v.vocab[tok]
			w := float64(c) * v.idf[idx]
			vec[idx] = w
			sumSq += w * w
		}
		if norm := math.Sqrt(sumSq); norm > 0 {
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// dot returns the inner product of two sparse vectors. Over L2-normalized
// vectors this is the cosine similarity.
func dot(a, b sparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		if bw, ok := b[idx]; ok {
			sum += w * bw
		}
	}
	return sum
}

// cosineMatrix computes the full pairwise cosine-similarity matrix. The
// result is symmetric with every diagonal entry derived from an item's
// self-similarity (1.0 for any non-empty vector).
func cosineMatrix(vectors []sparseVector) [][]float64 {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		matrix[i][i] = dot(vectors[i], vectors[i])
		for j := i + 1; j < n; j++ {
			s := dot(vectors[i], vectors[j])
			matrix[i][j] = s
			matrix[j][i] = s
		}
	}
	return matrix
}
