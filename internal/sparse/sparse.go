// Package sparse builds lexical term-frequency vectors for hybrid retrieval.
package sparse

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Vector is a lexical sparse vector: parallel (index, weight) pairs.
// Indices and Values always have equal length.
type Vector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsEmpty reports whether the vector carries no terms.
func (v Vector) IsEmpty() bool { return len(v.Indices) == 0 }

// Build converts text into a term-frequency sparse vector. Tokens are
// lower-cased, split on non-alphanumeric boundaries, and dropped when a
// single character or shorter. Surviving tokens are hashed to integer
// positions and weighted by normalized term frequency in (0, 1].
// Empty or all-short input yields an empty vector, not an error.
func Build(text string) Vector {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Vector{Indices: []uint32{}, Values: []float32{}}
	}

	counts := make(map[uint32]int, len(tokens))
	for _, tok := range tokens {
		counts[hashToken(tok)]++
	}

	total := float32(len(tokens))
	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = float32(counts[idx]) / total
	}

	return Vector{Indices: indices, Values: values}
}

// Tokenize splits text into the lower-cased alphanumeric terms that survive
// the length filter. The index layer reuses these terms for lexical queries.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func hashToken(tok string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	return h.Sum32()
}
