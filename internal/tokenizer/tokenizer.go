// Package tokenizer provides a character-level tokenizer whose vocabulary
// is the set of distinct runes in a corpus. Encoding a rune outside that
// set is a hard error, never a silent coercion.
package tokenizer

import (
	"fmt"
	"sort"
	"strings"
)

type Tokenizer struct {
	Tokens []rune
	Vocab  map[rune]int
}

// NewFromCorpus builds the vocabulary from the unique runes of the corpus,
// sorted for a stable rune-to-id assignment.
func NewFromCorpus(corpus string) (*Tokenizer, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("empty corpus")
	}

	seen := make(map[rune]bool)
	for _, r := range corpus {
		seen[r] = true
	}
	tokens := make([]rune, 0, len(seen))
	for r := range seen {
		tokens = append(tokens, r)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	vocab := make(map[rune]int, len(tokens))
	for i, r := range tokens {
		vocab[r] = i
	}

	return &Tokenizer{
		Tokens: tokens,
		Vocab:  vocab,
	}, nil
}

func (t *Tokenizer) VocabSize() int {
	return len(t.Tokens)
}

// Encode maps each rune to its id. Fails on the first out-of-vocabulary rune.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for pos, r := range text {
		id, ok := t.Vocab[r]
		if !ok {
			return nil, fmt.Errorf("rune %q at byte %d not in vocabulary", r, pos)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode is the inverse of Encode. Fails on out-of-range ids.
func (t *Tokenizer) Decode(ids []int) (string, error) {
	var sb strings.Builder
	for i, id := range ids {
		if id < 0 || id >= len(t.Tokens) {
			return "", fmt.Errorf("id %d at position %d out of range [0,%d)", id, i, len(t.Tokens))
		}
		sb.WriteRune(t.Tokens[id])
	}
	return sb.String(), nil
}
