// Package vocab builds and persists the vocabulary tables the decoder
// consumes: a bijective character↔index table including the START and END
// sentinels, and a word↔index table with its word-embedding matrix.
package vocab

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Sentinel symbols marking the beginning and the termination of a character
// sequence. Both are regular members of the character alphabet.
const (
	StartToken = "START"
	EndToken   = "END"
)

// CharTable maps characters (plus the two sentinels) to contiguous indices
// and back. Letters occupy indices 0..n-1 in sorted order, followed by
// START and END.
type CharTable struct {
	CharToIndex map[string]int
	IndexToChar map[int]string
}

// NewCharTable builds the table from a letter set. Duplicates are dropped
// and the letters sorted, so any string spelling the same set yields the
// same table.
func NewCharTable(letters string) *CharTable {
	normalized := NormalizeLetters(letters)
	t := &CharTable{
		CharToIndex: make(map[string]int),
		IndexToChar: make(map[int]string),
	}
	i := 0
	for _, r := range normalized {
		t.CharToIndex[string(r)] = i
		t.IndexToChar[i] = string(r)
		i++
	}
	t.CharToIndex[StartToken] = i
	t.IndexToChar[i] = StartToken
	t.CharToIndex[EndToken] = i + 1
	t.IndexToChar[i+1] = EndToken
	return t
}

// Size returns the alphabet size including the sentinels.
func (t *CharTable) Size() int { return len(t.CharToIndex) }

func (t *CharTable) StartIndex() int { return t.CharToIndex[StartToken] }
func (t *CharTable) EndIndex() int   { return t.CharToIndex[EndToken] }

// IndexOf looks up a character.
func (t *CharTable) IndexOf(ch string) (int, error) {
	idx, ok := t.CharToIndex[ch]
	if !ok {
		return 0, fmt.Errorf("char table: unknown character %q", ch)
	}
	return idx, nil
}

// CharOf looks up an index.
func (t *CharTable) CharOf(idx int) (string, error) {
	ch, ok := t.IndexToChar[idx]
	if !ok {
		return "", fmt.Errorf("char table: index %d out of range [0, %d)", idx, t.Size())
	}
	return ch, nil
}

// EncodeWord converts a word to its index sequence wrapped in sentinels:
// [START, chars..., END].
func (t *CharTable) EncodeWord(word string) ([]int, error) {
	seq := make([]int, 0, len(word)+2)
	seq = append(seq, t.StartIndex())
	for _, r := range word {
		idx, err := t.IndexOf(string(r))
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", word, err)
		}
		seq = append(seq, idx)
	}
	return append(seq, t.EndIndex()), nil
}

// WordTable maps words to contiguous indices and holds the matching rows of
// the word-embedding matrix, shaped (wordCount, dim).
type WordTable struct {
	WordToIndex map[string]int
	IndexToWord map[int]string
	Embeddings  *tensor.Dense
}

// Count returns the number of words.
func (t *WordTable) Count() int { return len(t.WordToIndex) }

// Dim returns the embedding dimension.
func (t *WordTable) Dim() int { return t.Embeddings.Shape()[1] }

// EmbeddingOf returns the embedding row for word. The slice aliases the
// embedding matrix.
func (t *WordTable) EmbeddingOf(word string) ([]float32, error) {
	idx, ok := t.WordToIndex[word]
	if !ok {
		return nil, fmt.Errorf("word table: unknown word %q", word)
	}
	return t.EmbeddingAt(idx)
}

// EmbeddingAt returns the embedding row for a word index.
func (t *WordTable) EmbeddingAt(idx int) ([]float32, error) {
	if idx < 0 || idx >= t.Count() {
		return nil, fmt.Errorf("word table: index %d out of range [0, %d)", idx, t.Count())
	}
	dim := t.Dim()
	data := t.Embeddings.Data().([]float32)
	return data[idx*dim : (idx+1)*dim], nil
}
