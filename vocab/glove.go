package vocab

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// LoadGloveModel reads word vectors from a glove-format text file: one word
// per line followed by its whitespace-separated float components. A nil
// logger disables progress logging.
func LoadGloveModel(path string, logger *zap.Logger) (map[string][]float32, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load glove: %w", err)
	}
	defer file.Close()
	logger.Info("opened glove file", zap.String("path", path))

	model := make(map[string][]float32)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			return nil, fmt.Errorf("load glove: line %d: want word and components, got %d fields", line, len(fields))
		}
		vec := make([]float32, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("load glove: line %d: %w", line, err)
			}
			vec[i] = float32(v)
		}
		model[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load glove: %w", err)
	}
	logger.Info("loaded word vectors", zap.Int("words", len(model)))
	return model, nil
}

// Build filters the word vectors against the letter set and assembles the
// two vocabulary tables: words in sorted order with their embedding matrix,
// and the character table over the normalized letters plus sentinels.
func Build(vectors map[string][]float32, letters string, logger *zap.Logger) (*WordTable, *CharTable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	letters = NormalizeLetters(letters)
	logger.Info("filtering words", zap.String("letters", letters))

	filtered := FilterWords(vectors, letters)
	if len(filtered) == 0 {
		return nil, nil, fmt.Errorf("build vocab: no words survive the letter filter %q", letters)
	}

	words := make([]string, 0, len(filtered))
	for w := range filtered {
		words = append(words, w)
	}
	sort.Strings(words)

	dim := len(filtered[words[0]])
	logger.Info("building word table",
		zap.Int("words", len(words)),
		zap.Int("embedding_dim", dim),
	)

	wt := &WordTable{
		WordToIndex: make(map[string]int, len(words)),
		IndexToWord: make(map[int]string, len(words)),
	}
	backing := make([]float32, len(words)*dim)
	for i, w := range words {
		vec := filtered[w]
		if len(vec) != dim {
			return nil, nil, fmt.Errorf("build vocab: word %q has dimension %d, want %d", w, len(vec), dim)
		}
		wt.WordToIndex[w] = i
		wt.IndexToWord[i] = w
		copy(backing[i*dim:(i+1)*dim], vec)
	}
	wt.Embeddings = tensor.New(tensor.WithShape(len(words), dim), tensor.WithBacking(backing))

	return wt, NewCharTable(letters), nil
}
