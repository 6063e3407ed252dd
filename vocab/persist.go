package vocab

import (
	"encoding/gob"
	"fmt"
	"os"

	"gorgonia.org/tensor"
)

// The two artifacts mirror the preprocessing pipeline's output: a word
// table with its embedding matrix, and a character table. The embedding
// matrix travels as shape plus flat backing.

type wordArtifact struct {
	WordToIndex map[string]int
	IndexToWord map[int]string
	Rows, Cols  int
	Data        []float32
}

type charArtifact struct {
	CharToIndex map[string]int
	IndexToChar map[int]string
}

// WordArtifactPath returns the word-table artifact path for a prefix.
func WordArtifactPath(prefix string) string { return prefix + "_words.gob" }

// CharArtifactPath returns the char-table artifact path for a prefix.
func CharArtifactPath(prefix string) string { return prefix + "_chars.gob" }

// SaveTables writes both tables under the given path prefix.
func SaveTables(prefix string, wt *WordTable, ct *CharTable) error {
	shape := wt.Embeddings.Shape()
	wa := wordArtifact{
		WordToIndex: wt.WordToIndex,
		IndexToWord: wt.IndexToWord,
		Rows:        shape[0],
		Cols:        shape[1],
		Data:        wt.Embeddings.Data().([]float32),
	}
	if err := writeGob(WordArtifactPath(prefix), wa); err != nil {
		return fmt.Errorf("save word table: %w", err)
	}
	ca := charArtifact{CharToIndex: ct.CharToIndex, IndexToChar: ct.IndexToChar}
	if err := writeGob(CharArtifactPath(prefix), ca); err != nil {
		return fmt.Errorf("save char table: %w", err)
	}
	return nil
}

// LoadWordTable reads the word-table artifact written by SaveTables.
func LoadWordTable(prefix string) (*WordTable, error) {
	var wa wordArtifact
	if err := readGob(WordArtifactPath(prefix), &wa); err != nil {
		return nil, fmt.Errorf("load word table: %w", err)
	}
	if len(wa.Data) != wa.Rows*wa.Cols {
		return nil, fmt.Errorf("load word table: %d values for shape (%d, %d)", len(wa.Data), wa.Rows, wa.Cols)
	}
	return &WordTable{
		WordToIndex: wa.WordToIndex,
		IndexToWord: wa.IndexToWord,
		Embeddings:  tensor.New(tensor.WithShape(wa.Rows, wa.Cols), tensor.WithBacking(wa.Data)),
	}, nil
}

// LoadCharTable reads the char-table artifact written by SaveTables.
func LoadCharTable(prefix string) (*CharTable, error) {
	var ca charArtifact
	if err := readGob(CharArtifactPath(prefix), &ca); err != nil {
		return nil, fmt.Errorf("load char table: %w", err)
	}
	return &CharTable{CharToIndex: ca.CharToIndex, IndexToChar: ca.IndexToChar}, nil
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
