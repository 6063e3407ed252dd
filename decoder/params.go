package decoder

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// newMatrix allocates a (rows, cols) float32 parameter tensor filled by the
// given initializer.
func newMatrix(rows, cols int, init gorgonia.InitWFn) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(init(tensor.Float32, rows, cols)),
	)
}

// newVector allocates a length-n float32 parameter tensor.
func newVector(n int, init gorgonia.InitWFn) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(n),
		tensor.WithBacking(init(tensor.Float32, n)),
	)
}

func checkShape(name string, t *tensor.Dense, want ...int) error {
	shape := t.Shape()
	if len(shape) != len(want) {
		return fmt.Errorf("%s: got shape %v, want %v", name, shape, want)
	}
	for i, d := range want {
		if shape[i] != d {
			return fmt.Errorf("%s: got shape %v, want %v", name, shape, want)
		}
	}
	return nil
}

// Embedding maps a character index to a dense vector.
type Embedding struct {
	weights *tensor.Dense // (vocab, dim)
	vocab   int
	dim     int
}

func NewEmbedding(vocab, dim int) *Embedding {
	return &Embedding{
		weights: newMatrix(vocab, dim, gorgonia.GlorotU(1.0)),
		vocab:   vocab,
		dim:     dim,
	}
}

// Lookup returns the embedding row for idx. The returned slice aliases the
// embedding table and must not be modified.
func (e *Embedding) Lookup(idx int) ([]float32, error) {
	if idx < 0 || idx >= e.vocab {
		return nil, fmt.Errorf("embedding index %d out of range [0, %d)", idx, e.vocab)
	}
	data := e.weights.Data().([]float32)
	return data[idx*e.dim : (idx+1)*e.dim], nil
}

func (e *Embedding) Dim() int { return e.dim }

// SetWeights replaces the embedding table, e.g. with trained weights.
func (e *Embedding) SetWeights(w *tensor.Dense) error {
	if err := checkShape("embedding weights", w, e.vocab, e.dim); err != nil {
		return err
	}
	e.weights = w
	return nil
}

// Linear is an affine map y = Wx + b with W of shape (out, in).
type Linear struct {
	w   *tensor.Dense // (out, in)
	b   *tensor.Dense // (out)
	in  int
	out int
}

func NewLinear(in, out int) *Linear {
	return &Linear{
		w:   newMatrix(out, in, gorgonia.GlorotU(1.0)),
		b:   newVector(out, gorgonia.Zeroes()),
		in:  in,
		out: out,
	}
}

// Apply computes Wx + b into a fresh slice.
func (l *Linear) Apply(x []float32) []float32 {
	w := l.w.Data().([]float32)
	b := l.b.Data().([]float32)
	y := make([]float32, l.out)
	for o := 0; o < l.out; o++ {
		sum := b[o]
		row := w[o*l.in : (o+1)*l.in]
		for i, xi := range x {
			sum += row[i] * xi
		}
		y[o] = sum
	}
	return y
}

func (l *Linear) InSize() int  { return l.in }
func (l *Linear) OutSize() int { return l.out }

// SetParams replaces the weight matrix and bias vector.
func (l *Linear) SetParams(w, b *tensor.Dense) error {
	if err := checkShape("linear weights", w, l.out, l.in); err != nil {
		return err
	}
	if err := checkShape("linear bias", b, l.out); err != nil {
		return err
	}
	l.w = w
	l.b = b
	return nil
}
