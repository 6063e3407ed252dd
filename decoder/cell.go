package decoder

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CellKind selects the recurrent cell variant. It is fixed at construction
// and determines whether the hidden state is a single tensor or a
// (hidden, cell) pair.
type CellKind int

const (
	GRU CellKind = iota
	LSTM
)

// ParseCellKind resolves the configured cell variant name.
func ParseCellKind(s string) (CellKind, error) {
	switch s {
	case "GRU":
		return GRU, nil
	case "LSTM":
		return LSTM, nil
	}
	return 0, fmt.Errorf("unknown cell kind %q (want GRU or LSTM)", s)
}

func (k CellKind) String() string {
	if k == LSTM {
		return "LSTM"
	}
	return "GRU"
}

// Dual reports whether the variant carries a cell state alongside the hidden
// state.
func (k CellKind) Dual() bool { return k == LSTM }

// gates returns the number of gate blocks packed into the cell weights.
func (k CellKind) gates() int {
	if k == LSTM {
		return 4
	}
	return 3
}

// Cell is a single-layer gated recurrent cell. Weights are packed per gate:
// Wih is (gates*hidden, input), Whh is (gates*hidden, hidden), biases are
// (gates*hidden). Gate order is r,z,n for GRU and i,f,g,o for LSTM.
type Cell struct {
	kind   CellKind
	input  int
	hidden int

	wih *tensor.Dense
	whh *tensor.Dense
	bih *tensor.Dense
	bhh *tensor.Dense
}

func NewCell(kind CellKind, inputSize, hiddenSize int) *Cell {
	g := kind.gates() * hiddenSize
	return &Cell{
		kind:   kind,
		input:  inputSize,
		hidden: hiddenSize,
		wih:    newMatrix(g, inputSize, gorgonia.GlorotU(1.0)),
		whh:    newMatrix(g, hiddenSize, gorgonia.GlorotU(1.0)),
		bih:    newVector(g, gorgonia.Zeroes()),
		bhh:    newVector(g, gorgonia.Zeroes()),
	}
}

func (c *Cell) Kind() CellKind  { return c.kind }
func (c *Cell) HiddenSize() int { return c.hidden }
func (c *Cell) InputSize() int  { return c.input }

// SetParams replaces all four packed parameter tensors.
func (c *Cell) SetParams(wih, whh, bih, bhh *tensor.Dense) error {
	g := c.kind.gates() * c.hidden
	if err := checkShape("cell wih", wih, g, c.input); err != nil {
		return err
	}
	if err := checkShape("cell whh", whh, g, c.hidden); err != nil {
		return err
	}
	if err := checkShape("cell bih", bih, g); err != nil {
		return err
	}
	if err := checkShape("cell bhh", bhh, g); err != nil {
		return err
	}
	c.wih, c.whh, c.bih, c.bhh = wih, whh, bih, bhh
	return nil
}

// preact computes W*v + b for the packed gate weights into out.
func preact(w *tensor.Dense, b *tensor.Dense, v []float32, out []float32) {
	wd := w.Data().([]float32)
	bd := b.Data().([]float32)
	n := len(v)
	for o := range out {
		sum := bd[o]
		row := wd[o*n : (o+1)*n]
		for i, vi := range v {
			sum += row[i] * vi
		}
		out[o] = sum
	}
}

// Step advances the cell by one character position. x is the embedded input,
// h the previous hidden vector and cPrev the previous cell vector (nil for
// GRU). It returns fresh next-state vectors; cNext is nil for GRU.
func (c *Cell) Step(x, h, cPrev []float32) (hNext, cNext []float32) {
	g := c.kind.gates() * c.hidden
	gi := make([]float32, g)
	gh := make([]float32, g)
	preact(c.wih, c.bih, x, gi)
	preact(c.whh, c.bhh, h, gh)

	hs := c.hidden
	hNext = make([]float32, hs)

	if c.kind == GRU {
		for j := 0; j < hs; j++ {
			r := sigmoid(gi[j] + gh[j])
			z := sigmoid(gi[hs+j] + gh[hs+j])
			n := tanh(gi[2*hs+j] + r*gh[2*hs+j])
			hNext[j] = (1-z)*n + z*h[j]
		}
		return hNext, nil
	}

	cNext = make([]float32, hs)
	for j := 0; j < hs; j++ {
		i := sigmoid(gi[j] + gh[j])
		f := sigmoid(gi[hs+j] + gh[hs+j])
		gg := tanh(gi[2*hs+j] + gh[2*hs+j])
		o := sigmoid(gi[3*hs+j] + gh[3*hs+j])
		cNext[j] = f*cPrev[j] + i*gg
		hNext[j] = o * tanh(cNext[j])
	}
	return hNext, cNext
}
