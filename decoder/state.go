package decoder

import (
	"fmt"

	"gorgonia.org/tensor"
)

// HiddenState is the recurrent state for one forward call. It is a tagged
// variant: a single tensor for GRU-like cells, or a (hidden, cell) pair for
// LSTM-like cells. Tensors are shaped (numLayers, batch, hiddenSize) with
// numLayers fixed at 1.
type HiddenState struct {
	hidden *tensor.Dense
	cell   *tensor.Dense // nil for the single variant
}

// SingleState wraps a lone hidden tensor.
func SingleState(h *tensor.Dense) HiddenState {
	return HiddenState{hidden: h}
}

// DualState wraps a (hidden, cell) pair.
func DualState(h, c *tensor.Dense) HiddenState {
	return HiddenState{hidden: h, cell: c}
}

// Dual reports whether the state carries a cell component.
func (s HiddenState) Dual() bool { return s.cell != nil }

// Hidden returns the hidden tensor.
func (s HiddenState) Hidden() *tensor.Dense { return s.hidden }

// Cell returns the cell tensor, nil for the single variant.
func (s HiddenState) Cell() *tensor.Dense { return s.cell }

// Batch returns the batch dimension of the state.
func (s HiddenState) Batch() int {
	return s.hidden.Shape()[1]
}

// validate checks the state against the cell kind that will consume it and
// the expected geometry. A variant mismatch or a shape mismatch is a
// contract error surfaced before any arithmetic runs.
func (s HiddenState) validate(kind CellKind, batch, hiddenSize int) error {
	if s.hidden == nil {
		return fmt.Errorf("hidden state: missing hidden tensor")
	}
	if kind.Dual() && s.cell == nil {
		return fmt.Errorf("hidden state: %s cell requires a (hidden, cell) pair, got a single tensor", kind)
	}
	if !kind.Dual() && s.cell != nil {
		return fmt.Errorf("hidden state: %s cell takes a single tensor, got a (hidden, cell) pair", kind)
	}
	if err := checkShape("hidden state", s.hidden, 1, batch, hiddenSize); err != nil {
		return err
	}
	if s.cell != nil {
		if err := checkShape("cell state", s.cell, 1, batch, hiddenSize); err != nil {
			return err
		}
	}
	return nil
}

// hiddenRow returns the hidden vector for batch entry b (layer 0).
func (s HiddenState) hiddenRow(b, hiddenSize int) []float32 {
	data := s.hidden.Data().([]float32)
	return data[b*hiddenSize : (b+1)*hiddenSize]
}

// cellRow returns the cell vector for batch entry b, nil for single states.
func (s HiddenState) cellRow(b, hiddenSize int) []float32 {
	if s.cell == nil {
		return nil
	}
	data := s.cell.Data().([]float32)
	return data[b*hiddenSize : (b+1)*hiddenSize]
}

// newState allocates a zeroed state of the right variant for kind.
func newState(kind CellKind, batch, hiddenSize int) HiddenState {
	h := tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(1, batch, hiddenSize))
	if !kind.Dual() {
		return SingleState(h)
	}
	c := tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(1, batch, hiddenSize))
	return DualState(h, c)
}
