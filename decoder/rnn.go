package decoder

import (
	"fmt"
)

// WrappedRNN runs a single-layer recurrent cell over a packed batch of
// character index sequences. The input embedding and output projection are
// injected at construction, so raw index sequences go in and raw score
// sequences come out without the caller touching either module.
type WrappedRNN struct {
	cell   *Cell
	input  *Embedding
	output *Linear
}

// NewWrappedRNN wires a cell together with its input and output modules.
// numLayers exists for parity with the configuration surface and must be 1.
func NewWrappedRNN(kind CellKind, inputSize, hiddenSize int, input *Embedding, output *Linear, numLayers int) (*WrappedRNN, error) {
	if numLayers != 1 {
		return nil, fmt.Errorf("wrapped rnn: numLayers must be 1, got %d", numLayers)
	}
	if input == nil || output == nil {
		return nil, fmt.Errorf("wrapped rnn: input and output modules are required")
	}
	if input.Dim() != inputSize {
		return nil, fmt.Errorf("wrapped rnn: embedding dim %d does not match input size %d", input.Dim(), inputSize)
	}
	if output.InSize() != hiddenSize {
		return nil, fmt.Errorf("wrapped rnn: projection input %d does not match hidden size %d", output.InSize(), hiddenSize)
	}
	return &WrappedRNN{
		cell:   NewCell(kind, inputSize, hiddenSize),
		input:  input,
		output: output,
	}, nil
}

func (r *WrappedRNN) Kind() CellKind { return r.cell.kind }

// Cell exposes the underlying cell, e.g. for loading trained weights.
func (r *WrappedRNN) Cell() *Cell { return r.cell }

// Forward consumes the packed batch one step at a time, advancing each live
// sequence's state and projecting every hidden output to character scores.
// The initial state is given in caller order; the returned final state is
// the state after each sequence's last real step, also in caller order.
func (r *WrappedRNN) Forward(state HiddenState, batch *PackedBatch) (*PackedScores, HiddenState, error) {
	hs := r.cell.hidden
	n := batch.Sequences()
	if err := state.validate(r.cell.kind, n, hs); err != nil {
		return nil, HiddenState{}, err
	}

	// Working state rows in packed (descending-length) order.
	workH := make([][]float32, n)
	workC := make([][]float32, n)
	for rr, idx := range batch.Order {
		workH[rr] = append([]float32(nil), state.hiddenRow(idx, hs)...)
		if r.cell.kind.Dual() {
			workC[rr] = append([]float32(nil), state.cellRow(idx, hs)...)
		}
	}

	scores := &PackedScores{
		Data:       make([][]float32, 0, len(batch.Data)),
		BatchSizes: append([]int(nil), batch.BatchSizes...),
		Order:      append([]int(nil), batch.Order...),
	}

	pos := 0
	for _, bs := range batch.BatchSizes {
		for rr := 0; rr < bs; rr++ {
			x, err := r.input.Lookup(batch.Data[pos])
			if err != nil {
				return nil, HiddenState{}, err
			}
			workH[rr], workC[rr] = r.cell.Step(x, workH[rr], workC[rr])
			scores.Data = append(scores.Data, r.output.Apply(workH[rr]))
			pos++
		}
	}

	final := newState(r.cell.kind, n, hs)
	finalH := final.hidden.Data().([]float32)
	var finalC []float32
	if r.cell.kind.Dual() {
		finalC = final.cell.Data().([]float32)
	}
	for rr, idx := range batch.Order {
		copy(finalH[idx*hs:(idx+1)*hs], workH[rr])
		if finalC != nil {
			copy(finalC[idx*hs:(idx+1)*hs], workC[rr])
		}
	}
	return scores, final, nil
}

// zeroStateFor builds a zeroed initial state matching the cell variant,
// mostly useful in tests and callers that skip the head entirely.
func (r *WrappedRNN) zeroStateFor(batch int) HiddenState {
	return newState(r.cell.kind, batch, r.cell.hidden)
}
