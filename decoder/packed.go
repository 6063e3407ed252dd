package decoder

import (
	"fmt"
	"sort"
)

// PackedBatch stores variable-length index sequences packed step-major for
// one vectorized pass: first the step-0 symbol of every sequence, then the
// step-1 symbols of the sequences long enough to have one, and so on.
// Sequences are reordered internally by descending length; Order maps each
// packed row back to the caller's index so outputs can be restored to the
// original order exactly.
type PackedBatch struct {
	Data       []int
	BatchSizes []int // number of live sequences at each step
	Order      []int // Order[r] = caller index of packed row r
	lengths    []int // per packed row
}

// Pack builds a PackedBatch from per-word index sequences. The batch must be
// non-empty and every sequence must have at least one symbol.
func Pack(seqs [][]int) (*PackedBatch, error) {
	if len(seqs) == 0 {
		return nil, fmt.Errorf("pack: empty batch")
	}
	order := make([]int, len(seqs))
	for i := range order {
		order[i] = i
	}
	for i, s := range seqs {
		if len(s) == 0 {
			return nil, fmt.Errorf("pack: sequence %d is empty", i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(seqs[order[a]]) > len(seqs[order[b]])
	})

	lengths := make([]int, len(order))
	total := 0
	for r, idx := range order {
		lengths[r] = len(seqs[idx])
		total += lengths[r]
	}
	maxLen := lengths[0]

	p := &PackedBatch{
		Data:       make([]int, 0, total),
		BatchSizes: make([]int, maxLen),
		Order:      order,
		lengths:    lengths,
	}
	for t := 0; t < maxLen; t++ {
		live := 0
		for r, idx := range order {
			if lengths[r] <= t {
				break
			}
			p.Data = append(p.Data, seqs[idx][t])
			live++
		}
		p.BatchSizes[t] = live
	}
	return p, nil
}

// Sequences returns the number of sequences in the batch.
func (p *PackedBatch) Sequences() int { return len(p.Order) }

// Lengths returns the true sequence lengths in caller order.
func (p *PackedBatch) Lengths() []int {
	out := make([]int, len(p.Order))
	for r, idx := range p.Order {
		out[idx] = p.lengths[r]
	}
	return out
}

// PackedScores holds per-position score vectors in the same step-major
// layout and internal order as the PackedBatch they were computed from.
type PackedScores struct {
	Data       [][]float32
	BatchSizes []int
	Order      []int
}

// Unpack regroups the packed score vectors per sequence, restoring the
// caller's original order.
func (p *PackedScores) Unpack() [][][]float32 {
	out := make([][][]float32, len(p.Order))
	pos := 0
	for _, bs := range p.BatchSizes {
		for r := 0; r < bs; r++ {
			idx := p.Order[r]
			out[idx] = append(out[idx], p.Data[pos])
			pos++
		}
	}
	return out
}
