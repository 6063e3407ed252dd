package decoder

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// BatchNorm normalizes each feature over the batch dimension. In training
// mode it uses batch statistics and updates running estimates; in evaluation
// mode it uses the running estimates only. Constructed in evaluation mode.
type BatchNorm struct {
	size     int
	gamma    []float32
	beta     []float32
	mean     []float32 // running mean
	variance []float32 // running variance
	momentum float32
	eps      float32
	training bool
}

func NewBatchNorm(size int) *BatchNorm {
	bn := &BatchNorm{
		size:     size,
		gamma:    make([]float32, size),
		beta:     make([]float32, size),
		mean:     make([]float32, size),
		variance: make([]float32, size),
		momentum: 0.1,
		eps:      1e-5,
	}
	for i := range bn.gamma {
		bn.gamma[i] = 1
		bn.variance[i] = 1
	}
	return bn
}

// SetTraining switches between batch statistics and running estimates.
func (bn *BatchNorm) SetTraining(on bool) { bn.training = on }

// Forward normalizes x of shape (batch, size) into a fresh tensor. A batch
// of one in training mode has zero variance and is rejected as caller
// misuse.
func (bn *BatchNorm) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != bn.size {
		return nil, fmt.Errorf("batchnorm: got shape %v, want (batch, %d)", shape, bn.size)
	}
	batch := shape[0]
	if bn.training && batch < 2 {
		return nil, fmt.Errorf("batchnorm: training mode needs batch size > 1, got %d", batch)
	}

	in := x.Data().([]float32)
	out := make([]float32, len(in))

	mean := bn.mean
	variance := bn.variance
	if bn.training {
		mean = make([]float32, bn.size)
		variance = make([]float32, bn.size)
		for j := 0; j < bn.size; j++ {
			var sum float32
			for b := 0; b < batch; b++ {
				sum += in[b*bn.size+j]
			}
			mean[j] = sum / float32(batch)
			var sq float32
			for b := 0; b < batch; b++ {
				d := in[b*bn.size+j] - mean[j]
				sq += d * d
			}
			// Biased variance normalizes the batch; the unbiased estimate
			// feeds the running average.
			variance[j] = sq / float32(batch)
			unbiased := sq / float32(batch-1)
			bn.mean[j] = (1-bn.momentum)*bn.mean[j] + bn.momentum*mean[j]
			bn.variance[j] = (1-bn.momentum)*bn.variance[j] + bn.momentum*unbiased
		}
	}

	for b := 0; b < batch; b++ {
		for j := 0; j < bn.size; j++ {
			inv := float32(1 / math.Sqrt(float64(variance[j]+bn.eps)))
			out[b*bn.size+j] = (in[b*bn.size+j]-mean[j])*inv*bn.gamma[j] + bn.beta[j]
		}
	}
	return tensor.New(tensor.WithShape(batch, bn.size), tensor.WithBacking(out)), nil
}

// Head converts word embeddings into the recurrent cell's initial hidden
// state: affine projection, nonlinearity, batch normalization, then a
// reshape to the (numLayers, batch, hidden) layout. For a dual-state cell
// the transformed tensor is duplicated into both components.
type Head struct {
	linear *Linear
	act    Activation
	norm   *BatchNorm
	hidden int
}

func NewHead(wordEmbeddingSize, hiddenSize int, activation string) (*Head, error) {
	act, err := ActivationByName(activation)
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}
	return &Head{
		linear: NewLinear(wordEmbeddingSize, hiddenSize),
		act:    act,
		norm:   NewBatchNorm(hiddenSize),
		hidden: hiddenSize,
	}, nil
}

// Linear exposes the affine stage, e.g. for loading trained weights.
func (h *Head) Linear() *Linear { return h.linear }

// Norm exposes the batch normalization stage.
func (h *Head) Norm() *BatchNorm { return h.norm }

// SetTraining toggles the normalization stage's mode.
func (h *Head) SetTraining(on bool) { h.norm.SetTraining(on) }

// Forward maps embeddings of shape (batch, wordEmbeddingSize) to an initial
// state for the given cell kind.
func (h *Head) Forward(embeddings *tensor.Dense, kind CellKind) (HiddenState, error) {
	shape := embeddings.Shape()
	if len(shape) != 2 || shape[1] != h.linear.InSize() {
		return HiddenState{}, fmt.Errorf("head: got embeddings shape %v, want (batch, %d)", shape, h.linear.InSize())
	}
	batch := shape[0]
	in := embeddings.Data().([]float32)

	projected := make([]float32, batch*h.hidden)
	emb := h.linear.InSize()
	for b := 0; b < batch; b++ {
		row := h.linear.Apply(in[b*emb : (b+1)*emb])
		for j, v := range row {
			projected[b*h.hidden+j] = h.act(v)
		}
	}

	normed, err := h.norm.Forward(tensor.New(
		tensor.WithShape(batch, h.hidden),
		tensor.WithBacking(projected),
	))
	if err != nil {
		return HiddenState{}, fmt.Errorf("head: %w", err)
	}

	data := normed.Data().([]float32)
	hidden := tensor.New(
		tensor.WithShape(1, batch, h.hidden),
		tensor.WithBacking(append([]float32(nil), data...)),
	)
	if !kind.Dual() {
		return SingleState(hidden), nil
	}
	cell := tensor.New(
		tensor.WithShape(1, batch, h.hidden),
		tensor.WithBacking(append([]float32(nil), data...)),
	)
	return DualState(hidden, cell), nil
}
