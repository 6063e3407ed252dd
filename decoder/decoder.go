// Package decoder implements a character-level autoregressive word decoder:
// a single-layer gated recurrent cell (GRU or LSTM) that reconstructs a word
// one character at a time from a fixed-size word embedding. It supports
// batched teacher-forced forward passes over packed variable-length
// sequences and single-sequence greedy generation.
package decoder

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Config is the construction-time surface of the decoder. The zero value of
// any field falls back to the reference defaults.
type Config struct {
	Mode              string // "GRU" or "LSTM"
	HiddenSize        int
	CharCount         int
	CharEmbeddingSize int
	WordEmbeddingSize int
	Activation        string // head nonlinearity: relu, sigmoid or tanh
	NumLayers         int    // must be 1
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = "GRU"
	}
	if c.HiddenSize == 0 {
		c.HiddenSize = 50
	}
	if c.CharCount == 0 {
		c.CharCount = 28
	}
	if c.CharEmbeddingSize == 0 {
		c.CharEmbeddingSize = 50
	}
	if c.WordEmbeddingSize == 0 {
		c.WordEmbeddingSize = 50
	}
	if c.Activation == "" {
		c.Activation = "relu"
	}
	if c.NumLayers == 0 {
		c.NumLayers = 1
	}
	return c
}

func (c Config) validate() error {
	if _, err := ParseCellKind(c.Mode); err != nil {
		return err
	}
	if c.HiddenSize < 1 || c.CharCount < 1 || c.CharEmbeddingSize < 1 || c.WordEmbeddingSize < 1 {
		return fmt.Errorf("config: sizes must be positive: %+v", c)
	}
	if c.NumLayers != 1 {
		return fmt.Errorf("config: numLayers must be 1, got %d", c.NumLayers)
	}
	if _, err := ActivationByName(c.Activation); err != nil {
		return err
	}
	return nil
}

// CharDecoder generates character score sequences from an initial hidden
// state. It owns the character embedding, the output projection and the
// recurrent core wired between them.
type CharDecoder struct {
	kind   CellKind
	input  *Embedding
	output *Linear
	rnn    *WrappedRNN
	hidden int
}

// NewCharDecoder builds the decoder core from cfg. Unknown mode or
// activation names and invalid sizes fail here, before any forward call.
func NewCharDecoder(cfg Config) (*CharDecoder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	kind, _ := ParseCellKind(cfg.Mode)

	input := NewEmbedding(cfg.CharCount, cfg.CharEmbeddingSize)
	output := NewLinear(cfg.HiddenSize, cfg.CharCount)
	rnn, err := NewWrappedRNN(kind, cfg.CharEmbeddingSize, cfg.HiddenSize, input, output, cfg.NumLayers)
	if err != nil {
		return nil, err
	}
	return &CharDecoder{
		kind:   kind,
		input:  input,
		output: output,
		rnn:    rnn,
		hidden: cfg.HiddenSize,
	}, nil
}

func (d *CharDecoder) Kind() CellKind  { return d.kind }
func (d *CharDecoder) HiddenSize() int { return d.hidden }

// Input exposes the character embedding for weight loading.
func (d *CharDecoder) Input() *Embedding { return d.input }

// Output exposes the projection for weight loading.
func (d *CharDecoder) Output() *Linear { return d.output }

// RNN exposes the recurrent core.
func (d *CharDecoder) RNN() *WrappedRNN { return d.rnn }

// Forward runs one pass over the packed batch from the given state.
func (d *CharDecoder) Forward(state HiddenState, batch *PackedBatch) (*PackedScores, HiddenState, error) {
	return d.rnn.Forward(state, batch)
}

// HeadDecoder pairs a CharDecoder with the hidden-state initializer that
// turns word embeddings into initial recurrent states.
type HeadDecoder struct {
	kind    CellKind
	decoder *CharDecoder
	head    *Head
}

func NewHeadDecoder(cfg Config) (*HeadDecoder, error) {
	cfg = cfg.withDefaults()
	dec, err := NewCharDecoder(cfg)
	if err != nil {
		return nil, err
	}
	head, err := NewHead(cfg.WordEmbeddingSize, cfg.HiddenSize, cfg.Activation)
	if err != nil {
		return nil, err
	}
	return &HeadDecoder{kind: dec.Kind(), decoder: dec, head: head}, nil
}

func (d *HeadDecoder) Kind() CellKind        { return d.kind }
func (d *HeadDecoder) Decoder() *CharDecoder { return d.decoder }
func (d *HeadDecoder) Head() *Head           { return d.head }

// SetTraining toggles the head's normalization mode. The recurrent forward
// path itself has no mode.
func (d *HeadDecoder) SetTraining(on bool) { d.head.SetTraining(on) }

// Forward treats embeddings (batch, wordEmbeddingSize) as word embeddings:
// the head runs once for the batch and the decoder consumes the packed
// sequences from the resulting state. This is the teacher-forced path.
func (d *HeadDecoder) Forward(embeddings *tensor.Dense, batch *PackedBatch) (*PackedScores, HiddenState, error) {
	if shape := embeddings.Shape(); len(shape) == 2 && shape[0] != batch.Sequences() {
		return nil, HiddenState{}, fmt.Errorf("head decoder: %d embeddings for %d sequences", shape[0], batch.Sequences())
	}
	state, err := d.head.Forward(embeddings, d.kind)
	if err != nil {
		return nil, HiddenState{}, err
	}
	return d.decoder.Forward(state, batch)
}

// ForwardState bypasses the head and feeds a caller-built state directly,
// e.g. the state threaded across autoregressive generation steps.
func (d *HeadDecoder) ForwardState(state HiddenState, batch *PackedBatch) (*PackedScores, HiddenState, error) {
	return d.decoder.Forward(state, batch)
}
