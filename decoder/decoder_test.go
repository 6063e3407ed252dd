package decoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"charrnn/vocab"
)

// The engineered-weights scenario uses the alphabet {a, b, c} plus the
// sentinels: a=0, b=1, c=2, START=3, END=4.
const (
	idxA     = 0
	idxEnd   = 4
	scenario = "abc"
)

func dense(t *testing.T, backing []float32, shape ...int) *tensor.Dense {
	t.Helper()
	n := 1
	for _, d := range shape {
		n *= d
	}
	require.Len(t, backing, n)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

// zeroedModel builds a HeadDecoder whose head, char embedding and cell input
// weights are all zero, so the initial hidden state is exactly zero and the
// recurrent dynamics depend only on the cell's hidden-to-hidden biases.
func zeroedModel(t *testing.T, mode string) *HeadDecoder {
	t.Helper()
	model, err := NewHeadDecoder(Config{
		Mode:              mode,
		HiddenSize:        4,
		CharCount:         5,
		CharEmbeddingSize: 4,
		WordEmbeddingSize: 4,
	})
	require.NoError(t, err)

	require.NoError(t, model.Head().Linear().SetParams(
		dense(t, make([]float32, 16), 4, 4),
		dense(t, make([]float32, 4), 4),
	))
	require.NoError(t, model.Decoder().Input().SetWeights(
		dense(t, make([]float32, 20), 5, 4),
	))

	gates := model.Kind().gates()
	cell := model.Decoder().RNN().Cell()
	bhh := make([]float32, gates*4)
	// Third gate block: the candidate gate (n for GRU, g for LSTM). A
	// constant bias there drives the hidden state monotonically upward
	// while every other gate sits at sigmoid(0) = 0.5.
	for j := 8; j < 12; j++ {
		bhh[j] = 2
	}
	require.NoError(t, cell.SetParams(
		dense(t, make([]float32, gates*4*4), gates*4, 4),
		dense(t, make([]float32, gates*4*4), gates*4, 4),
		dense(t, make([]float32, gates*4), gates*4),
		dense(t, bhh, gates*4),
	))
	return model
}

// hiddenTrajectory reproduces the engineered cell's hidden value per step.
func hiddenTrajectory(mode string, steps int) []float64 {
	h := make([]float64, steps+1)
	if mode == "GRU" {
		// h' = 0.5*tanh(1) + 0.5*h
		a := math.Tanh(1)
		for t := 1; t <= steps; t++ {
			h[t] = 0.5*a + 0.5*h[t-1]
		}
		return h
	}
	// LSTM: c' = 0.5*c + 0.5*tanh(2), h' = 0.5*tanh(c')
	g := math.Tanh(2)
	c := 0.0
	for t := 1; t <= steps; t++ {
		c = 0.5*c + 0.5*g
		h[t] = 0.5 * math.Tanh(c)
	}
	return h
}

// setCountingProjection fixes the projection so that "a" scores highest
// until emitCount characters have been emitted, then END overtakes it.
func setCountingProjection(t *testing.T, model *HeadDecoder, mode string, emitCount int) {
	t.Helper()
	h := hiddenTrajectory(mode, emitCount+1)
	threshold := (h[emitCount] + h[emitCount+1]) / 2

	const scale = 1000
	w := make([]float32, 5*4)
	b := []float32{1, -10, -10, -10, float32(1 - scale*threshold)}
	w[idxEnd*4] = scale
	require.NoError(t, model.Decoder().Output().SetParams(
		dense(t, w, 5, 4),
		dense(t, b, 5),
	))
}

func scenarioChars() *vocab.CharTable {
	return vocab.NewCharTable(scenario)
}

func TestGenerateEmitsExactlyThreeAs(t *testing.T) {
	for _, mode := range []string{"GRU", "LSTM"} {
		t.Run(mode, func(t *testing.T) {
			model := zeroedModel(t, mode)
			setCountingProjection(t, model, mode, 3)

			gen := NewGenerator(model, scenarioChars())
			out, err := gen.Generate(make([]float32, 4))
			require.NoError(t, err)
			require.Equal(t, "aaa", out)
		})
	}
}

func TestGenerateStopsOnImmediateEnd(t *testing.T) {
	model := zeroedModel(t, "GRU")
	// END wins from the very first step.
	b := []float32{0, 0, 0, 0, 10}
	require.NoError(t, model.Decoder().Output().SetParams(
		dense(t, make([]float32, 20), 5, 4),
		dense(t, b, 5),
	))

	gen := NewGenerator(model, scenarioChars())
	out, err := gen.Generate(make([]float32, 4))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestGenerateHitsMaxStepsWithoutEnd(t *testing.T) {
	model := zeroedModel(t, "GRU")
	// "a" wins forever.
	b := []float32{10, 0, 0, 0, 0}
	require.NoError(t, model.Decoder().Output().SetParams(
		dense(t, make([]float32, 20), 5, 4),
		dense(t, b, 5),
	))

	gen := NewGenerator(model, scenarioChars())
	gen.MaxSteps = 7
	out, err := gen.Generate(make([]float32, 4))
	require.ErrorIs(t, err, ErrMaxSteps)
	require.Equal(t, "aaaaaaa", out)
}

// Teacher-forcing the exact sequence the greedy generator produced must
// reproduce the same arg-max characters, including the final END. This
// pins head/no-head consistency: generation threads state with the head
// bypassed, while the forced pass runs the head once over the whole batch.
func TestTeacherForcedArgmaxMatchesGeneration(t *testing.T) {
	for _, mode := range []string{"GRU", "LSTM"} {
		t.Run(mode, func(t *testing.T) {
			model := zeroedModel(t, mode)
			setCountingProjection(t, model, mode, 3)
			chars := scenarioChars()

			gen := NewGenerator(model, chars)
			out, err := gen.Generate(make([]float32, 4))
			require.NoError(t, err)
			require.Equal(t, "aaa", out)

			seq, err := chars.EncodeWord(out)
			require.NoError(t, err)
			forced, err := Pack([][]int{seq[:len(seq)-1]})
			require.NoError(t, err)

			emb := dense(t, make([]float32, 4), 1, 4)
			scores, _, err := model.Forward(emb, forced)
			require.NoError(t, err)

			var argmaxes []int
			for _, vec := range scores.Unpack()[0] {
				argmaxes = append(argmaxes, argmax(vec))
			}
			require.Equal(t, []int{idxA, idxA, idxA, idxEnd}, argmaxes)
		})
	}
}

func TestForwardIsDeterministic(t *testing.T) {
	model, err := NewHeadDecoder(Config{
		Mode:              "LSTM",
		HiddenSize:        8,
		CharCount:         5,
		CharEmbeddingSize: 6,
		WordEmbeddingSize: 3,
	})
	require.NoError(t, err)

	batch, err := Pack([][]int{{3, 0, 1, 4}, {3, 2, 4}})
	require.NoError(t, err)
	emb := dense(t, []float32{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}, 2, 3)

	first, _, err := model.Forward(emb, batch)
	require.NoError(t, err)
	second, _, err := model.Forward(emb, batch)
	require.NoError(t, err)
	require.Equal(t, first.Data, second.Data)
}

func TestForwardPreservesLengthsAndScoreWidth(t *testing.T) {
	model, err := NewHeadDecoder(Config{
		Mode:              "GRU",
		HiddenSize:        8,
		CharCount:         5,
		CharEmbeddingSize: 6,
		WordEmbeddingSize: 3,
	})
	require.NoError(t, err)

	seqs := [][]int{{3, 0, 1, 2, 4}, {3, 4}, {3, 1, 4}}
	batch, err := Pack(seqs)
	require.NoError(t, err)
	emb := dense(t, make([]float32, 9), 3, 3)

	scores, final, err := model.Forward(emb, batch)
	require.NoError(t, err)

	unpacked := scores.Unpack()
	require.Len(t, unpacked, len(seqs))
	for i, seq := range seqs {
		require.Len(t, unpacked[i], len(seq), "sequence %d", i)
		for _, vec := range unpacked[i] {
			require.Len(t, vec, 5)
		}
	}
	require.Equal(t, []int{1, 3, 8}, []int(final.Hidden().Shape()))
}

func TestVariantMismatchFails(t *testing.T) {
	gru, err := NewCharDecoder(Config{Mode: "GRU", HiddenSize: 4, CharCount: 5, CharEmbeddingSize: 4, WordEmbeddingSize: 4})
	require.NoError(t, err)
	lstm, err := NewCharDecoder(Config{Mode: "LSTM", HiddenSize: 4, CharCount: 5, CharEmbeddingSize: 4, WordEmbeddingSize: 4})
	require.NoError(t, err)

	batch, err := Pack([][]int{{3, 0, 4}})
	require.NoError(t, err)

	h := dense(t, make([]float32, 4), 1, 1, 4)
	c := dense(t, make([]float32, 4), 1, 1, 4)

	_, _, err = gru.Forward(DualState(h, c), batch)
	require.Error(t, err)

	_, _, err = lstm.Forward(SingleState(h), batch)
	require.Error(t, err)

	// The matching variants pass.
	_, _, err = gru.Forward(SingleState(h), batch)
	require.NoError(t, err)
	_, _, err = lstm.Forward(DualState(h, c), batch)
	require.NoError(t, err)
}

func TestConstructionFailsFast(t *testing.T) {
	_, err := NewHeadDecoder(Config{Mode: "BiLSTM"})
	require.Error(t, err)

	_, err = NewHeadDecoder(Config{Activation: "softmax"})
	require.Error(t, err)

	_, err = NewHeadDecoder(Config{NumLayers: 2})
	require.Error(t, err)

	_, err = NewHeadDecoder(Config{HiddenSize: -1})
	require.Error(t, err)
}

func TestForwardRejectsOutOfRangeIndex(t *testing.T) {
	model, err := NewCharDecoder(Config{Mode: "GRU", HiddenSize: 4, CharCount: 5, CharEmbeddingSize: 4, WordEmbeddingSize: 4})
	require.NoError(t, err)

	batch, err := Pack([][]int{{3, 7}})
	require.NoError(t, err)
	_, _, err = model.Forward(model.RNN().zeroStateFor(1), batch)
	require.Error(t, err)
}
