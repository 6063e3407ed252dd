package decoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// With zeroed input weights the engineered cell's hidden value follows a
// closed-form trajectory per step, which makes the final-state contract
// directly observable: each sequence's final state is the state after its
// last real step, returned in caller order despite the internal reordering.
func TestForwardFinalStatePerSequenceLength(t *testing.T) {
	model := zeroedModel(t, "GRU")

	// Caller order: short sequence first. Packing will reorder them.
	batch, err := Pack([][]int{{3, 0}, {3, 0, 1, 2}})
	require.NoError(t, err)

	emb := dense(t, make([]float32, 8), 2, 4)
	_, final, err := model.Forward(emb, batch)
	require.NoError(t, err)

	h := hiddenTrajectory("GRU", 4)
	data := final.Hidden().Data().([]float32)
	// Row 0: the length-2 sequence. Row 1: the length-4 sequence.
	require.InDelta(t, h[2], float64(data[0]), 1e-5)
	require.InDelta(t, h[4], float64(data[4]), 1e-5)
}

func TestGRUStepMatchesGateArithmetic(t *testing.T) {
	cell := NewCell(GRU, 1, 1)
	require.NoError(t, cell.SetParams(
		dense(t, []float32{0.5, -0.3, 0.8}, 3, 1),
		dense(t, []float32{0.2, 0.4, -0.6}, 3, 1),
		dense(t, []float32{0.1, -0.1, 0.3}, 3),
		dense(t, []float32{-0.2, 0.5, 0.7}, 3),
	))

	x, h := 0.9, -0.4
	gi := []float64{0.5*x + 0.1, -0.3*x - 0.1, 0.8*x + 0.3}
	gh := []float64{0.2*h - 0.2, 0.4*h + 0.5, -0.6*h + 0.7}
	r := 1 / (1 + math.Exp(-(gi[0] + gh[0])))
	z := 1 / (1 + math.Exp(-(gi[1] + gh[1])))
	n := math.Tanh(gi[2] + r*gh[2])
	want := (1-z)*n + z*h

	got, cNext := cell.Step([]float32{float32(x)}, []float32{float32(h)}, nil)
	require.Nil(t, cNext)
	require.InDelta(t, want, float64(got[0]), 1e-5)
}

func TestLSTMStepMatchesGateArithmetic(t *testing.T) {
	cell := NewCell(LSTM, 1, 1)
	require.NoError(t, cell.SetParams(
		dense(t, []float32{0.5, -0.3, 0.8, 0.2}, 4, 1),
		dense(t, []float32{0.2, 0.4, -0.6, -0.1}, 4, 1),
		dense(t, []float32{0.1, -0.1, 0.3, 0}, 4),
		dense(t, []float32{-0.2, 0.5, 0.7, 0.4}, 4),
	))

	x, h, c := 0.9, -0.4, 0.25
	pre := func(wi, bi, wh, bh float64) float64 { return wi*x + bi + wh*h + bh }
	sig := func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
	i := sig(pre(0.5, 0.1, 0.2, -0.2))
	f := sig(pre(-0.3, -0.1, 0.4, 0.5))
	g := math.Tanh(pre(0.8, 0.3, -0.6, 0.7))
	o := sig(pre(0.2, 0, -0.1, 0.4))
	wantC := f*c + i*g
	wantH := o * math.Tanh(wantC)

	gotH, gotC := cell.Step([]float32{float32(x)}, []float32{float32(h)}, []float32{float32(c)})
	require.InDelta(t, wantC, float64(gotC[0]), 1e-5)
	require.InDelta(t, wantH, float64(gotH[0]), 1e-5)
}

func TestParseCellKind(t *testing.T) {
	k, err := ParseCellKind("GRU")
	require.NoError(t, err)
	require.False(t, k.Dual())

	k, err = ParseCellKind("LSTM")
	require.NoError(t, err)
	require.True(t, k.Dual())

	_, err = ParseCellKind("RNN_TANH")
	require.Error(t, err)
}
