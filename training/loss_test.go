package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"charrnn/decoder"
	"charrnn/vocab"
)

func TestTeacherPairsShiftByOne(t *testing.T) {
	ct := vocab.NewCharTable("ab")
	inputs, targets, err := TeacherPairs(ct, []string{"ab", "b"})
	require.NoError(t, err)

	start, end := ct.StartIndex(), ct.EndIndex()
	require.Equal(t, [][]int{{start, 0, 1}, {start, 1}}, inputs)
	require.Equal(t, [][]int{{0, 1, end}, {1, end}}, targets)

	_, _, err = TeacherPairs(ct, []string{"ax"})
	require.Error(t, err)
}

func TestSoftmaxIsStableAndNormalized(t *testing.T) {
	probs := Softmax([]float32{1000, 1001, 999})
	var sum float32
	for _, p := range probs {
		require.False(t, math.IsNaN(float64(p)))
		sum += p
	}
	require.InDelta(t, 1, sum, 1e-5)
	require.Greater(t, probs[1], probs[0])
	require.Greater(t, probs[0], probs[2])
}

func TestCrossEntropyUniformScores(t *testing.T) {
	targets, err := decoder.Pack([][]int{{0, 1}, {2}})
	require.NoError(t, err)

	scores := &decoder.PackedScores{
		BatchSizes: targets.BatchSizes,
		Order:      targets.Order,
	}
	for range targets.Data {
		scores.Data = append(scores.Data, make([]float32, 4))
	}

	loss, err := CrossEntropy(scores, targets)
	require.NoError(t, err)
	require.InDelta(t, math.Log(4), float64(loss), 1e-4)
	require.InDelta(t, 4, float64(Perplexity(loss)), 1e-3)
}

func TestCrossEntropyRejectsLayoutMismatch(t *testing.T) {
	targets, err := decoder.Pack([][]int{{0, 1, 2}})
	require.NoError(t, err)

	scores := &decoder.PackedScores{
		Data:       [][]float32{{0, 0}},
		BatchSizes: []int{1},
		Order:      []int{0},
	}
	_, err = CrossEntropy(scores, targets)
	require.Error(t, err)
}

func TestCrossEntropyRejectsOutOfRangeTarget(t *testing.T) {
	targets, err := decoder.Pack([][]int{{5}})
	require.NoError(t, err)

	scores := &decoder.PackedScores{
		Data:       [][]float32{{0, 0, 0}},
		BatchSizes: []int{1},
		Order:      []int{0},
	}
	_, err = CrossEntropy(scores, targets)
	require.Error(t, err)
}
