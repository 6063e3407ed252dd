// Package training provides the teacher-forcing data plumbing and loss
// computation for the character decoder. Optimization itself lives outside
// this module.
package training

import (
	"fmt"
	"math"

	"charrnn/decoder"
	"charrnn/vocab"
)

// TeacherPairs builds aligned input and target index sequences for a batch
// of words: the input is [START..last char], the target the same sequence
// shifted one position, [first char..END].
func TeacherPairs(chars *vocab.CharTable, words []string) (inputs, targets [][]int, err error) {
	inputs = make([][]int, 0, len(words))
	targets = make([][]int, 0, len(words))
	for _, w := range words {
		seq, err := chars.EncodeWord(w)
		if err != nil {
			return nil, nil, err
		}
		inputs = append(inputs, seq[:len(seq)-1])
		targets = append(targets, seq[1:])
	}
	return inputs, targets, nil
}

// Softmax converts logits to probabilities with max-subtraction for
// numerical stability.
func Softmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	var sum float32
	result := make([]float32, len(logits))
	for i, v := range logits {
		exp := float32(math.Exp(float64(v - max)))
		result[i] = exp
		sum += exp
	}
	for i := range result {
		result[i] /= sum
	}
	return result
}

// CrossEntropy computes the mean negative log probability of the target
// character at every packed position. The scores must come from a forward
// pass over the packed inputs that the targets were packed alongside, so
// both share one layout.
func CrossEntropy(scores *decoder.PackedScores, targets *decoder.PackedBatch) (float32, error) {
	if len(scores.Data) != len(targets.Data) {
		return 0, fmt.Errorf("cross entropy: %d score positions for %d targets", len(scores.Data), len(targets.Data))
	}
	if len(scores.BatchSizes) != len(targets.BatchSizes) {
		return 0, fmt.Errorf("cross entropy: step count mismatch: %d vs %d", len(scores.BatchSizes), len(targets.BatchSizes))
	}
	for t, bs := range scores.BatchSizes {
		if targets.BatchSizes[t] != bs {
			return 0, fmt.Errorf("cross entropy: batch size mismatch at step %d: %d vs %d", t, bs, targets.BatchSizes[t])
		}
	}
	for r, idx := range scores.Order {
		if targets.Order[r] != idx {
			return 0, fmt.Errorf("cross entropy: packing order mismatch at row %d", r)
		}
	}

	var total float64
	for pos, logits := range scores.Data {
		target := targets.Data[pos]
		if target < 0 || target >= len(logits) {
			return 0, fmt.Errorf("cross entropy: target %d out of range [0, %d)", target, len(logits))
		}
		probs := Softmax(logits)
		total += -math.Log(float64(probs[target]) + 1e-8)
	}
	return float32(total / float64(len(scores.Data))), nil
}

// Perplexity is exp of the mean cross-entropy loss.
func Perplexity(loss float32) float32 {
	return float32(math.Exp(float64(loss)))
}
