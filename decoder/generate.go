package decoder

import (
	"errors"
	"fmt"
	"strings"

	"gorgonia.org/tensor"

	"charrnn/vocab"
)

// ErrMaxSteps reports that generation hit the safety bound before the model
// emitted END. The partial output is still returned alongside it.
var ErrMaxSteps = errors.New("generation exceeded max steps without END")

// DefaultMaxSteps bounds the autoregressive loop. The model is supposed to
// terminate by emitting END; the bound exists so a model that never does
// cannot loop forever.
const DefaultMaxSteps = 100

// Generator greedily decodes single words from word embeddings. Each step
// feeds the arg-max character of the previous step back in, with the head
// bypassed after the first call.
type Generator struct {
	Model    *HeadDecoder
	Chars    *vocab.CharTable
	MaxSteps int // 0 means DefaultMaxSteps
}

func NewGenerator(model *HeadDecoder, chars *vocab.CharTable) *Generator {
	return &Generator{Model: model, Chars: chars, MaxSteps: DefaultMaxSteps}
}

// Generate decodes one word from the given embedding. Decoding stops when
// END is the highest-scoring character; END itself is never appended, so a
// model that emits END immediately yields the empty string.
func (g *Generator) Generate(wordEmbedding []float32) (string, error) {
	maxSteps := g.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}

	emb := tensor.New(
		tensor.WithShape(1, len(wordEmbedding)),
		tensor.WithBacking(append([]float32(nil), wordEmbedding...)),
	)
	batch, err := Pack([][]int{{g.Chars.StartIndex()}})
	if err != nil {
		return "", err
	}

	scores, state, err := g.Model.Forward(emb, batch)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	next := argmax(scores.Data[0])

	var out strings.Builder
	end := g.Chars.EndIndex()
	for steps := 1; next != end; steps++ {
		ch, err := g.Chars.CharOf(next)
		if err != nil {
			return out.String(), fmt.Errorf("generate: %w", err)
		}
		out.WriteString(ch)
		if steps >= maxSteps {
			return out.String(), ErrMaxSteps
		}

		batch, err = Pack([][]int{{next}})
		if err != nil {
			return out.String(), err
		}
		scores, state, err = g.Model.ForwardState(state, batch)
		if err != nil {
			return out.String(), fmt.Errorf("generate: %w", err)
		}
		next = argmax(scores.Data[0])
	}
	return out.String(), nil
}

// argmax returns the index of the highest score, lowest index on ties.
func argmax(scores []float32) int {
	best := 0
	for i, v := range scores[1:] {
		if v > scores[best] {
			best = i + 1
		}
	}
	return best
}
