package decoder

import (
	"fmt"
	"math"
)

// Activation is an elementwise nonlinearity applied to hidden vectors.
type Activation func(float32) float32

func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// ActivationByName resolves a configured nonlinearity name. Supported names
// are "relu", "sigmoid" and "tanh"; anything else is a configuration error.
func ActivationByName(name string) (Activation, error) {
	acts := map[string]Activation{
		"relu":    relu,
		"sigmoid": sigmoid,
		"tanh":    tanh,
	}
	act, ok := acts[name]
	if !ok {
		return nil, fmt.Errorf("unknown activation %q (want relu, sigmoid or tanh)", name)
	}
	return act, nil
}
