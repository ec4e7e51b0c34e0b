// Package activations provides activation functions for dense layers.
package activations

import (
	"math"

	"github.com/pkg/errors"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64

	// Name returns the canonical name used in persisted model configurations.
	Name() string
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Name() string { return "relu" }

// Sigmoid activation function.
type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sx := s.Activate(x)
	return sx * (1 - sx)
}

func (s Sigmoid) Name() string { return "sigmoid" }

// Tanh activation function.
type Tanh struct{}

func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tx := math.Tanh(x)
	return 1 - tx*tx
}

func (t Tanh) Name() string { return "tanh" }

// Identity passes values through unchanged. Used on regression output layers
// where the target is unbounded.
type Identity struct{}

func (i Identity) Activate(x float64) float64   { return x }
func (i Identity) Derivative(x float64) float64 { return 1 }
func (i Identity) Name() string                 { return "identity" }

// FromName resolves a persisted activation name back to its implementation.
func FromName(name string) (Activation, error) {
	switch name {
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "identity", "linear":
		return Identity{}, nil
	default:
		return nil, errors.Errorf("unknown activation %q", name)
	}
}
