// Package search samples network hyperparameters and selects the
// configuration with the lowest validation score.
package search

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/materialsml/pscnet/internal/arch"
)

// Trial is one sampled hyperparameter configuration. Score is filled in by
// the loop; lower is better.
type Trial struct {
	ID          int
	HiddenSizes []int
	Optimizer   string
	LR          float64
	Score       float64
}

// Space bounds the sampled configurations: depth, per-layer width, optimizer
// family and learning rate.
type Space struct {
	MinLayers int
	MaxLayers int
	MinWidth  int
	MaxWidth  int

	Optimizers []string

	// learning rates are sampled log-uniformly from [MinLR, MaxLR]
	MinLR float64
	MaxLR float64
}

// NewSpace builds the default search space for a dataset with inputDim
// features: 4 to 6 hidden layers, widths from 10 up to half the input
// dimension. Datasets too narrow to admit that width range are rejected.
func NewSpace(inputDim int) (Space, error) {
	maxWidth := inputDim / 2
	if maxWidth < 10 {
		return Space{}, errors.Errorf(
			"search: input dim %d gives max width %d, below the minimum width 10",
			inputDim, maxWidth)
	}
	return Space{
		MinLayers:  4,
		MaxLayers:  6,
		MinWidth:   10,
		MaxWidth:   maxWidth,
		Optimizers: []string{"Adam", "RMSProp", "SGD"},
		MinLR:      1e-5,
		MaxLR:      1e-1,
	}, nil
}

// Strategy proposes trials and learns from their scores.
type Strategy interface {
	// Propose returns the next configuration to evaluate.
	Propose() Trial

	// Observe reports the score of a finished trial.
	Observe(trial Trial, score float64)
}

// RandomSearch samples configurations independently and uniformly from the
// space. Observe is a no-op; random search does not adapt.
type RandomSearch struct {
	space Space
	rng   *rand.Rand
	next  int
}

// NewRandomSearch builds a seeded random sampler over space.
func NewRandomSearch(space Space, seed int64) *RandomSearch {
	return &RandomSearch{
		space: space,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Propose samples one configuration.
func (r *RandomSearch) Propose() Trial {
	s := r.space
	nLayers := s.MinLayers + r.rng.Intn(s.MaxLayers-s.MinLayers+1)

	hidden := make([]int, nLayers)
	for i := range hidden {
		hidden[i] = s.MinWidth + r.rng.Intn(s.MaxWidth-s.MinWidth+1)
	}

	logMin := math.Log(s.MinLR)
	logMax := math.Log(s.MaxLR)
	lr := math.Exp(logMin + r.rng.Float64()*(logMax-logMin))

	t := Trial{
		ID:          r.next,
		HiddenSizes: hidden,
		Optimizer:   s.Optimizers[r.rng.Intn(len(s.Optimizers))],
		LR:          lr,
	}
	r.next++
	return t
}

// Observe is a no-op for random search.
func (r *RandomSearch) Observe(Trial, float64) {}

// ModelConfig translates a trial into a network topology for the given data
// dimensions.
func ModelConfig(t Trial, inputDim, outputDim int) arch.ModelConfig {
	hidden := make([]int, len(t.HiddenSizes))
	copy(hidden, t.HiddenSizes)
	return arch.ModelConfig{
		InputDim:    inputDim,
		OutputDim:   outputDim,
		HiddenSizes: hidden,
		Activation:  "relu",
	}
}
