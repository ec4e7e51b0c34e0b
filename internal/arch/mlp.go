// Package arch builds the feed-forward regression network and persists it to
// disk.
package arch

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/materialsml/pscnet/internal/activations"
	"github.com/materialsml/pscnet/internal/dataset"
	"github.com/materialsml/pscnet/internal/layer"
	"github.com/materialsml/pscnet/internal/loss"
	"github.com/materialsml/pscnet/internal/opt"
)

// ModelConfig describes an MLP topology. The hidden layers use Activation;
// the output layer is always linear.
type ModelConfig struct {
	InputDim    int
	OutputDim   int
	HiddenSizes []int
	Activation  string
}

// Validate checks the topology for structural problems.
func (c ModelConfig) Validate() error {
	if c.InputDim < 1 {
		return errors.Errorf("arch: input dim %d < 1", c.InputDim)
	}
	if c.OutputDim < 1 {
		return errors.Errorf("arch: output dim %d < 1", c.OutputDim)
	}
	if len(c.HiddenSizes) == 0 {
		return errors.New("arch: no hidden layers")
	}
	for i, w := range c.HiddenSizes {
		if w < 1 {
			return errors.Errorf("arch: hidden layer %d has width %d", i, w)
		}
	}
	return nil
}

// MLP is a fully connected feed-forward network mapping device features to a
// predicted short-circuit current density.
type MLP struct {
	cfg    ModelConfig
	layers []*layer.Dense

	numParams int
	paramBuf  []float64
	gradBuf   []float64
	lossGrad  []float64
}

// New builds an MLP with weights initialized from seed. The same seed and
// config always yield identical initial weights.
func New(cfg ModelConfig, seed int64) (*MLP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hidden, err := activations.FromName(cfg.Activation)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	sizes := append([]int{cfg.InputDim}, cfg.HiddenSizes...)
	sizes = append(sizes, cfg.OutputDim)

	m := &MLP{cfg: cfg}
	for i := 0; i < len(sizes)-1; i++ {
		act := hidden
		if i == len(sizes)-2 {
			act = activations.Identity{}
		}
		l := layer.NewDense(sizes[i], sizes[i+1], act, rng)
		m.layers = append(m.layers, l)
		m.numParams += l.NumParams()
	}
	m.paramBuf = make([]float64, m.numParams)
	m.gradBuf = make([]float64, m.numParams)
	return m, nil
}

// Config returns the topology the network was built with.
func (m *MLP) Config() ModelConfig { return m.cfg }

// NumParams returns the total number of trainable parameters.
func (m *MLP) NumParams() int { return m.numParams }

// Forward runs one sample through the network. The result is freshly
// allocated and safe to retain.
func (m *MLP) Forward(x []float64) []float64 {
	out := x
	for _, l := range m.layers {
		out = l.Forward(out)
	}
	res := make([]float64, len(out))
	copy(res, out)
	return res
}

// Predict runs every row through the network.
func (m *MLP) Predict(rows [][]float64) [][]float64 {
	preds := make([][]float64, len(rows))
	for i, row := range rows {
		preds[i] = m.Forward(row)
	}
	return preds
}

// TrainBatch runs one optimization step on a minibatch and returns the batch
// loss. The loss and its gradient are computed over the whole flattened
// batch so that batch-normalized losses see every target at once.
func (m *MLP) TrainBatch(x, y [][]float64, lossFn loss.Loss, optimizer opt.Optimizer) (float64, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, errors.Errorf("arch: batch of %d inputs and %d targets", n, len(y))
	}
	out := m.cfg.OutputDim

	flatPred := make([]float64, 0, n*out)
	flatTrue := make([]float64, 0, n*out)
	for s := 0; s < n; s++ {
		flatPred = append(flatPred, m.Forward(x[s])...)
		flatTrue = append(flatTrue, y[s]...)
	}
	if len(flatTrue) != n*out {
		return 0, errors.Errorf("arch: targets have %d values, want %d", len(flatTrue), n*out)
	}

	lossVal := lossFn.Forward(flatPred, flatTrue)

	if cap(m.lossGrad) < n*out {
		m.lossGrad = make([]float64, n*out)
	}
	grad := m.lossGrad[:n*out]
	if ip, ok := lossFn.(loss.BackwardInPlacer); ok {
		ip.BackwardInPlace(flatPred, flatTrue, grad)
	} else {
		copy(grad, lossFn.Backward(flatPred, flatTrue))
	}

	for _, l := range m.layers {
		l.ZeroGrad()
	}
	for s := 0; s < n; s++ {
		// repopulate layer buffers for this sample before backprop
		in := x[s]
		for _, l := range m.layers {
			in = l.Forward(in)
		}
		g := grad[s*out : (s+1)*out]
		for i := len(m.layers) - 1; i >= 0; i-- {
			g = m.layers[i].Backward(g)
		}
	}

	m.copyParams(m.paramBuf)
	m.copyGradients(m.gradBuf)
	optimizer.StepInPlace(m.paramBuf, m.gradBuf)
	m.SetParams(m.paramBuf)

	return lossVal, nil
}

// EvalLoss computes the loss over an entire dataset without updating
// parameters.
func (m *MLP) EvalLoss(d *dataset.Tensors, lossFn loss.Loss) (float64, error) {
	if d.Len() == 0 {
		return 0, errors.New("arch: empty evaluation set")
	}
	out := m.cfg.OutputDim
	flatPred := make([]float64, 0, d.Len()*out)
	flatTrue := make([]float64, 0, d.Len()*out)
	for s := 0; s < d.Len(); s++ {
		flatPred = append(flatPred, m.Forward(d.X[s])...)
		flatTrue = append(flatTrue, d.Y[s]...)
	}
	return lossFn.Forward(flatPred, flatTrue), nil
}

// Params returns a flattened copy of all weights and biases, layer by layer.
func (m *MLP) Params() []float64 {
	out := make([]float64, m.numParams)
	m.copyParams(out)
	return out
}

// SetParams replaces all weights and biases from a flattened slice.
func (m *MLP) SetParams(params []float64) error {
	if len(params) != m.numParams {
		return errors.Errorf("arch: %d params for a %d-param network", len(params), m.numParams)
	}
	off := 0
	for _, l := range m.layers {
		l.SetParams(params[off : off+l.NumParams()])
		off += l.NumParams()
	}
	return nil
}

func (m *MLP) copyParams(dst []float64) {
	off := 0
	for _, l := range m.layers {
		l.CopyParams(dst[off : off+l.NumParams()])
		off += l.NumParams()
	}
}

func (m *MLP) copyGradients(dst []float64) {
	off := 0
	for _, l := range m.layers {
		l.CopyGradients(dst[off : off+l.NumParams()])
		off += l.NumParams()
	}
}
