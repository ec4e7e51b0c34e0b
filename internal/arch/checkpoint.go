package arch

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MismatchError reports a checkpoint whose recorded topology does not match
// the network it is being restored into.
type MismatchError struct {
	Field string
	Want  interface{}
	Got   interface{}
}

func (e *MismatchError) Error() string {
	return errors.Errorf("checkpoint %s mismatch: checkpoint has %v, model has %v",
		e.Field, e.Want, e.Got).Error()
}

// Checkpoint is the gob-serialized snapshot of a trained network together
// with the hyperparameters that produced it, so a saved model can be
// rebuilt and re-trained without the original search run.
type Checkpoint struct {
	InputDim    int
	OutputDim   int
	HiddenSizes []int
	NLayers     int
	Activation  string

	Optimizer string
	LR        float64

	Weights []float64
}

// NewCheckpoint snapshots the model's parameters and training
// hyperparameters.
func NewCheckpoint(m *MLP, optimizer string, lr float64) *Checkpoint {
	cfg := m.Config()
	hidden := make([]int, len(cfg.HiddenSizes))
	copy(hidden, cfg.HiddenSizes)
	return &Checkpoint{
		InputDim:    cfg.InputDim,
		OutputDim:   cfg.OutputDim,
		HiddenSizes: hidden,
		NLayers:     len(hidden),
		Activation:  cfg.Activation,
		Optimizer:   optimizer,
		LR:          lr,
		Weights:     m.Params(),
	}
}

// Save writes the checkpoint to path, creating parent directories as needed.
func (c *Checkpoint) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create checkpoint dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create checkpoint file")
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from path.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint %s", path)
	}
	defer f.Close()

	var c Checkpoint
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return nil, errors.Wrapf(err, "decode checkpoint %s", path)
	}
	return &c, nil
}

// Config returns the topology recorded in the checkpoint.
func (c *Checkpoint) Config() ModelConfig {
	hidden := make([]int, len(c.HiddenSizes))
	copy(hidden, c.HiddenSizes)
	return ModelConfig{
		InputDim:    c.InputDim,
		OutputDim:   c.OutputDim,
		HiddenSizes: hidden,
		Activation:  c.Activation,
	}
}

// Restore copies the checkpoint's weights into m. The model topology must
// match the checkpoint exactly.
func (c *Checkpoint) Restore(m *MLP) error {
	cfg := m.Config()
	if cfg.InputDim != c.InputDim {
		return &MismatchError{Field: "input dim", Want: c.InputDim, Got: cfg.InputDim}
	}
	if cfg.OutputDim != c.OutputDim {
		return &MismatchError{Field: "output dim", Want: c.OutputDim, Got: cfg.OutputDim}
	}
	if len(cfg.HiddenSizes) != len(c.HiddenSizes) {
		return &MismatchError{Field: "hidden layers", Want: c.HiddenSizes, Got: cfg.HiddenSizes}
	}
	for i := range cfg.HiddenSizes {
		if cfg.HiddenSizes[i] != c.HiddenSizes[i] {
			return &MismatchError{Field: "hidden layers", Want: c.HiddenSizes, Got: cfg.HiddenSizes}
		}
	}
	if cfg.Activation != c.Activation {
		return &MismatchError{Field: "activation", Want: c.Activation, Got: cfg.Activation}
	}
	if len(c.Weights) != m.NumParams() {
		return &MismatchError{Field: "parameter count", Want: len(c.Weights), Got: m.NumParams()}
	}
	return m.SetParams(c.Weights)
}

// Build reconstructs the network from the checkpoint's recorded topology and
// restores its weights.
func (c *Checkpoint) Build() (*MLP, error) {
	m, err := New(c.Config(), 0)
	if err != nil {
		return nil, err
	}
	if err := c.Restore(m); err != nil {
		return nil, err
	}
	return m, nil
}
