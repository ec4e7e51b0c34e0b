// Package trainer runs the optimization loop for a configured model and
// dataset, with periodic evaluation and checkpointing.
package trainer

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/materialsml/pscnet/internal/arch"
	"github.com/materialsml/pscnet/internal/dataset"
	"github.com/materialsml/pscnet/internal/loss"
	"github.com/materialsml/pscnet/internal/metric"
	"github.com/materialsml/pscnet/internal/opt"
)

// Config controls the training loop.
type Config struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
	Seed      int64

	// EvalFreq is the epoch interval for validation passes; 0 disables
	// evaluation during training.
	EvalFreq int

	// SaveFreq is the epoch interval for intermediate checkpoints; 0 saves
	// nothing until the caller checkpoints the final model itself.
	SaveFreq      int
	CheckpointDir string

	// LogFreq is the iteration interval for progress logs.
	LogFreq int
}

// Metrics is one evaluation result over a dataset.
type Metrics struct {
	Loss float64
	RMSE float64
	MAE  float64
}

// Trainer owns one model and drives its optimization.
type Trainer struct {
	model     *arch.MLP
	lossFn    loss.Loss
	optimizer opt.Optimizer
	schedule  opt.Schedule
	train     *dataset.Tensors
	val       *dataset.Tensors
	cfg       Config
	log       *zap.SugaredLogger
}

// New builds a trainer. val may be nil when no validation set exists; the
// schedule may be nil to keep the optimizer's learning rate fixed.
func New(model *arch.MLP, lossFn loss.Loss, optimizer opt.Optimizer, schedule opt.Schedule,
	train, val *dataset.Tensors, cfg Config, log *zap.SugaredLogger) (*Trainer, error) {
	if model == nil {
		return nil, errors.New("trainer: nil model")
	}
	if train == nil || train.Len() == 0 {
		return nil, errors.New("trainer: empty training set")
	}
	if cfg.Epochs < 1 {
		return nil, errors.Errorf("trainer: %d epochs", cfg.Epochs)
	}
	if cfg.EvalFreq > 0 && (val == nil || val.Len() == 0) {
		return nil, errors.New("trainer: evaluation enabled without a validation set")
	}
	if schedule == nil {
		schedule = opt.ConstantLR{BaseLR: optimizer.LR()}
	}
	return &Trainer{
		model:     model,
		lossFn:    lossFn,
		optimizer: optimizer,
		schedule:  schedule,
		train:     train,
		val:       val,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Train runs the full loop and returns the per-epoch mean training loss.
func (t *Trainer) Train() ([]float64, error) {
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	history := make([]float64, 0, t.cfg.Epochs)
	iter := 0

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		batches := t.train.Batches(t.cfg.BatchSize, t.cfg.Shuffle, rng)

		var epochLoss float64
		for _, b := range batches {
			t.optimizer.SetLR(t.schedule.LRAt(iter))

			batchLoss, err := t.model.TrainBatch(b.X, b.Y, t.lossFn, t.optimizer)
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d", epoch)
			}
			epochLoss += batchLoss

			if t.cfg.LogFreq > 0 && iter%t.cfg.LogFreq == 0 {
				t.log.Infow("train step",
					"epoch", epoch,
					"iter", iter,
					"loss", batchLoss,
					"lr", t.optimizer.LR(),
				)
			}
			iter++
		}
		history = append(history, epochLoss/float64(len(batches)))

		if t.cfg.EvalFreq > 0 && epoch%t.cfg.EvalFreq == 0 {
			m, err := t.Eval()
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d eval", epoch)
			}
			t.log.Infow("eval",
				"epoch", epoch,
				"loss", m.Loss,
				"rmse", m.RMSE,
				"mae", m.MAE,
			)
		}

		if t.cfg.SaveFreq > 0 && t.cfg.CheckpointDir != "" && epoch%t.cfg.SaveFreq == 0 {
			path := filepath.Join(t.cfg.CheckpointDir, checkpointName(epoch))
			ckpt := arch.NewCheckpoint(t.model, t.optimizer.Name(), t.optimizer.LR())
			if err := ckpt.Save(path); err != nil {
				return nil, errors.Wrapf(err, "epoch %d checkpoint", epoch)
			}
			t.log.Infow("checkpoint saved", "epoch", epoch, "path", path)
		}
	}

	return history, nil
}

// Eval computes loss, RMSE and MAE over the validation set.
func (t *Trainer) Eval() (Metrics, error) {
	if t.val == nil || t.val.Len() == 0 {
		return Metrics{}, errors.New("trainer: no validation set")
	}

	lossVal, err := t.model.EvalLoss(t.val, t.lossFn)
	if err != nil {
		return Metrics{}, err
	}

	pred, target := Flatten(t.model, t.val)
	rmse, err := metric.RMSE(pred, target)
	if err != nil {
		return Metrics{}, err
	}
	mae, err := metric.MAE(pred, target)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{Loss: lossVal, RMSE: rmse, MAE: mae}, nil
}

// Predict runs rows through the trained network without touching gradients.
func (t *Trainer) Predict(rows [][]float64) [][]float64 {
	return t.model.Predict(rows)
}

// Model returns the trained network.
func (t *Trainer) Model() *arch.MLP { return t.model }

// Flatten runs every sample through the model and returns the flattened
// prediction and target vectors, for metric computation and plotting.
func Flatten(m *arch.MLP, d *dataset.Tensors) (pred, target []float64) {
	for i := 0; i < d.Len(); i++ {
		pred = append(pred, m.Forward(d.X[i])...)
		target = append(target, d.Y[i]...)
	}
	return pred, target
}

func checkpointName(epoch int) string {
	return fmt.Sprintf("epoch_%d.ckpt", epoch)
}
