// Command pscnet trains and evaluates a short-circuit current density (Jsc)
// regressor for perovskite solar cell devices. Training runs a random
// hyperparameter search over network depth, width, optimizer and learning
// rate, retrains the best configuration and checkpoints it; evaluation
// restores a checkpoint and reports RMSE, R2 and MAPE on held-out devices.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/materialsml/pscnet/internal/arch"
	"github.com/materialsml/pscnet/internal/config"
	"github.com/materialsml/pscnet/internal/dataset"
	"github.com/materialsml/pscnet/internal/loss"
	"github.com/materialsml/pscnet/internal/metric"
	"github.com/materialsml/pscnet/internal/opt"
	"github.com/materialsml/pscnet/internal/search"
	"github.com/materialsml/pscnet/internal/trainer"
	"github.com/materialsml/pscnet/internal/visualize"
)

// splitSeed fixes the train/verification partition across runs so search
// scores stay comparable.
const splitSeed = 42

// trainFrac is the share of training rows used for fitting; the rest is the
// verification split that scores search trials.
const trainFrac = 0.9

type cliArgs struct {
	Config string `arg:"--config" default:"conf/pscnet.yaml" help:"path to the YAML run configuration"`
	Mode   string `arg:"--mode" help:"override the configured mode (train or eval)"`
}

func (cliArgs) Description() string {
	return "pscnet: Jsc regression for perovskite solar cells"
}

func main() {
	var args cliArgs
	arg.MustParse(&args)

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(args.Config)
	if err != nil {
		log.Fatalw("load config", "error", err)
	}
	if args.Mode != "" {
		cfg.Mode = args.Mode
		if err := cfg.Validate(); err != nil {
			log.Fatalw("invalid config", "error", err)
		}
	}

	switch cfg.Mode {
	case config.ModeTrain:
		err = runTrain(cfg, log)
	case config.ModeEval:
		err = runEval(cfg, log)
	}
	if err != nil {
		log.Fatalw("run failed", "mode", cfg.Mode, "error", err)
	}
}

// loadTables reads a feature and a label CSV, normalizes bracketed column
// names and checks the column counts against the configured dimensions.
func loadTables(featPath, labPath string, cfg *config.Config) (*dataset.Table, *dataset.Table, error) {
	feat, err := dataset.Load(featPath)
	if err != nil {
		return nil, nil, err
	}
	lab, err := dataset.Load(labPath)
	if err != nil {
		return nil, nil, err
	}
	if err := feat.NormalizeNames(); err != nil {
		return nil, nil, errors.Wrap(err, featPath)
	}
	if err := lab.NormalizeNames(); err != nil {
		return nil, nil, errors.Wrap(err, labPath)
	}

	if len(feat.Names()) != cfg.Model.InputDim {
		return nil, nil, errors.Errorf("%s has %d feature columns, config expects %d",
			featPath, len(feat.Names()), cfg.Model.InputDim)
	}
	if len(lab.Names()) != cfg.Model.OutputDim {
		return nil, nil, errors.Errorf("%s has %d label columns, config expects %d",
			labPath, len(lab.Names()), cfg.Model.OutputDim)
	}
	return feat, lab, nil
}

// splitTensors partitions the paired tables into fit and verification sets.
// Splitting each table with the same seed and row count yields the same row
// permutation, so features and labels stay aligned.
func splitTensors(feat, lab *dataset.Table) (*dataset.Tensors, *dataset.Tensors, error) {
	fitFeat, verifFeat, err := feat.Split(trainFrac, splitSeed)
	if err != nil {
		return nil, nil, err
	}
	fitLab, verifLab, err := lab.Split(trainFrac, splitSeed)
	if err != nil {
		return nil, nil, err
	}

	fit, err := dataset.NewTensors(fitFeat, fitFeat.Names(), fitLab, fitLab.Names())
	if err != nil {
		return nil, nil, err
	}
	verif, err := dataset.NewTensors(verifFeat, verifFeat.Names(), verifLab, verifLab.Names())
	if err != nil {
		return nil, nil, err
	}
	return fit, verif, nil
}

func runTrain(cfg *config.Config, log *zap.SugaredLogger) error {
	feat, lab, err := loadTables(cfg.Data.TrainFeaturesPath, cfg.Data.TrainLabelsPath, cfg)
	if err != nil {
		return err
	}
	fit, verif, err := splitTensors(feat, lab)
	if err != nil {
		return err
	}
	valFeat, valLab, err := loadTables(cfg.Data.ValFeaturesPath, cfg.Data.ValLabelsPath, cfg)
	if err != nil {
		return err
	}
	val, err := dataset.NewTensors(valFeat, valFeat.Names(), valLab, valLab.Names())
	if err != nil {
		return err
	}
	log.Infow("dataset loaded",
		"samples", feat.Rows(),
		"fit", fit.Len(),
		"verification", verif.Len(),
		"validation", val.Len(),
	)

	space, err := search.NewSpace(cfg.Model.InputDim)
	if err != nil {
		return err
	}
	strategy := search.NewRandomSearch(space, cfg.Train.Hyperopt.Seed)

	objective := func(trial search.Trial) (float64, error) {
		model, err := arch.New(search.ModelConfig(trial, cfg.Model.InputDim, cfg.Model.OutputDim), splitSeed)
		if err != nil {
			return 0, err
		}
		tr, err := newTrainer(cfg, model, trial, fit, verif, trainer.Config{
			Epochs:    cfg.Train.Epochs,
			BatchSize: cfg.Train.BatchSize,
			Shuffle:   true,
			Seed:      cfg.Train.Hyperopt.Seed + int64(trial.ID),
		}, log)
		if err != nil {
			return 0, err
		}
		if _, err := tr.Train(); err != nil {
			return 0, err
		}
		m, err := tr.Eval()
		if err != nil {
			return 0, err
		}
		return m.RMSE, nil
	}

	loop := search.NewLoop(strategy, objective, log)
	best, err := loop.Run(cfg.Train.Hyperopt.NTrials)
	if err != nil {
		return err
	}
	log.Infow("search finished",
		"hidden", best.HiddenSizes,
		"optimizer", best.Optimizer,
		"lr", best.LR,
		"rmse", best.Score,
	)

	// retrain the winning configuration with full logging and checkpoints,
	// validated against the held-out val set rather than the search split
	model, err := arch.New(search.ModelConfig(best, cfg.Model.InputDim, cfg.Model.OutputDim), splitSeed)
	if err != nil {
		return err
	}
	trCfg := trainer.Config{
		Epochs:        cfg.Train.Epochs,
		BatchSize:     cfg.Train.BatchSize,
		Shuffle:       true,
		Seed:          cfg.Train.Hyperopt.Seed,
		SaveFreq:      cfg.Train.SaveFreq,
		CheckpointDir: filepath.Join(cfg.OutputDir, "checkpoints"),
		LogFreq:       cfg.Train.LogFreq,
	}
	if cfg.Train.EvalDuringTrain {
		trCfg.EvalFreq = cfg.Train.EvalFreq
	}
	tr, err := newTrainer(cfg, model, best, fit, val, trCfg, log)
	if err != nil {
		return err
	}
	history, err := tr.Train()
	if err != nil {
		return err
	}

	ckptPath := filepath.Join(cfg.OutputDir, "checkpoints", "best_model.ckpt")
	ckpt := arch.NewCheckpoint(model, best.Optimizer, best.LR)
	if err := ckpt.Save(ckptPath); err != nil {
		return err
	}
	log.Infow("model saved", "path", ckptPath)

	m, err := tr.Eval()
	if err != nil {
		return err
	}
	pred, target := trainer.Flatten(model, val)
	if err := reportMetrics(pred, target); err != nil {
		return err
	}

	plotDir := filepath.Join(cfg.OutputDir, "plots")
	if err := visualize.LossHistoryPlot(filepath.Join(plotDir, "loss_history.png"), history); err != nil {
		log.Warnw("loss plot failed", "error", err)
	}
	if err := visualize.DistributionPlot(filepath.Join(plotDir, "distribution.png"), pred, target, m.RMSE); err != nil {
		log.Warnw("distribution plot failed", "error", err)
	}
	return nil
}

// newTrainer wires the loss, optimizer and schedule for one trial.
func newTrainer(cfg *config.Config, model *arch.MLP, trial search.Trial,
	fit, verif *dataset.Tensors, trCfg trainer.Config, log *zap.SugaredLogger) (*trainer.Trainer, error) {
	optimizer := opt.New(trial.Optimizer, trial.LR)

	itersPerEpoch := (fit.Len() + trCfg.BatchSize - 1) / trCfg.BatchSize
	s := cfg.Train.LRScheduler
	schedule := opt.NewWarmupExpDecay(trial.LR, s.Gamma, s.DecaySteps, s.WarmupEpoch,
		s.WarmupStartLR, itersPerEpoch)

	return trainer.New(model, loss.WeightedMSE{}, optimizer, schedule, fit, verif, trCfg, log)
}

func runEval(cfg *config.Config, log *zap.SugaredLogger) error {
	feat, lab, err := loadTables(cfg.Data.ValFeaturesPath, cfg.Data.ValLabelsPath, cfg)
	if err != nil {
		return err
	}
	val, err := dataset.NewTensors(feat, feat.Names(), lab, lab.Names())
	if err != nil {
		return err
	}

	ckpt, err := arch.LoadCheckpoint(cfg.Eval.PretrainedModelPath)
	if err != nil {
		return err
	}
	if ckpt.InputDim != cfg.Model.InputDim || ckpt.OutputDim != cfg.Model.OutputDim {
		return errors.Errorf("checkpoint is %dx%d, config expects %dx%d",
			ckpt.InputDim, ckpt.OutputDim, cfg.Model.InputDim, cfg.Model.OutputDim)
	}
	model, err := ckpt.Build()
	if err != nil {
		return err
	}
	log.Infow("checkpoint restored",
		"path", cfg.Eval.PretrainedModelPath,
		"hidden", ckpt.HiddenSizes,
		"optimizer", ckpt.Optimizer,
	)

	pred, target := trainer.Flatten(model, val)
	if err := reportMetrics(pred, target); err != nil {
		return err
	}

	rmse, err := metric.RMSE(pred, target)
	if err != nil {
		return err
	}
	plotDir := filepath.Join(cfg.OutputDir, "plots")
	if err := visualize.DistributionPlot(filepath.Join(plotDir, "distribution.png"), pred, target, rmse); err != nil {
		log.Warnw("distribution plot failed", "error", err)
	}
	if err := visualize.ScatterPlot(filepath.Join(plotDir, "scatter.png"), pred, target); err != nil {
		log.Warnw("scatter plot failed", "error", err)
	}
	if err := visualize.DensityPlot(filepath.Join(plotDir, "density.png"), pred, target); err != nil {
		log.Warnw("density plot failed", "error", err)
	}
	return nil
}

// reportMetrics prints the headline regression metrics to stdout.
func reportMetrics(pred, target []float64) error {
	rmse, err := metric.RMSE(pred, target)
	if err != nil {
		return err
	}
	r2, err := metric.R2(pred, target)
	if err != nil {
		return err
	}
	mape, err := metric.MAPE(pred, target)
	if err != nil {
		return err
	}
	fmt.Printf("RMSE: %.5f\n", rmse)
	fmt.Printf("R2:   %.5f\n", r2)
	fmt.Printf("MAPE: %.5f\n", mape)
	return nil
}
