// Package config loads and validates the YAML run configuration.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Run modes.
const (
	ModeTrain = "train"
	ModeEval  = "eval"
)

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Config is the full run configuration. It is loaded once and treated as
// immutable afterwards.
type Config struct {
	Mode      string `yaml:"mode"`
	OutputDir string `yaml:"output_dir"`

	Model Model `yaml:"model"`
	Data  Data  `yaml:"data"`
	Train Train `yaml:"train"`
	Eval  Eval  `yaml:"eval"`
}

// Model describes the data dimensions the network is built for.
type Model struct {
	InputDim  int `yaml:"input_dim"`
	OutputDim int `yaml:"output_dim"`
}

// Data points at the four CSV files of a run.
type Data struct {
	TrainFeaturesPath string `yaml:"train_features_path"`
	TrainLabelsPath   string `yaml:"train_labels_path"`
	ValFeaturesPath   string `yaml:"val_features_path"`
	ValLabelsPath     string `yaml:"val_labels_path"`
}

// Train configures the training loop and the hyperparameter search.
type Train struct {
	Epochs          int  `yaml:"epochs"`
	BatchSize       int  `yaml:"batch_size"`
	EvalDuringTrain bool `yaml:"eval_during_train"`
	EvalFreq        int  `yaml:"eval_freq"`
	SaveFreq        int  `yaml:"save_freq"`
	LogFreq         int  `yaml:"log_freq"`

	LRScheduler LRScheduler `yaml:"lr_scheduler"`
	Hyperopt    Hyperopt    `yaml:"hyperopt"`
}

// LRScheduler configures the warmup and exponential decay of the learning
// rate.
type LRScheduler struct {
	Gamma         float64 `yaml:"gamma"`
	DecaySteps    int     `yaml:"decay_steps"`
	WarmupEpoch   int     `yaml:"warmup_epoch"`
	WarmupStartLR float64 `yaml:"warmup_start_lr"`
}

// Hyperopt configures the random hyperparameter search.
type Hyperopt struct {
	NTrials int   `yaml:"n_trials"`
	Seed    int64 `yaml:"seed"`
}

// Eval configures the evaluation mode.
type Eval struct {
	EvalWithNoGrad      bool   `yaml:"eval_with_no_grad"`
	PretrainedModelPath string `yaml:"pretrained_model_path"`
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Default()
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with the defaults applied before the YAML
// file is merged in.
func Default() *Config {
	return &Config{
		Mode:      ModeTrain,
		OutputDir: "./output",
		Train: Train{
			Epochs:    100,
			BatchSize: 32,
			EvalFreq:  10,
			SaveFreq:  20,
			LogFreq:   20,
			LRScheduler: LRScheduler{
				Gamma:         0.95,
				DecaySteps:    100,
				WarmupEpoch:   1,
				WarmupStartLR: 1e-5,
			},
			Hyperopt: Hyperopt{
				NTrials: 50,
				Seed:    42,
			},
		},
		Eval: Eval{
			EvalWithNoGrad: true,
		},
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Mode != ModeTrain && c.Mode != ModeEval {
		return invalid("mode", "%q is not one of train, eval", c.Mode)
	}
	if c.OutputDir == "" {
		return invalid("output_dir", "must not be empty")
	}
	if c.Model.InputDim < 1 {
		return invalid("model.input_dim", "%d < 1", c.Model.InputDim)
	}
	if c.Model.OutputDim < 1 {
		return invalid("model.output_dim", "%d < 1", c.Model.OutputDim)
	}

	if c.Mode == ModeTrain {
		if c.Data.TrainFeaturesPath == "" || c.Data.TrainLabelsPath == "" {
			return invalid("data", "train mode needs train_features_path and train_labels_path")
		}
		// the final model is validated against the held-out val CSVs
		if c.Data.ValFeaturesPath == "" || c.Data.ValLabelsPath == "" {
			return invalid("data", "train mode needs val_features_path and val_labels_path")
		}
		if c.Train.Epochs < 1 {
			return invalid("train.epochs", "%d < 1", c.Train.Epochs)
		}
		if c.Train.BatchSize < 1 {
			return invalid("train.batch_size", "%d < 1", c.Train.BatchSize)
		}
		if c.Train.EvalDuringTrain && c.Train.EvalFreq < 1 {
			return invalid("train.eval_freq", "%d < 1 with eval_during_train set", c.Train.EvalFreq)
		}
		if c.Train.Hyperopt.NTrials < 1 {
			return invalid("train.hyperopt.n_trials", "%d < 1", c.Train.Hyperopt.NTrials)
		}
		s := c.Train.LRScheduler
		if s.Gamma <= 0 || s.Gamma > 1 {
			return invalid("train.lr_scheduler.gamma", "%v outside (0, 1]", s.Gamma)
		}
		if s.DecaySteps < 1 {
			return invalid("train.lr_scheduler.decay_steps", "%d < 1", s.DecaySteps)
		}
		if s.WarmupEpoch < 0 {
			return invalid("train.lr_scheduler.warmup_epoch", "%d < 0", s.WarmupEpoch)
		}
	}

	if c.Mode == ModeEval {
		if c.Data.ValFeaturesPath == "" || c.Data.ValLabelsPath == "" {
			return invalid("data", "eval mode needs val_features_path and val_labels_path")
		}
		if c.Eval.PretrainedModelPath == "" {
			return invalid("eval.pretrained_model_path", "must not be empty in eval mode")
		}
	}

	return nil
}
