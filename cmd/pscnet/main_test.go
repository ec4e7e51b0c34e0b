package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/materialsml/pscnet/internal/arch"
	"github.com/materialsml/pscnet/internal/config"
)

const testInputDim = 20

func writeCSV(t *testing.T, path string, header []string, rows [][]float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%g", v)
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

// writeDataset writes paired feature/label CSVs with positive targets and a
// bracketed column name to exercise normalization.
func writeDataset(t *testing.T, dir, prefix string, n int, seed int64) (string, string) {
	t.Helper()
	header := make([]string, testInputDim)
	for i := range header {
		header[i] = fmt.Sprintf("f%02d", i)
	}
	header[0] = "Eg[eV]"

	rng := rand.New(rand.NewSource(seed))
	feats := make([][]float64, n)
	labs := make([][]float64, n)
	for r := 0; r < n; r++ {
		row := make([]float64, testInputDim)
		for c := range row {
			row[c] = rng.Float64()
		}
		feats[r] = row
		labs[r] = []float64{5 + row[0] + 2*row[1] + row[2]}
	}

	featPath := filepath.Join(dir, prefix+"_features.csv")
	labPath := filepath.Join(dir, prefix+"_labels.csv")
	writeCSV(t, featPath, header, feats)
	writeCSV(t, labPath, []string{"Jsc[mA/cm2]"}, labs)
	return featPath, labPath
}

func testTrainConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.Model.InputDim = testInputDim
	cfg.Model.OutputDim = 1
	cfg.Data.TrainFeaturesPath, cfg.Data.TrainLabelsPath = writeDataset(t, dir, "train", 40, 1)
	cfg.Data.ValFeaturesPath, cfg.Data.ValLabelsPath = writeDataset(t, dir, "val", 10, 2)
	cfg.Train.Epochs = 3
	cfg.Train.BatchSize = 16
	cfg.Train.EvalDuringTrain = false
	cfg.Train.SaveFreq = 0
	cfg.Train.LogFreq = 0
	cfg.Train.Hyperopt.NTrials = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunTrainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testTrainConfig(t, dir)

	require.NoError(t, runTrain(cfg, zap.NewNop().Sugar()))

	ckptPath := filepath.Join(cfg.OutputDir, "checkpoints", "best_model.ckpt")
	ckpt, err := arch.LoadCheckpoint(ckptPath)
	require.NoError(t, err)
	assert.Equal(t, testInputDim, ckpt.InputDim)
	assert.Equal(t, 1, ckpt.OutputDim)
	assert.GreaterOrEqual(t, len(ckpt.HiddenSizes), 4)

	for _, name := range []string{"loss_history.png", "distribution.png"} {
		info, err := os.Stat(filepath.Join(cfg.OutputDir, "plots", name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestRunTrainReadsValCSVs(t *testing.T) {
	dir := t.TempDir()
	cfg := testTrainConfig(t, dir)

	// a val feature file with a missing column must fail before any training
	badPath := filepath.Join(dir, "bad_val_features.csv")
	header := make([]string, testInputDim-1)
	for i := range header {
		header[i] = fmt.Sprintf("f%02d", i)
	}
	row := make([]float64, testInputDim-1)
	writeCSV(t, badPath, header, [][]float64{row})
	cfg.Data.ValFeaturesPath = badPath

	err := runTrain(cfg, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature columns")
}

func TestRunEval(t *testing.T) {
	dir := t.TempDir()
	cfg := testTrainConfig(t, dir)
	cfg.Mode = config.ModeEval

	model, err := arch.New(arch.ModelConfig{
		InputDim:    testInputDim,
		OutputDim:   1,
		HiddenSizes: []int{10, 10, 10, 10},
		Activation:  "relu",
	}, 42)
	require.NoError(t, err)

	ckptPath := filepath.Join(dir, "model.ckpt")
	require.NoError(t, arch.NewCheckpoint(model, "Adam", 0.001).Save(ckptPath))
	cfg.Eval.PretrainedModelPath = ckptPath
	require.NoError(t, cfg.Validate())

	require.NoError(t, runEval(cfg, zap.NewNop().Sugar()))

	for _, name := range []string{"distribution.png", "scatter.png", "density.png"} {
		info, err := os.Stat(filepath.Join(cfg.OutputDir, "plots", name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}
