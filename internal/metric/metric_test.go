package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSE(t *testing.T) {
	v, err := RMSE([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-12)

	// errors are 3 and 4, mean square 12.5, root 3.5355...
	v, err = RMSE([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 3.5355339059, v, 1e-9)

	_, err = RMSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = RMSE(nil, nil)
	assert.Error(t, err)
}

func TestMAE(t *testing.T) {
	v, err := MAE([]float64{1, -1}, []float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-12)
}

func TestR2(t *testing.T) {
	target := []float64{1, 2, 3, 4}

	v, err := R2([]float64{1, 2, 3, 4}, target)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	// predicting the mean gives R2 = 0
	v, err = R2([]float64{2.5, 2.5, 2.5, 2.5}, target)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-12)

	// worse than the mean goes negative
	v, err = R2([]float64{4, 3, 2, 1}, target)
	require.NoError(t, err)
	assert.Less(t, v, 0.0)
}

func TestMAPE(t *testing.T) {
	// 10% off on both samples, reported as a fraction
	v, err := MAPE([]float64{90, 110}, []float64{100, 100})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-12)

	// zero targets are skipped
	v, err = MAPE([]float64{90, 5}, []float64{100, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-12)

	_, err = MAPE([]float64{1, 2}, []float64{0, 0})
	assert.Error(t, err)
}
