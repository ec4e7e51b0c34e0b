package loss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedMSEZeroWhenExact(t *testing.T) {
	w := WeightedMSE{}

	cases := [][]float64{
		{1, 2, 3},
		{0, 0, 0},
		{12.5, 0.001, 7},
	}
	for _, target := range cases {
		pred := append([]float64(nil), target...)
		assert.InDelta(t, 0.0, w.Forward(pred, target), 1e-12)
	}
}

func TestWeightedMSEHandComputed(t *testing.T) {
	w := WeightedMSE{}

	// true=[1,2,3], pred=[0,0,0]:
	//   weights = [1/6, 2/6, 3/6], squared = [1, 4, 9]
	//   loss = (1/6 + 8/6 + 27/6) / 3 = 2
	got := w.Forward([]float64{0, 0, 0}, []float64{1, 2, 3})
	assert.InDelta(t, 2.0, got, 1e-5)
}

func TestWeightedMSEAllZeroTargets(t *testing.T) {
	w := WeightedMSE{}

	// The epsilon keeps the denominator finite; all weights become 0, so the
	// loss is 0 regardless of predictions.
	got := w.Forward([]float64{5, -5}, []float64{0, 0})
	assert.InDelta(t, 0.0, got, 1e-12)
}

func TestWeightedMSEGradient(t *testing.T) {
	w := WeightedMSE{}

	yTrue := []float64{1, 2, 3}
	yPred := []float64{0, 0, 0}
	grad := w.Backward(yPred, yTrue)
	require.Len(t, grad, 3)

	// dL/dpred_i = -2 * w_i * (true_i - pred_i) / n with denom = 6 + eps
	assert.InDelta(t, -2.0*(1.0/6)*1/3, grad[0], 1e-5)
	assert.InDelta(t, -2.0*(2.0/6)*2/3, grad[1], 1e-5)
	assert.InDelta(t, -2.0*(3.0/6)*3/3, grad[2], 1e-5)
}

func TestWeightedMSEGradientNumerically(t *testing.T) {
	w := WeightedMSE{}

	yTrue := []float64{0.5, 1.5, 4.0}
	yPred := []float64{0.7, 1.0, 3.0}
	grad := w.Backward(yPred, yTrue)

	const h = 1e-6
	for i := range yPred {
		bumped := append([]float64(nil), yPred...)
		bumped[i] += h
		numeric := (w.Forward(bumped, yTrue) - w.Forward(yPred, yTrue)) / h
		assert.InDelta(t, numeric, grad[i], 1e-4, "component %d", i)
	}
}

func TestWeightedMSEBackwardInPlaceMatchesBackward(t *testing.T) {
	w := WeightedMSE{}

	yTrue := []float64{2, 4, 8, 16}
	yPred := []float64{1, 5, 7, 20}

	grad := make([]float64, 4)
	w.BackwardInPlace(yPred, yTrue, grad)
	assert.Equal(t, w.Backward(yPred, yTrue), grad)
}

func TestMSE(t *testing.T) {
	m := MSE{}
	assert.InDelta(t, 0.0, m.Forward([]float64{1, 2}, []float64{1, 2}), 1e-12)
	assert.InDelta(t, 2.5, m.Forward([]float64{0, 0}, []float64{1, 2}), 1e-12)

	grad := m.Backward([]float64{3}, []float64{1})
	assert.InDelta(t, 4.0, grad[0], 1e-12)
}
