// Package loss provides the training objectives for the Jsc regressor.
package loss

// BackwardInPlacer is an optional interface for loss functions that support
// in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative. Forward and Backward operate on
// the full batch vector, not per sample: WeightedMSE normalizes its weights
// across the batch.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue []float64) []float64

	// Name returns the loss identifier used in logs.
	Name() string
}

// weightEps guards the degenerate all-zero target sum.
const weightEps = 1e-6

// WeightedMSE is a magnitude-weighted mean squared error:
//
//	w_i  = true_i / (sum(true) + eps)
//	loss = sum((true_i - pred_i)^2 * w_i) / n
//
// Samples contribute proportionally to their share of the total target
// magnitude, so the model is pushed hardest on high-current devices.
// Precondition: targets are non-negative; negative targets make the weights
// meaningless and are not clamped here.
type WeightedMSE struct{}

func (w WeightedMSE) Name() string { return "weighted_mse" }

// Forward computes the weighted mean squared error over the batch.
func (w WeightedMSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("WeightedMSE: prediction and target must have same length")
	}

	var total float64
	for i := 0; i < n; i++ {
		total += yTrue[i]
	}
	denom := total + weightEps

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff * (yTrue[i] / denom)
	}
	return sum / float64(n)
}

// Backward computes dL/dpred_i = -2 * w_i * (true_i - pred_i) / n.
func (w WeightedMSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	w.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into the pre-allocated grad slice.
func (w WeightedMSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("WeightedMSE: slices must have same length")
	}

	var total float64
	for i := 0; i < n; i++ {
		total += yTrue[i]
	}
	denom := total + weightEps

	for i := 0; i < n; i++ {
		grad[i] = -2 * (yTrue[i] / denom) * (yTrue[i] - yPred[i]) / float64(n)
	}
}

// MSE (Mean Squared Error) loss, kept as the unweighted baseline objective.
type MSE struct{}

func (m MSE) Name() string { return "mse" }

// Forward computes (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(n)
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into the pre-allocated grad slice.
func (m MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("MSE: slices must have same length")
	}

	factor := 2.0 / float64(n)
	for i := 0; i < n; i++ {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}
