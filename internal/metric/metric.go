// Package metric computes regression quality metrics over paired
// prediction/target vectors.
package metric

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

func checkPair(pred, target []float64) error {
	if len(pred) != len(target) {
		return errors.Errorf("metric: %d predictions for %d targets", len(pred), len(target))
	}
	if len(pred) == 0 {
		return errors.New("metric: empty input")
	}
	return nil
}

// RMSE returns the root mean squared error.
func RMSE(pred, target []float64) (float64, error) {
	if err := checkPair(pred, target); err != nil {
		return 0, err
	}
	var sum float64
	for i := range pred {
		d := target[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred))), nil
}

// MAE returns the mean absolute error.
func MAE(pred, target []float64) (float64, error) {
	if err := checkPair(pred, target); err != nil {
		return 0, err
	}
	var sum float64
	for i := range pred {
		sum += math.Abs(target[i] - pred[i])
	}
	return sum / float64(len(pred)), nil
}

// R2 returns the coefficient of determination. It can be negative when the
// predictions are worse than the target mean.
func R2(pred, target []float64) (float64, error) {
	if err := checkPair(pred, target); err != nil {
		return 0, err
	}
	return stat.RSquaredFrom(pred, target, nil), nil
}

// MAPE returns the mean absolute percentage error as a fraction (0.1 means
// 10% off on average). Samples with a zero target are skipped; an error is
// returned when every target is zero.
func MAPE(pred, target []float64) (float64, error) {
	if err := checkPair(pred, target); err != nil {
		return 0, err
	}
	var sum float64
	n := 0
	for i := range pred {
		if target[i] == 0 {
			continue
		}
		sum += math.Abs((target[i] - pred[i]) / target[i])
		n++
	}
	if n == 0 {
		return 0, errors.New("metric: all targets are zero, MAPE undefined")
	}
	return sum / float64(n), nil
}
