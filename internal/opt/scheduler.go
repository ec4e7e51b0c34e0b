package opt

import "math"

// Schedule maps a global iteration index to a learning rate. Schedules are
// pure functions of the iteration so trainers can be restarted mid-run
// without scheduler state to restore.
type Schedule interface {
	// LRAt returns the learning rate for the given zero-based iteration.
	LRAt(iter int) float64

	// Name returns the schedule name for logging.
	Name() string
}

// WarmupExpDecay ramps the learning rate linearly from WarmupStartLR to
// BaseLR over WarmupEpochs epochs, then decays it by Gamma every DecaySteps
// iterations.
type WarmupExpDecay struct {
	BaseLR        float64
	Gamma         float64
	DecaySteps    int
	WarmupEpochs  int
	WarmupStartLR float64
	ItersPerEpoch int
}

// NewWarmupExpDecay builds the schedule used for every optimizer family.
// itersPerEpoch is clamped to at least 1 so tiny datasets still warm up.
func NewWarmupExpDecay(baseLR, gamma float64, decaySteps, warmupEpochs int, warmupStartLR float64, itersPerEpoch int) *WarmupExpDecay {
	if itersPerEpoch < 1 {
		itersPerEpoch = 1
	}
	if decaySteps < 1 {
		decaySteps = 1
	}
	return &WarmupExpDecay{
		BaseLR:        baseLR,
		Gamma:         gamma,
		DecaySteps:    decaySteps,
		WarmupEpochs:  warmupEpochs,
		WarmupStartLR: warmupStartLR,
		ItersPerEpoch: itersPerEpoch,
	}
}

// LRAt returns the learning rate for the given zero-based iteration.
func (s *WarmupExpDecay) LRAt(iter int) float64 {
	warmupIters := s.WarmupEpochs * s.ItersPerEpoch
	if iter < warmupIters {
		frac := float64(iter) / float64(warmupIters)
		return s.WarmupStartLR + (s.BaseLR-s.WarmupStartLR)*frac
	}

	times := (iter - warmupIters) / s.DecaySteps
	return s.BaseLR * math.Pow(s.Gamma, float64(times))
}

func (s *WarmupExpDecay) Name() string { return "WarmupExpDecay" }

// ConstantLR keeps the base learning rate for every iteration.
type ConstantLR struct {
	BaseLR float64
}

func (s ConstantLR) LRAt(iter int) float64 { return s.BaseLR }
func (s ConstantLR) Name() string          { return "ConstantLR" }
