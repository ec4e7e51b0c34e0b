// Package opt provides optimization algorithms and learning rate scheduling.
package opt

import "math"

// Optimizer updates network parameters based on gradients. Implementations
// carry per-parameter state sized on first use, so one optimizer instance is
// bound to one model for its lifetime.
type Optimizer interface {
	// StepInPlace updates params in-place from gradients.
	StepInPlace(params, gradients []float64)

	// LR returns the current learning rate.
	LR() float64

	// SetLR replaces the learning rate; called by the schedule each iteration.
	SetLR(lr float64)

	// Name returns the optimizer family name persisted in checkpoints.
	Name() string
}

// New builds an optimizer by family name. Unrecognized names fall back to SGD.
func New(name string, lr float64) Optimizer {
	switch name {
	case "Adam":
		return NewAdam(lr)
	case "RMSProp":
		return NewRMSProp(lr)
	default:
		return &SGD{lr: lr}
	}
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	lr float64
}

// NewSGD creates an SGD optimizer.
func NewSGD(lr float64) *SGD { return &SGD{lr: lr} }

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(params, gradients []float64) {
	for i := range params {
		params[i] -= s.lr * gradients[i]
	}
}

func (s *SGD) LR() float64      { return s.lr }
func (s *SGD) SetLR(lr float64) { s.lr = lr }
func (s *SGD) Name() string     { return "SGD" }

// Adam optimizer with bias-corrected first and second moment estimates.
type Adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64

	m []float64
	v []float64
	t int
}

// NewAdam creates an Adam optimizer with the usual defaults.
func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
	}
}

// StepInPlace updates params in-place using Adam.
func (a *Adam) StepInPlace(params, gradients []float64) {
	if len(a.m) != len(params) {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
		a.t = 0
	}
	a.t++

	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i := range params {
		g := gradients[i]
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g

		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		params[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
	}
}

func (a *Adam) LR() float64      { return a.lr }
func (a *Adam) SetLR(lr float64) { a.lr = lr }
func (a *Adam) Name() string     { return "Adam" }

// RMSProp optimizer with an exponentially decaying squared-gradient average.
type RMSProp struct {
	lr      float64
	rho     float64
	epsilon float64

	acc []float64
}

// NewRMSProp creates an RMSProp optimizer with the usual defaults.
func NewRMSProp(lr float64) *RMSProp {
	return &RMSProp{
		lr:      lr,
		rho:     0.95,
		epsilon: 1e-6,
	}
}

// StepInPlace updates params in-place using RMSProp.
func (r *RMSProp) StepInPlace(params, gradients []float64) {
	if len(r.acc) != len(params) {
		r.acc = make([]float64, len(params))
	}

	for i := range params {
		g := gradients[i]
		r.acc[i] = r.rho*r.acc[i] + (1-r.rho)*g*g
		params[i] -= r.lr * g / (math.Sqrt(r.acc[i]) + r.epsilon)
	}
}

func (r *RMSProp) LR() float64      { return r.lr }
func (r *RMSProp) SetLR(lr float64) { r.lr = lr }
func (r *RMSProp) Name() string     { return "RMSProp" }
