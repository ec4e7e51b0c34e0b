// Package layer provides the dense layer used by the regression network.
package layer

import (
	"math"
	"math/rand"

	"github.com/materialsml/pscnet/internal/activations"
)

// Dense is a fully connected layer.
// Weights are stored as a row-major contiguous slice with pre-allocated
// buffers so the training loop does not allocate. Gradients accumulate
// across Backward calls until ZeroGrad; batch training sums per-sample
// gradients into the same buffers.
type Dense struct {
	// weight for output o, input i lives at weights[o*in + i]
	weights []float64
	biases  []float64
	act     activations.Activation
	outSize int
	inSize  int

	inputBuf  []float64
	preActBuf []float64
	outputBuf []float64
	gradWBuf  []float64
	gradBBuf  []float64
	gradInBuf []float64
	dzBuf     []float64
}

// NewDense creates a dense layer with Xavier/Glorot initialized weights drawn
// from rng.
func NewDense(in, out int, act activations.Activation, rng *rand.Rand) *Dense {
	weights := make([]float64, out*in)
	biases := make([]float64, out)

	scale := math.Sqrt(2.0 / (float64(in) + float64(out)))
	for i := range weights {
		weights[i] = rng.Float64()*2*scale - scale
	}
	for i := range biases {
		biases[i] = rng.Float64()*0.2 - 0.1
	}

	return &Dense{
		weights:   weights,
		biases:    biases,
		act:       act,
		outSize:   out,
		inSize:    in,
		inputBuf:  make([]float64, in),
		preActBuf: make([]float64, out),
		outputBuf: make([]float64, out),
		gradWBuf:  make([]float64, out*in),
		gradBBuf:  make([]float64, out),
		gradInBuf: make([]float64, in),
		dzBuf:     make([]float64, out),
	}
}

// Forward computes act(Wx + b). The returned slice aliases an internal buffer
// and is overwritten by the next Forward call.
func (d *Dense) Forward(x []float64) []float64 {
	copy(d.inputBuf, x)

	for o := 0; o < d.outSize; o++ {
		sum := d.biases[o]
		wBase := o * d.inSize
		for i := 0; i < d.inSize; i++ {
			sum += d.weights[wBase+i] * d.inputBuf[i]
		}
		d.preActBuf[o] = sum
		d.outputBuf[o] = d.act.Activate(sum)
	}

	return d.outputBuf[:d.outSize]
}

// Backward propagates grad through the layer, accumulating weight and bias
// gradients. It must follow a Forward call for the same sample.
func (d *Dense) Backward(grad []float64) []float64 {
	// dz = dL/d(output) * act'(z)
	for o := 0; o < d.outSize; o++ {
		d.dzBuf[o] = grad[o] * d.act.Derivative(d.preActBuf[o])
		d.gradBBuf[o] += d.dzBuf[o]
	}

	// dL/dW[o, i] += dz[o] * input[i]
	for o := 0; o < d.outSize; o++ {
		dzo := d.dzBuf[o]
		wBase := o * d.inSize
		for i := 0; i < d.inSize; i++ {
			d.gradWBuf[wBase+i] += dzo * d.inputBuf[i]
		}
	}

	// dL/dx[i] = sum_o(dz[o] * W[o, i])
	for i := 0; i < d.inSize; i++ {
		sum := 0.0
		for o := 0; o < d.outSize; o++ {
			sum += d.dzBuf[o] * d.weights[o*d.inSize+i]
		}
		d.gradInBuf[i] = sum
	}

	return d.gradInBuf[:d.inSize]
}

// ZeroGrad clears the accumulated gradients.
func (d *Dense) ZeroGrad() {
	for i := range d.gradWBuf {
		d.gradWBuf[i] = 0
	}
	for i := range d.gradBBuf {
		d.gradBBuf[i] = 0
	}
}

// NumParams returns the number of trainable parameters.
func (d *Dense) NumParams() int {
	return len(d.weights) + len(d.biases)
}

// CopyParams writes the layer parameters (weights then biases) into dst.
func (d *Dense) CopyParams(dst []float64) {
	copy(dst, d.weights)
	copy(dst[len(d.weights):], d.biases)
}

// SetParams replaces weights and biases from a flattened slice.
func (d *Dense) SetParams(params []float64) {
	copy(d.weights, params[:len(d.weights)])
	copy(d.biases, params[len(d.weights):])
}

// CopyGradients writes accumulated gradients (weights then biases) into dst.
func (d *Dense) CopyGradients(dst []float64) {
	copy(dst, d.gradWBuf)
	copy(dst[len(d.gradWBuf):], d.gradBBuf)
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int { return d.inSize }

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int { return d.outSize }

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation { return d.act }
