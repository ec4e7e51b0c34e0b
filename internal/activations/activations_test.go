package activations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReLU(t *testing.T) {
	r := ReLU{}
	assert.Equal(t, 0.0, r.Activate(-2))
	assert.Equal(t, 0.0, r.Activate(0))
	assert.Equal(t, 3.5, r.Activate(3.5))
	assert.Equal(t, 0.0, r.Derivative(-1))
	assert.Equal(t, 1.0, r.Derivative(1))
}

func TestSigmoidRange(t *testing.T) {
	s := Sigmoid{}
	assert.InDelta(t, 0.5, s.Activate(0), 1e-12)
	assert.InDelta(t, 0.25, s.Derivative(0), 1e-12)
	assert.Greater(t, s.Activate(10), 0.99)
	assert.Less(t, s.Activate(-10), 0.01)
}

func TestTanhDerivative(t *testing.T) {
	a := Tanh{}
	assert.InDelta(t, 1.0, a.Derivative(0), 1e-12)
	assert.InDelta(t, 0.0, a.Activate(0), 1e-12)
}

func TestIdentity(t *testing.T) {
	id := Identity{}
	assert.Equal(t, -7.25, id.Activate(-7.25))
	assert.Equal(t, 1.0, id.Derivative(123))
}

func TestFromName(t *testing.T) {
	for _, name := range []string{"relu", "sigmoid", "tanh", "identity"} {
		act, err := FromName(name)
		require.NoError(t, err)
		assert.Equal(t, name, act.Name())
	}

	// "linear" is accepted as an alias.
	act, err := FromName("linear")
	require.NoError(t, err)
	assert.Equal(t, "identity", act.Name())

	_, err = FromName("softplus")
	assert.Error(t, err)
}
