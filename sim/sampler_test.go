package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// zeroRNG always returns zero, isolating sample()'s arithmetic from any
// particular RNG implementation.
type zeroRNG struct{}

func (zeroRNG) normFloat64() float64 { return 0 }
func (zeroRNG) float64() float64     { return 0 }

// constRNG returns a fixed normal draw.
type constRNG struct{ z float64 }

func (c constRNG) normFloat64() float64 { return c.z }
func (c constRNG) float64() float64     { return 0 }

func TestSample_Fixed_IgnoresRNG(t *testing.T) {
	dist, err := NewFixed(42)
	assert.NoError(t, err)
	assert.Equal(t, 42.0, sample(dist, constRNG{z: 100}))
}

func TestSample_Normal_ClampsNegativeToZero(t *testing.T) {
	dist, err := NewNormal(0, 1, false, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, sample(dist, constRNG{z: -5}))
}

func TestSample_Normal_ClampsToExplicitMin(t *testing.T) {
	dist, err := NewNormal(10, 1, true, 8)
	assert.NoError(t, err)
	assert.Equal(t, 8.0, sample(dist, constRNG{z: -50}))
}

func TestSample_Normal_NoClampWhenAboveMin(t *testing.T) {
	dist, err := NewNormal(10, 2, true, 1)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, sample(dist, zeroRNG{}))
}

func TestSample_Lognormal_ZeroDrawGivesExpMu(t *testing.T) {
	dist, err := NewLognormal(2, 1)
	assert.NoError(t, err)
	assert.InDelta(t, math.Exp(2), sample(dist, zeroRNG{}), 1e-9)
}

func TestSample_Lognormal_AlwaysNonnegative(t *testing.T) {
	dist, err := NewLognormal(0, 1)
	assert.NoError(t, err)
	v := sample(dist, constRNG{z: -1000})
	assert.GreaterOrEqual(t, v, 0.0)
}
