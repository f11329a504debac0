package catalogue

import (
	"math"
	"testing"

	"github.com/diamondlightsource/idsort/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullMagnetSet() []Magnet {
	var mags []Magnet
	for _, t := range Types {
		for i := 0; i < 3; i++ {
			mags = append(mags, Magnet{
				ID:    string(t) + "-0" + string(rune('1'+i)),
				Type:  t,
				Field: geom.Vector3{0.01, 1.0 + float64(i)*0.1, 0.02},
			})
		}
	}
	return mags
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New([]Magnet{{ID: "x", Type: "ZZ"}}, nil)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyPool(t *testing.T) {
	mags := fullMagnetSet()[:len(fullMagnetSet())-3] // drop the last type entirely
	c, err := New(mags, nil)
	require.NoError(t, err)
	assert.Error(t, c.Validate())
}

func TestMeanFieldAndDefaultFlip(t *testing.T) {
	c, err := New(fullMagnetSet(), nil)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	// Mean of the vector magnitudes |(0.01, y, 0.02)| for y = 1.0, 1.1, 1.2.
	wantMean := (math.Sqrt(1.0005) + math.Sqrt(1.2105) + math.Sqrt(1.4405)) / 3
	for _, typ := range Types {
		assert.InDelta(t, wantMean, c.MeanField[typ], 1e-9)
		assert.True(t, geom.Equal(c.FlipMatrix[typ], geom.RotS180, 1e-12))
	}
}

func TestFlipOverride(t *testing.T) {
	c, err := New(fullMagnetSet(), map[Type]geom.Matrix3{HH: geom.RotZ180})
	require.NoError(t, err)
	assert.True(t, geom.Equal(c.FlipMatrix[HH], geom.RotZ180, 1e-12))
	assert.True(t, geom.Equal(c.FlipMatrix[VV], geom.RotS180, 1e-12))
}

func TestGenerateReferenceSingleNonzeroAxis(t *testing.T) {
	c, err := New(fullMagnetSet(), nil)
	require.NoError(t, err)

	ref, err := GenerateReference(c)
	require.NoError(t, err)

	for _, typ := range Types {
		pool := ref.Pools[typ]
		require.Equal(t, c.Pools[typ].Len(), pool.Len())
		for _, key := range pool.Keys() {
			m, ok := pool.Get(key)
			require.True(t, ok)
			nonzero := 0
			for axis, v := range m.Field {
				if v != 0 {
					nonzero++
					assert.InDelta(t, c.MeanField[typ], v, 1e-9)
					assert.Equal(t, 1, axis) // dominant axis in fullMagnetSet is index 1
				}
			}
			assert.Equal(t, 1, nonzero)
		}
	}
}

func TestGenerateReferenceSharesKeys(t *testing.T) {
	c, err := New(fullMagnetSet(), nil)
	require.NoError(t, err)
	ref, err := GenerateReference(c)
	require.NoError(t, err)

	assert.Equal(t, c.Pools[HH].Keys(), ref.Pools[HH].Keys())
}
