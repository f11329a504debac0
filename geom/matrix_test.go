package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotationsAreSignedPermutations(t *testing.T) {
	mats := map[string]Matrix3{
		"I":        I,
		"RotX180":  RotX180,
		"RotZ180":  RotZ180,
		"RotS90":   RotS90,
		"RotS180":  RotS180,
		"RotS270":  RotS270,
		"RotS270X": RotS270X,
		"RotS270Z": RotS270Z,
	}

	for name, m := range mats {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				nonzero := 0
				for j := 0; j < 3; j++ {
					v := m[i][j]
					assert.Truef(t, v == 0 || v == 1 || v == -1, "%s row %d has non-signed entry %v", name, i, v)
					if v != 0 {
						nonzero++
					}
				}
				assert.Equalf(t, 1, nonzero, "%s row %d is not a permutation row", name, i)
			}
		})
	}
}

func TestRotS180FlipsXAndZ(t *testing.T) {
	v := Vector3{1, 2, 3}
	got := Apply(RotS180, v)
	assert.Equal(t, Vector3{-1, -2, 3}, got)
}

func TestRotZ180FlipsXAndS(t *testing.T) {
	v := Vector3{1, 2, 3}
	got := Apply(RotZ180, v)
	assert.Equal(t, Vector3{-1, 2, -3}, got)
}

func TestMulIdentity(t *testing.T) {
	got := Mul(RotS180, I)
	assert.True(t, Equal(got, RotS180, 1e-12))
}

func TestPowZeroIsIdentity(t *testing.T) {
	got := Pow(RotZ180, 0)
	assert.True(t, Equal(got, I, 1e-12))
}

func TestPowOneIsSelf(t *testing.T) {
	got := Pow(RotZ180, 1)
	assert.True(t, Equal(got, RotZ180, 1e-12))
}

func TestRotS270ComposedWithX(t *testing.T) {
	got := RotS270X
	want := Mul(RotS(270), RotX180)
	assert.True(t, Equal(got, want, 1e-12))
}
