// Package loss implements the scalar fitness functions that score a
// genome's synthesized field or trajectory against reference data
// (spec §4.E).
package loss

import "github.com/diamondlightsource/idsort/field"

// BfieldLoss sums squared differences over the field-axis components
// `a ∈ [2,4)` of b and ref (spec §4.E "bfield_loss"). Field has only 3
// field-axis components (0..2), so in practice this scores component 2
// alone; the range is kept literal to the slice the reference
// implementation uses, including that truncation.
func BfieldLoss(b, ref *field.BField) float64 {
	if b.NX != ref.NX || b.NZ != ref.NZ || b.NS != ref.NS {
		panic("loss: BfieldLoss: shape mismatch")
	}
	var sum float64
	for ix := 0; ix < b.NX; ix++ {
		for iz := 0; iz < b.NZ; iz++ {
			for is := 0; is < b.NS; is++ {
				for a := 2; a < 3; a++ {
					d := b.At(ix, iz, is, a) - ref.At(ix, iz, is, a)
					sum += d * d
				}
			}
		}
	}
	return sum
}

// TrajectoryLoss sums squared differences over the second-integral
// components `[...,2:4]` of t and ref (spec §4.E "trajectory_loss").
func TrajectoryLoss(t, ref *field.Trajectory) float64 {
	if t.NX != ref.NX || t.NZ != ref.NZ || t.NS != ref.NS {
		panic("loss: TrajectoryLoss: shape mismatch")
	}
	var sum float64
	for ix := 0; ix < t.NX; ix++ {
		for iz := 0; iz < t.NZ; iz++ {
			for is := 0; is < t.NS; is++ {
				for k := 2; k < 4; k++ {
					d := t.At(ix, iz, is, k) - ref.At(ix, iz, is, k)
					sum += d * d
				}
			}
		}
	}
	return sum
}
