package field

import (
	"github.com/diamondlightsource/idsort/workpool"
)

// BeamVectors is the (3, N) matrix of signed, rotated magnet field vectors
// occupying a beam's N slots in order; BeamVectors[c][i] is component c of
// the field vector in slot i.
type BeamVectors [3][]float64

// SynthesizeBeam computes B[ix,iz,is,a] = Σ_i Σ_c L[ix,iz,is,a,c,i]·V[c,i]
// for one beam (spec §4.D "per-beam field synthesis"). The sum over slots
// is chunked via pool so it can run in parallel and bound peak memory; pass
// a nil pool to evaluate sequentially in one chunk. The result is
// independent of how the chunking is performed, to the 6-decimal tolerance
// spec §4.D requires.
func SynthesizeBeam(l *LookupTensor, v BeamVectors, pool *workpool.Pool) (*BField, error) {
	zero := func() *BField { return NewBField(l.NX, l.NZ, l.NS) }
	fill := func(start, end int, partial *BField) error {
		for i := start; i < end; i++ {
			for ix := 0; ix < l.NX; ix++ {
				for iz := 0; iz < l.NZ; iz++ {
					for is := 0; is < l.NS; is++ {
						for a := 0; a < 3; a++ {
							var sum float64
							for c := 0; c < 3; c++ {
								sum += l.At(ix, iz, is, a, c, i) * v[c][i]
							}
							partial.Data[partial.index(ix, iz, is, a)] += sum
						}
					}
				}
			}
		}
		return nil
	}
	merge := func(dst, src *BField) { dst.Add(src) }

	return workpool.Reduce(pool, l.NSlots, zero, fill, merge)
}

// SynthesizeDevice sums the per-beam fields into the full-device field
// (spec §4.D "the full-device field is the sum over beams").
func SynthesizeDevice(beams []*BField) *BField {
	if len(beams) == 0 {
		return nil
	}
	out := beams[0].Clone()
	for _, b := range beams[1:] {
		out.Add(b)
	}
	return out
}

// DifferenceBeam computes the field difference for an incremental
// reassignment of a subset Δ of slots, identified by index. Semantics are
// identical to recomputing SynthesizeBeam from scratch and subtracting
// (spec §4.D "incremental differences"), exposed as an optimization hook.
func DifferenceBeam(l *LookupTensor, vNew, vOld BeamVectors, changed []int, pool *workpool.Pool) (*BField, error) {
	zero := func() *BField { return NewBField(l.NX, l.NZ, l.NS) }
	fill := func(start, end int, partial *BField) error {
		for k := start; k < end; k++ {
			i := changed[k]
			for ix := 0; ix < l.NX; ix++ {
				for iz := 0; iz < l.NZ; iz++ {
					for is := 0; is < l.NS; is++ {
						for a := 0; a < 3; a++ {
							var sum float64
							for c := 0; c < 3; c++ {
								sum += l.At(ix, iz, is, a, c, i) * (vNew[c][i] - vOld[c][i])
							}
							partial.Data[partial.index(ix, iz, is, a)] += sum
						}
					}
				}
			}
		}
		return nil
	}
	merge := func(dst, src *BField) { dst.Add(src) }

	return workpool.Reduce(pool, len(changed), zero, fill, merge)
}
