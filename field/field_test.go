package field_test

import (
	"math/rand"
	"testing"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/field"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/layout"
	"github.com/diamondlightsource/idsort/loss"
	"github.com/diamondlightsource/idsort/workpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallLookup(nx, nz, ns, n int) *field.LookupTensor {
	l := field.NewLookupTensor(nx, nz, ns, n)
	for ix := 0; ix < nx; ix++ {
		for iz := 0; iz < nz; iz++ {
			for is := 0; is < ns; is++ {
				for a := 0; a < 3; a++ {
					for c := 0; c < 3; c++ {
						for i := 0; i < n; i++ {
							if a == c {
								l.SetAt(1.0+0.01*float64(is), ix, iz, is, a, c, i)
							}
						}
					}
				}
			}
		}
	}
	return l
}

func TestSynthesizeBeamIdentityLookup(t *testing.T) {
	l := smallLookup(2, 2, 5, 3)
	v := field.BeamVectors{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}

	b, err := field.SynthesizeBeam(l, v, nil)
	require.NoError(t, err)

	for is := 0; is < 5; is++ {
		scale := 1.0 + 0.01*float64(is)
		assert.InDelta(t, scale*(1+2+3), b.At(0, 0, is, 0), 1e-9)
		assert.InDelta(t, scale*(4+5+6), b.At(0, 0, is, 1), 1e-9)
		assert.InDelta(t, scale*(7+8+9), b.At(0, 0, is, 2), 1e-9)
	}
}

func TestSynthesizeBeamChunkedMatchesUnchunked(t *testing.T) {
	l := smallLookup(3, 3, 6, 11)
	v := field.BeamVectors{make([]float64, 11), make([]float64, 11), make([]float64, 11)}
	for i := 0; i < 11; i++ {
		v[0][i] = float64(i) + 0.5
		v[1][i] = float64(2*i) - 1.25
		v[2][i] = float64(i) * float64(i)
	}

	unchunked, err := field.SynthesizeBeam(l, v, nil)
	require.NoError(t, err)

	pool := &workpool.Pool{Size: 3}
	require.NoError(t, pool.Init(workpool.WithTargetChunkSize(2)))
	defer pool.Close()

	chunked, err := field.SynthesizeBeam(l, v, pool)
	require.NoError(t, err)

	for i := range unchunked.Data {
		assert.InDelta(t, unchunked.Data[i], chunked.Data[i], 1e-6)
	}
}

func buildFixture(t *testing.T) (*layout.Info, *catalogue.MagnetCatalogue) {
	t.Helper()
	params := layout.Params{
		Family:  layout.HybridSymmetric,
		Periods: 6,
		Dims: layout.MagDims{
			Full: geom.Vector3{30, 30, 30},
			VE:   geom.Vector3{30, 30, 15},
			HE:   geom.Vector3{30, 30, 15},
			HT:   geom.Vector3{30, 30, 10},
			Pole: geom.Vector3{10, 10, 5},
		},
		Interstice: 0.5,
		Gap:        20,
		XMin:       -5, XMax: 5, XStep: 5,
		ZMin: -5, ZMax: 5, ZStep: 5,
		Steps: 2,
	}
	info, err := layout.Generate(params)
	require.NoError(t, err)

	var mags []catalogue.Magnet
	counts := map[catalogue.Type]int{catalogue.HH: 24, catalogue.HE: 4, catalogue.HT: 4}
	for typ, n := range counts {
		for i := 0; i < n; i++ {
			mags = append(mags, catalogue.Magnet{
				ID:    string(typ) + string(rune('a'+i)),
				Type:  typ,
				Field: geom.Vector3{0, 0, 1.0},
			})
		}
	}
	cat, err := catalogue.New(mags, nil)
	require.NoError(t, err)
	return info, cat
}

func gridDims(info *layout.Info) (nx, nz, ns int) {
	nx = int((info.XMax-info.XMin)/info.XStep) + 1
	nz = int((info.ZMax-info.ZMin)/info.ZStep) + 1
	ns = int((info.SMax-info.SMin)/info.SStep) + 1
	return
}

func totalSlots(info *layout.Info) int {
	n := 0
	for _, beam := range info.Beams {
		n += len(beam.Slots)
	}
	return n
}

// sharedLookup builds one lookup tensor covering every slot across every
// beam, indexed by a single running slot counter (enough for these tests'
// purposes; production code keys one LookupTensor per beam).
func sharedLookup(t *testing.T, info *layout.Info) (*field.LookupTensor, map[string][]int) {
	t.Helper()
	nx, nz, ns := gridDims(info)
	n := totalSlots(info)
	l := smallLookup(nx, nz, ns, n)

	offsets := map[string][]int{}
	idx := 0
	for _, beam := range info.Beams {
		ids := make([]int, len(beam.Slots))
		for i := range beam.Slots {
			ids[i] = idx
			idx++
		}
		offsets[beam.Name] = ids
	}
	return l, offsets
}

func TestReferenceFieldLossIsZeroAgainstItself(t *testing.T) {
	info, cat := buildFixture(t)
	ref, err := catalogue.GenerateReference(cat)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	g := genome.Create(ref, rng)

	beamVecs, err := field.AssembleBeamVectors(info.Beams, ref, g)
	require.NoError(t, err)

	l, offsets := sharedLookup(t, info)

	var full *field.BField
	for _, beam := range info.Beams {
		ids := offsets[beam.Name]
		nSlots := len(ids)
		sub := field.BeamVectors{make([]float64, nSlots), make([]float64, nSlots), make([]float64, nSlots)}
		v := beamVecs[beam.Name]
		copy(sub[0], v[0])
		copy(sub[1], v[1])
		copy(sub[2], v[2])

		sl := subLookup(l, ids)
		b, err := field.SynthesizeBeam(sl, sub, nil)
		require.NoError(t, err)
		if full == nil {
			full = b
		} else {
			full.Add(b)
		}
	}

	bLoss := loss.BfieldLoss(full, full)
	assert.Equal(t, 0.0, bLoss)

	_, traj, err := field.Evaluate(info, full)
	require.NoError(t, err)
	tLoss := loss.TrajectoryLoss(traj, traj)
	assert.Equal(t, 0.0, tLoss)
}

// subLookup extracts the slots in ids (in order) from l into a new
// LookupTensor with N = len(ids).
func subLookup(l *field.LookupTensor, ids []int) *field.LookupTensor {
	out := field.NewLookupTensor(l.NX, l.NZ, l.NS, len(ids))
	for newIdx, oldIdx := range ids {
		for ix := 0; ix < l.NX; ix++ {
			for iz := 0; iz < l.NZ; iz++ {
				for is := 0; is < l.NS; is++ {
					for a := 0; a < 3; a++ {
						for c := 0; c < 3; c++ {
							out.SetAt(l.At(ix, iz, is, a, c, oldIdx), ix, iz, is, a, c, newIdx)
						}
					}
				}
			}
		}
	}
	return out
}
