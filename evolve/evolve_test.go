package evolve_test

import (
	"context"
	"fmt"
	"math"
	mathrand "math/rand"
	"testing"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/cluster"
	"github.com/diamondlightsource/idsort/evolve"
	"github.com/diamondlightsource/idsort/field"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/layout"
	"github.com/diamondlightsource/idsort/workpool"
	"github.com/stretchr/testify/require"
)

// buildFixture builds a minimal Hybrid Symmetric device (a single grid
// point, so trajectory integration is cheap) whose magnets genuinely
// differ within a type and whose lookup tensor varies per slot, so that
// mutating a genome's assignment actually moves its fitness (unlike the
// field package's own fixtures, which use identical per-type field
// vectors to isolate chunking behaviour).
func buildFixture(t *testing.T) (*layout.Info, *catalogue.MagnetCatalogue, map[string]*field.LookupTensor) {
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
		XMin:       0, XMax: 0, XStep: 1,
		ZMin: 0, ZMax: 0, ZStep: 1,
		Steps: 1,
	}
	info, err := layout.Generate(params)
	require.NoError(t, err)

	var mags []catalogue.Magnet
	counts := map[catalogue.Type]int{catalogue.HH: 24, catalogue.HE: 4, catalogue.HT: 4}
	for typ, n := range counts {
		for i := 0; i < n; i++ {
			mags = append(mags, catalogue.Magnet{
				ID:    fmt.Sprintf("%s%02d", typ, i),
				Type:  typ,
				Field: geom.Vector3{0.5 + 0.01*float64(i), 0, 1.0},
			})
		}
	}
	cat, err := catalogue.New(mags, nil)
	require.NoError(t, err)

	nx := int((info.XMax-info.XMin)/info.XStep) + 1
	nz := int((info.ZMax-info.ZMin)/info.ZStep) + 1
	ns := int((info.SMax-info.SMin)/info.SStep) + 1

	lookups := map[string]*field.LookupTensor{}
	for _, beam := range info.Beams {
		n := len(beam.Slots)
		l := field.NewLookupTensor(nx, nz, ns, n)
		for ix := 0; ix < nx; ix++ {
			for iz := 0; iz < nz; iz++ {
				for is := 0; is < ns; is++ {
					for a := 0; a < 3; a++ {
						for i := 0; i < n; i++ {
							l.SetAt(1.0+0.1*float64(i), ix, iz, is, a, a, i)
						}
					}
				}
			}
		}
		lookups[beam.Name] = l
	}

	return info, cat, lookups
}

func TestPopulationStepDoesNotWorsenBestFitnessObserved(t *testing.T) {
	info, cat, lookups := buildFixture(t)

	pool := &workpool.Pool{Size: 2}
	require.NoError(t, pool.Init())
	defer pool.Close()

	evaluator, err := evolve.NewEvaluator(info, cat, lookups, pool)
	require.NoError(t, err)

	rng := mathrand.New(mathrand.NewSource(7))
	g0 := genome.Create(cat, rng)
	f0, err := evaluator.Evaluate(g0)
	require.NoError(t, err)
	require.False(t, math.IsNaN(f0))

	pop := &evolve.Population{
		Genomes: []*genome.Genome{g0},
		EStar:   f0,
		Options: evolve.Options{
			Setup:      4,
			MaxAge:     1_000_000,
			ParamC:     10,
			ParamScale: 10,
			ParamE:     f0,
			Rank:       0,
			CommSize:   1,
		},
		Evaluator: evaluator,
		Exchanger: cluster.Local{},
		RNG:       rng,
	}

	ctx := context.Background()
	best := f0
	for i := 0; i < 200; i++ {
		require.NoError(t, pop.Step(ctx))
		for _, g := range pop.Genomes {
			if g.Fitness < best {
				best = g.Fitness
			}
		}
	}

	require.LessOrEqual(t, best, f0)
}
