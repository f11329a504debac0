package layout

import (
	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
)

// generateHybrid builds the two beams of a Hybrid Symmetric device: per
// beam HT, HE, (HH x 2*nperiods), HE, HT, flip RotS180 throughout,
// direction alternating I/RotZ180 starting from RotZ180 on Top and I on
// Bottom (spec §4.B, scenario 1).
func generateHybrid(p Params) []Beam {
	n := p.Periods
	types := make([]catalogue.Type, 0, 2*n+4)
	types = append(types, catalogue.HT, catalogue.HE)
	for i := 0; i < 2*n; i++ {
		types = append(types, catalogue.HH)
	}
	types = append(types, catalogue.HE, catalogue.HT)

	dims := make([]geom.Vector3, len(types))
	steps := make([]float64, len(types))
	for i, t := range types {
		dims[i] = dimsFor(p.Dims, t)
		if i == 0 {
			continue
		}
		steps[i] = hybridStep(p, types[i-1], t)
	}

	flips := make([]geom.Matrix3, len(types))
	for i := range flips {
		flips[i] = geom.RotS180
	}

	beams := make([]Beam, 2)
	transverse := []float64{p.Gap / 2, -p.Gap / 2}
	startDir := []geom.Matrix3{geom.RotZ180, geom.I}
	for b, name := range beamNames(p.Family) {
		directions := make([]geom.Matrix3, len(types))
		for i := range directions {
			if i%2 == 0 {
				directions[i] = startDir[b]
			} else {
				directions[i] = other(startDir[b])
			}
		}
		beams[b] = buildBeam(name, types, dims, steps, directions, flips, transverse[b])
	}
	return beams
}

func other(m geom.Matrix3) geom.Matrix3 {
	if geom.Equal(m, geom.I, 1e-12) {
		return geom.RotZ180
	}
	return geom.I
}

func hybridStep(p Params, prev, next catalogue.Type) float64 {
	pair := func(a, b catalogue.Type) bool {
		return (prev == a && next == b) || (prev == b && next == a)
	}
	switch {
	case pair(catalogue.HT, catalogue.HE):
		return p.Dims.HT[2] + p.EndGapSym + p.TerminalGapSymHyb + p.Dims.Pole[2]/2
	case pair(catalogue.HE, catalogue.HH):
		return p.Dims.HE[2] + p.Dims.Pole[2] + 2*p.Interstice
	default: // HH <-> HH
		return p.Dims.Full[2] + p.Dims.Pole[2] + 2*p.Interstice
	}
}

func dimsFor(d MagDims, t catalogue.Type) geom.Vector3 {
	switch t {
	case catalogue.HH, catalogue.VV:
		return d.Full
	case catalogue.VE:
		return d.VE
	case catalogue.HE:
		return d.HE
	case catalogue.HT:
		return d.HT
	default:
		return geom.Vector3{}
	}
}

// buildBeam accumulates S-axis positions from per-transition step sizes,
// centers the sequence on S=0, and assembles the final Slot list.
func buildBeam(name string, types []catalogue.Type, dims []geom.Vector3, steps []float64, directions, flips []geom.Matrix3, transverseZ float64) Beam {
	n := len(types)
	s := make([]float64, n)
	for i := 1; i < n; i++ {
		s[i] = s[i-1] + steps[i]
	}
	if n > 0 {
		center := s[n-1] / 2
		for i := range s {
			s[i] -= center
		}
	}

	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{
			Type:       types[i],
			Position:   geom.Vector3{0, transverseZ, s[i]},
			Direction:  directions[i],
			Flip:       flips[i],
			Dimensions: dims[i],
		}
	}
	return Beam{Name: name, Slots: slots}
}
