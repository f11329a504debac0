package layout

import (
	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
)

// generatePPM builds the two beams of a PPM Anti-Symmetric device: per beam
// HE, VE, (HH, VV, HH, VV x nperiods), HH (extra half-period), VE, HE (spec
// §4.B, scenario 2).
func generatePPM(p Params) []Beam {
	n := p.Periods
	periodic := make([]catalogue.Type, 0, 4*n+1)
	for i := 0; i < n; i++ {
		periodic = append(periodic, catalogue.HH, catalogue.VV, catalogue.HH, catalogue.VV)
	}
	periodic = append(periodic, catalogue.HH) // extra half-period

	types := make([]catalogue.Type, 0, len(periodic)+4)
	types = append(types, catalogue.HE, catalogue.VE)
	types = append(types, periodic...)
	types = append(types, catalogue.VE, catalogue.HE)

	dims := make([]geom.Vector3, len(types))
	steps := make([]float64, len(types))
	for i, t := range types {
		dims[i] = dimsFor(p.Dims, t)
		if i == 0 {
			continue
		}
		steps[i] = (dims[i-1][2]+dims[i][2])/2 + p.Interstice
	}

	// flips cycle [RotS180, RotZ180] continuously across the whole beam
	// (id_setup.py create_flip_matrix_list_ppm_antisymmetric), shared by
	// both beams.
	flipCycle := []geom.Matrix3{geom.RotS180, geom.RotZ180}
	flips := make([]geom.Matrix3, len(types))
	for i := range flips {
		flips[i] = flipCycle[i%len(flipCycle)]
	}

	// direction matrices cycle continuously from slot 0 across the entire
	// beam, ends included (id_setup.py
	// create_direction_matrix_list_ppm_antisymmetric_top/_btm) — there is
	// no separate end-slot constant.
	topCycle := []geom.Matrix3{geom.RotZ180, geom.I, geom.I, geom.RotS180}
	bottomCycle := []geom.Matrix3{geom.I, geom.I, geom.RotZ180, geom.RotS180}

	beams := make([]Beam, 2)
	transverse := []float64{p.Gap / 2, -p.Gap / 2}
	cycles := [][]geom.Matrix3{topCycle, bottomCycle}

	for b, name := range beamNames(p.Family) {
		cycle := cycles[b]
		directions := make([]geom.Matrix3, len(types))
		for i := range directions {
			directions[i] = cycle[i%len(cycle)]
		}

		beams[b] = buildBeam(name, types, dims, steps, directions, flips, transverse[b])
	}
	return beams
}
