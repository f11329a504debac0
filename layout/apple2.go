package layout

import (
	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
)

// quadrant describes one of the four APPLE-II beams: a name, its
// continuous per-beam direction-matrix cycle (id_setup.py
// create_direction_matrix_list_apple_symmetric_q1..q4), and its (x, z)
// corner position relative to beam centre.
type quadrant struct {
	name  string
	cycle []geom.Matrix3
	xSgn  float64
	zSgn  float64
}

func appleQuadrants() []quadrant {
	return []quadrant{
		{"Q1 Beam", []geom.Matrix3{geom.I, geom.RotS180, geom.RotS270Z, geom.I}, +1, +1},
		{"Q2 Beam", []geom.Matrix3{geom.RotS270, geom.RotX180, geom.RotZ180, geom.RotZ180}, -1, +1},
		{"Q3 Beam", []geom.Matrix3{geom.RotS270X, geom.RotS180, geom.RotS180, geom.I}, -1, -1},
		{"Q4 Beam", []geom.Matrix3{geom.RotX180, geom.RotX180, geom.RotS90, geom.RotZ180}, +1, -1},
	}
}

// generateAppleII builds the four beams of an APPLE-II Symmetric device:
// per beam HE, VE, HE, (VV, HH, VV, HH x (nperiods-2)), VV, HE, VE, HE
// (spec §4.B, scenario 3).
func generateAppleII(p Params) []Beam {
	n := p.Periods
	inner := n - 2
	if inner < 0 {
		inner = 0
	}
	periodic := make([]catalogue.Type, 0, 4*inner+1)
	for i := 0; i < inner; i++ {
		periodic = append(periodic, catalogue.VV, catalogue.HH, catalogue.VV, catalogue.HH)
	}
	periodic = append(periodic, catalogue.VV) // extra half-period

	types := make([]catalogue.Type, 0, len(periodic)+6)
	types = append(types, catalogue.HE, catalogue.VE, catalogue.HE)
	types = append(types, periodic...)
	types = append(types, catalogue.HE, catalogue.VE, catalogue.HE)

	dims := make([]geom.Vector3, len(types))
	steps := make([]float64, len(types))
	for i, t := range types {
		dims[i] = dimsFor(p.Dims, t)
		if i == 0 {
			continue
		}
		steps[i] = (dims[i-1][2]+dims[i][2])/2 + p.Interstice
	}

	// Flips alternate RotS180, I across the whole sequence.
	flips := make([]geom.Matrix3, len(types))
	for i := range flips {
		if i%2 == 0 {
			flips[i] = geom.RotS180
		} else {
			flips[i] = geom.I
		}
	}

	beams := make([]Beam, 4)
	for qi, q := range appleQuadrants() {
		// direction matrices cycle continuously from slot 0 across the
		// entire beam, ends included — there is no separate end-slot
		// constant (id_setup.py create_direction_matrix_list_apple_
		// symmetric_q1..q4).
		directions := make([]geom.Matrix3, len(types))
		for i := range directions {
			directions[i] = q.cycle[i%len(q.cycle)]
		}

		transverseZ := q.zSgn * (p.Gap/2 + p.Dims.Full[1]/2)
		transverseX := q.xSgn * (p.PhasingGap / 2)

		beam := buildBeamXZ(q.name, types, dims, steps, directions, flips, transverseX, transverseZ)
		beams[qi] = beam
	}
	return beams
}

// buildBeamXZ is buildBeam generalized to a nonzero transverse X offset,
// needed for the APPLE-II quadrant layout.
func buildBeamXZ(name string, types []catalogue.Type, dims []geom.Vector3, steps []float64, directions, flips []geom.Matrix3, transverseX, transverseZ float64) Beam {
	beam := buildBeam(name, types, dims, steps, directions, flips, transverseZ)
	for i := range beam.Slots {
		beam.Slots[i].Position[0] = transverseX
	}
	return beam
}
