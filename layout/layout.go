package layout

import (
	"fmt"
	"math"

	"github.com/diamondlightsource/idsort/internal/iderr"
)

const evalPad = 16 // pad, in periods, added to the S-axis sampling window

// Generate produces the full device descriptor for the requested family
// and physical parameters (spec §4.B). It is a pure function: the same
// Params always yields a bit-identical Info.
func Generate(p Params) (*Info, error) {
	var beams []Beam
	switch p.Family {
	case HybridSymmetric:
		beams = generateHybrid(p)
	case PPMAntiSymmetric:
		beams = generatePPM(p)
	case AppleIISymmetric:
		beams = generateAppleII(p)
	default:
		return nil, fmt.Errorf("layout: %w: %q", iderr.ErrUnsupportedDeviceType, p.Family)
	}

	periodLength := periodLengthFor(p)
	sstep := roundStep(periodLength / (4 * float64(p.Steps)))
	evalLength := periodLength * float64(p.Periods+evalPad)
	smin := -evalLength / 2
	smax := evalLength/2 + sstep

	info := &Info{
		Name:          string(p.Family),
		Type:          p.Family,
		Gap:           p.Gap,
		Interstice:    p.Interstice,
		Periods:       p.Periods,
		NumberOfBeams: len(beams),
		PeriodLength:  periodLength,
		SStep:         sstep,
		SMin:          smin,
		SMax:          smax,
		XMin:          p.XMin,
		XMax:          p.XMax,
		XStep:         p.XStep,
		ZMin:          p.ZMin,
		ZMax:          p.ZMax,
		ZStep:         p.ZStep,
		EndGap:        p.EndGapSym,
		PhasingGap:    p.PhasingGap,
		ClampCut:      p.ClampCut,
		Beams:         beams,
	}

	if err := Validate(info); err != nil {
		return nil, err
	}
	return info, nil
}

// periodLengthFor returns the S-axis length of one full magnetic period
// for the given family and physical parameters.
func periodLengthFor(p Params) float64 {
	switch p.Family {
	case HybridSymmetric:
		return 2 * (p.Dims.Full[2] + p.Dims.Pole[2] + 2*p.Interstice)
	case PPMAntiSymmetric, AppleIISymmetric:
		return 4 * (p.Dims.Full[2] + p.Interstice)
	default:
		return 0
	}
}

// roundStep rounds x to 10^-5, keeping the S-axis step size commensurate
// with the lookup tensor grid (spec §9, "sub-period rounding").
func roundStep(x float64) float64 {
	return math.Round(x*1e5) / 1e5
}

// Validate rejects a descriptor that has no beams, or a beam with no
// slots, as an invariant violation. The per-beam equal-length condition on
// types, positions, directions and flips holds by construction, because
// each Slot carries all four together; Validate does not check it
// separately. It guards against a corrupted or hand-edited descriptor
// (e.g. after a JSON round-trip) rather than a construction bug.
func Validate(info *Info) error {
	if len(info.Beams) == 0 {
		return fmt.Errorf("layout: %w: device has no beams", iderr.ErrInvariantViolation)
	}
	for _, beam := range info.Beams {
		if len(beam.Slots) == 0 {
			return fmt.Errorf("layout: %w: beam %q has no slots", iderr.ErrInvariantViolation, beam.Name)
		}
	}
	return nil
}
