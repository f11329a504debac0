package field

import (
	"fmt"
	"math"

	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/layout"
	"gonum.org/v1/gonum/mat"
)

// Physical constants for the trajectory/phase-error integration (spec §4.D,
// §9). These are reproduced exactly from the reference implementation;
// energy is the Diamond storage ring's nominal electron beam energy.
const (
	energyGeV        = 3.0
	integrationConst = (0.03 / energyGeV) * 1e-2
	electronMassGeV  = 0.511e-3
	speedOfLight     = 2.9911124e8 // m/s
	nskip            = 8
)

var gamma = energyGeV / electronMassGeV

// Trajectory holds the first and second integrals of motion T[ix,iz,is,k]
// for k in {0,1,2,3}: first integrals (x,z), then second integrals (x,z).
type Trajectory struct {
	NX, NZ, NS int
	Data       []float64 // stride (NZ*NS*4, NS*4, 4, 1)
}

func newTrajectory(nx, nz, ns int) *Trajectory {
	return &Trajectory{NX: nx, NZ: nz, NS: ns, Data: make([]float64, nx*nz*ns*4)}
}

func (t *Trajectory) index(ix, iz, is, k int) int {
	return ((ix*t.NZ+iz)*t.NS+is)*4 + k
}

// At returns T[ix,iz,is,k].
func (t *Trajectory) At(ix, iz, is, k int) float64 {
	return t.Data[t.index(ix, iz, is, k)]
}

func (t *Trajectory) setAt(v float64, ix, iz, is, k int) {
	t.Data[t.index(ix, iz, is, k)] = v
}

// Evaluate runs the trapezoidal double integration of spec §4.D over a
// full-device field B, returning the phase error in degrees and the
// resulting trajectories. It returns iderr.ErrArithmeticDegenerate if the
// phase-error least-squares fit is singular (spec §7): the run must abort
// rather than silently recover a meaningless fit.
func Evaluate(info *layout.Info, b *BField) (float64, *Trajectory, error) {
	nx, nz, ns := b.NX, b.NZ, b.NS
	sstep := info.SStep

	trapB := trapezoidAlongS(b, sstep)

	traj := newTrajectory(nx, nz, ns)
	for ix := 0; ix < nx; ix++ {
		for iz := 0; iz < nz; iz++ {
			var cumNeg, cumPos float64
			for is := 0; is < ns; is++ {
				cumNeg -= trapB.At(ix, iz, is, 1) * integrationConst
				cumPos += trapB.At(ix, iz, is, 0) * integrationConst
				traj.setAt(cumNeg, ix, iz, is, 2)
				traj.setAt(cumPos, ix, iz, is, 3)
			}
		}
	}

	// First integrals: trap_T rolls axis 0 (nx) by 4, a quirk preserved
	// verbatim from the reference implementation (spec §9).
	trapT := trapezoidRollAxis0By4(traj, sstep)
	for ix := 0; ix < nx; ix++ {
		for iz := 0; iz < nz; iz++ {
			var cum0, cum1 float64
			for is := 0; is < ns; is++ {
				cum0 += trapT.At(ix, iz, is, 2)
				cum1 += trapT.At(ix, iz, is, 3)
				traj.setAt(cum0, ix, iz, is, 0)
				traj.setAt(cum1, ix, iz, is, 1)
			}
		}
	}

	phaseError, err := phaseErrorFromCentralTrajectory(info, traj)
	if err != nil {
		return 0, nil, err
	}
	return phaseError, traj, nil
}

// trapezoidAlongS rolls B by +1 along the S axis, zeroes the first S-slice,
// adds the original, and scales by sstep/2 (spec §4.D step 1).
func trapezoidAlongS(b *BField, sstep float64) *BField {
	out := NewBField(b.NX, b.NZ, b.NS)
	for ix := 0; ix < b.NX; ix++ {
		for iz := 0; iz < b.NZ; iz++ {
			for is := 0; is < b.NS; is++ {
				for a := 0; a < 3; a++ {
					var rolled float64
					if is > 0 {
						rolled = b.At(ix, iz, is-1, a)
					}
					out.SetAt((rolled+b.At(ix, iz, is, a))*(sstep/2), ix, iz, is, a)
				}
			}
		}
	}
	return out
}

// trapezoidRollAxis0By4 rolls T by +4 along axis 0 (the X grid axis, not
// the S axis), zeroes the first S-slice, adds the original, and scales by
// sstep/2. Reproducing the roll along axis 0 rather than the S axis is
// deliberate: the reference implementation does exactly this, and the
// spec directs implementers to preserve it rather than "fix" it.
func trapezoidRollAxis0By4(t *Trajectory, sstep float64) *Trajectory {
	out := newTrajectory(t.NX, t.NZ, t.NS)
	for ix := 0; ix < t.NX; ix++ {
		rolledIx := ((ix-4)%t.NX + t.NX) % t.NX
		for iz := 0; iz < t.NZ; iz++ {
			for is := 0; is < t.NS; is++ {
				for k := 0; k < 4; k++ {
					var rolled float64
					if is > 0 {
						rolled = t.At(rolledIx, iz, is, k)
					}
					out.setAt((rolled+t.At(ix, iz, is, k))*(sstep/2), ix, iz, is, k)
				}
			}
		}
	}
	return out
}

// phaseErrorFromCentralTrajectory implements spec §4.D steps 4-8.
func phaseErrorFromCentralTrajectory(info *layout.Info, traj *Trajectory) (float64, error) {
	i := ((traj.NX+1)/2 - 1)
	j := ((traj.NZ+1)/2 - 1)
	ns := traj.NS
	sstep := info.SStep

	w := make([][2]float64, ns)
	for is := 0; is < ns; is++ {
		v2 := traj.At(i, j, is, 2)
		v3 := traj.At(i, j, is, 3)
		w[is] = [2]float64{v2 * v2, v3 * v3}
	}

	trapW := make([][2]float64, ns)
	for is := 0; is < ns; is++ {
		var rolled [2]float64
		if is > 0 {
			rolled = w[is-1]
		}
		trapW[is] = [2]float64{
			(rolled[0] + w[is][0]) * 1e-3 * (sstep / 2),
			(rolled[1] + w[is][1]) * 1e-3 * (sstep / 2),
		}
	}

	ph0 := make([]float64, ns)
	var cum float64
	for is := 0; is < ns; is++ {
		cum += trapW[is][0] + trapW[is][1]
		ph0[is] = cum / (2.0 * speedOfLight)
	}

	ph1 := make([]float64, ns)
	slope := sstep * (1e-3 / (2.0 * speedOfLight * gamma * gamma))
	for is := 0; is < ns; is++ {
		ph1[is] = ph0[is] + slope*float64(is)
	}

	sTotalSteps := int(math.Round((info.SMax - info.SMin) / sstep))
	sStepsPerPeriod := int(info.PeriodLength / sstep)
	sStepsPerQtrPeriod := sStepsPerPeriod / 4
	nperiods := info.Periods

	count := 4*nperiods - 2*nskip
	v0 := make([]float64, count)
	base := sTotalSteps/2 - nperiods*(sStepsPerPeriod/2) + (nskip-1)*sStepsPerQtrPeriod
	for k := 0; k < count; k++ {
		v0[k] = float64(sStepsPerQtrPeriod*k + base)
	}

	v1 := make([]float64, count)
	for k, s := range v0 {
		v1[k] = ph1[int(s)]
	}

	m, b, err := linearFit(v0, v1)
	if err != nil {
		return 0, err
	}

	var residSq float64
	for k := range v0 {
		resid := v1[k] - (m*v0[k] + b)
		residSq += resid * resid
	}

	omegaSq := (2 * math.Pi / (m * float64(sStepsPerPeriod)))
	omegaSq *= omegaSq

	denom := float64(4*nperiods + 1 - 2*nskip)
	return math.Sqrt((residSq*omegaSq)/denom) * (180.0 / math.Pi), nil
}

// linearFit solves the overdetermined system [x 1]·[m b]ᵀ = y for the
// least-squares line y = m·x + b via QR decomposition. A singular system
// (e.g. a degenerate sampling window with fewer than two distinct s
// values) returns iderr.ErrArithmeticDegenerate rather than a meaningless
// fit (spec §7).
func linearFit(x, y []float64) (m, b float64, err error) {
	n := len(x)
	a := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, x[i])
		a.Set(i, 1, 1)
	}
	yv := mat.NewVecDense(n, y)

	var sol mat.VecDense
	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveVec(&sol, false, yv); err != nil {
		return 0, 0, fmt.Errorf("field: %w: least-squares phase-error fit: %v", iderr.ErrArithmeticDegenerate, err)
	}

	return sol.AtVec(0), sol.AtVec(1), nil
}
