// Package field implements the field evaluator and trajectory integrator:
// per-beam field synthesis from a lookup tensor and magnet field vectors,
// and the trapezoidal double-integration pipeline that derives electron
// trajectories and phase error from a full-device field.
package field

import "gorgonia.org/tensor"

// LookupTensor is the immutable per-beam lookup table L[ix,iz,is,a,c,slot]
// of shape (nx, nz, ns, 3, 3, nSlots): contracting the slot's field vector
// against the c (field-axis) index yields that magnet's field contribution
// at every grid point.
type LookupTensor struct {
	NX, NZ, NS, NSlots int
	dense              *tensor.Dense
}

// NewLookupTensor allocates a zero-filled lookup tensor of the given shape.
func NewLookupTensor(nx, nz, ns, nslots int) *LookupTensor {
	d := tensor.New(tensor.WithShape(nx, nz, ns, 3, 3, nslots), tensor.Of(tensor.Float64))
	return &LookupTensor{NX: nx, NZ: nz, NS: ns, NSlots: nslots, dense: d}
}

// NewLookupTensorFromData wraps a pre-populated flat row-major buffer.
func NewLookupTensorFromData(nx, nz, ns, nslots int, data []float64) *LookupTensor {
	d := tensor.New(
		tensor.WithShape(nx, nz, ns, 3, 3, nslots),
		tensor.Of(tensor.Float64),
		tensor.WithBacking(data),
	)
	return &LookupTensor{NX: nx, NZ: nz, NS: ns, NSlots: nslots, dense: d}
}

func (l *LookupTensor) data() []float64 {
	return l.dense.Data().([]float64)
}

func (l *LookupTensor) linearIndex(ix, iz, is, a, c, slot int) int {
	return ((((ix*l.NZ+iz)*l.NS+is)*3+a)*3+c)*l.NSlots + slot
}

// At returns L[ix,iz,is,a,c,slot].
func (l *LookupTensor) At(ix, iz, is, a, c, slot int) float64 {
	return l.data()[l.linearIndex(ix, iz, is, a, c, slot)]
}

// SetAt sets L[ix,iz,is,a,c,slot] = v.
func (l *LookupTensor) SetAt(v float64, ix, iz, is, a, c, slot int) {
	l.data()[l.linearIndex(ix, iz, is, a, c, slot)] = v
}

// Dense exposes the underlying gorgonia tensor, for callers that need bulk
// gob encoding or other generic tensor operations.
func (l *LookupTensor) Dense() *tensor.Dense {
	return l.dense
}
