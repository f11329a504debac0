package field

// BField holds the 3-component field B[ix,iz,is,a] over the sampling grid
// for one beam or the full device.
type BField struct {
	NX, NZ, NS int
	Data       []float64 // row-major, stride (NZ*NS*3, NS*3, 3, 1)
}

// NewBField allocates a zero-filled field over the given grid.
func NewBField(nx, nz, ns int) *BField {
	return &BField{NX: nx, NZ: nz, NS: ns, Data: make([]float64, nx*nz*ns*3)}
}

func (f *BField) index(ix, iz, is, a int) int {
	return ((ix*f.NZ+iz)*f.NS+is)*3 + a
}

// At returns B[ix,iz,is,a].
func (f *BField) At(ix, iz, is, a int) float64 {
	return f.Data[f.index(ix, iz, is, a)]
}

// SetAt sets B[ix,iz,is,a] = v.
func (f *BField) SetAt(v float64, ix, iz, is, a int) {
	f.Data[f.index(ix, iz, is, a)] = v
}

// Add accumulates other into f in place; f and other must share a grid
// shape. Used to sum per-beam fields into the full-device field.
func (f *BField) Add(other *BField) {
	for i, v := range other.Data {
		f.Data[i] += v
	}
}

// Clone returns a deep copy of f.
func (f *BField) Clone() *BField {
	out := &BField{NX: f.NX, NZ: f.NZ, NS: f.NS, Data: make([]float64, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// Sub returns f - other as a new field, over every field-axis component;
// callers that score only some components (spec §4.E bfield_loss) restrict
// the axis range themselves.
func (f *BField) Sub(other *BField) *BField {
	out := &BField{NX: f.NX, NZ: f.NZ, NS: f.NS, Data: make([]float64, len(f.Data))}
	for i := range f.Data {
		out.Data[i] = f.Data[i] - other.Data[i]
	}
	return out
}
