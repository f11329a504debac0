package catalogue

import "github.com/diamondlightsource/idsort/geom"

// Type is one of the five physical magnet type tags used across the
// device families.
type Type string

const (
	HH Type = "HH" // standard horizontal
	VV Type = "VV" // standard vertical
	HE Type = "HE" // horizontal end
	VE Type = "VE" // vertical end
	HT Type = "HT" // horizontal terminator
)

// Types lists every type tag in a fixed, deterministic order.
var Types = []Type{HH, VV, HE, VE, HT}

// Magnet is a single physical magnet: an opaque identifier, a measured
// field vector, and its type. Immutable once loaded.
type Magnet struct {
	ID    string
	Type  Type
	Field geom.Vector3
}
