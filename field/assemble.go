package field

import (
	"fmt"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/layout"
)

// AssembleBeamVectors walks the device's beams in canonical traversal order
// (beam order, then slot order within beam) and, for each slot, consumes
// the next catalogue key from the genome's per-type permutation to build
// that beam's (3,N) field-vector matrix (spec §4.C "slot assignment",
// §4.D "per-beam field synthesis").
//
// The slot's field vector is flip_matrix^bit · direction_matrix ·
// catalogue field vector, per spec §4.C.
func AssembleBeamVectors(beams []layout.Beam, cat *catalogue.MagnetCatalogue, g *genome.Genome) (map[string]BeamVectors, error) {
	counters := map[catalogue.Type]int{}
	result := make(map[string]BeamVectors, len(beams))

	for _, beam := range beams {
		v := BeamVectors{
			make([]float64, len(beam.Slots)),
			make([]float64, len(beam.Slots)),
			make([]float64, len(beam.Slots)),
		}
		for slotIdx, slot := range beam.Slots {
			assignment, ok := g.Assignment[slot.Type]
			if !ok {
				return nil, fmt.Errorf("field: %w: genome has no assignment for type %q", iderr.ErrInvariantViolation, slot.Type)
			}
			i := counters[slot.Type]
			if i >= len(assignment.Keys) {
				return nil, fmt.Errorf("field: %w: type %q permutation exhausted", iderr.ErrInvariantViolation, slot.Type)
			}
			counters[slot.Type] = i + 1

			mag, ok := cat.Pools[slot.Type].Get(assignment.Keys[i])
			if !ok {
				return nil, fmt.Errorf("field: %w: unknown catalogue key %q for type %q", iderr.ErrInvariantViolation, assignment.Keys[i], slot.Type)
			}

			fieldVec := geom.Apply(slot.Direction, mag.Field)
			if assignment.Flips[i] {
				fieldVec = geom.Apply(slot.Flip, fieldVec)
			}

			v[0][slotIdx] = fieldVec[0]
			v[1][slotIdx] = fieldVec[1]
			v[2][slotIdx] = fieldVec[2]
		}
		result[beam.Name] = v
	}

	return result, nil
}
