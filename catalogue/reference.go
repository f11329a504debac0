package catalogue

import "github.com/diamondlightsource/idsort/geom"

// GenerateReference synthesizes the idealized "perfect" magnet set used to
// compute the reference field and reference trajectory (spec §4.A). For
// each type it inspects the first magnet's field vector, takes the index
// of its maximum-magnitude component as the canonical easy axis, and
// builds an idealized field vector whose only nonzero entry is
// MeanField[type] on that axis. The reference pool shares the real pool's
// keys and canonical flip.
func GenerateReference(c *MagnetCatalogue) (*MagnetCatalogue, error) {
	ref := &MagnetCatalogue{
		Pools:      map[Type]*Pool{},
		MeanField:  map[Type]float64{},
		FlipMatrix: map[Type]geom.Matrix3{},
	}

	for _, t := range Types {
		pool := c.Pools[t]
		refPool := NewPool()
		ref.Pools[t] = refPool

		if pool.Len() == 0 {
			continue
		}

		firstKey := pool.Keys()[0]
		first, _ := pool.Get(firstKey)
		axis := argmax(first.Field)

		refField := geom.Vector3{}
		refField[axis] = c.MeanField[t]

		for _, key := range pool.Keys() {
			refPool.Add(Magnet{ID: key, Type: t, Field: refField})
		}

		ref.MeanField[t] = c.MeanField[t]
		ref.FlipMatrix[t] = c.FlipMatrix[t]
	}

	return ref, nil
}

// argmax returns the index of the maximum-magnitude component of v.
func argmax(v geom.Vector3) int {
	best := 0
	bestAbs := absVal(v[0])
	for i := 1; i < 3; i++ {
		a := absVal(v[i])
		if a > bestAbs {
			bestAbs = a
			best = i
		}
	}
	return best
}

func absVal(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
