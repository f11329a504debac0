package catalogue

import (
	"fmt"
	"math"

	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/internal/obslog"
)

var log = obslog.Named("catalogue")

// Pool is an ordered, keyed collection of magnets of a single type. Order
// is the order magnets were added, which is the deterministic iteration
// order used for shuffling and reference synthesis.
type Pool struct {
	keys  []string
	byKey map[string]Magnet
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{byKey: map[string]Magnet{}}
}

// Add appends a magnet to the pool. Adding a duplicate key overwrites the
// stored magnet but keeps its original position.
func (p *Pool) Add(m Magnet) {
	if _, ok := p.byKey[m.ID]; !ok {
		p.keys = append(p.keys, m.ID)
	}
	p.byKey[m.ID] = m
}

// Len returns the number of magnets in the pool.
func (p *Pool) Len() int { return len(p.keys) }

// Keys returns the pool's keys in deterministic order. The returned slice
// must not be mutated by the caller.
func (p *Pool) Keys() []string { return p.keys }

// Get returns the magnet stored under key.
func (p *Pool) Get(key string) (Magnet, bool) {
	m, ok := p.byKey[key]
	return m, ok
}

// MagnetCatalogue is a mapping from type tag to an ordered pool of
// magnets, plus per-type mean field magnitude and canonical flip matrix.
type MagnetCatalogue struct {
	Pools      map[Type]*Pool
	MeanField  map[Type]float64
	FlipMatrix map[Type]geom.Matrix3
}

// New builds a MagnetCatalogue from raw magnets and an optional per-type
// flip matrix override (types absent from flips fall back to geom.RotS180,
// the flip every device family gives its HH slots).
func New(magnets []Magnet, flips map[Type]geom.Matrix3) (*MagnetCatalogue, error) {
	c := &MagnetCatalogue{
		Pools:      map[Type]*Pool{},
		MeanField:  map[Type]float64{},
		FlipMatrix: map[Type]geom.Matrix3{},
	}

	for _, t := range Types {
		c.Pools[t] = NewPool()
	}

	for _, m := range magnets {
		pool, ok := c.Pools[m.Type]
		if !ok {
			return nil, fmt.Errorf("catalogue: magnet %q has %w: %q", m.ID, iderr.ErrUnsupportedDeviceType, m.Type)
		}
		pool.Add(m)
	}

	for _, t := range Types {
		pool := c.Pools[t]
		if pool.Len() == 0 {
			log.Debug().Str("type", string(t)).Msg("empty type pool")
			continue
		}

		var sum float64
		for _, key := range pool.Keys() {
			mag, _ := pool.Get(key)
			sum += magnitude(mag.Field)
		}
		c.MeanField[t] = sum / float64(pool.Len())

		if flip, ok := flips[t]; ok {
			c.FlipMatrix[t] = flip
		} else {
			c.FlipMatrix[t] = geom.RotS180
		}
	}

	return c, nil
}

// Validate rejects a catalogue if any magnet type has an empty pool, per
// spec §4.A.
func (c *MagnetCatalogue) Validate() error {
	for _, t := range Types {
		if c.Pools[t].Len() == 0 {
			return fmt.Errorf("catalogue: %w: empty pool for type %q", iderr.ErrInvariantViolation, t)
		}
	}
	return nil
}

func magnitude(v geom.Vector3) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
