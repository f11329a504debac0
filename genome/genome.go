// Package genome implements the BCell representation of spec §4.C: a
// permutation-with-flips assignment of catalogue magnets to layout slots,
// plus the clonal-selection mutation operators the evolutionary driver
// drives.
package genome

import (
	"crypto/rand"
	mathrand "math/rand"

	"github.com/diamondlightsource/idsort/catalogue"
	b58 "github.com/mr-tron/base58/base58"
)

// TypeAssignment is the permutation of catalogue keys and per-slot flip
// bits for a single magnet type.
type TypeAssignment struct {
	Keys  []string
	Flips []bool
}

func (a *TypeAssignment) clone() *TypeAssignment {
	keys := make([]string, len(a.Keys))
	copy(keys, a.Keys)
	flips := make([]bool, len(a.Flips))
	copy(flips, a.Flips)
	return &TypeAssignment{Keys: keys, Flips: flips}
}

// Genome is a BCell: an assignment of physical magnets to slots plus flip
// bits, with cached lifecycle scalars.
type Genome struct {
	Assignment map[catalogue.Type]*TypeAssignment
	Fitness    float64
	Age        int
	Mutations  int
	UID        string
}

// Create shuffles each type's pool uniformly at random, zero-initializes
// flips, and assigns a fresh UID (spec §4.C "Create").
func Create(cat *catalogue.MagnetCatalogue, rng *mathrand.Rand) *Genome {
	g := &Genome{
		Assignment: map[catalogue.Type]*TypeAssignment{},
		UID:        newUID(),
	}
	for t, pool := range cat.Pools {
		keys := append([]string(nil), pool.Keys()...)
		rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		g.Assignment[t] = &TypeAssignment{
			Keys:  keys,
			Flips: make([]bool, len(keys)),
		}
	}
	return g
}

// Clone returns a deep copy of g with a fresh UID; Age and Mutations are
// copied verbatim (callers that start a new lineage, e.g. GenerateChildren,
// reset them explicitly).
func (g *Genome) Clone() *Genome {
	out := &Genome{
		Assignment: map[catalogue.Type]*TypeAssignment{},
		Fitness:    g.Fitness,
		Age:        g.Age,
		Mutations:  g.Mutations,
		UID:        newUID(),
	}
	for t, a := range g.Assignment {
		out.Assignment[t] = a.clone()
	}
	return out
}

// Mutate applies k elementary mutations to g in place: each mutation is
// either a swap of two entries within one type's permutation, or a flip of
// one bit, chosen uniformly; the type a mutation targets is chosen in
// proportion to that type's pool size (spec §4.C "Mutate(k)").
func (g *Genome) Mutate(k int, rng *mathrand.Rand) {
	types, weights := g.mutationWeights()
	if len(types) == 0 {
		return
	}
	for i := 0; i < k; i++ {
		t := weightedChoice(types, weights, rng)
		a := g.Assignment[t]
		if len(a.Keys) < 2 {
			continue
		}
		if rng.Intn(2) == 0 {
			i, j := rng.Intn(len(a.Keys)), rng.Intn(len(a.Keys))
			a.Keys[i], a.Keys[j] = a.Keys[j], a.Keys[i]
		} else {
			idx := rng.Intn(len(a.Flips))
			a.Flips[idx] = !a.Flips[idx]
		}
	}
	g.Mutations += k
}

// GenerateChildren returns n deep copies of g, each mutated by k elementary
// mutations and reset to age 0 (spec §4.C "Generate-children(n, k)").
func (g *Genome) GenerateChildren(n, k int, rng *mathrand.Rand) []*Genome {
	children := make([]*Genome, n)
	for i := 0; i < n; i++ {
		c := g.Clone()
		c.Age = 0
		c.Mutations = 0
		c.Mutate(k, rng)
		children[i] = c
	}
	return children
}

func (g *Genome) mutationWeights() ([]catalogue.Type, []float64) {
	types := make([]catalogue.Type, 0, len(g.Assignment))
	weights := make([]float64, 0, len(g.Assignment))
	for t, a := range g.Assignment {
		if len(a.Keys) == 0 {
			continue
		}
		types = append(types, t)
		weights = append(weights, float64(len(a.Keys)))
	}
	return types, weights
}

func weightedChoice(types []catalogue.Type, weights []float64, rng *mathrand.Rand) catalogue.Type {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return types[i]
		}
	}
	return types[len(types)-1]
}

// newUID returns a base58-encoded random identifier, mirroring the
// base58-encoded key fingerprints used elsewhere in the corpus
// (github.com/mr-tron/base58).
func newUID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return b58.Encode(buf)
}
