// Package evolve implements the clonal-selection evolutionary driver of
// spec §4.F: per-iteration child generation, all-to-all exchange, fitness
// filtering, checkpointing and aging, layered over package cluster for
// inter-node collectives and package field for fitness evaluation.
package evolve

import (
	"fmt"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/field"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/layout"
	"github.com/diamondlightsource/idsort/loss"
	"github.com/diamondlightsource/idsort/workpool"
)

// Evaluator computes a genome's fitness (spec §4.C "Evaluate"): it
// synthesizes each beam's field from the genome's assignment, sums to the
// full-device field, integrates the trajectory (spec §4.D), and scores
// trajectory_loss against a reference trajectory synthesized once, at
// construction time, from the catalogue's reference magnets (spec §4.E).
type Evaluator struct {
	Info      *layout.Info
	Catalogue *catalogue.MagnetCatalogue
	Lookups   map[string]*field.LookupTensor // keyed by beam name
	Pool      *workpool.Pool

	refTraj *field.Trajectory
}

// NewEvaluator synthesizes the reference trajectory and returns an
// Evaluator ready to score genomes drawn over cat.
func NewEvaluator(info *layout.Info, cat *catalogue.MagnetCatalogue, lookups map[string]*field.LookupTensor, pool *workpool.Pool) (*Evaluator, error) {
	ref, err := catalogue.GenerateReference(cat)
	if err != nil {
		return nil, err
	}

	e := &Evaluator{Info: info, Catalogue: cat, Lookups: lookups, Pool: pool}

	// Every reference magnet of a given type shares the same field vector
	// (catalogue.GenerateReference), so any permutation assignment over
	// the reference catalogue synthesizes the same field; the identity
	// assignment is the simplest such genome.
	refGenome := identityGenome(ref)
	full, err := e.synthesize(ref, refGenome)
	if err != nil {
		return nil, err
	}
	_, refTraj, err := field.Evaluate(info, full)
	if err != nil {
		return nil, err
	}
	e.refTraj = refTraj
	return e, nil
}

// Evaluate computes and stores g.Fitness, returning it.
func (e *Evaluator) Evaluate(g *genome.Genome) (float64, error) {
	full, err := e.synthesize(e.Catalogue, g)
	if err != nil {
		return 0, err
	}
	_, traj, err := field.Evaluate(e.Info, full)
	if err != nil {
		return 0, err
	}
	g.Fitness = loss.TrajectoryLoss(traj, e.refTraj)
	return g.Fitness, nil
}

func (e *Evaluator) synthesize(cat *catalogue.MagnetCatalogue, g *genome.Genome) (*field.BField, error) {
	beamVecs, err := field.AssembleBeamVectors(e.Info.Beams, cat, g)
	if err != nil {
		return nil, err
	}

	var full *field.BField
	for _, beam := range e.Info.Beams {
		l, ok := e.Lookups[beam.Name]
		if !ok {
			return nil, fmt.Errorf("evolve: %w: no lookup tensor for beam %q", iderr.ErrInvariantViolation, beam.Name)
		}
		b, err := field.SynthesizeBeam(l, beamVecs[beam.Name], e.Pool)
		if err != nil {
			return nil, err
		}
		if full == nil {
			full = b
		} else {
			full.Add(b)
		}
	}
	return full, nil
}

// identityGenome assigns each type's pool to slots in pool order with no
// flips; used only where the catalogue's field vectors are known to be
// invariant under permutation (the reference catalogue).
func identityGenome(cat *catalogue.MagnetCatalogue) *genome.Genome {
	g := &genome.Genome{Assignment: map[catalogue.Type]*genome.TypeAssignment{}}
	for t, pool := range cat.Pools {
		keys := append([]string(nil), pool.Keys()...)
		g.Assignment[t] = &genome.TypeAssignment{Keys: keys, Flips: make([]bool, len(keys))}
	}
	return g
}
