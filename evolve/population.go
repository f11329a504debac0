package evolve

import (
	"context"
	"fmt"
	"math"
	mathrand "math/rand"
	"sort"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/cluster"
	"github.com/diamondlightsource/idsort/genome"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/internal/obslog"
)

var log = obslog.Named("evolve")

// Options are the per-run hypermutation and protocol parameters of spec
// §4.F, plus this node's position in the cluster.
type Options struct {
	Setup      int
	MaxAge     int
	ParamC     float64
	ParamE     float64
	ParamScale float64
	Iterations int
	Rank       int
	CommSize   int
}

// Population is one node's view of the evolving genome set, plus the
// hypermutation target e★ the mutation-count formula is keyed on (spec
// §4.F).
type Population struct {
	Genomes []*genome.Genome
	EStar   float64

	Options   Options
	Evaluator *Evaluator
	Exchanger cluster.Exchanger
	RNG       *mathrand.Rand
}

// Initialize implements spec §4.F's initialization protocol: rank 0
// either creates Options.Setup random genomes or restart-loads every file
// under outputPath (sorted by filename, i.e. fitness-ascending); if the
// loaded count is under Setup, it fills the remainder by mutating the
// best-loaded genome with 20 mutations per child; a restart that loads no
// genome at all returns iderr.ErrInvariantViolation. Other ranks start with
// an empty local population; the initial exchange (driven by Run) gives
// every rank its first filtered share.
func (p *Population) Initialize(cat *catalogue.MagnetCatalogue, outputPath string, restart bool) error {
	p.EStar = p.Options.ParamE
	if p.Options.Rank != 0 {
		return nil
	}

	if restart {
		loaded, err := genome.LoadAll(outputPath)
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			return fmt.Errorf("evolve: %w: restart found no genomes under %q", iderr.ErrInvariantViolation, outputPath)
		}
		if len(loaded) < p.Options.Setup {
			best := loaded[0]
			need := p.Options.Setup - len(loaded)
			children := best.GenerateChildren(need, 20, p.RNG)
			for _, c := range children {
				if _, err := p.Evaluator.Evaluate(c); err != nil {
					return err
				}
			}
			loaded = append(loaded, children...)
		}
		p.Genomes = loaded
		return nil
	}

	genomes := make([]*genome.Genome, p.Options.Setup)
	for i := range genomes {
		g := genome.Create(cat, p.RNG)
		if _, err := p.Evaluator.Evaluate(g); err != nil {
			return err
		}
		genomes[i] = g
	}
	p.Genomes = genomes
	return nil
}

// Run drives Options.Iterations steps after an initial exchange/filter
// pass over the initialized population, checkpointing the best genome
// from rank 0 after every iteration (spec §4.F "Per-iteration protocol").
func (p *Population) Run(ctx context.Context, outputPath string) error {
	if err := p.exchangeAndFilter(ctx); err != nil {
		return err
	}

	for iter := 0; iter < p.Options.Iterations; iter++ {
		if err := p.Step(ctx); err != nil {
			return fmt.Errorf("evolve: iteration %d: %w", iter, err)
		}
		if p.Options.Rank == 0 && len(p.Genomes) > 0 {
			if err := genome.Save(outputPath, p.Genomes[0]); err != nil {
				return err
			}
			log.Info().Int("iteration", iter).Float64("best_fitness", p.Genomes[0].Fitness).Msg("checkpoint")
		}
	}
	return nil
}

// Step implements one iteration of spec §4.F's per-iteration protocol:
// generate children, exchange, filter, age.
func (p *Population) Step(ctx context.Context) error {
	var candidates []*genome.Genome
	candidates = append(candidates, p.Genomes...)

	for _, g := range p.Genomes {
		k := mutationCount(g.Fitness, p.EStar, p.Options.ParamC, p.Options.ParamScale, p.RNG)
		children := g.GenerateChildren(p.Options.Setup, k, p.RNG)
		for _, c := range children {
			if _, err := p.Evaluator.Evaluate(c); err != nil {
				return err
			}
		}
		candidates = append(candidates, children...)
	}

	if err := p.exchangeAndFilterSet(ctx, candidates); err != nil {
		return err
	}

	if len(p.Genomes) > 0 {
		p.EStar = 0.99 * p.Genomes[0].Fitness
	}
	for _, g := range p.Genomes {
		g.Age++
	}
	return nil
}

func (p *Population) exchangeAndFilter(ctx context.Context) error {
	return p.exchangeAndFilterSet(ctx, p.Genomes)
}

func (p *Population) exchangeAndFilterSet(ctx context.Context, candidates []*genome.Genome) error {
	if err := p.Exchanger.Barrier(ctx); err != nil {
		return err
	}
	merged, err := p.Exchanger.Exchange(ctx, candidates)
	if err != nil {
		return err
	}
	p.Genomes = filterGenomes(merged, p.Options.Setup, p.Options.MaxAge, p.Options.Rank)
	return nil
}

// mutationCount draws the mutation count for one genome's children, per
// spec §4.F: mutations = floor(|(1 - e★/fitness)·c + c| + |(a-b)·scale|),
// with a, b independently uniform on [0,1). A zero fitness (a
// perfect-against-reference genome) makes e★/fitness undefined; since
// such a genome needs no corrective push, the ratio term is treated as 0
// in that case rather than raising ErrArithmeticDegenerate, which is
// reserved for failures that abort a run rather than a single mutation
// draw.
func mutationCount(fitness, eStar, c, scale float64, rng *mathrand.Rand) int {
	var ratio float64
	if fitness != 0 {
		ratio = 1 - eStar/fitness
	}
	a, b := rng.Float64(), rng.Float64()
	v := math.Abs(ratio*c+c) + math.Abs((a-b)*scale)
	return int(math.Floor(v))
}

// filterGenomes implements spec §4.F's filter_genomes: bucket by fitness
// formatted %1.8E, keep the highest-age genome per bucket, drop any with
// age ≥ maxAge, sort ascending by fitness, and return the rank's slice
// [setup·rank : setup·(rank+1)].
func filterGenomes(genomes []*genome.Genome, setup, maxAge, rank int) []*genome.Genome {
	buckets := map[string]*genome.Genome{}
	order := make([]string, 0, len(genomes))
	for _, g := range genomes {
		key := fmt.Sprintf("%.8E", g.Fitness)
		existing, ok := buckets[key]
		if !ok {
			buckets[key] = g
			order = append(order, key)
			continue
		}
		if g.Age > existing.Age {
			buckets[key] = g
		}
	}

	filtered := make([]*genome.Genome, 0, len(order))
	for _, key := range order {
		g := buckets[key]
		if g.Age >= maxAge {
			continue
		}
		filtered = append(filtered, g)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Fitness < filtered[j].Fitness })

	lo, hi := setup*rank, setup*(rank+1)
	if lo > len(filtered) {
		lo = len(filtered)
	}
	if hi > len(filtered) {
		hi = len(filtered)
	}
	return filtered[lo:hi]
}
