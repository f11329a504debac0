package evolve

import (
	mathrand "math/rand"
	"testing"

	"github.com/diamondlightsource/idsort/genome"
	"github.com/stretchr/testify/assert"
)

func mkGenome(fitness float64, age int) *genome.Genome {
	return &genome.Genome{Fitness: fitness, Age: age, UID: "u"}
}

func TestFilterGenomesDedupesByFitnessBucketKeepingOldest(t *testing.T) {
	a := mkGenome(1.0, 3)
	b := mkGenome(1.0, 7) // same %.8E bucket as a, higher age
	c := mkGenome(2.0, 1)

	out := filterGenomes([]*genome.Genome{a, b, c}, 10, 1000, 0)

	assert.Len(t, out, 2)
	assert.Same(t, b, out[0]) // higher-age survivor of the shared bucket
	assert.Same(t, c, out[1])
}

func TestFilterGenomesDropsAgedOut(t *testing.T) {
	young := mkGenome(1.0, 2)
	old := mkGenome(2.0, 5)

	out := filterGenomes([]*genome.Genome{young, old}, 10, 5, 0)

	assert.Len(t, out, 1)
	assert.Same(t, young, out[0])
}

func TestFilterGenomesSortsAscendingAndRespectsRankSlice(t *testing.T) {
	genomes := []*genome.Genome{
		mkGenome(3.0, 0),
		mkGenome(1.0, 0),
		mkGenome(4.0, 0),
		mkGenome(2.0, 0),
	}

	rank0 := filterGenomes(genomes, 2, 1000, 0)
	rank1 := filterGenomes(genomes, 2, 1000, 1)

	assert.Len(t, rank0, 2)
	assert.Equal(t, 1.0, rank0[0].Fitness)
	assert.Equal(t, 2.0, rank0[1].Fitness)

	assert.Len(t, rank1, 2)
	assert.Equal(t, 3.0, rank1[0].Fitness)
	assert.Equal(t, 4.0, rank1[1].Fitness)
}

func TestFilterGenomesOutputLengthNeverExceedsSetup(t *testing.T) {
	genomes := make([]*genome.Genome, 0, 50)
	for i := 0; i < 50; i++ {
		genomes = append(genomes, mkGenome(float64(i), 0))
	}
	out := filterGenomes(genomes, 10, 1000, 0)
	assert.LessOrEqual(t, len(out), 10)
}

func TestMutationCountIsNonNegative(t *testing.T) {
	rng := mathrand.New(mathrand.NewSource(1))
	for i := 0; i < 1000; i++ {
		k := mutationCount(float64(i+1)*0.01, 0.5, 10, 10, rng)
		assert.GreaterOrEqual(t, k, 0)
	}
}

func TestMutationCountHandlesZeroFitnessWithoutPanicking(t *testing.T) {
	rng := mathrand.New(mathrand.NewSource(2))
	assert.NotPanics(t, func() {
		mutationCount(0, 0.5, 10, 10, rng)
	})
}

func fitnessesOf(gs []*genome.Genome) []float64 {
	out := make([]float64, len(gs))
	for i, g := range gs {
		out[i] = g.Fitness
	}
	return out
}

// TestFilterGenomesIsOrderAgnosticAcrossNodes covers spec §8 scenario 6
// ("exchange associativity"): post-exchange, every node's view is the same
// multiset, so filter_genomes must produce identical per-rank results
// regardless of the order the merged population arrived in.
func TestFilterGenomesIsOrderAgnosticAcrossNodes(t *testing.T) {
	p0 := []*genome.Genome{mkGenome(5, 0), mkGenome(2, 0), mkGenome(8, 0)}
	p1 := []*genome.Genome{mkGenome(1, 0), mkGenome(9, 0), mkGenome(3, 0)}
	merged := append(append([]*genome.Genome{}, p0...), p1...)

	rank0 := filterGenomes(merged, 3, 1000, 0)
	rank1 := filterGenomes(merged, 3, 1000, 1)

	assert.Equal(t, []float64{1, 2, 3}, fitnessesOf(rank0))
	assert.Equal(t, []float64{5, 8, 9}, fitnessesOf(rank1))

	reordered := []*genome.Genome{merged[5], merged[0], merged[3], merged[1], merged[4], merged[2]}
	assert.Equal(t, fitnessesOf(rank0), fitnessesOf(filterGenomes(reordered, 3, 1000, 0)))
	assert.Equal(t, fitnessesOf(rank1), fitnessesOf(filterGenomes(reordered, 3, 1000, 1)))
}
