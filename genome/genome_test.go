package genome

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogue(t *testing.T) *catalogue.MagnetCatalogue {
	t.Helper()
	var mags []catalogue.Magnet
	for _, typ := range catalogue.Types {
		for i := 0; i < 4; i++ {
			mags = append(mags, catalogue.Magnet{
				ID:    string(typ) + "-" + string(rune('a'+i)),
				Type:  typ,
				Field: geom.Vector3{0, 1.0, 0},
			})
		}
	}
	c, err := catalogue.New(mags, nil)
	require.NoError(t, err)
	return c
}

func TestCreateShufflesAndZerosFlips(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(1))
	g := Create(cat, rng)

	for _, typ := range catalogue.Types {
		a := g.Assignment[typ]
		require.Equal(t, cat.Pools[typ].Len(), len(a.Keys))
		for _, f := range a.Flips {
			assert.False(t, f)
		}
	}
	assert.NotEmpty(t, g.UID)
}

func TestCloneIsIndependent(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(2))
	g := Create(cat, rng)
	c := g.Clone()

	c.Assignment[catalogue.HH].Flips[0] = true
	assert.False(t, g.Assignment[catalogue.HH].Flips[0])
	assert.NotEqual(t, g.UID, c.UID)
}

func TestMutateChangesAssignmentDeterministically(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(3))
	g := Create(cat, rng)
	before := g.Clone()

	g.Mutate(50, rng)

	changed := false
	for _, typ := range catalogue.Types {
		a, b := g.Assignment[typ], before.Assignment[typ]
		for i := range a.Keys {
			if a.Keys[i] != b.Keys[i] || a.Flips[i] != b.Flips[i] {
				changed = true
			}
		}
	}
	assert.True(t, changed)
	assert.Equal(t, 50, g.Mutations)
}

func TestGenerateChildrenResetsAge(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(4))
	g := Create(cat, rng)
	g.Age = 7

	children := g.GenerateChildren(5, 3, rng)
	require.Len(t, children, 5)
	for _, c := range children {
		assert.Equal(t, 0, c.Age)
		assert.Equal(t, 3, c.Mutations)
		assert.NotEqual(t, g.UID, c.UID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(5))
	g := Create(cat, rng)
	g.Fitness = 1.23456789
	g.Age = 4

	dir := t.TempDir()
	require.NoError(t, Save(dir, g))

	loaded, err := Load(filepath.Join(dir, Filename(g)))
	require.NoError(t, err)

	assert.Equal(t, g.Fitness, loaded.Fitness)
	assert.Equal(t, g.Age, loaded.Age)
	assert.Equal(t, g.UID, loaded.UID)
	assert.Equal(t, g.Assignment[catalogue.HH].Keys, loaded.Assignment[catalogue.HH].Keys)
}

func TestFilenameSortIsFitnessAscending(t *testing.T) {
	cat := testCatalogue(t)
	rng := rand.New(rand.NewSource(6))

	dir := t.TempDir()
	fitnesses := []float64{5.0, 1.0, 3.0}
	for _, f := range fitnesses {
		g := Create(cat, rng)
		g.Fitness = f
		require.NoError(t, Save(dir, g))
	}

	loaded, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.InDelta(t, 1.0, loaded[0].Fitness, 1e-9)
	assert.InDelta(t, 3.0, loaded[1].Fitness, 1e-9)
	assert.InDelta(t, 5.0, loaded[2].Fitness, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}
