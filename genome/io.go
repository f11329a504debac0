package genome

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/internal/iderr"
)

// record is the on-disk representation of a Genome.
type record struct {
	Assignment map[string]TypeAssignment `json:"assignment"`
	Fitness    float64                   `json:"fitness"`
	Age        int                       `json:"age"`
	Mutations  int                       `json:"mutations"`
	UID        string                    `json:"uid"`
}

// Filename returns the genome's persisted filename: fitness formatted as
// %1.8E so lexical sort over a directory listing yields fitness-ascending
// order, followed by uid and age (spec §4.C, §6).
func Filename(g *Genome) string {
	return fmt.Sprintf("%.8E_%s_age%06d.json", g.Fitness, g.UID, g.Age)
}

// Save writes g to dir under its canonical filename.
func Save(dir string, g *Genome) error {
	rec := record{
		Assignment: map[string]TypeAssignment{},
		Fitness:    g.Fitness,
		Age:        g.Age,
		Mutations:  g.Mutations,
		UID:        g.UID,
	}
	for t, a := range g.Assignment {
		rec.Assignment[string(t)] = *a
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("genome: %w: encoding %s: %v", iderr.ErrIOFailure, g.UID, err)
	}

	path := filepath.Join(dir, Filename(g))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("genome: %w: writing %s: %v", iderr.ErrIOFailure, path, err)
	}
	return nil
}

// Load reads a single genome file.
func Load(path string) (*Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genome: %w: reading %s: %v", iderr.ErrIOFailure, path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("genome: %w: decoding %s: %v", iderr.ErrInputDecode, path, err)
	}

	g := &Genome{
		Assignment: map[catalogue.Type]*TypeAssignment{},
		Fitness:    rec.Fitness,
		Age:        rec.Age,
		Mutations:  rec.Mutations,
		UID:        rec.UID,
	}
	for t, a := range rec.Assignment {
		cp := a
		g.Assignment[catalogue.Type(t)] = &cp
	}
	return g, nil
}

// LoadAll loads every genome file under dir, sorted by filename ascending
// (which is fitness-ascending, per Filename).
func LoadAll(dir string) ([]*Genome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("genome: %w: listing %s: %v", iderr.ErrIOFailure, dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	genomes := make([]*Genome, 0, len(names))
	for _, name := range names {
		g, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		genomes = append(genomes, g)
	}
	return genomes, nil
}
