// Command optimize runs the clonal-selection evolutionary driver of
// spec.md §4.F against a prebuilt layout, lookup tensor store and magnet
// catalogue (spec.md §6 "optimize").
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/diamondlightsource/idsort/cluster"
	"github.com/diamondlightsource/idsort/evolve"
	"github.com/diamondlightsource/idsort/internal/cliconfig"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/internal/obslog"
	"github.com/diamondlightsource/idsort/ioformats"
	"github.com/diamondlightsource/idsort/workpool"
)

type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }

func main() {
	configPath := flag.String("config", "", "optional YAML run-config; CLI flags override its values")

	info := flag.String("info", "", "path to the ID descriptor JSON")
	lookup := flag.String("lookup", "", "path to the lookup tensor store directory")
	magnets := flag.String("magnets", "", "path to the magnet catalogue file")
	setup := flag.Int("setup", 4, "population size per rank")
	maxAge := flag.Int("max_age", 1000, "drop genomes with age >= max_age")
	paramC := flag.Float64("param_c", 10, "mutation-count parameter c")
	paramE := flag.Float64("param_e", 0, "initial hypermutation target e*")
	paramScale := flag.Float64("param_scale", 10, "mutation-count parameter scale")
	iterations := flag.Int("iterations", 100, "number of evolutionary iterations")
	restart := flag.Bool("restart", false, "restart-load genomes from run_directory instead of creating fresh ones")
	singlethreaded := flag.Bool("singlethreaded", false, "disable the intra-node worker pool")
	seed := flag.Bool("seed", false, "seed the RNG deterministically from seed_value + rank")
	seedValue := flag.Int64("seed_value", 0, "base RNG seed, combined with rank when --seed is set")
	natsURL := flag.String("nats_url", "", "NATS server URL(s); empty runs single-node (cluster.Local)")
	rank := flag.Int("rank", 0, "this node's rank")
	commSize := flag.Int("comm_size", 1, "total number of participating nodes")
	runID := flag.String("run_id", "idsort", "subject namespace for the NATS exchanger")
	var verbosity countFlag
	flag.Var(&verbosity, "v", "increase verbosity (repeatable)")

	flag.Parse()
	obslog.SetVerbosity(int(verbosity))

	cfg := cliconfig.OptimizeConfig{
		Info: *info, Lookup: *lookup, Magnets: *magnets,
		Setup: *setup, MaxAge: *maxAge, ParamC: *paramC, ParamE: *paramE, ParamScale: *paramScale,
		Iterations: *iterations, Restart: *restart, Singlethreaded: *singlethreaded,
		Seed: *seed, SeedValue: *seedValue,
		NatsURL: *natsURL, Rank: *rank, CommSize: *commSize, RunID: *runID,
	}

	if *configPath != "" {
		loaded, err := cliconfig.Load(*configPath)
		if err != nil {
			fail(err)
		}
		visited := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { visited[f.Name] = true })
		merged := *loaded
		overrideFromFlags(&merged, cfg, visited)
		cfg = merged
	}

	args := flag.Args()
	if len(args) < 1 {
		fail(fmt.Errorf("optimize: %w: missing run_directory", iderr.ErrInputDecode))
	}
	runDir := args[0]

	infoData, err := os.ReadFile(cfg.Info)
	if err != nil {
		fail(fmt.Errorf("optimize: %w: reading %q: %v", iderr.ErrIOFailure, cfg.Info, err))
	}
	deviceInfo, err := ioformats.DecodeInfo(infoData)
	if err != nil {
		fail(err)
	}

	magnetData, err := os.ReadFile(cfg.Magnets)
	if err != nil {
		fail(fmt.Errorf("optimize: %w: reading %q: %v", iderr.ErrIOFailure, cfg.Magnets, err))
	}
	cat, err := ioformats.DecodeCatalogue(magnetData)
	if err != nil {
		fail(err)
	}

	lookups, err := ioformats.LoadLookupStore(cfg.Lookup)
	if err != nil {
		fail(err)
	}

	var pool *workpool.Pool
	if !cfg.Singlethreaded {
		pool = &workpool.Pool{Size: runtime.NumCPU()}
		if err := pool.Init(); err != nil {
			fail(err)
		}
		defer pool.Close()
	}

	evaluator, err := evolve.NewEvaluator(deviceInfo, cat, lookups, pool)
	if err != nil {
		fail(err)
	}

	var exchanger cluster.Exchanger
	if cfg.NatsURL != "" {
		n, err := cluster.NewNATS(cfg.NatsURL, cfg.Rank, cfg.CommSize, cfg.RunID)
		if err != nil {
			fail(err)
		}
		defer n.Close()
		exchanger = n
	} else {
		exchanger = cluster.Local{}
		cfg.CommSize = 1
	}

	var seedVal int64
	if cfg.Seed {
		seedVal = cfg.SeedValue + int64(cfg.Rank)
	} else {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	pop := &evolve.Population{
		Options: evolve.Options{
			Setup:      cfg.Setup,
			MaxAge:     cfg.MaxAge,
			ParamC:     cfg.ParamC,
			ParamE:     cfg.ParamE,
			ParamScale: cfg.ParamScale,
			Iterations: cfg.Iterations,
			Rank:       cfg.Rank,
			CommSize:   cfg.CommSize,
		},
		Evaluator: evaluator,
		Exchanger: exchanger,
		RNG:       rng,
	}

	if err := pop.Initialize(cat, runDir, cfg.Restart); err != nil {
		fail(err)
	}

	if err := pop.Run(context.Background(), runDir); err != nil {
		fail(err)
	}

	obslog.Log.Info().Int("iterations", cfg.Iterations).Msg("optimize run complete")
}

// overrideFromFlags copies every field the user explicitly set on the
// command line from flagCfg into base, leaving file-sourced values in
// place for everything else (spec.md §4.H "CLI flags override file
// values").
func overrideFromFlags(base *cliconfig.OptimizeConfig, flagCfg cliconfig.OptimizeConfig, visited map[string]bool) {
	if visited["info"] {
		base.Info = flagCfg.Info
	}
	if visited["lookup"] {
		base.Lookup = flagCfg.Lookup
	}
	if visited["magnets"] {
		base.Magnets = flagCfg.Magnets
	}
	if visited["setup"] {
		base.Setup = flagCfg.Setup
	}
	if visited["max_age"] {
		base.MaxAge = flagCfg.MaxAge
	}
	if visited["param_c"] {
		base.ParamC = flagCfg.ParamC
	}
	if visited["param_e"] {
		base.ParamE = flagCfg.ParamE
	}
	if visited["param_scale"] {
		base.ParamScale = flagCfg.ParamScale
	}
	if visited["iterations"] {
		base.Iterations = flagCfg.Iterations
	}
	if visited["restart"] {
		base.Restart = flagCfg.Restart
	}
	if visited["singlethreaded"] {
		base.Singlethreaded = flagCfg.Singlethreaded
	}
	if visited["seed"] {
		base.Seed = flagCfg.Seed
	}
	if visited["seed_value"] {
		base.SeedValue = flagCfg.SeedValue
	}
	if visited["nats_url"] {
		base.NatsURL = flagCfg.NatsURL
	}
	if visited["rank"] {
		base.Rank = flagCfg.Rank
	}
	if visited["comm_size"] {
		base.CommSize = flagCfg.CommSize
	}
	if visited["run_id"] {
		base.RunID = flagCfg.RunID
	}
}

func fail(err error) {
	obslog.Log.Error().Err(err).Msg("optimize failed")
	os.Exit(iderr.ExitCode(err))
}
