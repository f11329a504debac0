// Command layout generates an ID descriptor JSON document from device
// geometry flags (spec.md §6 "layout").
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/internal/obslog"
	"github.com/diamondlightsource/idsort/ioformats"
	"github.com/diamondlightsource/idsort/layout"
)

// triple is a flag.Value for the three-component dims/range flags
// (--fullmagdims, -x, ...), parsed as "a,b,c".
type triple struct {
	v *[3]float64
}

func (t *triple) String() string {
	if t.v == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g", t.v[0], t.v[1], t.v[2])
}

func (t *triple) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("expected 3 comma-separated values, got %q", s)
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = f
	}
	*t.v = out
	return nil
}

// countFlag implements a repeatable boolean flag (`-v -v -v`) used for
// verbosity, the same convention the teacher's CLI entry points use.
type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }
func (c *countFlag) Set(string) error {
	*c++
	return nil
}
func (c *countFlag) IsBoolFlag() bool { return true }

func main() {
	var full, ve, he, ht, pole [3]float64
	var xrange, zrange [3]float64
	var verbosity countFlag

	flag.Var(&triple{&full}, "fullmagdims", "full magnet dimensions x,z,s")
	flag.Var(&triple{&ve}, "vemagdims", "VE magnet dimensions x,z,s")
	flag.Var(&triple{&he}, "hemagdims", "HE magnet dimensions x,z,s")
	flag.Var(&triple{&ht}, "htmagdims", "HT magnet dimensions x,z,s")
	flag.Var(&triple{&pole}, "poledims", "pole dimensions x,z,s")
	flag.Var(&triple{&xrange}, "x", "xmin,xmax,xstep")
	flag.Var(&triple{&zrange}, "z", "zmin,zmax,zstep")
	flag.Var(&verbosity, "v", "increase verbosity (repeatable)")

	periods := flag.Int("periods", 1, "number of magnetic periods")
	interstice := flag.Float64("interstice", 0, "interstice gap between magnets")
	gap := flag.Float64("gap", 0, "magnet gap")
	deviceType := flag.String("type", string(layout.HybridSymmetric), "device family: Hybrid_Symmetric, PPM_AntiSymmetric, APPLE_Symmetric")
	endGapSym := flag.Float64("endgapsym", 0, "APPLE-II end gap (symmetric)")
	terminalGapSymHyb := flag.Float64("terminalgapsymhyb", 0, "Hybrid terminal gap (symmetric)")
	phasingGap := flag.Float64("phasinggap", 0, "APPLE-II phasing gap")
	clampCut := flag.Float64("clampcut", 0, "APPLE-II clamp cut")
	steps := flag.Int("steps", 4, "S-axis sub-steps per quarter period")
	outputPath := flag.String("output_path", "", "output path (overrides the positional argument)")

	flag.Parse()
	obslog.SetVerbosity(int(verbosity))

	out := *outputPath
	if out == "" {
		args := flag.Args()
		if len(args) < 1 {
			fail(fmt.Errorf("layout: %w: missing output_path", iderr.ErrInputDecode))
		}
		out = args[0]
	}

	params := layout.Params{
		Family:            layout.Family(*deviceType),
		Periods:           *periods,
		Dims:              layout.MagDims{Full: full, VE: ve, HE: he, HT: ht, Pole: pole},
		Interstice:        *interstice,
		Gap:               *gap,
		EndGapSym:         *endGapSym,
		TerminalGapSymHyb: *terminalGapSymHyb,
		PhasingGap:        *phasingGap,
		ClampCut:          *clampCut,
		XMin:              xrange[0],
		XMax:              xrange[1],
		XStep:             xrange[2],
		ZMin:              zrange[0],
		ZMax:              zrange[1],
		ZStep:             zrange[2],
		Steps:             *steps,
	}

	info, err := layout.Generate(params)
	if err != nil {
		fail(err)
	}

	data, err := ioformats.EncodeInfo(info)
	if err != nil {
		fail(err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		fail(fmt.Errorf("layout: %w: writing %q: %v", iderr.ErrIOFailure, out, err))
	}

	obslog.Log.Info().Str("output", out).Int("beams", len(info.Beams)).Str("type", string(info.Type)).Msg("layout written")
}

func fail(err error) {
	obslog.Log.Error().Err(err).Msg("layout failed")
	os.Exit(iderr.ExitCode(err))
}
