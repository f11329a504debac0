// Package ioformats implements the concrete, runnable codecs spec.md §6
// leaves as opaque schemas: the ID descriptor, the magnet catalogue file,
// the lookup tensor store, and genome files (genome files' codec already
// lives in package genome; this package re-exposes nothing there).
//
// The original implementation reads and writes plain JSON
// (json.load/json.dump) for the ID descriptor and an HDF5 file (h5py) for
// the lookup tensor. No HDF5 binding exists anywhere in the retrieved
// corpus, so the lookup tensor store here is a directory of
// gob-encoded blobs plus a JSON index (see lookup_store.go); the ID
// descriptor and catalogue file stay plain JSON, which is what the
// original does too.
package ioformats

import (
	"encoding/json"
	"fmt"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/internal/iderr"
	"github.com/diamondlightsource/idsort/layout"
)

// idDescriptorDoc is the on-disk JSON shape of spec.md §6's ID descriptor.
type idDescriptorDoc struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Gap           float64 `json:"gap"`
	Interstice    float64 `json:"interstice"`
	Periods       int     `json:"periods"`
	NumberOfBeams int     `json:"number_of_beams"`
	PeriodLength  float64 `json:"period_length"`
	SStep         float64 `json:"sstep"`
	SMin          float64 `json:"smin"`
	SMax          float64 `json:"smax"`

	XMin  float64 `json:"xmin"`
	XMax  float64 `json:"xmax"`
	XStep float64 `json:"xstep"`
	ZMin  float64 `json:"zmin"`
	ZMax  float64 `json:"zmax"`
	ZStep float64 `json:"zstep"`

	// APPLE-II-only fields, omitted for the other two families.
	EndGap     float64 `json:"end_gap,omitempty"`
	PhasingGap float64 `json:"phasing_gap,omitempty"`
	ClampCut   float64 `json:"clampcut,omitempty"`

	Beams []beamDoc `json:"beams"`
}

type beamDoc struct {
	Name string   `json:"name"`
	Mags []magDoc `json:"mags"`
}

type magDoc struct {
	Type            string       `json:"type"`
	Position        geom.Vector3 `json:"position"`
	DirectionMatrix geom.Matrix3 `json:"direction_matrix"`
	FlipMatrix      geom.Matrix3 `json:"flip_matrix"`
	Dimensions      geom.Vector3 `json:"dimensions"`
}

// EncodeInfo serializes a layout.Info to the ID descriptor JSON of
// spec.md §6.
func EncodeInfo(info *layout.Info) ([]byte, error) {
	doc := idDescriptorDoc{
		Name:          info.Name,
		Type:          string(info.Type),
		Gap:           info.Gap,
		Interstice:    info.Interstice,
		Periods:       info.Periods,
		NumberOfBeams: info.NumberOfBeams,
		PeriodLength:  info.PeriodLength,
		SStep:         info.SStep,
		SMin:          info.SMin,
		SMax:          info.SMax,
		XMin:          info.XMin,
		XMax:          info.XMax,
		XStep:         info.XStep,
		ZMin:          info.ZMin,
		ZMax:          info.ZMax,
		ZStep:         info.ZStep,
		EndGap:        info.EndGap,
		PhasingGap:    info.PhasingGap,
		ClampCut:      info.ClampCut,
	}

	for _, beam := range info.Beams {
		bd := beamDoc{Name: beam.Name, Mags: make([]magDoc, len(beam.Slots))}
		for i, slot := range beam.Slots {
			bd.Mags[i] = magDoc{
				Type:            string(slot.Type),
				Position:        slot.Position,
				DirectionMatrix: slot.Direction,
				FlipMatrix:      slot.Flip,
				Dimensions:      slot.Dimensions,
			}
		}
		doc.Beams = append(doc.Beams, bd)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ioformats: %w: encoding id descriptor: %v", iderr.ErrIOFailure, err)
	}
	return data, nil
}

// DecodeInfo parses an ID descriptor JSON document back into a
// layout.Info, re-running layout.Validate so a hand-edited or corrupted
// document is rejected the same way a freshly generated one would be
// (spec.md §8 "Layout → JSON → layout reproduces bit-identical slot
// data").
func DecodeInfo(data []byte) (*layout.Info, error) {
	var doc idDescriptorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ioformats: %w: decoding id descriptor: %v", iderr.ErrInputDecode, err)
	}

	info := &layout.Info{
		Name:          doc.Name,
		Type:          layout.Family(doc.Type),
		Gap:           doc.Gap,
		Interstice:    doc.Interstice,
		Periods:       doc.Periods,
		NumberOfBeams: doc.NumberOfBeams,
		PeriodLength:  doc.PeriodLength,
		SStep:         doc.SStep,
		SMin:          doc.SMin,
		SMax:          doc.SMax,
		XMin:          doc.XMin,
		XMax:          doc.XMax,
		XStep:         doc.XStep,
		ZMin:          doc.ZMin,
		ZMax:          doc.ZMax,
		ZStep:         doc.ZStep,
		EndGap:        doc.EndGap,
		PhasingGap:    doc.PhasingGap,
		ClampCut:      doc.ClampCut,
	}

	for _, bd := range doc.Beams {
		beam := layout.Beam{Name: bd.Name, Slots: make([]layout.Slot, len(bd.Mags))}
		for i, md := range bd.Mags {
			beam.Slots[i] = layout.Slot{
				Type:       catalogue.Type(md.Type),
				Position:   md.Position,
				Direction:  md.DirectionMatrix,
				Flip:       md.FlipMatrix,
				Dimensions: md.Dimensions,
			}
		}
		info.Beams = append(info.Beams, beam)
	}

	if err := layout.Validate(info); err != nil {
		return nil, err
	}
	return info, nil
}
