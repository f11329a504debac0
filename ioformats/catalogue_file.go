package ioformats

import (
	"encoding/json"
	"fmt"

	"github.com/diamondlightsource/idsort/catalogue"
	"github.com/diamondlightsource/idsort/geom"
	"github.com/diamondlightsource/idsort/internal/iderr"
)

// catalogueDoc is the on-disk JSON shape of the magnet catalogue file
// (spec.md §6: "opaque to the core; must yield the MagnetCatalogue of
// §3"). No corpus library improves on stdlib JSON for a flat list of
// magnet records (see DESIGN.md).
type catalogueDoc struct {
	Magnets []magnetRecordDoc        `json:"magnets"`
	Flips   map[string]geom.Matrix3  `json:"flips,omitempty"`
}

type magnetRecordDoc struct {
	ID    string       `json:"id"`
	Type  string       `json:"type"`
	Field geom.Vector3 `json:"field"`
}

// EncodeCatalogue serializes every magnet in cat, plus its per-type flip
// matrices, to the catalogue file JSON.
func EncodeCatalogue(cat *catalogue.MagnetCatalogue) ([]byte, error) {
	doc := catalogueDoc{Flips: map[string]geom.Matrix3{}}
	for _, t := range catalogue.Types {
		pool := cat.Pools[t]
		for _, key := range pool.Keys() {
			mag, _ := pool.Get(key)
			doc.Magnets = append(doc.Magnets, magnetRecordDoc{ID: mag.ID, Type: string(mag.Type), Field: mag.Field})
		}
		if flip, ok := cat.FlipMatrix[t]; ok {
			doc.Flips[string(t)] = flip
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ioformats: %w: encoding catalogue: %v", iderr.ErrIOFailure, err)
	}
	return data, nil
}

// DecodeCatalogue parses a catalogue file JSON document into a validated
// MagnetCatalogue.
func DecodeCatalogue(data []byte) (*catalogue.MagnetCatalogue, error) {
	var doc catalogueDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ioformats: %w: decoding catalogue: %v", iderr.ErrInputDecode, err)
	}

	magnets := make([]catalogue.Magnet, len(doc.Magnets))
	for i, m := range doc.Magnets {
		magnets[i] = catalogue.Magnet{ID: m.ID, Type: catalogue.Type(m.Type), Field: m.Field}
	}

	flips := make(map[catalogue.Type]geom.Matrix3, len(doc.Flips))
	for t, m := range doc.Flips {
		flips[catalogue.Type(t)] = m
	}

	cat, err := catalogue.New(magnets, flips)
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}
