package ioformats

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diamondlightsource/idsort/field"
	"github.com/diamondlightsource/idsort/internal/iderr"
)

// lookupIndex is the JSON sidecar listing the shape and blob file for
// every beam's lookup tensor, standing in for the HDF5 keyed dataset
// store of the original implementation (no HDF5 binding exists anywhere
// in the retrieved corpus; see DESIGN.md).
type lookupIndex struct {
	Entries []lookupIndexEntry `json:"entries"`
}

type lookupIndexEntry struct {
	Beam   string `json:"beam"`
	File   string `json:"file"`
	NX     int    `json:"nx"`
	NZ     int    `json:"nz"`
	NS     int    `json:"ns"`
	NSlots int    `json:"nslots"`
}

const lookupIndexFilename = "index.json"

// SaveLookupStore writes one gob-encoded blob per beam's lookup tensor
// data plus an index.json describing shapes and filenames, under dir.
func SaveLookupStore(dir string, lookups map[string]*field.LookupTensor) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioformats: %w: creating lookup store dir %q: %v", iderr.ErrIOFailure, dir, err)
	}

	var idx lookupIndex
	for beam, l := range lookups {
		file := blobFilename(beam)

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(l.Dense().Data().([]float64)); err != nil {
			return fmt.Errorf("ioformats: %w: encoding lookup tensor for beam %q: %v", iderr.ErrIOFailure, beam, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("ioformats: %w: writing lookup blob %q: %v", iderr.ErrIOFailure, file, err)
		}

		idx.Entries = append(idx.Entries, lookupIndexEntry{
			Beam: beam, File: file, NX: l.NX, NZ: l.NZ, NS: l.NS, NSlots: l.NSlots,
		})
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("ioformats: %w: encoding lookup store index: %v", iderr.ErrIOFailure, err)
	}
	if err := os.WriteFile(filepath.Join(dir, lookupIndexFilename), data, 0o644); err != nil {
		return fmt.Errorf("ioformats: %w: writing lookup store index: %v", iderr.ErrIOFailure, err)
	}
	return nil
}

// LoadLookupStore reads the index and every beam blob written by
// SaveLookupStore, returning one LookupTensor per beam name.
func LoadLookupStore(dir string) (map[string]*field.LookupTensor, error) {
	data, err := os.ReadFile(filepath.Join(dir, lookupIndexFilename))
	if err != nil {
		return nil, fmt.Errorf("ioformats: %w: reading lookup store index: %v", iderr.ErrIOFailure, err)
	}

	var idx lookupIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("ioformats: %w: decoding lookup store index: %v", iderr.ErrInputDecode, err)
	}

	out := make(map[string]*field.LookupTensor, len(idx.Entries))
	for _, entry := range idx.Entries {
		blob, err := os.ReadFile(filepath.Join(dir, entry.File))
		if err != nil {
			return nil, fmt.Errorf("ioformats: %w: reading lookup blob %q: %v", iderr.ErrIOFailure, entry.File, err)
		}

		var flat []float64
		if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&flat); err != nil {
			return nil, fmt.Errorf("ioformats: %w: decoding lookup blob %q: %v", iderr.ErrInputDecode, entry.File, err)
		}

		out[entry.Beam] = field.NewLookupTensorFromData(entry.NX, entry.NZ, entry.NS, entry.NSlots, flat)
	}
	return out, nil
}

// blobFilename derives a filesystem-safe filename from a beam name (which
// may contain spaces, e.g. "Top Beam").
func blobFilename(beam string) string {
	return strings.ReplaceAll(beam, " ", "_") + ".gob"
}
