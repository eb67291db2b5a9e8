// Package seed reads and writes library snapshot files in YAML (JSON is accepted as a YAML subset).
package seed

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-library/internal/library"
)

// Decode parses a snapshot. Unknown fields are rejected.
func Decode(r io.Reader) (library.Snapshot, error) {
	var snap library.Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if err == io.EOF {
			return library.Snapshot{}, nil
		}
		return library.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Load reads a snapshot file.
func Load(path string) (library.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return library.Snapshot{}, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes a snapshot as YAML.
func Encode(w io.Writer, snap library.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return enc.Close()
}

// Save writes a snapshot file, replacing any existing one.
func Save(path string, snap library.Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing seed file: %w", err)
	}
	return nil
}

// Hydrate loads a seed file into lib.
func Hydrate(lib *library.Library, path string) error {
	snap, err := Load(path)
	if err != nil {
		return err
	}
	if err := lib.Restore(snap); err != nil {
		return fmt.Errorf("restoring %s: %w", path, err)
	}
	return nil
}
