package seed

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

// Detection is one face found by an external detector, in image pixels.
type Detection struct {
	PhotoID   string    `yaml:"photo_id"`
	Width     int       `yaml:"width"`
	Height    int       `yaml:"height"`
	BBox      []float64 `yaml:"bbox"` // [x1, y1, x2, y2]
	Score     float64   `yaml:"score"`
	PersonID  string    `yaml:"person_id,omitempty"`
	Embedding []float32 `yaml:"embedding,omitempty"`
}

// DetectionResult summarizes an ingest run.
type DetectionResult struct {
	Added      int
	Duplicates int
	TooSmall   int
}

// DecodeDetections parses a YAML list of detections.
func DecodeDetections(r io.Reader) ([]Detection, error) {
	var dets []Detection
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&dets); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding detections: %w", err)
	}
	return dets, nil
}

// LoadDetections reads a detections file.
func LoadDetections(path string) ([]Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening detections file: %w", err)
	}
	defer f.Close()
	return DecodeDetections(f)
}

// tooSmall reports whether a detection is below the minimum face width,
// either in pixels or relative to the image width.
func tooSmall(d Detection) bool {
	if len(d.BBox) != 4 || d.Width <= 0 {
		return false
	}
	w := d.BBox[2] - d.BBox[0]
	return w < database.MinFaceWidthPx || w/float64(d.Width) < database.MinFaceWidthRel
}

// ApplyDetections adds detections to lib as faces. Detections overlapping an
// existing face of the same photo are skipped, as are faces too small to be
// useful. progress, if not nil, is called once per detection.
func ApplyDetections(lib *library.Library, dets []Detection, progress func()) (DetectionResult, error) {
	var res DetectionResult
	for i, d := range dets {
		if progress != nil {
			progress()
		}
		if tooSmall(d) {
			res.TooSmall++
			continue
		}

		box, err := facematch.PixelBBoxToBox(d.BBox, d.Width, d.Height)
		if err != nil {
			return res, fmt.Errorf("detection %d (photo %s): %w", i, d.PhotoID, err)
		}

		existing, err := lib.GetFacesInPhoto(d.PhotoID)
		if err != nil {
			return res, fmt.Errorf("detection %d: %w", i, err)
		}
		boxes := make([]facematch.Box, len(existing))
		for j, f := range existing {
			boxes[j] = f.Box
		}
		if idx, _ := facematch.BestOverlap(box, boxes, constants.IoUThreshold); idx >= 0 {
			res.Duplicates++
			continue
		}

		_, err = lib.CreateFace(library.Face{
			PhotoID:   d.PhotoID,
			PersonID:  d.PersonID,
			Box:       box,
			Score:     d.Score,
			Embedding: d.Embedding,
		})
		if err != nil {
			return res, fmt.Errorf("detection %d (photo %s): %w", i, d.PhotoID, err)
		}
		res.Added++
	}
	return res, nil
}
