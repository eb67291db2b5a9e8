package facematch

import (
	"fmt"
	"math"
)

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// ValidateBox checks that every component is in [0,1] and that the box does not
// extend past the right or bottom edge.
func ValidateBox(b Box) error {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || !inUnit(v) {
			return fmt.Errorf("%w: box %+v has a component outside [0,1]", ErrInvalidGeometry, b)
		}
	}
	if b.X+b.Width > 1+boxEpsilon {
		return fmt.Errorf("%w: box extends past the right edge (x+width=%g)", ErrInvalidGeometry, b.X+b.Width)
	}
	if b.Y+b.Height > 1+boxEpsilon {
		return fmt.Errorf("%w: box extends past the bottom edge (y+height=%g)", ErrInvalidGeometry, b.Y+b.Height)
	}
	return nil
}

// ValidateDisplay checks that a display size is positive and finite.
func ValidateDisplay(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: display size %gx%g", ErrInvalidGeometry, width, height)
	}
	return nil
}

// ProjectBox maps a relative box onto a display of displayWidth x displayHeight pixels.
// Out-of-range boxes are rejected, never clamped.
func ProjectBox(b Box, displayWidth, displayHeight float64) (Rect, error) {
	if err := ValidateBox(b); err != nil {
		return Rect{}, err
	}
	if err := ValidateDisplay(displayWidth, displayHeight); err != nil {
		return Rect{}, err
	}
	return Rect{
		Left:   b.X * displayWidth,
		Top:    b.Y * displayHeight,
		Width:  b.Width * displayWidth,
		Height: b.Height * displayHeight,
	}, nil
}

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}

// PixelBBoxToBox converts a detector bbox [x1, y1, x2, y2] in pixels of a
// width x height image into a relative Box. The result is validated.
func PixelBBoxToBox(bbox []float64, width, height int) (Box, error) {
	if len(bbox) != 4 {
		return Box{}, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrInvalidGeometry, len(bbox))
	}
	if width <= 0 || height <= 0 {
		return Box{}, fmt.Errorf("%w: image size %dx%d", ErrInvalidGeometry, width, height)
	}
	b := Box{
		X:      bbox[0] / float64(width),
		Y:      bbox[1] / float64(height),
		Width:  (bbox[2] - bbox[0]) / float64(width),
		Height: (bbox[3] - bbox[1]) / float64(height),
	}
	if err := ValidateBox(b); err != nil {
		return Box{}, err
	}
	return b, nil
}

// MarkerToCornerBBox converts (X, Y, W, H) to [x1, y1, x2, y2] corner format.
func MarkerToCornerBBox(x, y, w, h float64) []float64 {
	return []float64{x, y, x + w, y + h}
}

// BestOverlap returns the index of the box in existing with the highest IoU
// against b, or -1 when none reaches threshold.
func BestOverlap(b Box, existing []Box, threshold float64) (int, float64) {
	best, bestIoU := -1, 0.0
	corners := b.Corners()
	for i := range existing {
		iou := ComputeIoU(corners, existing[i].Corners())
		if iou > bestIoU {
			best, bestIoU = i, iou
		}
	}
	if best < 0 || bestIoU < threshold {
		return -1, bestIoU
	}
	return best, bestIoU
}
