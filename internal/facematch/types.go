// Package facematch provides face box geometry shared between the library core, CLI and web handlers.
package facematch

import "errors"

// ErrInvalidGeometry is returned for boxes outside the unit square and for unusable display sizes.
var ErrInvalidGeometry = errors.New("invalid geometry")

// boxEpsilon absorbs float rounding when checking x+width <= 1 and y+height <= 1.
const boxEpsilon = 1e-9

// Box is a face region relative to the photo, every field in [0,1].
type Box struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is a Box projected onto a displayed image, in pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Corners returns the box as [x1, y1, x2, y2].
func (b Box) Corners() []float64 {
	return MarkerToCornerBBox(b.X, b.Y, b.Width, b.Height)
}
