// Package constants provides shared constants used across the codebase.
package constants

// Face matching constants
const (
	// IoUThreshold is the minimum Intersection over Union at which an imported
	// detection is treated as a duplicate of an existing face
	IoUThreshold = 0.1

	// DefaultDistanceThreshold is the default maximum cosine distance for face suggestions
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5

	// MaxSuggestLimit caps the number of face suggestions a client can request
	MaxSuggestLimit = 50
)

// Overlay constants
const (
	// MaxDisplayDimension is the largest display width or height accepted by the overlay endpoint
	MaxDisplayDimension = 100000
)

// Listing constants
const (
	// DefaultPageLimit is the page size used when only a page number is given
	DefaultPageLimit = 100

	// MaxPageLimit caps the page size a client can request
	MaxPageLimit = 1000
)
