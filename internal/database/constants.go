package database

import "time"

// Minimum detected face size accepted by the detection import
const (
	// MinFaceWidthPx is the absolute minimum face width in pixels
	MinFaceWidthPx = 35

	// MinFaceWidthRel is the minimum face width relative to photo width (1%)
	MinFaceWidthRel = 0.01
)

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after filtering unidentified and deleted faces.
	HNSWSearchMultiplier = 3
)

// Persistence sink parameters
const (
	// SinkFlushInterval is how often failed batches are retried when no new commit arrives
	SinkFlushInterval = 2 * time.Second

	// SinkMaxBatch is the maximum number of changes written in one transaction
	SinkMaxBatch = 500

	// SinkMaxAttempts is how often a batch is retried as a whole before its
	// changes are written one by one to find the ones the backend rejects
	SinkMaxAttempts = 5
)
