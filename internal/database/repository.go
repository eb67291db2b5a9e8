package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/photo-library/internal/library"
)

// ErrRejected marks a write the backend will never accept, such as a
// constraint violation. Retrying it cannot succeed.
var ErrRejected = errors.New("rejected by the database")

// SnapshotReader loads the persisted library content.
type SnapshotReader interface {
	// LoadSnapshot returns every persisted record
	LoadSnapshot(ctx context.Context) (library.Snapshot, error)
	// Counts returns the number of persisted records per kind
	Counts(ctx context.Context) (library.Stats, error)
}

// CommitWriter persists committed library changes.
type CommitWriter interface {
	// ApplyChanges writes the changes of one or more commits in order, in a single transaction
	ApplyChanges(ctx context.Context, changes []library.Change) error
	// SaveSnapshot replaces all persisted records with snap.
	// progress, if not nil, is called once per written record.
	SaveSnapshot(ctx context.Context, snap library.Snapshot, progress func()) error
}

// Repository is the full persistence backend.
type Repository interface {
	SnapshotReader
	CommitWriter
}
