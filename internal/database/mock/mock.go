// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/photo-library/internal/library"
)

// MockRepository is an in-memory implementation of database.Repository
type MockRepository struct {
	mu      sync.RWMutex
	photos  map[string]library.Photo
	persons map[string]library.Person
	albums  map[string]library.Album
	faces   map[string]library.Face

	// Error injection
	LoadError   error
	CountsError error
	applyError  error
	rejectFn    func(library.Change) error
	SaveError   error

	// Track calls
	ApplyCalls [][]library.Change
	SaveCalls  int
}

// NewMockRepository creates a new empty mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		photos:  make(map[string]library.Photo),
		persons: make(map[string]library.Person),
		albums:  make(map[string]library.Album),
		faces:   make(map[string]library.Face),
	}
}

// SetApplyError makes ApplyChanges fail with err until it is reset with nil
func (m *MockRepository) SetApplyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyError = err
}

// SetRejectFunc makes ApplyChanges fail as a whole when fn returns an error
// for any change of the call
func (m *MockRepository) SetRejectFunc(fn func(library.Change) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectFn = fn
}

// Seed stores a snapshot directly, bypassing call tracking
func (m *MockRepository) Seed(snap library.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(snap)
}

func (m *MockRepository) replace(snap library.Snapshot) {
	m.photos = make(map[string]library.Photo, len(snap.Photos))
	m.persons = make(map[string]library.Person, len(snap.Persons))
	m.albums = make(map[string]library.Album, len(snap.Albums))
	m.faces = make(map[string]library.Face, len(snap.Faces))
	for _, p := range snap.Photos {
		m.photos[p.ID] = p
	}
	for _, p := range snap.Persons {
		m.persons[p.ID] = p
	}
	for _, a := range snap.Albums {
		m.albums[a.ID] = a
	}
	for _, f := range snap.Faces {
		m.faces[f.ID] = f
	}
}

// LoadSnapshot returns the stored records ordered by id
func (m *MockRepository) LoadSnapshot(ctx context.Context) (library.Snapshot, error) {
	if m.LoadError != nil {
		return library.Snapshot{}, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := library.Snapshot{
		Photos:  sortedValues(m.photos),
		Persons: sortedValues(m.persons),
		Albums:  sortedValues(m.albums),
		Faces:   sortedValues(m.faces),
	}
	return snap, nil
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Counts returns the number of stored records per kind
func (m *MockRepository) Counts(ctx context.Context) (library.Stats, error) {
	if m.CountsError != nil {
		return library.Stats{}, m.CountsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return library.Stats{
		Photos:  len(m.photos),
		Persons: len(m.persons),
		Albums:  len(m.albums),
		Faces:   len(m.faces),
	}, nil
}

// ApplyChanges applies changes in order
func (m *MockRepository) ApplyChanges(ctx context.Context, changes []library.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applyError != nil {
		return m.applyError
	}
	if m.rejectFn != nil {
		for _, ch := range changes {
			if err := m.rejectFn(ch); err != nil {
				return err
			}
		}
	}
	m.ApplyCalls = append(m.ApplyCalls, slices.Clone(changes))

	for _, ch := range changes {
		switch after := ch.After.(type) {
		case library.Photo:
			m.photos[after.ID] = after
		case library.Person:
			m.persons[after.ID] = after
		case library.Album:
			m.albums[after.ID] = after
		case library.Face:
			m.faces[after.ID] = after
		case nil:
			switch ch.Kind {
			case library.KindPhoto:
				delete(m.photos, ch.ID)
			case library.KindPerson:
				delete(m.persons, ch.ID)
			case library.KindAlbum:
				delete(m.albums, ch.ID)
			case library.KindFace:
				delete(m.faces, ch.ID)
			}
		}
	}
	return nil
}

// SaveSnapshot replaces the stored records
func (m *MockRepository) SaveSnapshot(ctx context.Context, snap library.Snapshot, progress func()) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	m.replace(snap)
	if progress != nil {
		for range len(snap.Photos) + len(snap.Persons) + len(snap.Albums) + len(snap.Faces) {
			progress()
		}
	}
	return nil
}

// ApplyCallCount returns how many successful ApplyChanges calls were made
func (m *MockRepository) ApplyCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ApplyCalls)
}
