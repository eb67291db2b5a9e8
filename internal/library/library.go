// Package library is the in-memory photo library: canonical records, the
// relationship index derived from them, search, and the mutation protocol that
// keeps both consistent.
package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/facette/natsort"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-library/internal/facematch"
)

// Library owns the store and the index. Readers share a read lock and see a
// consistent view; each command commits all of its store writes and index
// updates under the write lock, so a partially applied cascade is never visible.
type Library struct {
	mu    sync.RWMutex
	store *Store
	index *Index
	seq   uint64

	observers []Observer

	guard        *inflight
	validate     *validator.Validate
	newID        func() string
	beforeCommit func(kind Kind, id string)
}

// Option configures a Library.
type Option func(*Library)

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(l *Library) {
		l.observers = append(l.observers, o)
	}
}

// WithIDGenerator replaces the UUID generator used for new entities.
func WithIDGenerator(fn func() string) Option {
	return func(l *Library) {
		l.newID = fn
	}
}

// WithBeforeCommit installs a hook that runs after a command has been staged
// and before it takes the write lock. The entity is in the mutating state
// while the hook runs.
func WithBeforeCommit(fn func(kind Kind, id string)) Option {
	return func(l *Library) {
		l.beforeCommit = fn
	}
}

// New creates an empty library.
func New(opts ...Option) *Library {
	l := &Library{
		store:    NewStore(),
		index:    NewIndex(),
		guard:    newInflight(),
		validate: validator.New(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers an observer for subsequent commits.
func (l *Library) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// State reports whether a mutation of the entity is in flight.
func (l *Library) State(kind Kind, id string) MutationState {
	return l.guard.state(entityKey(kind, id))
}

// Stats holds entity counts.
type Stats struct {
	Photos  int `json:"photos"`
	Persons int `json:"persons"`
	Albums  int `json:"albums"`
	Faces   int `json:"faces"`
}

func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		Photos:  l.store.Len(KindPhoto),
		Persons: l.store.Len(KindPerson),
		Albums:  l.store.Len(KindAlbum),
		Faces:   l.store.Len(KindFace),
	}
}

func (l *Library) check(v any) error {
	if err := l.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func checkBox(b facematch.Box) error {
	if err := facematch.ValidateBox(b); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// Ordering helpers. Ids compare in natural order so "p2" sorts before "p10".

func compareIDs(a, b string) int {
	switch {
	case a == b:
		return 0
	case natsort.Compare(a, b):
		return -1
	default:
		return 1
	}
}

// comparePhotos orders by most recent capture date, then id.
func comparePhotos(a, b Photo) int {
	if c := b.TakenAt.Compare(a.TakenAt); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

func comparePersons(a, b Person) int {
	if c := cmp.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

func compareAlbums(a, b Album) int {
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// compareFaces orders faces left to right, then top to bottom.
func compareFaces(a, b Face) int {
	if c := cmp.Compare(a.Box.X, b.Box.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Box.Y, b.Box.Y); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// personWithCount fills the derived count. Callers hold at least the read lock.
func (l *Library) personWithCount(p Person) Person {
	p.PhotoCount = l.index.PersonPhotoCount(p.ID)
	return p
}

func (l *Library) albumWithCount(a Album) Album {
	a.PhotoCount = l.index.AlbumPhotoCount(a.ID)
	return a
}

// photosByID loads photos for ids and orders them. Callers hold the read lock.
func (l *Library) photosByID(ids []string) []Photo {
	out := make([]Photo, 0, len(ids))
	for _, id := range ids {
		if p, err := l.store.Photo(id); err == nil {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, comparePhotos)
	return out
}

// ListPhotos returns every photo, most recent first.
func (l *Library) ListPhotos() []Photo {
	return l.ListPhotosPage(Page{})
}

// ListPhotosPage returns one page of the photos, most recent first.
func (l *Library) ListPhotosPage(p Page) []Photo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := l.store.Photos()
	slices.SortFunc(out, comparePhotos)
	return paginate(out, p)
}

func (l *Library) GetPhoto(id string) (Photo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Photo(id)
}

// PersonsOf returns the persons linked to a photo directly or through faces.
func (l *Library) PersonsOf(photoID string) ([]Person, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.store.Has(KindPhoto, photoID) {
		return nil, notFound(KindPhoto, photoID)
	}
	ids := l.index.PersonsOf(photoID)
	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		if p, err := l.store.Person(id); err == nil {
			out = append(out, l.personWithCount(p))
		}
	}
	slices.SortFunc(out, comparePersons)
	return out, nil
}

// ListPersons returns every person ordered by display name.
func (l *Library) ListPersons() []Person {
	return l.ListPersonsPage(Page{})
}

// ListPersonsPage returns one page of the persons ordered by display name.
func (l *Library) ListPersonsPage(p Page) []Person {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := l.store.Persons()
	slices.SortFunc(out, comparePersons)
	out = paginate(out, p)
	for i := range out {
		out[i] = l.personWithCount(out[i])
	}
	return out
}

func (l *Library) GetPerson(id string) (Person, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, err := l.store.Person(id)
	if err != nil {
		return Person{}, err
	}
	return l.personWithCount(p), nil
}

// ListAlbums returns every album ordered by name.
func (l *Library) ListAlbums() []Album {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := l.store.Albums()
	for i := range out {
		out[i] = l.albumWithCount(out[i])
	}
	slices.SortFunc(out, compareAlbums)
	return out
}

func (l *Library) GetAlbum(id string) (Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, err := l.store.Album(id)
	if err != nil {
		return Album{}, err
	}
	return l.albumWithCount(a), nil
}

func (l *Library) GetFace(id string) (Face, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Face(id)
}

// GetFacesInPhoto returns the faces detected in a photo.
func (l *Library) GetFacesInPhoto(photoID string) ([]Face, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.store.Has(KindPhoto, photoID) {
		return nil, notFound(KindPhoto, photoID)
	}
	return l.facesByID(l.index.FacesOf(photoID)), nil
}

// FacesForPerson returns the faces identified as a person.
func (l *Library) FacesForPerson(personID string) ([]Face, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.store.Has(KindPerson, personID) {
		return nil, notFound(KindPerson, personID)
	}
	return l.facesByID(l.index.FacesOfPerson(personID)), nil
}

func (l *Library) facesByID(ids []string) []Face {
	out := make([]Face, 0, len(ids))
	for _, id := range ids {
		if f, err := l.store.Face(id); err == nil {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, compareFaces)
	return out
}

// Snapshot copies the whole library, each kind ordered by id.
func (l *Library) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Photos:  l.store.Photos(),
		Persons: l.store.Persons(),
		Albums:  l.store.Albums(),
		Faces:   l.store.Faces(),
	}
	for i := range s.Persons {
		s.Persons[i] = l.personWithCount(s.Persons[i])
	}
	for i := range s.Albums {
		s.Albums[i] = l.albumWithCount(s.Albums[i])
	}
	slices.SortFunc(s.Photos, func(a, b Photo) int { return compareIDs(a.ID, b.ID) })
	slices.SortFunc(s.Persons, func(a, b Person) int { return compareIDs(a.ID, b.ID) })
	slices.SortFunc(s.Albums, func(a, b Album) int { return compareIDs(a.ID, b.ID) })
	slices.SortFunc(s.Faces, func(a, b Face) int { return compareIDs(a.ID, b.ID) })
	return s
}

// Restore replaces the library content with s. Records keep their versions.
// The snapshot must be self-consistent: every reference has to resolve and
// every face box has to be valid. Observers are not sent commits for the
// restored records; those implementing Restorer get OnRestore instead.
func (l *Library) Restore(s Snapshot) error {
	store := NewStore()
	for _, p := range s.Persons {
		if p.ID == "" {
			return invalid("person without id")
		}
		if err := l.check(p); err != nil {
			return fmt.Errorf("person %q: %w", p.ID, err)
		}
		p.PhotoCount = 0
		store.persons.restore(p.clone())
	}
	for _, a := range s.Albums {
		if a.ID == "" {
			return invalid("album without id")
		}
		a.Name = strings.TrimSpace(a.Name)
		if err := l.check(a); err != nil {
			return fmt.Errorf("album %q: %w", a.ID, err)
		}
		a.PhotoCount = 0
		store.albums.restore(a.clone())
	}
	for _, p := range s.Photos {
		if p.ID == "" {
			return invalid("photo without id")
		}
		p = p.clone()
		p.Persons = normalizeIDSet(p.Persons)
		if err := l.check(p); err != nil {
			return fmt.Errorf("photo %q: %w", p.ID, err)
		}
		if err := photoRefs(store, p); err != nil {
			return fmt.Errorf("photo %q: %w", p.ID, err)
		}
		store.photos.restore(p)
	}
	for _, a := range s.Albums {
		if a.CoverPhotoID != "" && !store.Has(KindPhoto, a.CoverPhotoID) {
			return fmt.Errorf("album %q cover: %w", a.ID, notFound(KindPhoto, a.CoverPhotoID))
		}
	}
	for _, f := range s.Faces {
		if f.ID == "" {
			return invalid("face without id")
		}
		if err := l.check(f); err != nil {
			return fmt.Errorf("face %q: %w", f.ID, err)
		}
		if err := checkBox(f.Box); err != nil {
			return fmt.Errorf("face %q: %w", f.ID, err)
		}
		if err := faceRefs(store, f); err != nil {
			return fmt.Errorf("face %q: %w", f.ID, err)
		}
		store.faces.restore(f.clone())
	}

	index := BuildIndex(store)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = store
	l.index = index
	for _, o := range l.observers {
		if r, ok := o.(Restorer); ok {
			r.OnRestore(s)
		}
	}
	return nil
}

// Verify rebuilds the index from the store and compares it with the live one.
// It returns an error wrapping ErrIndexDrift on mismatch.
func (l *Library) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.Diff(BuildIndex(l.store))
}

// Reindex replaces the live index with a full rebuild from the store.
func (l *Library) Reindex() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.index = BuildIndex(l.store)
}
