package library

// record is implemented by every entity value kept in the store.
type record[T any] interface {
	entityID() string
	entityVersion() uint64
	withVersion(v uint64) T
	clone() T
}

// table holds the records of one kind. Values are copied on the way in and
// out so callers never alias stored slices.
type table[T record[T]] struct {
	kind Kind
	rows map[string]T
}

func newTable[T record[T]](kind Kind) table[T] {
	return table[T]{kind: kind, rows: make(map[string]T)}
}

func (t table[T]) put(e T) T {
	v := uint64(1)
	if old, ok := t.rows[e.entityID()]; ok {
		v = old.entityVersion() + 1
	}
	stored := e.withVersion(v)
	t.rows[stored.entityID()] = stored
	return stored.clone()
}

// restore inserts e keeping its version. Unversioned records start at 1.
func (t table[T]) restore(e T) {
	v := e.entityVersion()
	if v == 0 {
		v = 1
	}
	t.rows[e.entityID()] = e.withVersion(v)
}

func (t table[T]) get(id string) (T, error) {
	e, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, notFound(t.kind, id)
	}
	return e.clone(), nil
}

func (t table[T]) delete(id string) (T, error) {
	e, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, notFound(t.kind, id)
	}
	delete(t.rows, id)
	return e, nil
}

func (t table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func (t table[T]) list() []T {
	out := make([]T, 0, len(t.rows))
	for _, e := range t.rows {
		out = append(out, e.clone())
	}
	return out
}

// each visits stored values without copying. fn must not modify them.
func (t table[T]) each(fn func(T)) {
	for _, e := range t.rows {
		fn(e)
	}
}

// Store holds the canonical versioned records. It answers id lookups and
// unordered enumeration only; relationships live in Index.
// Store is not safe for concurrent use on its own; Library serializes access.
type Store struct {
	photos  table[Photo]
	persons table[Person]
	albums  table[Album]
	faces   table[Face]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		photos:  newTable[Photo](KindPhoto),
		persons: newTable[Person](KindPerson),
		albums:  newTable[Album](KindAlbum),
		faces:   newTable[Face](KindFace),
	}
}

// PutPhoto inserts or replaces a photo and bumps its version.
func (s *Store) PutPhoto(p Photo) Photo { return s.photos.put(p) }

// Photo returns the photo with the given id.
func (s *Store) Photo(id string) (Photo, error) { return s.photos.get(id) }

// DeletePhoto removes a photo and returns the previous record.
func (s *Store) DeletePhoto(id string) (Photo, error) { return s.photos.delete(id) }

// Photos lists all photos in no particular order.
func (s *Store) Photos() []Photo { return s.photos.list() }

func (s *Store) PutPerson(p Person) Person { return s.persons.put(p) }
func (s *Store) Person(id string) (Person, error) { return s.persons.get(id) }
func (s *Store) DeletePerson(id string) (Person, error) { return s.persons.delete(id) }
func (s *Store) Persons() []Person { return s.persons.list() }

func (s *Store) PutAlbum(a Album) Album { return s.albums.put(a) }
func (s *Store) Album(id string) (Album, error) { return s.albums.get(id) }
func (s *Store) DeleteAlbum(id string) (Album, error) { return s.albums.delete(id) }
func (s *Store) Albums() []Album { return s.albums.list() }

func (s *Store) PutFace(f Face) Face { return s.faces.put(f) }
func (s *Store) Face(id string) (Face, error) { return s.faces.get(id) }
func (s *Store) DeleteFace(id string) (Face, error) { return s.faces.delete(id) }
func (s *Store) Faces() []Face { return s.faces.list() }

// Has reports whether an entity of the given kind exists.
func (s *Store) Has(kind Kind, id string) bool {
	switch kind {
	case KindPhoto:
		return s.photos.has(id)
	case KindPerson:
		return s.persons.has(id)
	case KindAlbum:
		return s.albums.has(id)
	case KindFace:
		return s.faces.has(id)
	}
	return false
}

// Len returns the number of records of the given kind.
func (s *Store) Len(kind Kind) int {
	switch kind {
	case KindPhoto:
		return len(s.photos.rows)
	case KindPerson:
		return len(s.persons.rows)
	case KindAlbum:
		return len(s.albums.rows)
	case KindFace:
		return len(s.faces.rows)
	}
	return 0
}
