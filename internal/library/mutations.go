package library

import (
	"slices"
	"strings"
)

// txn collects the writes of one command while the write lock is held. Every
// write goes to the store and the index together.
type txn struct {
	l       *Library
	changes []Change
}

func (t *txn) record(op Op, kind Kind, id string, before, after any) {
	t.changes = append(t.changes, Change{Op: op, Kind: kind, ID: id, Before: before, After: after})
}

func opFor(before any) Op {
	if before == nil {
		return OpCreate
	}
	return OpUpdate
}

func (t *txn) putPhoto(before *Photo, p Photo) Photo {
	saved := t.l.store.PutPhoto(p)
	t.l.index.ApplyPhoto(before, &saved)
	var b any
	if before != nil {
		b = *before
	}
	t.record(opFor(b), KindPhoto, saved.ID, b, saved.clone())
	return saved
}

func (t *txn) deletePhoto(id string) (Photo, error) {
	prev, err := t.l.store.DeletePhoto(id)
	if err != nil {
		return Photo{}, err
	}
	t.l.index.ApplyPhoto(&prev, nil)
	t.record(OpDelete, KindPhoto, id, prev.clone(), nil)
	return prev, nil
}

func (t *txn) putPerson(before *Person, p Person) Person {
	saved := t.l.store.PutPerson(p)
	var b any
	if before != nil {
		b = *before
	}
	t.record(opFor(b), KindPerson, saved.ID, b, saved)
	return saved
}

func (t *txn) deletePerson(id string) (Person, error) {
	prev, err := t.l.store.DeletePerson(id)
	if err != nil {
		return Person{}, err
	}
	t.record(OpDelete, KindPerson, id, prev, nil)
	return prev, nil
}

func (t *txn) putAlbum(before *Album, a Album) Album {
	saved := t.l.store.PutAlbum(a)
	var b any
	if before != nil {
		b = *before
	}
	t.record(opFor(b), KindAlbum, saved.ID, b, saved)
	return saved
}

func (t *txn) deleteAlbum(id string) (Album, error) {
	prev, err := t.l.store.DeleteAlbum(id)
	if err != nil {
		return Album{}, err
	}
	t.record(OpDelete, KindAlbum, id, prev, nil)
	return prev, nil
}

func (t *txn) putFace(before *Face, f Face) Face {
	saved := t.l.store.PutFace(f)
	t.l.index.ApplyFace(before, &saved)
	var b any
	if before != nil {
		b = *before
	}
	t.record(opFor(b), KindFace, saved.ID, b, saved.clone())
	return saved
}

func (t *txn) deleteFace(id string) (Face, error) {
	prev, err := t.l.store.DeleteFace(id)
	if err != nil {
		return Face{}, err
	}
	t.l.index.ApplyFace(&prev, nil)
	t.record(OpDelete, KindFace, id, prev.clone(), nil)
	return prev, nil
}

// commit runs fn under the write lock and publishes the recorded changes.
// fn must do all of its checks before its first write.
func (l *Library) commit(fn func(t *txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &txn{l: l}
	if err := fn(t); err != nil {
		return err
	}
	if len(t.changes) == 0 {
		return nil
	}
	l.seq++
	c := Commit{Seq: l.seq, Changes: t.changes}
	for _, o := range l.observers {
		o.OnCommit(c)
	}
	return nil
}

// begin moves an entity to the mutating state.
func (l *Library) begin(kind Kind, id string) (func(), error) {
	return l.guard.acquire(entityKey(kind, id))
}

// targets lists the entities a command rewrites besides its root.
type targets struct {
	photos []string
	albums []string
	faces  []string
}

func (c targets) keys(kind Kind, id string) []string {
	keys := []string{entityKey(kind, id)}
	for _, id := range c.photos {
		keys = append(keys, entityKey(KindPhoto, id))
	}
	for _, id := range c.albums {
		keys = append(keys, entityKey(KindAlbum, id))
	}
	for _, id := range c.faces {
		keys = append(keys, entityKey(KindFace, id))
	}
	return keys
}

func (c targets) equal(o targets) bool {
	return slices.Equal(c.photos, o.photos) && slices.Equal(c.albums, o.albums) && slices.Equal(c.faces, o.faces)
}

// beginMany plans the targets of a multi-entity command under the read lock
// and moves the root and every target to the mutating state at once. plan
// must return sorted ids so a later replan can be compared.
func (l *Library) beginMany(kind Kind, id string, plan func() (targets, error)) (func(), targets, error) {
	l.mu.RLock()
	planned, err := plan()
	l.mu.RUnlock()
	if err != nil {
		return nil, targets{}, err
	}
	release, err := l.guard.acquire(planned.keys(kind, id)...)
	if err != nil {
		return nil, targets{}, err
	}
	return release, planned, nil
}

// replan fails with ErrConflict if the targets of a command changed between
// staging and commit. Callers hold the write lock.
func replan(kind Kind, id string, planned targets, plan func() (targets, error)) error {
	now, err := plan()
	if err != nil {
		return err
	}
	if !now.equal(planned) {
		return conflict(kind, id, "related entities changed while the mutation was in flight")
	}
	return nil
}

func (l *Library) staged(kind Kind, id string) {
	if l.beforeCommit != nil {
		l.beforeCommit(kind, id)
	}
}

// current reads the committed version of an entity under the read lock.
func current[T any](l *Library, get func(*Store, string) (T, error), id string) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return get(l.store, id)
}

// unchanged fails with ErrConflict if the entity was removed or rewritten
// since it was staged. Callers hold the write lock.
func unchanged[T record[T]](s *Store, kind Kind, get func(*Store, string) (T, error), staged T) (T, error) {
	now, err := get(s, staged.entityID())
	if err != nil {
		return now, conflict(kind, staged.entityID(), "was deleted while the mutation was in flight")
	}
	if now.entityVersion() != staged.entityVersion() {
		return now, conflict(kind, staged.entityID(), "changed while the mutation was in flight")
	}
	return now, nil
}

func photoRefs(s *Store, p Photo) error {
	for _, personID := range p.Persons {
		if !s.Has(KindPerson, personID) {
			return notFound(KindPerson, personID)
		}
	}
	if p.AlbumID != "" && !s.Has(KindAlbum, p.AlbumID) {
		return notFound(KindAlbum, p.AlbumID)
	}
	return nil
}

func albumRefs(s *Store, a Album) error {
	if a.CoverPhotoID != "" && !s.Has(KindPhoto, a.CoverPhotoID) {
		return notFound(KindPhoto, a.CoverPhotoID)
	}
	return nil
}

func faceRefs(s *Store, f Face) error {
	if !s.Has(KindPhoto, f.PhotoID) {
		return notFound(KindPhoto, f.PhotoID)
	}
	if f.PersonID != "" && !s.Has(KindPerson, f.PersonID) {
		return notFound(KindPerson, f.PersonID)
	}
	return nil
}

// CreatePhoto stores a new photo and returns it with its assigned id and
// version. Persons and album must exist.
func (l *Library) CreatePhoto(p Photo) (Photo, error) {
	p = p.clone()
	p.ID = l.newID()
	p.Version = 0
	p.Persons = normalizeIDSet(p.Persons)
	if err := l.check(p); err != nil {
		return Photo{}, err
	}

	release, err := l.begin(KindPhoto, p.ID)
	if err != nil {
		return Photo{}, err
	}
	defer release()
	l.staged(KindPhoto, p.ID)

	var saved Photo
	err = l.commit(func(t *txn) error {
		if err := photoRefs(l.store, p); err != nil {
			return err
		}
		saved = t.putPhoto(nil, p)
		return nil
	})
	return saved, err
}

// UpdatePhoto merges patch into the photo. Fields left nil in patch keep their value.
func (l *Library) UpdatePhoto(id string, patch PhotoPatch) (Photo, error) {
	release, err := l.begin(KindPhoto, id)
	if err != nil {
		return Photo{}, err
	}
	defer release()

	cur, err := current(l, (*Store).Photo, id)
	if err != nil {
		return Photo{}, err
	}
	next := cur.clone()
	patch.apply(&next)
	next.Persons = normalizeIDSet(next.Persons)
	if err := l.check(next); err != nil {
		return Photo{}, err
	}
	l.staged(KindPhoto, id)

	var saved Photo
	err = l.commit(func(t *txn) error {
		now, err := unchanged(l.store, KindPhoto, (*Store).Photo, cur)
		if err != nil {
			return err
		}
		if err := photoRefs(l.store, next); err != nil {
			return err
		}
		saved = t.putPhoto(&now, next)
		return nil
	})
	return saved, err
}

// photoTargets lists the faces of a photo and the albums using it as a cover.
// Callers hold a lock.
func (l *Library) photoTargets(id string) (targets, error) {
	if !l.store.Has(KindPhoto, id) {
		return targets{}, notFound(KindPhoto, id)
	}
	var c targets
	c.faces = l.index.FacesOf(id)
	l.store.albums.each(func(a Album) {
		if a.CoverPhotoID == id {
			c.albums = append(c.albums, a.ID)
		}
	})
	slices.Sort(c.albums)
	return c, nil
}

// DeletePhoto removes a photo together with its faces. Albums using it as a
// cover lose their cover. The previous photo is returned.
func (l *Library) DeletePhoto(id string) (Photo, error) {
	plan := func() (targets, error) { return l.photoTargets(id) }
	release, planned, err := l.beginMany(KindPhoto, id, plan)
	if err != nil {
		return Photo{}, err
	}
	defer release()
	l.staged(KindPhoto, id)

	var prev Photo
	err = l.commit(func(t *txn) error {
		if err := replan(KindPhoto, id, planned, plan); err != nil {
			return err
		}
		for _, faceID := range planned.faces {
			if _, err := t.deleteFace(faceID); err != nil {
				return err
			}
		}
		for _, albumID := range planned.albums {
			a, err := l.store.Album(albumID)
			if err != nil {
				return err
			}
			next := a.clone()
			next.CoverPhotoID = ""
			t.putAlbum(&a, next)
		}
		prev, err = t.deletePhoto(id)
		return err
	})
	return prev, err
}

// CreatePerson stores a new person. The name may be empty.
func (l *Library) CreatePerson(p Person) (Person, error) {
	p.ID = l.newID()
	p.Version = 0
	p.PhotoCount = 0
	p.Name = strings.TrimSpace(p.Name)
	if err := l.check(p); err != nil {
		return Person{}, err
	}

	release, err := l.begin(KindPerson, p.ID)
	if err != nil {
		return Person{}, err
	}
	defer release()
	l.staged(KindPerson, p.ID)

	var saved Person
	err = l.commit(func(t *txn) error {
		saved = t.putPerson(nil, p)
		return nil
	})
	return saved, err
}

// UpdatePerson merges patch into the person.
func (l *Library) UpdatePerson(id string, patch PersonPatch) (Person, error) {
	release, err := l.begin(KindPerson, id)
	if err != nil {
		return Person{}, err
	}
	defer release()

	cur, err := current(l, (*Store).Person, id)
	if err != nil {
		return Person{}, err
	}
	next := cur
	patch.apply(&next)
	next.Name = strings.TrimSpace(next.Name)
	if err := l.check(next); err != nil {
		return Person{}, err
	}
	l.staged(KindPerson, id)

	var saved Person
	err = l.commit(func(t *txn) error {
		now, err := unchanged(l.store, KindPerson, (*Store).Person, cur)
		if err != nil {
			return err
		}
		saved = l.personWithCount(t.putPerson(&now, next))
		return nil
	})
	return saved, err
}

// personTargets lists the faces identified as the person and the photos
// listing it directly. Callers hold a lock.
func (l *Library) personTargets(id string) (targets, error) {
	if !l.store.Has(KindPerson, id) {
		return targets{}, notFound(KindPerson, id)
	}
	var c targets
	c.faces = l.index.FacesOfPerson(id)
	for _, photoID := range l.index.PhotosOfPerson(id) {
		if p, err := l.store.Photo(photoID); err == nil && p.HasPerson(id) {
			c.photos = append(c.photos, photoID)
		}
	}
	slices.Sort(c.photos)
	return c, nil
}

// DeletePerson removes a person. Faces identified as the person become
// unidentified and the person is dropped from every photo's persons set.
// The returned person carries the photo count it had before the delete.
func (l *Library) DeletePerson(id string) (Person, error) {
	plan := func() (targets, error) { return l.personTargets(id) }
	release, planned, err := l.beginMany(KindPerson, id, plan)
	if err != nil {
		return Person{}, err
	}
	defer release()
	l.staged(KindPerson, id)

	var prev Person
	err = l.commit(func(t *txn) error {
		if err := replan(KindPerson, id, planned, plan); err != nil {
			return err
		}
		count := l.index.PersonPhotoCount(id)

		for _, faceID := range planned.faces {
			f, err := l.store.Face(faceID)
			if err != nil {
				return err
			}
			next := f.clone()
			next.PersonID = ""
			t.putFace(&f, next)
		}
		for _, photoID := range planned.photos {
			p, err := l.store.Photo(photoID)
			if err != nil {
				return err
			}
			next := p.clone()
			next.Persons = slices.DeleteFunc(next.Persons, func(s string) bool { return s == id })
			if len(next.Persons) == 0 {
				next.Persons = nil
			}
			t.putPhoto(&p, next)
		}

		prev, err = t.deletePerson(id)
		prev.PhotoCount = count
		return err
	})
	return prev, err
}

// CreateAlbum stores a new album. The name is required; the cover photo, if
// set, must exist.
func (l *Library) CreateAlbum(a Album) (Album, error) {
	a.ID = l.newID()
	a.Version = 0
	a.PhotoCount = 0
	a.Name = strings.TrimSpace(a.Name)
	if err := l.check(a); err != nil {
		return Album{}, err
	}

	release, err := l.begin(KindAlbum, a.ID)
	if err != nil {
		return Album{}, err
	}
	defer release()
	l.staged(KindAlbum, a.ID)

	var saved Album
	err = l.commit(func(t *txn) error {
		if err := albumRefs(l.store, a); err != nil {
			return err
		}
		saved = t.putAlbum(nil, a)
		return nil
	})
	return saved, err
}

// UpdateAlbum merges patch into the album.
func (l *Library) UpdateAlbum(id string, patch AlbumPatch) (Album, error) {
	release, err := l.begin(KindAlbum, id)
	if err != nil {
		return Album{}, err
	}
	defer release()

	cur, err := current(l, (*Store).Album, id)
	if err != nil {
		return Album{}, err
	}
	next := cur
	patch.apply(&next)
	next.Name = strings.TrimSpace(next.Name)
	if err := l.check(next); err != nil {
		return Album{}, err
	}
	l.staged(KindAlbum, id)

	var saved Album
	err = l.commit(func(t *txn) error {
		now, err := unchanged(l.store, KindAlbum, (*Store).Album, cur)
		if err != nil {
			return err
		}
		if err := albumRefs(l.store, next); err != nil {
			return err
		}
		saved = l.albumWithCount(t.putAlbum(&now, next))
		return nil
	})
	return saved, err
}

// albumTargets lists the member photos of an album. Callers hold a lock.
func (l *Library) albumTargets(id string) (targets, error) {
	if !l.store.Has(KindAlbum, id) {
		return targets{}, notFound(KindAlbum, id)
	}
	photos := l.index.PhotosOfAlbum(id)
	slices.Sort(photos)
	return targets{photos: photos}, nil
}

// DeleteAlbum removes an album. Its photos are kept and leave the album.
func (l *Library) DeleteAlbum(id string) (Album, error) {
	plan := func() (targets, error) { return l.albumTargets(id) }
	release, planned, err := l.beginMany(KindAlbum, id, plan)
	if err != nil {
		return Album{}, err
	}
	defer release()
	l.staged(KindAlbum, id)

	var prev Album
	err = l.commit(func(t *txn) error {
		if err := replan(KindAlbum, id, planned, plan); err != nil {
			return err
		}
		count := l.index.AlbumPhotoCount(id)
		for _, photoID := range planned.photos {
			p, err := l.store.Photo(photoID)
			if err != nil {
				return err
			}
			next := p.clone()
			next.AlbumID = ""
			t.putPhoto(&p, next)
		}
		prev, err = t.deleteAlbum(id)
		prev.PhotoCount = count
		return err
	})
	return prev, err
}

// CreateFace stores a detected face. The box must lie inside the unit square
// and the photo must exist.
func (l *Library) CreateFace(f Face) (Face, error) {
	f = f.clone()
	f.ID = l.newID()
	f.Version = 0
	if err := l.check(f); err != nil {
		return Face{}, err
	}
	if err := checkBox(f.Box); err != nil {
		return Face{}, err
	}

	release, err := l.begin(KindFace, f.ID)
	if err != nil {
		return Face{}, err
	}
	defer release()
	l.staged(KindFace, f.ID)

	var saved Face
	err = l.commit(func(t *txn) error {
		if err := faceRefs(l.store, f); err != nil {
			return err
		}
		saved = t.putFace(nil, f)
		return nil
	})
	return saved, err
}

// UpdateFace merges patch into the face, typically to identify it.
func (l *Library) UpdateFace(id string, patch FacePatch) (Face, error) {
	release, err := l.begin(KindFace, id)
	if err != nil {
		return Face{}, err
	}
	defer release()

	cur, err := current(l, (*Store).Face, id)
	if err != nil {
		return Face{}, err
	}
	next := cur.clone()
	patch.apply(&next)
	if err := l.check(next); err != nil {
		return Face{}, err
	}
	if err := checkBox(next.Box); err != nil {
		return Face{}, err
	}
	l.staged(KindFace, id)

	var saved Face
	err = l.commit(func(t *txn) error {
		now, err := unchanged(l.store, KindFace, (*Store).Face, cur)
		if err != nil {
			return err
		}
		if err := faceRefs(l.store, next); err != nil {
			return err
		}
		saved = t.putFace(&now, next)
		return nil
	})
	return saved, err
}

// DeleteFace removes a face and returns it.
func (l *Library) DeleteFace(id string) (Face, error) {
	release, err := l.begin(KindFace, id)
	if err != nil {
		return Face{}, err
	}
	defer release()

	if _, err := current(l, (*Store).Face, id); err != nil {
		return Face{}, err
	}
	l.staged(KindFace, id)

	var prev Face
	err = l.commit(func(t *txn) error {
		if !l.store.Has(KindFace, id) {
			return conflict(KindFace, id, "was deleted while the mutation was in flight")
		}
		var err error
		prev, err = t.deleteFace(id)
		return err
	})
	return prev, err
}

// membershipTargets validates a bulk membership request and lists the photos
// whose album changes. Callers hold a lock.
func (l *Library) membershipTargets(albumID string, photoIDs []string, changes func(Photo) bool) (targets, error) {
	if !l.store.Has(KindAlbum, albumID) {
		return targets{}, notFound(KindAlbum, albumID)
	}
	var c targets
	for _, id := range photoIDs {
		p, err := l.store.Photo(id)
		if err != nil {
			return targets{}, err
		}
		if changes(p) {
			c.photos = append(c.photos, id)
		}
	}
	return c, nil
}

// setAlbum sets AlbumID to target on the photos of photoIDs selected by
// changes. The album itself is held in the mutating state meanwhile.
func (l *Library) setAlbum(albumID string, photoIDs []string, target string, changes func(Photo) bool) error {
	plan := func() (targets, error) { return l.membershipTargets(albumID, photoIDs, changes) }
	release, planned, err := l.beginMany(KindAlbum, albumID, plan)
	if err != nil {
		return err
	}
	defer release()
	l.staged(KindAlbum, albumID)

	return l.commit(func(t *txn) error {
		if err := replan(KindAlbum, albumID, planned, plan); err != nil {
			return err
		}
		for _, id := range planned.photos {
			p, err := l.store.Photo(id)
			if err != nil {
				return err
			}
			next := p.clone()
			next.AlbumID = target
			t.putPhoto(&p, next)
		}
		return nil
	})
}

// AddPhotosToAlbum makes every listed photo a member of the album, moving it
// out of its previous album. All photos must exist; nothing changes otherwise.
// It returns the sorted, de-duplicated photo ids.
func (l *Library) AddPhotosToAlbum(albumID string, photoIDs []string) ([]string, error) {
	ids := normalizeIDSet(photoIDs)
	if len(ids) == 0 {
		return nil, invalid("no photo ids given")
	}
	err := l.setAlbum(albumID, ids, albumID, func(p Photo) bool { return p.AlbumID != albumID })
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemovePhotosFromAlbum takes the listed photos out of the album. Photos that
// are not members are left alone, but all of them must exist.
// It returns the sorted, de-duplicated photo ids.
func (l *Library) RemovePhotosFromAlbum(albumID string, photoIDs []string) ([]string, error) {
	ids := normalizeIDSet(photoIDs)
	if len(ids) == 0 {
		return nil, invalid("no photo ids given")
	}
	err := l.setAlbum(albumID, ids, "", func(p Photo) bool { return p.AlbumID == albumID })
	if err != nil {
		return nil, err
	}
	return ids, nil
}
