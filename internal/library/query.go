package library

import (
	"slices"
	"strings"

	"github.com/kozaktomas/photo-library/internal/facematch"
)

const (
	rankTitle = iota
	rankPerson
)

// matchingPersons returns ids of persons whose display name contains the
// normalized query. Callers hold the read lock.
func (l *Library) matchingPersons(q string) []string {
	var ids []string
	l.store.persons.each(func(p Person) {
		if strings.Contains(facematch.NormalizeText(p.DisplayName()), q) {
			ids = append(ids, p.ID)
		}
	})
	return ids
}

// Search returns photos whose title contains the query, followed by photos
// linked to a person whose name contains it. Within each group photos are
// ordered by most recent capture date, then id. A blank query matches nothing.
func (l *Library) Search(query string) []Photo {
	q := facematch.NormalizeText(query)
	if q == "" {
		return []Photo{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	rank := make(map[string]int)
	l.store.photos.each(func(p Photo) {
		if strings.Contains(facematch.NormalizeText(p.Title), q) {
			rank[p.ID] = rankTitle
		}
	})
	for _, id := range l.index.PhotosOfPersons(l.matchingPersons(q)) {
		if _, ok := rank[id]; !ok {
			rank[id] = rankPerson
		}
	}

	out := make([]Photo, 0, len(rank))
	for id := range rank {
		if p, err := l.store.Photo(id); err == nil {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Photo) int {
		if c := rank[a.ID] - rank[b.ID]; c != 0 {
			return c
		}
		return comparePhotos(a, b)
	})
	return out
}

// SearchPersons returns persons whose display name contains the query,
// ordered by display name. A blank query matches nothing.
func (l *Library) SearchPersons(query string) []Person {
	q := facematch.NormalizeText(query)
	if q == "" {
		return []Person{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.matchingPersons(q)
	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		if p, err := l.store.Person(id); err == nil {
			out = append(out, l.personWithCount(p))
		}
	}
	slices.SortFunc(out, comparePersons)
	return out
}

// PhotosForPerson returns the photos linked to a person, most recent first.
// It fails with ErrNotFound only when the person does not exist.
func (l *Library) PhotosForPerson(personID string) ([]Photo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.store.Has(KindPerson, personID) {
		return nil, notFound(KindPerson, personID)
	}
	return l.photosByID(l.index.PhotosOfPerson(personID)), nil
}

// PhotosForAlbum returns the photos of an album, most recent first.
// It fails with ErrNotFound only when the album does not exist.
func (l *Library) PhotosForAlbum(albumID string) ([]Photo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.store.Has(KindAlbum, albumID) {
		return nil, notFound(KindAlbum, albumID)
	}
	return l.photosByID(l.index.PhotosOfAlbum(albumID)), nil
}
