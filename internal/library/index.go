package library

import (
	"fmt"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

type idSet map[string]struct{}

// Index is the relationship index derived from the store's photos and faces.
// Photo ids are interned to uint32 ordinals so person and album memberships
// can be kept as roaring bitmaps. A photo is linked to a person when the
// person is listed on the photo or when an identified face of the photo
// points to the person; face links are reference counted per photo.
//
// Index is not safe for concurrent use on its own; Library serializes access.
type Index struct {
	ordinal map[string]uint32
	photoID map[uint32]string
	next    uint32

	direct   map[string]idSet          // photo -> persons listed on the photo
	faceRefs map[string]map[string]int // photo -> person -> identified faces
	byPerson map[string]*roaring.Bitmap

	albumOf map[string]string
	byAlbum map[string]*roaring.Bitmap

	facesByPhoto  map[string]idSet
	facesByPerson map[string]idSet
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		ordinal:       make(map[string]uint32),
		photoID:       make(map[uint32]string),
		direct:        make(map[string]idSet),
		faceRefs:      make(map[string]map[string]int),
		byPerson:      make(map[string]*roaring.Bitmap),
		albumOf:       make(map[string]string),
		byAlbum:       make(map[string]*roaring.Bitmap),
		facesByPhoto:  make(map[string]idSet),
		facesByPerson: make(map[string]idSet),
	}
}

// BuildIndex scans the store and builds a fresh index. It is the full-rebuild
// fallback; the steady state uses ApplyPhoto and ApplyFace.
func BuildIndex(s *Store) *Index {
	ix := NewIndex()
	s.photos.each(func(p Photo) { ix.ApplyPhoto(nil, &p) })
	s.faces.each(func(f Face) { ix.ApplyFace(nil, &f) })
	return ix
}

func (ix *Index) intern(photoID string) uint32 {
	if ord, ok := ix.ordinal[photoID]; ok {
		return ord
	}
	ord := ix.next
	ix.next++
	ix.ordinal[photoID] = ord
	ix.photoID[ord] = photoID
	return ord
}

// release drops the ordinal of a photo that no longer has any relation.
func (ix *Index) release(photoID string) {
	if len(ix.direct[photoID]) > 0 || len(ix.faceRefs[photoID]) > 0 || len(ix.facesByPhoto[photoID]) > 0 {
		return
	}
	if _, ok := ix.albumOf[photoID]; ok {
		return
	}
	if ord, ok := ix.ordinal[photoID]; ok {
		delete(ix.ordinal, photoID)
		delete(ix.photoID, ord)
	}
}

func addBit(m map[string]*roaring.Bitmap, key string, ord uint32) {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	bm.Add(ord)
}

func removeBit(m map[string]*roaring.Bitmap, key string, ord uint32) {
	bm, ok := m[key]
	if !ok {
		return
	}
	bm.Remove(ord)
	if bm.IsEmpty() {
		delete(m, key)
	}
}

func addID(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

func removeID(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func (ix *Index) addFaceRef(photoID, personID string) {
	refs, ok := ix.faceRefs[photoID]
	if !ok {
		refs = make(map[string]int)
		ix.faceRefs[photoID] = refs
	}
	refs[personID]++
}

func (ix *Index) dropFaceRef(photoID, personID string) {
	refs, ok := ix.faceRefs[photoID]
	if !ok {
		return
	}
	refs[personID]--
	if refs[personID] <= 0 {
		delete(refs, personID)
	}
	if len(refs) == 0 {
		delete(ix.faceRefs, photoID)
	}
}

// refresh recomputes whether photoID belongs to personID's photo set.
func (ix *Index) refresh(photoID, personID string) {
	ord, ok := ix.ordinal[photoID]
	if !ok {
		return
	}
	_, listed := ix.direct[photoID][personID]
	if listed || ix.faceRefs[photoID][personID] > 0 {
		addBit(ix.byPerson, personID, ord)
	} else {
		removeBit(ix.byPerson, personID, ord)
	}
}

// ApplyPhoto moves the index from the before state of a photo to the after
// state. A nil before means the photo was created, a nil after means it was deleted.
func (ix *Index) ApplyPhoto(before, after *Photo) {
	var touched []string

	if before != nil {
		for _, personID := range before.Persons {
			removeID(ix.direct, before.ID, personID)
			touched = append(touched, personID)
		}
		if before.AlbumID != "" {
			if ord, ok := ix.ordinal[before.ID]; ok {
				removeBit(ix.byAlbum, before.AlbumID, ord)
			}
			delete(ix.albumOf, before.ID)
		}
	}

	if after != nil {
		ord := ix.intern(after.ID)
		for _, personID := range after.Persons {
			addID(ix.direct, after.ID, personID)
			touched = append(touched, personID)
		}
		if after.AlbumID != "" {
			addBit(ix.byAlbum, after.AlbumID, ord)
			ix.albumOf[after.ID] = after.AlbumID
		}
	}

	photoID := ""
	if after != nil {
		photoID = after.ID
	} else if before != nil {
		photoID = before.ID
	}
	for _, personID := range touched {
		ix.refresh(photoID, personID)
	}
	if after == nil && before != nil {
		ix.release(before.ID)
	}
}

// ApplyFace moves the index from the before state of a face to the after state.
func (ix *Index) ApplyFace(before, after *Face) {
	type link struct{ photoID, personID string }
	var touched []link

	if before != nil {
		removeID(ix.facesByPhoto, before.PhotoID, before.ID)
		if before.PersonID != "" {
			ix.dropFaceRef(before.PhotoID, before.PersonID)
			removeID(ix.facesByPerson, before.PersonID, before.ID)
			touched = append(touched, link{before.PhotoID, before.PersonID})
		}
	}

	if after != nil {
		ix.intern(after.PhotoID)
		addID(ix.facesByPhoto, after.PhotoID, after.ID)
		if after.PersonID != "" {
			ix.addFaceRef(after.PhotoID, after.PersonID)
			addID(ix.facesByPerson, after.PersonID, after.ID)
			touched = append(touched, link{after.PhotoID, after.PersonID})
		}
	}

	for _, l := range touched {
		ix.refresh(l.photoID, l.personID)
	}
}

func (ix *Index) ids(bm *roaring.Bitmap) []string {
	if bm == nil {
		return nil
	}
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if id, ok := ix.photoID[it.Next()]; ok {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys(set idSet) []string {
	return slices.Sorted(maps.Keys(set))
}

// PhotosOfPerson returns the ids of photos linked to the person.
func (ix *Index) PhotosOfPerson(personID string) []string {
	return ix.ids(ix.byPerson[personID])
}

// PhotosOfPersons returns the ids of photos linked to any of the persons.
func (ix *Index) PhotosOfPersons(personIDs []string) []string {
	bms := make([]*roaring.Bitmap, 0, len(personIDs))
	for _, id := range personIDs {
		if bm, ok := ix.byPerson[id]; ok {
			bms = append(bms, bm)
		}
	}
	if len(bms) == 0 {
		return nil
	}
	return ix.ids(roaring.FastOr(bms...))
}

// PersonsOf returns the sorted ids of persons linked to the photo, either
// listed directly or through identified faces.
func (ix *Index) PersonsOf(photoID string) []string {
	set := make(idSet, len(ix.direct[photoID])+len(ix.faceRefs[photoID]))
	for id := range ix.direct[photoID] {
		set[id] = struct{}{}
	}
	for id := range ix.faceRefs[photoID] {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

// PhotosOfAlbum returns the ids of photos in the album.
func (ix *Index) PhotosOfAlbum(albumID string) []string {
	return ix.ids(ix.byAlbum[albumID])
}

// FacesOf returns the sorted ids of faces detected in the photo.
func (ix *Index) FacesOf(photoID string) []string {
	return sortedKeys(ix.facesByPhoto[photoID])
}

// FacesOfPerson returns the sorted ids of faces identified as the person.
func (ix *Index) FacesOfPerson(personID string) []string {
	return sortedKeys(ix.facesByPerson[personID])
}

// PersonPhotoCount is the derived photo count of a person.
func (ix *Index) PersonPhotoCount(personID string) int {
	if bm, ok := ix.byPerson[personID]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// AlbumPhotoCount is the derived photo count of an album.
func (ix *Index) AlbumPhotoCount(albumID string) int {
	if bm, ok := ix.byAlbum[albumID]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// relations flattens the index into comparable id lists keyed by relation.
// Ordinals are resolved to ids so two indexes built in different orders compare equal.
func (ix *Index) relations() map[string][]string {
	out := make(map[string][]string)
	for personID, bm := range ix.byPerson {
		ids := ix.ids(bm)
		slices.Sort(ids)
		out["person/"+personID+"/photos"] = ids
	}
	for albumID, bm := range ix.byAlbum {
		ids := ix.ids(bm)
		slices.Sort(ids)
		out["album/"+albumID+"/photos"] = ids
	}
	for photoID, set := range ix.facesByPhoto {
		out["photo/"+photoID+"/faces"] = sortedKeys(set)
	}
	for personID, set := range ix.facesByPerson {
		out["person/"+personID+"/faces"] = sortedKeys(set)
	}
	for photoID, albumID := range ix.albumOf {
		out["photo/"+photoID+"/album"] = []string{albumID}
	}
	return out
}

// Diff compares two indexes and describes the first difference found.
func (ix *Index) Diff(other *Index) error {
	have, want := ix.relations(), other.relations()
	keys := make(idSet, len(have)+len(want))
	for k := range have {
		keys[k] = struct{}{}
	}
	for k := range want {
		keys[k] = struct{}{}
	}
	for _, k := range sortedKeys(keys) {
		if !slices.Equal(have[k], want[k]) {
			return fmt.Errorf("%w: %s is %v, expected %v", ErrIndexDrift, k, have[k], want[k])
		}
	}
	return nil
}
