package library

import (
	"errors"
	"slices"
	"testing"
)

func TestIndex_UnionOfDirectAndFaceLinks(t *testing.T) {
	ix := NewIndex()
	photo := Photo{ID: "p1", Persons: []string{"alice"}}
	ix.ApplyPhoto(nil, &photo)

	bob := Face{ID: "f1", PhotoID: "p1", PersonID: "bob"}
	ix.ApplyFace(nil, &bob)

	got := ix.PersonsOf("p1")
	want := []string{"alice", "bob"}
	if !slices.Equal(got, want) {
		t.Errorf("PersonsOf(p1) = %v, want %v", got, want)
	}
	if !slices.Equal(ix.PhotosOfPerson("bob"), []string{"p1"}) {
		t.Errorf("PhotosOfPerson(bob) = %v, want [p1]", ix.PhotosOfPerson("bob"))
	}
}

func TestIndex_FaceRefsAreCounted(t *testing.T) {
	ix := NewIndex()
	photo := Photo{ID: "p1"}
	ix.ApplyPhoto(nil, &photo)

	f1 := Face{ID: "f1", PhotoID: "p1", PersonID: "alice"}
	f2 := Face{ID: "f2", PhotoID: "p1", PersonID: "alice"}
	ix.ApplyFace(nil, &f1)
	ix.ApplyFace(nil, &f2)

	ix.ApplyFace(&f1, nil)
	if ix.PersonPhotoCount("alice") != 1 {
		t.Errorf("expected alice to stay linked after removing one of two faces")
	}

	ix.ApplyFace(&f2, nil)
	if ix.PersonPhotoCount("alice") != 0 {
		t.Errorf("expected alice to be unlinked after removing both faces, count=%d", ix.PersonPhotoCount("alice"))
	}
}

func TestIndex_DirectAndFaceLinkOverlap(t *testing.T) {
	ix := NewIndex()
	photo := Photo{ID: "p1", Persons: []string{"alice"}}
	ix.ApplyPhoto(nil, &photo)
	face := Face{ID: "f1", PhotoID: "p1", PersonID: "alice"}
	ix.ApplyFace(nil, &face)

	updated := Photo{ID: "p1"}
	ix.ApplyPhoto(&photo, &updated)
	if ix.PersonPhotoCount("alice") != 1 {
		t.Error("face link should keep alice on p1 after removing the direct link")
	}
}

func TestIndex_AlbumMoves(t *testing.T) {
	ix := NewIndex()
	before := Photo{ID: "p1", AlbumID: "a1"}
	ix.ApplyPhoto(nil, &before)
	after := Photo{ID: "p1", AlbumID: "a2"}
	ix.ApplyPhoto(&before, &after)

	if n := ix.AlbumPhotoCount("a1"); n != 0 {
		t.Errorf("expected a1 empty, got %d", n)
	}
	if !slices.Equal(ix.PhotosOfAlbum("a2"), []string{"p1"}) {
		t.Errorf("PhotosOfAlbum(a2) = %v, want [p1]", ix.PhotosOfAlbum("a2"))
	}
}

func TestIndex_PhotosOfPersons(t *testing.T) {
	ix := NewIndex()
	for _, p := range []Photo{
		{ID: "p1", Persons: []string{"alice"}},
		{ID: "p2", Persons: []string{"bob"}},
		{ID: "p3", Persons: []string{"alice", "bob"}},
		{ID: "p4"},
	} {
		ix.ApplyPhoto(nil, &p)
	}

	got := ix.PhotosOfPersons([]string{"alice", "bob"})
	slices.Sort(got)
	if !slices.Equal(got, []string{"p1", "p2", "p3"}) {
		t.Errorf("PhotosOfPersons = %v, want [p1 p2 p3]", got)
	}
	if got := ix.PhotosOfPersons([]string{"nobody"}); len(got) != 0 {
		t.Errorf("expected no photos for unknown person, got %v", got)
	}
}

func TestIndex_IncrementalMatchesRebuild(t *testing.T) {
	s := NewStore()
	ix := NewIndex()

	put := func(before *Photo, p Photo) Photo {
		saved := s.PutPhoto(p)
		ix.ApplyPhoto(before, &saved)
		return saved
	}
	putFace := func(before *Face, f Face) Face {
		saved := s.PutFace(f)
		ix.ApplyFace(before, &saved)
		return saved
	}

	p1 := put(nil, Photo{ID: "p1", Persons: []string{"alice"}, AlbumID: "a1"})
	p2 := put(nil, Photo{ID: "p2", AlbumID: "a1"})
	f1 := putFace(nil, Face{ID: "f1", PhotoID: "p2", PersonID: "bob"})
	putFace(nil, Face{ID: "f2", PhotoID: "p1"})

	p1b := p1.clone()
	p1b.Persons = []string{"bob"}
	p1b.AlbumID = ""
	put(&p1, p1b)

	f1b := f1.clone()
	f1b.PersonID = "alice"
	putFace(&f1, f1b)

	prev, _ := s.DeletePhoto(p2.ID)
	ix.ApplyPhoto(&prev, nil)
	fprev, _ := s.DeleteFace("f1")
	ix.ApplyFace(&fprev, nil)

	if err := ix.Diff(BuildIndex(s)); err != nil {
		t.Errorf("incremental index differs from rebuild: %v", err)
	}
}

func TestIndex_DiffReportsDrift(t *testing.T) {
	s := NewStore()
	s.PutPhoto(Photo{ID: "p1", Persons: []string{"alice"}})

	stale := NewIndex()
	err := stale.Diff(BuildIndex(s))
	if !errors.Is(err, ErrIndexDrift) {
		t.Fatalf("expected ErrIndexDrift, got %v", err)
	}
}
