package library

import (
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/photo-library/internal/facematch"
)

// Kind names an entity type.
type Kind string

const (
	KindPhoto  Kind = "photo"
	KindPerson Kind = "person"
	KindAlbum  Kind = "album"
	KindFace   Kind = "face"
)

// UnnamedPerson is shown for persons without a name.
const UnnamedPerson = "Person"

// Photo is a stored image and its metadata. Content is an opaque reference to
// the image bytes, which live outside the library.
type Photo struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title" validate:"max=1024"`
	TakenAt     time.Time `json:"taken_at" yaml:"taken_at"`
	Location    string    `json:"location" yaml:"location,omitempty" validate:"max=1024"`
	Description string    `json:"description" yaml:"description,omitempty"`
	Tags        []string  `json:"tags" yaml:"tags,omitempty" validate:"dive,required"`
	Persons     []string  `json:"persons" yaml:"persons,omitempty" validate:"dive,required"`
	AlbumID     string    `json:"album_id,omitempty" yaml:"album_id,omitempty"`
	Content     string    `json:"content" yaml:"content" validate:"required"`
	Version     uint64    `json:"version" yaml:"version,omitempty"`
}

// HasPerson reports whether personID is in the photo's direct persons set.
func (p Photo) HasPerson(personID string) bool {
	_, ok := slices.BinarySearch(p.Persons, personID)
	return ok
}

func (p Photo) entityID() string { return p.ID }
func (p Photo) entityVersion() uint64 { return p.Version }

func (p Photo) withVersion(v uint64) Photo {
	c := p.clone()
	c.Version = v
	return c
}

func (p Photo) clone() Photo {
	p.Tags = slices.Clone(p.Tags)
	p.Persons = slices.Clone(p.Persons)
	return p
}

// Person is an identity that may appear in photos. PhotoCount is derived from
// the relationship index and never stored.
type Person struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name,omitempty" validate:"max=256"`
	Avatar     string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	PhotoCount int    `json:"photo_count" yaml:"-"`
	Version    uint64 `json:"version" yaml:"version,omitempty"`
}

// DisplayName returns the name, or UnnamedPerson when the name is empty.
func (p Person) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return UnnamedPerson
	}
	return p.Name
}

func (p Person) entityID() string { return p.ID }
func (p Person) entityVersion() uint64 { return p.Version }
func (p Person) clone() Person { return p }

func (p Person) withVersion(v uint64) Person {
	p.Version = v
	return p
}

// Album is a named grouping of photos. A photo belongs to at most one album.
type Album struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name" validate:"required,max=256"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	CoverPhotoID string `json:"cover_photo_id,omitempty" yaml:"cover_photo_id,omitempty"`
	PhotoCount   int    `json:"photo_count" yaml:"-"`
	Version      uint64 `json:"version" yaml:"version,omitempty"`
}

func (a Album) entityID() string { return a.ID }
func (a Album) entityVersion() uint64 { return a.Version }
func (a Album) clone() Album { return a }

func (a Album) withVersion(v uint64) Album {
	a.Version = v
	return a
}

// Face is a detected face region inside a photo. An empty PersonID means the
// face is not identified yet.
type Face struct {
	ID        string        `json:"id" yaml:"id"`
	PhotoID   string        `json:"photo_id" yaml:"photo_id" validate:"required"`
	PersonID  string        `json:"person_id,omitempty" yaml:"person_id,omitempty"`
	Box       facematch.Box `json:"box" yaml:"box"`
	Score     float64       `json:"score" yaml:"score,omitempty" validate:"gte=0,lte=1"`
	Embedding []float32     `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Version   uint64        `json:"version" yaml:"version,omitempty"`
}

// Identified reports whether the face is assigned to a person.
func (f Face) Identified() bool {
	return f.PersonID != ""
}

func (f Face) entityID() string { return f.ID }
func (f Face) entityVersion() uint64 { return f.Version }

func (f Face) withVersion(v uint64) Face {
	c := f.clone()
	c.Version = v
	return c
}

func (f Face) clone() Face {
	f.Embedding = slices.Clone(f.Embedding)
	return f
}

// PhotoPatch is a partial update. Nil fields are left unchanged.
// An empty AlbumID removes the photo from its album.
type PhotoPatch struct {
	Title       *string    `json:"title,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	Persons     *[]string  `json:"persons,omitempty"`
	AlbumID     *string    `json:"album_id,omitempty"`
	Content     *string    `json:"content,omitempty"`
}

func (p PhotoPatch) apply(photo *Photo) {
	if p.Title != nil {
		photo.Title = *p.Title
	}
	if p.TakenAt != nil {
		photo.TakenAt = *p.TakenAt
	}
	if p.Location != nil {
		photo.Location = *p.Location
	}
	if p.Description != nil {
		photo.Description = *p.Description
	}
	if p.Tags != nil {
		photo.Tags = slices.Clone(*p.Tags)
	}
	if p.Persons != nil {
		photo.Persons = slices.Clone(*p.Persons)
	}
	if p.AlbumID != nil {
		photo.AlbumID = *p.AlbumID
	}
	if p.Content != nil {
		photo.Content = *p.Content
	}
}

// PersonPatch is a partial update of a person.
type PersonPatch struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

func (p PersonPatch) apply(person *Person) {
	if p.Name != nil {
		person.Name = *p.Name
	}
	if p.Avatar != nil {
		person.Avatar = *p.Avatar
	}
}

// AlbumPatch is a partial update of an album. An empty CoverPhotoID clears the cover.
type AlbumPatch struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	CoverPhotoID *string `json:"cover_photo_id,omitempty"`
}

func (p AlbumPatch) apply(album *Album) {
	if p.Name != nil {
		album.Name = *p.Name
	}
	if p.Description != nil {
		album.Description = *p.Description
	}
	if p.CoverPhotoID != nil {
		album.CoverPhotoID = *p.CoverPhotoID
	}
}

// FacePatch is a partial update of a face. An empty PersonID marks the face unidentified.
type FacePatch struct {
	PersonID *string        `json:"person_id,omitempty"`
	Box      *facematch.Box `json:"box,omitempty"`
	Score    *float64       `json:"score,omitempty"`
}

func (p FacePatch) apply(face *Face) {
	if p.PersonID != nil {
		face.PersonID = *p.PersonID
	}
	if p.Box != nil {
		face.Box = *p.Box
	}
	if p.Score != nil {
		face.Score = *p.Score
	}
}

// Snapshot is the full content of a library, used for seeding, persistence and export.
type Snapshot struct {
	Photos  []Photo  `json:"photos" yaml:"photos"`
	Persons []Person `json:"persons" yaml:"persons"`
	Albums  []Album  `json:"albums" yaml:"albums"`
	Faces   []Face   `json:"faces" yaml:"faces"`
}

// normalizeIDSet sorts ids and drops duplicates.
func normalizeIDSet(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
