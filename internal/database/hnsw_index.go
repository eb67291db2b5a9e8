package database

import (
	"cmp"
	"log"
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-library/internal/library"
)

// indexedFace is the metadata kept for a face whose embedding is in the graph.
type indexedFace struct {
	photoID  string
	personID string
}

// FaceIndex is an HNSW graph over face embeddings used to suggest who an
// unidentified face might be. It follows library commits as an observer.
//
// The graph does not support deletion; removed faces are dropped from the
// metadata map and filtered out of search results.
type FaceIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	dims  int
	faces map[string]indexedFace
}

// NewFaceIndex creates an empty index.
func NewFaceIndex() *FaceIndex {
	return &FaceIndex{faces: make(map[string]indexedFace)}
}

func newFaceGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// add inserts a face. Callers hold the write lock.
func (h *FaceIndex) add(f library.Face) {
	if len(f.Embedding) == 0 {
		return
	}
	if _, ok := h.faces[f.ID]; ok {
		h.faces[f.ID] = indexedFace{photoID: f.PhotoID, personID: f.PersonID}
		return
	}
	if h.graph == nil {
		h.graph = newFaceGraph()
		h.dims = len(f.Embedding)
	}
	if len(f.Embedding) != h.dims {
		log.Printf("face index: skipping face %s with %d-dim embedding, index uses %d", f.ID, len(f.Embedding), h.dims)
		return
	}
	h.graph.Add(hnsw.MakeNode(f.ID, slices.Clone(f.Embedding)))
	h.faces[f.ID] = indexedFace{photoID: f.PhotoID, personID: f.PersonID}
}

// OnCommit applies face changes.
func (h *FaceIndex) OnCommit(c library.Commit) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range c.Changes {
		if ch.Kind != library.KindFace {
			continue
		}
		switch ch.Op {
		case library.OpCreate, library.OpUpdate:
			if f, ok := ch.After.(library.Face); ok {
				h.add(f)
			}
		case library.OpDelete:
			delete(h.faces, ch.ID)
		}
	}
}

// OnRestore rebuilds the graph from a snapshot.
func (h *FaceIndex) OnRestore(s library.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dims = 0
	h.faces = make(map[string]indexedFace, len(s.Faces))
	for _, f := range s.Faces {
		h.add(f)
	}
}

// Count returns the number of indexed faces.
func (h *FaceIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.faces)
}

// Suggestion is a person whose identified faces resemble the query embedding.
type Suggestion struct {
	PersonID string  `json:"person_id"`
	Distance float64 `json:"distance"`
	Votes    int     `json:"votes"`
	FaceID   string  `json:"face_id"`
}

// Suggest returns up to limit persons ranked by the closest identified face
// within maxDistance. Faces listed in exclude are ignored.
func (h *FaceIndex) Suggest(embedding []float32, limit int, maxDistance float64, exclude ...string) []Suggestion {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.graph.Len() == 0 || len(embedding) != h.dims || limit <= 0 {
		return []Suggestion{}
	}

	byPerson := make(map[string]*Suggestion)
	for _, n := range h.graph.Search(embedding, limit*HNSWSearchMultiplier) {
		if slices.Contains(exclude, n.Key) {
			continue
		}
		meta, ok := h.faces[n.Key]
		if !ok || meta.personID == "" {
			continue
		}
		dist := CosineDistance(embedding, n.Value)
		if dist > maxDistance {
			continue
		}
		s, ok := byPerson[meta.personID]
		if !ok {
			byPerson[meta.personID] = &Suggestion{PersonID: meta.personID, Distance: dist, Votes: 1, FaceID: n.Key}
			continue
		}
		s.Votes++
		if dist < s.Distance {
			s.Distance = dist
			s.FaceID = n.Key
		}
	}

	out := make([]Suggestion, 0, len(byPerson))
	for _, s := range byPerson {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		return cmp.Compare(a.PersonID, b.PersonID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
