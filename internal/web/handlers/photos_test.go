package handlers

import (
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/kozaktomas/photo-library/internal/library"
)

func TestPhotosHandler_List(t *testing.T) {
	handler := NewPhotosHandler(newTestLibrary(t), nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/photos", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var photos []library.Photo
	parseJSONResponse(t, recorder, &photos)

	want := []string{"ph2", "ph1", "ph3"}
	if len(photos) != len(want) {
		t.Fatalf("expected %d photos, got %d", len(want), len(photos))
	}
	for i, id := range want {
		if photos[i].ID != id {
			t.Errorf("photos[%d] = %s, want %s", i, photos[i].ID, id)
		}
	}
}

func TestPhotosHandler_ListPaginated(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"first page", "?limit=2", http.StatusOK, []string{"ph2", "ph1"}},
		{"second page", "?limit=2&page=1", http.StatusOK, []string{"ph3"}},
		{"page past the end", "?limit=2&page=5", http.StatusOK, []string{}},
		{"page with default limit", "?page=0", http.StatusOK, []string{"ph2", "ph1", "ph3"}},
		{"zero limit", "?limit=0", http.StatusBadRequest, nil},
		{"negative page", "?page=-1", http.StatusBadRequest, nil},
		{"non-numeric limit", "?limit=ten", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPhotosHandler(newTestLibrary(t), nil)
			recorder := httptest.NewRecorder()

			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/photos"+tt.query, nil))

			assertStatusCode(t, recorder, tt.status)
			if tt.status != http.StatusOK {
				return
			}
			var photos []library.Photo
			parseJSONResponse(t, recorder, &photos)
			got := make([]string, len(photos))
			for i, p := range photos {
				got[i] = p.ID
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhotosHandler_Get(t *testing.T) {
	handler := NewPhotosHandler(newTestLibrary(t), nil)

	t.Run("with people", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/photos/ph1", nil), map[string]string{"id": "ph1"})
		recorder := httptest.NewRecorder()

		handler.Get(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var photo PhotoResponse
		parseJSONResponse(t, recorder, &photo)
		if photo.ID != "ph1" || photo.Title != "Beach" {
			t.Errorf("unexpected photo %+v", photo.Photo)
		}
		if len(photo.People) != 1 || photo.People[0].Name != "Alice" {
			t.Errorf("expected people [Alice], got %+v", photo.People)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/photos/nope", nil), map[string]string{"id": "nope"})
		recorder := httptest.NewRecorder()

		handler.Get(recorder, req)

		assertStatusCode(t, recorder, http.StatusNotFound)
	})
}

func TestPhotosHandler_Create(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"title":"Lake","taken_at":"2024-07-01T00:00:00Z","content":"blob://n","persons":["p2"]}`, http.StatusCreated},
		{"missing content", `{"title":"Lake"}`, http.StatusBadRequest},
		{"unknown person", `{"title":"Lake","content":"blob://n","persons":["ghost"]}`, http.StatusNotFound},
		{"unknown album", `{"title":"Lake","content":"blob://n","album_id":"ghost"}`, http.StatusNotFound},
		{"malformed", `{"title":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPhotosHandler(newTestLibrary(t), nil)
			recorder := httptest.NewRecorder()

			handler.Create(recorder, jsonRequest("POST", "/api/v1/photos", tt.body))

			assertStatusCode(t, recorder, tt.status)
			if tt.status != http.StatusCreated {
				return
			}
			var photo library.Photo
			parseJSONResponse(t, recorder, &photo)
			if photo.ID == "" {
				t.Error("expected an assigned id")
			}
			if photo.Version != 1 {
				t.Errorf("expected version 1, got %d", photo.Version)
			}
		})
	}
}

func TestPhotosHandler_Update(t *testing.T) {
	lib := newTestLibrary(t)
	handler := NewPhotosHandler(lib, nil)

	req := requestWithChiParams(jsonRequest("PUT", "/api/v1/photos/ph3", `{"title":"Mountain hike"}`), map[string]string{"id": "ph3"})
	recorder := httptest.NewRecorder()

	handler.Update(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var photo library.Photo
	parseJSONResponse(t, recorder, &photo)
	if photo.Title != "Mountain hike" {
		t.Errorf("expected new title, got %q", photo.Title)
	}
	if photo.Content != "blob://ph3" {
		t.Errorf("unspecified field changed: content = %q", photo.Content)
	}
	if photo.Version != 2 {
		t.Errorf("expected version 2, got %d", photo.Version)
	}
}

func TestPhotosHandler_Update_ConflictWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var blocked atomic.Bool
	hook := func(kind library.Kind, id string) {
		if id == "ph1" && blocked.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
	}

	handler := NewPhotosHandler(newTestLibrary(t, library.WithBeforeCommit(hook)), nil)

	first := make(chan int)
	go func() {
		req := requestWithChiParams(jsonRequest("PUT", "/api/v1/photos/ph1", `{"title":"First"}`), map[string]string{"id": "ph1"})
		recorder := httptest.NewRecorder()
		handler.Update(recorder, req)
		first <- recorder.Code
	}()
	<-entered

	req := requestWithChiParams(jsonRequest("PUT", "/api/v1/photos/ph1", `{"title":"Second"}`), map[string]string{"id": "ph1"})
	recorder := httptest.NewRecorder()
	handler.Update(recorder, req)
	assertStatusCode(t, recorder, http.StatusConflict)

	close(release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("expected first update to succeed, got %d", code)
	}
}

func TestPhotosHandler_Delete_Cascades(t *testing.T) {
	lib := newTestLibrary(t)
	handler := NewPhotosHandler(lib, nil)

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/photos/ph1", nil), map[string]string{"id": "ph1"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var photo library.Photo
	parseJSONResponse(t, recorder, &photo)
	if photo.ID != "ph1" {
		t.Errorf("expected deleted photo ph1, got %q", photo.ID)
	}

	if _, err := lib.GetFace("f1"); err == nil {
		t.Error("expected face f1 to be removed with its photo")
	}
	album, err := lib.GetAlbum("a1")
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if album.CoverPhotoID != "" || album.PhotoCount != 0 {
		t.Errorf("expected album without cover and photos, got %+v", album)
	}
}

func TestPhotosHandler_Faces(t *testing.T) {
	handler := NewPhotosHandler(newTestLibrary(t), nil)
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/photos/ph1/faces", nil), map[string]string{"id": "ph1"})
	recorder := httptest.NewRecorder()

	handler.Faces(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var faces []library.Face
	parseJSONResponse(t, recorder, &faces)
	if len(faces) != 1 || faces[0].ID != "f1" {
		t.Errorf("expected [f1], got %+v", faces)
	}
}

func TestPhotosHandler_Overlay(t *testing.T) {
	handler := NewPhotosHandler(newTestLibrary(t), nil)

	t.Run("projects boxes", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/photos/ph1/faces/overlay?width=1000&height=500", nil), map[string]string{"id": "ph1"})
		recorder := httptest.NewRecorder()

		handler.Overlay(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var overlays []FaceOverlay
		parseJSONResponse(t, recorder, &overlays)
		if len(overlays) != 1 {
			t.Fatalf("expected 1 overlay, got %d", len(overlays))
		}
		o := overlays[0]
		if o.FaceID != "f1" || o.PersonName != "Alice" {
			t.Errorf("unexpected overlay %+v", o)
		}
		for name, pair := range map[string][2]float64{
			"left":   {o.Rect.Left, 100},
			"top":    {o.Rect.Top, 50},
			"width":  {o.Rect.Width, 200},
			"height": {o.Rect.Height, 150},
		} {
			if math.Abs(pair[0]-pair[1]) > 1e-9 {
				t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
			}
		}
	})

	tests := []struct {
		name   string
		id     string
		query  string
		status int
	}{
		{"zero width", "ph1", "width=0&height=500", http.StatusUnprocessableEntity},
		{"negative height", "ph3", "width=100&height=-1", http.StatusUnprocessableEntity},
		{"not a number", "ph1", "width=abc&height=500", http.StatusBadRequest},
		{"missing params", "ph1", "", http.StatusBadRequest},
		{"unknown photo", "nope", "width=100&height=100", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/photos/"+tt.id+"/faces/overlay?"+tt.query, nil), map[string]string{"id": tt.id})
			recorder := httptest.NewRecorder()

			handler.Overlay(recorder, req)

			assertStatusCode(t, recorder, tt.status)
		})
	}
}
