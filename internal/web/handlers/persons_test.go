package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-library/internal/library"
)

func TestPersonsHandler_List(t *testing.T) {
	handler := NewPersonsHandler(newTestLibrary(t), nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/persons", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var persons []library.Person
	parseJSONResponse(t, recorder, &persons)
	if len(persons) != 2 || persons[0].Name != "Alice" || persons[1].Name != "Bob" {
		t.Fatalf("expected [Alice Bob], got %+v", persons)
	}
	if persons[0].PhotoCount != 1 || persons[1].PhotoCount != 1 {
		t.Errorf("unexpected photo counts %d/%d", persons[0].PhotoCount, persons[1].PhotoCount)
	}
}

func TestPersonsHandler_ListPaginated(t *testing.T) {
	handler := NewPersonsHandler(newTestLibrary(t), nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/persons?limit=1&page=1", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var persons []library.Person
	parseJSONResponse(t, recorder, &persons)
	if len(persons) != 1 || persons[0].ID != "p2" {
		t.Errorf("expected [p2] on the second page, got %+v", persons)
	}
}

func TestPersonsHandler_Search(t *testing.T) {
	handler := NewPersonsHandler(newTestLibrary(t), nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"ali", []string{"p1"}},
		{"BOB", []string{"p2"}},
		{"", []string{}},
		{"zed", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.Search(recorder, httptest.NewRequest("GET", "/api/v1/persons/search?q="+tt.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var persons []library.Person
			parseJSONResponse(t, recorder, &persons)
			if len(persons) != len(tt.want) {
				t.Fatalf("expected %d persons, got %d", len(tt.want), len(persons))
			}
			for i, id := range tt.want {
				if persons[i].ID != id {
					t.Errorf("persons[%d] = %s, want %s", i, persons[i].ID, id)
				}
			}
		})
	}
}

func TestPersonsHandler_CreateAndUpdate(t *testing.T) {
	handler := NewPersonsHandler(newTestLibrary(t), nil)

	recorder := httptest.NewRecorder()
	handler.Create(recorder, jsonRequest("POST", "/api/v1/persons", `{"name":"  Carol "}`))
	assertStatusCode(t, recorder, http.StatusCreated)

	var created library.Person
	parseJSONResponse(t, recorder, &created)
	if created.Name != "Carol" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}

	req := requestWithChiParams(jsonRequest("PUT", "/api/v1/persons/"+created.ID, `{"name":"Caroline"}`), map[string]string{"id": created.ID})
	recorder = httptest.NewRecorder()
	handler.Update(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var updated library.Person
	parseJSONResponse(t, recorder, &updated)
	if updated.Name != "Caroline" || updated.Version != created.Version+1 {
		t.Errorf("unexpected update result %+v", updated)
	}
}

func TestPersonsHandler_Delete_Cascades(t *testing.T) {
	lib := newTestLibrary(t)
	handler := NewPersonsHandler(lib, nil)

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/persons/p1", nil), map[string]string{"id": "p1"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var person library.Person
	parseJSONResponse(t, recorder, &person)
	if person.ID != "p1" || person.PhotoCount != 1 {
		t.Errorf("expected previous person with its count, got %+v", person)
	}

	face, err := lib.GetFace("f1")
	if err != nil {
		t.Fatalf("GetFace: %v", err)
	}
	if face.Identified() {
		t.Error("expected face f1 to become unidentified")
	}
	photo, _ := lib.GetPhoto("ph1")
	if photo.HasPerson("p1") {
		t.Error("expected p1 removed from photo ph1")
	}
}

func TestPersonsHandler_PhotosAndFaces(t *testing.T) {
	handler := NewPersonsHandler(newTestLibrary(t), nil)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/persons/p2/photos", nil), map[string]string{"id": "p2"})
	recorder := httptest.NewRecorder()
	handler.Photos(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var photos []library.Photo
	parseJSONResponse(t, recorder, &photos)
	if len(photos) != 1 || photos[0].ID != "ph2" {
		t.Errorf("expected [ph2], got %+v", photos)
	}

	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/persons/p1/faces", nil), map[string]string{"id": "p1"})
	recorder = httptest.NewRecorder()
	handler.Faces(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var faces []library.Face
	parseJSONResponse(t, recorder, &faces)
	if len(faces) != 1 || faces[0].ID != "f1" {
		t.Errorf("expected [f1], got %+v", faces)
	}
}

func TestPersonsHandler_NotFound(t *testing.T) {
	failures := &recordingFailures{}
	handler := NewPersonsHandler(newTestLibrary(t), failures)

	handlersByName := map[string]http.HandlerFunc{
		"get":    handler.Get,
		"delete": handler.Delete,
		"photos": handler.Photos,
		"faces":  handler.Faces,
	}
	for name, h := range handlersByName {
		t.Run(name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/persons/ghost", nil), map[string]string{"id": "ghost"})
			recorder := httptest.NewRecorder()
			h(recorder, req)
			assertStatusCode(t, recorder, http.StatusNotFound)
		})
	}

	if len(failures.errs) != len(handlersByName) {
		t.Errorf("expected %d observed failures, got %d", len(handlersByName), len(failures.errs))
	}
}
