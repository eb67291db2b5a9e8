package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-library/internal/library"
)

func TestFacesHandler_Create(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"photo_id":"ph3","box":{"x":0.6,"y":0.1,"width":0.2,"height":0.2},"score":0.5}`, http.StatusCreated},
		{"identified", `{"photo_id":"ph3","person_id":"p2","box":{"x":0,"y":0,"width":1,"height":1}}`, http.StatusCreated},
		{"past right edge", `{"photo_id":"ph3","box":{"x":0.9,"y":0.1,"width":0.2,"height":0.2}}`, http.StatusUnprocessableEntity},
		{"negative component", `{"photo_id":"ph3","box":{"x":-0.1,"y":0.1,"width":0.2,"height":0.2}}`, http.StatusUnprocessableEntity},
		{"score out of range", `{"photo_id":"ph3","box":{"x":0.1,"y":0.1,"width":0.2,"height":0.2},"score":2}`, http.StatusBadRequest},
		{"unknown photo", `{"photo_id":"ghost","box":{"x":0.1,"y":0.1,"width":0.2,"height":0.2}}`, http.StatusNotFound},
		{"unknown person", `{"photo_id":"ph3","person_id":"ghost","box":{"x":0.1,"y":0.1,"width":0.2,"height":0.2}}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewFacesHandler(testConfig(), newTestLibrary(t), nil, nil)
			recorder := httptest.NewRecorder()

			handler.Create(recorder, jsonRequest("POST", "/api/v1/faces", tt.body))

			assertStatusCode(t, recorder, tt.status)
		})
	}
}

func TestFacesHandler_Update_AssignsPerson(t *testing.T) {
	lib := newTestLibrary(t)
	handler := NewFacesHandler(testConfig(), lib, nil, nil)

	req := requestWithChiParams(jsonRequest("PUT", "/api/v1/faces/f3", `{"person_id":"p1"}`), map[string]string{"id": "f3"})
	recorder := httptest.NewRecorder()
	handler.Update(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var face library.Face
	parseJSONResponse(t, recorder, &face)
	if face.PersonID != "p1" {
		t.Errorf("expected person p1, got %q", face.PersonID)
	}

	photos, err := lib.PhotosForPerson("p1")
	if err != nil {
		t.Fatalf("PhotosForPerson: %v", err)
	}
	if len(photos) != 2 || photos[0].ID != "ph1" || photos[1].ID != "ph3" {
		t.Errorf("expected [ph1 ph3], got %+v", photos)
	}
}

func TestFacesHandler_Delete(t *testing.T) {
	lib := newTestLibrary(t)
	handler := NewFacesHandler(testConfig(), lib, nil, nil)

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/faces/f2", nil), map[string]string{"id": "f2"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	person, err := lib.GetPerson("p2")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if person.PhotoCount != 0 {
		t.Errorf("expected Bob to have no photos left, got %d", person.PhotoCount)
	}

	req = requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/f2", nil), map[string]string{"id": "f2"})
	recorder = httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestFacesHandler_Suggestions(t *testing.T) {
	lib := newTestLibrary(t)
	index := newTestFaceIndex(t, lib)
	handler := NewFacesHandler(testConfig(), lib, index, nil)

	t.Run("closest person", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/f3/suggestions", nil), map[string]string{"id": "f3"})
		recorder := httptest.NewRecorder()

		handler.Suggestions(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var suggestions []SuggestionResponse
		parseJSONResponse(t, recorder, &suggestions)
		if len(suggestions) != 1 {
			t.Fatalf("expected 1 suggestion, got %+v", suggestions)
		}
		if suggestions[0].PersonID != "p1" || suggestions[0].PersonName != "Alice" || suggestions[0].FaceID != "f1" {
			t.Errorf("unexpected suggestion %+v", suggestions[0])
		}
	})

	t.Run("face without embedding", func(t *testing.T) {
		face, err := lib.CreateFace(library.Face{PhotoID: "ph3", Box: testSnapshot().Faces[0].Box})
		if err != nil {
			t.Fatalf("CreateFace: %v", err)
		}
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/x/suggestions", nil), map[string]string{"id": face.ID})
		recorder := httptest.NewRecorder()

		handler.Suggestions(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		if body := recorder.Body.String(); body != "[]\n" {
			t.Errorf("expected empty list, got %s", body)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/f3/suggestions?limit=zero", nil), map[string]string{"id": "f3"})
		recorder := httptest.NewRecorder()

		handler.Suggestions(recorder, req)

		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("unknown face", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/ghost/suggestions", nil), map[string]string{"id": "ghost"})
		recorder := httptest.NewRecorder()

		handler.Suggestions(recorder, req)

		assertStatusCode(t, recorder, http.StatusNotFound)
	})
}

func TestFacesHandler_Suggestions_NoIndex(t *testing.T) {
	handler := NewFacesHandler(testConfig(), newTestLibrary(t), nil, nil)
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/faces/f3/suggestions", nil), map[string]string{"id": "f3"})
	recorder := httptest.NewRecorder()

	handler.Suggestions(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var suggestions []SuggestionResponse
	parseJSONResponse(t, recorder, &suggestions)
	if len(suggestions) != 0 {
		t.Errorf("expected no suggestions without an index, got %+v", suggestions)
	}
}
