package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Library: config.LibraryConfig{
			SuggestLimit:       5,
			SuggestMaxDistance: 0.5,
		},
	}
}

// testSnapshot is the fixture shared by handler tests:
// ph1 has Alice as a direct person and is in album a1, ph2 has Bob through face f2,
// ph3 has an unidentified face.
func testSnapshot() library.Snapshot {
	day := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return library.Snapshot{
		Persons: []library.Person{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
		},
		Albums: []library.Album{
			{ID: "a1", Name: "Summer", CoverPhotoID: "ph1"},
		},
		Photos: []library.Photo{
			{ID: "ph1", Title: "Beach", TakenAt: day.AddDate(0, 0, 1), Persons: []string{"p1"}, AlbumID: "a1", Content: "blob://ph1"},
			{ID: "ph2", Title: "Dinner", TakenAt: day.AddDate(0, 0, 2), Content: "blob://ph2"},
			{ID: "ph3", Title: "Hike", TakenAt: day, Content: "blob://ph3"},
		},
		Faces: []library.Face{
			{ID: "f1", PhotoID: "ph1", PersonID: "p1", Box: facematch.Box{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.3}, Score: 0.9, Embedding: []float32{1, 0, 0}},
			{ID: "f2", PhotoID: "ph2", PersonID: "p2", Box: facematch.Box{X: 0.5, Y: 0.2, Width: 0.25, Height: 0.25}, Score: 0.8, Embedding: []float32{0, 1, 0}},
			{ID: "f3", PhotoID: "ph3", Box: facematch.Box{X: 0.4, Y: 0.4, Width: 0.1, Height: 0.1}, Score: 0.7, Embedding: []float32{0.95, 0.05, 0}},
		},
	}
}

// newTestLibrary creates a library restored from testSnapshot
func newTestLibrary(t *testing.T, opts ...library.Option) *library.Library {
	t.Helper()
	lib := library.New(opts...)
	if err := lib.Restore(testSnapshot()); err != nil {
		t.Fatalf("failed to restore fixture: %v", err)
	}
	return lib
}

// newTestFaceIndex creates a face index subscribed to lib and loaded with its content
func newTestFaceIndex(t *testing.T, lib *library.Library) *database.FaceIndex {
	t.Helper()
	idx := database.NewFaceIndex()
	idx.OnRestore(lib.Snapshot())
	lib.Subscribe(idx)
	return idx
}

// recordingFailures collects observed failures
type recordingFailures struct {
	errs []error
}

func (r *recordingFailures) ObserveFailure(err error) {
	r.errs = append(r.errs, err)
}

// jsonRequest creates a request with a JSON body
func jsonRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
