package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", fmt.Errorf("%w: photo x", library.ErrNotFound), "not_found"},
		{"conflict", fmt.Errorf("%w: busy", library.ErrConflict), "conflict"},
		{"validation", fmt.Errorf("%w: bad", library.ErrValidation), "validation"},
		{"geometry wins over validation", fmt.Errorf("%w: %w", library.ErrValidation, facematch.ErrInvalidGeometry), "invalid_geometry"},
		{"other", errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetrics_CountsCommits(t *testing.T) {
	m := New()
	lib := library.New(library.WithObserver(m))

	person, err := lib.CreatePerson(library.Person{Name: "Alice"})
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	if _, err := lib.DeletePerson(person.ID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}

	if got := testutil.ToFloat64(m.commits); got != 2 {
		t.Errorf("commits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.changes.WithLabelValues("person", "create")); got != 1 {
		t.Errorf("person creates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.changes.WithLabelValues("person", "delete")); got != 1 {
		t.Errorf("person deletes = %v, want 1", got)
	}
}

func TestMetrics_ObserveFailure(t *testing.T) {
	m := New()
	m.ObserveFailure(nil)
	m.ObserveFailure(fmt.Errorf("%w: busy", library.ErrConflict))
	m.ObserveFailure(fmt.Errorf("%w: busy", library.ErrConflict))

	if got := testutil.ToFloat64(m.failures.WithLabelValues("conflict")); got != 2 {
		t.Errorf("conflict failures = %v, want 2", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	lib := library.New()
	m.WatchLibrary(lib)
	m.WatchGauge("photo_library_sink_pending", "Changes waiting to be persisted", func() float64 { return 3 })
	m.WatchCounter("photo_library_sink_dropped_total", "Changes dropped", func() float64 { return 2 })
	m.ObserveVerify(nil)

	if _, err := lib.CreatePerson(library.Person{Name: "Bob"}); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`photo_library_entities{kind="person"} 1`,
		`photo_library_entities{kind="photo"} 0`,
		`photo_library_sink_pending 3`,
		`photo_library_sink_dropped_total 2`,
		`photo_library_verify_runs_total{result="ok"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
