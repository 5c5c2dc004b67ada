package ids

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("expected uuid, got %q: %v", id, err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("expected random (v4) uuid, got v%d", parsed.Version())
	}
}

func TestNewUniqueConcurrent(t *testing.T) {
	const n = 100
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := New()
			errs <- err
			ids <- id
		}()
	}
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("New error: %v", err)
		}
		id := <-ids
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
