package idgen

import (
	"strings"
	"testing"
)

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("length %d, want 12", len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("unexpected character %q in %q", c, id)
			}
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestUUIDv7SortsByTime(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id < prev {
			t.Fatalf("ids not monotone: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestPrefixedAndTimestamped(t *testing.T) {
	gen := Prefixed("arc_", NanoID(8))
	if id := gen(); !strings.HasPrefix(id, "arc_") || len(id) != 12 {
		t.Fatalf("Prefixed id = %q", id)
	}
	gen = Timestamped(NanoID(6))
	id := gen()
	if !strings.Contains(id, "_") || !strings.HasSuffix(id[:16], "Z") {
		t.Fatalf("Timestamped id = %q", id)
	}
}
