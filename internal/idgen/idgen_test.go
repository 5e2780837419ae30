package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func parse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error: %v", s, err)
	}
	return id
}

func TestV4_Generate(t *testing.T) {
	gen := NewV4()

	s, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if v := parse(t, s).Version(); v != 4 {
		t.Fatalf("UUID version = %d, want 4", v)
	}
}

func TestV7_Generate(t *testing.T) {
	t.Run("generates valid UUID v7", func(t *testing.T) {
		s, err := NewV7().Generate()
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if v := parse(t, s).Version(); v != 7 {
			t.Fatalf("UUID version = %d, want 7", v)
		}
	})

	t.Run("generates distinct values", func(t *testing.T) {
		gen := NewV7(WithRetries(0))
		seen := make(map[string]struct{}, 100)
		for range 100 {
			s, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if _, ok := seen[s]; ok {
				t.Fatalf("duplicate id %q", s)
			}
			seen[s] = struct{}{}
		}
	})

	t.Run("negative retries are ignored", func(t *testing.T) {
		g := NewV7(WithRetries(-3)).(*v7Gen)
		if g.maxRetries != 1 {
			t.Errorf("maxRetries = %d, want 1", g.maxRetries)
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		want    int
	}{
		{"v4", V4, 4},
		{"v7", V7, 7},
		{"unknown falls back to v4", Version(9), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.version).Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if v := parse(t, s).Version(); int(v) != tt.want {
				t.Errorf("UUID version = %d, want %d", v, tt.want)
			}
		})
	}
}
