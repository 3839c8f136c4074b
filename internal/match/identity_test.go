package match

import (
	"context"
	"errors"
	"testing"

	"github.com/voyagen/streamvault/internal/store"
)

type fakeOracle struct {
	answers map[string]int64
	err     error
	calls   int
}

func (f *fakeOracle) FindByIMDB(_ context.Context, imdbID string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.answers[imdbID], nil
}

func TestResolveCachesOracleHit(t *testing.T) {
	mem := store.NewMemory()
	oracle := &fakeOracle{answers: map[string]int64{"tt0133093": 603}}
	r := NewResolver(mem, oracle)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "tt0133093")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 603 {
		t.Fatalf("want 603, got %d", got)
	}

	// Second call must come from the mapping table.
	got, err = r.Resolve(ctx, "tt0133093")
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if got != 603 {
		t.Fatalf("want 603 from cache, got %d", got)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle calls: want 1, got %d", oracle.calls)
	}
}

func TestResolveStripsEpisodeSuffix(t *testing.T) {
	mem := store.NewMemory()
	oracle := &fakeOracle{answers: map[string]int64{"tt123": 42}}
	r := NewResolver(mem, oracle)

	got, err := r.Resolve(context.Background(), "tt123:1:5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 42 {
		t.Errorf("want 42, got %d", got)
	}
	if _, ok := mem.Identity["tt123"]; !ok {
		t.Error("mapping must be stored under the show-level id")
	}
}

func TestResolveMissIsNotCached(t *testing.T) {
	mem := store.NewMemory()
	oracle := &fakeOracle{answers: map[string]int64{}}
	r := NewResolver(mem, oracle)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := r.Resolve(ctx, "tt999")
		if err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
		if got != 0 {
			t.Fatalf("want 0 for unknown id, got %d", got)
		}
	}
	// Every miss asks the oracle again.
	if oracle.calls != 3 {
		t.Errorf("oracle calls: want 3, got %d", oracle.calls)
	}
	if len(mem.Identity) != 0 {
		t.Error("misses must not be cached")
	}
}

func TestResolveOracleError(t *testing.T) {
	mem := store.NewMemory()
	oracle := &fakeOracle{err: errors.New("network down")}
	r := NewResolver(mem, oracle)

	if _, err := r.Resolve(context.Background(), "tt123"); err == nil {
		t.Fatal("expected error from oracle failure")
	}
	if len(mem.Identity) != 0 {
		t.Error("oracle failure must not write a mapping")
	}
}

func TestStripEpisodeSuffix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tt123:1:5", "tt123"},
		{"tt123", "tt123"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := StripEpisodeSuffix(tc.in); got != tc.want {
			t.Errorf("StripEpisodeSuffix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
