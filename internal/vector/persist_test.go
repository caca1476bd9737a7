package vector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSaveLoadRoundTripFlat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "sessions.vec")

	s := NewStore(Options{})
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}}
	if err := s.Build(vecs, testItems(3)); err != nil {
		t.Fatal(err)
	}
	query := []float32{0.9, 0.1, 0}
	want, err := s.Query(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := NewStore(Options{})
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 3 || loaded.Topology() != TopologyFlat {
		t.Fatalf("loaded Len=%d topology=%s", loaded.Len(), loaded.Topology())
	}
	got, err := loaded.Query(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	// Flat topology: items and distances reproduce exactly.
	for i := range want {
		if got[i].Item.ID != want[i].Item.ID || got[i].Distance != want[i].Distance {
			t.Errorf("match %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSaveLoadRoundTripClustered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.vec")

	s := NewStore(Options{FlatThreshold: 16})
	vecs := clusteredVectors(48, 4, 4)
	if err := s.Build(vecs, testItems(48)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := NewStore(Options{FlatThreshold: 16})
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Topology() != TopologyClustered {
		t.Fatalf("loaded topology = %s", loaded.Topology())
	}
	if loaded.SearchWidth() != s.SearchWidth() {
		t.Errorf("search width %d, want %d", loaded.SearchWidth(), s.SearchWidth())
	}

	// Same top-1 for queries sitting on indexed vectors.
	for _, i := range []int{0, 7, 23} {
		want, err := s.Query(vecs[i], 1)
		if err != nil {
			t.Fatal(err)
		}
		got, err := loaded.Query(vecs[i], 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Item.ID != want[0].Item.ID {
			t.Errorf("query %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	s := NewStore(Options{})
	if err := s.Load(filepath.Join(t.TempDir(), "absent.vec")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if s.Len() != 0 {
		t.Error("store should stay empty")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad header", func(t *testing.T) {
		path := filepath.Join(dir, "bad-header.vec")
		if err := os.WriteFile(path, []byte("not an index at all"), 0644); err != nil {
			t.Fatal(err)
		}
		s := NewStore(Options{})
		if err := s.Load(path); !errors.Is(err, ErrCorruptIndex) {
			t.Errorf("expected corrupt index, got %v", err)
		}
	})

	t.Run("truncated payload keeps prior state", func(t *testing.T) {
		good := filepath.Join(dir, "good.vec")
		s := NewStore(Options{})
		if err := s.Build([][]float32{{1, 0}, {0, 1}}, testItems(2)); err != nil {
			t.Fatal(err)
		}
		if err := s.Save(good); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(good)
		if err != nil {
			t.Fatal(err)
		}
		bad := filepath.Join(dir, "truncated.vec")
		if err := os.WriteFile(bad, data[:len(data)/2], 0644); err != nil {
			t.Fatal(err)
		}

		if err := s.Load(bad); !errors.Is(err, ErrCorruptIndex) {
			t.Errorf("expected corrupt index, got %v", err)
		}
		// The failed load must not have touched the built state.
		if s.Len() != 2 {
			t.Errorf("Len after failed load = %d", s.Len())
		}
	})
}

func TestSaveDuringConcurrentAdd(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(Options{FlatThreshold: 16})
	vecs := clusteredVectors(48, 4, 4)
	if err := s.Build(vecs, testItems(48)); err != nil {
		t.Fatal(err)
	}

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		path := filepath.Join(dir, fmt.Sprintf("snap-%d.vec", i))
		added := []float32{float32(i), float32(i), 0, 0}
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := s.Save(path); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := s.Add([][]float32{added}, testItems(1)); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 48+rounds {
		t.Fatalf("Len after adds = %d", s.Len())
	}

	// Every snapshot must be internally consistent: Load validates the
	// structure/item pairing and rejects torn payloads.
	for i := 0; i < rounds; i++ {
		path := filepath.Join(dir, fmt.Sprintf("snap-%d.vec", i))
		loaded := NewStore(Options{FlatThreshold: 16})
		if err := loaded.Load(path); err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
		if loaded.Len() < 48 {
			t.Errorf("snapshot %d: Len = %d", i, loaded.Len())
		}
		if _, err := loaded.Query(vecs[0], 1); err != nil {
			t.Errorf("snapshot %d query: %v", i, err)
		}
	}
}

func TestSaveEmptyStoreIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.vec")
	s := NewStore(Options{})
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty store should not write a file")
	}
}
