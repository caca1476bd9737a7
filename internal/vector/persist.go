package vector

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// File header for the persisted index. The structure and item list are always
// written as one unit so they cannot drift apart.
var fileMagic = []byte("ASHAVIDX1")

// persistPayload is the on-disk form of a Store.
type persistPayload struct {
	Topology    Topology
	Dim         int
	SearchWidth int
	Centroids   [][]float32
	Partitions  [][]int
	Vectors     [][]float32
	Items       []Item
}

// Save writes the index and its items to path as a single unit. The file is
// written to a temporary sibling and renamed into place so a crash mid-write
// never leaves a truncated index. Saving an empty store is a no-op.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}
	// Encode while holding the read lock: the payload aliases the live
	// slices, and a concurrent Add mutates partition contents in place.
	// Disk I/O happens after the lock is released.
	s.mu.RLock()
	if s.dim == 0 {
		s.mu.RUnlock()
		return nil
	}
	payload := persistPayload{
		Topology:    s.topo,
		Dim:         s.dim,
		SearchWidth: s.searchWidth,
		Centroids:   s.centroids,
		Partitions:  s.partitions,
		Vectors:     s.vectors,
		Items:       s.items,
	}
	var buf bytes.Buffer
	buf.Write(fileMagic)
	err := gob.NewEncoder(&buf).Encode(payload)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit index file: %w", err)
	}
	return nil
}

// Load reads a persisted index from path and replaces the in-memory state.
// A missing file is not an error: it means no prior index, and the store is
// left unchanged. A corrupt or inconsistent payload fails with ErrCorruptIndex
// and also leaves the store unchanged.
func (s *Store) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	if len(data) < len(fileMagic) || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return fmt.Errorf("%w: bad header", ErrCorruptIndex)
	}

	var payload persistPayload
	if err := gob.NewDecoder(bytes.NewReader(data[len(fileMagic):])).Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if err := validatePayload(&payload); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = payload.Dim
	s.topo = payload.Topology
	s.searchWidth = payload.SearchWidth
	s.centroids = payload.Centroids
	s.partitions = payload.Partitions
	s.vectors = payload.Vectors
	s.items = payload.Items
	return nil
}

// validatePayload rejects payloads that violate the pairing invariant between
// the search structure and its items.
func validatePayload(p *persistPayload) error {
	if p.Dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrCorruptIndex, p.Dim)
	}
	if len(p.Vectors) != len(p.Items) {
		return fmt.Errorf("%w: %d vectors, %d items", ErrCorruptIndex, len(p.Vectors), len(p.Items))
	}
	switch p.Topology {
	case TopologyFlat:
	case TopologyClustered:
		if len(p.Centroids) == 0 || len(p.Partitions) != len(p.Centroids) {
			return fmt.Errorf("%w: %d centroids, %d partitions", ErrCorruptIndex, len(p.Centroids), len(p.Partitions))
		}
	default:
		return fmt.Errorf("%w: unknown topology %q", ErrCorruptIndex, p.Topology)
	}
	for _, v := range p.Vectors {
		if len(v) != p.Dim {
			return fmt.Errorf("%w: vector width %d, expected %d", ErrCorruptIndex, len(v), p.Dim)
		}
	}
	return nil
}
