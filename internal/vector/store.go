// Package vector provides an embedded nearest-neighbor index over text items.
//
// A Store owns both the search structure and the parallel list of items it was
// built from; the two are always saved and loaded together. Topology is chosen
// once at build time: small corpora get an exact flat scan, larger ones a
// partitioned (clustered) structure with sub-linear queries.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Item is an indexed record: a stable identifier plus display attributes.
// The index never interprets an item beyond the text it was embedded from.
type Item struct {
	ID    string            `json:"id"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Match is a single query hit, ranked by ascending distance.
type Match struct {
	Item     Item    `json:"item"`
	Distance float64 `json:"distance"`
}

// Topology identifies the search structure variant, decided at build time.
type Topology string

const (
	// TopologyFlat is an exact exhaustive L2 scan.
	TopologyFlat Topology = "flat"
	// TopologyClustered partitions vectors and probes only the nearest partitions.
	TopologyClustered Topology = "clustered"
)

// Options control topology selection and training.
type Options struct {
	// FlatThreshold is the corpus size at or below which the flat topology is used.
	FlatThreshold int
	// MaxPartitions caps the partition count for the clustered topology.
	MaxPartitions int
	// MaxSearchWidth caps the number of partitions probed per query.
	MaxSearchWidth int
	// TrainIters bounds the partition training loop.
	TrainIters int
}

// DefaultOptions returns the conventional defaults: flat up to 1000 items,
// then min(4*sqrt(n), 256) partitions probed min(16, partitions/4) wide.
func DefaultOptions() Options {
	return Options{
		FlatThreshold:  1000,
		MaxPartitions:  256,
		MaxSearchWidth: 16,
		TrainIters:     100,
	}
}

// Store is a nearest-neighbor index paired with the items it was built from.
// All methods are safe for concurrent use; Build and Add replace or extend
// state under a write lock, so readers see either the old or the new state,
// never a torn structure.
type Store struct {
	mu   sync.RWMutex
	opts Options

	dim         int
	topo        Topology
	searchWidth int
	centroids   [][]float32
	partitions  [][]int // centroid -> indices into vectors/items
	vectors     [][]float32
	items       []Item
}

// NewStore creates an empty store. Zero option fields take defaults.
func NewStore(opts Options) *Store {
	def := DefaultOptions()
	if opts.FlatThreshold == 0 {
		opts.FlatThreshold = def.FlatThreshold
	}
	if opts.MaxPartitions == 0 {
		opts.MaxPartitions = def.MaxPartitions
	}
	if opts.MaxSearchWidth == 0 {
		opts.MaxSearchWidth = def.MaxSearchWidth
	}
	if opts.TrainIters == 0 {
		opts.TrainIters = def.TrainIters
	}
	return &Store{opts: opts}
}

// Build constructs the index from vectors and their parallel items, replacing
// any existing structure. The corpus size decides the topology. Clustered
// builds require partition training to converge. On error the previous state
// is left untouched.
func (s *Store) Build(vectors [][]float32, items []Item) error {
	if len(vectors) == 0 || len(vectors) != len(items) {
		return fmt.Errorf("%w: %d vectors, %d items", ErrInvalidInput, len(vectors), len(items))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-width vectors", ErrInvalidInput)
	}
	copied := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		c := make([]float32, dim)
		copy(c, v)
		copied[i] = c
	}

	topo := TopologyFlat
	var centroids [][]float32
	var partitions [][]int
	width := 0
	if len(copied) > s.opts.FlatThreshold {
		topo = TopologyClustered
		k := clusterCount(len(copied), s.opts.MaxPartitions)
		trained, err := trainPartitions(copied, k, s.opts.TrainIters)
		if err != nil {
			return err
		}
		centroids = trained
		partitions = make([][]int, k)
		for i, v := range copied {
			c := nearestCentroid(v, centroids)
			partitions[c] = append(partitions[c], i)
		}
		width = searchWidth(k, s.opts.MaxSearchWidth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	s.topo = topo
	s.searchWidth = width
	s.centroids = centroids
	s.partitions = partitions
	s.vectors = copied
	s.items = append([]Item(nil), items...)
	return nil
}

// Add appends vectors and items to an existing structure. Clustered stores
// assign each new vector to its nearest partition; no retraining happens.
func (s *Store) Add(vectors [][]float32, items []Item) error {
	if len(vectors) == 0 || len(vectors) != len(items) {
		return fmt.Errorf("%w: %d vectors, %d items", ErrInvalidInput, len(vectors), len(items))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		return ErrNotBuilt
	}
	for i, v := range vectors {
		if len(v) != s.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), s.dim)
		}
	}
	for i, v := range vectors {
		c := make([]float32, s.dim)
		copy(c, v)
		idx := len(s.vectors)
		s.vectors = append(s.vectors, c)
		s.items = append(s.items, items[i])
		if s.topo == TopologyClustered {
			p := nearestCentroid(c, s.centroids)
			s.partitions[p] = append(s.partitions[p], idx)
		}
	}
	return nil
}

// Query returns up to k matches ranked by ascending L2 distance. An empty
// store returns no matches and no error. Result indices outside the item list
// are discarded.
func (s *Store) Query(query []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.items) == 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(query), s.dim)
	}

	var candidates []int
	if s.topo == TopologyClustered {
		candidates = s.probeCandidates(query)
	} else {
		candidates = make([]int, len(s.vectors))
		for i := range s.vectors {
			candidates[i] = i
		}
	}

	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, 0, len(candidates))
	for _, idx := range candidates {
		if idx < 0 || idx >= len(s.items) {
			continue
		}
		scores = append(scores, scored{idx: idx, dist: l2Distance(query, s.vectors[idx])})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })
	if k > len(scores) {
		k = len(scores)
	}
	matches := make([]Match, k)
	for i := 0; i < k; i++ {
		matches[i] = Match{Item: s.items[scores[i].idx], Distance: scores[i].dist}
	}
	return matches, nil
}

// probeCandidates collects vector indices from the searchWidth partitions
// whose centroids are nearest to the query. Caller holds the read lock.
func (s *Store) probeCandidates(query []float32) []int {
	type ranked struct {
		centroid int
		dist     float64
	}
	order := make([]ranked, len(s.centroids))
	for i, c := range s.centroids {
		order[i] = ranked{centroid: i, dist: l2Distance(query, c)}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].dist < order[j].dist })
	width := s.searchWidth
	if width > len(order) {
		width = len(order)
	}
	var candidates []int
	for i := 0; i < width; i++ {
		candidates = append(candidates, s.partitions[order[i].centroid]...)
	}
	return candidates
}

// Len returns the number of indexed items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Dimensions returns the vector width, or 0 before the first build.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Topology returns the current structure variant, or "" before the first build.
func (s *Store) Topology() Topology {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topo
}

// SearchWidth returns the number of partitions probed per query (0 for flat).
func (s *Store) SearchWidth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchWidth
}

// clusterCount returns min(4*sqrt(n), max) with a floor of 1.
func clusterCount(n, max int) int {
	k := 4 * int(math.Sqrt(float64(n)))
	if k > max {
		k = max
	}
	if k < 1 {
		k = 1
	}
	return k
}

// searchWidth returns min(max, partitions/4) with a floor of 1.
func searchWidth(partitions, max int) int {
	w := partitions / 4
	if w > max {
		w = max
	}
	if w < 1 {
		w = 1
	}
	return w
}

// l2Distance returns the squared Euclidean distance. Squared distances rank
// identically to true L2 and avoid the sqrt on every comparison.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
