// Package retrieval owns the semantic index lifecycle: building it from item
// texts, persisting it, extending it incrementally and answering queries.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/herkey/asha/internal/embedding"
	"github.com/herkey/asha/internal/vector"
)

// Options configures the manager.
type Options struct {
	IndexPath string
	BatchSize int
	Store     vector.Options
}

// Manager ties an embedder to a vector store and keeps the store persisted.
// Queries degrade to empty results on failure; mutations report errors.
type Manager struct {
	logger   *zap.Logger
	embedder embedding.Embedder
	store    *vector.Store
	opts     Options
}

// Status describes the current state of the index.
type Status struct {
	Ready          bool   `json:"ready"`
	Size           int    `json:"size"`
	Dimensions     int    `json:"dimensions"`
	Topology       string `json:"topology"`
	SearchWidth    int    `json:"search_width"`
	EmbeddingModel string `json:"embedding_model"`
}

// NewManager creates a manager and loads a previously persisted index if one
// exists. A missing index file is normal; a corrupt one is logged and the
// manager starts empty.
func NewManager(logger *zap.Logger, embedder embedding.Embedder, opts Options) *Manager {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	m := &Manager{
		logger:   logger,
		embedder: embedder,
		store:    vector.NewStore(opts.Store),
		opts:     opts,
	}
	if opts.IndexPath != "" {
		if err := m.store.Load(opts.IndexPath); err != nil {
			logger.Warn("could not load persisted index, starting empty",
				zap.String("path", opts.IndexPath),
				zap.Error(err))
		} else if m.store.Len() > 0 {
			logger.Info("loaded persisted index",
				zap.String("path", opts.IndexPath),
				zap.Int("size", m.store.Len()),
				zap.String("topology", string(m.store.Topology())))
		}
	}
	return m
}

// BuildIndex embeds texts and rebuilds the index from scratch. When items is
// nil, each text becomes its own item. The previous index stays live until
// the rebuild succeeds, and a successful rebuild is persisted.
func (m *Manager) BuildIndex(ctx context.Context, texts []string, items []vector.Item) error {
	if len(texts) == 0 {
		return fmt.Errorf("build index: %w", vector.ErrInvalidInput)
	}
	if items == nil {
		items = make([]vector.Item, len(texts))
		for i, t := range texts {
			items[i] = vector.Item{ID: fmt.Sprintf("item-%d", i), Text: t}
		}
	}
	if len(items) != len(texts) {
		return fmt.Errorf("build index: %d texts for %d items: %w", len(texts), len(items), vector.ErrInvalidInput)
	}

	vectors, err := m.embedBatches(ctx, texts)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := m.store.Build(vectors, items); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	m.logger.Info("index built",
		zap.Int("size", m.store.Len()),
		zap.String("topology", string(m.store.Topology())),
		zap.String("model", m.embedder.Model()))

	m.persist()
	return nil
}

// Add embeds texts and appends them to the existing index, then persists.
func (m *Manager) Add(ctx context.Context, texts []string, items []vector.Item) error {
	if len(texts) == 0 || len(texts) != len(items) {
		return fmt.Errorf("add to index: %w", vector.ErrInvalidInput)
	}
	vectors, err := m.embedBatches(ctx, texts)
	if err != nil {
		return fmt.Errorf("add to index: %w", err)
	}
	if err := m.store.Add(vectors, items); err != nil {
		return fmt.Errorf("add to index: %w", err)
	}
	m.logger.Debug("items added to index",
		zap.Int("added", len(items)),
		zap.Int("size", m.store.Len()))
	m.persist()
	return nil
}

// Search returns the k nearest items for the query text. Every failure mode
// (embedder down, empty index, bad input) degrades to an empty result; the
// cause is logged, never surfaced.
func (m *Manager) Search(ctx context.Context, query string, k int) []vector.Match {
	if query == "" || k <= 0 || m.store.Len() == 0 {
		return nil
	}
	emb, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warn("search degraded: embedding failed", zap.Error(err))
		return nil
	}
	matches, err := m.store.Query(emb, k)
	if err != nil {
		m.logger.Warn("search degraded: index query failed", zap.Error(err))
		return nil
	}
	return matches
}

// Size returns the number of indexed items.
func (m *Manager) Size() int {
	return m.store.Len()
}

// Ready reports whether the index holds any items.
func (m *Manager) Ready() bool {
	return m.store.Len() > 0
}

// Status reports the index state for diagnostics.
func (m *Manager) Status() Status {
	return Status{
		Ready:          m.store.Len() > 0,
		Size:           m.store.Len(),
		Dimensions:     m.store.Dimensions(),
		Topology:       string(m.store.Topology()),
		SearchWidth:    m.store.SearchWidth(),
		EmbeddingModel: m.embedder.Model(),
	}
}

// Save persists the index to the configured path.
func (m *Manager) Save() error {
	if m.opts.IndexPath == "" {
		return nil
	}
	return m.store.Save(m.opts.IndexPath)
}

func (m *Manager) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += m.opts.BatchSize {
		end := start + m.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := m.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// persist writes the index after a successful mutation. Failures are logged:
// the in-memory index is already consistent and stays usable.
func (m *Manager) persist() {
	if err := m.Save(); err != nil {
		m.logger.Warn("could not persist index",
			zap.String("path", m.opts.IndexPath),
			zap.Error(err))
	}
}
