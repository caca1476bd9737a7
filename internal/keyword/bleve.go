// Package keyword provides a Bleve index over session metadata for the
// lexical half of hybrid recommendation.
package keyword

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/herkey/asha/internal/models"
)

// Result is a keyword hit with Bleve's relevance score.
type Result struct {
	ID    string
	Score float64
}

// Index is a Bleve index of sessions, searchable over title, description,
// host and tags.
type Index struct {
	path  string
	index bleve.Index
}

// sessionDoc is the shape Bleve indexes. Tags are joined into one field so a
// single match query covers them.
type sessionDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Host        string `json:"host"`
	Tags        string `json:"tags"`
}

func indexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so tag-like
	// queries match the exact word.
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("description", text)
	docMapping.AddFieldMappingsAt("host", text)
	docMapping.AddFieldMappingsAt("tags", text)
	im.DefaultMapping = docMapping
	return im
}

// New creates or opens a Bleve index at path.
func New(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &Index{path: path, index: idx}, nil
	}
	idx, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{path: path, index: idx}, nil
}

// Upsert indexes or reindexes one session.
func (x *Index) Upsert(s *models.Session) error {
	return x.index.Index(s.ID, toDoc(s))
}

// Rebuild replaces the whole index with the given sessions. The old index
// directory is removed so stale entries cannot survive.
func (x *Index) Rebuild(sessions []*models.Session) error {
	if err := x.index.Close(); err != nil {
		return fmt.Errorf("close keyword index: %w", err)
	}
	if err := os.RemoveAll(x.path); err != nil {
		return fmt.Errorf("remove keyword index: %w", err)
	}
	idx, err := bleve.New(x.path, indexMapping())
	if err != nil {
		return fmt.Errorf("recreate keyword index: %w", err)
	}
	x.index = idx

	batch := x.index.NewBatch()
	for _, s := range sessions {
		if err := batch.Index(s.ID, toDoc(s)); err != nil {
			return fmt.Errorf("batch session %s: %w", s.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("apply keyword batch: %w", err)
	}
	return nil
}

// Search runs a match query over all session fields and returns up to limit
// scored hits.
func (x *Index) Search(query string, limit int) ([]Result, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a session from the index.
func (x *Index) Delete(id string) error {
	return x.index.Delete(id)
}

// DocCount returns the number of indexed sessions.
func (x *Index) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close closes the underlying Bleve index.
func (x *Index) Close() error {
	return x.index.Close()
}

func toDoc(s *models.Session) sessionDoc {
	tags := ""
	for i, t := range s.Tags {
		if i > 0 {
			tags += " "
		}
		tags += t
	}
	return sessionDoc{
		Title:       s.Title,
		Description: s.Description,
		Host:        s.Host,
		Tags:        tags,
	}
}
