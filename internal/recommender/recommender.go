// Package recommender combines semantic and keyword search over sessions
// into ranked recommendations.
package recommender

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/herkey/asha/internal/keyword"
	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/internal/retrieval"
	"github.com/herkey/asha/internal/sessions"
	"github.com/herkey/asha/internal/vector"
)

// Options configures ranking behavior.
type Options struct {
	TopK           int
	SemanticWeight float64
	MinQueryLength int
}

// Recommender answers session recommendation queries by fusing vector
// similarity with keyword relevance.
type Recommender struct {
	logger  *zap.Logger
	manager *retrieval.Manager
	keyword *keyword.Index
	store   sessions.Store
	opts    Options
}

// New creates a recommender over the given indexes and session store.
func New(logger *zap.Logger, manager *retrieval.Manager, kw *keyword.Index, store sessions.Store, opts Options) *Recommender {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.SemanticWeight <= 0 || opts.SemanticWeight > 1 {
		opts.SemanticWeight = 0.7
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = 3
	}
	return &Recommender{
		logger:  logger,
		manager: manager,
		keyword: kw,
		store:   store,
		opts:    opts,
	}
}

// Reindex rebuilds both indexes from every stored session.
func (r *Recommender) Reindex(ctx context.Context) error {
	all, err := r.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("reindex: list sessions: %w", err)
	}
	if len(all) == 0 {
		r.logger.Warn("reindex requested with no stored sessions")
		return nil
	}

	texts := make([]string, len(all))
	items := make([]vector.Item, len(all))
	for i, s := range all {
		texts[i] = s.SearchText()
		items[i] = vector.Item{ID: s.ID, Text: texts[i]}
	}
	if err := r.manager.BuildIndex(ctx, texts, items); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if err := r.keyword.Rebuild(all); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	r.logger.Info("reindexed sessions", zap.Int("count", len(all)))
	return nil
}

// AddSession indexes one session incrementally in both indexes.
func (r *Recommender) AddSession(ctx context.Context, s *models.Session) error {
	text := s.SearchText()
	if r.manager.Ready() {
		err := r.manager.Add(ctx, []string{text}, []vector.Item{{ID: s.ID, Text: text}})
		if err != nil {
			return fmt.Errorf("add session to vector index: %w", err)
		}
	}
	if err := r.keyword.Upsert(s); err != nil {
		return fmt.Errorf("add session to keyword index: %w", err)
	}
	return nil
}

// Recommend returns ranked sessions for the query. Queries shorter than the
// configured minimum fall back to recently added sessions.
func (r *Recommender) Recommend(ctx context.Context, q *models.RecommendQuery) (*models.RecommendResponse, error) {
	start := time.Now()

	topK := q.TopK
	if topK <= 0 {
		topK = r.opts.TopK
	}
	weight := q.SemanticWeight
	if weight <= 0 || weight > 1 {
		weight = r.opts.SemanticWeight
	}

	query := strings.TrimSpace(q.Query)
	var results []*models.Recommendation
	if len(query) < r.opts.MinQueryLength {
		var err error
		results, err = r.recentFallback(ctx, topK)
		if err != nil {
			return nil, err
		}
	} else {
		results = r.rank(ctx, query, topK, weight)
	}

	for i, rec := range results {
		rec.Rank = i + 1
	}
	r.audit(ctx, q.UserID, results)

	return &models.RecommendResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     q.Query,
	}, nil
}

// rank fuses semantic and keyword scores. Semantic distance becomes a 0..1
// relevance via 1/(1+d); keyword scores are normalized by the best hit.
func (r *Recommender) rank(ctx context.Context, query string, topK int, weight float64) []*models.Recommendation {
	// Overfetch so fusion has candidates beyond either top list.
	fetch := topK * 3
	if fetch < 10 {
		fetch = 10
	}

	semantic := make(map[string]float64)
	for _, m := range r.manager.Search(ctx, query, fetch) {
		semantic[m.Item.ID] = 1.0 / (1.0 + float64(m.Distance))
	}

	lexical := make(map[string]float64)
	hits, err := r.keyword.Search(query, fetch)
	if err != nil {
		r.logger.Warn("keyword search degraded", zap.Error(err))
	} else if len(hits) > 0 {
		best := hits[0].Score
		for _, h := range hits {
			if h.Score > best {
				best = h.Score
			}
		}
		if best > 0 {
			for _, h := range hits {
				lexical[h.ID] = h.Score / best
			}
		}
	}

	ids := make(map[string]struct{}, len(semantic)+len(lexical))
	for id := range semantic {
		ids[id] = struct{}{}
	}
	for id := range lexical {
		ids[id] = struct{}{}
	}

	results := make([]*models.Recommendation, 0, len(ids))
	for id := range ids {
		sess, err := r.store.GetSession(ctx, id)
		if err != nil {
			r.logger.Warn("indexed session missing from store", zap.String("id", id), zap.Error(err))
			continue
		}
		sem := semantic[id]
		lex := lexical[id]
		results = append(results, &models.Recommendation{
			Session:       sess,
			SemanticScore: sem,
			KeywordScore:  lex,
			Score:         weight*sem + (1-weight)*lex,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Session.ID < results[j].Session.ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// recentFallback recommends the newest sessions when the query carries no
// searchable signal.
func (r *Recommender) recentFallback(ctx context.Context, topK int) ([]*models.Recommendation, error) {
	recent, err := r.store.RecentSessions(ctx, topK)
	if err != nil {
		return nil, fmt.Errorf("recent sessions fallback: %w", err)
	}
	results := make([]*models.Recommendation, len(recent))
	for i, s := range recent {
		results[i] = &models.Recommendation{Session: s}
	}
	return results, nil
}

// audit records what was recommended to whom. Failures are logged only; the
// user still gets their recommendations.
func (r *Recommender) audit(ctx context.Context, userID string, results []*models.Recommendation) {
	if userID == "" {
		return
	}
	for _, rec := range results {
		err := r.store.RecordRecommendation(ctx, &models.RecommendationRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: rec.Session.ID,
			Score:     rec.Score,
		})
		if err != nil {
			r.logger.Warn("could not record recommendation",
				zap.String("user", userID),
				zap.String("session", rec.Session.ID),
				zap.Error(err))
		}
	}
}

// Format renders recommendations as a short markdown list for chat replies.
func Format(results []*models.Recommendation) string {
	if len(results) == 0 {
		return "No matching sessions found right now. Try a broader topic."
	}
	var b strings.Builder
	b.WriteString("Here are some sessions you might like:\n")
	for _, rec := range results {
		s := rec.Session
		fmt.Fprintf(&b, "%d. **%s**", rec.Rank, s.Title)
		if s.Host != "" {
			fmt.Fprintf(&b, " with %s", s.Host)
		}
		if !s.StartTime.IsZero() {
			fmt.Fprintf(&b, " (%s)", s.StartTime.Format("Jan 2, 3:04 PM"))
		}
		if s.URL != "" {
			fmt.Fprintf(&b, " - %s", s.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
