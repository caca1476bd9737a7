// Package sessions provides persistent storage for sessions and
// recommendation audit records.
package sessions

import (
	"context"

	"github.com/herkey/asha/internal/models"
)

// Store persists sessions and recommendation history.
type Store interface {
	UpsertSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)
	RecentSessions(ctx context.Context, limit int) ([]*models.Session, error)
	CountSessions(ctx context.Context) (int64, error)
	DeleteSession(ctx context.Context, id string) error

	RecordRecommendation(ctx context.Context, rec *models.RecommendationRecord) error
	RecommendationsForUser(ctx context.Context, userID string, limit int) ([]*models.RecommendationRecord, error)

	Close() error
}
