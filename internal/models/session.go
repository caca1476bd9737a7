// Package models defines core data structures for sessions, queries, and recommendations.
package models

import (
	"fmt"
	"time"

	"github.com/herkey/asha/pkg/utils"
)

// Session represents a professional development session.
type Session struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Host        string    `json:"host" db:"host"`
	Tags        []string  `json:"tags,omitempty" db:"tags"`
	StartTime   time.Time `json:"start_time,omitempty" db:"start_time"`
	Duration    string    `json:"duration,omitempty" db:"duration"`
	URL         string    `json:"url,omitempty" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SearchText returns the composite text used for embedding and keyword
// indexing: title, description, host, and tags combined into one
// whitespace-normalized string.
func (s *Session) SearchText() string {
	text := fmt.Sprintf("Title: %s Description: %s Host: %s", s.Title, s.Description, s.Host)
	for _, tag := range s.Tags {
		text += " " + tag
	}
	return utils.CleanWhitespace(text)
}

// Recommendation pairs a session with its relevance to a query.
type Recommendation struct {
	Session       *Session `json:"session"`
	Score         float64  `json:"score"`
	SemanticScore float64  `json:"semantic_score"`
	KeywordScore  float64  `json:"keyword_score"`
	Rank          int      `json:"rank"`
}

// RecommendQuery is the input for a recommendation request.
type RecommendQuery struct {
	Query          string  `json:"query"`
	UserID         string  `json:"user_id,omitempty"`
	TopK           int     `json:"top_k,omitempty"`
	SemanticWeight float64 `json:"semantic_weight,omitempty"`
}

// RecommendResponse holds recommendation results and timing.
type RecommendResponse struct {
	Results   []*Recommendation `json:"results"`
	Total     int               `json:"total"`
	QueryTime int64             `json:"query_time_ms"`
	Query     string            `json:"query"`
}

// RecommendationRecord is the audit row stored when a session is recommended to a user.
type RecommendationRecord struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	Score         float64   `json:"score" db:"score"`
	RecommendedAt time.Time `json:"recommended_at" db:"recommended_at"`
	Viewed        bool      `json:"viewed" db:"viewed"`
}

// ChatRequest is the input for a chat turn.
type ChatRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// ChatResponse holds the assistant reply and any inline session recommendations.
type ChatResponse struct {
	Reply           string            `json:"reply"`
	Source          string            `json:"source"`
	Recommendations []*Recommendation `json:"recommendations,omitempty"`
}
