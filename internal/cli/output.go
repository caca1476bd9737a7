// Package cli provides output formatting for the Asha CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/pkg/utils"
)

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRecommendations writes recommendation results to w in the given format.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeRecommendationsText(w, response)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendResponse) {
	if response.Total == 0 {
		fmt.Fprintln(w, "No matching sessions.")
		return
	}
	fmt.Fprintf(w, "\nFound %d session(s) in %dms\n\n", response.Total, response.QueryTime)
	for _, rec := range response.Results {
		writeOneRecommendation(w, rec)
	}
}

func writeOneRecommendation(w io.Writer, rec *models.Recommendation) {
	s := rec.Session
	fmt.Fprintf(w, "%d. %s", rec.Rank, s.Title)
	if s.Host != "" {
		fmt.Fprintf(w, " (host: %s)", s.Host)
	}
	fmt.Fprintf(w, "\n   score=%.3f (semantic: %.3f, keyword: %.3f)\n",
		rec.Score, rec.SemanticScore, rec.KeywordScore)
	if s.Description != "" {
		fmt.Fprintf(w, "   %s\n", utils.Truncate(s.Description, 160))
	}
	if !s.StartTime.IsZero() {
		fmt.Fprintf(w, "   starts: %s", s.StartTime.Format("2006-01-02 15:04"))
		if s.Duration != "" {
			fmt.Fprintf(w, " (%s)", s.Duration)
		}
		fmt.Fprintln(w)
	}
	if s.URL != "" {
		fmt.Fprintf(w, "   %s\n", s.URL)
	}
	fmt.Fprintln(w)
}
