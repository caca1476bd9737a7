package sessions

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/herkey/asha/internal/models"
)

// sessionsFile is the on-disk import format: either a bare array of sessions
// or an object with a "sessions" key.
type sessionsFile struct {
	Sessions []*models.Session `json:"sessions"`
}

// LoadSessionsFile reads sessions from a JSON file. Sessions without an id or
// title are skipped rather than failing the whole import.
func LoadSessionsFile(path string) ([]*models.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	var loaded []*models.Session
	if err := json.Unmarshal(data, &loaded); err != nil {
		var wrapped sessionsFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse sessions file %s: %w", path, err)
		}
		loaded = wrapped.Sessions
	}

	valid := make([]*models.Session, 0, len(loaded))
	for _, s := range loaded {
		if s == nil || s.ID == "" || s.Title == "" {
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}
