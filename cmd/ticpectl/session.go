package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// Session is one questionnaire submission read from disk.
type Session struct {
	ID        string            `json:"id"`
	Responses []domain.Response `json:"responses"`
	Expected  *Expectation      `json:"expected,omitempty"`
}

// parseSession accepts a session object or a bare array of responses.
func parseSession(data []byte) (Session, error) {
	var s Session
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &s.Responses); err != nil {
			return s, fmt.Errorf("decode responses: %w", err)
		}
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// readSessions loads a batch: every *.json file of a directory holds one
// session; a file holds an array of sessions. Sessions without an ID are
// named after their file or position.
func readSessions(path string) ([]Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var sessions []Session
		if err := json.Unmarshal(data, &sessions); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		for i := range sessions {
			if sessions[i].ID == "" {
				sessions[i].ID = fmt.Sprintf("session-%d", i+1)
			}
		}
		return sessions, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	sessions := make([]Session, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		s, err := parseSession(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if s.ID == "" {
			s.ID = strings.TrimSuffix(filepath.Base(f), ".json")
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
