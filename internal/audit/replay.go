package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// ReplayFilter selects entries. Empty fields match everything.
type ReplayFilter struct {
	RequestID   string
	RequesterID string
	Tradition   string
	From        time.Time
	To          time.Time
}

// ReplaySummary counts decisions in a replay.
type ReplaySummary struct {
	Total          int    `json:"total"`
	PermitCount    int    `json:"permit_count"`
	DenyCount      int    `json:"deny_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	MaxLevel       string `json:"max_level,omitempty"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	Filter  ReplayFilter  `json:"-"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the log and returns entries matching filter.
// Malformed lines and unparseable timestamps are skipped.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{Filter: filter}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !filter.matches(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		result.Summary.add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return result, nil
}

func (f ReplayFilter) matches(e AuditEntry) bool {
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.RequesterID != "" && e.RequesterID != f.RequesterID {
		return false
	}
	if f.Tradition != "" && e.Tradition != f.Tradition {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func (s *ReplaySummary) add(e AuditEntry) {
	s.Total++
	switch e.Decision {
	case "permit":
		s.PermitCount++
	case "deny":
		s.DenyCount++
	}
	if lvl := model.ProtectionLevel(e.Level); lvl.Valid() {
		if s.MaxLevel == "" || model.LevelRank[lvl] > model.LevelRank[model.ProtectionLevel(s.MaxLevel)] {
			s.MaxLevel = e.Level
		}
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
