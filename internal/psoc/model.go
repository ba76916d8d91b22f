// Package psoc serves the Philippine Standard Occupational Classification
// behind the occupation picker, including encoder-created custom entries.
package psoc

import (
	"strings"
	"time"

	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const source = "psoc"

// Level of an entry in the classification.
type Level string

const (
	LevelMajorGroup    Level = "major_group"
	LevelSubMajorGroup Level = "sub_major_group"
	LevelMinorGroup    Level = "minor_group"
	LevelUnitGroup     Level = "unit_group"
	LevelOccupation    Level = "occupation"
	LevelCustom        Level = "custom"
)

// levelForCode infers the level from the digit count of a PSOC code.
func levelForCode(code string) Level {
	switch len(code) {
	case 1:
		return LevelMajorGroup
	case 2:
		return LevelSubMajorGroup
	case 3:
		return LevelMinorGroup
	case 4:
		return LevelUnitGroup
	default:
		return LevelOccupation
	}
}

// Occupation is one PSOC entry.
type Occupation struct {
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Level      Level     `json:"level"`
	ParentCode string    `json:"parent_code,omitempty"`
	Hierarchy  string    `json:"hierarchy,omitempty"`
	Custom     bool      `json:"custom"`
	CreatedBy  types.ID  `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Record is the search record served over REST.
func (o Occupation) Record(score float64) typeahead.OccupationRecord {
	return typeahead.OccupationRecord{
		Code:       o.Code,
		Title:      o.Title,
		Level:      string(o.Level),
		Hierarchy:  o.Hierarchy,
		MatchScore: score,
	}
}

// Match scores.
const (
	ScoreExact     = 1.0
	ScorePrefix    = 0.8
	ScoreSubstring = 0.5
)

// Score ranks a title against a query: exact, prefix, then substring.
func Score(title, query string) float64 {
	t := strings.ToLower(strings.TrimSpace(title))
	q := strings.ToLower(strings.TrimSpace(query))
	switch {
	case q == "":
		return 0
	case t == q:
		return ScoreExact
	case strings.HasPrefix(t, q):
		return ScorePrefix
	case strings.Contains(t, q):
		return ScoreSubstring
	default:
		return 0
	}
}

// CreateRequest is the body of POST /psoc.
type CreateRequest struct {
	Title string `json:"title"`
}
