// Package typeahead is the headless search-select used by the PSGC address,
// PSOC occupation and enum pickers: option normalisation, hierarchical labels,
// static filtering, debounced remote search and the keyboard state machine.
package typeahead

import (
	"context"
	"strings"
)

// Option is one selectable entry. Value is unique within a list.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Badge       string `json:"badge,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// SearchFunc performs a remote search for query.
type SearchFunc func(ctx context.Context, query string) ([]Option, error)

// CreateFunc persists a new option from free text and returns it.
type CreateFunc func(ctx context.Context, text string) (Option, error)

// GeographicRecord is the PSGC search record as served over REST.
type GeographicRecord struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Level        string `json:"level"`
	FullAddress  string `json:"full_address,omitempty"`
	CityName     string `json:"city_name,omitempty"`
	ProvinceName string `json:"province_name,omitempty"`
	RegionName   string `json:"region_name,omitempty"`
}

// OccupationRecord is the PSOC search record as served over REST.
// Hierarchy is the ">"-separated path from major group down to the entry.
type OccupationRecord struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Level      string  `json:"level"`
	Hierarchy  string  `json:"hierarchy,omitempty"`
	MatchScore float64 `json:"match_score,omitempty"`
}

// EnumEntry is a fixed choice (sex, civil status, education level, ...).
type EnumEntry struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// FromGeographicRecord normalises a PSGC record.
func FromGeographicRecord(rec GeographicRecord) Option {
	return Option{
		Value:       rec.Code,
		Label:       FormatGeographicLabel(rec),
		Description: GeographicDescription(rec),
		Badge:       levelBadge(rec.Level),
	}
}

// FromGeographicRecords maps a result page, dropping records without a code.
func FromGeographicRecords(recs []GeographicRecord) []Option {
	opts := make([]Option, 0, len(recs))
	for _, rec := range recs {
		if rec.Code == "" {
			continue
		}
		opts = append(opts, FromGeographicRecord(rec))
	}
	return opts
}

// FromOccupationRecord normalises a PSOC record.
func FromOccupationRecord(rec OccupationRecord) Option {
	return Option{
		Value:       rec.Code,
		Label:       FormatOccupationLabel(rec),
		Description: OccupationDescription(rec),
		Badge:       levelBadge(rec.Level),
	}
}

// FromOccupationRecords maps a result page, dropping records without a code.
func FromOccupationRecords(recs []OccupationRecord) []Option {
	opts := make([]Option, 0, len(recs))
	for _, rec := range recs {
		if rec.Code == "" {
			continue
		}
		opts = append(opts, FromOccupationRecord(rec))
	}
	return opts
}

// FromEnumEntry normalises an enum entry; the value doubles as label when none is given.
func FromEnumEntry(e EnumEntry) Option {
	label := strings.TrimSpace(e.Label)
	if label == "" {
		label = e.Value
	}
	return Option{Value: e.Value, Label: label, Description: e.Description}
}

// FromEnumEntries maps a whole enum in declaration order.
func FromEnumEntries(entries []EnumEntry) []Option {
	opts := make([]Option, 0, len(entries))
	for _, e := range entries {
		opts = append(opts, FromEnumEntry(e))
	}
	return opts
}

// levelBadge turns "unit_group" into "Unit Group".
func levelBadge(level string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimSpace(level), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
