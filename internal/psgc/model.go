// Package psgc serves the Philippine Standard Geographic Code reference
// data behind the address and birth place pickers.
package psgc

import (
	"strings"

	"github.com/barangay-rbi/registry/internal/shared/types"
	"github.com/barangay-rbi/registry/internal/typeahead"
)

const source = "psgc"

// Place is one PSGC entry with its denormalised ancestor names.
type Place struct {
	Code         types.PSGCCode `json:"code"`
	Name         string         `json:"name"`
	Level        types.GeoLevel `json:"level"`
	ParentCode   types.PSGCCode `json:"parent_code,omitempty"`
	CityName     string         `json:"city_name,omitempty"`
	ProvinceName string         `json:"province_name,omitempty"`
	RegionName   string         `json:"region_name,omitempty"`
}

// FullAddress joins the name with every known ancestor.
func (p Place) FullAddress() string {
	parts := []string{p.Name}
	for _, s := range []string{p.CityName, p.ProvinceName, p.RegionName} {
		if s != "" && !strings.EqualFold(s, parts[len(parts)-1]) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Record is the search record served over REST.
func (p Place) Record() typeahead.GeographicRecord {
	return typeahead.GeographicRecord{
		Code:         p.Code.String(),
		Name:         p.Name,
		Level:        string(p.Level),
		FullAddress:  p.FullAddress(),
		CityName:     p.CityName,
		ProvinceName: p.ProvinceName,
		RegionName:   p.RegionName,
	}
}

// SearchParams filter a place search.
type SearchParams struct {
	Query string
	Level types.GeoLevel
	// ParentCode restricts results to direct children (barangays of a city).
	ParentCode types.PSGCCode
	Limit      int
}
