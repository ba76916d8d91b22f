package types

import (
	"fmt"
	"regexp"
)

// GeoLevel is the administrative level of a PSGC entry.
type GeoLevel string

const (
	GeoLevelRegion   GeoLevel = "region"
	GeoLevelProvince GeoLevel = "province"
	GeoLevelCity     GeoLevel = "city"
	GeoLevelBarangay GeoLevel = "barangay"
)

// PSGCCode is a 10-digit Philippine Standard Geographic Code:
// RR PPP MM BBB (region, province, city/municipality, barangay).
type PSGCCode string

var psgcRegex = regexp.MustCompile(`^\d{10}$`)

// ParsePSGCCode validates a PSGC code. Legacy 9-digit codes are left-padded
// with a zero region digit.
func ParsePSGCCode(s string) (PSGCCode, error) {
	if len(s) == 9 {
		s = "0" + s
	}
	if !psgcRegex.MatchString(s) {
		return "", fmt.Errorf("PSGC code must be 10 digits")
	}
	if s[:2] == "00" {
		return "", fmt.Errorf("PSGC code has no region")
	}
	return PSGCCode(s), nil
}

// String returns the string representation
func (c PSGCCode) String() string {
	return string(c)
}

// Level derives the administrative level from the zero-filled segments.
func (c PSGCCode) Level() GeoLevel {
	if len(c) != 10 {
		return ""
	}
	switch {
	case c[7:] != "000":
		return GeoLevelBarangay
	case c[5:7] != "00":
		return GeoLevelCity
	case c[2:5] != "000":
		return GeoLevelProvince
	default:
		return GeoLevelRegion
	}
}

// Parent returns the code of the next level up, or "" for a region.
func (c PSGCCode) Parent() PSGCCode {
	switch c.Level() {
	case GeoLevelBarangay:
		return c[:7] + "000"
	case GeoLevelCity:
		return c[:5] + "00000"
	case GeoLevelProvince:
		return c[:2] + "00000000"
	default:
		return ""
	}
}
