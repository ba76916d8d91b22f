package typeahead

import "strings"

const (
	// labelAncestors is how many parents are appended to a geographic label.
	labelAncestors = 2
	// descriptionAncestors caps the subtitle chain.
	descriptionAncestors = 3

	labelSeparator     = ", "
	hierarchySeparator = ">"
)

// GeographicAncestors returns the parent names of rec, most specific first,
// with empty and repeated segments omitted.
func GeographicAncestors(rec GeographicRecord) []string {
	var chain []string
	switch strings.ToLower(rec.Level) {
	case "barangay":
		chain = []string{rec.CityName, rec.ProvinceName, rec.RegionName}
	case "city", "municipality", "submunicipality":
		chain = []string{rec.ProvinceName, rec.RegionName}
	case "province":
		chain = []string{rec.RegionName}
	case "region":
		chain = nil
	default:
		chain = []string{rec.CityName, rec.ProvinceName, rec.RegionName}
	}
	return compact(rec.Name, chain)
}

// FormatGeographicLabel renders "Name, City, Province" style labels.
func FormatGeographicLabel(rec GeographicRecord) string {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		if full := strings.TrimSpace(rec.FullAddress); full != "" {
			return full
		}
		return rec.Code
	}
	parts := append([]string{name}, truncate(GeographicAncestors(rec), labelAncestors)...)
	return strings.Join(parts, labelSeparator)
}

// GeographicDescription is the subtitle line: up to three ancestors.
func GeographicDescription(rec GeographicRecord) string {
	return strings.Join(truncate(GeographicAncestors(rec), descriptionAncestors), labelSeparator)
}

// OccupationAncestors returns the PSOC groups above rec, most specific first.
func OccupationAncestors(rec OccupationRecord) []string {
	if strings.TrimSpace(rec.Hierarchy) == "" {
		return nil
	}
	segments := strings.Split(rec.Hierarchy, hierarchySeparator)
	// the path ends with the entry itself when it is a leaf
	if n := len(segments); n > 0 && strings.EqualFold(strings.TrimSpace(segments[n-1]), strings.TrimSpace(rec.Title)) {
		segments = segments[:n-1]
	}
	reversed := make([]string, 0, len(segments))
	for i := len(segments) - 1; i >= 0; i-- {
		reversed = append(reversed, segments[i])
	}
	return compact(rec.Title, reversed)
}

// FormatOccupationLabel prefers the title, then the last hierarchy segment, then the code.
func FormatOccupationLabel(rec OccupationRecord) string {
	if title := strings.TrimSpace(rec.Title); title != "" {
		return title
	}
	segments := strings.Split(rec.Hierarchy, hierarchySeparator)
	if last := strings.TrimSpace(segments[len(segments)-1]); last != "" {
		return last
	}
	return rec.Code
}

// OccupationDescription is the subtitle line: up to three parent groups.
func OccupationDescription(rec OccupationRecord) string {
	return strings.Join(truncate(OccupationAncestors(rec), descriptionAncestors), labelSeparator)
}

// compact trims segments and drops blanks and consecutive repeats (including a
// parent that repeats the entity's own name, as with highly urbanized cities).
func compact(self string, segments []string) []string {
	out := make([]string, 0, len(segments))
	prev := strings.TrimSpace(self)
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, prev) {
			continue
		}
		out = append(out, s)
		prev = s
	}
	return out
}

func truncate(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
