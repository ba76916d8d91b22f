package psgc

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/barangay-rbi/registry/internal/shared/types"
)

// levelCodes maps the "Geographic Level" column of the PSA publication.
var levelCodes = map[string]types.GeoLevel{
	"reg":    types.GeoLevelRegion,
	"prov":   types.GeoLevelProvince,
	"dist":   types.GeoLevelProvince,
	"city":   types.GeoLevelCity,
	"mun":    types.GeoLevelCity,
	"submun": types.GeoLevelCity,
	"bgy":    types.GeoLevelBarangay,
}

var levelRank = map[types.GeoLevel]int{
	types.GeoLevelRegion:   0,
	types.GeoLevelProvince: 1,
	types.GeoLevelCity:     2,
	types.GeoLevelBarangay: 3,
}

// ImportResult summarises a workbook read.
type ImportResult struct {
	Places  []Place
	Skipped int
}

// ReadWorkbook reads a PSGC publication workbook. The sheet needs a header
// row with code, name and (optionally) geographic level columns; ancestor
// names are filled in from the codes. Places come back parents first.
func ReadWorkbook(r io.Reader, sheet string) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	codeCol, nameCol, levelCol := -1, -1, -1
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case codeCol < 0 && (strings.Contains(h, "psgc") || h == "code"):
			codeCol = i
		case nameCol < 0 && strings.Contains(h, "name"):
			nameCol = i
		case levelCol < 0 && strings.Contains(h, "level"):
			levelCol = i
		}
	}
	if codeCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("sheet %q has no code or name column", sheet)
	}

	res := &ImportResult{}
	byCode := make(map[types.PSGCCode]*Place)
	for _, row := range rows[1:] {
		code, err := types.ParsePSGCCode(strings.TrimSpace(cell(row, codeCol)))
		name := strings.TrimSpace(cell(row, nameCol))
		if err != nil || name == "" {
			res.Skipped++
			continue
		}
		level := code.Level()
		if l, ok := levelCodes[strings.ToLower(strings.TrimSpace(cell(row, levelCol)))]; ok {
			level = l
		}
		byCode[code] = &Place{Code: code, Name: name, Level: level}
	}

	for _, p := range byCode {
		fillAncestors(p, byCode)
		res.Places = append(res.Places, *p)
	}
	sort.Slice(res.Places, func(i, j int) bool {
		a, b := res.Places[i], res.Places[j]
		if levelRank[a.Level] != levelRank[b.Level] {
			return levelRank[a.Level] < levelRank[b.Level]
		}
		return a.Code < b.Code
	})
	return res, nil
}

// fillAncestors sets the parent code and ancestor names from the code
// segments. Ancestors missing from the sheet (NCR has no provinces) are skipped.
func fillAncestors(p *Place, byCode map[types.PSGCCode]*Place) {
	for parent := p.Code.Parent(); parent != ""; parent = parent.Parent() {
		anc, ok := byCode[parent]
		if !ok {
			continue
		}
		if p.ParentCode == "" {
			p.ParentCode = parent
		}
		switch anc.Level {
		case types.GeoLevelCity:
			p.CityName = anc.Name
		case types.GeoLevelProvince:
			p.ProvinceName = anc.Name
		case types.GeoLevelRegion:
			p.RegionName = anc.Name
		}
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
