package psoc

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarises a workbook read.
type ImportResult struct {
	Occupations []Occupation
	Skipped     int
}

// ReadWorkbook reads a PSOC workbook with code and title columns. Levels,
// parents and hierarchy paths are derived from the codes; entries come back
// parents first.
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

	codeCol, titleCol := -1, -1
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case codeCol < 0 && strings.Contains(h, "code"):
			codeCol = i
		case titleCol < 0 && (strings.Contains(h, "title") || strings.Contains(h, "description")):
			titleCol = i
		}
	}
	if codeCol < 0 || titleCol < 0 {
		return nil, fmt.Errorf("sheet %q has no code or title column", sheet)
	}

	res := &ImportResult{}
	byCode := make(map[string]*Occupation)
	for _, row := range rows[1:] {
		code := strings.TrimSpace(cell(row, codeCol))
		title := strings.Join(strings.Fields(cell(row, titleCol)), " ")
		if code == "" || title == "" || !isDigits(code) {
			res.Skipped++
			continue
		}
		byCode[code] = &Occupation{Code: code, Title: title, Level: levelForCode(code)}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	// shorter codes are ancestors, so they get their hierarchy first
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) < len(codes[j])
		}
		return codes[i] < codes[j]
	})

	for _, code := range codes {
		o := byCode[code]
		o.Hierarchy = o.Title
		if parent, ok := byCode[parentCode(code)]; ok {
			o.ParentCode = parent.Code
			o.Hierarchy = parent.Hierarchy + " > " + o.Title
		}
		res.Occupations = append(res.Occupations, *o)
	}
	return res, nil
}

// parentCode drops one digit for groups; occupations hang off their unit group.
func parentCode(code string) string {
	switch {
	case len(code) <= 1:
		return ""
	case len(code) > 4:
		return code[:4]
	default:
		return code[:len(code)-1]
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
