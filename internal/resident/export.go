package resident

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/barangay-rbi/registry/internal/lookup"
)

const exportSheet = "RBI"

var exportColumns = []struct {
	header string
	width  float64
	value  func(r Resident, c *lookup.Catalog) any
}{
	{"Last Name", 18, func(r Resident, _ *lookup.Catalog) any { return r.LastName }},
	{"First Name", 18, func(r Resident, _ *lookup.Catalog) any { return r.FirstName }},
	{"Middle Name", 16, func(r Resident, _ *lookup.Catalog) any { return r.MiddleName }},
	{"Ext.", 6, func(r Resident, _ *lookup.Catalog) any { return r.ExtensionName }},
	{"Sex", 8, func(r Resident, c *lookup.Catalog) any { return c.Label(lookup.KindSex, r.Sex) }},
	{"Birthdate", 12, func(r Resident, _ *lookup.Catalog) any { return r.Birthdate.String() }},
	{"Age", 6, func(r Resident, _ *lookup.Catalog) any {
		if r.Age == nil {
			return nil
		}
		return *r.Age
	}},
	{"Civil Status", 12, func(r Resident, c *lookup.Catalog) any { return c.Label(lookup.KindCivilStatus, r.CivilStatus) }},
	{"Citizenship", 14, func(r Resident, c *lookup.Catalog) any { return c.Label(lookup.KindCitizenship, r.Citizenship) }},
	{"Birth Place", 30, func(r Resident, _ *lookup.Catalog) any { return r.BirthPlaceLabel }},
	{"Occupation", 28, func(r Resident, _ *lookup.Catalog) any { return r.OccupationLabel }},
	{"Employment", 18, func(r Resident, _ *lookup.Catalog) any {
		if r.EmploymentStatus == "" {
			return ""
		}
		return r.EmploymentStatus.Label()
	}},
	{"Education", 20, func(r Resident, _ *lookup.Catalog) any {
		if r.EducationLevel == "" {
			return ""
		}
		return r.EducationLevel.Label()
	}},
	{"Ethnicity", 14, func(r Resident, c *lookup.Catalog) any { return c.Label(lookup.KindEthnicity, r.Ethnicity) }},
	{"Household", 14, func(r Resident, _ *lookup.Catalog) any { return r.HouseholdCode }},
	{"Sectors", 30, func(r Resident, _ *lookup.Catalog) any { return strings.Join(r.Sectoral.Sectors(), ", ") }},
}

// WriteWorkbook renders residents as an RBI sheet with a frozen header row.
func WriteWorkbook(w io.Writer, residents []Resident, catalog *lookup.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(exportSheet, name, name, col.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(exportColumns), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, r := range residents {
		row := make([]any, len(exportColumns))
		for j, col := range exportColumns {
			row[j] = col.value(r, catalog)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
