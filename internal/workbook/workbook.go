package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"markethealth/internal/catalog"
	"markethealth/internal/scrapers/chartink"

	"github.com/xuri/excelize/v2"
)

const (
	MetadataSheet = "Metadata"
	IconColumn    = "Icon"

	// MaxSheetName is the longest sheet name spreadsheet apps accept.
	MaxSheetName = 31

	TimestampLayout = "02 Jan 2006, 03:04 PM"
)

// Sheet is the result of one query.
type Sheet struct {
	Query  catalog.Query
	Result *chartink.ResultSet
}

// Workbook is everything that goes into one published file.
type Workbook struct {
	UpdatedAt    time.Time
	TotalQueries int
	Sheets       []Sheet
}

var invalidSheetChars = strings.NewReplacer(
	":", "_", `\`, "_", "/", "_", "?", "_",
	"*", "_", "[", "(", "]", ")",
)

// SheetName truncates a label to MaxSheetName runes after replacing the
// characters sheet names may not contain.
func SheetName(label string) string {
	name := strings.Trim(invalidSheetChars.Replace(label), "'")
	if utf8.RuneCountInString(name) <= MaxSheetName {
		return name
	}
	return string([]rune(name)[:MaxSheetName])
}

// uniqueSheetName resolves collisions between truncated names, sheet names
// are compared case insensitively.
func uniqueSheetName(label string, taken map[string]struct{}) string {
	name := SheetName(label)
	if name == "" {
		name = "Sheet"
	}
	candidate := name
	for i := 2; ; i++ {
		if _, ok := taken[strings.ToLower(candidate)]; !ok {
			taken[strings.ToLower(candidate)] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", i)
		runes := []rune(name)
		if len(runes)+len(suffix) > MaxSheetName {
			runes = runes[:MaxSheetName-len(suffix)]
		}
		candidate = string(runes) + suffix
	}
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return name
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	return f.SetSheetRow(sheet, cellName(1, row), &values)
}

// Build renders the workbook, sheets with no rows are left out.
func (w Workbook) Build() (*excelize.File, error) {
	f := excelize.NewFile()

	// a new file starts with "Sheet1", it becomes the metadata sheet
	err := f.SetSheetName(f.GetSheetName(0), MetadataSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	err = writeRow(f, MetadataSheet, 1, []any{"Last Updated", "Total Queries"})
	if err != nil {
		f.Close()
		return nil, err
	}
	err = writeRow(f, MetadataSheet, 2, []any{w.UpdatedAt.Format(TimestampLayout), w.TotalQueries})
	if err != nil {
		f.Close()
		return nil, err
	}

	taken := map[string]struct{}{strings.ToLower(MetadataSheet): {}}
	for _, sheet := range w.Sheets {
		if sheet.Result.Len() == 0 {
			continue
		}
		err = writeSheet(f, uniqueSheetName(sheet.Query.Label, taken), sheet)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet.Query.Label, err)
		}
	}

	return f, nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet) error {
	_, err := f.NewSheet(name)
	if err != nil {
		return err
	}

	header := []any{IconColumn, chartink.StockColumn}
	for _, col := range sheet.Result.Columns {
		header = append(header, col)
	}
	err = writeRow(f, name, 1, header)
	if err != nil {
		return err
	}

	for i, row := range sheet.Result.Rows {
		values := []any{sheet.Query.Icon, row.Stock}
		for _, col := range sheet.Result.Columns {
			value, ok := row.Get(col)
			if !ok {
				values = append(values, nil)
				continue
			}
			values = append(values, value.Any())
		}
		err = writeRow(f, name, i+2, values)
		if err != nil {
			return err
		}
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// Save writes the workbook to path, replacing any existing file only once
// the new one is completely written.
func (w Workbook) Save(path string) error {
	f, err := w.Build()
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".workbook-*.xlsx")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = f.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
