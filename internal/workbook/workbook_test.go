package workbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"markethealth/internal/catalog"
	"markethealth/internal/scrapers/chartink"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSheetName(t *testing.T) {
	require.Equal(t, "Top Gainers", SheetName("Top Gainers"))
	require.Equal(t, "a_b_c_d", SheetName("a/b:c?d"))
	require.Equal(t, "(x)", SheetName("[x]"))

	long := SheetName(strings.Repeat("é", 40))
	require.Equal(t, MaxSheetName, utf8.RuneCountInString(long))
}

func TestUniqueSheetName(t *testing.T) {
	taken := map[string]struct{}{"metadata": {}}
	require.Equal(t, "metadata (2)", uniqueSheetName("metadata", taken))

	base := strings.Repeat("a", 40)
	first := uniqueSheetName(base, taken)
	second := uniqueSheetName(base+"b", taken)
	require.Equal(t, strings.Repeat("a", 31), first)
	require.Equal(t, strings.Repeat("a", 27)+" (2)", second)
}

func shaped(t testing.TB, body string) *chartink.ResultSet {
	res, err := chartink.Shape([]byte(body))
	require.NoError(t, err)
	return res
}

func TestSave(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	wb := Workbook{
		UpdatedAt:    time.Date(2024, time.October, 1, 14, 5, 0, 0, ist),
		TotalQueries: 3,
		Sheets: []Sheet{
			{
				Query:  catalog.Query{Label: "Top Gainers", Icon: "🚀"},
				Result: shaped(t, `{"groupData": [{"name": "ABC", "results": [{"growth": [1, 2, 3], "pe": [20]}]}, {"name": "XYZ", "results": [{"growth": [1.7e308], "pe": [12.5]}]}]}`),
			},
			{
				Query:  catalog.Query{Label: "Empty", Icon: "📉"},
				Result: shaped(t, `{"groupData": []}`),
			},
			{
				Query:  catalog.Query{Label: "A very long label that does not fit in a sheet", Icon: "📈"},
				Result: shaped(t, `{"groupData": [{"name": "DEF"}]}`),
			},
		},
	}

	path := filepath.Join(t.TempDir(), "out", "market.xlsx")
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Metadata", "Top Gainers", "A very long label that does not"}, f.GetSheetList())

	metadata, err := f.GetRows(MetadataSheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Last Updated", "Total Queries"},
		{"01 Oct 2024, 02:05 PM", "3"},
	}, metadata)

	gainers, err := f.GetRows("Top Gainers")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Icon", "Stock", "Growth", "Pe"},
		{"🚀", "ABC", "3", "20"},
		{"🚀", "XYZ", "N/A", "12.5"},
	}, gainers)

	long, err := f.GetRows("A very long label that does not")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Icon", "Stock"}, {"📈", "DEF"}}, long)
}

func TestSaveStockFieldKeepsSingleColumn(t *testing.T) {
	wb := Workbook{
		UpdatedAt:    time.Unix(1727770000, 0),
		TotalQueries: 1,
		Sheets: []Sheet{{
			Query:  catalog.Query{Label: "Aliased", Icon: "i"},
			Result: shaped(t, `{"groupData": [{"name": "ABC", "results": [{"stock": [7], "growth": [3]}]}]}`),
		}},
	}

	path := filepath.Join(t.TempDir(), "market.xlsx")
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Aliased")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Icon", "Stock", "Growth"},
		{"i", "7", "3"},
	}, rows)
}
