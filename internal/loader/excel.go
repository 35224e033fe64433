package loader

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/xuri/excelize/v2"
)

const excelEngine = "excelize"

// parseWorkbook reads the selected sheet of an .xlsx/.xls workbook.
func parseWorkbook(path string, opt Options) (*dataset.Dataset, []Attempt) {
	ds, err := readWorkbook(path, opt)
	if err != nil {
		return nil, []Attempt{{Engine: excelEngine, Err: err}}
	}
	return ds, nil
}

func readWorkbook(path string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheet, err := pickSheet(f.GetSheetList(), opt.Sheet, opt.SheetIndex, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	// Raw values keep styled numbers ("1,234.50", "12%") numeric.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	convertDates(f, sheet, rows)
	return fromRows(filepath.Base(path), rows)
}

// convertDates rewrites date-styled serial numbers as ISO timestamps. Raw
// reads return them as plain serials.
func convertDates(f *excelize.File, sheet string, rows [][]string) {
	isDate := map[int]bool{}
	for r, row := range rows {
		if r == 0 {
			continue
		}
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			id, err := f.GetCellStyle(sheet, cell)
			if err != nil || id == 0 {
				continue
			}
			date, ok := isDate[id]
			if !ok {
				date = dateStyle(f, id)
				isDate[id] = date
			}
			if !date {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				continue
			}
			row[c] = formatSerialTime(t)
		}
	}
}

func formatSerialTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// dateStyle reports whether style id formats numbers as dates or times.
func dateStyle(f *excelize.File, id int) bool {
	st, err := f.GetStyle(id)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return dateFormat(*st.CustomNumFmt)
	}
	switch n := st.NumFmt; {
	case n >= 14 && n <= 22, n >= 27 && n <= 36, n >= 45 && n <= 47, n >= 50 && n <= 58:
		return true
	}
	return false
}

// dateFormat inspects a custom number format code outside quoted literals,
// escapes and [..] sections.
func dateFormat(code string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == '\\':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	s := strings.ToLower(b.String())
	if strings.ContainsAny(s, "ydh") {
		return true
	}
	return strings.ContainsAny(s, "ms") && !strings.ContainsAny(s, "0#?")
}

// pickSheet resolves a sheet by case-insensitive name, else by 1-based index.
func pickSheet(sheets []string, name string, index int, file string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", file)
	}
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
			name, file, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheet(s)", index, file, len(sheets))
	}
	return sheets[index-1], nil
}
