package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

const accentedCSV = "name,city,score\nZoë,Besançon,1.5\nJosé,Málaga,2\nAnaïs,Orléans,3.25\n"

func writeFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, b, 0o644))
	return p
}

func encode(t *testing.T, enc encoding.Encoding, s string) []byte {
	t.Helper()
	out, err := enc.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

func allRows(ds *dataset.Dataset) [][]string {
	return ds.Head(ds.Rows())
}

func TestLoadCSVShape(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "people.CSV", []byte(accentedCSV))
	ds, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"name", "city", "score"}, ds.Names())
	score, err := ds.Column("score")
	require.NoError(t, err)
	assert.True(t, score.IsNumeric())
}

func TestLoadCSVEncodingFallback(t *testing.T) {
	dir := t.TempDir()
	ref, err := Load(writeFile(t, dir, "ref.csv", []byte(accentedCSV)), DefaultOptions())
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
	}{
		{"utf8-bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, accentedCSV...)},
		{"utf16le.csv", encode(t, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), accentedCSV)},
		{"utf16be.csv", encode(t, unicode.UTF16(unicode.BigEndian, unicode.UseBOM), accentedCSV)},
		{"latin1.csv", encode(t, charmap.ISO8859_1, accentedCSV)},
		{"cp1252.csv", encode(t, charmap.Windows1252, accentedCSV)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := Load(writeFile(t, dir, tc.name, tc.data), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, ref.Names(), ds.Names())
			assert.Equal(t, allRows(ref), allRows(ds))
		})
	}
}

func TestLoadCSVWindows1252Euro(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "prices.csv", encode(t, charmap.Windows1252, "item;price\ntea;3€\n"))
	ds, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"item", "price"}, ds.Names())
	assert.Equal(t, "3€", ds.Row(0)[1])
}

func TestLoadCSVUnknownEncodingIsSkipped(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.csv", []byte("a,b\n1,2\n"))
	opt := DefaultOptions()
	opt.Encodings = []string{"klingon", "utf-8"}
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Rows())
}

func TestLoadCSVEncodingsExhausted(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.csv", encode(t, charmap.ISO8859_1, "a\nÿ\n"))
	opt := DefaultOptions()
	opt.Encodings = []string{"utf-8", "utf-16"}
	ds, err := Load(p, opt)
	require.Error(t, err)
	assert.Nil(t, ds)
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Len(t, lerr.Attempts, 2)
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.ErrorIs(t, err, unicode.ErrMissingBOM)
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"notes.txt", []byte("a,b\n1,2\n"), ErrUnsupportedFormat},
		{"noext", []byte("a,b\n1,2\n"), ErrUnsupportedFormat},
		{"quote.csv", []byte("a,b\n\"x,1\n"), ErrCorrupted},
		{"long.csv", []byte("a,b\n1,2,3\n"), ErrCorrupted},
		{"empty.csv", []byte(""), ErrCorrupted},
		{"junk.xlsx", []byte("definitely not a zip"), ErrCorrupted},
		{"junk.xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0, 1, 2, 3}, ErrCorrupted},
		{"junk.ods", []byte("PK\x03\x04broken"), ErrCorrupted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := Load(writeFile(t, dir, tc.name, tc.data), DefaultOptions())
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "unsupported or corrupted file "+tc.name)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gone.csv"), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writeXLSX(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"region", "sales", "units"},
		{"north", 10.5, 3},
		{"south", 7, 2},
		{"east", 12.25, 5},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Data", cell, &row))
	}
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "cover"))
	p := filepath.Join(dir, "book.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestLoadWorkbook(t *testing.T) {
	dir := t.TempDir()
	p := writeXLSX(t, dir)

	opt := DefaultOptions()
	opt.Sheet = "data"
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"region", "sales", "units"}, ds.Names())
	sales, err := ds.Column("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 7, 12.25}, sales.Nums)

	// .xls goes through the same engine.
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	xls := writeFile(t, dir, "book.xls", b)
	opt.Sheet = ""
	opt.SheetIndex = 2
	ds, err = Load(xls, opt)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())

	opt.Sheet = "missing"
	_, err = Load(p, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available sheets: Sheet1, Data")

	opt.Sheet = ""
	opt.SheetIndex = 9
	_, err = Load(p, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadWorkbookStyledCells(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"amount", "share", "price", "day", "stamp"}))
	rows := [][]interface{}{
		{1234.5, 0.125, 9.99, 45352, 45352.5},
		{2000, 0.5, 15, 45353, 45353.25},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	euro := `#,##0.00 "EUR"`
	stampFmt := "yyyy-mm-dd hh:mm"
	styles := []struct {
		col   string
		style *excelize.Style
	}{
		{"A", &excelize.Style{NumFmt: 4}},
		{"B", &excelize.Style{NumFmt: 10}},
		{"C", &excelize.Style{CustomNumFmt: &euro}},
		{"D", &excelize.Style{NumFmt: 14}},
		{"E", &excelize.Style{CustomNumFmt: &stampFmt}},
	}
	for _, s := range styles {
		id, err := f.NewStyle(s.style)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", s.col+"2", s.col+"3", id))
	}
	p := filepath.Join(dir, "styled.xlsx")
	require.NoError(t, f.SaveAs(p))

	// The formatted text would not parse as a number.
	shown, err := f.GetCellValue("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "1,234.50", shown)

	ds, err := Load(p, DefaultOptions())
	require.NoError(t, err)
	want := map[string][]float64{
		"amount": {1234.5, 2000},
		"share":  {0.125, 0.5},
		"price":  {9.99, 15},
	}
	for name, vals := range want {
		c, err := ds.Column(name)
		require.NoError(t, err)
		assert.True(t, c.IsNumeric(), name)
		assert.Equal(t, vals, c.Nums, name)
	}
	day, err := ds.Column("day")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindDatetime, day.Kind)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, day.Strs)
	stamp, err := ds.Column("stamp")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindDatetime, stamp.Kind)
	assert.Equal(t, []string{"2024-03-01 12:00:00", "2024-03-02 06:00:00"}, stamp.Strs)
}

func TestDateFormat(t *testing.T) {
	for code, want := range map[string]bool{
		"yyyy-mm-dd":           true,
		"[h]:mm:ss":            true,
		"mm:ss":                true,
		`#,##0.00 "EUR"`:       false,
		"0.0%":                 false,
		"[Red]#,##0;[Blue]0.0": false,
		`0.00 "days"`:          false,
		"0.00E+00":             false,
	} {
		assert.Equal(t, want, dateFormat(code), code)
	}
}

const odsContent = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet>
<table:table table:name="Notes"><table:table-row><table:table-cell office:value-type="string"><text:p>ignore me</text:p></table:table-cell></table:table-row></table:table>
<table:table table:name="Data">
<table:table-row>
<table:table-cell office:value-type="string"><text:p>name</text:p></table:table-cell>
<table:table-cell office:value-type="string"><text:p>score</text:p></table:table-cell>
<table:table-cell office:value-type="string"><text:p>joined</text:p></table:table-cell>
<table:table-cell table:number-columns-repeated="1021"/>
</table:table-row>
<table:table-row>
<table:table-cell office:value-type="string"><text:p>ann<text:s text:c="2"/>lee</text:p></table:table-cell>
<table:table-cell office:value-type="float" office:value="1.5"><text:p>1,50</text:p></table:table-cell>
<table:table-cell office:value-type="date" office:date-value="2024-03-01"><text:p>01.03.24</text:p></table:table-cell>
</table:table-row>
<table:table-row table:number-rows-repeated="2">
<table:table-cell office:value-type="string"><text:p>bob</text:p></table:table-cell>
<table:table-cell table:number-columns-repeated="2" office:value-type="float" office:value="2"><text:p>2</text:p></table:table-cell>
</table:table-row>
<table:table-row table:number-rows-repeated="1048570"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
</table:table>
</office:spreadsheet></office:body></office:document-content>`

func writeODS(t *testing.T, dir, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("mimetype")
	require.NoError(t, err)
	_, err = w.Write([]byte("application/vnd.oasis.opendocument.spreadsheet"))
	require.NoError(t, err)
	w, err = zw.Create("content.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return writeFile(t, dir, name, buf.Bytes())
}

func TestLoadODS(t *testing.T) {
	dir := t.TempDir()
	p := writeODS(t, dir, "scores.ods", odsContent)

	opt := DefaultOptions()
	opt.Sheet = "Data"
	ds, err := Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score", "joined"}, ds.Names())
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, "ann  lee", ds.Row(0)[0])
	score, err := ds.Column("score")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 2}, score.Nums)

	opt.Sheet = ""
	opt.SheetIndex = 1
	ds, err = Load(p, opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"ignore me"}, ds.Names())
	assert.Equal(t, 0, ds.Rows())

	opt.Sheet = "Nope"
	_, err = Load(p, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available sheets: Notes, Data")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	ds, err := Load(writeFile(t, dir, "in.csv", []byte("a,b\n1,x\n,y\n")), DefaultOptions())
	require.NoError(t, err)

	b, err := Export(ds, "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n,y\n", string(b))

	b, err = Export(ds, "out.xlsx")
	require.NoError(t, err)
	back, err := Load(writeFile(t, dir, "back.xlsx", b), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, allRows(ds), allRows(back))

	_, err = Export(ds, "out.ods")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter("a;b;\"c,d\"\n1;2;3"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb\n"))
	assert.Equal(t, ',', sniffDelimiter("single"))
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"a.csv": FormatCSV, "B.XLSX": FormatXLSX, "c.xls": FormatXLS, "d.Ods": FormatODS,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("e.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, []string{".csv", ".ods", ".xls", ".xlsx"}, Extensions())
}
