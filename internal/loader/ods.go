package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

const (
	odfEngine = "odf"

	nsTable  = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsOffice = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsText   = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

// parseODS reads the selected sheet of an OpenDocument spreadsheet.
func parseODS(path string, opt Options) (*dataset.Dataset, []Attempt) {
	ds, err := readODS(path, opt)
	if err != nil {
		return nil, []Attempt{{Engine: odfEngine, Err: err}}
	}
	return ds, nil
}

func readODS(path string, opt Options) (*dataset.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ods: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open ods: %w", err)
	}
	content, err := readZipEntry(zr, "content.xml")
	if err != nil {
		return nil, err
	}
	rows, err := odsRows(content, opt.Sheet, opt.SheetIndex, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return fromRows(filepath.Base(path), rows)
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("missing %s", name)
}

// odsSheetReader accumulates rows of one table:table element. Repeated
// empty rows and cells are held back and only materialized when followed by
// content, so trailing padding (often a million repeated rows) never expands.
type odsSheetReader struct {
	rows        [][]string
	pendingRows int
	row         []string
	pendingCell int
	rowRepeat   int
}

func (r *odsSheetReader) startRow(repeat int) {
	r.row = nil
	r.pendingCell = 0
	r.rowRepeat = repeat
}

func (r *odsSheetReader) addCell(v string, repeat int) {
	if strings.TrimSpace(v) == "" {
		r.pendingCell += repeat
		return
	}
	for ; r.pendingCell > 0; r.pendingCell-- {
		r.row = append(r.row, "")
	}
	for k := 0; k < repeat; k++ {
		r.row = append(r.row, v)
	}
}

func (r *odsSheetReader) endRow() {
	if len(r.row) == 0 {
		r.pendingRows += r.rowRepeat
		return
	}
	for ; r.pendingRows > 0; r.pendingRows-- {
		r.rows = append(r.rows, nil)
	}
	for k := 0; k < r.rowRepeat; k++ {
		r.rows = append(r.rows, append([]string(nil), r.row...))
	}
}

// odsRows streams content.xml and returns the text rows of the selected sheet.
func odsRows(content []byte, sheetName string, sheetIndex int, file string) ([][]string, error) {
	if sheetIndex <= 0 {
		sheetIndex = 1
	}
	dec := xml.NewDecoder(bytes.NewReader(content))
	var (
		sheets   []string
		target   *odsSheetReader
		inCell   bool
		inPara   bool
		paras    int
		repeat   int
		value    string
		hasValue bool
		text     strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsTable && t.Name.Local == "table":
				name := attr(t, nsTable, "name")
				sheets = append(sheets, name)
				if (sheetName != "" && strings.EqualFold(name, sheetName)) || (sheetName == "" && len(sheets) == sheetIndex) {
					target = &odsSheetReader{}
				}
			case target == nil:
			case t.Name.Space == nsTable && t.Name.Local == "table-row":
				target.startRow(atoiDefault(attr(t, nsTable, "number-rows-repeated"), 1))
			case t.Name.Space == nsTable && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell"):
				inCell = true
				paras = 0
				text.Reset()
				repeat = atoiDefault(attr(t, nsTable, "number-columns-repeated"), 1)
				value, hasValue = cellValue(t)
			case inCell && t.Name.Space == nsText && t.Name.Local == "p":
				if paras > 0 {
					text.WriteByte('\n')
				}
				paras++
				inPara = true
			case inPara && t.Name.Space == nsText && t.Name.Local == "s":
				text.WriteString(strings.Repeat(" ", atoiDefault(attr(t, nsText, "c"), 1)))
			case inPara && t.Name.Space == nsText && t.Name.Local == "tab":
				text.WriteByte('\t')
			}
		case xml.CharData:
			if inPara {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case target == nil:
			case t.Name.Space == nsText && t.Name.Local == "p":
				inPara = false
			case t.Name.Space == nsTable && (t.Name.Local == "table-cell" || t.Name.Local == "covered-table-cell"):
				v := value
				if !hasValue {
					v = text.String()
				}
				target.addCell(v, repeat)
				inCell = false
			case t.Name.Space == nsTable && t.Name.Local == "table-row":
				target.endRow()
			case t.Name.Space == nsTable && t.Name.Local == "table":
				rows := target.rows
				target = nil
				if len(rows) == 0 {
					return nil, errNoColumns
				}
				return rows, nil
			}
		}
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", file)
	}
	if sheetName != "" {
		return nil, fmt.Errorf("sheet '%s' not found in spreadsheet '%s'; available sheets: %s",
			sheetName, file, strings.Join(sheets, ", "))
	}
	return nil, fmt.Errorf("sheet index %d out of range: spreadsheet '%s' has %d sheet(s)", sheetIndex, file, len(sheets))
}

// cellValue returns the typed value attribute of a cell, if it carries one.
// String and time cells fall back to their paragraph text.
func cellValue(t xml.StartElement) (string, bool) {
	switch attr(t, nsOffice, "value-type") {
	case "float", "percentage", "currency":
		v := attr(t, nsOffice, "value")
		return v, v != ""
	case "date":
		v := attr(t, nsOffice, "date-value")
		return v, v != ""
	case "boolean":
		v := attr(t, nsOffice, "boolean-value")
		return v, v != ""
	}
	return "", false
}

func attr(t xml.StartElement, space, local string) string {
	for _, a := range t.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
