package loader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/xuri/excelize/v2"
)

// Export serializes a dataset as CSV or XLSX, chosen by the path extension.
// It returns the encoded bytes; writing them is up to the caller.
func Export(ds *dataset.Dataset, path string) ([]byte, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = ds.WriteCSV(&buf)
	case FormatXLSX:
		err = WriteXLSX(ds, &buf)
	default:
		return nil, fmt.Errorf("%w: cannot export %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the dataset to a single-sheet workbook. Numeric cells are
// stored as numbers and missing cells are left empty.
func WriteXLSX(ds *dataset.Dataset, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"
	header := make([]interface{}, ds.Width())
	for j, n := range ds.Names() {
		header[j] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := ds.Columns()
	for i := 0; i < ds.Rows(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			switch {
			case c.IsMissing(i):
				row[j] = nil
			case c.IsNumeric():
				row[j] = c.Nums[i]
			default:
				row[j] = c.Strs[i]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}
