package dataset

import "errors"

var (
	// ErrColumnNotFound indicates a column selection that does not exist in the dataset.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNotNumeric indicates a numeric operation on a non-numeric column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrNoNumericColumns indicates the dataset has no numeric column to work with.
	ErrNoNumericColumns = errors.New("dataset has no numeric columns")
	// ErrNoCategoricalColumns indicates the dataset has no categorical column to work with.
	ErrNoCategoricalColumns = errors.New("dataset has no categorical columns")
	// ErrEmptyColumn indicates a column with no non-missing values.
	ErrEmptyColumn = errors.New("column has no values")
	// ErrInvalidShape indicates a non-rectangular table or a bad column name.
	ErrInvalidShape = errors.New("invalid dataset shape")
)

// IsInfo reports whether err describes a request the data cannot satisfy
// rather than a failure. Callers show these as informational notices.
func IsInfo(err error) bool {
	return errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrNoNumericColumns) ||
		errors.Is(err, ErrNoCategoricalColumns) ||
		errors.Is(err, ErrEmptyColumn)
}
