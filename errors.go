package xlcalc

import "errors"

var (
	// ErrInvalidName is returned when a cell name, after normalization, is
	// not an identifier or is rejected by the configured validator.
	ErrInvalidName = errors.New("invalid cell name")

	// ErrCircularReference is returned by SetContents when the new contents
	// would make a cell depend on itself. The spreadsheet is left unchanged.
	ErrCircularReference = errors.New("circular reference")

	// ErrReadWrite is returned for empty paths, malformed documents, version
	// mismatches and I/O failures while loading or saving.
	ErrReadWrite = errors.New("spreadsheet read/write error")
)
