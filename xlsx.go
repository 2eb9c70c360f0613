package xlcalc

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet name used by ExportXLSX when none is given.
const DefaultSheet = "Sheet1"

// ExportXLSX writes every cell whose name is an upper-case A1-style
// reference into a new workbook: numbers as numbers, text as strings and
// formulas as formulas in canonical form. The spreadsheet version is stored
// in the workbook's document properties. Cells whose names are not exactly
// a grid reference are skipped, as are formulas reading a skipped cell or a
// variable that is not a grid reference. The skipped names are returned in
// sorted order.
func (s *Spreadsheet) ExportXLSX(w io.Writer, sheet string) (skipped []string, err error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("%w: rename sheet: %w", ErrReadWrite, err)
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator: "xlcalc",
		Version: s.Version(),
	}); err != nil {
		return nil, fmt.Errorf("%w: set document properties: %w", ErrReadWrite, err)
	}

	exported := s.exportableNames()
	for _, name := range s.NonemptyNames() {
		if !exported[name] {
			skipped = append(skipped, name)
			continue
		}
		if err := writeXLSXCell(f, sheet, name, s.cells[name]); err != nil {
			return nil, fmt.Errorf("%w: write %s: %w", ErrReadWrite, name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return nil, fmt.Errorf("%w: write workbook: %w", ErrReadWrite, err)
	}
	return skipped, nil
}

// exportableNames returns the stored cells that can be written to a grid.
// A formula cell is dropped when one of its variables is not a grid
// reference or names a dropped cell; that repeats until nothing changes so
// no exported formula points at a cell missing from the workbook.
func (s *Spreadsheet) exportableNames() map[string]bool {
	ok := make(map[string]bool, len(s.cells))
	for name := range s.cells {
		ok[name] = isGridRef(name)
	}
	for changed := true; changed; {
		changed = false
		for name, c := range s.cells {
			f, isFormula := c.contents.(FormulaContents)
			if !ok[name] || !isFormula {
				continue
			}
			for _, v := range f.Variables() {
				_, stored := s.cells[v]
				if !isGridRef(v) || (stored && !ok[v]) {
					ok[name] = false
					changed = true
					break
				}
			}
		}
	}
	return ok
}

// isGridRef reports whether name is spelled exactly as an A1 reference.
func isGridRef(name string) bool {
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return false
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	return err == nil && ref == name
}

func writeXLSXCell(f *excelize.File, sheet, ref string, c *cell) error {
	switch x := c.contents.(type) {
	case Number:
		return f.SetCellFloat(sheet, ref, float64(x), -1, 64)
	case Text:
		return f.SetCellStr(sheet, ref, string(x))
	case FormulaContents:
		// The cached value goes first: setting a value clears the formula,
		// and a formula cell without a value can be dropped by row readers.
		var err error
		if v, ok := c.value.(Number); ok {
			err = f.SetCellFloat(sheet, ref, float64(v), -1, 64)
		} else {
			err = f.SetCellStr(sheet, ref, c.value.String())
		}
		if err != nil {
			return err
		}
		return f.SetCellFormula(sheet, ref, x.Formula.String())
	}
	return nil
}

// ImportXLSX builds a Spreadsheet from the first worksheet of the workbook
// in r. If the workbook declares a version it must equal the configured
// version; workbooks without one are accepted. Formula cells may only use
// numbers, single-cell references, + - * / and parentheses.
func ImportXLSX(r io.Reader, opts ...Option) (*Spreadsheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrReadWrite, err)
	}
	defer f.Close()

	s := New(opts...)
	props, err := f.GetDocProps()
	if err != nil {
		return nil, fmt.Errorf("%w: read document properties: %w", ErrReadWrite, err)
	}
	if props.Version != "" && props.Version != s.Version() {
		return nil, fmt.Errorf("%w: version mismatch: workbook has %q, expected %q",
			ErrReadWrite, props.Version, s.Version())
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrReadWrite)
	}
	records, err := readXLSXRecords(f, sheets[0])
	if err != nil {
		return nil, err
	}
	if err := s.apply(records); err != nil {
		return nil, err
	}
	s.changed = false
	return s, nil
}

func readXLSXRecords(f *excelize.File, sheet string) ([]cellRecord, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", ErrReadWrite, sheet, err)
	}

	var records []cellRecord
	for rowIdx, row := range rows {
		for colIdx, val := range row {
			name, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrReadWrite, err)
			}
			formula, err := f.GetCellFormula(sheet, name)
			if err != nil {
				return nil, fmt.Errorf("%w: read formula %s: %w", ErrReadWrite, name, err)
			}
			if formula != "" {
				text, err := arithmeticFormula(formula)
				if err != nil {
					return nil, fmt.Errorf("%w: cell %s: %w", ErrReadWrite, name, err)
				}
				records = append(records, cellRecord{Name: name, Contents: "=" + text})
				continue
			}
			if val != "" {
				records = append(records, cellRecord{Name: name, Contents: val})
			}
		}
	}
	return records, nil
}

// arithmeticFormula tokenizes an Excel formula and rebuilds it in the
// formula language, rejecting functions, ranges, sheet references and
// non-arithmetic operators. Absolute-reference markers are dropped.
func arithmeticFormula(excel string) (string, error) {
	p := efp.ExcelParser()
	tokens := p.Parse(strings.TrimPrefix(excel, "="))
	if len(tokens) == 0 {
		return "", fmt.Errorf("empty formula %q", excel)
	}

	var b strings.Builder
	for _, tok := range tokens {
		switch tok.TType {
		case efp.TokenTypeWhitespace:
			continue
		case efp.TokenTypeOperand:
			switch tok.TSubType {
			case efp.TokenSubTypeNumber:
				b.WriteString(tok.TValue)
			case efp.TokenSubTypeRange:
				ref := strings.ReplaceAll(tok.TValue, "$", "")
				if strings.ContainsAny(ref, ":!") {
					return "", fmt.Errorf("formula %q uses unsupported reference %q", excel, tok.TValue)
				}
				b.WriteString(ref)
			default:
				return "", fmt.Errorf("formula %q uses unsupported operand %q", excel, tok.TValue)
			}
		case efp.TokenTypeOperatorInfix:
			switch tok.TValue {
			case "+", "-", "*", "/":
				b.WriteString(tok.TValue)
			default:
				return "", fmt.Errorf("formula %q uses unsupported operator %q", excel, tok.TValue)
			}
		case efp.TokenTypeSubexpression:
			if tok.TSubType == efp.TokenSubTypeStart {
				b.WriteString("(")
			} else {
				b.WriteString(")")
			}
		default:
			return "", fmt.Errorf("formula %q uses unsupported %s %q", excel, strings.ToLower(tok.TType), tok.TValue)
		}
	}
	return b.String(), nil
}
