package xlcalc

import (
	"strconv"

	"github.com/javajack/xlcalc/formula"
)

// Contents is what a user put into a cell: a Number, a Text or a
// FormulaContents. Use a type switch to handle each case.
type Contents interface {
	isContents()
	// Raw returns the contents in the form accepted by SetContents.
	Raw() string
}

// Value is what a cell evaluates to: a Number, a Text or an ErrorValue.
type Value interface {
	isValue()
	String() string
}

// Number is numeric contents or a numeric value.
type Number float64

func (Number) isContents() {}
func (Number) isValue()    {}

// Raw formats the number so that it parses back to the same value.
func (n Number) Raw() string { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

// Text is free-form contents or a text value. The empty Text is what
// absent cells report.
type Text string

func (Text) isContents() {}
func (Text) isValue()    {}

func (t Text) Raw() string    { return string(t) }
func (t Text) String() string { return string(t) }

// FormulaContents is contents holding a validated formula.
type FormulaContents struct {
	*formula.Formula
}

func (FormulaContents) isContents() {}

// Raw returns "=" followed by the formula's canonical form.
func (f FormulaContents) Raw() string { return "=" + f.Formula.String() }

// ErrorValue is the value of a formula cell that could not be evaluated.
type ErrorValue struct {
	Reason string
}

func (ErrorValue) isValue() {}

func (e ErrorValue) String() string { return "#ERROR: " + e.Reason }

// ContentsEqual reports whether two contents are the same kind and equal.
// Formulas compare with formula.Formula.Equal.
func ContentsEqual(a, b Contents) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case FormulaContents:
		y, ok := b.(FormulaContents)
		return ok && x.Formula.Equal(y.Formula)
	}
	return a == nil && b == nil
}

// cell is a stored, non-empty cell.
type cell struct {
	contents Contents
	value    Value
}

func newCell(c Contents) *cell {
	switch x := c.(type) {
	case Number:
		return &cell{contents: x, value: x}
	case Text:
		return &cell{contents: x, value: x}
	}
	// Formula values are filled in by the recalculation sweep.
	return &cell{contents: c}
}
