package xlcalc

import (
	"errors"
	"fmt"
	"io"

	"github.com/expr-lang/expr"

	"github.com/javajack/xlcalc/formula"
)

// NameRule compiles an expr-lang boolean expression over the variable
// "name" into a validator for WithValidator. For example:
//
//	rule, err := NameRule(`name matches "^[A-Z]{1,2}[1-9][0-9]?$"`)
//
// A name for which the expression fails to run is rejected.
func NameRule(expression string) (func(string) bool, error) {
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{"name": ""}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile name rule %q: %w", expression, err)
	}
	return func(name string) bool {
		out, err := expr.Run(program, map[string]any{"name": name})
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}

// Severity indicates the severity of a lint issue.
type Severity int

const (
	SeverityError   Severity = iota // Loading the document will fail
	SeverityWarning                 // The document loads but may not be what was intended
)

// Issue is a single problem found by Lint.
type Issue struct {
	Severity Severity
	Cell     string // cell name as written in the document; empty for document-level issues
	Message  string
}

// String formats the issue as "[ERROR] A2: message" or "[WARN] message".
func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	if i.Cell == "" {
		return fmt.Sprintf("[%s] %s", sev, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", sev, i.Cell, i.Message)
}

// Lint checks the document in r without building a spreadsheet from it.
// It reports every problem it finds instead of stopping at the first one.
// A non-nil error means the document could not be parsed at all.
func Lint(r io.Reader, opts ...Option) ([]Issue, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}

	scratch := New(opts...)
	var issues []Issue
	switch {
	case doc.Version == nil:
		issues = append(issues, Issue{Severity: SeverityError, Message: "document has no version attribute"})
	case *doc.Version != scratch.Version():
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("version %q does not match expected %q", *doc.Version, scratch.Version()),
		})
	}

	seen := make(map[string]bool)
	for _, rec := range doc.Cells {
		if norm, err := scratch.normalizeName(rec.Name); err == nil {
			if seen[norm] {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Cell:     rec.Name,
					Message:  fmt.Sprintf("cell %s appears more than once; the last record wins", norm),
				})
			}
			seen[norm] = true
		}
		if _, err := scratch.SetContents(rec.Name, rec.Contents); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Cell: rec.Name, Message: describeSetError(err)})
		}
	}

	for _, name := range scratch.NonemptyNames() {
		if ev, ok := scratch.cells[name].value.(ErrorValue); ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Cell:     name,
				Message:  "formula evaluates to an error: " + ev.Reason,
			})
		}
	}
	return issues, nil
}

func describeSetError(err error) string {
	var fe *formula.FormatError
	switch {
	case errors.Is(err, ErrInvalidName):
		return "invalid cell name"
	case errors.As(err, &fe):
		return "invalid formula: " + fe.Reason
	case errors.Is(err, ErrCircularReference):
		return "circular reference"
	}
	return err.Error()
}
