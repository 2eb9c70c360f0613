package xlcalc

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable listing of every non-empty cell with
// its contents, value and direct dependents. Useful for debugging and for
// the command-line tool.
//
//	Spreadsheet (version "default", 2 cells)
//	  A1  5  = 5  → B1
//	  B1  =A1+1  = 6
func (s *Spreadsheet) Describe() string {
	names := s.NonemptyNames()

	var b strings.Builder
	fmt.Fprintf(&b, "Spreadsheet (version %q, %d cells)", s.Version(), len(names))
	if s.changed {
		b.WriteString(" *modified*")
	}
	b.WriteByte('\n')

	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		c := s.cells[name]
		fmt.Fprintf(&b, "  %-*s  %s  = %s", width, name, c.contents.Raw(), describeValue(c.value))
		if deps := s.graph.Dependents(name); len(deps) > 0 {
			fmt.Fprintf(&b, "  → %s", strings.Join(deps, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func describeValue(v Value) string {
	switch x := v.(type) {
	case Text:
		return fmt.Sprintf("%q", string(x))
	case nil:
		return "<unset>"
	default:
		return x.String()
	}
}
