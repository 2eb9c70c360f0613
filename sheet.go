// Package xlcalc is an in-memory spreadsheet engine. Cells hold numbers,
// text or arithmetic formulas over other cells; every edit recomputes the
// affected formulas in dependency order and rejects circular references.
package xlcalc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/javajack/xlcalc/depgraph"
	"github.com/javajack/xlcalc/formula"
)

// numberRegex matches contents that are stored as a Number.
var numberRegex = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\d*\.\d+|\d+)(?:[eE][+-]?\d+)?$`)

// Spreadsheet stores cells and keeps their values consistent with their
// contents. It is not safe for concurrent use.
type Spreadsheet struct {
	opts    *Options
	cells   map[string]*cell
	graph   *depgraph.Graph
	changed bool
}

// New creates an empty Spreadsheet.
func New(opts ...Option) *Spreadsheet {
	return &Spreadsheet{
		opts:  buildOptions(opts),
		cells: make(map[string]*cell),
		graph: depgraph.New(),
	}
}

// Version returns the configured version tag.
func (s *Spreadsheet) Version() string {
	return s.opts.version
}

// Changed reports whether the spreadsheet was modified since it was
// created, loaded or last saved.
func (s *Spreadsheet) Changed() bool {
	return s.changed
}

// NonemptyNames returns the sorted names of all stored cells.
func (s *Spreadsheet) NonemptyNames() []string {
	names := make([]string, 0, len(s.cells))
	for name := range s.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contents returns the contents of the named cell, or Text("") if the cell is empty.
func (s *Spreadsheet) Contents(name string) (Contents, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	if c, ok := s.cells[name]; ok {
		return c.contents, nil
	}
	return Text(""), nil
}

// Value returns the value of the named cell, or Text("") if the cell is empty.
func (s *Spreadsheet) Value(name string) (Value, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	if c, ok := s.cells[name]; ok {
		return c.value, nil
	}
	return Text(""), nil
}

// Normalize returns the canonical form of a cell name, or an error wrapping
// ErrInvalidName.
func (s *Spreadsheet) Normalize(name string) (string, error) {
	return s.normalizeName(name)
}

// DirectDependents returns the sorted names of cells whose formulas
// reference the named cell directly.
func (s *Spreadsheet) DirectDependents(name string) ([]string, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	return s.graph.Dependents(name), nil
}

// SetContents parses text and stores it in the named cell:
//
//   - "" empties the cell;
//   - a number literal (optionally signed) is stored as a Number;
//   - text starting with "=" is parsed as a formula;
//   - anything else is stored as Text.
//
// It returns the normalized name of the cell followed by every cell whose
// value depends on it, directly or indirectly, in an order where each cell
// comes after all the cells it reads. Those values have already been
// recomputed when SetContents returns.
//
// SetContents returns an error wrapping ErrInvalidName, a *formula.FormatError
// or ErrCircularReference; in each case the spreadsheet is unchanged.
func (s *Spreadsheet) SetContents(name, text string) ([]string, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	contents, err := s.parseContents(text)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", name, err)
	}

	var dependees []string
	if f, ok := contents.(FormulaContents); ok {
		dependees = f.Variables()
	}

	saved := s.graph.Dependees(name)
	s.graph.ReplaceDependees(name, dependees)
	order, err := s.recalculationOrder(name)
	if err != nil {
		s.graph.ReplaceDependees(name, saved)
		return nil, fmt.Errorf("set %s: %w", name, err)
	}

	if contents == nil {
		delete(s.cells, name)
	} else {
		s.cells[name] = newCell(contents)
	}
	s.changed = true

	for _, n := range order {
		s.recalculate(n)
	}
	return order, nil
}

// parseContents classifies text. A nil Contents means the cell is emptied.
func (s *Spreadsheet) parseContents(text string) (Contents, error) {
	switch {
	case text == "":
		return nil, nil
	case numberRegex.MatchString(strings.TrimSpace(text)):
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			// Literals out of float64 range are kept as text.
			return Text(text), nil
		}
		return Number(n), nil
	case strings.HasPrefix(text, "="):
		f, err := formula.New(text[1:],
			formula.WithNormalizer(s.opts.normalize),
			formula.WithValidator(s.opts.isValid),
		)
		if err != nil {
			return nil, err
		}
		return FormulaContents{f}, nil
	}
	return Text(text), nil
}

// recalculate re-evaluates a formula cell in place. Non-formula and absent
// cells are left alone.
func (s *Spreadsheet) recalculate(name string) {
	c, ok := s.cells[name]
	if !ok {
		return
	}
	f, ok := c.contents.(FormulaContents)
	if !ok {
		return
	}
	v, err := f.Evaluate(s.lookup)
	if err != nil {
		c.value = ErrorValue{Reason: err.Error()}
		return
	}
	c.value = Number(v)
}

// lookup resolves a formula variable to the numeric value of a stored cell.
func (s *Spreadsheet) lookup(name string) (float64, error) {
	c, ok := s.cells[name]
	if !ok {
		return 0, fmt.Errorf("cell %s is empty", name)
	}
	switch v := c.value.(type) {
	case Number:
		return float64(v), nil
	case ErrorValue:
		return 0, fmt.Errorf("cell %s has an error", name)
	}
	return 0, fmt.Errorf("cell %s is not a number", name)
}

// recalculationOrder walks the dependents of start depth-first with an
// explicit stack and returns start followed by its transitive dependents in
// reverse post-order, so every cell appears after all cells it reads.
// Reaching a cell that is still on the current path means a cycle.
func (s *Spreadsheet) recalculationOrder(start string) ([]string, error) {
	type frame struct {
		name string
		next []string
	}
	visited := map[string]bool{start: true}
	onPath := map[string]bool{start: true}
	stack := []*frame{{name: start, next: s.graph.Dependents(start)}}
	var postOrder []string

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if len(top.next) == 0 {
			stack = stack[:len(stack)-1]
			delete(onPath, top.name)
			postOrder = append(postOrder, top.name)
			continue
		}
		n := top.next[0]
		top.next = top.next[1:]
		if onPath[n] {
			return nil, fmt.Errorf("%w: %s depends on itself through %s", ErrCircularReference, start, n)
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		onPath[n] = true
		stack = append(stack, &frame{name: n, next: s.graph.Dependents(n)})
	}

	order := make([]string, len(postOrder))
	for i, n := range postOrder {
		order[len(postOrder)-1-i] = n
	}
	return order, nil
}

// normalizeName applies the normalizer and checks the result against the
// identifier grammar and the configured validator.
func (s *Spreadsheet) normalizeName(name string) (string, error) {
	norm := s.opts.normalize(name)
	if !formula.IsVariable(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !s.opts.isValid(norm) {
		return "", fmt.Errorf("%w: %q rejected by validator", ErrInvalidName, name)
	}
	return norm, nil
}
