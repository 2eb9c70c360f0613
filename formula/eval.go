package formula

import "fmt"

// Error is the value-level result of a formula that could not be evaluated,
// such as a division by zero or a variable without a numeric value.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Lookup resolves a normalized variable to its numeric value.
type Lookup func(name string) (float64, error)

// Evaluate computes the formula's value, resolving variables with lookup.
// A non-nil error is always an *Error; Evaluate never panics on a formula
// built by New.
func (f *Formula) Evaluate(lookup Lookup) (float64, error) {
	var (
		ops  []string
		vals []float64
	)
	top := func() string {
		if len(ops) == 0 {
			return ""
		}
		return ops[len(ops)-1]
	}
	// fold pops one operator and two operands and pushes the result.
	fold := func() error {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		y := vals[len(vals)-1]
		x := vals[len(vals)-2]
		vals = vals[:len(vals)-2]

		var r float64
		switch op {
		case "+":
			r = x + y
		case "-":
			r = x - y
		case "*":
			r = x * y
		case "/":
			if y == 0 {
				return &Error{Reason: "division by zero"}
			}
			r = x / y
		}
		vals = append(vals, r)
		return nil
	}

	for _, tok := range f.tokens {
		switch tok {
		case "+", "-":
			if t := top(); t == "+" || t == "-" {
				if err := fold(); err != nil {
					return 0, err
				}
			}
			ops = append(ops, tok)

		case "*", "/", "(":
			ops = append(ops, tok)

		case ")":
			if t := top(); t == "+" || t == "-" {
				if err := fold(); err != nil {
					return 0, err
				}
			}
			ops = ops[:len(ops)-1] // matching "("
			if t := top(); t == "*" || t == "/" {
				if err := fold(); err != nil {
					return 0, err
				}
			}

		default:
			v, err := f.operand(tok, lookup)
			if err != nil {
				return 0, err
			}
			vals = append(vals, v)
			if t := top(); t == "*" || t == "/" {
				if err := fold(); err != nil {
					return 0, err
				}
			}
		}
	}

	for len(ops) > 0 {
		if err := fold(); err != nil {
			return 0, err
		}
	}
	return vals[len(vals)-1], nil
}

func (f *Formula) operand(tok string, lookup Lookup) (float64, error) {
	if v, ok := parseNumber(tok); ok {
		return v, nil
	}
	if lookup == nil {
		return 0, &Error{Reason: fmt.Sprintf("undefined variable %q", tok)}
	}
	v, err := lookup(tok)
	if err != nil {
		return 0, &Error{Reason: fmt.Sprintf("cannot resolve %q: %v", tok, err)}
	}
	return v, nil
}
