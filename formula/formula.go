// Package formula parses, validates and evaluates infix arithmetic formulas
// over named variables.
//
// A formula is made of non-negative number literals, variables, the four
// operators + - * / and parentheses. Variables are normalized once when the
// formula is built, so a Formula is immutable after New returns.
package formula

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// FormatError reports a syntactically or semantically invalid formula.
type FormatError struct {
	Formula string
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Formula, e.Reason)
}

// Normalizer canonicalizes a variable name.
type Normalizer func(string) string

// Validator accepts or rejects a normalized variable name.
type Validator func(string) bool

type config struct {
	normalize Normalizer
	isValid   Validator
}

// Option configures formula construction.
type Option func(*config)

// WithNormalizer sets the function applied to every variable (default: identity).
func WithNormalizer(n Normalizer) Option {
	return func(c *config) {
		if n != nil {
			c.normalize = n
		}
	}
}

// WithValidator sets the predicate every normalized variable must satisfy
// (default: accept all).
func WithValidator(v Validator) Option {
	return func(c *config) {
		if v != nil {
			c.isValid = v
		}
	}
}

// Formula is a validated, normalized token sequence.
type Formula struct {
	tokens    []string
	variables []string
}

// New tokenizes and validates expression, then normalizes its variables.
// It returns a *FormatError if the expression is not a well-formed formula.
func New(expression string, opts ...Option) (*Formula, error) {
	cfg := config{
		normalize: func(s string) string { return s },
		isValid:   func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	fail := func(format string, args ...any) (*Formula, error) {
		return nil, &FormatError{Formula: expression, Reason: fmt.Sprintf(format, args...)}
	}

	tokens := tokenize(expression)
	if len(tokens) == 0 {
		return fail("formula is empty")
	}

	first, last := classify(tokens[0]), classify(tokens[len(tokens)-1])
	if !first.isOperand() && first != classLeftParen {
		return fail("formula must start with a number, variable or '(' but starts with %q", tokens[0])
	}
	if !last.isOperand() && last != classRightParen {
		return fail("formula must end with a number, variable or ')' but ends with %q", tokens[len(tokens)-1])
	}

	open, closed := 0, 0
	prev := classInvalid
	for i, tok := range tokens {
		class := classify(tok)
		switch class {
		case classInvalid:
			return fail("invalid token %q", tok)
		case classNumber:
			if _, ok := parseNumber(tok); !ok {
				return fail("number %q is out of range", tok)
			}
		case classLeftParen:
			open++
		case classRightParen:
			closed++
			if closed > open {
				return fail("unmatched ')' at token %d", i+1)
			}
		}

		if i > 0 {
			switch prev {
			case classLeftParen, classOperator:
				if !class.isOperand() && class != classLeftParen {
					return fail("%q must be followed by a number, variable or '(' but found %q", tokens[i-1], tok)
				}
			default:
				if class != classRightParen && class != classOperator {
					return fail("%q must be followed by an operator or ')' but found %q", tokens[i-1], tok)
				}
			}
		}
		prev = class
	}
	if open != closed {
		return fail("unbalanced parentheses: %d '(' and %d ')'", open, closed)
	}

	f := &Formula{tokens: make([]string, len(tokens))}
	seen := make(map[string]bool)
	for i, tok := range tokens {
		if classify(tok) != classVariable {
			f.tokens[i] = tok
			continue
		}
		norm := cfg.normalize(tok)
		if !IsVariable(norm) {
			return fail("variable %q normalizes to %q, which is not a valid variable", tok, norm)
		}
		if !cfg.isValid(norm) {
			return fail("variable %q is not accepted by the validator", norm)
		}
		f.tokens[i] = norm
		if !seen[norm] {
			seen[norm] = true
			f.variables = append(f.variables, norm)
		}
	}
	return f, nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(expression string, opts ...Option) *Formula {
	f, err := New(expression, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Variables returns the distinct normalized variables in order of first appearance.
func (f *Formula) Variables() []string {
	out := make([]string, len(f.variables))
	copy(out, f.variables)
	return out
}

// Tokens returns a copy of the normalized token sequence.
func (f *Formula) Tokens() []string {
	out := make([]string, len(f.tokens))
	copy(out, f.tokens)
	return out
}

// String returns the canonical form: all tokens concatenated without separators.
func (f *Formula) String() string {
	return strings.Join(f.tokens, "")
}

// Equal reports whether both formulas have the same token sequence, comparing
// number literals by value ("2.0" equals "2.000") and all other tokens literally.
func (f *Formula) Equal(other *Formula) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.tokens) != len(other.tokens) {
		return false
	}
	for i, a := range f.tokens {
		b := other.tokens[i]
		av, aNum := parseNumber(a)
		bv, bNum := parseNumber(b)
		if aNum && bNum {
			if av != bv {
				return false
			}
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal.
func (f *Formula) Hash() uint64 {
	h := fnv.New64a()
	for _, tok := range f.tokens {
		if v, ok := parseNumber(tok); ok {
			tok = strconv.FormatFloat(v, 'g', -1, 64)
		}
		h.Write([]byte(tok))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
