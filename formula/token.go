package formula

import (
	"regexp"
	"strconv"
)

type tokenClass uint8

const (
	classInvalid tokenClass = iota
	classLeftParen
	classRightParen
	classOperator
	classNumber
	classVariable
)

var (
	// tokenRegex matches exactly one token at the start of the input.
	tokenRegex = regexp.MustCompile(`^(?:\(|\)|[+\-*/]|[A-Za-z_][A-Za-z0-9_]*|(?:\d+\.\d*|\d*\.\d+|\d+)(?:[eE][+-]?\d+)?)`)

	variableRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	numberRegex   = regexp.MustCompile(`^(?:\d+\.\d*|\d*\.\d+|\d+)(?:[eE][+-]?\d+)?$`)
)

// IsVariable reports whether s is a well-formed variable (cell name):
// a letter or underscore followed by letters, digits and underscores.
func IsVariable(s string) bool {
	return variableRegex.MatchString(s)
}

// IsNumber reports whether s is an unsigned number literal, optionally
// in scientific notation.
func IsNumber(s string) bool {
	return numberRegex.MatchString(s)
}

func classify(tok string) tokenClass {
	switch tok {
	case "(":
		return classLeftParen
	case ")":
		return classRightParen
	case "+", "-", "*", "/":
		return classOperator
	}
	if IsNumber(tok) {
		return classNumber
	}
	if IsVariable(tok) {
		return classVariable
	}
	return classInvalid
}

// isOperand reports whether the class may start an expression or follow an operator.
func (c tokenClass) isOperand() bool {
	return c == classNumber || c == classVariable
}

// tokenize splits s into tokens. Whitespace separates tokens and is dropped.
// Runs of characters that form no token are kept as a single token so the
// validator can report them.
func tokenize(s string) []string {
	var tokens []string
	invalidStart := -1
	flushInvalid := func(end int) {
		if invalidStart >= 0 {
			tokens = append(tokens, s[invalidStart:end])
			invalidStart = -1
		}
	}

	for i := 0; i < len(s); {
		if isSpace(s[i]) {
			flushInvalid(i)
			i++
			continue
		}
		if loc := tokenRegex.FindStringIndex(s[i:]); loc != nil {
			flushInvalid(i)
			tokens = append(tokens, s[i:i+loc[1]])
			i += loc[1]
			continue
		}
		if invalidStart < 0 {
			invalidStart = i
		}
		i++
	}
	flushInvalid(len(s))
	return tokens
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// parseNumber parses a number literal. Literals outside the float64 range
// are rejected.
func parseNumber(tok string) (float64, bool) {
	if !IsNumber(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
