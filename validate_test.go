package xlcalc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRule(t *testing.T) {
	rule, err := NameRule(`name matches "^[A-Z]{1,2}[1-9][0-9]?$"`)
	require.NoError(t, err)

	assert.True(t, rule("A1"))
	assert.True(t, rule("ZZ99"))
	assert.False(t, rule("A0"))
	assert.False(t, rule("a1"))
	assert.False(t, rule("A100"))
	assert.False(t, rule("total"))
}

func TestNameRule_CompileErrors(t *testing.T) {
	for _, expression := range []string{
		"name +",
		"len(name)",
		"unknown == 1",
	} {
		t.Run(expression, func(t *testing.T) {
			rule, err := NameRule(expression)
			assert.Error(t, err)
			assert.Nil(t, rule)
		})
	}
}

func TestNameRule_RuntimeErrorRejects(t *testing.T) {
	rule, err := NameRule(`int(name) > 0`)
	require.NoError(t, err)
	assert.True(t, rule("42"))
	assert.False(t, rule("A1"))
}

func TestNameRule_WithSpreadsheet(t *testing.T) {
	rule, err := NameRule(`len(name) <= 3`)
	require.NoError(t, err)
	s := New(WithValidator(rule))

	mustSet(t, s, "A1", "1")
	_, err = s.SetContents("LONG1", "1")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.SetContents("B1", "=LONG1+1")
	assert.Error(t, err)
	assert.Equal(t, []string{"A1"}, s.NonemptyNames())
}

func TestIssue_String(t *testing.T) {
	assert.Equal(t, "[ERROR] A2: bad", Issue{Severity: SeverityError, Cell: "A2", Message: "bad"}.String())
	assert.Equal(t, "[WARN] odd", Issue{Severity: SeverityWarning, Message: "odd"}.String())
}

func TestLint_CleanDocument(t *testing.T) {
	doc := `<spreadsheet version="default">
  <cell><name>A1</name><contents>1</contents></cell>
  <cell><name>B1</name><contents>=A1*2</contents></cell>
</spreadsheet>`
	issues, err := Lint(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_ReportsEveryProblem(t *testing.T) {
	doc := `<spreadsheet version="old">
  <cell><name>1A</name><contents>1</contents></cell>
  <cell><name>A1</name><contents>=1+</contents></cell>
  <cell><name>C1</name><contents>=C1+1</contents></cell>
  <cell><name>D1</name><contents>=10/0</contents></cell>
</spreadsheet>`
	issues, err := Lint(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, issues, 5)

	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Empty(t, issues[0].Cell)
	assert.Contains(t, issues[0].Message, `version "old"`)

	assert.Equal(t, Issue{Severity: SeverityError, Cell: "1A", Message: "invalid cell name"}, issues[1])

	assert.Equal(t, "A1", issues[2].Cell)
	assert.True(t, strings.HasPrefix(issues[2].Message, "invalid formula: "), issues[2].Message)

	assert.Equal(t, Issue{Severity: SeverityError, Cell: "C1", Message: "circular reference"}, issues[3])

	assert.Equal(t, SeverityWarning, issues[4].Severity)
	assert.Equal(t, "D1", issues[4].Cell)
	assert.Equal(t, "formula evaluates to an error: division by zero", issues[4].Message)
}

func TestLint_MissingVersion(t *testing.T) {
	issues, err := Lint(strings.NewReader(`<spreadsheet></spreadsheet>`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "[ERROR] document has no version attribute", issues[0].String())
}

func TestLint_DuplicateNames(t *testing.T) {
	doc := `<spreadsheet version="default">
  <cell><name>a1</name><contents>1</contents></cell>
  <cell><name>A1</name><contents>2</contents></cell>
</spreadsheet>`
	issues, err := Lint(strings.NewReader(doc), WithNormalizer(strings.ToUpper))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, "A1", issues[0].Cell)
	assert.Contains(t, issues[0].Message, "more than once")

	issues, err = Lint(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_MalformedDocument(t *testing.T) {
	_, err := Lint(strings.NewReader(`<spreadsheet version="default"><cell>`))
	assert.ErrorIs(t, err, ErrReadWrite)
}
