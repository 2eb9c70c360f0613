package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_SetGetShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xml")

	out, err := run(t, "-f", path, "set", "A1", "5")
	require.NoError(t, err)
	assert.Equal(t, "A1 = 5\n", out)

	out, err = run(t, "-f", path, "set", "B1", "=A1*2")
	require.NoError(t, err)
	assert.Equal(t, "B1 = 10\n", out)

	out, err = run(t, "-f", path, "set", "A1", "7")
	require.NoError(t, err)
	assert.Equal(t, "A1 = 7\nB1 = 14\n", out)

	out, err = run(t, "-f", path, "get", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "contents: =A1*2")
	assert.Contains(t, out, "value:    14")

	out, err = run(t, "-f", path, "get", "A1")
	require.NoError(t, err)
	assert.Contains(t, out, "used by:  B1")

	out, err = run(t, "-f", path, "show")
	require.NoError(t, err)
	assert.Contains(t, out, `Spreadsheet (version "default", 2 cells)`)
	assert.NotContains(t, out, "*modified*")
}

func TestCLI_SetErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xml")
	_, err := run(t, "-f", path, "set", "A1", "=B1")
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = run(t, "-f", path, "set", "B1", "=A1")
	assert.ErrorContains(t, err, "circular reference")

	_, err = run(t, "-f", path, "set", "1B", "2")
	assert.ErrorContains(t, err, "invalid cell name")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = run(t, "set", "A1", "1")
	assert.ErrorContains(t, err, "--file is required")
}

func TestCLI_NameOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xml")

	out, err := run(t, "-f", path, "--upper", "set", "a1", "5")
	require.NoError(t, err)
	assert.Equal(t, "A1 = 5\n", out)

	_, err = run(t, "-f", path, "--rule", `name matches "^[A-Z][0-9]$"`, "set", "AB12", "1")
	assert.ErrorContains(t, err, "invalid cell name")

	_, err = run(t, "-f", path, "--rule", "name +", "show")
	assert.Error(t, err)

	_, err = run(t, "-f", path, "--version", "v2", "show")
	assert.ErrorContains(t, err, "version mismatch")
}

func TestCLI_Lint(t *testing.T) {
	dir := t.TempDir()

	clean := filepath.Join(dir, "clean.xml")
	_, err := run(t, "-f", clean, "set", "A1", "1")
	require.NoError(t, err)
	out, err := run(t, "-f", clean, "lint")
	require.NoError(t, err)
	assert.Equal(t, "no issues\n", out)

	broken := filepath.Join(dir, "broken.xml")
	require.NoError(t, os.WriteFile(broken, []byte(`<spreadsheet version="default">
  <cell><name>A1</name><contents>=A1</contents></cell>
  <cell><name>B1</name><contents>=1/0</contents></cell>
</spreadsheet>`), 0o644))
	out, err = run(t, "-f", broken, "lint")
	assert.ErrorContains(t, err, "1 error(s)")
	assert.Contains(t, out, "[ERROR] A1: circular reference")
	assert.Contains(t, out, "[WARN] B1: formula evaluates to an error: division by zero")

	_, err = run(t, "lint")
	assert.ErrorContains(t, err, "--file is required")
}

func TestCLI_ExportImport(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.xml")
	workbook := filepath.Join(dir, "book.xlsx")
	copyPath := filepath.Join(dir, "copy.xml")

	_, err := run(t, "-f", book, "set", "A1", "4")
	require.NoError(t, err)
	_, err = run(t, "-f", book, "set", "A2", "=A1*A1")
	require.NoError(t, err)

	out, err := run(t, "-f", book, "export", workbook)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+workbook)

	out, err = run(t, "-f", copyPath, "import", workbook)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 cells")

	out, err = run(t, "-f", copyPath, "get", "A2")
	require.NoError(t, err)
	assert.Contains(t, out, "value:    16")
}

func TestCLI_EnvironmentDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xml")
	t.Setenv("XLCALC_FILE", path)
	t.Setenv("XLCALC_VERSION", "v7")

	_, err := run(t, "set", "A1", "3")
	require.NoError(t, err)

	out, err := run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, `Spreadsheet (version "v7", 1 cells)`)

	_, err = run(t, "-f", path, "--version", "default", "show")
	assert.ErrorContains(t, err, "version mismatch")
}

func TestEnvOr(t *testing.T) {
	t.Setenv("XLCALC_TEST_KEY", "")
	assert.Equal(t, "fallback", envOr("XLCALC_TEST_KEY", "fallback"))
	t.Setenv("XLCALC_TEST_KEY", "set")
	assert.Equal(t, "set", envOr("XLCALC_TEST_KEY", "fallback"))
}
