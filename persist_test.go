package xlcalc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlcalc/formula"
)

func buildMixedSheet(t *testing.T, opts ...Option) *Spreadsheet {
	t.Helper()
	s := New(opts...)
	mustSet(t, s, "A1", "5")
	mustSet(t, s, "A2", "2.50")
	mustSet(t, s, "B1", "hello world")
	mustSet(t, s, "B2", "=A1 * 2.0 + A2")
	mustSet(t, s, "C1", "=B2/(A1-5)")
	mustSet(t, s, "C2", "  padded text  ")
	return s
}

func assertSameCells(t *testing.T, want, got *Spreadsheet) {
	t.Helper()
	require.Equal(t, want.NonemptyNames(), got.NonemptyNames())
	for _, name := range want.NonemptyNames() {
		wc := contentsOf(t, want, name)
		gc := contentsOf(t, got, name)
		assert.True(t, ContentsEqual(wc, gc), "contents of %s: %#v vs %#v", name, wc, gc)
		assert.Equal(t, valueOf(t, want, name), valueOf(t, got, name), "value of %s", name)
	}
}

func TestSave_Document(t *testing.T) {
	s := New(WithVersion("v1"))
	mustSet(t, s, "B1", "=A1+1")
	mustSet(t, s, "A1", "1000000")
	mustSet(t, s, "C1", "a < b & c")

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	want := `<?xml version="1.0" encoding="UTF-8"?>
<spreadsheet version="v1">
  <cell>
    <name>A1</name>
    <contents>1000000</contents>
  </cell>
  <cell>
    <name>B1</name>
    <contents>=A1+1</contents>
  </cell>
  <cell>
    <name>C1</name>
    <contents>a &lt; b &amp; c</contents>
  </cell>
</spreadsheet>
`
	assert.Equal(t, want, buf.String())
	assert.False(t, s.Changed())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := buildMixedSheet(t, WithVersion("2.0"))
	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	loaded, err := Load(&buf, WithVersion("2.0"))
	require.NoError(t, err)
	assertSameCells(t, s, loaded)
	assert.False(t, loaded.Changed())
	assert.Equal(t, "2.0", loaded.Version())

	// Formula equality, not string identity: "2.0" was written as written.
	c := contentsOf(t, loaded, "B2").(FormulaContents)
	assert.True(t, c.Equal(formula.MustNew("A1*2+A2")))
	assert.IsType(t, ErrorValue{}, valueOf(t, loaded, "C1"))
}

func TestSaveLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xml")

	s := buildMixedSheet(t)
	require.NoError(t, s.SaveFile(path))
	assert.False(t, s.Changed())

	version, err := SavedVersion(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, version)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assertSameCells(t, s, loaded)

	// No temporary files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_AppliesNormalizerAndValidator(t *testing.T) {
	doc := `<spreadsheet version="default">
  <cell><name>a1</name><contents>3</contents></cell>
  <cell><name>b1</name><contents>=a1*2</contents></cell>
</spreadsheet>`

	s, err := Load(strings.NewReader(doc), WithNormalizer(strings.ToUpper))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, s.NonemptyNames())
	assert.Equal(t, Number(6), valueOf(t, s, "B1"))

	_, err = Load(strings.NewReader(doc), WithValidator(func(n string) bool { return n != "b1" }))
	assert.ErrorIs(t, err, ErrReadWrite)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `<spreadsheet version="default"><cell>`, ErrReadWrite},
		{"wrong root", `<book version="default"></book>`, ErrReadWrite},
		{"no version", `<spreadsheet></spreadsheet>`, ErrReadWrite},
		{"version mismatch", `<spreadsheet version="other"></spreadsheet>`, ErrReadWrite},
		{"circular", `<spreadsheet version="default">
			<cell><name>A1</name><contents>=B1</contents></cell>
			<cell><name>B1</name><contents>=A1</contents></cell>
		</spreadsheet>`, ErrCircularReference},
		{"bad name", `<spreadsheet version="default">
			<cell><name>1A</name><contents>1</contents></cell>
		</spreadsheet>`, ErrInvalidName},
		{"empty", ``, ErrReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(strings.NewReader(tt.doc))
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrReadWrite)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_BadFormulaIsFormatError(t *testing.T) {
	doc := `<spreadsheet version="default"><cell><name>A1</name><contents>=1+</contents></cell></spreadsheet>`
	_, err := Load(strings.NewReader(doc))
	var fe *formula.FormatError
	assert.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrReadWrite)
}

func TestLoad_VersionCheckedBeforeCells(t *testing.T) {
	// The bad cell would fail too, but the version mismatch must win.
	doc := `<spreadsheet version="old"><cell><name>1A</name><contents>1</contents></cell></spreadsheet>`
	_, err := Load(strings.NewReader(doc))
	require.ErrorIs(t, err, ErrReadWrite)
	assert.NotErrorIs(t, err, ErrInvalidName)
	assert.Contains(t, err.Error(), "version mismatch")
}

func TestFilePaths(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SaveFile(""), ErrReadWrite)

	_, err := LoadFile("")
	assert.ErrorIs(t, err, ErrReadWrite)
	_, err = SavedVersion("")
	assert.ErrorIs(t, err, ErrReadWrite)

	missing := filepath.Join(t.TempDir(), "missing.xml")
	_, err = LoadFile(missing)
	assert.ErrorIs(t, err, ErrReadWrite)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = s.SaveFile(filepath.Join(t.TempDir(), "no", "such", "dir.xml"))
	assert.ErrorIs(t, err, ErrReadWrite)
}

func TestSaveFile_FailureKeepsChangedFlag(t *testing.T) {
	s := New()
	mustSet(t, s, "A1", "1")
	err := s.SaveFile(filepath.Join(t.TempDir(), "no", "dir.xml"))
	require.Error(t, err)
	assert.True(t, s.Changed())
}

func TestReadVersion(t *testing.T) {
	v, err := ReadVersion(strings.NewReader(`<spreadsheet version="x9"/>`))
	require.NoError(t, err)
	assert.Equal(t, "x9", v)

	v, err = ReadVersion(strings.NewReader(`<spreadsheet version=""/>`))
	require.NoError(t, err)
	assert.Equal(t, "", v)
}
