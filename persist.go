package xlcalc

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// document is the XML form of a saved spreadsheet:
//
//	<spreadsheet version="v1">
//	  <cell><name>A1</name><contents>=B1+2</contents></cell>
//	</spreadsheet>
type document struct {
	XMLName xml.Name     `xml:"spreadsheet"`
	Version *string      `xml:"version,attr"`
	Cells   []cellRecord `xml:"cell"`
}

// cellRecord is one saved cell. Contents is the text SetContents accepts.
type cellRecord struct {
	Name     string `xml:"name"`
	Contents string `xml:"contents"`
}

// decodeDocument parses a document without interpreting its cells.
func decodeDocument(r io.Reader) (*document, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", ErrReadWrite, err)
	}
	return &doc, nil
}

// readDocument is decodeDocument for documents that must declare a version.
func readDocument(r io.Reader) (*document, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	if doc.Version == nil {
		return nil, fmt.Errorf("%w: document has no version attribute", ErrReadWrite)
	}
	return doc, nil
}

// ReadVersion returns the version declared by the document in r.
func ReadVersion(r io.Reader) (string, error) {
	doc, err := readDocument(r)
	if err != nil {
		return "", err
	}
	return *doc.Version, nil
}

// SavedVersion returns the version declared by the document saved at path.
func SavedVersion(path string) (string, error) {
	f, err := openDocument(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ReadVersion(f)
}

// Load builds a Spreadsheet from the document in r. The document's version
// must equal the configured version (see WithVersion). Every cell goes
// through SetContents, so names, formulas and cycles are validated exactly
// as for live edits. On any error no Spreadsheet is returned.
func Load(r io.Reader, opts ...Option) (*Spreadsheet, error) {
	doc, err := readDocument(r)
	if err != nil {
		return nil, err
	}
	s := New(opts...)
	if *doc.Version != s.Version() {
		return nil, fmt.Errorf("%w: version mismatch: document has %q, expected %q",
			ErrReadWrite, *doc.Version, s.Version())
	}
	if err := s.apply(doc.Cells); err != nil {
		return nil, err
	}
	s.changed = false
	return s, nil
}

// LoadFile is Load reading from the file at path.
func LoadFile(path string, opts ...Option) (*Spreadsheet, error) {
	f, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}

func (s *Spreadsheet) apply(records []cellRecord) error {
	for _, rec := range records {
		if _, err := s.SetContents(rec.Name, rec.Contents); err != nil {
			return fmt.Errorf("%w: cell %q: %w", ErrReadWrite, rec.Name, err)
		}
	}
	return nil
}

func openDocument(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrReadWrite)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	return f, nil
}

// records returns every stored cell in name order.
func (s *Spreadsheet) records() []cellRecord {
	names := s.NonemptyNames()
	out := make([]cellRecord, 0, len(names))
	for _, name := range names {
		out = append(out, cellRecord{Name: name, Contents: s.cells[name].contents.Raw()})
	}
	return out
}

// Save writes the spreadsheet as an indented XML document and clears the
// changed flag.
func (s *Spreadsheet) Save(w io.Writer) error {
	version := s.Version()
	doc := document{Version: &version, Cells: s.records()}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: encode document: %w", ErrReadWrite, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	s.changed = false
	return nil
}

// SaveFile writes the document to path. The file is written to a temporary
// sibling first and renamed into place, so a failed save leaves any
// previous file intact.
func (s *Spreadsheet) SaveFile(path string) (err error) {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrReadWrite)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".xlcalc-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}

	changed := s.changed
	if err = s.Save(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		s.changed = changed
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		s.changed = changed
		return fmt.Errorf("%w: %w", ErrReadWrite, err)
	}
	return nil
}
