package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javajack/xlcalc"
)

// cli holds the persistent flags shared by every subcommand.
type cli struct {
	file     string
	version  string
	upper    bool
	nameRule string
	verbose  bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "xlcalc",
		Short: "Spreadsheet documents with live formulas",
		Long: `Edit and inspect spreadsheet documents whose cells hold numbers, text
or arithmetic formulas over other cells.

Commands:
  set     Set a cell and save the document
  get     Print a cell's contents and value
  show    List every cell
  lint    Check a document and report every problem
  export  Write the document as an .xlsx workbook
  import  Read an .xlsx workbook into the document
  serve   Serve the document over HTTP

Examples:
  xlcalc -f book.xml set A1 5
  xlcalc -f book.xml set B1 "=A1*2"
  xlcalc -f book.xml --upper --rule 'name matches "^[A-Z][0-9]+$"' show`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			}
			c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.file, "file", "f", envOr("XLCALC_FILE", ""), "Spreadsheet document to operate on")
	flags.StringVar(&c.version, "version", envOr("XLCALC_VERSION", xlcalc.DefaultVersion), "Version tag written on save and required on load")
	flags.BoolVar(&c.upper, "upper", false, "Upper-case cell names before validating them")
	flags.StringVar(&c.nameRule, "rule", "", "expr-lang boolean expression over `name` every cell name must satisfy")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		c.newSetCmd(),
		c.newGetCmd(),
		c.newShowCmd(),
		c.newLintCmd(),
		c.newExportCmd(),
		c.newImportCmd(),
		c.newServeCmd(),
	)
	return rootCmd
}

// options turns the persistent flags into spreadsheet options.
func (c *cli) options() ([]xlcalc.Option, error) {
	opts := []xlcalc.Option{xlcalc.WithVersion(c.version)}
	if c.upper {
		opts = append(opts, xlcalc.WithNormalizer(strings.ToUpper))
	}
	if c.nameRule != "" {
		rule, err := xlcalc.NameRule(c.nameRule)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xlcalc.WithValidator(rule))
	}
	return opts, nil
}

// open loads --file, or returns an empty spreadsheet when the flag is unset
// or the file does not exist yet.
func (c *cli) open() (*xlcalc.Spreadsheet, error) {
	opts, err := c.options()
	if err != nil {
		return nil, err
	}
	if c.file == "" {
		return xlcalc.New(opts...), nil
	}
	s, err := xlcalc.LoadFile(c.file, opts...)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("starting a new document", "file", c.file)
		return xlcalc.New(opts...), nil
	}
	return s, err
}

func (c *cli) save(s *xlcalc.Spreadsheet) error {
	if c.file == "" {
		return fmt.Errorf("--file is required to save changes")
	}
	if err := s.SaveFile(c.file); err != nil {
		return err
	}
	c.logger.Debug("saved", "file", c.file)
	return nil
}

func (c *cli) requireFile() error {
	if c.file == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.file); err != nil {
		return err
	}
	return nil
}
