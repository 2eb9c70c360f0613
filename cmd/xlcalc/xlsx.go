package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlcalc"
)

func (c *cli) newExportCmd() *cobra.Command {
	var sheetName string
	cmd := &cobra.Command{
		Use:   "export OUT.xlsx",
		Short: "Write the document as an .xlsx workbook",
		Long: `Write every cell whose name is an A1-style reference to a worksheet,
formulas included. Other cells are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open()
			if err != nil {
				return err
			}
			out, err := os.Create(args[0])
			if err != nil {
				return err
			}
			skipped, err := s.ExportXLSX(out, sheetName)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			for _, name := range skipped {
				c.logger.Warn("cell is not a grid reference, skipped", "cell", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetName, "sheet", xlcalc.DefaultSheet, "Worksheet name")
	return cmd
}

func (c *cli) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import IN.xlsx",
		Short: "Read an .xlsx workbook into the document",
		Long: `Replace --file with the cells of the first worksheet of IN.xlsx. Only
arithmetic formulas over single-cell references can be imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options()
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			s, err := xlcalc.ImportXLSX(in, opts...)
			if err != nil {
				return err
			}
			if err := c.save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d cells into %s\n", len(s.NonemptyNames()), c.file)
			return nil
		},
	}
}
