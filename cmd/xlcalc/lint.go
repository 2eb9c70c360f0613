package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlcalc"
)

func (c *cli) newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check a document and report every problem",
		Long: `Check --file without loading it and print every problem found. Exits
with an error when any problem would make loading fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireFile(); err != nil {
				return err
			}
			opts, err := c.options()
			if err != nil {
				return err
			}
			f, err := os.Open(c.file)
			if err != nil {
				return err
			}
			defer f.Close()

			issues, err := xlcalc.Lint(f, opts...)
			if err != nil {
				return err
			}
			errCount := 0
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue)
				if issue.Severity == xlcalc.SeverityError {
					errCount++
				}
			}
			if errCount > 0 {
				return fmt.Errorf("%s: %d error(s)", c.file, errCount)
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no issues")
			}
			return nil
		},
	}
}
