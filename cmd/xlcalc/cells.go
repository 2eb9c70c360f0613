package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME CONTENTS",
		Short: "Set a cell and save the document",
		Long: `Set a cell's contents and save the document. Contents starting with "="
are formulas, number literals are numbers and anything else is text. An
empty string clears the cell. Every recomputed cell is printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open()
			if err != nil {
				return err
			}
			order, err := s.SetContents(args[0], args[1])
			if err != nil {
				return err
			}
			for _, name := range order {
				v, _ := s.Value(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, v)
			}
			return c.save(s)
		},
	}
}

func (c *cli) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Print a cell's contents and value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open()
			if err != nil {
				return err
			}
			contents, err := s.Contents(args[0])
			if err != nil {
				return err
			}
			value, err := s.Value(args[0])
			if err != nil {
				return err
			}
			deps, err := s.DirectDependents(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contents: %s\n", contents.Raw())
			fmt.Fprintf(out, "value:    %s\n", value)
			if len(deps) > 0 {
				fmt.Fprintf(out, "used by:  %s\n", strings.Join(deps, ", "))
			}
			return nil
		},
	}
}

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List every cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.open()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), s.Describe())
			return nil
		},
	}
}
