// Command mymake-fmt prints the rules of a makefile in normalized form, or
// as YAML or JSON with -o.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mymake/internal/engine/parser"
	"mymake/internal/ui/report"
)

var fmtFlags struct {
	output      string
	variables   bool
	multiTarget bool
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mymake-fmt FILE",
		Short:         "Print the rules of a makefile in normalized form",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: runFmt,
	}
	f := cmd.Flags()
	f.StringVarP(&fmtFlags.output, "output", "o", "make", "output format: make, yaml, json")
	f.BoolVar(&fmtFlags.variables, "variables", false, "accept NAME=VALUE assignments")
	f.BoolVar(&fmtFlags.multiTarget, "multi-target", true, "allow several targets per rule")
	return cmd
}

func runFmt(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(fmtFlags.output)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open makefile: %w", err)
	}
	defer f.Close()

	formatter := report.NewRuleFormatter(cmd.OutOrStdout(), format)
	opts := []parser.Option{parser.WithMultiTarget(fmtFlags.multiTarget)}
	if fmtFlags.variables {
		opts = append(opts, parser.WithVariables(formatter.Variable))
	}
	if err := parser.New(opts...).Parse(f, formatter.Rule); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return formatter.Flush()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
