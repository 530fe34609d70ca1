// Package cli is the mymake command line: flag parsing, configuration and
// logging setup, and dispatch to one-shot builds, graph reports or watch
// mode.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mymake/internal/core/config"
)

// Version is set at build time via -ldflags.
var Version = "1.0.0"

type options struct {
	file        string
	configPath  string
	verbose     bool
	dryRun      bool
	keepGoing   bool
	check       bool
	why         string
	graphPath   string
	watch       bool
	ui          bool
	history     bool
	historyList int
	historyJSON bool
	metricsAddr string
	logLevel    string
	logFormat   string
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "mymake [flags] [targets...]",
		Short: "Bring build targets up to date from a makefile",
		Long: "mymake reads a makefile of rules and runs the recipes of every target\n" +
			"whose dependencies are missing or newer than the target itself.\n" +
			"Without targets the first rule of the makefile is built.",
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOptions(cmd, opts); err != nil {
				return err
			}
			return execute(cmd, opts, args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", config.DefaultMakefile, "makefile to read")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "explain every build decision")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "print recipes without running them")
	f.BoolVarP(&opts.keepGoing, "keep-going", "k", false, "keep building the remaining targets after one fails")
	f.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	f.BoolVar(&opts.check, "check", false, "report dependency cycles and exit")
	f.StringVar(&opts.why, "why", "", "print the dependency chain FROM:TO and exit")
	f.StringVar(&opts.graphPath, "graph", "", "write the dependency graph to FILE (.dot, .mmd) and exit")
	f.BoolVar(&opts.watch, "watch", false, "rebuild the targets whenever their inputs change")
	f.BoolVar(&opts.ui, "ui", false, "show the terminal dashboard in watch mode")
	f.BoolVar(&opts.history, "history", false, "record every build in the history database")
	f.IntVar(&opts.historyList, "history-list", 0, "print the N most recent recorded builds and exit")
	f.BoolVar(&opts.historyJSON, "json", false, "print --history-list as JSON")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: text, json")
	return cmd
}

func validateOptions(cmd *cobra.Command, opts *options) error {
	flags := cmd.Flags()
	if opts.ui && !opts.watch {
		return usagef("--ui requires --watch")
	}
	if opts.watch && (opts.check || opts.why != "" || opts.graphPath != "" || flags.Changed("history-list")) {
		return usagef("--watch cannot be combined with report flags")
	}
	if flags.Changed("history-list") && opts.historyList <= 0 {
		return usagef("--history-list needs a positive count, got %d", opts.historyList)
	}
	if opts.historyJSON && !flags.Changed("history-list") {
		return usagef("--json only applies to --history-list")
	}
	if opts.why != "" {
		if _, _, err := parseWhy(opts.why); err != nil {
			return err
		}
	}
	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return usagef("unknown log level %q", opts.logLevel)
	}
	switch opts.logFormat {
	case "", "text", "json":
	default:
		return usagef("unknown log format %q", opts.logFormat)
	}
	return nil
}

// parseWhy splits a FROM:TO pair.
func parseWhy(s string) (string, string, error) {
	from, to, ok := strings.Cut(s, ":")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" {
		return "", "", usagef("--why expects FROM:TO, got %q", s)
	}
	return from, to, nil
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Make.File = opts.file
	}
	if opts.keepGoing {
		cfg.Make.KeepGoing = true
	}
	if opts.history {
		cfg.History.Enabled = true
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
}
