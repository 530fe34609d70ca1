package system

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"mymake/internal/core/errors"
)

const DefaultShell = "/bin/sh"

// Shell runs recipe lines through "<Path> -c <line>". Zero values fall back to
// DefaultShell, the process environment and the process stdout/stderr.
type Shell struct {
	Path   string
	Env    []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// ExecuteRecipe echoes each line to out before running it. In dry-run mode
// nothing is executed. The first failing line stops the recipe.
func (s *Shell) ExecuteRecipe(ctx context.Context, recipe []string, out io.Writer, dryRun bool) error {
	for _, line := range recipe {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "echo recipe line")
		}
		if dryRun {
			continue
		}
		if err := s.run(ctx, line); err != nil {
			return errors.AddContext(
				errors.Wrap(err, errors.CodeRecipeFailed, "recipe command failed"),
				errors.CtxCommand, line,
			)
		}
	}
	return nil
}

func (s *Shell) run(ctx context.Context, line string) error {
	path := s.Path
	if path == "" {
		path = DefaultShell
	}
	cmd := exec.CommandContext(ctx, path, "-c", line)
	cmd.Dir = s.Dir
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	s.logger().Debug("running recipe line", "shell", path, "command", line)
	return cmd.Run()
}

func (s *Shell) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default().With("component", "shell")
}
