package ports

import (
	"context"
	"io"

	"mymake/internal/data/history"
)

// Stamper reports the last-modification time of a file on disk.
// It returns 0 when the file does not exist.
type Stamper interface {
	LastModification(name string) uint64
}

// RecipeExecutor runs the command lines of one recipe in order, echoing each
// line to out first. A dry run echoes without executing.
type RecipeExecutor interface {
	ExecuteRecipe(ctx context.Context, recipe []string, out io.Writer, dryRun bool) error
}

// HistoryStore abstracts build-run persistence for the --history workflows.
type HistoryStore interface {
	SaveRun(ctx context.Context, run history.Run) error
	RecentRuns(ctx context.Context, limit int) ([]history.Run, error)
}

// StamperFunc adapts a plain function to Stamper.
type StamperFunc func(name string) uint64

func (f StamperFunc) LastModification(name string) uint64 {
	return f(name)
}
