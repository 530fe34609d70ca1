package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mymake/internal/data/history"
)

// RenderRunsTSV prints runs one per line under a header row.
func RenderRunsTSV(runs []history.Run) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Started\tGoal\tResult\tDuration\tDryRun\tTargets\tLinks\tID\tError\n")
	for _, run := range runs {
		result := "ok"
		if !run.Success {
			result = "failed"
		}
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%s\t%s\n",
			run.StartedAt.Format(time.RFC3339),
			run.Goal,
			result,
			run.Duration.Round(time.Millisecond),
			run.DryRun,
			run.Targets,
			run.Links,
			run.ID,
			strings.ReplaceAll(run.Error, "\n", " "),
		)
	}

	return []byte(buf.String()), nil
}

type runsReport struct {
	SchemaVersion int             `json:"schema_version"`
	Summary       history.Summary `json:"summary"`
	Runs          []history.Run   `json:"runs"`
}

func RenderRunsJSON(runs []history.Run) ([]byte, error) {
	if runs == nil {
		runs = []history.Run{}
	}
	return json.MarshalIndent(runsReport{
		SchemaVersion: history.SchemaVersion,
		Summary:       history.Summarize(runs),
		Runs:          runs,
	}, "", "  ")
}
