package history

import (
	"time"

	"github.com/google/uuid"
)

const SchemaVersion = 1

// Run is one recorded goal build.
type Run struct {
	ID        string        `json:"id"`
	Goal      string        `json:"goal"`
	Makefile  string        `json:"makefile"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Targets   int           `json:"targets"`
	Links     int           `json:"links"`
}

// NewRun starts a Run for goal with a fresh id.
func NewRun(goal, makefile string, startedAt time.Time) Run {
	return Run{
		ID:        uuid.NewString(),
		Goal:      goal,
		Makefile:  makefile,
		StartedAt: startedAt.UTC(),
	}
}

// Finish records the outcome of the run.
func (r *Run) Finish(duration time.Duration, err error) {
	r.Duration = duration
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
}

type Summary struct {
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Summarize aggregates runs. Dry runs count like any other run.
func Summarize(runs []Run) Summary {
	s := Summary{Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}
	var total time.Duration
	for _, r := range runs {
		if !r.Success {
			s.Failures++
		}
		total += r.Duration
	}
	s.SuccessRate = round2(float64(s.Runs-s.Failures) / float64(s.Runs) * 100)
	s.AvgDuration = total / time.Duration(len(runs))
	return s
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
