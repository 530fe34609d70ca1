package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"mymake/internal/engine/build"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	// Check Graph
	err := s.app.withBuilder(func(b *build.Builder) error {
		status.Components["graph"] = fmt.Sprintf("ok (%d targets, %d links)", b.Graph().Len(), b.Graph().EdgeCount())
		status.Components["loaded_at"] = s.app.loadedAt.Format(time.RFC3339)
		return nil
	})
	if err != nil {
		status.Status = "degraded"
		status.Components["graph"] = "missing"
	}

	// Check History
	switch {
	case s.app.history != nil:
		status.Components["history"] = "ok"
		if p, ok := s.app.history.(interface{ Path() string }); ok {
			status.Components["history"] = fmt.Sprintf("ok (%s)", p.Path())
		}
	case s.app.Config.History.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	if s.app.Watching() {
		status.Components["watcher"] = "active"
	} else {
		status.Components["watcher"] = "idle"
	}
	status.Components["heap"] = fmt.Sprintf("%d MB", heapMB())

	if ctx.Err() != nil {
		status.Status = "stopping"
	}
	return status
}

func heapMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc >> 20
}
