package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mymake_parsing_seconds",
		Help:    "Time spent parsing a makefile.",
		Buckets: prometheus.DefBuckets,
	})

	RulesParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mymake_rules_parsed_total",
		Help: "Total number of rule blocks read from makefiles.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mymake_graph_nodes_total",
		Help: "Total number of targets in the build graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mymake_graph_edges_total",
		Help: "Total number of dependency links in the build graph.",
	})

	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mymake_build_seconds",
		Help:    "Time spent building one goal.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	RecipesExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mymake_recipes_executed_total",
		Help: "Total number of recipes handed to the executor, dry runs included.",
	})

	RecipeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mymake_recipe_failures_total",
		Help: "Total number of recipes that stopped on a failing command.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mymake_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mymake_watch_rebuilds_total",
		Help: "Total number of rebuild cycles triggered by watch mode.",
	}, []string{"reason"})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mymake_history_write_errors_total",
		Help: "Total number of build runs that could not be recorded.",
	})
)

// Build results used as the BuildDuration label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
