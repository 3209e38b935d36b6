// Package metrics holds the prometheus collectors for the pipeline.
//
// Collectors live on a package-private registry so that tests and embedding
// programs never collide with the global default registry. Handler exposes
// them for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dotnet_dap"

var registry = prometheus.NewRegistry()

var (
	// SolutionParses counts parse requests by dialect ("sln", "slnx", "error").
	SolutionParses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "solution_parses_total",
		Help:      "Solution descriptor parses by dialect.",
	}, []string{"dialect"})

	// Builds counts build executions by outcome.
	Builds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "builds_total",
		Help:      "Build tool executions by outcome.",
	}, []string{"outcome"})

	// BuildDuration observes wall time of build executions.
	BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Wall time of build tool executions.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// ArtifactHeuristics counts which heuristic located the build artifact.
	ArtifactHeuristics = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifact_heuristic_total",
		Help:      "Located build artifacts by heuristic (output, fallback, none).",
	}, []string{"heuristic"})

	// BinaryResolutions counts debugger binary resolutions by source.
	BinaryResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "binary_resolutions_total",
		Help:      "Debugger binary resolutions by adapter and source (explicit, path, cache, cached, missing).",
	}, []string{"adapter", "source"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SolutionParses,
		Builds,
		BuildDuration,
		ArtifactHeuristics,
		BinaryResolutions,
	)
}

// Registry returns the registry holding all pipeline collectors.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
