package locator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/metrics"
)

const outputArrow = "->"

// Output directories probed when the build output names no assembly,
// relative to the working directory.
var (
	fallbackConfigurations = []string{"Debug", "Release"}
	fallbackMonikers       = []string{"", "net9.0", "net8.0", "net7.0", "net6.0", "net5.0"}
)

// FindOutputAssembly locates the assembly produced by a build.
//
// Build output lines of the form "MyApp -> /path/bin/Debug/net8.0/MyApp.dll"
// are checked first; the first .dll or .exe that exists wins. Relative paths
// resolve against cwd. Otherwise the conventional bin/<configuration>[/<tfm>]
// directories are scanned and the most recently modified .dll is chosen.
func FindOutputAssembly(stdout, cwd string) (string, error) {
	if path, ok := assemblyFromOutput(stdout, cwd); ok {
		metrics.ArtifactHeuristics.WithLabelValues("output").Inc()
		return path, nil
	}
	if path, ok := newestFallbackAssembly(cwd); ok {
		metrics.ArtifactHeuristics.WithLabelValues("fallback").Inc()
		return path, nil
	}
	metrics.ArtifactHeuristics.WithLabelValues("none").Inc()
	return "", errors.ArtifactNotFound(cwd, stdout)
}

func assemblyFromOutput(stdout, cwd string) (string, bool) {
	for _, line := range strings.Split(stdout, "\n") {
		i := strings.Index(line, outputArrow)
		if i < 0 {
			continue
		}
		candidate := strings.TrimSpace(line[i+len(outputArrow):])
		if !isAssembly(candidate) {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(cwd, candidate)
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func isAssembly(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".dll") || strings.HasSuffix(lower, ".exe")
}

type fallbackCandidate struct {
	path    string
	modTime time.Time
	tfm     *semver.Version
}

// newestFallbackAssembly picks the most recently modified .dll across all
// fallback directories. Ties go to the newer target framework, then to the
// lexically smaller path.
func newestFallbackAssembly(cwd string) (string, bool) {
	var candidates []fallbackCandidate
	for _, dir := range fallbackDirs(cwd) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".dll") {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			candidates = append(candidates, fallbackCandidate{
				path:    filepath.Join(dir, e.Name()),
				modTime: info.ModTime(),
				tfm:     monikerVersion(filepath.Base(dir)),
			})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.modTime.Equal(b.modTime) {
			return a.modTime.After(b.modTime)
		}
		if c := compareMonikers(a.tfm, b.tfm); c != 0 {
			return c > 0
		}
		return a.path < b.path
	})
	return candidates[0].path, true
}

func fallbackDirs(cwd string) []string {
	dirs := make([]string, 0, len(fallbackConfigurations)*len(fallbackMonikers))
	for _, cfg := range fallbackConfigurations {
		for _, tfm := range fallbackMonikers {
			dirs = append(dirs, filepath.Join(cwd, "bin", cfg, tfm))
		}
	}
	return dirs
}

// monikerVersion parses "net8.0" style target framework monikers. Anything
// else (including configuration directory names) yields nil.
func monikerVersion(name string) *semver.Version {
	if !strings.HasPrefix(name, "net") {
		return nil
	}
	v, err := semver.NewVersion(strings.TrimPrefix(name, "net"))
	if err != nil {
		return nil
	}
	return v
}

func compareMonikers(a, b *semver.Version) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(b)
}
