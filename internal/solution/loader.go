package solution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctagard/dotnet-dap/internal/ctxlog"
)

// maxParentLevels is how far above the start directory FindSolutionFile looks.
const maxParentLevels = 3

// FindSolutionFile returns the first .slnx or .sln file in root or in up to
// three of its parent directories. Entries are checked in name order.
func FindSolutionFile(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	current := absRoot
	for level := 0; level <= maxParentLevels; level++ {
		if path, ok := solutionIn(current); ok {
			return path, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("no .sln or .slnx file found in %s or its %d parent directories", absRoot, maxParentLevels)
}

func solutionIn(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".slnx") || strings.HasSuffix(name, ".sln") {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

// Load reads and parses the solution at path, then fills each project's
// package list from its project file. A project whose file cannot be read or
// parsed keeps an empty package list; that never fails the load.
func Load(ctx context.Context, path string) (*SolutionFile, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}

	baseDir := filepath.Dir(path)
	sf, err := Parse(string(data), baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse solution %s: %w", path, err)
	}
	sf.Path = path

	for i := range sf.Projects {
		p := &sf.Projects[i]
		p.Packages = []NuGetPackage{}
		packages, err := LoadProjectPackages(filepath.Join(baseDir, p.Path))
		if err != nil {
			logger.Debug("skipping package references", "project", p.Name, "error", err)
			continue
		}
		p.Packages = packages
	}

	logger.Debug("loaded solution",
		"path", path,
		"dialect", sf.Dialect,
		"projects", len(sf.Projects),
		"startup", sf.StartupProject)
	return sf, nil
}

// LoadProjectPackages parses the package references of one project file.
func LoadProjectPackages(path string) ([]NuGetPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	return ParsePackageReferences(string(data))
}
