package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctagard/dotnet-dap/internal/solution"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// FindStartupProjectDir finds the solution governing dir and returns the
// directory of the project a build should run in: the solution's startup
// project when it is executable, otherwise its first executable project.
// Solution folders are never chosen.
func FindStartupProjectDir(dir string) (string, error) {
	slnPath, err := solution.FindSolutionFile(dir)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(slnPath)
	if err != nil {
		return "", fmt.Errorf("failed to read solution: %w", err)
	}
	baseDir := filepath.Dir(slnPath)
	sf, err := solution.Parse(string(data), baseDir)
	if err != nil {
		return "", err
	}

	var executable []*solution.SolutionProject
	for _, p := range sf.GetExecutableProjects() {
		if p.Kind() != "folder" {
			executable = append(executable, p)
		}
	}
	if len(executable) == 0 {
		return "", fmt.Errorf("solution %s has no executable projects", slnPath)
	}

	project := executable[0]
	if startup := sf.GetStartupProject(); startup != nil {
		for _, p := range executable {
			if p.GUID == startup.GUID {
				project = p
				break
			}
		}
	}
	return filepath.Dir(filepath.Join(baseDir, project.Path)), nil
}

// DefaultTemplates returns the task templates offered for any dotnet project.
func DefaultTemplates() []types.TaskTemplate {
	return []types.TaskTemplate{
		{Label: "dotnet: build", Command: BuildTool, Args: []string{"build"}},
		{Label: "dotnet: clean", Command: BuildTool, Args: []string{"clean"}},
		{Label: "dotnet: test", Command: BuildTool, Args: []string{"test"}},
		{Label: "dotnet: run", Command: BuildTool, Args: []string{"run"}},
	}
}
