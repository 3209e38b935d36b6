package solution_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctagard/dotnet-dap/internal/solution"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestFindSolutionFile verifies the search walks up parent directories.
func TestFindSolutionFile(t *testing.T) {
	root := t.TempDir()
	slnPath := filepath.Join(root, "App.sln")
	writeFile(t, slnPath, legacySolution)

	nested := filepath.Join(root, "src", "App", "Controllers")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	found, err := solution.FindSolutionFile(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != slnPath {
		t.Errorf("expected %s, got %s", slnPath, found)
	}
}

// TestFindSolutionFile_TooDeep verifies the search stops after three parents.
func TestFindSolutionFile_TooDeep(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "App.sln"), legacySolution)

	deep := filepath.Join(root, "a", "b", "c", "d")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	if found, err := solution.FindSolutionFile(deep); err == nil {
		// A solution above the temp dir would also be found; only fail when
		// the one we planted is returned.
		if found == filepath.Join(root, "App.sln") {
			t.Errorf("expected search to stop before %s", found)
		}
	}
}

// TestLoad verifies packages are attached and unreadable projects are skipped.
func TestLoad(t *testing.T) {
	root := t.TempDir()
	slnPath := filepath.Join(root, "App.sln")
	writeFile(t, slnPath, legacySolution)
	writeFile(t, filepath.Join(root, "src", "App", "App.csproj"), projectFile)
	writeFile(t, filepath.Join(root, "src", "Worker", "Worker.csproj"),
		`<Project><ItemGroup><PackageReference Include="Broken"`)
	// App.Tests has no project file on disk.

	sf, err := solution.Load(context.Background(), slnPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sf.Path != slnPath {
		t.Errorf("expected path %s, got %s", slnPath, sf.Path)
	}

	app := sf.GetProject("App")
	if app == nil || len(app.Packages) != 4 {
		t.Fatalf("expected App with 4 packages, got %+v", app)
	}
	if app.Packages[0].ID != "Newtonsoft.Json" {
		t.Errorf("unexpected first package %+v", app.Packages[0])
	}

	for _, name := range []string{"App.Tests", "Worker"} {
		p := sf.GetProject(name)
		if p == nil {
			t.Fatalf("missing project %s", name)
		}
		if p.Packages == nil || len(p.Packages) != 0 {
			t.Errorf("expected empty package list for %s, got %+v", name, p.Packages)
		}
	}
}

// TestLoad_Slnx verifies .slnx files load through the same path.
func TestLoad_Slnx(t *testing.T) {
	root := t.TempDir()
	slnxPath := filepath.Join(root, "App.slnx")
	writeFile(t, slnxPath, slnxSolution)
	writeFile(t, filepath.Join(root, "src", "App", "App.csproj"), projectFile)

	sf, err := solution.Load(context.Background(), slnxPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sf.Dialect != solution.DialectSlnx {
		t.Errorf("expected slnx dialect, got %s", sf.Dialect)
	}
	if p := sf.GetProject("App"); p == nil || len(p.Packages) != 4 {
		t.Errorf("expected App with 4 packages, got %+v", p)
	}
}

// TestLoad_Missing verifies a missing solution file is an error.
func TestLoad_Missing(t *testing.T) {
	if _, err := solution.Load(context.Background(), filepath.Join(t.TempDir(), "none.sln")); err == nil {
		t.Error("expected error for missing solution")
	}
}
