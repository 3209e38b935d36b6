package locator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctagard/dotnet-dap/internal/errors"
)

func touchAt(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	touch(t, path)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
}

// TestFindOutputAssembly_FirstExistingArrow verifies arrows naming missing
// files or non-assemblies are skipped.
func TestFindOutputAssembly_FirstExistingArrow(t *testing.T) {
	cwd := t.TempDir()
	exe := filepath.Join(cwd, "publish", "App.exe")
	touch(t, exe)

	stdout := "Lib -> " + filepath.Join(cwd, "missing", "Lib.dll") + "\n" +
		"App -> " + filepath.Join(cwd, "App.pdb") + "\n" +
		"App -> " + exe + "\r\n"

	got, err := FindOutputAssembly(stdout, cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != exe {
		t.Errorf("expected %s, got %s", exe, got)
	}
}

// TestFindOutputAssembly_NewestFallback verifies the most recently modified
// assembly across fallback directories is chosen.
func TestFindOutputAssembly_NewestFallback(t *testing.T) {
	cwd := t.TempDir()
	base := time.Now().Add(-time.Hour)

	older := filepath.Join(cwd, "bin", "Debug", "net8.0", "App.dll")
	newer := filepath.Join(cwd, "bin", "Release", "net6.0", "App.dll")
	touchAt(t, older, base)
	touchAt(t, newer, base.Add(time.Minute))

	got, err := FindOutputAssembly("", cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != newer {
		t.Errorf("expected %s, got %s", newer, got)
	}
}

// TestFindOutputAssembly_TieBreak verifies equal timestamps prefer the
// higher target framework, then the smaller path.
func TestFindOutputAssembly_TieBreak(t *testing.T) {
	cwd := t.TempDir()
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)

	net6 := filepath.Join(cwd, "bin", "Debug", "net6.0", "App.dll")
	net8 := filepath.Join(cwd, "bin", "Debug", "net8.0", "App.dll")
	touchAt(t, net6, mtime)
	touchAt(t, net8, mtime)

	got, err := FindOutputAssembly("", cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != net8 {
		t.Errorf("expected %s, got %s", net8, got)
	}

	a := filepath.Join(cwd, "bin", "Release", "net9.0", "A.dll")
	b := filepath.Join(cwd, "bin", "Release", "net9.0", "B.dll")
	later := mtime.Add(time.Minute)
	touchAt(t, b, later)
	touchAt(t, a, later)

	got, err = FindOutputAssembly("", cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != a {
		t.Errorf("expected %s, got %s", a, got)
	}
}

// TestFindOutputAssembly_NotFound verifies the error carries the build output.
func TestFindOutputAssembly_NotFound(t *testing.T) {
	_, err := FindOutputAssembly("nothing useful", t.TempDir())
	if !errors.HasCode(err, errors.CodeArtifactNotFound) {
		t.Fatalf("expected %s, got %v", errors.CodeArtifactNotFound, err)
	}
	if errors.FromError(err).Details["stdout"] != "nothing useful" {
		t.Errorf("expected stdout in details, got %v", errors.FromError(err).Details)
	}
}

// TestMonikerVersion verifies target framework parsing.
func TestMonikerVersion(t *testing.T) {
	if v := monikerVersion("net8.0"); v == nil || v.Major() != 8 {
		t.Errorf("expected 8.0, got %v", v)
	}
	if v := monikerVersion("Debug"); v != nil {
		t.Errorf("expected nil for Debug, got %v", v)
	}
	if compareMonikers(monikerVersion("net9.0"), monikerVersion("net10.0")) >= 0 {
		t.Error("expected net9.0 to sort below net10.0")
	}
	if compareMonikers(nil, monikerVersion("net5.0")) >= 0 {
		t.Error("expected a missing moniker to sort below any version")
	}
}
