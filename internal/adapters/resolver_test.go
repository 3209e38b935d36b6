package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ctagard/dotnet-dap/internal/errors"
)

// countingProbe returns path for every lookup and counts the calls.
type countingProbe struct {
	calls atomic.Int32
	path  string
	err   error
}

func (p *countingProbe) probe(ctx context.Context, name string) (string, error) {
	p.calls.Add(1)
	return p.path, p.err
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func newTestResolver(probe Probe, cacheDir string, cacheFailures bool) *BinaryResolver {
	return NewBinaryResolver(ResolverOptions{
		Adapter:       "vsdbg",
		Binary:        "vsdbg",
		CacheDir:      cacheDir,
		InstallHint:   "install it",
		CacheFailures: cacheFailures,
		Probe:         probe,
	})
}

// TestResolve_FromPath verifies a probed path that exists is used and cached.
func TestResolve_FromPath(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "vsdbg")
	writeExecutable(t, bin)
	p := &countingProbe{path: bin}
	r := newTestResolver(p.probe, t.TempDir(), false)

	for i := 0; i < 3; i++ {
		got, err := r.Resolve(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != bin {
			t.Errorf("expected %s, got %s", bin, got)
		}
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected 1 probe, got %d", n)
	}
}

// TestResolve_ProbedPathMissing verifies a reported path that does not
// exist is ignored in favor of the cache directory.
func TestResolve_ProbedPathMissing(t *testing.T) {
	cacheDir := t.TempDir()
	cached := filepath.Join(cacheDir, "vsdbg", "vsdbg")
	writeExecutable(t, cached)

	p := &countingProbe{path: filepath.Join(t.TempDir(), "gone", "vsdbg")}
	r := newTestResolver(p.probe, cacheDir, false)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cached {
		t.Errorf("expected %s, got %s", cached, got)
	}
	if r.CachedPath() != cached {
		t.Errorf("expected CachedPath %s, got %s", cached, r.CachedPath())
	}
}

// TestResolve_NotFound verifies the lookup error and that failures are
// retried by default.
func TestResolve_NotFound(t *testing.T) {
	p := &countingProbe{err: fmt.Errorf("not on PATH")}
	cacheDir := t.TempDir()
	r := newTestResolver(p.probe, cacheDir, false)

	_, err := r.Resolve(context.Background())
	if !errors.HasCode(err, errors.CodeLookup) {
		t.Fatalf("expected %s, got %v", errors.CodeLookup, err)
	}
	de := errors.FromError(err)
	if de.Hint != "install it" {
		t.Errorf("expected install hint, got %q", de.Hint)
	}
	if de.Details["cachePath"] != filepath.Join(cacheDir, "vsdbg", "vsdbg") {
		t.Errorf("unexpected cachePath %v", de.Details["cachePath"])
	}

	// Install the binary after the first failure; the next call finds it.
	writeExecutable(t, filepath.Join(cacheDir, "vsdbg", "vsdbg"))
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
	if n := p.calls.Load(); n != 2 {
		t.Errorf("expected 2 probes, got %d", n)
	}
}

// TestResolve_StickyFailure verifies failures are kept when configured.
func TestResolve_StickyFailure(t *testing.T) {
	p := &countingProbe{err: fmt.Errorf("not on PATH")}
	cacheDir := t.TempDir()
	r := newTestResolver(p.probe, cacheDir, true)

	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	writeExecutable(t, filepath.Join(cacheDir, "vsdbg", "vsdbg"))
	if _, err := r.Resolve(context.Background()); !errors.HasCode(err, errors.CodeLookup) {
		t.Errorf("expected cached lookup error, got %v", err)
	}
	if n := p.calls.Load(); n != 1 {
		t.Errorf("expected 1 probe, got %d", n)
	}

	r.Invalidate()
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Errorf("expected success after Invalidate, got %v", err)
	}
}

// TestResolve_Concurrent verifies concurrent callers agree on one result.
func TestResolve_Concurrent(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "vsdbg")
	writeExecutable(t, bin)
	p := &countingProbe{path: bin}
	r := newTestResolver(p.probe, t.TempDir(), false)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background())
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != bin {
			t.Errorf("caller %d: expected %s, got %s", i, bin, got)
		}
	}
}

// TestResolve_CancelledCaller verifies a cancelled caller does not leave a
// failure behind for later callers.
func TestResolve_CancelledCaller(t *testing.T) {
	cacheDir := t.TempDir()
	writeExecutable(t, filepath.Join(cacheDir, "vsdbg", "vsdbg"))

	var calls atomic.Int32
	probe := func(ctx context.Context, name string) (string, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("not on PATH")
	}
	r := newTestResolver(probe, cacheDir, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("expected success after cancelled caller, got %v", err)
	}
	if got != filepath.Join(cacheDir, "vsdbg", "vsdbg") {
		t.Errorf("unexpected path %s", got)
	}
}

// TestResolve_CancelledWhileProbing verifies a caller can give up on an
// in-flight probe while the probe still completes for others.
func TestResolve_CancelledWhileProbing(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "vsdbg")
	writeExecutable(t, bin)

	started := make(chan struct{})
	release := make(chan struct{})
	probe := func(ctx context.Context, name string) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return bin, nil
	}
	r := newTestResolver(probe, t.TempDir(), true)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx)
		errc <- err
	}()

	<-started
	cancel()
	if err := <-errc; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != bin {
		t.Errorf("expected %s, got %s", bin, got)
	}
}
