package adapters

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/metrics"
)

// Probe looks up an executable name on PATH and returns the reported path
type Probe func(ctx context.Context, name string) (string, error)

// WhichProbe asks the platform's PATH lookup utility (which, or where on
// Windows) for name. When the utility itself cannot be run it falls back to
// exec.LookPath.
func WhichProbe(ctx context.Context, name string) (string, error) {
	tool := "which"
	if runtime.GOOS == "windows" {
		tool = "where"
	}

	out, err := exec.CommandContext(ctx, tool, name).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return "", err
		}
		return exec.LookPath(name)
	}

	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(first), nil
}

// ExecutableName appends .exe on Windows
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

type resolution struct {
	path string
	err  error
}

// BinaryResolver finds a debugger executable and remembers the outcome for
// its own lifetime.
//
// Resolution order is PATH (via the probe, accepted only if the reported
// file exists), then <cacheDir>/<adapter>/<binary>. A success is always
// cached. A failure is cached only when cacheFailures is set; otherwise the
// next call probes again. Concurrent calls share one in-flight probe.
type BinaryResolver struct {
	adapter       string
	binary        string
	cacheDir      string
	installHint   string
	cacheFailures bool
	probe         Probe

	group  singleflight.Group
	mu     sync.Mutex
	cached *resolution
}

// ResolverOptions configures a BinaryResolver
type ResolverOptions struct {
	// Adapter is the adapter name; it is also the cache subdirectory
	Adapter string
	// Binary is the platform-specific executable name
	Binary string
	// CacheDir is the root directory holding per-adapter caches
	CacheDir string
	// InstallHint is shown when the binary cannot be found
	InstallHint string
	// CacheFailures makes a failed resolution sticky
	CacheFailures bool
	// Probe overrides the PATH lookup; WhichProbe when nil
	Probe Probe
}

// NewBinaryResolver creates a resolver
func NewBinaryResolver(opts ResolverOptions) *BinaryResolver {
	probe := opts.Probe
	if probe == nil {
		probe = WhichProbe
	}
	return &BinaryResolver{
		adapter:       opts.Adapter,
		binary:        opts.Binary,
		cacheDir:      opts.CacheDir,
		installHint:   opts.InstallHint,
		cacheFailures: opts.CacheFailures,
		probe:         probe,
	}
}

// CachedPath returns where a downloaded copy of the binary is expected
func (r *BinaryResolver) CachedPath() string {
	return filepath.Join(r.cacheDir, r.adapter, r.binary)
}

// Resolve returns the debugger path, probing at most once per outcome that
// is kept. The shared probe is detached from ctx; a caller whose ctx ends
// gets ctx.Err() and nothing is cached on its behalf.
func (r *BinaryResolver) Resolve(ctx context.Context) (string, error) {
	if c, ok := r.load(); ok {
		metrics.BinaryResolutions.WithLabelValues(r.adapter, "cached").Inc()
		return c.path, c.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	probeCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(r.adapter, func() (interface{}, error) {
		if c, ok := r.load(); ok {
			return c.path, c.err
		}
		path, err := r.fetch(probeCtx)
		if err == nil || (r.cacheFailures && errors.HasCode(err, errors.CodeLookup)) {
			r.mu.Lock()
			r.cached = &resolution{path: path, err: err}
			r.mu.Unlock()
		}
		return path, err
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached outcome so the next Resolve probes again.
func (r *BinaryResolver) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *BinaryResolver) load() (resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil {
		return resolution{}, false
	}
	return *r.cached, true
}

func (r *BinaryResolver) fetch(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)

	path, err := r.probe(ctx, r.binary)
	if err != nil && ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err == nil && path != "" {
		if fileExists(path) {
			logger.Info("found debugger on PATH", "adapter", r.adapter, "path", path)
			metrics.BinaryResolutions.WithLabelValues(r.adapter, "path").Inc()
			return path, nil
		}
	}

	cached := r.CachedPath()
	if fileExists(cached) {
		logger.Info("found cached debugger", "adapter", r.adapter, "path", cached)
		metrics.BinaryResolutions.WithLabelValues(r.adapter, "cache").Inc()
		return cached, nil
	}

	metrics.BinaryResolutions.WithLabelValues(r.adapter, "missing").Inc()
	return "", errors.LookupError(r.binary, r.adapter, r.installHint).
		WithDetails("cachePath", cached)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
