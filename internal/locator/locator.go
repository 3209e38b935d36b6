// Package locator turns dotnet task templates into debug scenarios and
// recovers the built assembly once the build has run.
//
// The locator works in two phases:
//   - CreateScenario rewrites a "dotnet run" style template into a build
//     step tagged with the locator's name, plus a launch configuration stub.
//   - Run executes that build, then scrapes its output (falling back to a
//     scan of conventional output directories) to find the assembly to
//     launch under the debugger.
package locator

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/metrics"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

const (
	// Name identifies this locator on the build steps it creates
	Name = "dotnet-locator"

	// BuildTool is the command name templates must use to be recognized
	BuildTool = "dotnet"

	argSeparator = "--"
	noBuildFlag  = "--no-build"
)

// Flags appended to every build so that output paths are absolute and the
// output stays short enough to scrape.
var injectedBuildFlags = []string{
	"--no-restore",
	"/p:GenerateFullPaths=true",
	"-v:q",
}

// launchStub is the configuration attached to every created scenario.
var launchStub = []byte(`{"type":"coreclr","request":"launch"}`)

// Locator implements the dotnet build locator
type Locator struct {
	dotnetPath string
}

// New creates a locator that runs builds with the given dotnet executable.
// An empty path means "dotnet" resolved through PATH.
func New(dotnetPath string) *Locator {
	if dotnetPath == "" {
		dotnetPath = BuildTool
	}
	return &Locator{dotnetPath: dotnetPath}
}

// Name returns the locator identity recorded on build steps
func (l *Locator) Name() string {
	return Name
}

// IsBuildTool reports whether command names the dotnet CLI, with or without
// a directory or .exe suffix.
func IsBuildTool(command string) bool {
	base := filepath.Base(strings.ReplaceAll(command, `\`, "/"))
	return strings.TrimSuffix(strings.ToLower(base), ".exe") == BuildTool
}

// CreateScenario converts a dotnet task template into a debug scenario.
// It returns false when the template is not a debuggable dotnet invocation:
//
//	run, r  rewritten to "build"
//	build   used unchanged
//	test    only with --no-build already present
//
// Every other sub-command is rejected. The caller's template is never mutated.
func (l *Locator) CreateScenario(template types.TaskTemplate, label, adapter string) (*types.DebugScenario, bool) {
	if !IsBuildTool(template.Command) {
		return nil, false
	}

	task := template.Clone()
	if len(task.Args) == 0 {
		return nil, false
	}

	switch task.Args[0] {
	case "run", "r":
		task.Args[0] = "build"
	case "build":
	case "test":
		if !containsArg(task.Args, noBuildFlag) {
			return nil, false
		}
	default:
		return nil, false
	}

	return &types.DebugScenario{
		Adapter: adapter,
		Label:   label,
		Build: &types.BuildTaskDefinition{
			Template:    task,
			LocatorName: l.Name(),
		},
		Config: append([]byte(nil), launchStub...),
	}, true
}

// Run executes the resolved build task and returns a launch request for the
// produced assembly. The build is not cancellable: it runs until it exits.
func (l *Locator) Run(ctx context.Context, task types.SpawnInTerminal) (*types.DebugRequest, error) {
	logger := ctxlog.FromContext(ctx)

	if task.Cwd == "" {
		return nil, errors.ConfigError("cwd", "is required for dotnet build")
	}

	args := make([]string, 0, len(task.Args)+len(injectedBuildFlags))
	for _, a := range task.Args {
		if a == argSeparator {
			break
		}
		args = append(args, a)
	}
	args = append(args, injectedBuildFlags...)

	program, argv := buildCommand(task.Shell, l.dotnetPath, args)
	logger.Info("running dotnet build", "program", program, "args", argv, "cwd", task.Cwd)

	started := time.Now()
	stdout, stderr, err := runBuild(program, argv, task.Cwd, task.Env)
	metrics.BuildDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			metrics.Builds.WithLabelValues("failed").Inc()
			return nil, errors.BuildError(BuildTool, exitErr.ExitCode(), stderr)
		}
		metrics.Builds.WithLabelValues("spawn_failed").Inc()
		return nil, errors.BuildSpawnFailed(program, err)
	}
	metrics.Builds.WithLabelValues("succeeded").Inc()

	assembly, err := FindOutputAssembly(stdout, task.Cwd)
	if err != nil {
		return nil, err
	}
	logger.Info("found output assembly", "path", assembly)

	return &types.DebugRequest{
		Launch: &types.LaunchRequest{
			Program: assembly,
			Cwd:     task.Cwd,
			Args:    []string{},
			Env:     map[string]string{},
		},
	}, nil
}

// runBuild spawns the build and drains stdout and stderr concurrently before
// waiting on the exit status.
func runBuild(program string, args []string, cwd string, env map[string]string) (string, string, error) {
	//nolint:gosec // G204: running the user's build tool is the point
	cmd := exec.Command(program, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", "", err
	}

	if err := cmd.Start(); err != nil {
		return "", "", err
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	drainErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		return stdout.String(), stderr.String(), err
	}
	if drainErr != nil {
		return stdout.String(), stderr.String(), drainErr
	}
	return stdout.String(), stderr.String(), nil
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
