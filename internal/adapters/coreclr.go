package adapters

import (
	"context"
	"encoding/json"

	"github.com/ctagard/dotnet-dap/internal/config"
	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/launch"
	"github.com/ctagard/dotnet-dap/internal/metrics"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// coreclrSchema lists the configuration fields both .NET debuggers accept
var coreclrSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "type": {
      "type": "string",
      "enum": ["coreclr"],
      "description": "Type of debugger",
      "default": "coreclr"
    },
    "request": {
      "type": "string",
      "enum": ["launch", "attach"],
      "description": "Launch or attach to a running process"
    },
    "name": {
      "type": "string",
      "description": "The name of the debug session"
    },
    "program": {
      "type": "string",
      "description": "Path to the .NET executable or DLL to debug"
    },
    "args": {
      "type": ["array"],
      "items": { "type": "string" },
      "description": "Command line arguments to pass to the program"
    },
    "cwd": {
      "type": "string",
      "description": "Working directory of the program"
    },
    "stopAtEntry": {
      "type": "boolean",
      "description": "Stop at the first line of the program",
      "default": false
    },
    "console": {
      "type": "string",
      "enum": ["integratedTerminal", "externalTerminal", "internalConsole"],
      "description": "Which console to use"
    },
    "processId": {
      "type": ["string", "integer"],
      "description": "Process ID to attach to (for attach requests)"
    }
  }
}`)

// coreclrAdapter is the behavior shared by the .NET debuggers: resolve a
// binary, then hand the configuration to the launch assembler.
type coreclrAdapter struct {
	name     string
	baseArgs []string
	cfg      config.AdapterConfig
	resolver *BinaryResolver
}

func newCoreclrAdapter(name, binary, hint string, baseArgs []string, adapterCfg config.AdapterConfig, cfg *config.Config, probe Probe) *coreclrAdapter {
	return &coreclrAdapter{
		name:     name,
		baseArgs: baseArgs,
		cfg:      adapterCfg,
		resolver: NewBinaryResolver(ResolverOptions{
			Adapter:       name,
			Binary:        ExecutableName(binary),
			CacheDir:      cfg.AdaptersDir,
			InstallHint:   hint,
			CacheFailures: cfg.CacheFailures,
			Probe:         probe,
		}),
	}
}

// Name returns the adapter name
func (a *coreclrAdapter) Name() string {
	return a.name
}

// Schema returns the coreclr configuration schema
func (a *coreclrAdapter) Schema() json.RawMessage {
	return coreclrSchema
}

// Resolver exposes the adapter's binary resolver
func (a *coreclrAdapter) Resolver() *BinaryResolver {
	return a.resolver
}

// Invalidate forgets the cached binary location
func (a *coreclrAdapter) Invalidate() {
	a.resolver.Invalidate()
}

// GetBinary resolves the debugger and assembles the adapter payload.
// userPath falls back to the configured path; userArgs falls back to the
// configured arguments. The configured environment is the base that userEnv
// overrides.
func (a *coreclrAdapter) GetBinary(ctx context.Context, task types.DebugTaskDefinition, userPath string, userArgs []string, userEnv map[string]string) (*types.DebugAdapterBinary, error) {
	command := userPath
	if command == "" {
		command = a.cfg.Path
	}

	if command != "" {
		ctxlog.FromContext(ctx).Debug("using user-installed debugger", "adapter", a.name, "path", command)
		metrics.BinaryResolutions.WithLabelValues(a.name, "explicit").Inc()
	} else {
		path, err := a.resolver.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		command = path
	}

	if userArgs == nil {
		userArgs = a.cfg.Args
	}

	return launch.Assemble(command, a.baseArgs, task, userArgs, a.cfg.Env, userEnv)
}
