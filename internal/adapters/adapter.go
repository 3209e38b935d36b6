// Package adapters provides the .NET debug adapter implementations.
//
// This package defines the Adapter interface every coreclr debugger
// implements, and provides concrete implementations for:
//   - vsdbg (Microsoft's .NET debugger)
//   - netcoredbg (Samsung's open source .NET debugger)
//
// Each adapter owns a BinaryResolver that locates its executable on PATH or
// in the adapter cache directory. The Registry maps adapter names to
// adapters, and Spawn starts an assembled adapter binary and connects a DAP
// client to it.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/ctagard/dotnet-dap/internal/config"
	"github.com/ctagard/dotnet-dap/internal/dap"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Adapter defines the interface for .NET debug adapters
type Adapter interface {
	// Name returns the adapter name used in scenarios and task definitions
	Name() string

	// Schema returns the JSON schema of the configuration fields the
	// adapter understands
	Schema() json.RawMessage

	// GetBinary resolves the debugger executable and assembles the payload
	// that starts it. A non-empty userPath bypasses resolution.
	GetBinary(ctx context.Context, task types.DebugTaskDefinition, userPath string, userArgs []string, userEnv map[string]string) (*types.DebugAdapterBinary, error)

	// Invalidate forgets any cached binary location
	Invalidate()
}

// Registry holds all registered adapters
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a new adapter registry with all supported adapters.
// A nil probe uses WhichProbe.
func NewRegistry(cfg *config.Config, probe Probe) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
	}

	r.Register(NewVsdbgAdapter(cfg, probe))
	r.Register(NewNetcoredbgAdapter(cfg, probe))

	return r
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, errors.InvalidParameter("adapter", name, fmt.Sprintf("one of %v", r.Names()))
	}
	return adapter, nil
}

// Register registers an adapter, overriding any adapter with the same name
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Names returns the registered adapter names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spawn starts the adapter process described by bin and returns a connected
// DAP client. Without a connection descriptor the client speaks over the
// process's stdin/stdout; with one it dials the adapter's TCP port. The
// process is not tied to ctx; callers stop it through the owning session.
func Spawn(ctx context.Context, bin *types.DebugAdapterBinary) (*dap.Client, *exec.Cmd, error) {
	//nolint:gosec // G204: This is a debug adapter that intentionally spawns subprocesses
	cmd := exec.Command(bin.Command, bin.Arguments...)
	cmd.Env = os.Environ()
	for k, v := range bin.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if bin.Cwd != "" {
		cmd.Dir = bin.Cwd
	}

	// Set platform-specific process attributes (procattr_unix.go / procattr_windows.go)
	setProcAttr(cmd)

	// stdout of this process is the MCP transport, so adapter chatter goes to stderr
	cmd.Stderr = os.Stderr

	if bin.Connection != nil {
		return spawnTCP(ctx, cmd, bin.Connection)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, nil, fmt.Errorf("failed to start %s: %w", bin.Command, err)
	}

	transport := dap.NewStdioTransport(stdin, stdout)
	return dap.NewClient(ctx, transport), cmd, nil
}

func spawnTCP(ctx context.Context, cmd *exec.Cmd, conn *types.TCPConnection) (*dap.Client, *exec.Cmd, error) {
	host := conn.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if conn.Port == 0 {
		return nil, nil, errors.InvalidParameter("connection.port", conn.Port, "a TCP port the adapter listens on")
	}
	address := net.JoinHostPort(host, strconv.Itoa(conn.Port))

	cmd.Stdout = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	timeout := defaultConnectTimeout
	if conn.Timeout > 0 {
		timeout = time.Duration(conn.Timeout) * time.Millisecond
	}

	client, err := Connect(ctx, address, timeout)
	if err != nil {
		_ = cmd.Process.Kill() // Error ignored: best-effort cleanup
		_ = cmd.Wait()
		return nil, nil, err
	}
	return client, cmd, nil
}

const (
	defaultConnectTimeout = 4 * time.Second
	connectRetryDelay     = 200 * time.Millisecond
)

// Connect dials a DAP server, retrying until timeout elapses so a freshly
// started adapter has time to open its port
func Connect(ctx context.Context, address string, timeout time.Duration) (*dap.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		transport, err := dap.NewTCPTransport(address, connectRetryDelay)
		if err == nil {
			return dap.NewClient(ctx, transport), nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to connect to debug adapter at %s: %w", address, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
}
