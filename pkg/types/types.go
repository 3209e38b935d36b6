// Package types defines shared data types used across the dotnet-dap pipeline.
//
// This package provides type definitions for:
//   - Task inputs: TaskTemplate, Shell, SpawnInTerminal (a resolved task)
//   - Scenarios: DebugScenario and its optional BuildTaskDefinition
//   - Requests: DebugRequest carrying a LaunchRequest
//   - Adapter output: DebugTaskDefinition, StartDebuggingRequestArguments,
//     DebugAdapterBinary
//   - Sessions: SessionStatus, SessionInfo
//
// Producers (locator, adapters, launch) and consumers (the MCP surface and
// the DAP client) exchange these values rather than each other's internals.
package types

import "encoding/json"

// RequestKind is the DAP request a configuration starts with
type RequestKind string

const (
	RequestLaunch RequestKind = "launch"
	RequestAttach RequestKind = "attach"
)

// ShellKind selects how a task command line is executed
type ShellKind string

const (
	// ShellDirect executes the program directly without a shell.
	ShellDirect ShellKind = ""
	// ShellSystem wraps the command line in the user's login shell.
	ShellSystem ShellKind = "system"
	// ShellProgram wraps the command line in a named shell program.
	ShellProgram ShellKind = "program"
)

// Shell describes the shell a task runs in
type Shell struct {
	Kind    ShellKind `json:"kind,omitempty"`
	Program string    `json:"program,omitempty"`
	Args    []string  `json:"args,omitempty"`
}

// TaskTemplate is a generic build-tool invocation before variable resolution
type TaskTemplate struct {
	Label   string            `json:"label"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Shell   Shell             `json:"shell,omitempty"`
}

// Clone returns a deep copy so scenario rewrites never alias the caller's template
func (t TaskTemplate) Clone() TaskTemplate {
	c := t
	if t.Args != nil {
		c.Args = append([]string(nil), t.Args...)
	}
	if t.Env != nil {
		c.Env = make(map[string]string, len(t.Env))
		for k, v := range t.Env {
			c.Env[k] = v
		}
	}
	if t.Shell.Args != nil {
		c.Shell.Args = append([]string(nil), t.Shell.Args...)
	}
	return c
}

// SpawnInTerminal is a fully resolved task ready to be executed
type SpawnInTerminal struct {
	Label   string            `json:"label"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Shell   Shell             `json:"shell,omitempty"`
}

// BuildTaskDefinition is the build step of a scenario. LocatorName tells the
// runtime which locator turns the finished build into a DebugRequest.
type BuildTaskDefinition struct {
	Template    TaskTemplate `json:"template"`
	LocatorName string       `json:"locatorName,omitempty"`
}

// TCPConnection is a network transport descriptor for an adapter
type TCPConnection struct {
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// DebugScenario describes an optional build step followed by a launch or
// attach configuration
type DebugScenario struct {
	Adapter       string               `json:"adapter"`
	Label         string               `json:"label"`
	Build         *BuildTaskDefinition `json:"build,omitempty"`
	Config        json.RawMessage      `json:"config"`
	TCPConnection *TCPConnection       `json:"tcpConnection,omitempty"`
}

// LaunchRequest starts a new process under the debugger
type LaunchRequest struct {
	Program string            `json:"program"`
	Cwd     string            `json:"cwd,omitempty"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// DebugRequest is what a build locator hands back once the build is done.
// Locators only ever produce launch requests; attach configurations go
// straight to the adapter.
type DebugRequest struct {
	Launch *LaunchRequest `json:"launch,omitempty"`
}

// DebugTaskDefinition is what an adapter receives when a session starts
type DebugTaskDefinition struct {
	Adapter       string          `json:"adapter"`
	Label         string          `json:"label"`
	Config        json.RawMessage `json:"config"`
	TCPConnection *TCPConnection  `json:"tcpConnection,omitempty"`
}

// StartDebuggingRequestArguments combines the configuration map with the
// request kind it will be sent as
type StartDebuggingRequestArguments struct {
	Configuration json.RawMessage `json:"configuration"`
	Request       RequestKind     `json:"request"`
}

// DebugAdapterBinary is the final, transport-ready payload
type DebugAdapterBinary struct {
	Command     string                         `json:"command"`
	Arguments   []string                       `json:"arguments"`
	Env         map[string]string              `json:"envs"`
	Cwd         string                         `json:"cwd,omitempty"`
	Connection  *TCPConnection                 `json:"connection,omitempty"`
	RequestArgs StartDebuggingRequestArguments `json:"requestArgs"`
}

// SessionStatus represents the lifecycle state of a debug session
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusTerminated   SessionStatus = "terminated"
)

// SessionInfo is the externally visible state of a debug session
type SessionInfo struct {
	SessionID string        `json:"sessionId"`
	Adapter   string        `json:"adapter"`
	Request   RequestKind   `json:"request"`
	Status    SessionStatus `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Program   string        `json:"program,omitempty"`
	ExitCode  *int          `json:"exitCode,omitempty"`
}
