package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ctagard/dotnet-dap/internal/adapters"
	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/locator"
	"github.com/ctagard/dotnet-dap/internal/solution"
	"github.com/ctagard/dotnet-dap/internal/tasks"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Solution Handlers

func (s *Server) handleSolutionLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(errors.MissingParameter("path", "Specify a .sln/.slnx file or a directory inside the solution."))
	}

	info, err := os.Stat(path)
	if err != nil {
		return toolError(errors.InvalidParameter("path", path, "an existing file or directory"))
	}
	if info.IsDir() {
		found, err := solution.FindSolutionFile(path)
		if err != nil {
			return toolError(err)
		}
		path = found
	}

	sf, err := solution.Load(ctx, path)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(solutionSummary(sf))
}

func (s *Server) handleSolutionParse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return toolError(errors.MissingParameter("content", "Pass the full text of the solution file."))
	}
	baseDir := request.GetString("baseDir", "")

	sf, err := solution.Parse(content, baseDir)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(solutionSummary(sf))
}

// solutionSummary adds the derived views an agent usually wants next
func solutionSummary(sf *solution.SolutionFile) map[string]interface{} {
	executable := make([]string, 0)
	for _, p := range sf.GetExecutableProjects() {
		executable = append(executable, p.Name)
	}

	result := map[string]interface{}{
		"solution":           sf,
		"executableProjects": executable,
	}
	if startup := sf.GetStartupProject(); startup != nil {
		result["startupProject"] = startup.Name
	}
	return result
}

func (s *Server) handleProjectPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return toolError(errors.MissingParameter("path", "Specify the project file, e.g. src/App/App.csproj."))
	}

	packages, err := solution.LoadProjectPackages(path)
	if err != nil {
		return toolError(err)
	}

	constraint := request.GetString("constraint", "")
	entries := make([]map[string]interface{}, 0, len(packages))
	for _, p := range packages {
		entry := map[string]interface{}{
			"id":      p.ID,
			"version": p.Version,
		}
		if constraint != "" {
			entry["satisfies"] = p.Satisfies(constraint)
		}
		entries = append(entries, entry)
	}

	return jsonResult(map[string]interface{}{
		"project":  path,
		"packages": entries,
		"count":    len(entries),
	})
}

// Task Handlers

func (s *Server) handleTaskTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"templates": locator.DefaultTemplates(),
	})
}

func (s *Server) handleTaskCreateScenario(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := request.RequireString("command")
	if err != nil {
		return toolError(errors.MissingParameter("command", "Specify the build tool, normally 'dotnet'."))
	}

	adapterName := request.GetString("adapter", s.config.DefaultAdapter)
	if _, err := s.adapterReg.Get(adapterName); err != nil {
		return toolError(err)
	}

	env, err := stringMap(request, "env")
	if err != nil {
		return toolError(err)
	}

	template := types.TaskTemplate{
		Command: command,
		Args:    request.GetStringSlice("args", nil),
		Cwd:     request.GetString("cwd", ""),
		Env:     env,
	}
	template.Label = request.GetString("label", strings.TrimSpace(command+" "+strings.Join(template.Args, " ")))

	scenario, ok := s.locator.CreateScenario(template, template.Label, adapterName)
	if !ok {
		return toolError(errors.InvalidParameter("args", template.Args,
			"a dotnet 'run', 'build' or 'test --no-build' invocation"))
	}

	id := uuid.New().String()
	if evicted := s.scenarios.Add(id, scenario); evicted {
		ctxlog.FromContext(ctx).Debug("scenario store full, evicted oldest scenario")
	}

	return jsonResult(map[string]interface{}{
		"scenarioId": id,
		"scenario":   scenario,
	})
}

func (s *Server) handleTaskRunScenario(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("scenarioId")
	if err != nil {
		return toolError(errors.MissingParameter("scenarioId", "Call task_create_scenario first."))
	}

	scenario, ok := s.scenarios.Get(id)
	if !ok {
		return toolError(errors.ScenarioNotFound(id))
	}
	if scenario.Build == nil || scenario.Build.LocatorName != locator.Name {
		return toolError(errors.InvalidParameter("scenarioId", id, "a scenario with a dotnet build step"))
	}

	inputs, err := stringMap(request, "inputValues")
	if err != nil {
		return toolError(err)
	}
	workspace := request.GetString("workspace", "")

	task, err := tasks.Resolve(scenario.Build.Template, &tasks.Context{
		WorkspaceFolder: workspace,
		InputValues:     inputs,
	})
	if err != nil {
		return toolError(err)
	}
	if task.Cwd == "" && workspace != "" {
		dir, err := locator.FindStartupProjectDir(workspace)
		if err != nil {
			ctxlog.FromContext(ctx).Debug("no startup project, building in workspace", "workspace", workspace, "error", err)
			dir = workspace
		}
		task.Cwd = dir
	}

	req, err := s.locator.Run(ctx, task)
	if err != nil {
		return toolError(err)
	}

	configuration, err := launchConfiguration(scenario.Config, req.Launch)
	if err != nil {
		return toolError(err)
	}

	return jsonResult(map[string]interface{}{
		"scenarioId":    id,
		"adapter":       scenario.Adapter,
		"request":       req,
		"configuration": configuration,
	})
}

// launchConfiguration fills the scenario's configuration stub with the
// located program so it can be passed straight to debug_start
func launchConfiguration(stub json.RawMessage, launch *types.LaunchRequest) (json.RawMessage, error) {
	out := append([]byte(nil), stub...)
	if len(out) == 0 {
		out = []byte("{}")
	}
	var err error
	for _, kv := range []struct {
		path  string
		value interface{}
	}{
		{"program", launch.Program},
		{"cwd", launch.Cwd},
		{"args", launch.Args},
		{"env", launch.Env},
	} {
		out, err = sjson.SetBytes(out, kv.path, kv.value)
		if err != nil {
			return nil, errors.Wrap(errors.CodeConfig, "failed to build launch configuration", "", err)
		}
	}
	return out, nil
}

// Adapter Handlers

func (s *Server) handleAdapterSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	adapter, err := s.adapterReg.Get(request.GetString("adapter", s.config.DefaultAdapter))
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(adapter.Schema())), nil
}

// resolverOwner is implemented by adapters that resolve their own binary
type resolverOwner interface {
	Resolver() *adapters.BinaryResolver
}

func (s *Server) handleAdapterResolveBinary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("adapter", s.config.DefaultAdapter)
	adapter, err := s.adapterReg.Get(name)
	if err != nil {
		return toolError(err)
	}

	if request.GetBool("invalidate", false) {
		adapter.Invalidate()
	}

	owner, ok := adapter.(resolverOwner)
	if !ok {
		return toolError(errors.InvalidParameter("adapter", name, "an adapter with a binary resolver"))
	}

	path, err := owner.Resolver().Resolve(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"adapter": name,
		"path":    path,
	})
}

func (s *Server) handleLaunchAssemble(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, bin, err := s.assemble(ctx, request)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(bin)
}

// assemble reads the shared launch parameters and asks the adapter for its
// payload
func (s *Server) assemble(ctx context.Context, request mcp.CallToolRequest) (string, *types.DebugAdapterBinary, error) {
	name := request.GetString("adapter", s.config.DefaultAdapter)
	adapter, err := s.adapterReg.Get(name)
	if err != nil {
		return "", nil, err
	}

	config, err := rawJSON(request, "configuration")
	if err != nil {
		return "", nil, err
	}
	userEnv, err := stringMap(request, "debuggerEnv")
	if err != nil {
		return "", nil, err
	}

	task := types.DebugTaskDefinition{
		Adapter: name,
		Label:   request.GetString("label", ""),
		Config:  config,
	}

	bin, err := adapter.GetBinary(ctx, task,
		request.GetString("debuggerPath", ""),
		request.GetStringSlice("debuggerArgs", nil),
		userEnv,
	)
	if err != nil {
		return "", nil, err
	}
	return name, bin, nil
}

// Session Handlers

func (s *Server) handleDebugStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := ctxlog.FromContext(ctx)

	name, bin, err := s.assemble(ctx, request)
	if err != nil {
		return toolError(err)
	}
	if port := int(request.GetFloat("port", 0)); port > 0 {
		bin.Connection = &types.TCPConnection{
			Host: request.GetString("host", "127.0.0.1"),
			Port: port,
		}
	}

	program := gjson.GetBytes(bin.RequestArgs.Configuration, "program").String()
	session, err := s.sessionManager.CreateSession(name, bin.RequestArgs.Request, program)
	if err != nil {
		return toolError(err)
	}

	client, cmd, err := adapters.Spawn(ctx, bin)
	if err != nil {
		_ = s.sessionManager.TerminateSession(session.ID, false)
		return toolError(errors.Wrap(errors.CodeDAPProtocolError,
			fmt.Sprintf("failed to start %s", name), "Check the debugger path with adapter_resolve_binary.", err))
	}
	if err := s.sessionManager.Bind(session.ID, client, cmd); err != nil {
		return toolError(err)
	}

	if _, err := client.Initialize("dotnet-dap", "dotnet-dap"); err != nil {
		_ = s.sessionManager.TerminateSession(session.ID, true)
		return toolError(err)
	}
	if err := client.Start(bin.RequestArgs); err != nil {
		_ = s.sessionManager.TerminateSession(session.ID, true)
		return toolError(err)
	}

	_ = s.sessionManager.UpdateSessionStatus(session.ID, types.SessionStatusRunning)
	logger.Info("debug session started", "session", session.ID, "adapter", name, "request", bin.RequestArgs.Request)

	caps := client.Capabilities()
	return jsonResult(map[string]interface{}{
		"session": session.GetInfo(),
		"capabilities": map[string]interface{}{
			"supportsConfigurationDoneRequest": caps.SupportsConfigurationDoneRequest,
			"supportsFunctionBreakpoints":      caps.SupportsFunctionBreakpoints,
			"supportsConditionalBreakpoints":   caps.SupportsConditionalBreakpoints,
			"supportsEvaluateForHovers":        caps.SupportsEvaluateForHovers,
			"supportsSetVariable":              caps.SupportsSetVariable,
			"supportsTerminateRequest":         caps.SupportsTerminateRequest,
		},
	})
}

func (s *Server) handleDebugStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("sessionId")
	if err != nil {
		return toolError(errors.MissingParameter("sessionId", "Use debug_list_sessions to see active sessions."))
	}

	if err := s.sessionManager.TerminateSession(id, request.GetBool("terminateDebuggee", true)); err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]interface{}{
		"sessionId": id,
		"status":    types.SessionStatusTerminated,
	})
}

func (s *Server) handleDebugListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.sessionManager.ListSessions()
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.GetInfo())
	}
	return jsonResult(map[string]interface{}{
		"sessions": infos,
		"count":    len(infos),
	})
}

// Helper functions

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(errors.FromError(err).Error()), nil
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// stringMap reads an optional object argument with string values
func stringMap(request mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.InvalidParameter(key, raw, "an object of string values")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v := v.(type) {
		case string:
			out[k] = v
		case float64, bool:
			out[k] = fmt.Sprint(v)
		default:
			return nil, errors.InvalidParameter(key+"."+k, v, "a string")
		}
	}
	return out, nil
}

// rawJSON reads a required argument given either as an object or as a JSON
// string
func rawJSON(request mcp.CallToolRequest, key string) (json.RawMessage, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, errors.MissingParameter(key, "Pass the debug configuration as a JSON object.")
	}
	if str, ok := raw.(string); ok {
		if !json.Valid([]byte(str)) {
			return nil, errors.InvalidParameter(key, str, "valid JSON")
		}
		return json.RawMessage(str), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.InvalidParameter(key, raw, "a JSON object")
	}
	return data, nil
}
