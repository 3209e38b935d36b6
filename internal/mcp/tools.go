package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the dotnet debugging tools. Tools that run builds
// or spawn debuggers are registered in full mode only.
func (s *Server) registerTools() {
	// Solutions
	s.registerSolutionLoad()
	s.registerSolutionParse()
	s.registerProjectPackages()

	// Tasks
	s.registerTaskTemplates()
	s.registerTaskCreateScenario()

	// Adapters
	s.registerAdapterSchema()
	s.registerAdapterResolveBinary()
	s.registerLaunchAssemble()
	s.registerDebugListSessions()

	if s.config.CanBuild() {
		s.registerTaskRunScenario()
	}
	if s.config.CanStartSessions() {
		s.registerDebugStart()
		s.registerDebugStop()
	}
}

// Solution Tools

func (s *Server) registerSolutionLoad() {
	tool := mcp.NewTool("solution_load",
		mcp.WithDescription("Load a .sln or .slnx solution with the NuGet packages of every project. Accepts a solution file or a directory; directories are searched along with up to three parent directories."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Solution file or directory to search from"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleSolutionLoad)
}

func (s *Server) registerSolutionParse() {
	tool := mcp.NewTool("solution_parse",
		mcp.WithDescription("Parse solution text (legacy .sln or XML .slnx, detected from the content) into projects, configurations and startup project."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full text of the solution file"),
		),
		mcp.WithString("baseDir",
			mcp.Description("Directory the solution lives in; project paths are relative to it"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleSolutionParse)
}

func (s *Server) registerProjectPackages() {
	tool := mcp.NewTool("project_packages",
		mcp.WithDescription("List the PackageReference entries of a .csproj/.fsproj/.vbproj file."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the project file"),
		),
		mcp.WithString("constraint",
			mcp.Description("Optional semantic version constraint (e.g. '>= 13.0'); each package reports whether its version satisfies it"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleProjectPackages)
}

// Task Tools

func (s *Server) registerTaskTemplates() {
	tool := mcp.NewTool("task_templates",
		mcp.WithDescription("List the default dotnet task templates (build, clean, test, run)."),
	)
	s.mcpServer.AddTool(tool, s.handleTaskTemplates)
}

func (s *Server) registerTaskCreateScenario() {
	tool := mcp.NewTool("task_create_scenario",
		mcp.WithDescription("Turn a dotnet task into a debug scenario: 'run' becomes 'build', 'build' is kept and 'test' needs --no-build. Returns a scenarioId for task_run_scenario."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Build tool command, normally 'dotnet'"),
		),
		mcp.WithArray("args",
			mcp.Description("Command arguments, e.g. [\"run\", \"--project\", \"src/App\"]"),
			mcp.WithStringItems(),
		),
		mcp.WithString("label",
			mcp.Description("Scenario label (defaults to the command line)"),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory for the build; may use ${workspaceFolder}"),
		),
		mcp.WithObject("env",
			mcp.Description("Extra environment variables for the build"),
		),
		mcp.WithString("adapter",
			mcp.Description("Debug adapter for the scenario: 'vsdbg' (default) or 'netcoredbg'"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleTaskCreateScenario)
}

func (s *Server) registerTaskRunScenario() {
	tool := mcp.NewTool("task_run_scenario",
		mcp.WithDescription("Run a scenario's build and locate the produced assembly. Returns the launch request and a ready launch configuration."),
		mcp.WithString("scenarioId",
			mcp.Required(),
			mcp.Description("Scenario ID from task_create_scenario"),
		),
		mcp.WithString("workspace",
			mcp.Description("Workspace root for ${workspaceFolder}; when the scenario has no cwd the solution's startup project directory is used"),
		),
		mcp.WithObject("inputValues",
			mcp.Description("Values for ${input:} variables in the task"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleTaskRunScenario)
}

// Adapter Tools

func (s *Server) registerAdapterSchema() {
	tool := mcp.NewTool("adapter_schema",
		mcp.WithDescription("Return the JSON schema of the configuration fields an adapter understands."),
		mcp.WithString("adapter",
			mcp.Description("Adapter name (default: configured default adapter)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleAdapterSchema)
}

func (s *Server) registerAdapterResolveBinary() {
	tool := mcp.NewTool("adapter_resolve_binary",
		mcp.WithDescription("Locate an adapter's debugger executable on PATH or in the adapter cache directory."),
		mcp.WithString("adapter",
			mcp.Description("Adapter name (default: configured default adapter)"),
		),
		mcp.WithBoolean("invalidate",
			mcp.Description("Forget any cached location before resolving (default: false)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleAdapterResolveBinary)
}

func (s *Server) registerLaunchAssemble() {
	tool := mcp.NewTool("launch_assemble",
		append([]mcp.ToolOption{
			mcp.WithDescription("Assemble the payload that starts a debugger: executable, arguments, environment, working directory and the launch/attach request arguments."),
		}, launchParams()...)...,
	)
	s.mcpServer.AddTool(tool, s.handleLaunchAssemble)
}

// Session Tools

func (s *Server) registerDebugStart() {
	params := append(launchParams(),
		mcp.WithNumber("port",
			mcp.Description("Connect over TCP to this port instead of the debugger's stdio"),
		),
		mcp.WithString("host",
			mcp.Description("Host for a TCP connection (default: 127.0.0.1)"),
		),
	)
	tool := mcp.NewTool("debug_start",
		append([]mcp.ToolOption{
			mcp.WithDescription("Start a debug session: spawn the debugger, initialize, send launch or attach, then configurationDone. Returns the sessionId."),
		}, params...)...,
	)
	s.mcpServer.AddTool(tool, s.handleDebugStart)
}

func (s *Server) registerDebugStop() {
	tool := mcp.NewTool("debug_stop",
		mcp.WithDescription("Disconnect from a debug session and stop the debugger"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("Session ID from debug_start"),
		),
		mcp.WithBoolean("terminateDebuggee",
			mcp.Description("Terminate the debugged program (default: true)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugStop)
}

func (s *Server) registerDebugListSessions() {
	tool := mcp.NewTool("debug_list_sessions",
		mcp.WithDescription("List all active debug sessions"),
	)
	s.mcpServer.AddTool(tool, s.handleDebugListSessions)
}

// launchParams are the inputs shared by launch_assemble and debug_start
func launchParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("adapter",
			mcp.Description("Adapter name (default: configured default adapter)"),
		),
		mcp.WithString("label",
			mcp.Description("Session label"),
		),
		mcp.WithObject("configuration",
			mcp.Required(),
			mcp.Description("coreclr configuration, e.g. {\"request\":\"launch\",\"program\":\"/app/bin/Debug/net8.0/App.dll\"}. A JSON string is accepted too."),
		),
		mcp.WithString("debuggerPath",
			mcp.Description("User-installed debugger executable; skips resolution"),
		),
		mcp.WithArray("debuggerArgs",
			mcp.Description("Extra arguments for the debugger"),
			mcp.WithStringItems(),
		),
		mcp.WithObject("debuggerEnv",
			mcp.Description("Extra environment for the debugger"),
		),
	}
}
