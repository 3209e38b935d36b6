package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctagard/dotnet-dap/internal/config"
	"github.com/ctagard/dotnet-dap/internal/ctxlog"
	"github.com/ctagard/dotnet-dap/internal/mcp"
	"github.com/ctagard/dotnet-dap/internal/metrics"
	"github.com/ctagard/dotnet-dap/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "", "Capability mode: 'readonly' or 'full' (default from config: full)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (default from config: info)")
	checkUpdate := flag.Bool("check-update", false, "Check for a newer release and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("dotnet-dap version %s\n", version.Version)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	switch *mode {
	case "":
	case string(config.ModeReadOnly):
		cfg.Mode = config.ModeReadOnly
	case string(config.ModeFull):
		cfg.Mode = config.ModeFull
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q: use 'readonly' or 'full'\n", *mode)
		os.Exit(2)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// stdout carries the MCP protocol, so logs go to stderr
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	if *checkUpdate {
		checkForUpdates(ctx)
		return
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	server, err := mcp.NewServer(ctx, cfg)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		server.Close()
		os.Exit(0)
	}()

	logger.Info("dotnet-dap server starting", "version", version.Version, "mode", cfg.Mode)
	if err := server.ServeStdio(); err != nil {
		server.Close()
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	server.Close()
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}

func checkForUpdates(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := version.CheckForUpdates(ctx, nil, version.GitHubAPIURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
		os.Exit(1)
	}
	if msg := info.UpdateMessage(); msg != "" {
		fmt.Println(msg)
		return
	}
	fmt.Printf("dotnet-dap %s is up to date\n", info.CurrentVersion)
}

func printHelp() {
	fmt.Println(`dotnet-dap: .NET debugging pipeline as an MCP server

Parses .sln/.slnx solutions and project package references, turns dotnet
tasks into debug scenarios, runs the build to find the produced assembly,
resolves the vsdbg or netcoredbg debugger and starts DAP sessions.

USAGE:
    dotnet-dap [OPTIONS]

OPTIONS:
    -config <path>         Path to configuration file (JSON)
    -mode <mode>           Capability mode: 'readonly' or 'full' (default: full)
    -metrics-addr <addr>   Serve Prometheus metrics on addr (default: disabled)
    -log-level <level>     debug, info, warn or error (default: info)
    -check-update          Check for a newer release and exit
    -version               Show version and exit
    -help                  Show this help message

CONFIGURATION:
    {
        "mode": "full",
        "dotnet": { "path": "dotnet" },
        "adaptersDir": "~/.cache/dotnet-dap/debug_adapters",
        "defaultAdapter": "vsdbg",
        "adapters": {
            "vsdbg": { "path": "", "args": ["--interpreter=vscode"] },
            "netcoredbg": { "path": "/usr/local/bin/netcoredbg" }
        },
        "cacheFailures": false,
        "maxScenarios": 64,
        "maxSessions": 10
    }

    A .env file in the working directory is loaded first. These variables
    override the file: DOTNET_DAP_DOTNET_PATH, DOTNET_DAP_ADAPTERS_DIR,
    DOTNET_DAP_VSDBG_PATH, DOTNET_DAP_NETCOREDBG_PATH,
    DOTNET_DAP_CACHE_FAILURES, DOTNET_DAP_METRICS_ADDR, DOTNET_DAP_LOG_LEVEL.

TOOLS:
    Solutions:
        solution_load            Load a solution with project packages
        solution_parse           Parse solution text
        project_packages         List PackageReferences of a project

    Tasks:
        task_templates           Default dotnet task templates
        task_create_scenario     Turn a dotnet task into a debug scenario
        task_run_scenario        Build a scenario and locate the assembly (full mode)

    Adapters and sessions:
        adapter_schema           Configuration schema of an adapter
        adapter_resolve_binary   Locate the debugger executable
        launch_assemble          Build the payload that starts a debugger
        debug_start              Start a debug session (full mode)
        debug_stop               Stop a debug session (full mode)
        debug_list_sessions      List active sessions

For more information, visit: https://github.com/ctagard/dotnet-dap`)
}
