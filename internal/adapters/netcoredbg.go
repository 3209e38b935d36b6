package adapters

import (
	"github.com/ctagard/dotnet-dap/internal/config"
)

// NetcoredbgName is the name of the open source .NET debugger adapter
const NetcoredbgName = "netcoredbg"

const netcoredbgInstallHint = "Please install netcoredbg and put it on PATH.\n" +
	"Releases: https://github.com/Samsung/netcoredbg/releases"

// NetcoredbgAdapter implements the Adapter interface for netcoredbg, which
// speaks DAP on stdio when started with --interpreter=vscode.
type NetcoredbgAdapter struct {
	*coreclrAdapter
}

// NewNetcoredbgAdapter creates a new netcoredbg adapter
func NewNetcoredbgAdapter(cfg *config.Config, probe Probe) *NetcoredbgAdapter {
	return &NetcoredbgAdapter{
		coreclrAdapter: newCoreclrAdapter(NetcoredbgName, "netcoredbg", netcoredbgInstallHint,
			[]string{"--interpreter=vscode"}, cfg.Adapters.Netcoredbg, cfg, probe),
	}
}
