package adapters

import (
	"github.com/ctagard/dotnet-dap/internal/config"
)

// VsdbgName is the name of Microsoft's .NET debugger adapter
const VsdbgName = "vsdbg"

const vsdbgInstallHint = "Please install .NET SDK or download vsdbg manually.\n" +
	"To install: https://github.com/microsoft/vscode-csharp or dotnet install tool"

// VsdbgAdapter implements the Adapter interface for vsdbg.
// It supports .NET Framework, .NET Core and .NET 5+.
type VsdbgAdapter struct {
	*coreclrAdapter
}

// NewVsdbgAdapter creates a new vsdbg adapter
func NewVsdbgAdapter(cfg *config.Config, probe Probe) *VsdbgAdapter {
	return &VsdbgAdapter{
		coreclrAdapter: newCoreclrAdapter(VsdbgName, "vsdbg", vsdbgInstallHint, nil, cfg.Adapters.Vsdbg, cfg, probe),
	}
}
