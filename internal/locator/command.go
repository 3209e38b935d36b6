package locator

import (
	"os"
	"runtime"
	"strings"

	"github.com/ctagard/dotnet-dap/pkg/types"
)

// buildCommand turns a program and its arguments into the process to spawn
// for the given shell. Shell-wrapped commands are run non-interactively.
func buildCommand(shell types.Shell, program string, args []string) (string, []string) {
	switch shell.Kind {
	case types.ShellSystem:
		return systemShell(), []string{shellFlag(systemShell()), commandLine(program, args)}
	case types.ShellProgram:
		if shell.Program == "" {
			break
		}
		flags := shell.Args
		if len(flags) == 0 {
			flags = []string{shellFlag(shell.Program)}
		}
		argv := append(append([]string(nil), flags...), commandLine(program, args))
		return shell.Program, argv
	}
	return program, append([]string(nil), args...)
}

func systemShell() string {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func shellFlag(shell string) string {
	base := strings.ToLower(shell)
	switch {
	case strings.HasSuffix(base, "cmd.exe"), strings.HasSuffix(base, "cmd"):
		return "/C"
	case strings.Contains(base, "pwsh"), strings.Contains(base, "powershell"):
		return "-Command"
	}
	return "-c"
}

// commandLine joins program and args into one shell-quoted line.
func commandLine(program string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(program))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
