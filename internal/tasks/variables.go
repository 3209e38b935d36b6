// Package tasks resolves task templates into runnable tasks.
//
// Templates may reference ${...} variables in their command, arguments,
// working directory and environment values. Supported variables:
//   - ${workspaceFolder}, ${workspaceFolderBasename}
//   - ${userHome}, ${cwd}, ${pathSeparator}
//   - ${env:NAME} (context overrides first, then the process environment)
//   - ${input:ID} (values supplied by the caller)
package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// Variable pattern matches ${...} expressions
var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Context supplies the values variables resolve to
type Context struct {
	WorkspaceFolder string
	EnvOverrides    map[string]string
	InputValues     map[string]string
}

// ResolveVariables replaces all ${...} variables in text. Unresolvable
// variables are left in place and the last failure is returned.
func ResolveVariables(text string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = &Context{}
	}

	var lastErr error
	result := variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		resolved, err := resolveVariable(match[2:len(match)-1], ctx)
		if err != nil {
			lastErr = err
			return match
		}
		return resolved
	})

	return result, lastErr
}

func resolveVariable(expr string, ctx *Context) (string, error) {
	switch {
	case expr == "workspaceFolder":
		if ctx.WorkspaceFolder == "" {
			return "", fmt.Errorf("${workspaceFolder} used without a workspace")
		}
		return ctx.WorkspaceFolder, nil

	case expr == "workspaceFolderBasename":
		if ctx.WorkspaceFolder == "" {
			return "", fmt.Errorf("${workspaceFolderBasename} used without a workspace")
		}
		return filepath.Base(ctx.WorkspaceFolder), nil

	case expr == "userHome":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home: %w", err)
		}
		return home, nil

	case expr == "cwd":
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get cwd: %w", err)
		}
		return cwd, nil

	case expr == "pathSeparator":
		return string(os.PathSeparator), nil

	case strings.HasPrefix(expr, "env:"):
		name := strings.TrimPrefix(expr, "env:")
		if val, ok := ctx.EnvOverrides[name]; ok {
			return val, nil
		}
		return os.Getenv(name), nil

	case strings.HasPrefix(expr, "input:"):
		id := strings.TrimPrefix(expr, "input:")
		if val, ok := ctx.InputValues[id]; ok {
			return val, nil
		}
		return "", fmt.Errorf("missing input value for ${input:%s}", id)
	}
	return "", fmt.Errorf("unknown variable: ${%s}", expr)
}

// Resolve substitutes variables throughout template and returns the task to
// run. A relative working directory is taken relative to the workspace.
func Resolve(template types.TaskTemplate, ctx *Context) (types.SpawnInTerminal, error) {
	if ctx == nil {
		ctx = &Context{}
	}

	var firstErr error
	resolve := func(s string) string {
		out, err := ResolveVariables(s, ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return out
	}

	task := types.SpawnInTerminal{
		Label:   template.Label,
		Command: resolve(template.Command),
		Cwd:     resolve(template.Cwd),
		Shell:   template.Shell,
	}
	if template.Args != nil {
		task.Args = make([]string, len(template.Args))
		for i, a := range template.Args {
			task.Args[i] = resolve(a)
		}
	}
	if template.Env != nil {
		task.Env = make(map[string]string, len(template.Env))
		for k, v := range template.Env {
			task.Env[k] = resolve(v)
		}
	}
	if template.Shell.Args != nil {
		task.Shell.Args = append([]string(nil), template.Shell.Args...)
	}

	if firstErr != nil {
		return types.SpawnInTerminal{}, errors.ConfigError("template", firstErr.Error())
	}

	if task.Cwd != "" && !filepath.IsAbs(task.Cwd) && ctx.WorkspaceFolder != "" {
		task.Cwd = filepath.Join(ctx.WorkspaceFolder, task.Cwd)
	}
	return task, nil
}
