package tasks

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/pkg/types"
)

// TestResolveVariables verifies each supported variable.
func TestResolveVariables(t *testing.T) {
	t.Setenv("DOTNET_DAP_TEST_VAR", "from-process")
	workspace := filepath.Join(string(os.PathSeparator), "work", "shop")
	ctx := &Context{
		WorkspaceFolder: workspace,
		EnvOverrides:    map[string]string{"OVERRIDDEN": "from-override"},
		InputValues:     map[string]string{"project": "src/App"},
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get cwd: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"${workspaceFolder}/src", workspace + "/src"},
		{"${workspaceFolderBasename}", "shop"},
		{"${cwd}", cwd},
		{"a${pathSeparator}b", "a" + string(os.PathSeparator) + "b"},
		{"${env:DOTNET_DAP_TEST_VAR}", "from-process"},
		{"${env:OVERRIDDEN}", "from-override"},
		{"${env:DOTNET_DAP_UNSET_VAR}", ""},
		{"--project ${input:project}", "--project src/App"},
		{"no variables", "no variables"},
	}

	for _, tc := range tests {
		got, err := ResolveVariables(tc.input, ctx)
		if err != nil {
			t.Errorf("ResolveVariables(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveVariables(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestResolveVariables_Errors verifies unresolvable variables stay in place.
func TestResolveVariables_Errors(t *testing.T) {
	tests := []string{
		"${workspaceFolder}",
		"${workspaceFolderBasename}",
		"${input:missing}",
		"${command:pickProcess}",
	}
	for _, input := range tests {
		got, err := ResolveVariables(input, nil)
		if err == nil {
			t.Errorf("ResolveVariables(%q): expected error", input)
		}
		if got != input {
			t.Errorf("ResolveVariables(%q) = %q, want unchanged", input, got)
		}
	}
}

// TestResolve verifies a template resolves into a runnable task without
// mutating the template.
func TestResolve(t *testing.T) {
	workspace := t.TempDir()
	template := types.TaskTemplate{
		Label:   "dotnet: build",
		Command: "dotnet",
		Args:    []string{"build", "${workspaceFolder}/App.sln"},
		Cwd:     "src/App",
		Env:     map[string]string{"CONFIG": "${input:config}"},
		Shell:   types.Shell{Kind: types.ShellProgram, Program: "bash", Args: []string{"-c"}},
	}
	original := template.Clone()

	task, err := Resolve(template, &Context{
		WorkspaceFolder: workspace,
		InputValues:     map[string]string{"config": "Release"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(template, original) {
		t.Errorf("template was mutated: %+v", template)
	}
	if task.Label != "dotnet: build" || task.Command != "dotnet" {
		t.Errorf("unexpected task identity %+v", task)
	}
	if !reflect.DeepEqual(task.Args, []string{"build", workspace + "/App.sln"}) {
		t.Errorf("unexpected args %v", task.Args)
	}
	if task.Cwd != filepath.Join(workspace, "src", "App") {
		t.Errorf("expected cwd under workspace, got %s", task.Cwd)
	}
	if task.Env["CONFIG"] != "Release" {
		t.Errorf("unexpected env %v", task.Env)
	}
	if !reflect.DeepEqual(task.Shell, template.Shell) {
		t.Errorf("expected shell preserved, got %+v", task.Shell)
	}
}

// TestResolve_AbsoluteCwd verifies an absolute cwd is kept as is.
func TestResolve_AbsoluteCwd(t *testing.T) {
	abs := t.TempDir()
	task, err := Resolve(types.TaskTemplate{Command: "dotnet", Cwd: abs}, &Context{WorkspaceFolder: "/elsewhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Cwd != abs {
		t.Errorf("expected %s, got %s", abs, task.Cwd)
	}
}

// TestResolve_Error verifies a failed substitution is a configuration error.
func TestResolve_Error(t *testing.T) {
	_, err := Resolve(types.TaskTemplate{Command: "dotnet", Args: []string{"${input:nope}"}}, nil)
	if !errors.HasCode(err, errors.CodeConfig) {
		t.Errorf("expected %s, got %v", errors.CodeConfig, err)
	}
}
