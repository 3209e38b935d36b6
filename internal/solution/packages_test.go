package solution_test

import (
	"reflect"
	"testing"

	"github.com/ctagard/dotnet-dap/internal/errors"
	"github.com/ctagard/dotnet-dap/internal/solution"
)

const projectFile = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
    <PackageReference Include="Serilog">
      <Version>3.1.1</Version>
    </PackageReference>
    <PackageReference Include="Microsoft.SourceLink.GitHub" PrivateAssets="all" />
    <PackageReference Version="1.0.0" />
    <!-- <PackageReference Include="Commented.Out" Version="9.9.9" /> -->
    <PackageReference Version='2.0.0' Include='Polly'></PackageReference>
  </ItemGroup>
</Project>
`

// TestParsePackageReferences verifies ids and versions in document order.
func TestParsePackageReferences(t *testing.T) {
	packages, err := solution.ParsePackageReferences(projectFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []solution.NuGetPackage{
		{ID: "Newtonsoft.Json", Version: "13.0.3"},
		{ID: "Serilog", Version: "3.1.1"},
		{ID: "Microsoft.SourceLink.GitHub"},
		{ID: "Polly", Version: "2.0.0"},
	}
	if !reflect.DeepEqual(packages, want) {
		t.Errorf("expected %+v, got %+v", want, packages)
	}
}

// TestParsePackageReferences_None verifies a project without references.
func TestParsePackageReferences_None(t *testing.T) {
	packages, err := solution.ParsePackageReferences(`<Project><PropertyGroup /></Project>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packages) != 0 {
		t.Errorf("expected no packages, got %+v", packages)
	}
}

// TestParsePackageReferences_Unterminated verifies an open reference fails.
func TestParsePackageReferences_Unterminated(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"open tag", `<Project><ItemGroup><PackageReference Include="A" Version="1.0"`},
		{"missing close element", `<Project><ItemGroup><PackageReference Include="A"><Version>1.0</Version>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := solution.ParsePackageReferences(tc.content)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !errors.HasCode(err, errors.CodeParse) {
				t.Errorf("expected %s, got %v", errors.CodeParse, err)
			}
		})
	}
}

// TestParsePackageReferences_UnclosedElement verifies a reference missing
// its closing tag keeps its version and does not hide later entries.
func TestParsePackageReferences_UnclosedElement(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []solution.NuGetPackage
	}{
		{
			name:    "closed by parent",
			content: `<ItemGroup><PackageReference Include="A" Version="1"></ItemGroup><ItemGroup><PackageReference Include="B" Version="2" /></ItemGroup>`,
			want:    []solution.NuGetPackage{{ID: "A", Version: "1"}, {ID: "B", Version: "2"}},
		},
		{
			name:    "followed by next reference",
			content: `<ItemGroup><PackageReference Include="A"><Version>1.2</Version><PackageReference Include="B" Version="2" /></ItemGroup>`,
			want:    []solution.NuGetPackage{{ID: "A", Version: "1.2"}, {ID: "B", Version: "2"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			packages, err := solution.ParsePackageReferences(tc.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(packages, tc.want) {
				t.Errorf("expected %+v, got %+v", tc.want, packages)
			}
		})
	}
}

// TestNuGetPackageSatisfies verifies constraint checks against package versions.
func TestNuGetPackageSatisfies(t *testing.T) {
	tests := []struct {
		version    string
		constraint string
		want       bool
	}{
		{"13.0.3", ">= 13.0", true},
		{"12.0.1", ">= 13.0", false},
		{"3.1.1", "~3.1", true},
		{"1.0.0-preview.1", ">= 1.0.0-0", true},
		{"", ">= 1.0", false},
		{"1.*", ">= 1.0", false},
		{"1.0.0", "not a constraint", false},
	}

	for _, tc := range tests {
		p := solution.NuGetPackage{ID: "Pkg", Version: tc.version}
		if got := p.Satisfies(tc.constraint); got != tc.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tc.version, tc.constraint, got, tc.want)
		}
	}
}
