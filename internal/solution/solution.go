// Package solution parses .NET solution and project descriptors.
//
// Two solution dialects are supported:
//   - the legacy line-oriented .sln format
//   - the XML-based .slnx format
//
// Dialect is chosen by sniffing the content, not the file extension. Project
// descriptors (.csproj and friends) are scanned for PackageReference items.
// Parsing is tolerant: unrecognized lines, elements and attributes are
// ignored, and only a markup construct left open at end of input fails.
package solution

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"

	"github.com/ctagard/dotnet-dap/internal/metrics"
)

// Dialect identifies the solution file format
type Dialect string

const (
	DialectSln  Dialect = "sln"
	DialectSlnx Dialect = "slnx"
)

// Well-known project type GUIDs. TypeCSharp is also the type assigned to
// every .slnx project, since that format does not record one.
const (
	TypeCSharp       = "FAE04EC0-301F-11D3-BA7A-00C04FC2CCAE"
	TypeCSharpLegacy = "FAE04EC0-301F-11D3-BF4B-00C04F79EFBC"
	TypeCSharpSDK    = "9A19103F-16F7-4668-BE54-9A1E7A4F7556"
	TypeVisualBasic  = "F184B08F-C81C-45F6-A57F-5ABD9991F28F"
	TypeFSharp       = "F2A71F9B-5D33-465A-A702-920D77279786"
	TypeCpp          = "8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942"
	TypeSolutionItem = "2150E333-8FDC-42A3-9474-1A3956D46DE8"
)

var projectKinds = map[string]string{
	TypeCSharp:       "csharp",
	TypeCSharpLegacy: "csharp",
	TypeCSharpSDK:    "csharp",
	TypeVisualBasic:  "vb",
	TypeFSharp:       "fsharp",
	TypeCpp:          "cpp",
	TypeSolutionItem: "folder",
}

var defaultConfigurations = []string{"Debug", "Release"}

// NuGetPackage is a package reference declared by a project
type NuGetPackage struct {
	// ID is the package id, e.g. "Newtonsoft.Json"
	ID string `json:"id"`
	// Version is empty when the reference carries no version
	Version string `json:"version,omitempty"`
}

// SolutionProject is one buildable unit within a solution
type SolutionProject struct {
	Name string `json:"name"`
	// Path to the project file, relative to the solution directory
	Path string `json:"path"`
	// GUID identifies the project within its solution. For .slnx files it
	// is synthesized from the project path and is not a registered GUID.
	GUID     string         `json:"guid"`
	TypeGUID string         `json:"typeGuid"`
	Packages []NuGetPackage `json:"packages"`
}

// Kind maps the project type GUID to a short name ("csharp", "folder", ...)
// or "unknown".
func (p *SolutionProject) Kind() string {
	if k, ok := projectKinds[strings.ToUpper(p.TypeGUID)]; ok {
		return k
	}
	return "unknown"
}

// SolutionFile is a parsed solution
type SolutionFile struct {
	Path           string            `json:"path"`
	Dialect        Dialect           `json:"dialect"`
	Projects       []SolutionProject `json:"projects"`
	Configurations []string          `json:"configurations"`
	// StartupProject is the GUID of the startup project, empty if none
	StartupProject string `json:"startupProject,omitempty"`
}

// Parse parses solution descriptor text. baseDir is the directory the
// solution lives in; project paths stay relative to it.
func Parse(content, baseDir string) (*SolutionFile, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))

	var (
		sf  *SolutionFile
		err error
	)
	if isMarkup(trimmed) {
		sf, err = parseSlnx(content, baseDir)
	} else {
		sf = parseSln(content, baseDir)
	}
	if err != nil {
		metrics.SolutionParses.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SolutionParses.WithLabelValues(string(sf.Dialect)).Inc()

	sf.fixStartupProject()
	return sf, nil
}

// isMarkup reports whether trimmed content is the XML dialect. Leading
// comments are skipped; an unterminated one counts as markup so the parse
// reports it.
func isMarkup(trimmed string) bool {
	for strings.HasPrefix(trimmed, "<!--") {
		end := strings.Index(trimmed, "-->")
		if end < 0 {
			return true
		}
		trimmed = strings.TrimSpace(trimmed[end+len("-->"):])
	}
	return strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<Solution")
}

// parseSln scans the legacy line format. It cannot fail.
func parseSln(content, baseDir string) *SolutionFile {
	sf := &SolutionFile{
		Path:    filepath.Join(baseDir, "solution.sln"),
		Dialect: DialectSln,
	}

	inConfigSection := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, `Project("`):
			if p, ok := parseProjectLine(line); ok {
				sf.Projects = append(sf.Projects, p)
			}
			continue
		case strings.HasPrefix(line, "GlobalSection(SolutionConfigurationPlatforms)"):
			inConfigSection = true
			continue
		case strings.HasPrefix(line, "EndGlobalSection"):
			inConfigSection = false
			continue
		}

		if strings.HasPrefix(line, "Debug|") || strings.HasPrefix(line, "Release|") ||
			(inConfigSection && strings.Contains(line, "|")) {
			name, _, _ := strings.Cut(line, "|")
			if name = strings.TrimSpace(name); name != "" && !contains(sf.Configurations, name) {
				sf.Configurations = append(sf.Configurations, name)
			}
		}

		if strings.Contains(line, "StartupProject") {
			if guid, ok := extractGUID(line); ok {
				sf.StartupProject = guid
			}
		}
	}

	if len(sf.Configurations) == 0 {
		sf.Configurations = append([]string(nil), defaultConfigurations...)
	}
	return sf
}

// parseProjectLine parses
//
//	Project("{type-guid}") = "name", "path", "{guid}"
func parseProjectLine(line string) (SolutionProject, bool) {
	typeGUID, ok := extractGUID(line)
	if !ok {
		return SolutionProject{}, false
	}

	_, rest, ok := strings.Cut(line, "=")
	if !ok {
		return SolutionProject{}, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) < 3 {
		return SolutionProject{}, false
	}
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}

	return SolutionProject{
		Name:     parts[0],
		Path:     normalizePath(parts[1]),
		GUID:     strings.Trim(parts[2], "{}"),
		TypeGUID: typeGUID,
	}, true
}

// extractGUID returns the contents of the first {...} token in line.
func extractGUID(line string) (string, bool) {
	start := strings.IndexByte(line, '{')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start:], '}')
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+end], true
}

// parseSlnx scans the XML format for Project and BuildType elements at any
// depth.
func parseSlnx(content, baseDir string) (*SolutionFile, error) {
	sf := &SolutionFile{
		Path:    filepath.Join(baseDir, "solution.slnx"),
		Dialect: DialectSlnx,
	}
	seen := make(map[string]bool)

	r := newMarkupReader(content)
	for {
		t, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if t.kind == tagClose {
			continue
		}

		switch t.name {
		case "Project":
			raw, ok := t.attr("Path")
			if !ok || raw == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			path := normalizePath(raw)
			sf.Projects = append(sf.Projects, SolutionProject{
				Name:     projectName(path),
				Path:     path,
				GUID:     synthesizeGUID(raw),
				TypeGUID: TypeCSharp,
			})
		case "BuildType":
			if name, ok := t.attr("Name"); ok && name != "" && !contains(sf.Configurations, name) {
				sf.Configurations = append(sf.Configurations, name)
			}
		}
	}

	if len(sf.Configurations) == 0 {
		sf.Configurations = append([]string(nil), defaultConfigurations...)
	}
	return sf, nil
}

// synthesizeGUID hashes a project path into a GUID-shaped string. It is
// stable for identical input but carries no meaning outside this solution.
func synthesizeGUID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	sum := h.Sum64()
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uint32(sum>>32),
		uint16(sum>>16),
		uint16(sum),
		uint16(sum>>48),
		sum&0xFFFFFFFFFFFF)
}

func projectName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "Unknown"
	}
	return name
}

// normalizePath converts Windows separators so project paths resolve on any OS.
func normalizePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}

// fixStartupProject keeps StartupProject pointing at a project of this
// solution, defaulting to the first declared project.
func (sf *SolutionFile) fixStartupProject() {
	if sf.StartupProject != "" && sf.GetProjectByGUID(sf.StartupProject) != nil {
		return
	}
	sf.StartupProject = ""
	if len(sf.Projects) > 0 {
		sf.StartupProject = sf.Projects[0].GUID
	}
}

// GetProject returns the first project with the given name, or nil
func (sf *SolutionFile) GetProject(name string) *SolutionProject {
	for i := range sf.Projects {
		if sf.Projects[i].Name == name {
			return &sf.Projects[i]
		}
	}
	return nil
}

// GetProjectByGUID returns the first project with the given GUID, or nil.
// GUIDs compare case-insensitively.
func (sf *SolutionFile) GetProjectByGUID(guid string) *SolutionProject {
	guid = strings.Trim(guid, "{}")
	for i := range sf.Projects {
		if strings.EqualFold(sf.Projects[i].GUID, guid) {
			return &sf.Projects[i]
		}
	}
	return nil
}

// GetStartupProject returns the startup project, or nil
func (sf *SolutionFile) GetStartupProject() *SolutionProject {
	if sf.StartupProject == "" {
		return nil
	}
	return sf.GetProjectByGUID(sf.StartupProject)
}

// GetExecutableProjects returns the projects likely to have an entry point.
// Any project whose name contains "Test" is excluded; this is a naming
// heuristic only.
func (sf *SolutionFile) GetExecutableProjects() []*SolutionProject {
	var out []*SolutionProject
	for i := range sf.Projects {
		if !strings.Contains(sf.Projects[i].Name, "Test") {
			out = append(out, &sf.Projects[i])
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
