package solution

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ctagard/dotnet-dap/internal/errors"
)

const packageReferenceTag = "PackageReference"

// ParsePackageReferences extracts PackageReference items from project
// descriptor markup, in document order. The package id comes from the
// Include attribute; entries without one are skipped. The version comes from
// a Version attribute or, failing that, a nested <Version> element.
//
// It fails only when a PackageReference element is still open at end of
// input. An element missing its closing tag ends at the next
// PackageReference or at the enclosing element's closing tag.
func ParsePackageReferences(content string) ([]NuGetPackage, error) {
	var packages []NuGetPackage

	r := newMarkupReader(content)
	for {
		t, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return packages, nil
		}
		if t.name != packageReferenceTag || t.kind == tagClose {
			continue
		}

		id, hasID := t.attr("Include")
		version, _ := t.attr("Version")

		if t.kind == tagOpen {
			nested, err := readReferenceBody(r, t)
			if err != nil {
				return nil, err
			}
			if version == "" {
				version = nested
			}
		}

		if hasID && id != "" {
			packages = append(packages, NuGetPackage{ID: id, Version: version})
		}
	}
}

// readReferenceBody consumes tags up to the closing </PackageReference> and
// returns the text of a nested <Version> element, if any. An element left
// open ends at the next PackageReference or at its parent's closing tag; the
// reader is rewound so that tag is seen again by the caller.
func readReferenceBody(r *markupReader, open tag) (string, error) {
	var version string
	versionStart := -1
	for {
		t, ok, err := r.next()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.ParseError(packageReferenceTag, open.start)
		}
		switch {
		case t.kind == tagClose && t.name == packageReferenceTag:
			return version, nil
		case t.name == packageReferenceTag, t.kind == tagClose && t.name != "Version":
			r.pos = t.start
			return version, nil
		case t.kind == tagOpen && t.name == "Version":
			versionStart = t.end
		case t.kind == tagClose && t.name == "Version" && versionStart >= 0:
			version = r.text(versionStart, t.start)
		}
	}
}

// SemVer parses the package version. Floating versions ("1.*") and version
// ranges ("[1.0,2.0)") do not parse and return an error.
func (p NuGetPackage) SemVer() (*semver.Version, error) {
	return semver.NewVersion(p.Version)
}

// Satisfies reports whether the package version matches a semver
// constraint such as ">= 13.0". Unversioned or unparsable versions never
// match.
func (p NuGetPackage) Satisfies(constraint string) bool {
	if p.Version == "" {
		return false
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}
	v, err := p.SemVer()
	if err != nil {
		return false
	}
	return c.Check(v)
}
