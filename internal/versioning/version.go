package versioning

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

var (
	prereleaseSuffix = regexp.MustCompile(`(?i)\.(dev|post)\d*$`)
	releaseTag       = regexp.MustCompile(`^v(\d+)\.(\d+)(?:\.(\d+))?$`)
)

// ParsedVersion is a release tag split into its numeric parts.
type ParsedVersion struct {
	Major int
	Minor int
	Patch int
	Tag   string // original tag, e.g. "v0.6.1"
}

// String returns the normalized MAJOR.MINOR.PATCH form.
func (v ParsedVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare orders versions by (major, minor, patch) ascending.
func (v ParsedVersion) Compare(o ParsedVersion) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// ParseVersion parses vMAJOR.MINOR[.PATCH]. Tags ending in .devN or .postN
// are rejected even when the numeric prefix would match; a missing patch is 0.
func ParseVersion(tag string) (ParsedVersion, bool) {
	if prereleaseSuffix.MatchString(tag) {
		return ParsedVersion{}, false
	}
	m := releaseTag.FindStringSubmatch(tag)
	if m == nil {
		return ParsedVersion{}, false
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedVersion{}, false
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedVersion{}, false
	}
	patch := 0
	if m[3] != "" {
		if patch, err = strconv.Atoi(m[3]); err != nil {
			return ParsedVersion{}, false
		}
	}
	return ParsedVersion{Major: major, Minor: minor, Patch: patch, Tag: tag}, true
}

// SelectVersions parses every tag, drops non-releases and returns the rest
// newest first. Every matching tag is kept, including older patches of the
// same minor.
func SelectVersions(tags []string) []ParsedVersion {
	out := make([]ParsedVersion, 0, len(tags))
	for _, tag := range tags {
		if v, ok := ParseVersion(tag); ok {
			out = append(out, v)
		}
	}
	slices.SortStableFunc(out, func(a, b ParsedVersion) int { return b.Compare(a) })
	return out
}

// LatestPatchPerMinor keeps the newest patch of each (major, minor). Input
// must be sorted newest first, as returned by SelectVersions.
func LatestPatchPerMinor(versions []ParsedVersion) []ParsedVersion {
	type minorKey struct{ major, minor int }
	seen := make(map[minorKey]bool, len(versions))
	out := make([]ParsedVersion, 0, len(versions))
	for _, v := range versions {
		k := minorKey{v.Major, v.Minor}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// Policy narrows the selected versions.
type Policy struct {
	LatestPatchOnly bool
	Max             int // 0 = unlimited
}

// Apply selects versions from tags and applies the policy.
func (p Policy) Apply(tags []string) []ParsedVersion {
	versions := SelectVersions(tags)
	if p.LatestPatchOnly {
		versions = LatestPatchPerMinor(versions)
	}
	if p.Max > 0 && len(versions) > p.Max {
		versions = versions[:p.Max]
	}
	return versions
}
