package manifest

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ChangelogManifest is the collapsible changelog folder's navigation file.
type ChangelogManifest struct {
	Title       string   `json:"title"`
	DefaultOpen bool     `json:"defaultOpen"`
	Pages       []string `json:"pages"`
}

var leadingFloat = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)`)

// BuildChangelog sorts changelog slugs newest first by the number that follows
// prefix. The number is read as a decimal, so "0.4.1" compares as 0.4 and
// "0.10" sorts below "0.9"; ties keep their input order and slugs without a
// number sort last.
func BuildChangelog(slugs []string, prefix string) ChangelogManifest {
	sorted := slices.Clone(slugs)
	slices.SortStableFunc(sorted, func(a, b string) int {
		va, vb := changelogNumber(a, prefix), changelogNumber(b, prefix)
		switch {
		case math.IsNaN(va) && math.IsNaN(vb):
			return 0
		case math.IsNaN(va):
			return 1
		case math.IsNaN(vb):
			return -1
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})
	if sorted == nil {
		sorted = []string{}
	}
	return ChangelogManifest{Title: "Changelogs", DefaultOpen: false, Pages: sorted}
}

func changelogNumber(slug, prefix string) float64 {
	rest := strings.Replace(slug, prefix, "", 1)
	m := leadingFloat.FindString(rest)
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
