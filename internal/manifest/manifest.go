// Package manifest builds the navigation files the site renderer reads:
// per-directory meta.json page orderings, the changelog sub-manifest and the
// version switcher list.
package manifest

import (
	"regexp"
	"strings"
)

const (
	// FileName is the renderer's per-directory navigation file.
	FileName = "meta.json"
	// ChangelogDir holds changelog pages and their own manifest.
	ChangelogDir = "changelogs"
	othersName   = "Others"
)

// Section is a named, ordered group of page slugs.
type Section struct {
	Name  string   `yaml:"name" json:"name"`
	Pages []string `yaml:"pages" json:"pages"`
}

// Manifest is a directory's navigation order. Separators appear in Pages as
// "---Name---".
type Manifest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Root        bool     `json:"root"`
	Pages       []string `json:"pages"`
}

// Separator returns the page-list marker for a section heading.
func Separator(name string) string {
	return "---" + name + "---"
}

// Input holds everything Build needs for one version directory.
type Input struct {
	Label       string
	Description string
	// Docs are the slugs of top-level pages, in discovery order.
	Docs []string
	// Static are the configured sections, in display order.
	Static []Section
	// Folders are sections detected from upstream subfolders, in discovery
	// order. Their pages are not part of Docs.
	Folders []Section
	// Changelog matches changelog slugs among Docs; nil disables matching.
	Changelog *regexp.Regexp
	// HasChangelogFolder is set when pages were written to changelogs/ from an
	// upstream changelogs folder.
	HasChangelogFolder bool
}

// Build orders pages into sections. Each page is placed at most once and the
// first placement wins:
//  1. static sections, keeping only pages present in Docs
//  2. folder sections, reusing a same-named static section's order
//  3. an "Others" catch-all for remaining top-level pages
//  4. a trailing "changelogs" entry when any changelog page exists
func Build(in Input) Manifest {
	present := make(map[string]bool, len(in.Docs))
	for _, d := range in.Docs {
		present[d] = true
	}
	isChangelog := func(slug string) bool {
		return in.Changelog != nil && in.Changelog.MatchString(slug)
	}

	placed := make(map[string]bool, len(in.Docs))
	pages := make([]string, 0, len(in.Docs)+len(in.Static)+4)
	emit := func(name string, candidates []string) {
		var section []string
		for _, p := range candidates {
			if placed[p] {
				continue
			}
			placed[p] = true
			section = append(section, p)
		}
		if len(section) == 0 {
			return
		}
		pages = append(pages, Separator(name))
		pages = append(pages, section...)
	}

	for _, s := range in.Static {
		var existing []string
		for _, p := range s.Pages {
			if present[p] && !isChangelog(p) {
				existing = append(existing, p)
			}
		}
		emit(s.Name, existing)
	}

	for _, f := range in.Folders {
		emit(f.Name, orderFolder(f, in.Static))
	}

	var remaining []string
	hasChangelog := in.HasChangelogFolder
	for _, d := range in.Docs {
		if isChangelog(d) {
			hasChangelog = true
			continue
		}
		remaining = append(remaining, d)
	}
	emit(othersName, remaining)

	if hasChangelog {
		pages = append(pages, ChangelogDir)
	}

	return Manifest{
		Title:       in.Label,
		Description: in.Description,
		Root:        true,
		Pages:       pages,
	}
}

// orderFolder returns the folder's pages in the order of a static section with
// the same name (case-insensitive), followed by pages that section does not
// list. Without a matching section the folder's own order is kept.
func orderFolder(folder Section, static []Section) []string {
	var match *Section
	for i := range static {
		if strings.EqualFold(static[i].Name, folder.Name) {
			match = &static[i]
			break
		}
	}
	if match == nil {
		return folder.Pages
	}

	inFolder := make(map[string]bool, len(folder.Pages))
	for _, p := range folder.Pages {
		inFolder[p] = true
	}
	listed := make(map[string]bool, len(match.Pages))
	ordered := make([]string, 0, len(folder.Pages))
	for _, p := range match.Pages {
		listed[p] = true
		if inFolder[p] {
			ordered = append(ordered, p)
		}
	}
	for _, p := range folder.Pages {
		if !listed[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// BuildTree returns the root manifest of a tree pipeline: "index" when
// present, then each top-level group in first-seen order.
func BuildTree(title, description string, slugs []string) Manifest {
	pages := make([]string, 0, len(slugs))
	hasIndex := false
	seen := make(map[string]bool)
	var groups []string
	for _, s := range slugs {
		if s == "index" {
			hasIndex = true
			continue
		}
		group, _, nested := strings.Cut(s, "/")
		if !nested || seen[group] {
			continue
		}
		seen[group] = true
		groups = append(groups, group)
	}
	if hasIndex {
		pages = append(pages, "index")
	}
	pages = append(pages, groups...)

	return Manifest{Title: title, Description: description, Root: true, Pages: pages}
}
