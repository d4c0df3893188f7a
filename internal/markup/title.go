package markup

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	sourceExt   = regexp.MustCompile(`(?i)\.(mdx?|rst)$`)
	wordSeps    = strings.NewReplacer("-", " ", "_", " ")
	underscores = strings.NewReplacer("_", " ")
)

// titleCase upper-cases the first letter of each word and leaves the rest alone.
func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// HumanizeName turns a snake_case or kebab-case name into a display title,
// e.g. "getting_started" -> "Getting Started".
func HumanizeName(name string) string {
	return titleCase(wordSeps.Replace(name))
}

// StripExt removes a .md, .mdx or .rst extension.
func StripExt(name string) string {
	return sourceExt.ReplaceAllString(name, "")
}

// IsReadme reports whether name is a README.md in any case.
func IsReadme(name string) bool {
	return strings.EqualFold(name, "readme.md")
}

// IsIndex reports whether name is an index page source.
func IsIndex(name string) bool {
	lower := strings.ToLower(name)
	return lower == "index.rst" || lower == "index.md"
}

// TitleFromFilename derives a page title from its file name. README.md becomes
// "Index".
func TitleFromFilename(name string) string {
	if IsReadme(name) {
		return "Index"
	}
	return HumanizeName(StripExt(name))
}

// TitleForPage derives a title for a file at relPath inside a walked docs tree.
// Index pages are named after their directory, or "Welcome" at the root.
func TitleForPage(relPath string) string {
	name := path.Base(relPath)
	if !IsIndex(name) {
		return TitleFromFilename(name)
	}
	dir := path.Dir(relPath)
	if dir == "." || dir == "" {
		return "Welcome"
	}
	return HumanizeName(path.Base(dir))
}

// Slug returns the lowercase, extension-stripped page key for a file name.
// README.md maps to "index".
func Slug(name string) string {
	if IsReadme(name) {
		return "index"
	}
	return strings.ToLower(StripExt(name))
}

// SlugForPath returns the slug of a file at relPath, keeping its directories.
func SlugForPath(relPath string) string {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	dir, name := path.Split(relPath)
	return strings.ToLower(dir) + Slug(name)
}

// toctreeTitle derives the visible title of a toctree entry from its last
// path segment.
func toctreeTitle(entry string) string {
	return titleCase(underscores.Replace(path.Base(entry)))
}
