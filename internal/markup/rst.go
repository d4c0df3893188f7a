package markup

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
)

// DefaultLinkBase prefixes toctree links when no base is configured.
const DefaultLinkBase = "/docs/lmms-engine"

const toctreeMarker = ".. toctree::"

var (
	docRefPattern     = regexp.MustCompile(":doc:`([^`]+)`")
	literalPattern    = regexp.MustCompile("``([^`]+)``")
	hyperlinkPattern  = regexp.MustCompile("`([^`<]+?)\\s*<([^>]+)>`_")
	refPattern        = regexp.MustCompile(":ref:`[^`]+`")
	directivePattern  = regexp.MustCompile(`\.\. [a-z-]+::`)
	bulletOnlyPattern = regexp.MustCompile(`^\s*\*\s*$`)
	underlineOnly     = regexp.MustCompile(`^\s*[=\-~]+\s*$`)
)

// headerLevels maps RST underline characters to Markdown heading prefixes, in
// the order they are applied.
var headerLevels = []struct {
	char   byte
	prefix string
}{
	{'=', "# "},
	{'-', "## "},
	{'~', "### "},
}

// RSTConverter rewrites reStructuredText into MDX-safe Markdown.
type RSTConverter struct {
	// LinkBase prefixes every toctree link, e.g. "/docs/lmms-engine".
	LinkBase string

	// extraPass, when set, runs after the built-in passes. Tests use it to
	// exercise the recovery path.
	extraPass func(string) string
}

// NewRSTConverter returns a converter whose toctree links live under linkBase.
func NewRSTConverter(linkBase string) *RSTConverter {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	return &RSTConverter{LinkBase: strings.TrimRight(linkBase, "/")}
}

// Convert runs the full pipeline: toctree expansion, headers, :doc: links,
// inline formatting, directive stripping, brace escaping, then trim.
// currentDir is the source file's directory relative to the docs root ("" at
// the root) and resolves relative toctree entries.
func (c *RSTConverter) Convert(src, currentDir string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = errors.ConversionError("rst conversion failed").
				WithCause(fmt.Errorf("%v", r)).
				WithContext("current_dir", currentDir).
				Build()
		}
	}()

	md := c.convertToctree(src, currentDir)
	md = convertHeaders(md)
	md = convertDocRefs(md)
	md = convertInline(md)
	md = stripDirectives(md)
	md = EscapeBraces(md)
	if c.extraPass != nil {
		md = c.extraPass(md)
	}
	return strings.TrimSpace(md), nil
}

// ConvertOrOriginal is the fail-open form of Convert: on any conversion
// failure it logs a warning and returns src unchanged.
func (c *RSTConverter) ConvertOrOriginal(src, currentDir string) string {
	out, err := c.Convert(src, currentDir)
	if err != nil {
		slog.Warn("RST conversion failed; keeping original text",
			logfields.Path(currentDir), logfields.Error(err))
		return src
	}
	return out
}

// convertToctree replaces each toctree block with an optional "## Caption"
// heading and a bullet list of links. A block is the directive line plus the
// following blank or indented lines; it must be followed by a blank line and
// unindented text, or run to the end of the document.
func (c *RSTConverter) convertToctree(src, currentDir string) string {
	if !strings.Contains(src, toctreeMarker) {
		return src
	}
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		idx := strings.Index(line, toctreeMarker)
		if idx < 0 || strings.TrimSpace(line[idx+len(toctreeMarker):]) != "" {
			out = append(out, line)
			continue
		}

		end := i + 1
		for end < len(lines) && (strings.TrimSpace(lines[end]) == "" || isIndented(lines[end])) {
			end++
		}
		if end < len(lines) {
			// Stopped at unindented text: the block must end on a blank line,
			// which stays in the output as the separator.
			if end-1 <= i || strings.TrimSpace(lines[end-1]) != "" {
				out = append(out, line)
				continue
			}
			end--
		}

		rendered := line[:idx] + c.renderToctree(lines[i+1:end], currentDir)
		out = append(out, strings.TrimSuffix(rendered, "\n"))
		i = end - 1
	}
	return strings.Join(out, "\n")
}

func (c *RSTConverter) renderToctree(block []string, currentDir string) string {
	var caption string
	var entries []string
	for _, raw := range block {
		l := strings.TrimSpace(raw)
		switch {
		case l == "":
		case strings.HasPrefix(l, ":"):
			if rest, ok := strings.CutPrefix(l, ":caption:"); ok && caption == "" {
				caption = strings.TrimSpace(rest)
			}
		default:
			entries = append(entries, l)
		}
	}

	var b strings.Builder
	if caption != "" {
		fmt.Fprintf(&b, "## %s\n\n", caption)
	}
	for _, entry := range entries {
		fmt.Fprintf(&b, "- [%s](%s/%s)\n", toctreeTitle(entry), c.LinkBase, resolveEntry(entry, currentDir))
	}
	b.WriteString("\n")
	return b.String()
}

func resolveEntry(entry, currentDir string) string {
	if rest, ok := strings.CutPrefix(entry, "/"); ok {
		return rest
	}
	if currentDir == "" {
		return entry
	}
	return path.Join(currentDir, entry)
}

func isIndented(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

// convertHeaders turns underlined titles into ATX headings, one underline
// character at a time, then blanks any underline left without a title.
func convertHeaders(content string) string {
	lines := strings.Split(content, "\n")
	for _, lvl := range headerLevels {
		out := lines[:0:0]
		for i := 0; i < len(lines); i++ {
			if lines[i] != "" && i+1 < len(lines) && isUnderline(lines[i+1], lvl.char) {
				out = append(out, lvl.prefix+lines[i])
				i++
				continue
			}
			out = append(out, lines[i])
		}
		lines = out
	}
	for i, line := range lines {
		if underlineOnly.MatchString(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func isUnderline(line string, char byte) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != char {
			return false
		}
	}
	return true
}

// convertDocRefs rewrites :doc:`path` into [last-segment](path).
func convertDocRefs(content string) string {
	return docRefPattern.ReplaceAllStringFunc(content, func(m string) string {
		target := docRefPattern.FindStringSubmatch(m)[1]
		title := path.Base(target)
		if title == "." || title == "/" {
			title = target
		}
		return "[" + title + "](" + target + ")"
	})
}

// convertInline handles literals and hyperlink references. Bold markup is
// identical in both dialects and passes through.
func convertInline(content string) string {
	content = literalPattern.ReplaceAllString(content, "`$1`")
	return hyperlinkPattern.ReplaceAllString(content, "[$1]($2)")
}

// stripDirectives drops :ref: roles and directive markers, and blanks lines
// holding only a bullet.
func stripDirectives(content string) string {
	content = refPattern.ReplaceAllString(content, "")
	content = directivePattern.ReplaceAllString(content, "")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if bulletOnlyPattern.MatchString(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// EscapeBraces escapes { and } outside fenced code so the renderer does not
// read them as expressions. Braces that are already escaped are left alone,
// which keeps the transform idempotent.
func EscapeBraces(content string) string {
	return mapOutsideFences(content, func(line string) string {
		line = replaceUnescaped(line, '{', `\{`)
		return replaceUnescaped(line, '}', `\}`)
	})
}
