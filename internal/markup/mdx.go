package markup

import (
	"regexp"
	"strings"

	"github.com/evolvinglmms-lab/docsync/internal/frontmatter"
)

// DocMetadata describes one synced page.
type DocMetadata struct {
	Title       string
	Description string
	Slug        string
}

// Profile selects which MDX safety rewrites apply to a page body.
type Profile struct {
	// AngleLinks rewrites <https://...> autolinks into [url](url) and escapes
	// "<" before a digit, as in p<0.01.
	AngleLinks bool
	// Math rewrites $$ blocks and $inline$ spans into code.
	Math bool
}

var (
	// MarkdownProfile is applied to Markdown pages of versioned pipelines.
	MarkdownProfile = Profile{AngleLinks: true, Math: true}
	// TreeProfile is applied to every page of tree pipelines, after RST
	// conversion where relevant.
	TreeProfile = Profile{}
)

// allowedTags are real HTML elements left untouched by tag escaping.
var allowedTags = map[string]bool{
	"div": true, "span": true, "p": true, "a": true, "img": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true,
	"td": true, "th": true, "br": true, "hr": true,
}

// voidTags are normalized to self-closing form.
var voidTags = map[string]bool{"br": true, "hr": true, "img": true}

var (
	angleURLPattern    = regexp.MustCompile(`<(https?://[^>]+)>`)
	tagPattern         = regexp.MustCompile(`(?i)<([a-z_][a-z0-9_-]*)>`)
	inlineMathPattern  = regexp.MustCompile(`\$([^$\n]+)\$`)
	markdownImgPattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
)

const (
	imageWidth  = "800"
	imageHeight = "600"
)

// ToMDX applies the profile's body rewrites, injects image dimensions and
// prepends the title/description frontmatter.
func ToMDX(body string, meta DocMetadata, profile Profile) (string, error) {
	out := EscapeHTMLTags(body, profile.AngleLinks)
	if profile.Math {
		out = EscapeMath(out)
	}
	out = AddImageDimensions(out)

	header, err := frontmatter.Render(frontmatter.Page{Title: meta.Title, Description: meta.Description})
	if err != nil {
		return "", err
	}
	return string(header) + out, nil
}

// EscapeHTMLTags keeps allow-listed tags (normalizing br/hr/img to
// self-closing) and escapes any other <word> so it renders literally. With
// angleLinks, <https://...> becomes a Markdown link and "<" before a digit is
// escaped.
func EscapeHTMLTags(content string, angleLinks bool) string {
	return mapOutsideFences(content, func(line string) string {
		if angleLinks {
			line = angleURLPattern.ReplaceAllString(line, "[$1]($1)")
			line = escapeDigitComparisons(line)
		}
		return tagPattern.ReplaceAllStringFunc(line, func(m string) string {
			name := m[1 : len(m)-1]
			lower := strings.ToLower(name)
			switch {
			case voidTags[lower]:
				return "<" + name + " />"
			case allowedTags[lower]:
				return m
			default:
				return `\<` + name + `\>`
			}
		})
	})
}

func escapeDigitComparisons(line string) string {
	if !strings.Contains(line, "<") {
		return line
	}
	var b strings.Builder
	b.Grow(len(line) + 4)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '<' && i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' && (i == 0 || line[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeMath rewrites TeX math into code the renderer displays verbatim:
//   - a line that is exactly $$ opens a ```math fence and the next one closes it
//   - a line wrapped in $$...$$ becomes a one-line fenced block
//   - $x$ inline becomes `x`
//
// Lines inside code fences and open math blocks are left alone.
func EscapeMath(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	inCode, inMath := false, false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inMath:
			if trimmed == "$$" {
				inMath = false
				out = append(out, fenceMarker)
			} else {
				out = append(out, line)
			}
		case isFence(line):
			inCode = !inCode
			out = append(out, line)
		case inCode:
			out = append(out, line)
		case trimmed == "$$":
			inMath = true
			out = append(out, fenceMarker+"math")
		case len(trimmed) > 4 && strings.HasPrefix(trimmed, "$$") && strings.HasSuffix(trimmed, "$$"):
			out = append(out, fenceMarker, trimmed[2:len(trimmed)-2], fenceMarker)
		default:
			out = append(out, inlineMathPattern.ReplaceAllString(line, "`$1`"))
		}
	}
	return strings.Join(out, "\n")
}

// AddImageDimensions turns Markdown images into <img> tags with fixed
// dimensions so the renderer does not fetch remote images at build time.
// Images inside fenced code are left as written.
func AddImageDimensions(content string) string {
	return mapOutsideFences(content, func(line string) string {
		return markdownImgPattern.ReplaceAllStringFunc(line, func(m string) string {
			sub := markdownImgPattern.FindStringSubmatch(m)
			alt := strings.ReplaceAll(sub[1], `"`, "&quot;")
			return `<img src="` + sub[2] + `" alt="` + alt + `" width="` + imageWidth + `" height="` + imageHeight + `" />`
		})
	})
}
