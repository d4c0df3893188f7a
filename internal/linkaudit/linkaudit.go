// Package linkaudit inspects emitted MDX pages for broken relative links and
// missing titles. Findings are warnings; they never fail a sync.
package linkaudit

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"

	"github.com/evolvinglmms-lab/docsync/internal/markup"
)

// Kind classifies a finding.
type Kind string

const (
	KindMissingTitle       Kind = "missing_title"
	KindInvalidFrontmatter Kind = "invalid_frontmatter"
	KindBrokenLink         Kind = "broken_link"
)

// Finding is one problem found on a page.
type Finding struct {
	Page        string `json:"page"`
	Kind        Kind   `json:"kind"`
	Destination string `json:"destination,omitempty"`
}

// Auditor checks pages against the set of slugs produced by one sync.
type Auditor struct {
	md    goldmark.Markdown
	known map[string]struct{}
}

// New returns an auditor that treats slugs as the resolvable page set.
// Slug comparison is case-insensitive.
func New(slugs []string) *Auditor {
	known := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		known[strings.ToLower(s)] = struct{}{}
	}
	return &Auditor{
		md:    goldmark.New(goldmark.WithExtensions(&frontmatter.Extender{})),
		known: known,
	}
}

// Audit parses one emitted page. slug is the page's own slug, used to
// resolve relative destinations.
func (a *Auditor) Audit(slug string, src []byte) []Finding {
	ctx := parser.NewContext()
	root := a.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var findings []Finding
	if data := frontmatter.Get(ctx); data == nil {
		findings = append(findings, Finding{Page: slug, Kind: KindMissingTitle})
	} else {
		var meta struct {
			Title string `yaml:"title"`
		}
		if err := data.Decode(&meta); err != nil {
			findings = append(findings, Finding{Page: slug, Kind: KindInvalidFrontmatter})
		} else if strings.TrimSpace(meta.Title) == "" {
			findings = append(findings, Finding{Page: slug, Kind: KindMissingTitle})
		}
	}

	for _, dest := range destinations(root) {
		target, ok := a.resolve(slug, dest)
		if !ok {
			continue
		}
		if _, found := a.known[target]; !found {
			findings = append(findings, Finding{Page: slug, Kind: KindBrokenLink, Destination: dest})
		}
	}
	return findings
}

func destinations(root gmast.Node) []string {
	var out []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if link, ok := n.(*gmast.Link); ok {
			out = append(out, string(link.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return out
}

// resolve maps a link destination to a known-slug key. It reports false for
// destinations that are not page-relative: absolute paths, anchors, URLs with a
// scheme and non-page assets.
func (a *Auditor) resolve(slug, dest string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := u.Path
	if ext := path.Ext(p); ext != "" && markup.StripExt(p) == p {
		return "", false
	}
	if markup.IsReadme(path.Base(p)) {
		p = path.Join(path.Dir(p), "index")
	}
	p = markup.StripExt(p)
	resolved := path.Clean(path.Join(path.Dir(slug), p))
	if strings.HasPrefix(resolved, "../") || resolved == ".." {
		return "", false
	}
	return strings.ToLower(resolved), true
}

// Summary counts findings by kind.
func Summary(findings []Finding) map[Kind]int {
	out := make(map[Kind]int)
	for _, f := range findings {
		out[f.Kind]++
	}
	return out
}

// Sort orders findings by page, then kind, then destination.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Page != findings[j].Page {
			return findings[i].Page < findings[j].Page
		}
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		return findings[i].Destination < findings[j].Destination
	})
}
