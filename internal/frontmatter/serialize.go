package frontmatter

import (
	"bytes"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Page is the header every synced page carries.
type Page struct {
	Title       string
	Description string
}

// needsQuoting matches values the renderer's YAML loader has historically
// mis-parsed when left plain.
var needsQuoting = regexp.MustCompile(`[:"'\[\]{}#&*!|>@` + "`" + `]|^\s|^-`)

// Render serializes the page header including `---` delimiters and the blank
// line that separates it from the body. The description is always emitted,
// double-quoted, so an empty value renders as "".
func Render(p Page) ([]byte, error) {
	titleStyle := yaml.Style(0)
	if needsQuoting.MatchString(p.Title) {
		titleStyle = yaml.DoubleQuotedStyle
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "title"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Title, Style: titleStyle},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "description"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Description, Style: yaml.DoubleQuotedStyle},
	}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, buf.Len()+10)
	out = append(out, "---\n"...)
	out = append(out, buf.Bytes()...)
	out = append(out, "---\n\n"...)
	return out, nil
}
