package commands

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/markup"
)

// ConvertCmd implements the 'convert' command.
type ConvertCmd struct {
	File     string `arg:"" help:"RST or Markdown file to convert"`
	Dir      string `help:"Directory of the file relative to the docs root; resolves relative toctree entries"`
	LinkBase string `name:"link-base" help:"Prefix for toctree links" default:"/docs/lmms-engine"`
	Title    string `help:"Page title; derived from the file name when empty"`
	Tree     bool   `help:"Apply the tree pipeline's MDX rules to Markdown input"`
}

func (c *ConvertCmd) Run(g *Global, _ *CLI) error {
	src, err := content.NewOSStore("").ReadFile(c.File)
	if err != nil {
		return err
	}
	return c.convert(g.Out, string(src))
}

func (c *ConvertCmd) convert(w io.Writer, src string) error {
	name := filepath.Base(c.File)
	title := c.Title
	if title == "" {
		title = markup.TitleFromFilename(name)
	}

	body := src
	profile := markup.MarkdownProfile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".rst":
		converted, err := markup.NewRSTConverter(c.LinkBase).Convert(src, strings.Trim(filepath.ToSlash(c.Dir), "/"))
		if err != nil {
			return err
		}
		body = converted
		profile = markup.TreeProfile
	case ".md", ".mdx", ".markdown":
		if c.Tree {
			profile = markup.TreeProfile
		}
	default:
		return errors.ValidationError("unsupported file type; expected .rst or .md").
			WithContext("file", c.File).Build()
	}

	mdx, err := markup.ToMDX(body, markup.DocMetadata{Title: title, Slug: markup.Slug(name)}, profile)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConversion, "failed to render MDX").
			WithContext("file", c.File).Build()
	}
	_, err = io.WriteString(w, mdx)
	return err
}
