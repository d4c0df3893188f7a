package syncer

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/manifest"
	"github.com/evolvinglmms-lab/docsync/internal/markup"
)

// Tree syncs the default branch of a docs tree of any depth, converting both
// reStructuredText and Markdown pages.
type Tree struct {
	cfg    config.PipelineConfig
	dir    string
	deps   Deps
	rst    *markup.RSTConverter
	logger *slog.Logger
}

// NewTree builds a tree pipeline writing below contentDir.
func NewTree(cfg config.PipelineConfig, contentDir string, deps Deps) (*Tree, error) {
	if deps.Remote == nil || deps.Store == nil {
		return nil, errors.ValidationError("tree pipeline requires a remote and a store").
			WithContext("pipeline", cfg.Name).Build()
	}
	return &Tree{
		cfg:    cfg,
		dir:    path.Join(contentDir, cfg.TargetDir),
		deps:   deps,
		rst:    markup.NewRSTConverter(cfg.LinkBase),
		logger: slog.Default().With(logfields.Pipeline(cfg.Name)),
	}, nil
}

func (t *Tree) Name() string      { return t.cfg.Name }
func (t *Tree) RoutePath() string { return t.cfg.LinkBase }

// Sync walks the docs root, writes every page and the root manifest. Tree
// pipelines have no versions, so opts.Force has no effect.
func (t *Tree) Sync(ctx context.Context, _ Options) (*Report, error) {
	start := time.Now()
	report := &Report{Pipeline: t.cfg.Name}
	w := &writer{store: t.deps.Store, dir: t.dir, report: report}

	if err := w.store.MkdirAll(t.dir); err != nil {
		return report, err
	}
	var slugs []string
	if err := t.walk(ctx, w, t.cfg.DocsPath, "", &slugs); err != nil {
		t.deps.recorder().IncRemoteError(remoteErrorKind(err))
		return report, errors.SyncError("tree sync failed").
			WithCause(err).
			WithContext("pipeline", t.cfg.Name).
			Build()
	}
	t.logger.Info("Processed files", logfields.Count(len(slugs)))

	w.audit(t.logger)

	if err := w.writeJSON(manifest.FileName, manifest.BuildTree(t.cfg.Title, t.cfg.Description, slugs)); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	t.logger.Info("Tree sync complete",
		slog.Int("written", report.Written),
		slog.Int("unchanged", report.Unchanged),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// walk visits dirPath depth-first in listing order. rel is dirPath relative
// to the docs root.
func (t *Tree) walk(ctx context.Context, w *writer, dirPath, rel string, slugs *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := t.deps.Remote.ListDirectory(ctx, dirPath, t.cfg.DefaultBranch)
	if err != nil {
		return err
	}
	for _, e := range entries {
		relPath := path.Join(rel, e.Name)
		switch {
		case e.IsDir():
			if err := t.walk(ctx, w, e.Path, relPath, slugs); err != nil {
				return err
			}
		case strings.HasSuffix(e.Name, ".rst") || strings.HasSuffix(e.Name, ".md"):
			slug, ok, err := t.convertFile(ctx, w, e, relPath)
			if err != nil {
				return err
			}
			if ok {
				*slugs = append(*slugs, slug)
			}
		}
	}
	return nil
}

// convertFile downloads and writes one page. Files without a download URL are
// skipped.
func (t *Tree) convertFile(ctx context.Context, w *writer, e forge.Entry, relPath string) (string, bool, error) {
	if e.DownloadURL == "" {
		return "", false, nil
	}
	raw, err := t.deps.Remote.Download(ctx, e.DownloadURL)
	if err != nil {
		return "", false, err
	}

	body := raw
	if strings.HasSuffix(e.Name, ".rst") {
		dir := path.Dir(relPath)
		if dir == "." {
			dir = ""
		}
		body = t.rst.ConvertOrOriginal(raw, dir)
	}

	slug := markup.SlugForPath(relPath)
	mdx, err := markup.ToMDX(body, markup.DocMetadata{
		Title: markup.TitleForPage(relPath),
		Slug:  slug,
	}, markup.TreeProfile)
	if err != nil {
		return "", false, err
	}
	if err := w.writePage(slug, mdx); err != nil {
		return "", false, err
	}
	t.logger.Debug("Wrote page", logfields.Path(e.Path), logfields.Slug(slug))
	return slug, true, nil
}
