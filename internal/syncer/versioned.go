package syncer

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/manifest"
	"github.com/evolvinglmms-lab/docsync/internal/markup"
	"github.com/evolvinglmms-lab/docsync/internal/versioning"
)

var markdownFile = regexp.MustCompile(`\.mdx?$`)

// Versioned syncs the default branch and release tags into one directory per
// version.
type Versioned struct {
	cfg       config.PipelineConfig
	base      string
	deps      Deps
	changelog *regexp.Regexp
	excluded  map[string]bool
	sections  []manifest.Section
	logger    *slog.Logger
}

// NewVersioned builds a versioned pipeline writing below contentDir.
func NewVersioned(cfg config.PipelineConfig, contentDir string, deps Deps) (*Versioned, error) {
	if deps.Remote == nil || deps.Tags == nil || deps.Store == nil {
		return nil, errors.ValidationError("versioned pipeline requires a remote, a tag source and a store").
			WithContext("pipeline", cfg.Name).Build()
	}
	var changelog *regexp.Regexp
	if cfg.ChangelogPattern != "" {
		re, err := regexp.Compile(cfg.ChangelogPattern)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid changelog pattern").
				WithContext("pipeline", cfg.Name).Build()
		}
		changelog = re
	}
	excluded := make(map[string]bool, len(cfg.ExcludedFolders))
	for _, f := range cfg.ExcludedFolders {
		excluded[f] = true
	}
	sections := make([]manifest.Section, 0, len(cfg.Sections))
	for _, s := range cfg.Sections {
		sections = append(sections, manifest.Section{Name: s.Name, Pages: s.Pages})
	}
	return &Versioned{
		cfg:       cfg,
		base:      path.Join(contentDir, cfg.TargetDir),
		deps:      deps,
		changelog: changelog,
		excluded:  excluded,
		sections:  sections,
		logger:    slog.Default().With(logfields.Pipeline(cfg.Name)),
	}, nil
}

func (v *Versioned) Name() string      { return v.cfg.Name }
func (v *Versioned) RoutePath() string { return v.cfg.LinkBase }

// Sync runs SyncAll.
func (v *Versioned) Sync(ctx context.Context, opts Options) (*Report, error) {
	return v.SyncAll(ctx, opts)
}

// Versions lists tags and returns the resolved targets, latest first.
func (v *Versioned) Versions(ctx context.Context) ([]versioning.Entry, error) {
	tags, err := v.deps.Tags.ListTags(ctx)
	if err != nil {
		v.deps.recorder().IncRemoteError(remoteErrorKind(err))
		return nil, err
	}
	policy := versioning.Policy{LatestPatchOnly: v.cfg.Versions.LatestPatchOnly, Max: v.cfg.Versions.Max}
	selected := policy.Apply(tags)
	v.logger.Info("Selected versions", slog.Int("tags", len(tags)), logfields.Count(len(selected)))
	return versioning.BuildEntries(v.cfg.DefaultBranch, selected), nil
}

// SyncAll syncs latest and every selected tag, then writes the versions
// manifest. Tagged versions whose directory exists are skipped unless
// opts.Force is set; latest is always re-synced.
func (v *Versioned) SyncAll(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	report := &Report{Pipeline: v.cfg.Name}
	rec := v.deps.recorder()

	if err := v.deps.Store.MkdirAll(v.base); err != nil {
		return report, err
	}
	entries, err := v.Versions(ctx)
	if err != nil {
		return report, errors.SyncError("version discovery failed").
			WithCause(err).
			WithContext("pipeline", v.cfg.Name).
			Build()
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !opts.Force && !entry.IsLatest() {
			exists, err := v.deps.Store.DirExists(path.Join(v.base, entry.Slug))
			if err != nil {
				return report, err
			}
			if exists {
				v.logger.Info("Skipping existing version", logfields.Version(entry.Slug))
				report.SkippedVersions = append(report.SkippedVersions, entry.Slug)
				continue
			}
		}
		if err := v.SyncVersion(ctx, entry, report); err != nil {
			rec.IncRemoteError(remoteErrorKind(err))
			return report, errors.SyncError("version sync failed").
				WithCause(err).
				WithContext("pipeline", v.cfg.Name).
				WithContext("version", entry.Slug).
				Build()
		}
		report.Versions = append(report.Versions, entry.Slug)
	}

	res, err := v.writeVersionsManifest(entries)
	if err != nil {
		return report, err
	}
	report.count(res)
	rec.SetVersions(v.cfg.Name, len(entries))

	report.Duration = time.Since(start)
	v.logger.Info("Versioned sync complete",
		slog.Int("versions", len(report.Versions)),
		slog.Int("skipped", len(report.SkippedVersions)),
		slog.Int("written", report.Written),
		slog.Int("unchanged", report.Unchanged),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (v *Versioned) writeVersionsManifest(entries []versioning.Entry) (content.WriteResult, error) {
	data, err := manifest.Marshal(entries)
	if err != nil {
		return content.Written, err
	}
	return v.deps.Store.WriteFile(v.cfg.VersionsManifest, data)
}

// SyncVersion writes one version directory: top-level pages, one level of
// folder pages flattened beside them, changelog pages under changelogs/, and
// both manifests.
func (v *Versioned) SyncVersion(ctx context.Context, entry versioning.Entry, report *Report) error {
	logger := v.logger.With(logfields.Version(entry.Slug), logfields.Ref(entry.Ref))
	logger.Info("Syncing version")

	w := &writer{store: v.deps.Store, dir: path.Join(v.base, entry.Slug), report: report}
	if err := w.store.MkdirAll(w.dir); err != nil {
		return err
	}

	top, err := v.deps.Remote.ListDirectory(ctx, v.cfg.DocsPath, entry.Ref)
	if err != nil {
		return err
	}

	var docs, changelogs []string
	var folders []manifest.Section
	hasChangelogFolder := false

	for _, file := range top {
		if !file.IsFile() || !markdownFile.MatchString(file.Name) {
			continue
		}
		slug, err := v.convertFile(ctx, w, entry.Ref, file, false)
		if err != nil {
			return err
		}
		docs = append(docs, slug)
		if v.isChangelog(slug) {
			changelogs = append(changelogs, slug)
		}
	}

	for _, dir := range top {
		if !dir.IsDir() || v.excluded[dir.Name] {
			continue
		}
		isChangelogDir := strings.EqualFold(dir.Name, manifest.ChangelogDir)
		files, err := v.deps.Remote.ListDirectory(ctx, dir.Path, entry.Ref)
		if err != nil {
			return err
		}
		var pages []string
		for _, file := range files {
			if !file.IsFile() || !markdownFile.MatchString(file.Name) {
				continue
			}
			slug, err := v.convertFile(ctx, w, entry.Ref, file, isChangelogDir)
			if err != nil {
				return err
			}
			if isChangelogDir || v.isChangelog(slug) {
				changelogs = append(changelogs, slug)
				hasChangelogFolder = true
				continue
			}
			pages = append(pages, slug)
		}
		if len(pages) > 0 {
			folders = append(folders, manifest.Section{Name: markup.HumanizeName(dir.Name), Pages: pages})
		}
	}

	w.audit(logger)

	meta := manifest.Build(manifest.Input{
		Label:              entry.Label,
		Description:        v.cfg.Description,
		Docs:               docs,
		Static:             v.sections,
		Folders:            folders,
		Changelog:          v.changelog,
		HasChangelogFolder: hasChangelogFolder,
	})
	if err := w.writeJSON(manifest.FileName, meta); err != nil {
		return err
	}
	if len(changelogs) > 0 {
		cl := manifest.BuildChangelog(changelogs, v.cfg.ChangelogPrefix)
		if err := w.writeJSON(path.Join(manifest.ChangelogDir, manifest.FileName), cl); err != nil {
			return err
		}
	}
	logger.Info("Version synced", logfields.Count(len(w.pages)))
	return nil
}

func (v *Versioned) isChangelog(slug string) bool {
	return v.changelog != nil && v.changelog.MatchString(slug)
}

// convertFile downloads one Markdown file, converts it and writes it either
// flat in the version directory or under changelogs/.
func (v *Versioned) convertFile(ctx context.Context, w *writer, ref string, file forge.Entry, inChangelogDir bool) (string, error) {
	raw, err := v.deps.Remote.Download(ctx, v.deps.Remote.RawURL(ref, file.Path))
	if err != nil {
		return "", err
	}
	slug := markup.Slug(file.Name)
	mdx, err := markup.ToMDX(raw, markup.DocMetadata{
		Title: markup.TitleFromFilename(file.Name),
		Slug:  slug,
	}, markup.MarkdownProfile)
	if err != nil {
		return "", err
	}

	key := slug
	if inChangelogDir || v.isChangelog(slug) {
		key = path.Join(manifest.ChangelogDir, slug)
	}
	if err := w.writePage(key, mdx); err != nil {
		return "", err
	}
	v.logger.Debug("Wrote page", logfields.Path(file.Path), logfields.Slug(key))
	return slug, nil
}
