package syncer

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/linkaudit"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/manifest"
	"github.com/evolvinglmms-lab/docsync/internal/metrics"
)

// Remote is the read side of the source-control host.
type Remote interface {
	ListDirectory(ctx context.Context, dirPath, ref string) ([]forge.Entry, error)
	Download(ctx context.Context, url string) (string, error)
	RawURL(ref, filePath string) string
}

// TagSource lists release tags.
type TagSource interface {
	ListTags(ctx context.Context) ([]string, error)
}

// Options tune one sync run.
type Options struct {
	// Force re-syncs tagged versions whose directory already exists.
	Force bool
}

// Pipeline is one configured documentation set.
type Pipeline interface {
	Name() string
	// RoutePath is the site route that renders the pipeline's content.
	RoutePath() string
	Sync(ctx context.Context, opts Options) (*Report, error)
}

// Deps are the collaborators shared by pipelines.
type Deps struct {
	Remote   Remote
	Tags     TagSource
	Store    *content.Store
	Recorder metrics.Recorder
}

func (d Deps) recorder() metrics.Recorder {
	if d.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return d.Recorder
}

// Report summarizes one pipeline sync.
type Report struct {
	Pipeline        string              `json:"pipeline"`
	Versions        []string            `json:"versions,omitempty"`
	SkippedVersions []string            `json:"skipped_versions,omitempty"`
	Written         int                 `json:"written"`
	Unchanged       int                 `json:"unchanged"`
	LinkFindings    []linkaudit.Finding `json:"link_findings,omitempty"`
	Duration        time.Duration       `json:"duration"`
}

func (r *Report) count(res content.WriteResult) {
	if res == content.Unchanged {
		r.Unchanged++
		return
	}
	r.Written++
}

// remoteErrorKind labels a failure for the remote-error metric: the HTTP
// status when the host answered, otherwise the error category.
func remoteErrorKind(err error) string {
	if code := forge.StatusCode(err); code != 0 {
		return strconv.Itoa(code)
	}
	return string(errors.GetCategory(err))
}

// page is a converted file awaiting its write and audit.
type page struct {
	key     string // path relative to the version directory, without extension
	content []byte
}

// writer emits pages and manifests below one directory and keeps the report
// current.
type writer struct {
	store  *content.Store
	dir    string
	report *Report
	pages  []page
}

func (w *writer) writePage(key, mdx string) error {
	data := []byte(mdx)
	res, err := w.store.WriteFile(path.Join(w.dir, key+".mdx"), data)
	if err != nil {
		return err
	}
	w.report.count(res)
	w.pages = append(w.pages, page{key: key, content: data})
	return nil
}

func (w *writer) writeJSON(rel string, v any) error {
	data, err := manifest.Marshal(v)
	if err != nil {
		return err
	}
	res, err := w.store.WriteFile(path.Join(w.dir, rel), data)
	if err != nil {
		return err
	}
	w.report.count(res)
	return nil
}

// audit checks every page written through w against the set of written keys.
func (w *writer) audit(logger *slog.Logger) {
	keys := make([]string, 0, len(w.pages))
	for _, p := range w.pages {
		keys = append(keys, p.key)
	}
	auditor := linkaudit.New(keys)
	var found []linkaudit.Finding
	for _, p := range w.pages {
		found = append(found, auditor.Audit(p.key, p.content)...)
	}
	linkaudit.Sort(found)
	for _, f := range found {
		logger.Warn("Link audit finding",
			logfields.Slug(f.Page),
			slog.String("kind", string(f.Kind)),
			slog.String("destination", f.Destination))
	}
	w.report.LinkFindings = append(w.report.LinkFindings, found...)
}
