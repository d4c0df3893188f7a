package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
	"github.com/evolvinglmms-lab/docsync/internal/versioning"
)

func TestConvert_RST(t *testing.T) {
	var out bytes.Buffer
	cmd := &ConvertCmd{File: "docs/getting_started.rst", LinkBase: "/docs/lmms-engine", Dir: "guide"}
	src := "Getting Started\n===============\n\n.. toctree::\n   :caption: Basics\n\n   install\n\nUse ``pip`` here.\n"

	require.NoError(t, cmd.convert(&out, src))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "---\ntitle: Getting Started\n"), got)
	assert.Contains(t, got, "# Getting Started")
	assert.Contains(t, got, "## Basics")
	assert.Contains(t, got, "- [Install](/docs/lmms-engine/guide/install)")
	assert.Contains(t, got, "Use `pip` here.")
}

func TestConvert_MarkdownEscapes(t *testing.T) {
	var out bytes.Buffer
	cmd := &ConvertCmd{File: "README.md", Title: "Overview"}

	require.NoError(t, cmd.convert(&out, "See <https://example.com> and p<0.05 with <T> tokens.\n"))

	got := out.String()
	assert.Contains(t, got, "title: Overview\n")
	assert.Contains(t, got, "[https://example.com](https://example.com)")
	assert.Contains(t, got, `\<T\>`)
	assert.Contains(t, got, `p\<0.05`)
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	cmd := &ConvertCmd{File: "notes.txt"}
	err := cmd.convert(&bytes.Buffer{}, "x")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestConvert_MissingFile(t *testing.T) {
	cmd := &ConvertCmd{File: filepath.Join(t.TempDir(), "missing.md")}
	err := cmd.Run(&Global{Out: &bytes.Buffer{}}, &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestInit_WritesAndRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	g := &Global{Out: &out}

	require.NoError(t, (&InitCmd{Output: dir}).Run(g, &CLI{}))
	path := filepath.Join(dir, "docsync.yaml")
	require.FileExists(t, path)
	assert.Contains(t, out.String(), "initialized successfully")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Pipelines)

	err = (&InitCmd{Output: dir}).Run(g, &CLI{})
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, (&InitCmd{Output: dir, Force: true}).Run(g, &CLI{}))
}

func TestWriteSyncResult(t *testing.T) {
	var out bytes.Buffer
	res := trigger.Result{
		Success: true,
		Message: trigger.SuccessMessage,
		Reports: []*syncer.Report{{
			Pipeline:        "lmms-eval",
			Versions:        []string{"latest", "v0.6.1"},
			SkippedVersions: []string{"v0.5.0"},
			Written:         7,
			Unchanged:       3,
			Duration:        1500 * time.Millisecond,
		}},
	}

	require.NoError(t, writeSyncResult(&Global{Out: &out}, res))
	assert.Equal(t,
		"lmms-eval: 2 versions, 1 skipped, 7 written, 3 unchanged, 0 link warnings (1.5s)\nDocs synced successfully\n",
		out.String())

	failed := trigger.Result{Error: "boom", Err: errors.SyncError("boom").Build()}
	assert.Error(t, writeSyncResult(&Global{Out: &out}, failed))
}

func TestListVersions(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/EvolvingLMMs-Lab/lmms-eval/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"v0.1.0"},{"name":"v0.2.0"},{"name":"v0.2.0.dev1"},{"name":"nightly"}]`))
	}))
	t.Cleanup(api.Close)

	cfg, err := config.Parse([]byte(`
remote:
  api_url: ` + api.URL + `
pipelines:
  - name: lmms-eval
    owner: EvolvingLMMs-Lab
    repo: lmms-eval
  - name: lmms-engine
    kind: tree
    owner: EvolvingLMMs-Lab
    repo: lmms-engine
`))
	require.NoError(t, err)

	got, err := listVersions(t.Context(), cfg, "")
	require.NoError(t, err)
	assert.Equal(t, map[string][]versioning.Entry{
		"lmms-eval": {
			{Slug: "latest", Ref: "main", Label: "Latest"},
			{Slug: "v0.2.0", Ref: "v0.2.0", Label: "v0.2.0"},
			{Slug: "v0.1.0", Ref: "v0.1.0", Label: "v0.1.0"},
		},
	}, got)

	_, err = listVersions(t.Context(), cfg, "lmms-engine")
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	_, err = listVersions(t.Context(), cfg, "nope")
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	require.NoError(t, enc.Encode(got["lmms-eval"][0]))
	assert.JSONEq(t, `{"slug":"latest","ref":"main","label":"Latest"}`, out.String())
}
