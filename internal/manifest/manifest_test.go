package manifest

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalChangelog = regexp.MustCompile(`^lmms-eval-[\d.]+$`)

var evalSections = []Section{
	{Name: "Getting Started", Pages: []string{"index", "quickstart"}},
	{Name: "Guides", Pages: []string{"model_guide", "task_guide", "run_examples", "commands", "caching", "throughput_metrics"}},
	{Name: "References", Pages: []string{"current_tasks", "mmmu-eval-discrepancy"}},
}

func TestBuild_StaticAndOthers(t *testing.T) {
	m := Build(Input{
		Label:  "Latest",
		Docs:   []string{"index", "quickstart", "extra"},
		Static: []Section{{Name: "Getting Started", Pages: []string{"index", "quickstart"}}},
	})
	assert.Equal(t, []string{"---Getting Started---", "index", "quickstart", "---Others---", "extra"}, m.Pages)
	assert.Equal(t, "Latest", m.Title)
	assert.True(t, m.Root)
}

func TestBuild_SkipsEmptySectionsAndChangelogs(t *testing.T) {
	m := Build(Input{
		Label:       "v0.6.1",
		Description: "Evaluation framework documentation",
		Docs:        []string{"index", "task_guide", "lmms-eval-0.4", "lmms-eval-0.3", "faq"},
		Static:      evalSections,
		Changelog:   evalChangelog,
	})
	assert.Equal(t, []string{
		"---Getting Started---", "index",
		"---Guides---", "task_guide",
		"---Others---", "faq",
		"changelogs",
	}, m.Pages)
}

func TestBuild_FolderSectionReusesStaticOrder(t *testing.T) {
	m := Build(Input{
		Docs:   []string{"index"},
		Static: evalSections,
		Folders: []Section{
			{Name: "guides", Pages: []string{"caching", "new_page", "model_guide"}},
			{Name: "Advanced Topics", Pages: []string{"zeta", "alpha"}},
		},
	})
	assert.Equal(t, []string{
		"---Getting Started---", "index",
		"---guides---", "model_guide", "caching", "new_page",
		"---Advanced Topics---", "zeta", "alpha",
	}, m.Pages)
}

func TestBuild_EachPageOnce(t *testing.T) {
	m := Build(Input{
		Docs: []string{"index", "quickstart"},
		Static: []Section{
			{Name: "A", Pages: []string{"index"}},
			{Name: "B", Pages: []string{"index", "quickstart"}},
		},
		Folders: []Section{{Name: "C", Pages: []string{"quickstart"}}},
	})
	assert.Equal(t, []string{"---A---", "index", "---B---", "quickstart"}, m.Pages)
}

func TestBuild_ChangelogFolderOnly(t *testing.T) {
	m := Build(Input{Docs: []string{"index"}, HasChangelogFolder: true})
	assert.Equal(t, []string{"---Others---", "index", "changelogs"}, m.Pages)
}

func TestBuildChangelog(t *testing.T) {
	cm := BuildChangelog([]string{"lmms-eval-0.3", "lmms-eval-0.5", "lmms-eval-0.4", "notes"}, "lmms-eval-")
	assert.Equal(t, "Changelogs", cm.Title)
	assert.False(t, cm.DefaultOpen)
	assert.Equal(t, []string{"lmms-eval-0.5", "lmms-eval-0.4", "lmms-eval-0.3", "notes"}, cm.Pages)
}

func TestBuildTree(t *testing.T) {
	m := BuildTree("lmms-engine", "Training framework documentation", []string{
		"getting_started/install", "index", "models/qwen", "getting_started/quickstart", "faq",
	})
	assert.Equal(t, []string{"index", "getting_started", "models"}, m.Pages)
	assert.Equal(t, "lmms-engine", m.Title)
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(Manifest{Title: "Latest", Description: "d", Root: true, Pages: []string{"---A & B---", "index"}})
	require.NoError(t, err)
	assert.Equal(t, `{
  "title": "Latest",
  "description": "d",
  "root": true,
  "pages": [
    "---A & B---",
    "index"
  ]
}`, string(data))
}
