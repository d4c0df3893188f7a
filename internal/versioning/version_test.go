package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		tag  string
		ok   bool
		want ParsedVersion
	}{
		{"v0.6.1", true, ParsedVersion{0, 6, 1, "v0.6.1"}},
		{"v1.2", true, ParsedVersion{1, 2, 0, "v1.2"}},
		{"v10.20.30", true, ParsedVersion{10, 20, 30, "v10.20.30"}},
		{"v0.6.1.dev0", false, ParsedVersion{}},
		{"v0.6.post1", false, ParsedVersion{}},
		{"v0.6.DEV", false, ParsedVersion{}},
		{"nightly", false, ParsedVersion{}},
		{"0.6.1", false, ParsedVersion{}},
		{"v0.6.1-rc1", false, ParsedVersion{}},
		{"v1", false, ParsedVersion{}},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			got, ok := ParseVersion(tc.tag)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSelectVersions(t *testing.T) {
	got := SelectVersions([]string{"v0.5.0", "v1.2.0", "v1.1.9", "abc"})
	tags := make([]string, 0, len(got))
	for _, v := range got {
		tags = append(tags, v.Tag)
	}
	assert.Equal(t, []string{"v1.2.0", "v1.1.9", "v0.5.0"}, tags)
}

func TestSelectVersions_KeepsEveryPatch(t *testing.T) {
	got := SelectVersions([]string{"v0.3.0", "v0.3.1", "v0.3.2.dev1"})
	require.Len(t, got, 2)
	assert.Equal(t, "v0.3.1", got[0].Tag)
	assert.Equal(t, "v0.3.0", got[1].Tag)
}

func TestPolicy(t *testing.T) {
	tags := []string{"v0.3.0", "v0.3.1", "v0.4.0", "v0.4.2", "v0.4.1", "v1.0"}

	assert.Len(t, Policy{}.Apply(tags), 6)

	latest := Policy{LatestPatchOnly: true}.Apply(tags)
	assert.Equal(t, []string{"v1.0", "v0.4.2", "v0.3.1"}, tagsOf(latest))

	capped := Policy{LatestPatchOnly: true, Max: 2}.Apply(tags)
	assert.Equal(t, []string{"v1.0", "v0.4.2"}, tagsOf(capped))
}

func TestBuildEntries(t *testing.T) {
	entries := BuildEntries("main", SelectVersions([]string{"v0.5.0", "v0.6.1"}))
	assert.Equal(t, []Entry{
		{Slug: "latest", Ref: "main", Label: "Latest"},
		{Slug: "v0.6.1", Ref: "v0.6.1", Label: "v0.6.1"},
		{Slug: "v0.5.0", Ref: "v0.5.0", Label: "v0.5.0"},
	}, entries)
	assert.True(t, entries[0].IsLatest())
	assert.False(t, entries[1].IsLatest())
}

func TestBuildEntries_NoTags(t *testing.T) {
	entries := BuildEntries("main", nil)
	require.Len(t, entries, 1)
	assert.Equal(t, LatestSlug, entries[0].Slug)
}

func TestSelectVersions_SortedDescending(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		tags := make([]string, n)
		for i := range tags {
			tags[i] = rapid.SampledFrom([]string{
				"v0.1", "v0.1.1", "v0.2.0", "v0.2.3", "v1.0.0", "v1.10.2", "v2.0",
				"v0.3.0.dev1", "latest", "v9.9.post2",
			}).Draw(t, "tag")
		}

		got := SelectVersions(tags)
		for i := 1; i < len(got); i++ {
			if got[i-1].Compare(got[i]) < 0 {
				t.Fatalf("not descending at %d: %s before %s", i, got[i-1].Tag, got[i].Tag)
			}
		}
		for _, v := range got {
			if _, ok := ParseVersion(v.Tag); !ok {
				t.Fatalf("selected unparseable tag %q", v.Tag)
			}
		}
	})
}

func tagsOf(vs []ParsedVersion) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Tag)
	}
	return out
}
