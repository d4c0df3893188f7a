package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRender_PlainTitle(t *testing.T) {
	out, err := Render(Page{Title: "Model Guide"})
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Model Guide\ndescription: \"\"\n---\n\n", string(out))
}

func TestRender_QuotesSpecialTitles(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Usage: basics", `title: "Usage: basics"`},
		{`Say "hi"`, `title: "Say \"hi\""`},
		{"-dash", `title: "-dash"`},
		{"#hash", `title: "#hash"`},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			out, err := Render(Page{Title: tc.title})
			require.NoError(t, err)
			assert.Contains(t, string(out), tc.want+"\n")

			header, _, ok, err := Split(out)
			require.NoError(t, err)
			require.True(t, ok)
			var fields struct {
				Title string `yaml:"title"`
			}
			require.NoError(t, yaml.Unmarshal(header, &fields))
			assert.Equal(t, tc.title, fields.Title)
		})
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name   string
		page   string
		header string
		body   string
	}{
		{"lf", "---\ntitle: A\n---\nbody\n", "title: A\n", "body\n"},
		{"crlf", "---\r\ntitle: A\r\n---\r\nbody\r\n", "title: A\r\n", "body\r\n"},
		{"empty header", "---\n---\nbody", "", "body"},
		{"closing at eof", "---\ntitle: A\n---", "title: A\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			header, body, ok, err := Split([]byte(tc.page))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.header, string(header))
			assert.Equal(t, tc.body, string(body))
		})
	}
}

func TestSplit_NoFrontmatter(t *testing.T) {
	header, body, ok, err := Split([]byte("# Heading\n"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, header)
	assert.Equal(t, "# Heading\n", string(body))
}

func TestSplit_Unclosed(t *testing.T) {
	_, _, _, err := Split([]byte("---\ntitle: A\nbody\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}
