package forge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/retry"
)

func newTestClient(t *testing.T, srv *httptest.Server, token string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIURL:     srv.URL,
		RawURL:     srv.URL + "/raw",
		Owner:      "EvolvingLMMs-Lab",
		Repo:       "lmms-eval",
		Token:      token,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestListDirectory(t *testing.T) {
	var gotAuth, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/EvolvingLMMs-Lab/lmms-eval/contents/docs/guides", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRef = r.URL.Query().Get("ref")
		_, _ = fmt.Fprint(w, `[
			{"name":"a.md","path":"docs/guides/a.md","type":"file","download_url":"https://raw/a.md"},
			{"name":"img","path":"docs/guides/img","type":"dir","download_url":null}
		]`)
	}))
	defer srv.Close()

	entries, err := newTestClient(t, srv, "tok").ListDirectory(t.Context(), "docs/guides", "v0.6.1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsFile())
	assert.Equal(t, "https://raw/a.md", entries[0].DownloadURL)
	assert.True(t, entries[1].IsDir())
	assert.Empty(t, entries[1].DownloadURL)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "v0.6.1", gotRef)
}

func TestListDirectory_NoTokenNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		assert.False(t, present)
		assert.Empty(t, r.URL.Query().Get("ref"))
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	entries, err := newTestClient(t, srv, "").ListDirectory(t.Context(), "docs", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListTags_Paginates(t *testing.T) {
	var pages []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)

		n := 100
		if page == 2 {
			n = 3
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, "[")
		for i := range n {
			if i > 0 {
				_, _ = fmt.Fprint(w, ",")
			}
			_, _ = fmt.Fprintf(w, `{"name":"v0.%d.%d"}`, page, i)
		}
		_, _ = fmt.Fprint(w, "]")
	}))
	defer srv.Close()

	tags, err := newTestClient(t, srv, "").ListTags(t.Context())
	require.NoError(t, err)
	assert.Len(t, tags, 103)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, "v0.1.0", tags[0])
	assert.Equal(t, "v0.2.2", tags[102])
}

func TestListTags_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	tags, err := newTestClient(t, srv, "").ListTags(t.Context())
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Equal(t, 1, calls)
}

func TestNonSuccessStatusIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, "").ListTags(t.Context())
	require.Error(t, err)
	assert.Equal(t, "GitHub API error: 403 Forbidden", errors.UserMessage(err))
	assert.True(t, errors.HasCategory(err, errors.CategoryRemote))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestNotFoundIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(t, srv, "").ListDirectory(t.Context(), "docs", "main")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestDownloadAndRawURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/raw/EvolvingLMMs-Lab/lmms-eval/v0.6/docs/README.md", r.URL.Path)
		_, _ = fmt.Fprint(w, "# Hello\n")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "")
	u := c.RawURL("v0.6", "docs/README.md")
	assert.Equal(t, srv.URL+"/raw/EvolvingLMMs-Lab/lmms-eval/v0.6/docs/README.md", u)

	body, err := c.Download(t.Context(), u)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n", body)
}

func TestRateLimiterRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIURL: srv.URL, Owner: "o", Repo: "r", RequestsPerSecond: 0.001, HTTPClient: srv.Client()})
	require.NoError(t, err)

	// The first request consumes the burst token; the second must wait far
	// longer than the already-cancelled context allows.
	_, err = c.ListDirectory(t.Context(), "docs", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = c.ListDirectory(ctx, "docs", "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestNewClient_RequiresRepository(t *testing.T) {
	_, err := NewClient(Options{Owner: "o"})
	require.Error(t, err)
}

func TestNewClient_Timeout(t *testing.T) {
	c, err := NewClient(Options{Owner: "o", Repo: "r"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)

	c, err = NewClient(Options{Owner: "o", Repo: "r", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestSlowResponseHitsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Options{APIURL: srv.URL, Owner: "o", Repo: "r", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.ListTags(t.Context())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func newRetryClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIURL:     srv.URL,
		Owner:      "EvolvingLMMs-Lab",
		Repo:       "lmms-eval",
		Retry:      retry.Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2},
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestTransportFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if assert.NoError(t, err) {
				_ = conn.Close()
			}
			return
		}
		_, _ = fmt.Fprint(w, `[{"name":"v0.1.0"}]`)
	}))
	defer srv.Close()

	tags, err := newRetryClient(t, srv).ListTags(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.1.0"}, tags)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNonSuccessStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newRetryClient(t, srv).ListTags(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRemote))
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}
