package git

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/retry"
)

const tagRefPrefix = "refs/tags/"

// TagLister reads tag names from a remote repository URL.
type TagLister struct {
	url   string
	token string
	retry retry.Policy
}

// NewTagLister returns a lister for url. A non-empty token is sent as HTTP
// basic auth, which GitHub accepts for personal access tokens.
func NewTagLister(url, token string) *TagLister {
	return &TagLister{url: url, token: token}
}

// WithRetry sets the policy applied to failed ls-remote calls. Authentication
// and missing-repository failures are never retried.
func (l *TagLister) WithRetry(p retry.Policy) *TagLister {
	l.retry = p
	return l
}

// CloneURL builds the https clone URL of owner/repo under base
// (e.g. https://github.com).
func CloneURL(base, owner, repo string) string {
	return strings.TrimRight(base, "/") + "/" + owner + "/" + repo + ".git"
}

// ListTags performs an ls-remote and returns tag names sorted ascending.
// Peeled annotated-tag entries (^{}) are folded into their tag.
func (l *TagLister) ListTags(ctx context.Context) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{l.url},
	})

	opts := &git.ListOptions{}
	if auth := l.auth(); auth != nil {
		opts.Auth = auth
	}

	var refs []*plumbing.Reference
	err := l.retry.Do(ctx, isTransient, func() error {
		var err error
		refs, err = remote.ListContext(ctx, opts)
		return err
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "failed to list remote tags").
			WithContext("url", l.url).Build()
	}

	seen := make(map[string]bool)
	tags := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Type() == plumbing.SymbolicReference {
			continue
		}
		name := ref.Name().String()
		if !strings.HasPrefix(name, tagRefPrefix) {
			continue
		}
		tag := strings.TrimSuffix(strings.TrimPrefix(name, tagRefPrefix), "^{}")
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	slog.Debug("Listed tags via ls-remote", logfields.URL(l.url), logfields.Count(len(tags)))
	return tags, nil
}

func isTransient(err error) bool {
	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		stderrors.Is(err, transport.ErrRepositoryNotFound),
		stderrors.Is(err, transport.ErrEmptyRemoteRepository),
		stderrors.Is(err, context.Canceled):
		return false
	}
	return true
}

func (l *TagLister) auth() transport.AuthMethod {
	if l.token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "token", Password: l.token}
}
