package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/retry"
)

const (
	defaultAPIURL    = "https://api.github.com"
	defaultRawURL    = "https://raw.githubusercontent.com"
	defaultUserAgent = "docsync/1.0"
	tagsPerPage      = 100
	defaultTimeout   = 30 * time.Second
)

// Options configures a Client for one repository.
type Options struct {
	APIURL    string
	RawURL    string
	Owner     string
	Repo      string
	Token     string
	UserAgent string
	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64
	// Timeout bounds each HTTP exchange when HTTPClient is nil; 0 means 30s.
	Timeout time.Duration
	// Retry governs transport failures only; a non-2xx response is final.
	Retry      retry.Policy
	HTTPClient *http.Client
}

// Client reads directory listings, tags and raw files from one GitHub
// repository. Requests are issued one at a time by the caller; the client does
// not fan out.
type Client struct {
	httpClient *http.Client
	apiURL     string
	rawURL     string
	owner      string
	repo       string
	token      string
	userAgent  string
	limiter    *rate.Limiter
	retry      retry.Policy
}

// NewClient creates a client. An empty token means anonymous access.
func NewClient(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, errors.ValidationError("forge client requires owner and repo").Build()
	}

	c := &Client{
		httpClient: opts.HTTPClient,
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		rawURL:     strings.TrimRight(opts.RawURL, "/"),
		owner:      opts.Owner,
		repo:       opts.Repo,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		retry:      opts.Retry,
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.apiURL == "" {
		c.apiURL = defaultAPIURL
	}
	if c.rawURL == "" {
		c.rawURL = defaultRawURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Repository returns "owner/repo".
func (c *Client) Repository() string { return c.owner + "/" + c.repo }

// ListDirectory lists the entries of dirPath at ref. An empty ref reads the
// default branch.
func (c *Client) ListDirectory(ctx context.Context, dirPath, ref string) ([]Entry, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, escapePath(dirPath))
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL+endpoint, q)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := c.doRequest(req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListTags returns every tag name, following pagination until a short or empty
// page.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(tagsPerPage))
		q.Set("page", strconv.Itoa(page))

		req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/repos/%s/%s/tags", c.apiURL, c.owner, c.repo), q)
		if err != nil {
			return nil, err
		}
		var batch []githubTag
		if err := c.doRequest(req, &batch); err != nil {
			return nil, err
		}
		for _, t := range batch {
			tags = append(tags, t.Name)
		}
		if len(batch) < tagsPerPage {
			break
		}
	}
	slog.Debug("Listed remote tags", slog.String("repository", c.Repository()), logfields.Count(len(tags)))
	return tags, nil
}

// Download fetches the raw text at rawURL.
func (c *Client) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Del("Accept")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "failed to read download body").
			WithContext("url", rawURL).Build()
	}
	return string(body), nil
}

// RawURL returns the raw-content URL of filePath at ref.
func (c *Client) RawURL(ref, filePath string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, c.owner, c.repo, url.PathEscape(ref), escapePath(filePath))
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, query url.Values) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid request URL").
			WithContext("url", rawURL).Build()
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do sends req after waiting on the limiter and turns non-2xx responses into
// remote errors. Transport failures are retried per the client's policy. The
// caller closes the body on success.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := c.retry.Do(req.Context(), isTransient, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(req.Context()); err != nil {
				return errors.WrapError(err, errors.CategoryNetwork, "rate limiter wait aborted").Build()
			}
		}

		start := time.Now()
		r, err := c.httpClient.Do(req)
		if err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "GitHub request failed").
				WithContext("url", req.URL.String()).Build()
		}
		slog.Debug("GitHub request",
			logfields.URL(req.URL.String()),
			logfields.Status(r.StatusCode),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, statusError(resp, req.URL.String())
	}
	return resp, nil
}

func isTransient(err error) bool {
	return errors.HasCategory(err, errors.CategoryNetwork)
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.WrapError(err, errors.CategoryRemote, "failed to decode GitHub response").
			WithContext("url", req.URL.String()).Build()
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
