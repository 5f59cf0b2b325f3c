// Package client implements api.Remote over the backend's HTTP routes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// Options configures a Client.
type Options struct {
	// Identity returns the user id sent with every call. An empty id fails the
	// call with domain.ErrNotAuthenticated before anything is sent.
	Identity func() string
	APIKey   string
	Timeout  time.Duration
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client talks to one backend.
type Client struct {
	base *url.URL
	opts Options
	http *http.Client
	log  logger.Logger
}

// StaticIdentity always answers id.
func StaticIdentity(id string) func() string {
	return func() string { return id }
}

func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}
	if opts.Identity == nil {
		return nil, errors.New("client: identity provider is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{base: u, opts: opts, http: hc, log: log.Named("client")}, nil
}

// Remote returns the endpoint families backed by c.
func (c *Client) Remote() api.Remote {
	return api.Remote{
		Spaces:    &collection[domain.Space, domain.SpacePatch]{c: c, kind: api.KindSpaces},
		Groups:    &collection[domain.Group, domain.GroupPatch]{c: c, kind: api.KindGroups},
		Bookmarks: &bookmarks{collection[domain.Bookmark, domain.BookmarkPatch]{c: c, kind: api.KindBookmarks}},
		Sync:      &syncAPI{c: c},
	}
}

// do sends in as JSON (when non-nil) and decodes the answer into out (when
// non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	user := c.opts.Identity()
	if user == "" {
		return domain.ErrNotAuthenticated
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.HeaderUser, user)
	if c.opts.APIKey != "" {
		req.Header.Set(api.HeaderKey, c.opts.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer utils.Close(resp.Body)

	c.log.Debug("request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = string(bytes.TrimSpace(raw))
		}
		return &api.StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type collection[T any, P any] struct {
	c    *Client
	kind string
}

func (r *collection[T, P]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.c.do(ctx, http.MethodGet, "/api/"+r.kind, nil, &out)
	return out, err
}

func (r *collection[T, P]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPost, "/api/"+r.kind, item, &out)
	return out, err
}

func (r *collection[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPatch, "/api/"+r.kind+"/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (r *collection[T, P]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, "/api/"+r.kind+"/"+url.PathEscape(id), nil, nil)
}

func (r *collection[T, P]) Reorder(ctx context.Context, parentID string, orderedIDs []string) error {
	in := api.ReorderRequest{ParentID: parentID, OrderedIDs: orderedIDs}
	return r.c.do(ctx, http.MethodPost, "/api/"+r.kind+"/reorder", in, nil)
}

type bookmarks struct {
	collection[domain.Bookmark, domain.BookmarkPatch]
}

func (r *bookmarks) Move(ctx context.Context, id string, to domain.Move) (domain.Bookmark, error) {
	var out domain.Bookmark
	err := r.c.do(ctx, http.MethodPost, "/api/bookmarks/"+url.PathEscape(id)+"/move", to, &out)
	return out, err
}

type syncAPI struct {
	c *Client
}

func (s *syncAPI) EnsureUser(ctx context.Context, p domain.Profile) (domain.User, error) {
	var out domain.User
	err := s.c.do(ctx, http.MethodPost, "/api/sync/user", p, &out)
	return out, err
}

func (s *syncAPI) Pull(ctx context.Context) (domain.Dataset, error) {
	var out domain.Dataset
	err := s.c.do(ctx, http.MethodGet, "/api/sync/pull", nil, &out)
	return out, err
}

func (s *syncAPI) Push(ctx context.Context, ds domain.Dataset) error {
	return s.c.do(ctx, http.MethodPost, "/api/sync/push", ds, nil)
}

func (s *syncAPI) Status(ctx context.Context) (api.Status, error) {
	var out api.Status
	err := s.c.do(ctx, http.MethodGet, "/api/sync/status", nil, &out)
	return out, err
}
