// Package github implements core.Remote on the GitHub repository contents API.
//
// Objects are files of one repository branch. Every write is a commit made by
// the API, and the version token of an object is its blob sha.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/aretw0/stash/pkg/core"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// Config holds the configuration of the contents API store.
type Config struct {
	APIURL string
	Owner  string
	Repo   string
	// Branch defaults to the repository default branch when empty.
	Branch string
	Token  string
	// Public creates the repository as public on Initialize.
	Public bool
	// MustExist makes Initialize fail instead of creating a missing repository.
	MustExist bool
	Logger *slog.Logger

	// HTTPClient is the base client under the auth and retry layers.
	HTTPClient *http.Client
	RetryMax   int
	RetryWait  time.Duration
}

// Store implements core.Remote over HTTP.
type Store struct {
	config Config
	client *retryablehttp.Client

	mu            sync.RWMutex
	defaultBranch string
}

// New creates a store. No request is made until Initialize.
func New(cfg Config) *Store {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWait
	rc.RetryWaitMax = 8 * cfg.RetryWait
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = retryablehttp.LeveledLogger(cfg.Logger)
	}
	rc.HTTPClient = base
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		rc.HTTPClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}

	return &Store{config: cfg, client: rc}
}

type repository struct {
	Name          string `json:"name"`
	DefaultBranch string `json:"default_branch"`
}

type content struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content content `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}

// Initialize checks that the repository exists and creates it otherwise.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.Owner == "" || s.config.Repo == "" {
		return fmt.Errorf("%w: owner and repo are required", core.ErrRemoteUnavailable)
	}

	status, data, err := s.do(ctx, http.MethodGet, s.repoURL(), nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		var repo repository
		if err := json.Unmarshal(data, &repo); err == nil {
			s.mu.Lock()
			s.defaultBranch = repo.DefaultBranch
			s.mu.Unlock()
		}
		return nil
	case status != http.StatusNotFound:
		return s.statusError("initialize", s.config.Repo, status, data)
	case s.config.MustExist:
		return s.statusError("initialize", s.config.Repo, status, data)
	}

	s.logf("creating repository", "owner", s.config.Owner, "repo", s.config.Repo)
	body := map[string]any{
		"name":        s.config.Repo,
		"private":     !s.config.Public,
		"auto_init":   true,
		"description": "Personal archive managed by stash",
	}
	endpoint, err := s.createEndpoint(ctx)
	if err != nil {
		return err
	}
	status, data, err = s.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return s.statusError("initialize", s.config.Repo, status, data)
	}
	return nil
}

// createEndpoint picks where a missing repository is created: under the
// authenticated user when it is the owner, under the owner organization
// otherwise.
func (s *Store) createEndpoint(ctx context.Context) (string, error) {
	status, data, err := s.do(ctx, http.MethodGet, s.config.APIURL+"/user", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", s.statusError("initialize", s.config.Repo, status, data)
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(data, &user); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	if strings.EqualFold(user.Login, s.config.Owner) {
		return s.config.APIURL + "/user/repos", nil
	}
	return s.config.APIURL + "/orgs/" + url.PathEscape(s.config.Owner) + "/repos", nil
}

// Read returns the file at p. A 404 is reported as not existing.
func (s *Store) Read(ctx context.Context, p string) (core.Object, bool, error) {
	status, data, err := s.do(ctx, http.MethodGet, s.contentsURL(p, true), nil)
	if err != nil {
		return core.Object{}, false, core.NewPathError("read", p, err)
	}
	if status == http.StatusNotFound {
		return core.Object{}, false, nil
	}
	if status != http.StatusOK {
		return core.Object{}, false, s.statusError("read", p, status, data)
	}

	var c content
	if err := json.Unmarshal(data, &c); err != nil || c.Type != "file" {
		return core.Object{}, false, core.NewPathError("read", p, fmt.Errorf("%w: not a file", core.ErrRemoteUnavailable))
	}

	raw, err := s.decode(ctx, c)
	if err != nil {
		return core.Object{}, false, core.NewPathError("read", p, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	return core.Object{Path: p, Content: raw, Version: c.SHA}, true, nil
}

// decode returns the file bytes, following the blob API for files too large
// to be inlined in a contents response.
func (s *Store) decode(ctx context.Context, c content) ([]byte, error) {
	if c.Encoding == "base64" {
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	}

	status, data, err := s.do(ctx, http.MethodGet, s.repoURL()+"/git/blobs/"+c.SHA, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("blob %s: status %d", c.SHA, status)
	}
	var blob content
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.Content, "\n", ""))
}

// Create writes a new file. An occupied path with identical content is
// accepted and returns the existing sha.
func (s *Store) Create(ctx context.Context, p string, data []byte, message string) (string, error) {
	sha, status, resp, err := s.put(ctx, p, data, "", message)
	if err != nil {
		return "", core.NewPathError("create", p, err)
	}
	switch status {
	case http.StatusCreated, http.StatusOK:
		return sha, nil
	case http.StatusUnprocessableEntity, http.StatusConflict:
		existing, ok, err := s.Read(ctx, p)
		if err != nil {
			return "", err
		}
		if ok && bytes.Equal(existing.Content, data) {
			return existing.Version, nil
		}
		return "", core.NewPathError("create", p, core.ErrConflict)
	}
	return "", s.statusError("create", p, status, resp)
}

// Update overwrites a file whose current sha is version.
func (s *Store) Update(ctx context.Context, p string, data []byte, version, message string) (string, error) {
	if version == "" {
		return "", core.NewPathError("update", p, core.ErrConflict)
	}
	sha, status, resp, err := s.put(ctx, p, data, version, message)
	if err != nil {
		return "", core.NewPathError("update", p, err)
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return sha, nil
	}
	return "", s.statusError("update", p, status, resp)
}

// Delete removes a file whose current sha is version.
func (s *Store) Delete(ctx context.Context, p, version, message string) error {
	if version == "" {
		return core.NewPathError("delete", p, core.ErrNotFound)
	}
	body := writeRequest{Message: message, SHA: version, Branch: s.config.Branch}
	status, data, err := s.do(ctx, http.MethodDelete, s.contentsURL(p, false), body)
	if err != nil {
		return core.NewPathError("delete", p, err)
	}
	if status != http.StatusOK {
		return s.statusError("delete", p, status, data)
	}
	return nil
}

// List returns the files directly under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Entry, error) {
	status, data, err := s.do(ctx, http.MethodGet, s.contentsURL(prefix, true), nil)
	if err != nil {
		return nil, core.NewPathError("list", prefix, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, s.statusError("list", prefix, status, data)
	}

	var listing []content
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, core.NewPathError("list", prefix, fmt.Errorf("%w: not a directory", core.ErrRemoteUnavailable))
	}
	if len(listing) >= ContentsListLimit {
		return s.listTree(ctx, prefix)
	}
	out := make([]core.Entry, 0, len(listing))
	for _, c := range listing {
		if c.Type != "file" {
			continue
		}
		out = append(out, core.Entry{Path: c.Path, Name: c.Name})
	}
	return out, nil
}

// ContentsListLimit is the most entries the contents API returns for one
// directory. Larger directories are listed through the git trees API.
const ContentsListLimit = 1000

type tree struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// listTree lists prefix through its git tree, found in the parent listing.
func (s *Store) listTree(ctx context.Context, prefix string) ([]core.Entry, error) {
	prefix = strings.Trim(prefix, "/")
	parent := path.Dir(prefix)
	if parent == "." {
		parent = ""
	}

	status, data, err := s.do(ctx, http.MethodGet, s.contentsURL(parent, true), nil)
	if err != nil {
		return nil, core.NewPathError("list", prefix, err)
	}
	if status != http.StatusOK {
		return nil, s.statusError("list", prefix, status, data)
	}
	var siblings []content
	if err := json.Unmarshal(data, &siblings); err != nil {
		return nil, core.NewPathError("list", prefix, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	var sha string
	for _, c := range siblings {
		if c.Type == "dir" && c.Path == prefix {
			sha = c.SHA
		}
	}
	if sha == "" {
		return nil, core.NewPathError("list", prefix, fmt.Errorf("%w: tree not found", core.ErrRemoteUnavailable))
	}

	status, data, err = s.do(ctx, http.MethodGet, s.repoURL()+"/git/trees/"+url.PathEscape(sha), nil)
	if err != nil {
		return nil, core.NewPathError("list", prefix, err)
	}
	if status != http.StatusOK {
		return nil, s.statusError("list", prefix, status, data)
	}
	var t tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, core.NewPathError("list", prefix, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err))
	}
	if t.Truncated {
		s.warn("git tree listing truncated, some objects are missing", "prefix", prefix, "entries", len(t.Tree))
	}

	out := make([]core.Entry, 0, len(t.Tree))
	for _, e := range t.Tree {
		if e.Type != "blob" {
			continue
		}
		out = append(out, core.Entry{Path: path.Join(prefix, e.Path), Name: path.Base(e.Path)})
	}
	return out, nil
}

// put sends a contents write. The sha is only decoded on success.
func (s *Store) put(ctx context.Context, p string, data []byte, sha, message string) (string, int, []byte, error) {
	body := writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     sha,
		Branch:  s.config.Branch,
	}
	status, resp, err := s.do(ctx, http.MethodPut, s.contentsURL(p, false), body)
	if err != nil {
		return "", 0, nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", status, resp, nil
	}
	var wr writeResponse
	if err := json.Unmarshal(resp, &wr); err != nil {
		return "", 0, nil, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	return wr.Content.SHA, status, resp, nil
}

// do sends a JSON request and returns the status and body. Only transport
// failures are returned as errors.
func (s *Store) do(ctx context.Context, method, u string, body any) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, nil, err
		}
	}

	var raw any
	if payload != nil {
		raw = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, raw)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logf("github request", "method", method, "url", u)
	res, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", core.ErrRemoteUnavailable, err)
	}
	return res.StatusCode, data, nil
}

// StatusError is an unexpected API response. It unwraps to the matching
// core sentinel.
type StatusError struct {
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// statusError maps an unexpected status to the error taxonomy.
func (s *Store) statusError(op, p string, status int, data []byte) error {
	se := &StatusError{Status: status, kind: core.ErrRemoteUnavailable}
	switch status {
	case http.StatusNotFound:
		se.kind = core.ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		se.kind = core.ErrConflict
	}

	var ae apiError
	if len(data) > 0 && json.Unmarshal(data, &ae) == nil {
		se.Message = ae.Message
	}
	return core.NewPathError(op, p, se)
}

func (s *Store) repoURL() string {
	return s.config.APIURL + "/repos/" + url.PathEscape(s.config.Owner) + "/" + url.PathEscape(s.config.Repo)
}

func (s *Store) contentsURL(p string, withRef bool) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	u := s.repoURL() + "/contents/" + strings.Join(segments, "/")
	if withRef && s.config.Branch != "" {
		u += "?ref=" + url.QueryEscape(s.config.Branch)
	}
	return u
}

func (s *Store) logf(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *Store) warn(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}

// IsAuthError reports whether err came from a rejected or underprivileged token.
func IsAuthError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

var _ core.Remote = (*Store)(nil)
