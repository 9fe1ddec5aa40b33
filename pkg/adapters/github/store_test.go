package github_test

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stash/pkg/adapters/github"
	"github.com/aretw0/stash/pkg/core"
)

// fakeAPI emulates the subset of the contents API used by the store.
type fakeAPI struct {
	mu       sync.Mutex
	exists   bool
	files    map[string][]byte
	commits  []string
	auth     []string
	failNext int // number of upcoming requests answered with 502
	status   int // when set, every request is answered with it

	treeRequests int
	createdIn    string
}

// list returns the directory listing of dir ("" is the root), sorted by
// path, or nil when nothing lives under it. Directories carry the sha of
// their path as tree id.
func (f *fakeAPI) list(dir string) []map[string]string {
	var listing []map[string]string
	seen := make(map[string]bool)
	for name := range f.files {
		rel := name
		if dir != "" {
			var ok bool
			if rel, ok = strings.CutPrefix(name, dir+"/"); !ok {
				continue
			}
		}
		first, _, nested := strings.Cut(rel, "/")
		full := path.Join(dir, first)
		if seen[full] {
			continue
		}
		seen[full] = true
		if nested {
			listing = append(listing, map[string]string{"type": "dir", "name": first, "path": full, "sha": sha([]byte(full))})
		} else {
			listing = append(listing, map[string]string{"type": "file", "name": first, "path": full})
		}
	}
	sort.Slice(listing, func(i, j int) bool { return listing[i]["path"] < listing[j]["path"] })
	return listing
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{files: make(map[string][]byte)}
}

func sha(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:])
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
		if !f.exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"name": r.PathValue("repo"), "default_branch": "main"})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"login": "Me"})
	})
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, r *http.Request) {
		f.exists = true
		f.createdIn = "user"
		writeJSON(w, http.StatusCreated, map[string]string{"name": "created"})
	})
	mux.HandleFunc("POST /orgs/{org}/repos", func(w http.ResponseWriter, r *http.Request) {
		f.exists = true
		f.createdIn = "org:" + r.PathValue("org")
		writeJSON(w, http.StatusCreated, map[string]string{"name": "created"})
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		if data, ok := f.files[p]; ok {
			writeJSON(w, http.StatusOK, map[string]string{
				"type": "file", "name": path.Base(p), "path": p, "sha": sha(data),
				"encoding": "base64", "content": wrap(base64.StdEncoding.EncodeToString(data)),
			})
			return
		}
		listing := f.list(p)
		if listing == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		if len(listing) > github.ContentsListLimit {
			listing = listing[:github.ContentsListLimit]
		}
		writeJSON(w, http.StatusOK, listing)
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{sha}", func(w http.ResponseWriter, r *http.Request) {
		f.treeRequests++
		for name := range f.files {
			for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
				if sha([]byte(dir)) != r.PathValue("sha") {
					continue
				}
				var entries []map[string]string
				for _, e := range f.list(dir) {
					typ := "blob"
					if e["type"] == "dir" {
						typ = "tree"
					}
					entries = append(entries, map[string]string{"path": e["name"], "type": typ})
				}
				writeJSON(w, http.StatusOK, map[string]any{"tree": entries, "truncated": false})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		var body struct{ Message, Content, SHA string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		data, _ := base64.StdEncoding.DecodeString(body.Content)

		cur, ok := f.files[p]
		switch {
		case ok && body.SHA == "":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `"sha" wasn't supplied.`})
			return
		case ok && body.SHA != sha(cur):
			writeJSON(w, http.StatusConflict, map[string]string{"message": "does not match"})
			return
		case !ok && body.SHA != "":
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		f.files[p] = data
		f.commits = append(f.commits, body.Message)
		status := http.StatusOK
		if !ok {
			status = http.StatusCreated
		}
		writeJSON(w, status, map[string]any{"content": map[string]string{"path": p, "sha": sha(data)}})
	})
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		var body struct{ Message, SHA string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		cur, ok := f.files[p]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		if body.SHA != sha(cur) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "does not match"})
			return
		}
		delete(f.files, p)
		f.commits = append(f.commits, body.Message)
		writeJSON(w, http.StatusOK, map[string]any{"content": nil})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if f.status != 0 {
			writeJSON(w, f.status, map[string]string{"message": http.StatusText(f.status)})
			return
		}
		if f.failNext > 0 {
			f.failNext--
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// wrap inserts newlines the way the API does for long base64 payloads.
func wrap(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60] + "\n")
		s = s[60:]
	}
	b.WriteString(s)
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T, tweaks ...func(*github.Config)) (*github.Store, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	cfg := github.Config{
		APIURL:     srv.URL,
		Owner:      "me",
		Repo:       "archive",
		Token:      "secret",
		HTTPClient: srv.Client(),
		RetryMax:   2,
		RetryWait:  time.Millisecond,
	}
	for _, tweak := range tweaks {
		tweak(&cfg)
	}
	return github.New(cfg), api
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Missing Repository", func(t *testing.T) {
		store, api := setup(t)
		require.NoError(t, store.Initialize(ctx))
		assert.True(t, api.exists)
		assert.Equal(t, "user", api.createdIn)
		assert.Equal(t, "Bearer secret", api.auth[0])
	})

	t.Run("Creates Missing Repository In Organization", func(t *testing.T) {
		store, api := setup(t, func(c *github.Config) { c.Owner = "team" })
		require.NoError(t, store.Initialize(ctx))
		assert.Equal(t, "org:team", api.createdIn)
	})

	t.Run("Existing Repository", func(t *testing.T) {
		store, api := setup(t)
		api.exists = true
		require.NoError(t, store.Initialize(ctx))

		st := store.State().(github.StoreState)
		assert.Equal(t, "main", st.DefaultBranch)
		assert.True(t, st.Authenticated)
	})

	t.Run("Must Exist", func(t *testing.T) {
		store, api := setup(t, func(c *github.Config) { c.MustExist = true })
		err := store.Initialize(ctx)
		require.ErrorIs(t, err, core.ErrNotFound)
		assert.False(t, api.exists)
	})

	t.Run("Rejected Token", func(t *testing.T) {
		store, api := setup(t)
		api.status = http.StatusUnauthorized
		err := store.Initialize(ctx)
		require.ErrorIs(t, err, core.ErrRemoteUnavailable)
		assert.True(t, github.IsAuthError(err))
	})

	t.Run("Requires Owner And Repo", func(t *testing.T) {
		err := github.New(github.Config{}).Initialize(ctx)
		require.ErrorIs(t, err, core.ErrRemoteUnavailable)
	})
}

func TestObjects(t *testing.T) {
	ctx := context.Background()
	store, api := setup(t)
	api.exists = true

	content := []byte(strings.Repeat(`{"id":"a1","kind":"note"}`, 10))
	v1, err := store.Create(ctx, "data/2024-01-01T00:00:00Z-a1.json", content, "add")
	require.NoError(t, err)
	assert.Equal(t, sha(content), v1)

	t.Run("Read Decodes Wrapped Base64", func(t *testing.T) {
		obj, ok, err := store.Read(ctx, "data/2024-01-01T00:00:00Z-a1.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, content, obj.Content)
		assert.Equal(t, v1, obj.Version)
	})

	t.Run("Read Missing", func(t *testing.T) {
		_, ok, err := store.Read(ctx, "data/none.json")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Create Occupied Path", func(t *testing.T) {
		v, err := store.Create(ctx, "data/2024-01-01T00:00:00Z-a1.json", content, "add")
		require.NoError(t, err)
		assert.Equal(t, v1, v, "identical content is accepted")

		_, err = store.Create(ctx, "data/2024-01-01T00:00:00Z-a1.json", []byte("other"), "add")
		require.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("Update", func(t *testing.T) {
		_, err := store.Update(ctx, "data/2024-01-01T00:00:00Z-a1.json", []byte("x"), "", "update")
		require.ErrorIs(t, err, core.ErrConflict)

		v2, err := store.Update(ctx, "data/2024-01-01T00:00:00Z-a1.json", []byte("v2"), v1, "update")
		require.NoError(t, err)

		_, err = store.Update(ctx, "data/2024-01-01T00:00:00Z-a1.json", []byte("v3"), v1, "update")
		require.ErrorIs(t, err, core.ErrConflict)

		_, err = store.Update(ctx, "data/missing.json", []byte("v3"), v2, "update")
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		_, err := store.Create(ctx, "data/sub/nested.json", []byte("n"), "add")
		require.NoError(t, err)

		entries, err := store.List(ctx, "data")
		require.NoError(t, err)
		require.Len(t, entries, 1, "directories are skipped")
		assert.Equal(t, "2024-01-01T00:00:00Z-a1.json", entries[0].Name)

		entries, err = store.List(ctx, "assets")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Delete", func(t *testing.T) {
		p := "data/2024-01-01T00:00:00Z-a1.json"
		obj, _, err := store.Read(ctx, p)
		require.NoError(t, err)

		require.ErrorIs(t, store.Delete(ctx, p, "", "delete"), core.ErrNotFound)
		require.ErrorIs(t, store.Delete(ctx, p, v1, "delete"), core.ErrConflict)
		require.NoError(t, store.Delete(ctx, p, obj.Version, "delete"))
		require.ErrorIs(t, store.Delete(ctx, p, obj.Version, "delete"), core.ErrNotFound)
	})

	assert.Contains(t, api.commits, "add")
}

func TestLargeDirectory(t *testing.T) {
	ctx := context.Background()
	store, api := setup(t)
	api.exists = true

	const n = github.ContentsListLimit + 5
	for i := range n {
		api.files[fmt.Sprintf("data/%04d-item.json", i)] = []byte("{}")
	}
	api.files["data/sub/nested.json"] = []byte("{}")
	api.files["assets/a.png"] = []byte("png")

	entries, err := store.List(ctx, "data")
	require.NoError(t, err)
	assert.Len(t, entries, n, "every file beyond the contents limit is listed")
	assert.Equal(t, 1, api.treeRequests)
	for _, e := range entries {
		assert.Equal(t, "data/"+e.Name, e.Path)
	}

	t.Run("Small Directory Uses Contents Listing", func(t *testing.T) {
		entries, err := store.List(ctx, "assets")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 1, api.treeRequests)
	})
}

func TestTransientFailuresAreRetried(t *testing.T) {
	ctx := context.Background()
	store, api := setup(t)
	api.exists = true
	api.failNext = 2

	_, err := store.Create(ctx, "data/r.json", []byte("retry"), "add")
	require.NoError(t, err)
	assert.Contains(t, api.files, "data/r.json")
}

func TestServerErrorIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store, api := setup(t)
	api.status = http.StatusInternalServerError

	_, _, err := store.Read(ctx, "data/a.json")
	require.ErrorIs(t, err, core.ErrRemoteUnavailable)

	_, err = store.List(ctx, "data")
	require.ErrorIs(t, err, core.ErrRemoteUnavailable)
	assert.False(t, github.IsAuthError(err))
}
