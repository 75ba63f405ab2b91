package gitutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeHost struct {
	defaultBranch string
	branches      map[string][]string //branch -> paths
	failing       map[string]bool     //paths whose raw fetch fails
	inFlight      int64
	maxInFlight   int64
	mu            sync.Mutex
	requests      []string
}

func (h *fakeHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.requests = append(h.requests, r.URL.Path)
	h.mu.Unlock()

	switch {
	case r.URL.Path == "/api/repos/acme/widget":
		if h.defaultBranch == "" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"default_branch": h.defaultBranch})
	case strings.HasPrefix(r.URL.Path, "/api/repos/acme/widget/git/trees/"):
		branch := strings.TrimPrefix(r.URL.Path, "/api/repos/acme/widget/git/trees/")
		paths, ok := h.branches[branch]
		if !ok || r.URL.Query().Get("recursive") != "1" {
			http.NotFound(w, r)
			return
		}
		tree := []map[string]interface{}{{"path": "src", "type": "tree"}}
		for _, p := range paths {
			size := 10
			if strings.HasPrefix(p, "huge") {
				size = 300 * 1024
			}
			tree = append(tree, map[string]interface{}{"path": p, "type": "blob", "size": size})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"tree": tree, "truncated": false})
	case strings.HasPrefix(r.URL.Path, "/raw/acme/widget/"):
		n := atomic.AddInt64(&h.inFlight, 1)
		defer atomic.AddInt64(&h.inFlight, -1)
		for {
			max := atomic.LoadInt64(&h.maxInFlight)
			if n <= max || atomic.CompareAndSwapInt64(&h.maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		rest := strings.TrimPrefix(r.URL.Path, "/raw/acme/widget/")
		slash := strings.Index(rest, "/")
		p := rest[slash+1:]
		if h.failing[p] {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "// %s\n", p)
	default:
		http.NotFound(w, r)
	}
}

func newTestFetcher(t *testing.T, h *fakeHost) *APIFetcher {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAPIFetcher(WithEndPoints(srv.URL+"/api", srv.URL+"/raw"), WithRateLimit(0, 0), WithToken("t0ken"))
}

var widget = RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}

func TestAPIFetcherDefaultBranch(t *testing.T) {
	h := &fakeHost{
		defaultBranch: "develop",
		branches:      map[string][]string{"develop": {"src/index.js", "logo.png", "huge.js", "README.md"}},
	}
	snap, err := newTestFetcher(t, h).Fetch(context.Background(), widget)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Branch != "develop" {
		t.Errorf("branch = %s", snap.Branch)
	}
	if len(snap.Files) != 2 || snap.Files[0].Path != "src/index.js" || snap.Files[1].Path != "README.md" {
		t.Errorf("unexpected files %v", snap.Files)
	}
	if string(snap.Files[0].Content) != "// src/index.js\n" {
		t.Errorf("content %q", snap.Files[0].Content)
	}
}

func TestAPIFetcherBranchRetry(t *testing.T) {
	//repository info unavailable, main assumed, tree only exists on master
	h := &fakeHost{branches: map[string][]string{"master": {"index.js"}}}
	snap, err := newTestFetcher(t, h).Fetch(context.Background(), widget)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Branch != "master" || len(snap.Files) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestAPIFetcherTreeUnresolved(t *testing.T) {
	h := &fakeHost{defaultBranch: "main", branches: map[string][]string{"gh-pages": {"index.js"}}}
	_, err := newTestFetcher(t, h).Fetch(context.Background(), widget)
	if !errors.Is(err, ErrTreeUnresolved) {
		t.Errorf("expected ErrTreeUnresolved, got %v", err)
	}
}

func TestAPIFetcherEmptyRepository(t *testing.T) {
	h := &fakeHost{defaultBranch: "main", branches: map[string][]string{"main": {"logo.png", "font.woff"}}}
	snap, err := newTestFetcher(t, h).Fetch(context.Background(), widget)
	if !errors.Is(err, ErrEmptyRepository) {
		t.Errorf("expected ErrEmptyRepository, got %v", err)
	}
	if snap == nil || len(snap.Files) != 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestAPIFetcherBatchesAndOmissions(t *testing.T) {
	paths := []string{}
	failing := map[string]bool{}
	for i := 0; i < 130; i++ {
		p := fmt.Sprintf("src/f%03d.js", i)
		paths = append(paths, p)
		if i%25 == 0 {
			failing[p] = true
		}
	}
	h := &fakeHost{defaultBranch: "main", branches: map[string][]string{"main": paths}, failing: failing}
	snap, err := newTestFetcher(t, h).Fetch(context.Background(), widget)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Truncated {
		t.Error("expected truncation past the file cap")
	}
	//f000, f025, f050, f075 are within the first 100 and fail
	if len(snap.Omitted) != 4 || len(snap.Files) != DefaultMaxFiles-4 {
		t.Errorf("files %d omitted %v", len(snap.Files), snap.Omitted)
	}
	for i := 1; i < len(snap.Files); i++ {
		if snap.Files[i-1].Path >= snap.Files[i].Path {
			t.Fatalf("files out of order at %d", i)
		}
	}
	if max := atomic.LoadInt64(&h.maxInFlight); max > DefaultBatchSize {
		t.Errorf("%d raw requests in flight, batch size is %d", max, DefaultBatchSize)
	}
}

func TestAPIFetcherExplicitBranch(t *testing.T) {
	h := &fakeHost{defaultBranch: "main", branches: map[string][]string{"feature/x": {"a.py"}}}
	ref := widget
	ref.Branch = "feature/x"
	snap, err := newTestFetcher(t, h).Fetch(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Branch != "feature/x" || len(snap.Files) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.requests {
		if p == "/api/repos/acme/widget" {
			t.Error("default branch lookup is not needed when a branch is given")
		}
	}
}
