package gitutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIEndPoint = "https://api.github.com"
	DefaultRawEndPoint = "https://raw.githubusercontent.com"
	userAgent          = "checkmate-riskscan"
)

//APIFetcher lists and retrieves repository files through a GitHub-style REST API and raw content host
type APIFetcher struct {
	APIEndPoint string
	RawEndPoint string
	Token       string
	Limits      Limits
	client      *http.Client
	limiter     *rate.Limiter
}

//APIOption configures an APIFetcher
type APIOption func(*APIFetcher)

//WithEndPoints overrides the API and raw content base URLs
func WithEndPoints(api, raw string) APIOption {
	return func(f *APIFetcher) {
		if api != "" {
			f.APIEndPoint = strings.TrimSuffix(api, "/")
		}
		if raw != "" {
			f.RawEndPoint = strings.TrimSuffix(raw, "/")
		}
	}
}

//WithToken authenticates API and raw requests
func WithToken(token string) APIOption {
	return func(f *APIFetcher) {
		f.Token = token
	}
}

//WithLimits overrides the file cap, size ceiling and batch size
func WithLimits(l Limits) APIOption {
	return func(f *APIFetcher) {
		f.Limits = l.withDefaults()
	}
}

//WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) APIOption {
	return func(f *APIFetcher) {
		f.client = c
	}
}

//WithRateLimit paces outgoing requests to rps per second
func WithRateLimit(rps float64, burst int) APIOption {
	return func(f *APIFetcher) {
		if rps <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

//NewAPIFetcher creates a fetcher for github.com
func NewAPIFetcher(opts ...APIOption) *APIFetcher {
	f := &APIFetcher{
		APIEndPoint: DefaultAPIEndPoint,
		RawEndPoint: DefaultRawEndPoint,
		Limits:      DefaultLimits(),
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(20), DefaultBatchSize),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type repoInfo struct {
	DefaultBranch string `json:"default_branch"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int64  `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

//Fetch resolves the branch, lists the tree and retrieves candidate files in sequential batches
func (f *APIFetcher) Fetch(ctx context.Context, ref RepoRef) (*Snapshot, error) {
	log := util.Logger()
	branch := ref.Branch
	if branch == "" {
		branch = f.defaultBranch(ctx, ref)
	}

	tree, err := f.tree(ctx, ref, branch)
	if err != nil {
		if alt := secondaryBranch(branch); alt != "" {
			log.Debugf("tree of %s on %s failed (%v), trying %s", ref, branch, err, alt)
			if altTree, altErr := f.tree(ctx, ref, alt); altErr == nil {
				tree, branch, err = altTree, alt, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTreeUnresolved, ref, err)
	}

	all := make([]candidate, 0, len(tree.Tree))
	for _, e := range tree.Tree {
		if e.Type == "blob" {
			all = append(all, candidate{path: e.Path, size: e.Size})
		}
	}
	selected, truncated := selectCandidates(all, f.Limits)
	snap := &Snapshot{
		Ref:       ref,
		Branch:    branch,
		Truncated: truncated || tree.Truncated,
		Files:     []common.File{},
		Omitted:   []string{},
	}
	if len(selected) == 0 {
		return snap, fmt.Errorf("%w: %s", ErrEmptyRepository, ref)
	}

	contents := make([][]byte, len(selected))
	failed := make([]bool, len(selected))
	for start := 0; start < len(selected); start += f.Limits.BatchSize {
		end := start + f.Limits.BatchSize
		if end > len(selected) {
			end = len(selected)
		}
		var eg errgroup.Group
		for i := start; i < end; i++ {
			i := i
			eg.Go(func() error {
				data, err := f.raw(ctx, ref, branch, selected[i].path)
				if err != nil {
					log.Debugf("omitting %s: %v", selected[i].path, err)
					failed[i] = true
					return nil
				}
				contents[i] = data
				return nil
			})
		}
		eg.Wait()
		if ctx.Err() != nil {
			for i := end; i < len(selected); i++ {
				failed[i] = true
			}
			break
		}
	}

	for i, c := range selected {
		if failed[i] {
			snap.Omitted = append(snap.Omitted, c.path)
			continue
		}
		snap.Files = append(snap.Files, common.File{Path: c.path, Content: contents[i]})
	}
	if len(snap.Files) == 0 {
		return snap, fmt.Errorf("%w: %s: all %d files failed", ErrEmptyRepository, ref, len(selected))
	}
	return snap, nil
}

//defaultBranch asks the API for the default branch, assuming main when that fails
func (f *APIFetcher) defaultBranch(ctx context.Context, ref RepoRef) string {
	var info repoInfo
	endpoint := fmt.Sprintf("%s/repos/%s/%s", f.APIEndPoint, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	if err := f.getJSON(ctx, endpoint, &info); err != nil || info.DefaultBranch == "" {
		return "main"
	}
	return info.DefaultBranch
}

func (f *APIFetcher) tree(ctx context.Context, ref RepoRef, branch string) (*treeResponse, error) {
	var tree treeResponse
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", f.APIEndPoint,
		url.PathEscape(ref.Owner), url.PathEscape(ref.Name), escapePath(branch))
	if err := f.getJSON(ctx, endpoint, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (f *APIFetcher) raw(ctx context.Context, ref RepoRef, branch, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s", f.RawEndPoint,
		url.PathEscape(ref.Owner), url.PathEscape(ref.Name), escapePath(branch), escapePath(path))
	resp, err := f.get(ctx, endpoint, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.Limits.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *APIFetcher) getJSON(ctx context.Context, endpoint string, v interface{}) error {
	resp, err := f.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

//get performs a paced GET and returns the response only for a 200 status
func (f *APIFetcher) get(ctx context.Context, endpoint, accept string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", endpoint, resp.Status)
	}
	return resp, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
