package gitutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

//CloneFetcher retrieves repository files with an in-memory, single-branch git clone
type CloneFetcher struct {
	Auth   *GitAuth
	Limits Limits
	//Depth of history to fetch; zero fetches everything
	Depth           int
	InsecureSkipTLS bool
	//URLFor maps a reference to the URL to clone, defaulting to RepoRef.CloneURL
	URLFor func(RepoRef) string
}

//NewCloneFetcher creates a shallow clone fetcher with default limits
func NewCloneFetcher(auth *GitAuth) *CloneFetcher {
	return &CloneFetcher{
		Auth:   auth,
		Limits: DefaultLimits(),
		Depth:  1,
	}
}

//Fetch clones the requested branch, or the remote HEAD when none is given, retrying once on the conventional alternative
func (cf *CloneFetcher) Fetch(ctx context.Context, ref RepoRef) (*Snapshot, error) {
	limits := cf.Limits.withDefaults()
	fs, branch, err := cf.clone(ctx, ref, ref.Branch)
	if err != nil {
		if alt := secondaryBranch(ref.Branch); alt != "" {
			util.Logger().Debugf("clone of %s failed (%v), trying %s", ref, err, alt)
			if altFS, altBranch, altErr := cf.clone(ctx, ref, alt); altErr == nil {
				fs, branch, err = altFS, altBranch, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTreeUnresolved, ref, err)
	}

	all := []candidate{}
	if err := walk(fs, "", func(p string, size int64) {
		all = append(all, candidate{path: p, size: size})
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTreeUnresolved, ref, err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].path < all[j].path })

	selected, truncated := selectCandidates(all, limits)
	snap := &Snapshot{
		Ref:       ref,
		Branch:    branch,
		Truncated: truncated,
		Files:     []common.File{},
		Omitted:   []string{},
	}
	for _, c := range selected {
		data, err := readFile(fs, c.path, limits.MaxFileSize)
		if err != nil {
			snap.Omitted = append(snap.Omitted, c.path)
			continue
		}
		snap.Files = append(snap.Files, common.File{Path: c.path, Content: data})
	}
	if len(snap.Files) == 0 {
		return snap, fmt.Errorf("%w: %s", ErrEmptyRepository, ref)
	}
	return snap, nil
}

func (cf *CloneFetcher) clone(ctx context.Context, ref RepoRef, branch string) (billy.Filesystem, string, error) {
	repository := ref.CloneURL()
	if cf.URLFor != nil {
		repository = cf.URLFor(ref)
	}

	var auth *githttp.BasicAuth
	if cf.Auth != nil {
		auth = &githttp.BasicAuth{
			Username: cf.Auth.User,
			Password: cf.Auth.Credential,
		}
	}

	options := &git.CloneOptions{
		URL:             repository,
		Depth:           cf.Depth,
		SingleBranch:    true,
		Tags:            git.NoTags,
		InsecureSkipTLS: cf.InsecureSkipTLS,
	}
	if auth != nil {
		options.Auth = auth
	}
	if branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	fs := memfs.New()
	repo, err := git.CloneContext(ctx, memory.NewStorage(), fs, options)
	if err != nil {
		return nil, "", err
	}
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, "", err
		}
		branch = head.Name().Short()
	}
	return fs, branch, nil
}

func walk(fs billy.Filesystem, dir string, visit func(path string, size int64)) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			if e.Name() == ".git" {
				continue
			}
			if err := walk(fs, p, visit); err != nil {
				return err
			}
			continue
		}
		if e.Mode().IsRegular() {
			visit(p, e.Size())
		}
	}
	return nil
}

func readFile(fs billy.Filesystem, p string, max int64) ([]byte, error) {
	fh, err := fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	data, err := io.ReadAll(io.LimitReader(fh, max+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}
