package gitutils

import (
	"context"
	"errors"
	"fmt"

	common "github.com/adedayo/checkmate-riskscan/pkg"
)

const (
	CHECKMATE_USER = "checkmate"

	DefaultMaxFiles    = 100
	DefaultMaxFileSize = 200 * 1024
	DefaultBatchSize   = 10
)

var (
	//ErrUnsupportedSource is returned for URLs that do not name a hosted repository
	ErrUnsupportedSource = errors.New("unsupported repository source")
	//ErrTreeUnresolved is returned when the file tree could not be listed on any candidate branch
	ErrTreeUnresolved = errors.New("repository tree could not be resolved")
	//ErrEmptyRepository is returned when no source-like files could be retrieved
	ErrEmptyRepository = errors.New("repository has no scannable files")
)

//RepoRef identifies a hosted repository and optionally a branch
type RepoRef struct {
	Host   string `json:"host"`
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Branch string `json:"branch,omitempty"`
}

func (r RepoRef) String() string {
	if r.Branch != "" {
		return fmt.Sprintf("%s/%s/%s@%s", r.Host, r.Owner, r.Name, r.Branch)
	}
	return fmt.Sprintf("%s/%s/%s", r.Host, r.Owner, r.Name)
}

//CloneURL is the HTTPS clone URL of the repository
func (r RepoRef) CloneURL() string {
	return fmt.Sprintf("https://%s/%s/%s.git", r.Host, r.Owner, r.Name)
}

//Snapshot is the set of files retrieved from a repository
type Snapshot struct {
	Ref RepoRef
	//Branch actually used
	Branch string
	Files  []common.File
	//Omitted lists candidate files whose content could not be retrieved
	Omitted []string
	//Truncated is set when more candidate files existed than the fetch limit
	Truncated bool
}

//Fetcher retrieves the reviewable files of a repository
type Fetcher interface {
	Fetch(ctx context.Context, ref RepoRef) (*Snapshot, error)
}

//GitAuth carries credentials for private repositories
type GitAuth struct {
	User, Credential string
}

//Limits bound what a fetcher retrieves
type Limits struct {
	MaxFiles    int   `yaml:"MaxFiles"`
	MaxFileSize int64 `yaml:"MaxFileSize"`
	BatchSize   int   `yaml:"BatchSize"`
}

//DefaultLimits are 100 files of at most 200 KB, fetched 10 at a time
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:    DefaultMaxFiles,
		MaxFileSize: DefaultMaxFileSize,
		BatchSize:   DefaultBatchSize,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxFiles <= 0 {
		l.MaxFiles = d.MaxFiles
	}
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.BatchSize <= 0 {
		l.BatchSize = d.BatchSize
	}
	return l
}

type candidate struct {
	path string
	size int64
}

//selectCandidates keeps source-like files within the size ceiling, in the given order, up to the file cap
func selectCandidates(all []candidate, limits Limits) (selected []candidate, truncated bool) {
	for _, c := range all {
		if !common.IsSourceLike(c.path) || c.size > limits.MaxFileSize {
			continue
		}
		if len(selected) == limits.MaxFiles {
			return selected, true
		}
		selected = append(selected, c)
	}
	return selected, false
}

//secondaryBranch is the conventional alternative default branch name
func secondaryBranch(branch string) string {
	switch branch {
	case "main":
		return "master"
	case "master":
		return "main"
	}
	return ""
}

//HostRouter dispatches to a fetcher by repository host, falling back to a default
type HostRouter struct {
	Hosts    map[string]Fetcher
	Fallback Fetcher
}

func (hr HostRouter) Fetch(ctx context.Context, ref RepoRef) (*Snapshot, error) {
	if f, present := hr.Hosts[ref.Host]; present {
		return f.Fetch(ctx, ref)
	}
	if hr.Fallback == nil {
		return nil, fmt.Errorf("%w: no fetcher for host %s", ErrUnsupportedSource, ref.Host)
	}
	return hr.Fallback.Fetch(ctx, ref)
}
