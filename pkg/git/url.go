package gitutils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	segmentRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	hostRe    = regexp.MustCompile(`^[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)+(:\d+)?$`)
)

//ParseRepositoryURL accepts https/http URLs, scheme-less host/owner/repo paths and git@host:owner/repo.git forms.
//A /tree/<branch> suffix selects a branch; branch names may contain slashes.
func ParseRepositoryURL(raw string) (RepoRef, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return RepoRef{}, fmt.Errorf("%w: empty URL", ErrUnsupportedSource)
	}

	if strings.HasPrefix(s, "git@") {
		hostAndPath := strings.TrimPrefix(s, "git@")
		colon := strings.Index(hostAndPath, ":")
		if colon < 0 {
			return RepoRef{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, raw)
		}
		s = hostAndPath[:colon] + "/" + hostAndPath[colon+1:]
	} else if i := strings.Index(s, "://"); i >= 0 {
		scheme := strings.ToLower(s[:i])
		if scheme != "https" && scheme != "http" {
			return RepoRef{}, fmt.Errorf("%w: scheme %s", ErrUnsupportedSource, scheme)
		}
		s = s[i+3:]
	}

	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if at := strings.Index(s, "@"); at >= 0 && at < strings.Index(s+"/", "/") {
		//drop user info
		s = s[at+1:]
	}

	segments := []string{}
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 3 {
		return RepoRef{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, raw)
	}

	ref := RepoRef{
		Host:  strings.ToLower(segments[0]),
		Owner: segments[1],
		Name:  strings.TrimSuffix(segments[2], ".git"),
	}
	if !hostRe.MatchString(ref.Host) || !segmentRe.MatchString(ref.Owner) || !segmentRe.MatchString(ref.Name) {
		return RepoRef{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, raw)
	}

	rest := segments[3:]
	if len(rest) > 0 && rest[0] == "-" {
		rest = rest[1:]
	}
	if len(rest) > 1 && rest[0] == "tree" {
		ref.Branch = strings.Join(rest[1:], "/")
	}
	return ref, nil
}
